package engine

import "github.com/alejandrodnm/oraclebot/internal/domain"

// indexSubsets devuelve todas las combinaciones de índices de 0..n-1 con
// tamaño entre minSize y maxSize, por tamaño creciente y en orden lexicográfico.
func indexSubsets(n, minSize, maxSize int) [][]int {
	var out [][]int
	maxSize = min(maxSize, n)
	for k := max(minSize, 1); k <= maxSize; k++ {
		idx := make([]int, k)
		for i := range idx {
			idx[i] = i
		}
		for {
			out = append(out, append([]int(nil), idx...))
			// avanzar a la siguiente combinación
			i := k - 1
			for i >= 0 && idx[i] == n-k+i {
				i--
			}
			if i < 0 {
				break
			}
			idx[i]++
			for j := i + 1; j < k; j++ {
				idx[j] = idx[j-1] + 1
			}
		}
	}
	return out
}

// subsets devuelve los combos no vacíos de ids con tamaño minSize..maxSize,
// respetando el orden de ids dentro de cada combo.
func subsets(ids []string, minSize, maxSize int) []domain.Combo {
	idxs := indexSubsets(len(ids), minSize, maxSize)
	out := make([]domain.Combo, 0, len(idxs))
	for _, idx := range idxs {
		c := make([]string, len(idx))
		for i, j := range idx {
			c[i] = ids[j]
		}
		out = append(out, domain.NewCombo(c...))
	}
	return out
}
