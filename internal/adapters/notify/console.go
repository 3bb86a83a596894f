package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/alejandrodnm/oraclebot/internal/domain"
	"github.com/alejandrodnm/oraclebot/internal/methods"
)

// gapOverfit es el gap holdout − train a partir del cual un combo se marca como sobreajustado.
const gapOverfit = -0.10

// Console implementa ports.Reporter escribiendo tablas en texto.
type Console struct {
	out io.Writer
}

// NewConsole crea un reporter que escribe a stdout.
func NewConsole() *Console {
	return &Console{out: os.Stdout}
}

// NewConsoleWriter crea un reporter sobre un writer arbitrario (tests, ficheros).
func NewConsoleWriter(w io.Writer) *Console {
	return &Console{out: w}
}

// Report imprime el resumen de un run: finalistas de cada tier y validación holdout.
func (c *Console) Report(_ context.Context, r domain.RunReport) error {
	elapsed := r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond)
	fmt.Fprintf(c.out, "\n[%s] run %s — train:%d holdout:%d evaluated:%d (%s)\n",
		r.StartedAt.Format("2006-01-02 15:04:05"), shortID(r.RunID),
		r.TrainMarkets, r.HoldoutMarkets, r.Evaluated, elapsed)

	best, ok := r.Best()
	if !ok {
		fmt.Fprintln(c.out, "No combos evaluated")
		return nil
	}
	fmt.Fprintf(c.out, "Best: %s  fitness %.4f  accuracy %.1f%%\n",
		compactName(best.Combo().Key(), 60), best.FitnessScore, best.Accuracy*100)

	for _, cat := range sortedCategories(r.Tier1) {
		if len(r.Tier1[cat]) == 0 {
			continue
		}
		fmt.Fprintf(c.out, "\nTier 1 — %s\n", cat)
		c.printResults(r.Tier1[cat])
	}
	if len(r.Tier2) > 0 {
		fmt.Fprintln(c.out, "\nTier 2 — cross-category")
		c.printResults(r.Tier2)
	}
	if len(r.Tier3) > 0 {
		fmt.Fprintln(c.out, "\nTier 3 — refined")
		c.printResults(r.Tier3)
	}
	if len(r.Holdout) > 0 {
		fmt.Fprintln(c.out, "\nHoldout validation")
		c.printHoldout(r.Holdout)
	} else {
		fmt.Fprintln(c.out, "\nHoldout validation skipped (not enough recent markets)")
	}
	return nil
}

// ReportTop imprime la tabla de combos guardados.
func (c *Console) ReportTop(_ context.Context, results []domain.ComboResult) error {
	if len(results) == 0 {
		fmt.Fprintln(c.out, "No results stored")
		return nil
	}
	c.printResults(results)
	return nil
}

// ReportHoldout imprime la validación holdout del último run.
func (c *Console) ReportHoldout(_ context.Context, results []domain.HoldoutResult) error {
	if len(results) == 0 {
		fmt.Fprintln(c.out, "No holdout validation stored")
		return nil
	}
	fmt.Fprintf(c.out, "\nHoldout validation (run %s)\n", shortID(results[0].RunID))
	c.printHoldout(results)
	return nil
}

// ReportMethods lista los detectores registrados.
func (c *Console) ReportMethods(infos []methods.Info) {
	table := tablewriter.NewWriter(c.out)
	table.Header("ID", "Category", "Description")
	for _, m := range infos {
		table.Append(m.ID, m.Category, m.Description)
	}
	table.Render()
}

func (c *Console) printResults(results []domain.ComboResult) {
	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Combo", "Order", "Acc", "Edge", "FPR", "Cx", "Fitness", "Mkts", "Tier")

	for i, r := range results {
		table.Append(
			fmt.Sprintf("%d", i+1),
			truncate(r.ComboID, 32),
			truncate(r.Combo().Key(), 32),
			fmt.Sprintf("%.1f%%", r.Accuracy*100),
			fmt.Sprintf("%.3f", r.EdgeVsMarket),
			fmt.Sprintf("%.1f%%", r.FalsePositiveRate*100),
			fmt.Sprintf("%d", r.Complexity),
			fmt.Sprintf("%.4f", r.FitnessScore),
			fmt.Sprintf("%d", r.MarketsEvaluated),
			tierLabel(r.Tier),
		)
	}
	table.Render()
}

func (c *Console) printHoldout(results []domain.HoldoutResult) {
	table := tablewriter.NewWriter(c.out)
	table.Header("Combo", "Train fit", "Holdout fit", "Gap", "Holdout acc", "Mkts", "Verdict")

	for _, h := range results {
		table.Append(
			truncate(h.ComboID, 32),
			fmt.Sprintf("%.4f", h.TrainFitness),
			fmt.Sprintf("%.4f", h.HoldoutFitness),
			fmt.Sprintf("%+.4f", h.Gap()),
			fmt.Sprintf("%.1f%%", h.HoldoutAcc*100),
			fmt.Sprintf("%d/%d", h.TrainMarkets, h.HoldoutMarkets),
			holdoutVerdict(h),
		)
	}
	table.Render()

	fmt.Fprintln(c.out, "  Gap = holdout − train | OVERFIT: gap < -0.10")
}

// holdoutVerdict clasifica la generalización del combo fuera de muestra.
func holdoutVerdict(h domain.HoldoutResult) string {
	switch gap := h.Gap(); {
	case gap < gapOverfit:
		return "OVERFIT"
	case gap < 0:
		return "DEGRADES"
	default:
		return "HOLDS"
	}
}

func tierLabel(tier int) string {
	if tier == 0 {
		return "manual"
	}
	return fmt.Sprintf("T%d", tier)
}

func sortedCategories(byCat map[string][]domain.ComboResult) []string {
	cats := make([]string, 0, len(byCat))
	for cat := range byCat {
		cats = append(cats, cat)
	}
	sort.Strings(cats)
	return cats
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	if id == "" {
		return "-"
	}
	return id
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

// compactName recorta en el último separador para no partir un method id.
func compactName(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := s[:maxLen]
	if idx := strings.LastIndex(cut, ","); idx > maxLen/2 {
		cut = cut[:idx]
	}
	return cut + "…"
}
