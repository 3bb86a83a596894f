package methods

import (
	"errors"
	"fmt"

	"github.com/alejandrodnm/oraclebot/internal/domain"
)

var (
	// ErrUnknownMethod se devuelve cuando un combo referencia un id no registrado.
	ErrUnknownMethod = errors.New("unknown method")
	// ErrEmptyCombo se devuelve al validar un combo sin métodos.
	ErrEmptyCombo = errors.New("empty combo")
)

// Info describe un detector registrado.
type Info struct {
	ID          string
	Category    string
	Description string
	Fn          domain.Method
}

// Registry mantiene los detectores disponibles indexados por id.
// Se construye explícitamente al arrancar y se pasa al engine; los tests
// pueden crear registries aislados.
type Registry struct {
	methods    map[string]Info
	order      []string            // orden de registro
	categories []string            // orden de primera aparición
	byCategory map[string][]string // categoría → ids en orden de registro
}

// NewRegistry crea un registry vacío.
func NewRegistry() *Registry {
	return &Registry{
		methods:    make(map[string]Info),
		byCategory: make(map[string][]string),
	}
}

// Register añade un detector. Un id duplicado o vacío es un error de programación.
func (r *Registry) Register(id, category, description string, fn domain.Method) error {
	if id == "" || category == "" {
		return fmt.Errorf("methods.Register: id and category are required (id=%q category=%q)", id, category)
	}
	if fn == nil {
		return fmt.Errorf("methods.Register: %s: nil method", id)
	}
	if _, dup := r.methods[id]; dup {
		return fmt.Errorf("methods.Register: %s already registered", id)
	}

	r.methods[id] = Info{ID: id, Category: category, Description: description, Fn: fn}
	r.order = append(r.order, id)
	if _, ok := r.byCategory[category]; !ok {
		r.categories = append(r.categories, category)
	}
	r.byCategory[category] = append(r.byCategory[category], id)
	return nil
}

// Get devuelve la función del detector.
func (r *Registry) Get(id string) (domain.Method, bool) {
	info, ok := r.methods[id]
	if !ok {
		return nil, false
	}
	return info.Fn, true
}

// Info devuelve la descripción completa del detector.
func (r *Registry) Info(id string) (Info, bool) {
	info, ok := r.methods[id]
	return info, ok
}

// IDs devuelve todos los ids en orden de registro.
func (r *Registry) IDs() []string {
	return append([]string(nil), r.order...)
}

// Categories devuelve las categorías en orden de primera aparición.
func (r *Registry) Categories() []string {
	return append([]string(nil), r.categories...)
}

// ByCategory devuelve los ids de una categoría.
func (r *Registry) ByCategory(category string) []string {
	return append([]string(nil), r.byCategory[category]...)
}

// Len devuelve el número de detectores registrados.
func (r *Registry) Len() int {
	return len(r.order)
}

// ValidateCombo comprueba que el combo no esté vacío y que todos sus ids existan.
func (r *Registry) ValidateCombo(c domain.Combo) error {
	if len(c) == 0 {
		return ErrEmptyCombo
	}
	for _, id := range c {
		if _, ok := r.methods[id]; !ok {
			return fmt.Errorf("%w: %q", ErrUnknownMethod, id)
		}
	}
	return nil
}
