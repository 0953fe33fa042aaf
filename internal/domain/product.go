package domain

import (
	"fmt"
	"math"
)

// AdminProduct is a document of the admin product collection.
type AdminProduct struct {
	ID    string  `json:"id"`
	Name  string  `json:"namn"`
	Price float64 `json:"pris"`
}

// CatalogProduct is a document of the original or extra catalog collection.
type CatalogProduct struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	Price     float64 `json:"price"`
	Breadtext string  `json:"breadtext"`
	Image     string  `json:"image"`
	Quantity  int     `json:"quantity"`
}

// Source tells which catalog collection a product belongs to.
type Source int

const (
	SourceOriginal Source = iota
	SourceExtra
)

// Sources lists every catalog source in display order.
var Sources = []Source{SourceOriginal, SourceExtra}

func (s Source) String() string {
	switch s {
	case SourceOriginal:
		return "original"
	case SourceExtra:
		return "extra"
	default:
		return fmt.Sprintf("source(%d)", int(s))
	}
}

// ParseSource accepts the names produced by Source.String.
func ParseSource(name string) (Source, error) {
	switch name {
	case "original":
		return SourceOriginal, nil
	case "extra":
		return SourceExtra, nil
	default:
		return 0, fmt.Errorf("unknown catalog source %q", name)
	}
}

func (s Source) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Number converts a stored numeric value into a float64. Document backends
// hand numbers back as float64, int32 or int64 depending on the wire format.
func Number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, !math.IsNaN(n) && !math.IsInf(n, 0)
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// Text returns the value when it is a string.
func Text(v any) string {
	s, _ := v.(string)
	return s
}
