package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Field identifies one editable field of a CatalogProduct.
type Field int

const (
	FieldTitle Field = iota
	FieldPrice
	FieldBreadtext
	FieldImage
	FieldQuantity
)

var fieldNames = map[Field]string{
	FieldTitle:     "title",
	FieldPrice:     "price",
	FieldBreadtext: "breadtext",
	FieldImage:     "image",
	FieldQuantity:  "quantity",
}

func (f Field) String() string {
	if name, ok := fieldNames[f]; ok {
		return name
	}
	return fmt.Sprintf("field(%d)", int(f))
}

func ParseField(name string) (Field, error) {
	for f, n := range fieldNames {
		if n == name {
			return f, nil
		}
	}
	return 0, fmt.Errorf("unknown field %q", name)
}

// Apply parses raw with the field's own parser and writes the typed value
// into p. p is left untouched when parsing fails.
func (f Field) Apply(p *CatalogProduct, raw string) error {
	switch f {
	case FieldTitle:
		p.Title = raw
	case FieldBreadtext:
		p.Breadtext = raw
	case FieldImage:
		p.Image = strings.TrimSpace(raw)
	case FieldPrice:
		price, err := ParsePrice(raw)
		if err != nil {
			return err
		}
		p.Price = price
	case FieldQuantity:
		qty, err := ParseQuantity(raw)
		if err != nil {
			return err
		}
		p.Quantity = qty
	default:
		return fmt.Errorf("unknown field %d", int(f))
	}
	return nil
}

// Value returns the field's current value of p as display text.
func (f Field) Value(p CatalogProduct) string {
	switch f {
	case FieldTitle:
		return p.Title
	case FieldBreadtext:
		return p.Breadtext
	case FieldImage:
		return p.Image
	case FieldPrice:
		return strconv.FormatFloat(p.Price, 'f', -1, 64)
	case FieldQuantity:
		return strconv.Itoa(p.Quantity)
	default:
		return ""
	}
}
