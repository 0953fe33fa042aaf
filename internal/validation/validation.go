package validation

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/go-playground/validator/v10"
)

// FieldErrors maps a field key to a user-facing message.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	keys := make([]string, 0, len(fe))
	for k := range fe {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+fe[k])
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// SchemaError carries the first failing field of a schema check.
type SchemaError struct {
	Field   string
	Message string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// catalogSchema mirrors CatalogProduct with the constraints every catalog
// document must satisfy before it is written.
type catalogSchema struct {
	Title     string  `json:"title" validate:"required,min=3,max=50"`
	Price     float64 `json:"price" validate:"gte=0"`
	Breadtext string  `json:"breadtext"`
	Image     string  `json:"image" validate:"omitempty,uri"`
	Quantity  int     `json:"quantity" validate:"gte=0"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidateCatalogProduct returns nil or a *SchemaError describing the first
// violated constraint.
func ValidateCatalogProduct(p domain.CatalogProduct) error {
	err := validate.Struct(catalogSchema{
		Title:     p.Title,
		Price:     p.Price,
		Breadtext: p.Breadtext,
		Image:     p.Image,
		Quantity:  p.Quantity,
	})
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if errors.As(err, &ve) && len(ve) > 0 {
		fe := ve[0]
		return &SchemaError{Field: fe.Field(), Message: messageForTag(fe.Field(), fe.Tag(), fe.Param())}
	}
	return fmt.Errorf("schema validation: %w", err)
}

func messageForTag(field, tag, param string) string {
	switch tag {
	case "required":
		return field + " is a required field"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, param)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, param)
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, param)
	case "uri":
		return field + " must be a valid URL"
	default:
		return field + " is invalid"
	}
}
