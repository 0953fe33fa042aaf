package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    float64
		wantErr error
	}{
		{"integer", "49", 49, nil},
		{"decimal", " 19.90 ", 19.9, nil},
		{"zero", "0", 0, nil},
		{"blank", "   ", 0, ErrPriceRequired},
		{"letters", "abc", 0, ErrInvalidPrice},
		{"trailing junk", "49kr", 0, ErrInvalidPrice},
		{"nan", "NaN", 0, ErrInvalidPrice},
		{"negative", "-1", 0, ErrNegativePrice},
		{"overflow", "1e400", 0, ErrInvalidPrice},
		{"large but finite", "1e300", 1e300, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePrice(tt.raw)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNegativePriceIsInvalidPrice(t *testing.T) {
	_, err := ParsePrice("-5")
	assert.ErrorIs(t, err, ErrInvalidPrice)
}

func TestParseQuantity(t *testing.T) {
	n, err := ParseQuantity("12")
	require.NoError(t, err)
	assert.Equal(t, 12, n)

	_, err = ParseQuantity("1.5")
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = ParseQuantity("-2")
	assert.ErrorIs(t, err, ErrNegativeQuantity)
}

func TestField_ApplyKeepsProductOnParseFailure(t *testing.T) {
	p := CatalogProduct{Title: "Robot", Price: 100, Quantity: 2}

	err := FieldPrice.Apply(&p, "gratis")
	assert.ErrorIs(t, err, ErrInvalidPrice)
	assert.Equal(t, 100.0, p.Price)

	err = FieldQuantity.Apply(&p, "many")
	assert.ErrorIs(t, err, ErrInvalidQuantity)
	assert.Equal(t, 2, p.Quantity)
}

func TestField_ApplyCoercesNumbers(t *testing.T) {
	p := CatalogProduct{}

	require.NoError(t, FieldPrice.Apply(&p, "59.5"))
	require.NoError(t, FieldQuantity.Apply(&p, "7"))
	require.NoError(t, FieldTitle.Apply(&p, "Drake"))
	require.NoError(t, FieldImage.Apply(&p, " https://example.com/a.png "))

	assert.Equal(t, 59.5, p.Price)
	assert.Equal(t, 7, p.Quantity)
	assert.Equal(t, "Drake", p.Title)
	assert.Equal(t, "https://example.com/a.png", p.Image)
	assert.Equal(t, "59.5", FieldPrice.Value(p))
	assert.Equal(t, "7", FieldQuantity.Value(p))
}

func TestParseField(t *testing.T) {
	for f, name := range fieldNames {
		got, err := ParseField(name)
		require.NoError(t, err)
		assert.Equal(t, f, got)
		assert.Equal(t, name, f.String())
	}

	_, err := ParseField("colour")
	assert.Error(t, err)
}

func TestParseSource(t *testing.T) {
	for _, s := range Sources {
		got, err := ParseSource(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}

	_, err := ParseSource("archive")
	assert.Error(t, err)
}

func TestNumber(t *testing.T) {
	n, ok := Number(int32(4))
	assert.True(t, ok)
	assert.Equal(t, 4.0, n)

	_, ok = Number("4")
	assert.False(t, ok)
}

func TestCartItem_JSON(t *testing.T) {
	item := CartItem{ID: "abc", Fields: map[string]any{"title": "Boll", "price": 49.0}}

	data, err := json.Marshal(item)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"abc","title":"Boll","price":49}`, string(data))

	var decoded CartItem
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "abc", decoded.ID)
	assert.Equal(t, "Boll", decoded.Fields["title"])
	_, hasID := decoded.Fields["id"]
	assert.False(t, hasID)
}
