package domain

import (
	"encoding/json"
	"fmt"
)

// CartItem is an opaque cart document. Only the id is interpreted.
type CartItem struct {
	ID     string
	Fields map[string]any
}

// MarshalJSON flattens the item into a single object carrying its id.
func (c CartItem) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(c.Fields)+1)
	for k, v := range c.Fields {
		out[k] = v
	}
	out["id"] = c.ID
	return json.Marshal(out)
}

func (c *CartItem) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if id, ok := raw["id"]; ok {
		s, isString := id.(string)
		if !isString {
			return fmt.Errorf("cart item id must be a string, got %T", id)
		}
		c.ID = s
		delete(raw, "id")
	}
	c.Fields = raw
	return nil
}
