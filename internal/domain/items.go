package domain

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-json"
)

// Items is a catalog in a fixed order. It marshals to a JSON object whose
// keys appear in slice order, with <, > and & left as they are.
type Items []Item

// Catalog drops the order
func (it Items) Catalog() Catalog {
	c := make(Catalog, len(it))
	for _, item := range it {
		c[item.ID] = item.Message
	}
	return c
}

func (it Items) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, item := range it {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.MarshalWithOption(item.ID, json.DisableHTMLEscape())
		if err != nil {
			return nil, fmt.Errorf("marshal id %s: %w", item.ID, err)
		}
		value, err := json.MarshalWithOption(item.Message, json.DisableHTMLEscape())
		if err != nil {
			return nil, fmt.Errorf("marshal message %s: %w", item.ID, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
