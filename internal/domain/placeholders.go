package domain

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/goccy/go-json"
)

// Placeholder is one declared substitution of a message. Raw keeps the
// declaration exactly as it was read so it can be written back untouched.
type Placeholder struct {
	Name string
	Raw  json.RawMessage
}

// Placeholders keeps the declaration order of a placeholders object.
// A nil value means the message declares no placeholders at all.
type Placeholders []Placeholder

// Names returns the declared names in order
func (p Placeholders) Names() []string {
	names := make([]string, len(p))
	for i, ph := range p {
		names[i] = ph.Name
	}
	return names
}

func (p Placeholders) MarshalJSON() ([]byte, error) {
	if p == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, ph := range p {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.MarshalWithOption(ph.Name, json.DisableHTMLEscape())
		if err != nil {
			return nil, fmt.Errorf("marshal placeholder name: %w", err)
		}
		buf.Write(name)
		buf.WriteByte(':')
		if len(ph.Raw) == 0 {
			buf.WriteString("null")
		} else {
			buf.Write(ph.Raw)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (p *Placeholders) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*p = nil
		return nil
	}

	var values map[string]json.RawMessage
	if err := json.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("decode placeholders: %w", err)
	}

	order, err := objectKeys(data)
	if err != nil {
		return err
	}

	out := make(Placeholders, 0, len(order))
	for _, name := range order {
		out = append(out, Placeholder{Name: name, Raw: values[name]})
	}
	*p = out
	return nil
}

// objectKeys lists the top-level keys of a JSON object in document order,
// keeping only the first occurrence of a repeated key.
func objectKeys(data []byte) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	var keys []string
	seen := make(map[string]bool)
	depth := 0
	expectKey := false

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return keys, nil
		}
		if err != nil {
			return nil, fmt.Errorf("scan placeholders: %w", err)
		}

		switch v := tok.(type) {
		case json.Delim:
			switch v {
			case '{', '[':
				depth++
				if depth == 1 {
					expectKey = true
				}
			case '}', ']':
				depth--
				if depth == 1 {
					expectKey = true
				}
			}
		case string:
			if depth == 1 && expectKey {
				if !seen[v] {
					seen[v] = true
					keys = append(keys, v)
				}
				expectKey = false
				continue
			}
			if depth == 1 {
				expectKey = true
			}
		default:
			if depth == 1 {
				expectKey = true
			}
		}
	}
}
