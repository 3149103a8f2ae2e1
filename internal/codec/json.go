package codec

import (
	"fmt"

	"github.com/goccy/go-json"
	"golang.org/x/text/language"

	"github.com/pbaille/msgedit/internal/domain"
)

const formatJSON = "json"

// JSON is the WebExtension messages.json format
type JSON struct{}

func (JSON) Format() string { return formatJSON }

func (JSON) ContentType() string { return "application/json" }

func (JSON) FileName(language.Tag) string { return "messages.json" }

func (JSON) Export(_ language.Tag, items domain.Items) ([]byte, error) {
	out, err := EncodeJSON(items)
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}

func (JSON) Parse(name string, data []byte) (domain.Catalog, error) {
	c, err := DecodeJSON(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return c, nil
}

// EncodeJSON writes items as an indented JSON object in item order
func EncodeJSON(items domain.Items) ([]byte, error) {
	out, err := json.MarshalIndentWithOption(items, "", "  ", json.DisableHTMLEscape())
	if err != nil {
		return nil, fmt.Errorf("encode catalog: %w", err)
	}
	return out, nil
}

// DecodeJSON reads a messages.json document
func DecodeJSON(data []byte) (domain.Catalog, error) {
	var c domain.Catalog
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if c == nil {
		return nil, fmt.Errorf("decode catalog: not an object")
	}
	return c, nil
}
