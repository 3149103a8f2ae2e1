package codec

import (
	"fmt"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/pelletier/go-toml/v2"
	"golang.org/x/text/language"

	"github.com/pbaille/msgedit/internal/domain"
)

const formatGoI18n = "goi18n"

// GoI18n is the go-i18n TOML message file format. Placeholder declarations
// have no equivalent there and are left out on export.
type GoI18n struct{}

type goi18nMessage struct {
	Description string `toml:"description,omitempty"`
	Other       string `toml:"other"`
}

func (GoI18n) Format() string { return formatGoI18n }

func (GoI18n) ContentType() string { return "application/toml" }

func (GoI18n) FileName(locale language.Tag) string {
	return "active." + locale.String() + ".toml"
}

func (GoI18n) Export(_ language.Tag, items domain.Items) ([]byte, error) {
	doc := make(map[string]goi18nMessage, len(items))
	for _, item := range items {
		doc[item.ID] = goi18nMessage{Description: item.Message.Description, Other: item.Message.Message}
	}
	out, err := toml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode toml: %w", err)
	}
	return out, nil
}

// Parse reads a go-i18n message file. The language in the file name is not
// required; a bare "messages.toml" reads fine.
func (GoI18n) Parse(name string, data []byte) (domain.Catalog, error) {
	mf, err := i18n.ParseMessageFileBytes(data, name, map[string]i18n.UnmarshalFunc{"toml": toml.Unmarshal})
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}

	c := make(domain.Catalog, len(mf.Messages))
	for _, m := range mf.Messages {
		c[m.ID] = domain.Message{Message: m.Other, Description: m.Description}
	}
	return c, nil
}
