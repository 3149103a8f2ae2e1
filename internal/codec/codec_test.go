package codec

import (
	"strings"
	"testing"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/pbaille/msgedit/internal/domain"
)

const sample = `{
  "languageCode": {"message": "fr"},
  "item2": {"message": "Deux & <trois>", "description": "count"},
  "open": {"message": "Ouvrir $URL$", "placeholders": {"url": {"content": "$1", "example": "https://example.com"}}}
}`

func sampleItems(t *testing.T) domain.Items {
	t.Helper()
	c, err := DecodeJSON([]byte(sample))
	require.NoError(t, err)
	return domain.Items{
		{ID: "languageCode", Message: c["languageCode"]},
		{ID: "item2", Message: c["item2"]},
		{ID: "open", Message: c["open"]},
	}
}

func TestFormatFor(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "json", FormatFor("messages.json"))
	assert.Equal(t, "json", FormatFor("https://example.com/_locales/en/messages.json?raw=1"))
	assert.Equal(t, "goi18n", FormatFor("active.fr.TOML"))
	assert.Equal(t, "yaml", FormatFor("messages.yml"))
	assert.Equal(t, "json", FormatFor("catalog"))
}

func TestRegistry_Lookup(t *testing.T) {
	t.Parallel()

	r := Default()
	assert.Equal(t, []string{"goi18n", "json", "yaml"}, r.ExportFormats())

	_, err := r.Exporter("xliff")
	assert.ErrorIs(t, err, ErrUnknownFormat)

	_, err = r.Parse("messages.yaml", []byte("a: b"))
	assert.ErrorIs(t, err, ErrUnknownFormat, "yaml is export only")
}

func TestJSON_DecodeRejectsNonObjects(t *testing.T) {
	t.Parallel()

	for _, in := range []string{`null`, `[]`, `{"a": 1}`, `{`} {
		_, err := DecodeJSON([]byte(in))
		assert.Error(t, err, in)
	}
}

func TestJSON_ExportKeepsOrderAndText(t *testing.T) {
	t.Parallel()

	out, err := JSON{}.Export(language.French, sampleItems(t))
	require.NoError(t, err)

	s := string(out)
	assert.Contains(t, s, `"Deux & <trois>"`, "no HTML escaping")
	assert.Less(t, strings.Index(s, "languageCode"), strings.Index(s, "item2"))
	assert.Less(t, strings.Index(s, "item2"), strings.Index(s, `"open"`))

	back, err := JSON{}.Parse("messages.json", out)
	require.NoError(t, err)
	assert.Equal(t, sampleItems(t).Catalog()["open"].Placeholders.Names(), back["open"].Placeholders.Names())
	assert.Equal(t, "Deux & <trois>", back["item2"].Message)
}

func TestYAML_Export(t *testing.T) {
	t.Parallel()

	out, err := YAML{}.Export(language.French, sampleItems(t))
	require.NoError(t, err)

	assert.Equal(t, `languageCode:
  message: fr
item2:
  message: Deux & <trois>
  description: count
open:
  message: Ouvrir $URL$
  placeholders:
    url:
      content: $1
      example: https://example.com
`, string(out))
}

func TestGoI18n_ExportReadByGoI18n(t *testing.T) {
	t.Parallel()

	out, err := GoI18n{}.Export(language.French, sampleItems(t))
	require.NoError(t, err)
	assert.Equal(t, "active.fr.toml", GoI18n{}.FileName(language.French))

	bundle := i18n.NewBundle(language.French)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)
	_, err = bundle.ParseMessageFileBytes(out, "active.fr.toml")
	require.NoError(t, err)

	got, err := i18n.NewLocalizer(bundle, "fr").Localize(&i18n.LocalizeConfig{MessageID: "item2"})
	require.NoError(t, err)
	assert.Equal(t, "Deux & <trois>", got)
}

func TestGoI18n_Parse(t *testing.T) {
	t.Parallel()

	data := []byte(`
[greeting]
description = "on the home page"
other = "Bonjour"

[bye]
other = "Au revoir"
`)
	c, err := GoI18n{}.Parse("active.fr.toml", data)
	require.NoError(t, err)
	assert.Equal(t, domain.Catalog{
		"greeting": {Message: "Bonjour", Description: "on the home page"},
		"bye":      {Message: "Au revoir"},
	}, c)
}
