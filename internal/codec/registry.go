// Package codec reads and writes message catalogs in the supported file formats.
package codec

import (
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"

	"golang.org/x/text/language"

	"github.com/pbaille/msgedit/internal/domain"
)

// ErrUnknownFormat is returned for a format nobody registered
var ErrUnknownFormat = errors.New("unknown format")

// Exporter writes an ordered catalog
type Exporter interface {
	Format() string
	ContentType() string
	FileName(locale language.Tag) string
	Export(locale language.Tag, items domain.Items) ([]byte, error)
}

// Parser reads a catalog. name is the file name the data came from.
type Parser interface {
	Format() string
	Parse(name string, data []byte) (domain.Catalog, error)
}

// Registry holds exporters and parsers by format name
type Registry struct {
	exporters map[string]Exporter
	parsers   map[string]Parser
}

// New returns an empty registry
func New() *Registry {
	return &Registry{exporters: map[string]Exporter{}, parsers: map[string]Parser{}}
}

// Default returns a registry with every built-in format
func Default() *Registry {
	r := New()
	r.RegisterExporter(JSON{})
	r.RegisterParser(JSON{})
	r.RegisterExporter(YAML{})
	r.RegisterExporter(GoI18n{})
	r.RegisterParser(GoI18n{})
	return r
}

func (r *Registry) RegisterExporter(e Exporter) { r.exporters[e.Format()] = e }

func (r *Registry) RegisterParser(p Parser) { r.parsers[p.Format()] = p }

// Exporter looks up an exporter
func (r *Registry) Exporter(format string) (Exporter, error) {
	e, ok := r.exporters[format]
	if !ok {
		return nil, fmt.Errorf("export %q: %w", format, ErrUnknownFormat)
	}
	return e, nil
}

// Parser looks up a parser
func (r *Registry) Parser(format string) (Parser, error) {
	p, ok := r.parsers[format]
	if !ok {
		return nil, fmt.Errorf("parse %q: %w", format, ErrUnknownFormat)
	}
	return p, nil
}

// ExportFormats lists the exporter names, sorted
func (r *Registry) ExportFormats() []string {
	out := make([]string, 0, len(r.exporters))
	for f := range r.exporters {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// Parse picks the parser from the file extension of name
func (r *Registry) Parse(name string, data []byte) (domain.Catalog, error) {
	p, err := r.Parser(FormatFor(name))
	if err != nil {
		return nil, err
	}
	return p.Parse(name, data)
}

// FormatFor maps a file name to a format name. Anything that is not a
// TOML file is read as messages.json.
func FormatFor(name string) string {
	// strip a query string left over from URLs
	name, _, _ = strings.Cut(name, "?")
	switch strings.ToLower(path.Ext(name)) {
	case ".toml":
		return formatGoI18n
	case ".yaml", ".yml":
		return formatYAML
	default:
		return formatJSON
	}
}
