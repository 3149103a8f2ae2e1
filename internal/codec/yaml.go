package codec

import (
	"bytes"
	"fmt"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/pbaille/msgedit/internal/domain"
)

const formatYAML = "yaml"

// YAML writes the catalog as a YAML mapping, same shape and order as JSON
type YAML struct{}

func (YAML) Format() string { return formatYAML }

func (YAML) ContentType() string { return "application/yaml" }

func (YAML) FileName(language.Tag) string { return "messages.yaml" }

func (YAML) Export(_ language.Tag, items domain.Items) ([]byte, error) {
	root := &yaml.Node{Kind: yaml.MappingNode}
	for _, item := range items {
		value, err := messageNode(item.Message)
		if err != nil {
			return nil, fmt.Errorf("export %s: %w", item.ID, err)
		}
		root.Content = append(root.Content, scalar(item.ID), value)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{root}}); err != nil {
		return nil, fmt.Errorf("encode yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode yaml: %w", err)
	}
	return buf.Bytes(), nil
}

func messageNode(msg domain.Message) (*yaml.Node, error) {
	n := &yaml.Node{Kind: yaml.MappingNode}
	n.Content = append(n.Content, scalar("message"), scalar(msg.Message))
	if msg.Description != "" {
		n.Content = append(n.Content, scalar("description"), scalar(msg.Description))
	}
	if len(msg.Placeholders) > 0 {
		ph := &yaml.Node{Kind: yaml.MappingNode}
		for _, p := range msg.Placeholders {
			// JSON is valid YAML, so the raw declaration parses as-is
			var doc yaml.Node
			raw := p.Raw
			if len(raw) == 0 {
				raw = []byte("null")
			}
			if err := yaml.Unmarshal(raw, &doc); err != nil {
				return nil, fmt.Errorf("placeholder %s: %w", p.Name, err)
			}
			value := doc.Content[0]
			blockStyle(value)
			ph.Content = append(ph.Content, scalar(p.Name), value)
		}
		n.Content = append(n.Content, scalar("placeholders"), ph)
	}
	return n, nil
}

func scalar(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

// blockStyle drops the flow and quoting styles a JSON source leaves behind
func blockStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		blockStyle(c)
	}
}
