// Package prompts loads the LLM prompt templates once at startup. Embedded
// defaults are overridden key by key from an optional YAML file.
package prompts

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultTemplates []byte

const (
	Routing         = "routing"
	Decomposition   = "decomposition"
	Synthesis       = "synthesis"
	KnowledgeFusion = "knowledge_fusion"
	PlaceExtraction = "place_extraction"
	RouteExtraction = "route_extraction"
	ToolSelection   = "tool_selection"
)

var requiredNames = []string{Routing, Decomposition, Synthesis, KnowledgeFusion, PlaceExtraction, RouteExtraction, ToolSelection}

// Set is an immutable collection of parsed templates, safe for concurrent use.
type Set struct {
	templates map[string]*template.Template
}

// Default returns the embedded templates. It panics only if the embedded file is broken.
func Default() *Set {
	set, err := parse(defaultTemplates, nil)
	if err != nil {
		panic(err)
	}
	return set
}

// Load reads path (if non-empty) and overlays it on the embedded defaults.
func Load(path string) (*Set, error) {
	if path == "" {
		return parse(defaultTemplates, nil)
	}
	overrides, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompts file %s: %w", path, err)
	}
	return parse(defaultTemplates, overrides)
}

func parse(base, overrides []byte) (*Set, error) {
	raw := map[string]string{}
	if err := yaml.Unmarshal(base, &raw); err != nil {
		return nil, fmt.Errorf("parse default prompts: %w", err)
	}
	if len(overrides) > 0 {
		extra := map[string]string{}
		if err := yaml.Unmarshal(overrides, &extra); err != nil {
			return nil, fmt.Errorf("parse prompt overrides: %w", err)
		}
		for k, v := range extra {
			raw[k] = v
		}
	}

	set := &Set{templates: make(map[string]*template.Template, len(raw))}
	for name, body := range raw {
		tmpl, err := template.New(name).Option("missingkey=zero").Parse(body)
		if err != nil {
			return nil, fmt.Errorf("parse prompt %s: %w", name, err)
		}
		set.templates[name] = tmpl
	}

	for _, name := range requiredNames {
		if _, ok := set.templates[name]; !ok {
			return nil, fmt.Errorf("prompt %s is missing", name)
		}
	}
	return set, nil
}

// Render executes the named template with data.
func (s *Set) Render(name string, data interface{}) (string, error) {
	tmpl, ok := s.templates[name]
	if !ok {
		return "", fmt.Errorf("unknown prompt %q", name)
	}
	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("render prompt %s: %w", name, err)
	}
	return strings.TrimSpace(sb.String()), nil
}
