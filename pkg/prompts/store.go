package prompts

import (
	"fmt"
	"strings"
)

// Store maps template names to template text. The zero-cost default
// store serves the built-in templates; overrides let a deployment swap
// individual templates without touching the engine.
type Store struct {
	templates map[string]string
}

// NewStore returns a store serving the built-in templates.
func NewStore() *Store {
	t := make(map[string]string, len(defaults))
	for name, text := range defaults {
		t[name] = text
	}
	return &Store{templates: t}
}

// Override replaces the template registered under name.
func (s *Store) Override(name, text string) {
	s.templates[name] = text
}

// Get returns the template text for name.
func (s *Store) Get(name string) (string, error) {
	text, ok := s.templates[name]
	if !ok {
		return "", fmt.Errorf("unknown prompt template %q", name)
	}
	return text, nil
}

// Render fetches a template and fills its named placeholders. A
// placeholder with no binding in vars is an error; a half-filled
// prompt must never reach the model.
func (s *Store) Render(name string, vars map[string]string) (string, error) {
	text, err := s.Get(name)
	if err != nil {
		return "", err
	}
	out := Fill(text, vars)
	if unbound := firstPlaceholder(out); unbound != "" {
		return "", fmt.Errorf("prompt template %q: no value bound for %s", name, unbound)
	}
	return out, nil
}

// Fill substitutes every {{name}} placeholder in template with the
// value bound in vars.
func Fill(template string, vars map[string]string) string {
	out := template
	for name, value := range vars {
		out = strings.ReplaceAll(out, "{{"+name+"}}", value)
	}
	return out
}

// firstPlaceholder returns the first {{name}} placeholder remaining in
// text, or "" if none survive.
func firstPlaceholder(text string) string {
	start := strings.Index(text, "{{")
	if start < 0 {
		return ""
	}
	rest := text[start:]
	end := strings.Index(rest, "}}")
	if end < 0 {
		return ""
	}
	return rest[:end+2]
}
