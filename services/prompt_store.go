package services

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/tmc/langchaingo/prompts"

	"github.com/machirag/server/models"
)

// defaultTemplateName marks the template loaded when no name is given.
const defaultTemplateName = "デフォルト"

// PromptTemplate is one named pair of system prompt and response template.
type PromptTemplate struct {
	Name             string `json:"name"`
	SystemPrompt     string `json:"system_prompt"`
	ResponseTemplate string `json:"response_template"`
}

// PromptStore persists prompt templates to a single JSON flat file. All
// mutations rewrite the whole file; the store is small by construction.
type PromptStore struct {
	path string
	mu   sync.Mutex
}

// NewPromptStore opens a store backed by the given file. A missing file is
// an empty store.
func NewPromptStore(path string) *PromptStore {
	return &PromptStore{path: path}
}

// List returns every stored template.
func (s *PromptStore) List() ([]PromptTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Get returns the named template.
func (s *PromptStore) Get(name string) (*PromptTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	templates, err := s.load()
	if err != nil {
		return nil, err
	}
	for i := range templates {
		if templates[i].Name == name {
			return &templates[i], nil
		}
	}
	return nil, &models.ValidationError{Field: "name", Reason: fmt.Sprintf("template %q not found", name)}
}

// Default returns the template named デフォルト, or nil when none is stored.
func (s *PromptStore) Default() (*PromptTemplate, error) {
	template, err := s.Get(defaultTemplateName)
	if _, notFound := err.(*models.ValidationError); notFound {
		return nil, nil
	}
	return template, err
}

// Put creates or replaces a template by name.
func (s *PromptStore) Put(template PromptTemplate) error {
	if template.Name == "" {
		return &models.ValidationError{Field: "name", Reason: "template name must not be empty"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	templates, err := s.load()
	if err != nil {
		return err
	}
	replaced := false
	for i := range templates {
		if templates[i].Name == template.Name {
			templates[i] = template
			replaced = true
			break
		}
	}
	if !replaced {
		templates = append(templates, template)
	}
	return s.save(templates)
}

// Delete removes the named template.
func (s *PromptStore) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	templates, err := s.load()
	if err != nil {
		return err
	}
	kept := templates[:0]
	for _, t := range templates {
		if t.Name != name {
			kept = append(kept, t)
		}
	}
	if len(kept) == len(templates) {
		return &models.ValidationError{Field: "name", Reason: fmt.Sprintf("template %q not found", name)}
	}
	return s.save(kept)
}

// Render fills the named template's response template with the given values.
func (s *PromptStore) Render(name string, values map[string]any) (string, error) {
	template, err := s.Get(name)
	if err != nil {
		return "", err
	}
	vars := make([]string, 0, len(values))
	for key := range values {
		vars = append(vars, key)
	}
	rendered, err := prompts.NewPromptTemplate(template.ResponseTemplate, vars).Format(values)
	if err != nil {
		return "", fmt.Errorf("failed to render template %q: %w", name, err)
	}
	return rendered, nil
}

func (s *PromptStore) load() ([]PromptTemplate, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt templates: %w", err)
	}
	var templates []PromptTemplate
	if err := json.Unmarshal(data, &templates); err != nil {
		return nil, fmt.Errorf("failed to parse prompt templates: %w", err)
	}
	return templates, nil
}

func (s *PromptStore) save(templates []PromptTemplate) error {
	data, err := json.MarshalIndent(templates, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode prompt templates: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write prompt templates: %w", err)
	}
	return nil
}
