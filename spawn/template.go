package spawn

import (
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Template declares a spawnable agent type.
type Template struct {
	Publisher   string `yaml:"publisher"`
	ID          string `yaml:"id"`
	Version     string `yaml:"version"`
	DisplayName string `yaml:"display_name"`
	// Instructions is the system prompt for agents of this type.
	Instructions string `yaml:"instructions"`
	// InputSchema is the declared shape of the spawn params (minimal JSON
	// Schema subset).
	InputSchema map[string]any `yaml:"input_schema"`
	// IncludeMessageHistory copies the parent's conversation into the child.
	IncludeMessageHistory bool `yaml:"include_message_history"`
	// Spawnable lists the agent types this type may spawn, as specifiers.
	Spawnable  []string `yaml:"spawnable"`
	StepBudget int      `yaml:"step_budget"`
}

// Specifier returns the template's full publisher/id@version form.
func (t *Template) Specifier() string {
	return t.Publisher + "/" + t.ID + "@" + t.Version
}

// specifier is a possibly-partial template reference. Empty fields are
// wildcards: "worker" matches any publisher and version, "acme/worker" any
// version.
type specifier struct {
	publisher string
	id        string
	version   string
}

func parseSpecifier(spec string) specifier {
	var s specifier

	rest := spec
	if at := strings.LastIndexByte(rest, '@'); at >= 0 {
		s.version = rest[at+1:]
		rest = rest[:at]
	}

	if slash := strings.IndexByte(rest, '/'); slash >= 0 {
		s.publisher = rest[:slash]
		s.id = rest[slash+1:]
	} else {
		s.id = rest
	}

	return s
}

func (s specifier) matches(t *Template) bool {
	if s.id != t.ID {
		return false
	}

	if s.publisher != "" && s.publisher != t.Publisher {
		return false
	}

	if s.version != "" && s.version != t.Version {
		return false
	}

	return true
}

// TemplateRegistry resolves possibly-partial specifiers to templates.
type TemplateRegistry struct {
	templates []*Template
}

// NewTemplateRegistry creates a registry holding the given templates.
func NewTemplateRegistry(templates ...*Template) *TemplateRegistry {
	return &TemplateRegistry{templates: templates}
}

// Add registers one template.
func (r *TemplateRegistry) Add(t *Template) {
	r.templates = append(r.templates, t)
}

// Resolve finds the template matching the specifier. With a partial
// specifier the highest matching version wins.
func (r *TemplateRegistry) Resolve(spec string) (*Template, error) {
	s := parseSpecifier(spec)

	var best *Template
	for _, t := range r.templates {
		if !s.matches(t) {
			continue
		}

		if best == nil || t.Version > best.Version {
			best = t
		}
	}

	if best == nil {
		return nil, fmt.Errorf("unknown agent type %q", spec)
	}

	return best, nil
}

// LoadTemplates decodes a YAML template list.
func LoadTemplates(r io.Reader) ([]*Template, error) {
	var templates []*Template
	if err := yaml.NewDecoder(r).Decode(&templates); err != nil {
		return nil, fmt.Errorf("decode templates: %w", err)
	}

	for _, t := range templates {
		if t.ID == "" {
			return nil, fmt.Errorf("template missing id")
		}

		if t.StepBudget <= 0 {
			t.StepBudget = DefaultStepBudget
		}
	}

	return templates, nil
}

// DefaultStepBudget is applied to templates that declare none.
const DefaultStepBudget = 25
