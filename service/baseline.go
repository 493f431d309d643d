package service

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Lingikaushikreddy/Thrill-AI-Contract-Invoice-Intelligence-System/model"
)

// BaselineSet is the reference rule set extracted content is compared
// against. Loaded once at startup; the risk engine treats it as
// read-only.
type BaselineSet struct {
	Templates []BaselineTemplate `yaml:"templates"`
}

// BaselineTemplate groups the rules for one class of document.
type BaselineTemplate struct {
	Name       string           `yaml:"name"`
	AppliesTo  string           `yaml:"applies_to"` // invoice, contract, empty = all
	Clauses    []ClauseRule     `yaml:"clauses"`
	Limits     []LimitRule      `yaml:"limits"`
	Prohibited []ProhibitedRule `yaml:"prohibited"`
}

// ClauseRule checks a named extracted field. With Expect set, the field
// value must match it (normalized); with Required set, the field must be
// present at all.
type ClauseRule struct {
	Field    string         `yaml:"field"`
	Expect   string         `yaml:"expect"`
	Required bool           `yaml:"required"`
	Severity model.Severity `yaml:"severity"`
}

// LimitRule caps a numeric field.
type LimitRule struct {
	Field    string         `yaml:"field"`
	Max      float64        `yaml:"max"`
	Severity model.Severity `yaml:"severity"`
}

// ProhibitedRule flags a substring anywhere in the extracted text.
type ProhibitedRule struct {
	Pattern  string         `yaml:"pattern"`
	Severity model.Severity `yaml:"severity"`
}

// LoadBaselines reads the baseline template file and validates it.
func LoadBaselines(path string) (*BaselineSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read baseline file: %w", err)
	}

	var set BaselineSet
	if err := yaml.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("failed to parse baseline file: %w", err)
	}
	if err := set.validate(); err != nil {
		return nil, err
	}
	return &set, nil
}

func (s *BaselineSet) validate() error {
	if len(s.Templates) == 0 {
		return fmt.Errorf("baseline file defines no templates")
	}
	for _, tpl := range s.Templates {
		if tpl.Name == "" {
			return fmt.Errorf("baseline template without a name")
		}
		for _, c := range tpl.Clauses {
			if c.Field == "" {
				return fmt.Errorf("template %s: clause rule without a field", tpl.Name)
			}
			if c.Severity.Rank() < 0 {
				return fmt.Errorf("template %s: clause rule on %s has unknown severity %q", tpl.Name, c.Field, c.Severity)
			}
		}
		for _, l := range tpl.Limits {
			if l.Field == "" {
				return fmt.Errorf("template %s: limit rule without a field", tpl.Name)
			}
			if l.Severity.Rank() < 0 {
				return fmt.Errorf("template %s: limit rule on %s has unknown severity %q", tpl.Name, l.Field, l.Severity)
			}
		}
		for _, p := range tpl.Prohibited {
			if p.Pattern == "" {
				return fmt.Errorf("template %s: prohibited rule without a pattern", tpl.Name)
			}
			if p.Severity.Rank() < 0 {
				return fmt.Errorf("template %s: prohibited rule %q has unknown severity", tpl.Name, p.Pattern)
			}
		}
	}
	return nil
}

// TemplatesFor returns the templates applicable to a document type.
func (s *BaselineSet) TemplatesFor(docType model.DocumentType) []BaselineTemplate {
	var result []BaselineTemplate
	for _, tpl := range s.Templates {
		if tpl.AppliesTo == "" || tpl.AppliesTo == string(docType) {
			result = append(result, tpl)
		}
	}
	return result
}
