package service

import (
	"fmt"
	"strings"

	"github.com/Lingikaushikreddy/Thrill-AI-Contract-Invoice-Intelligence-System/model"
)

// RiskEngine compares extracted content against baseline templates and
// emits finding drafts. Evaluation is a pure function of its inputs:
// rules run in template order, matching is normalized string and numeric
// comparison, no randomness anywhere. Identical extraction + baselines
// always produce the identical finding set.
type RiskEngine struct {
	baselines *BaselineSet
}

func NewRiskEngine(baselines *BaselineSet) *RiskEngine {
	return &RiskEngine{baselines: baselines}
}

// Analyze evaluates every applicable template against the extraction
// result. The returned drafts are a logical set; ordering is left to the
// presentation layer.
func (e *RiskEngine) Analyze(result *model.ExtractionResult, docType model.DocumentType) ([]model.FindingDraft, error) {
	if result == nil {
		return nil, &AnalysisError{Reason: "nil extraction result"}
	}
	if result.Pages == 0 && result.Text == "" {
		return nil, &AnalysisError{Reason: "empty extraction result"}
	}

	var drafts []model.FindingDraft
	for _, tpl := range e.baselines.TemplatesFor(docType) {
		drafts = append(drafts, evalClauses(result, tpl)...)
		drafts = append(drafts, evalLimits(result, tpl)...)
		drafts = append(drafts, evalProhibited(result, tpl)...)
	}
	return drafts, nil
}

func evalClauses(result *model.ExtractionResult, tpl BaselineTemplate) []model.FindingDraft {
	var drafts []model.FindingDraft
	for _, rule := range tpl.Clauses {
		field := result.FieldByName(rule.Field)

		if field == nil {
			if rule.Required {
				drafts = append(drafts, model.FindingDraft{
					Type:        model.FindingMissingClause,
					Severity:    rule.Severity,
					Description: fmt.Sprintf("Required clause %q is missing (baseline %s).", rule.Field, tpl.Name),
					Evidence:    model.Evidence{Field: rule.Field},
				})
			}
			continue
		}

		if rule.Expect != "" && normalize(field.Value) != normalize(rule.Expect) {
			drafts = append(drafts, model.FindingDraft{
				Type:     model.FindingTermMismatch,
				Severity: rule.Severity,
				Description: fmt.Sprintf("Extracted %s %q deviates from baseline %s value %q.",
					rule.Field, field.Value, tpl.Name, rule.Expect),
				Evidence: model.Evidence{Field: rule.Field, Excerpt: field.Value, Span: field.Span},
			})
		}
	}
	return drafts
}

func evalLimits(result *model.ExtractionResult, tpl BaselineTemplate) []model.FindingDraft {
	var drafts []model.FindingDraft
	for _, rule := range tpl.Limits {
		field := result.FieldByName(rule.Field)
		if field == nil || field.Amount == nil {
			continue
		}
		if *field.Amount > rule.Max {
			drafts = append(drafts, model.FindingDraft{
				Type:     model.FindingValueOutOfRange,
				Severity: rule.Severity,
				Description: fmt.Sprintf("Extracted %s %.2f exceeds baseline %s limit %.2f.",
					rule.Field, *field.Amount, tpl.Name, rule.Max),
				Evidence: model.Evidence{Field: rule.Field, Excerpt: field.Value, Span: field.Span},
			})
		}
	}
	return drafts
}

func evalProhibited(result *model.ExtractionResult, tpl BaselineTemplate) []model.FindingDraft {
	var drafts []model.FindingDraft
	lower := strings.ToLower(result.Text)
	for _, rule := range tpl.Prohibited {
		idx := strings.Index(lower, strings.ToLower(rule.Pattern))
		if idx < 0 {
			continue
		}
		drafts = append(drafts, model.FindingDraft{
			Type:     model.FindingProhibitedTerm,
			Severity: rule.Severity,
			Description: fmt.Sprintf("Document contains prohibited term %q (baseline %s).",
				rule.Pattern, tpl.Name),
			Evidence: model.Evidence{
				Excerpt: result.Text[idx : idx+len(rule.Pattern)],
				Span:    model.Span{Page: 1, Start: idx, End: idx + len(rule.Pattern)},
			},
		})
	}
	return drafts
}

// normalize lowers and collapses whitespace so "Net 30" and "net  30"
// compare equal.
func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
