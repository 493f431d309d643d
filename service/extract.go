package service

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"github.com/Lingikaushikreddy/Thrill-AI-Contract-Invoice-Intelligence-System/model"
)

// RawArtifact carries an uploaded document's bytes into the extraction
// engine.
type RawArtifact struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Extractor turns a raw artifact into a structured extraction result.
// Implementations must be deterministic: identical bytes yield an
// identical result.
type Extractor interface {
	Extract(ctx context.Context, artifact RawArtifact) (*model.ExtractionResult, error)
}

// FieldExtractor extracts text (PDF or plain text) and then pulls typed
// fields out of it with a fixed rule set, so repeated runs over the same
// artifact are reproducible.
type FieldExtractor struct{}

func NewFieldExtractor() *FieldExtractor {
	return &FieldExtractor{}
}

// Field patterns are evaluated per page in a fixed order; the first
// match per field name wins.
var fieldPatterns = []struct {
	name    string
	kind    model.FieldKind
	pattern *regexp.Regexp
}{
	{"payment_terms", model.FieldTerm, regexp.MustCompile(`(?i)payment\s+terms?\s*[:\-]?\s*(net\s*\d+)`)},
	{"payment_terms", model.FieldTerm, regexp.MustCompile(`(?i)\b(net\s*\d+)\b`)},
	{"total_amount", model.FieldAmount, regexp.MustCompile(`(?i)total(?:\s+amount)?(?:\s+due)?\s*[:\-]?\s*\$?\s*([0-9][0-9,]*(?:\.[0-9]+)?)`)},
	{"vendor_name", model.FieldParty, regexp.MustCompile(`(?i)vendor\s*[:\-]\s*([^\r\n]+)`)},
	{"party_a", model.FieldParty, regexp.MustCompile(`(?i)party\s*a\s*[:\-]\s*([^\r\n]+)`)},
	{"party_b", model.FieldParty, regexp.MustCompile(`(?i)party\s*b\s*[:\-]\s*([^\r\n]+)`)},
	{"document_date", model.FieldDate, regexp.MustCompile(`(?i)(?:invoice\s+|effective\s+)?date\s*[:\-]\s*([0-9]{4}-[0-9]{2}-[0-9]{2})`)},
	{"due_date", model.FieldDate, regexp.MustCompile(`(?i)due\s+date\s*[:\-]\s*([0-9]{4}-[0-9]{2}-[0-9]{2})`)},
	{"governing_law", model.FieldClause, regexp.MustCompile(`(?i)(governing\s+law[^\r\n]*)`)},
	{"liability_cap", model.FieldClause, regexp.MustCompile(`(?i)((?:limitation\s+of\s+liability|liability\s+cap)[^\r\n]*)`)},
	{"invoice_number", model.FieldOther, regexp.MustCompile(`(?i)invoice\s*(?:no\.?|number|#)\s*[:\-]?\s*([A-Za-z0-9\-]+)`)},
}

// Extract implements Extractor. Failures come back as *ExtractionError;
// the result is never partially written.
func (e *FieldExtractor) Extract(ctx context.Context, artifact RawArtifact) (*model.ExtractionResult, error) {
	pages, format, err := extractText(artifact)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, &ExtractionError{Reason: "extraction cancelled", Err: err}
	}

	result := &model.ExtractionResult{
		Format: format,
		Pages:  len(pages),
		Text:   strings.Join(pages, "\n"),
	}

	seen := make(map[string]bool)
	for pageNo, text := range pages {
		for _, fp := range fieldPatterns {
			if seen[fp.name] {
				continue
			}
			loc := fp.pattern.FindStringSubmatchIndex(text)
			if loc == nil {
				continue
			}
			value := strings.TrimSpace(text[loc[2]:loc[3]])
			field := model.Field{
				Name:  fp.name,
				Kind:  fp.kind,
				Value: value,
				Span:  model.Span{Page: pageNo + 1, Start: loc[2], End: loc[3]},
			}
			if fp.kind == model.FieldAmount {
				if amount, err := parseAmount(value); err == nil {
					field.Amount = &amount
				}
			}
			result.Fields = append(result.Fields, field)
			seen[fp.name] = true
		}
	}

	return result, nil
}

// extractText returns the per-page plain text of the artifact.
func extractText(artifact RawArtifact) ([]string, string, error) {
	ext := strings.ToLower(filepath.Ext(artifact.Filename))
	switch ext {
	case ".pdf":
		pages, err := extractPDFText(artifact.Data)
		if err != nil {
			return nil, "", err
		}
		return pages, "pdf", nil
	case ".txt", ".md", "":
		if !utf8.Valid(artifact.Data) {
			return nil, "", &ExtractionError{Reason: fmt.Sprintf("binary content in %s", artifact.Filename)}
		}
		text := strings.TrimSpace(string(artifact.Data))
		return []string{text}, "text", nil
	default:
		return nil, "", &ExtractionError{Reason: fmt.Sprintf("unsupported format %s", ext)}
	}
}

func extractPDFText(data []byte) ([]string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &ExtractionError{Reason: "corrupt PDF", Err: err}
	}

	total := reader.NumPage()
	pages := make([]string, 0, total)
	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, &ExtractionError{Reason: fmt.Sprintf("failed to read page %d", i), Err: err}
		}
		pages = append(pages, text)
	}
	return pages, nil
}

func parseAmount(value string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(value, ",", ""), 64)
}
