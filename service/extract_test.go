package service

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/Lingikaushikreddy/Thrill-AI-Contract-Invoice-Intelligence-System/model"
)

const sampleInvoice = `INVOICE
Invoice Number: INV-2024-001
Vendor: Acme Industrial Supplies
Invoice Date: 2024-03-01
Due Date: 2024-03-16
Payment Terms: Net 15
Total Amount Due: $12,400.00
`

func TestExtractInvoiceFields(t *testing.T) {
	extractor := NewFieldExtractor()

	result, err := extractor.Extract(context.Background(), RawArtifact{
		Filename: "invoice.txt",
		Data:     []byte(sampleInvoice),
	})
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if result.Format != "text" {
		t.Errorf("Expected format text, got %s", result.Format)
	}
	if result.Pages != 1 {
		t.Errorf("Expected 1 page, got %d", result.Pages)
	}

	terms := result.FieldByName("payment_terms")
	if terms == nil {
		t.Fatal("Expected payment_terms field")
	}
	if terms.Value != "Net 15" {
		t.Errorf("Expected payment terms 'Net 15', got %q", terms.Value)
	}
	if terms.Kind != model.FieldTerm {
		t.Errorf("Expected term kind, got %s", terms.Kind)
	}
	if terms.Span.Page != 1 || terms.Span.Start >= terms.Span.End {
		t.Errorf("Expected a valid span, got %+v", terms.Span)
	}

	total := result.FieldByName("total_amount")
	if total == nil {
		t.Fatal("Expected total_amount field")
	}
	if total.Amount == nil || *total.Amount != 12400.00 {
		t.Errorf("Expected parsed amount 12400.00, got %v", total.Amount)
	}

	vendor := result.FieldByName("vendor_name")
	if vendor == nil || vendor.Value != "Acme Industrial Supplies" {
		t.Errorf("Expected vendor field, got %+v", vendor)
	}

	number := result.FieldByName("invoice_number")
	if number == nil || number.Value != "INV-2024-001" {
		t.Errorf("Expected invoice number, got %+v", number)
	}
	if number != nil && number.Kind != model.FieldOther {
		t.Errorf("Expected invoice number tagged as open-extension kind, got %s", number.Kind)
	}
}

func TestExtractSpanPointsAtValue(t *testing.T) {
	extractor := NewFieldExtractor()

	result, err := extractor.Extract(context.Background(), RawArtifact{
		Filename: "invoice.txt",
		Data:     []byte(sampleInvoice),
	})
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	terms := result.FieldByName("payment_terms")
	if terms == nil {
		t.Fatal("Expected payment_terms field")
	}
	if got := result.Text[terms.Span.Start:terms.Span.End]; got != "Net 15" {
		t.Errorf("Expected span to cover 'Net 15', got %q", got)
	}
}

func TestExtractDeterministic(t *testing.T) {
	extractor := NewFieldExtractor()
	artifact := RawArtifact{Filename: "invoice.txt", Data: []byte(sampleInvoice)}

	first, err := extractor.Extract(context.Background(), artifact)
	if err != nil {
		t.Fatalf("First extract failed: %v", err)
	}
	second, err := extractor.Extract(context.Background(), artifact)
	if err != nil {
		t.Fatalf("Second extract failed: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Error("Expected identical bytes to produce identical extraction results")
	}
}

func TestExtractUnsupportedFormat(t *testing.T) {
	extractor := NewFieldExtractor()

	_, err := extractor.Extract(context.Background(), RawArtifact{
		Filename: "image.png",
		Data:     []byte{0x89, 0x50, 0x4e, 0x47},
	})
	var extractionErr *ExtractionError
	if !errors.As(err, &extractionErr) {
		t.Fatalf("Expected ExtractionError for unsupported format, got %v", err)
	}
}

func TestExtractBinaryTextRejected(t *testing.T) {
	extractor := NewFieldExtractor()

	_, err := extractor.Extract(context.Background(), RawArtifact{
		Filename: "notes.txt",
		Data:     []byte{0xff, 0xfe, 0x00, 0x01},
	})
	var extractionErr *ExtractionError
	if !errors.As(err, &extractionErr) {
		t.Fatalf("Expected ExtractionError for binary content, got %v", err)
	}
}

func TestExtractCorruptPDF(t *testing.T) {
	extractor := NewFieldExtractor()

	_, err := extractor.Extract(context.Background(), RawArtifact{
		Filename: "broken.pdf",
		Data:     []byte("this is not a pdf"),
	})
	var extractionErr *ExtractionError
	if !errors.As(err, &extractionErr) {
		t.Fatalf("Expected ExtractionError for corrupt PDF, got %v", err)
	}
}

func TestExtractNoFields(t *testing.T) {
	extractor := NewFieldExtractor()

	result, err := extractor.Extract(context.Background(), RawArtifact{
		Filename: "plain.txt",
		Data:     []byte("nothing interesting in here"),
	})
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(result.Fields) != 0 {
		t.Errorf("Expected no fields, got %d", len(result.Fields))
	}
}
