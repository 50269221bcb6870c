// Package extract reads invoice fields out of an uploaded document.
package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"pivik/internal/core"
)

var (
	// ErrEmptyDocument means no text could be read from the document.
	ErrEmptyDocument = errors.New("document has no readable text")
	// ErrModel means the extraction backend did not return an answer.
	ErrModel = errors.New("extraction model failed")
	// ErrParse means the backend answered with something that is not the
	// expected JSON object.
	ErrParse = errors.New("unparseable extraction response")
)

// Fields are the values recovered from a document. Zero values mean the
// field was not found.
type Fields struct {
	Vendor        string
	InvoiceNumber string
	Date          core.Date
	Amount        *core.Money
	Category      string
}

type Extractor interface {
	Extract(ctx context.Context, filename string, content []byte) (Fields, error)
}

// DocumentText returns the plain text of a PDF or a UTF-8 text file.
func DocumentText(filename string, content []byte) (string, error) {
	if len(content) == 0 {
		return "", ErrEmptyDocument
	}
	var text string
	if strings.EqualFold(filepath.Ext(filename), ".pdf") || bytes.HasPrefix(content, []byte("%PDF")) {
		t, err := pdfText(content)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrEmptyDocument, err)
		}
		text = t
	} else if utf8.Valid(content) {
		text = string(content)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyDocument
	}
	return text, nil
}

func pdfText(content []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	return buf.String(), nil
}

type rawFields struct {
	Vendor        string          `json:"vendor"`
	InvoiceNumber string          `json:"invoiceNumber"`
	Amount        json.RawMessage `json:"amount"`
	Date          string          `json:"date"`
	Category      string          `json:"category"`
}

// ParseResponse decodes the model answer. Markdown code fences are stripped
// first. A missing date is left zero; a date that is present but not
// YYYY-MM-DD fails with ErrParse. A malformed amount is dropped.
func ParseResponse(content string) (Fields, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var raw rawFields
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return Fields{}, fmt.Errorf("%w: %v", ErrParse, err)
	}

	f := Fields{
		Vendor:        strings.TrimSpace(raw.Vendor),
		InvoiceNumber: strings.TrimSpace(raw.InvoiceNumber),
		Category:      strings.TrimSpace(raw.Category),
	}
	if date := strings.TrimSpace(raw.Date); date != "" {
		d, err := core.ParseDate(date)
		if err != nil {
			return Fields{}, fmt.Errorf("%w: date %q", ErrParse, date)
		}
		f.Date = d
	}
	if amt := strings.Trim(strings.TrimSpace(string(raw.Amount)), `"$`); amt != "" && amt != "null" {
		if m, err := core.ParseAmount(amt); err == nil {
			f.Amount = &m
		}
	}
	return f, nil
}

// Unavailable is the extractor used when no model is configured. Documents
// with text fail the same way a model outage would.
type Unavailable struct{}

func (Unavailable) Extract(_ context.Context, filename string, content []byte) (Fields, error) {
	if _, err := DocumentText(filename, content); err != nil {
		return Fields{}, err
	}
	return Fields{}, fmt.Errorf("%w: no extraction backend configured", ErrModel)
}
