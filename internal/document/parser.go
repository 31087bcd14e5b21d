// Package document turns raw statement files into text plus structural
// stats for the extraction pipeline.
package document

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/nakuljhunjhunwala/creditcard-suggestor/internal/common"
	"github.com/nakuljhunjhunwala/creditcard-suggestor/internal/service"
)

const linesPerPage = 60

var (
	numericRegex  = regexp.MustCompile(`\d+(?:[.,]\d+)?`)
	currencyRegex = regexp.MustCompile(`(?:[$€£₹]|USD|EUR|INR|Rs\.?)\s*\d`)
	dateRegex     = regexp.MustCompile(`\b(?:\d{1,2}[/-]\d{1,2}[/-]\d{2,4}|\d{4}-\d{2}-\d{2}|(?i:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?\s+\d{1,2})\b`)
)

// TextParser parses plain-text statement exports.
type TextParser struct{}

// NewTextParser creates a plain-text statement parser.
func NewTextParser() *TextParser {
	return &TextParser{}
}

// Parse reads the document and computes structural stats.
func (p *TextParser) Parse(_ context.Context, r io.Reader) (*service.ParsedDocument, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrUnreadableDocument, err)
	}
	text := string(raw)
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty document", common.ErrUnreadableDocument)
	}

	return &service.ParsedDocument{
		Text:      text,
		PageCount: pageCount(text),
		Stats:     ComputeStats(text),
	}, nil
}

// pageCount estimates pages from form feeds, falling back to line count.
func pageCount(text string) int {
	if feeds := strings.Count(text, "\f"); feeds > 0 {
		return feeds + 1
	}
	lines := strings.Count(text, "\n") + 1
	pages := (lines + linesPerPage - 1) / linesPerPage
	if pages < 1 {
		pages = 1
	}
	return pages
}

// ComputeStats derives rough content-shape heuristics from statement text.
func ComputeStats(text string) service.StructuralStats {
	lines := strings.Split(text, "\n")
	stats := service.StructuralStats{
		LineCount:     len(lines),
		NumericCount:  len(numericRegex.FindAllString(text, -1)),
		DateCount:     len(dateRegex.FindAllString(text, -1)),
		CurrencyCount: len(currencyRegex.FindAllString(text, -1)),
	}

	tabular := 0
	for _, line := range lines {
		// A statement row tends to carry a date plus at least one number
		if dateRegex.MatchString(line) && len(numericRegex.FindAllString(line, -1)) >= 2 {
			tabular++
		}
	}
	if len(lines) > 0 {
		stats.TableDensity = float64(tabular) / float64(len(lines))
	}
	return stats
}

// ParserForFile selects a parser from the file name. OFX/QFX downloads
// get the structured parser; everything else is treated as text.
func ParserForFile(name string) service.DocumentParser {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".ofx", ".qfx":
		return NewOFXParser()
	default:
		return NewTextParser()
	}
}

// Normalize cleans text for the classification call: control characters
// stripped, whitespace runs collapsed, blank lines dropped.
func Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	for _, line := range strings.Split(text, "\n") {
		cleaned := strings.Map(func(r rune) rune {
			if r < 0x20 && r != '\t' {
				return -1
			}
			return r
		}, line)
		cleaned = strings.Join(strings.Fields(cleaned), " ")
		if cleaned == "" {
			continue
		}
		b.WriteString(cleaned)
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}
