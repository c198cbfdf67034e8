// Package jsonrepair turns free-form collaborator output into a single
// JSON object. Collaborators are supposed to answer with bare JSON but
// routinely wrap it in prose or markdown fences, or emit JSON with small
// syntax defects; this package applies a bounded, ordered list of
// recovery passes and reports which one succeeded.
package jsonrepair

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Pass names, in the order they are attempted. The quote_swap pass is
// lossy when values legitimately contain single quotes, which is why the
// winning pass is surfaced to the caller.
const (
	PassVerbatim      = "verbatim"
	PassUnfenced      = "unfenced"
	PassBraceScan     = "brace_scan"
	PassTrailingComma = "trailing_comma"
	PassMissingComma  = "missing_comma"
	PassQuoteSwap     = "quote_swap"
)

const snippetLimit = 500

// ParseError reports that no pass produced a JSON object. Step names the
// pipeline step whose output failed; Snippet is a bounded excerpt of the
// offending text, never the full payload.
type ParseError struct {
	Step    string
	Snippet string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s output is not a JSON object: %q", e.Step, e.Snippet)
}

var (
	fenceRe         = regexp.MustCompile("```(?:json)?\\s*")
	trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)
	missingCommaRe  = regexp.MustCompile(`"[ \t]*\n[ \t]*"`)
)

// Normalize extracts exactly one JSON object from text. step labels the
// pipeline step that produced the text and is carried into any
// ParseError. The returned pass name records how the object was
// recovered.
func Normalize(step, text string) (map[string]any, string, error) {
	trimmed := strings.TrimSpace(text)

	if obj, ok := parseObject(trimmed); ok {
		return obj, PassVerbatim, nil
	}

	unfenced := strings.TrimSpace(fenceRe.ReplaceAllString(trimmed, ""))
	if obj, ok := parseObject(unfenced); ok {
		return obj, PassUnfenced, nil
	}

	candidate, ok := braceSpan(unfenced)
	if !ok {
		return nil, "", &ParseError{Step: step, Snippet: snippet(trimmed)}
	}
	if obj, ok := parseObject(candidate); ok {
		return obj, PassBraceScan, nil
	}

	// Syntax repairs are cumulative: each pass builds on the previous
	// candidate and parsing is retried after every one.
	repairs := []struct {
		name string
		fn   func(string) string
	}{
		{PassTrailingComma, stripTrailingCommas},
		{PassMissingComma, insertMissingCommas},
		{PassQuoteSwap, swapQuotes},
	}
	for _, rep := range repairs {
		candidate = rep.fn(candidate)
		if obj, ok := parseObject(candidate); ok {
			return obj, rep.name, nil
		}
	}

	return nil, "", &ParseError{Step: step, Snippet: snippet(trimmed)}
}

// parseObject accepts only a JSON object; arrays and scalars parse but
// are rejected.
func parseObject(s string) (map[string]any, bool) {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, false
	}
	obj, ok := v.(map[string]any)
	return obj, ok
}

// braceSpan returns the greedy substring from the first '{' to the last
// '}', spanning lines.
func braceSpan(s string) (string, bool) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}

func stripTrailingCommas(s string) string {
	return trailingCommaRe.ReplaceAllString(s, "$1")
}

// insertMissingCommas joins two adjacent quoted string tokens separated
// only by a line break, a frequent model mistake in multi-line objects.
func insertMissingCommas(s string) string {
	return missingCommaRe.ReplaceAllString(s, "\",\n\"")
}

func swapQuotes(s string) string {
	return strings.ReplaceAll(s, "'", `"`)
}

func snippet(s string) string {
	if len(s) > snippetLimit {
		return s[:snippetLimit]
	}
	return s
}
