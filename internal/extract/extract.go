// Package extract recovers a JSON document from free-form model output.
//
// Location runs as a cascade: a ```json fence, then a plain ``` fence, then the
// outermost brace span. The located candidate is parsed strictly first and then
// with progressively more aggressive textual repairs.
package extract

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	taggedFence = "```json"
	plainFence  = "```"
)

// Strategy is one way of turning a candidate into a decoded value.
type Strategy struct {
	Name  string
	Parse func(string) (any, error)
}

// Strategies are tried in order; the first to succeed wins.
var Strategies = []Strategy{
	{Name: "strict", Parse: parseStrict},
	{Name: "single_quotes", Parse: func(s string) (any, error) {
		return parseStrict(NormalizeQuotes(s))
	}},
	{Name: "bare_keys", Parse: func(s string) (any, error) {
		return parseStrict(QuoteBareKeys(NormalizeQuotes(s)))
	}},
}

// Result carries the decoded value and how it was obtained.
type Result struct {
	Value     any
	Candidate string
	Strategy  string
}

// Extract locates and parses the JSON document in raw. Numbers decode as
// json.Number, objects as map[string]any and arrays as []any.
func Extract(raw string) (any, error) {
	res, err := ExtractResult(raw)
	if err != nil {
		return nil, err
	}
	return res.Value, nil
}

// ExtractResult is Extract with the located candidate and winning strategy attached.
func ExtractResult(raw string) (Result, error) {
	candidate, ok := Locate(raw)
	if !ok {
		return Result{}, ErrNoJSON
	}

	perr := &ParseError{Candidate: candidate}
	for _, st := range Strategies {
		v, err := st.Parse(candidate)
		if err == nil {
			return Result{Value: v, Candidate: candidate, Strategy: st.Name}, nil
		}
		perr.Attempts = append(perr.Attempts, AttemptError{Strategy: st.Name, Err: err})
	}
	return Result{}, perr
}

// Locate returns the trimmed JSON candidate in raw, or false when none exists.
func Locate(raw string) (string, bool) {
	if span := fencedSpan(raw); span != "" {
		return span, true
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end < start {
		return "", false
	}
	span := strings.TrimSpace(raw[start : end+1])
	return span, span != ""
}

// fencedSpan returns the trimmed body of the first fenced block. A missing
// closing fence extends the span to the last closing brace.
func fencedSpan(raw string) string {
	start := -1
	if i := strings.Index(raw, taggedFence); i != -1 {
		start = i + len(taggedFence)
	} else if i := strings.Index(raw, plainFence); i != -1 {
		start = i + len(plainFence)
	}
	if start == -1 {
		return ""
	}

	end := -1
	if j := strings.Index(raw[start:], plainFence); j != -1 {
		end = start + j
	} else if j := strings.LastIndex(raw, "}"); j > start {
		end = j + 1
	}
	if end <= start {
		return ""
	}
	return strings.TrimSpace(raw[start:end])
}

func parseStrict(s string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		if err == nil {
			return nil, fmt.Errorf("invalid character after top-level value at offset %d", dec.InputOffset())
		}
		return nil, err
	}
	return v, nil
}

// Compact renders a decoded value back to compact JSON. It is used for logging.
func Compact(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Sprint(v)
	}
	return strings.TrimRight(buf.String(), "\n")
}
