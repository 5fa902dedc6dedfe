// Package jsonutil provides utilities for extracting and parsing JSON from
// LLM responses that may be wrapped in markdown code fences or embedded in
// prose. Consumers that must never fail hard use Decode, which returns a
// tagged outcome instead of collapsing "malformed" and "absent" into one
// error, so each consumer can run its own salvage pass before falling back.
package jsonutil

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Outcome tags the result of decoding an LLM response.
type Outcome int

const (
	// Parsed means the response contained valid JSON and decoded cleanly.
	Parsed Outcome = iota

	// Malformed means JSON-looking content was present but did not decode;
	// the raw text is still available for a best-effort salvage pass.
	Malformed

	// Failure means no JSON content could be located at all.
	Failure
)

// String returns the outcome name for logging.
func (o Outcome) String() string {
	switch o {
	case Parsed:
		return "parsed"
	case Malformed:
		return "malformed"
	default:
		return "failure"
	}
}

// StripMarkdownFences removes ```json ... ``` or ``` ... ``` wrapping from
// text. Returns the content between the fences, or the original text if no
// fences are found.
func StripMarkdownFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	lines := strings.Split(text, "\n")
	if len(lines) < 3 {
		return text
	}

	endIdx := len(lines) - 1
	for i := len(lines) - 1; i >= 1; i-- {
		if strings.TrimSpace(lines[i]) == "```" {
			endIdx = i
			break
		}
	}

	return strings.Join(lines[1:endIdx], "\n")
}

// ExtractJSON finds and returns the JSON content (object or array) from text
// that may contain surrounding non-JSON content. It finds the first { or [
// and matches it with the last corresponding } or ].
func ExtractJSON(text string) (string, error) {
	text = strings.TrimSpace(text)

	objIdx := strings.Index(text, "{")
	arrIdx := strings.Index(text, "[")

	if objIdx == -1 && arrIdx == -1 {
		return "", fmt.Errorf("no JSON content found")
	}

	var startIdx int
	var endChar string

	if arrIdx == -1 || (objIdx != -1 && objIdx <= arrIdx) {
		startIdx = objIdx
		endChar = "}"
	} else {
		startIdx = arrIdx
		endChar = "]"
	}

	text = text[startIdx:]
	endIdx := strings.LastIndex(text, endChar)
	if endIdx == -1 {
		return "", fmt.Errorf("no closing %s found", endChar)
	}

	return text[:endIdx+1], nil
}

// ParseJSON strips markdown fences from raw LLM response text, extracts JSON
// content (object or array), and unmarshals it into the provided type T.
func ParseJSON[T any](raw string) (T, error) {
	var result T
	text := StripMarkdownFences(raw)
	jsonStr, err := ExtractJSON(text)
	if err != nil {
		return result, fmt.Errorf("%w (raw length: %d)", err, len(raw))
	}

	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		preview := jsonStr
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		return result, fmt.Errorf("invalid JSON: %w (text: %s)", err, preview)
	}
	return result, nil
}

// Decode parses raw into T and tags the result. Parsed means v is populated.
// Malformed means JSON-shaped content was found but did not decode; Failure
// means nothing JSON-shaped was present. The error carries detail for logs.
func Decode[T any](raw string) (v T, outcome Outcome, err error) {
	text := StripMarkdownFences(raw)
	jsonStr, exErr := ExtractJSON(text)
	if exErr != nil {
		return v, Failure, exErr
	}

	if umErr := json.Unmarshal([]byte(jsonStr), &v); umErr != nil {
		return v, Malformed, umErr
	}
	return v, Parsed, nil
}

// stringFieldPattern matches "key" : "value" with escaped quotes tolerated
// in the value. Built per key in ScrapeStringField.
func stringFieldPattern(key string) *regexp.Regexp {
	return regexp.MustCompile(`"` + regexp.QuoteMeta(key) + `"\s*:\s*"((?:[^"\\]|\\.)*)"`)
}

// ScrapeStringField pulls a single string field out of malformed JSON text
// by key. Returns the unescaped value and whether it was found. This is the
// best-effort pass between a failed decode and a full fallback.
func ScrapeStringField(raw, key string) (string, bool) {
	m := stringFieldPattern(key).FindStringSubmatch(raw)
	if m == nil {
		return "", false
	}
	var s string
	// Route through the JSON decoder to handle escapes.
	if err := json.Unmarshal([]byte(`"`+m[1]+`"`), &s); err != nil {
		return m[1], true
	}
	return s, true
}

// listPattern matches "key" : [ ... ] non-greedily within one level.
func listPattern(key string) *regexp.Regexp {
	return regexp.MustCompile(`"` + regexp.QuoteMeta(key) + `"\s*:\s*\[([^\]]*)\]`)
}

// quotedItem matches one quoted string inside a scraped array body.
var quotedItem = regexp.MustCompile(`"((?:[^"\\]|\\.)*)"`)

// ScrapeStringList pulls a flat string array out of malformed JSON text by
// key. Returns nil when the key or a parsable array body is absent.
func ScrapeStringList(raw, key string) []string {
	m := listPattern(key).FindStringSubmatch(raw)
	if m == nil {
		return nil
	}

	var items []string
	for _, im := range quotedItem.FindAllStringSubmatch(m[1], -1) {
		var s string
		if err := json.Unmarshal([]byte(`"`+im[1]+`"`), &s); err != nil {
			s = im[1]
		}
		items = append(items, s)
	}
	return items
}
