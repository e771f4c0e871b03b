package service

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

const (
	minScore       = 1
	maxScore       = 100
	maxSuggestions = 10
)

var fencedJSON = regexp.MustCompile("(?is)```json\\s*(.*?)```")

// Extraction is the outcome of reading a model reply: either Parsed or
// Unparseable.
type Extraction interface {
	isExtraction()
}

// ReplyFields are the normalized fields of a model reply.
type ReplyFields struct {
	Original             string
	AlgorithmScore       int
	EngagementPrediction int
	OptimizedVersion     string
	Suggestions          []string
}

// Parsed is a reply that yielded every required field.
type Parsed struct {
	Fields ReplyFields
}

// Unparseable is a reply that could not be read. Raw is the reply as received.
type Unparseable struct {
	Raw    string
	Reason string
}

func (Parsed) isExtraction()      {}
func (Unparseable) isExtraction() {}

// ExtractReply locates a JSON object in free-form model output and
// validates it. Candidates are tried in order: a fenced block tagged json,
// balanced top-level objects found in the text, then the whole reply. The
// first candidate that decodes as a JSON object is the one validated.
func ExtractReply(raw string) Extraction {
	if strings.TrimSpace(raw) == "" {
		return Unparseable{Raw: raw, Reason: "empty reply"}
	}

	obj, ok := locateObject(raw)
	if !ok {
		return Unparseable{Raw: raw, Reason: "no JSON object found"}
	}

	fields, err := readFields(obj)
	if err != nil {
		return Unparseable{Raw: raw, Reason: err.Error()}
	}
	return Parsed{Fields: fields}
}

func locateObject(raw string) (map[string]json.RawMessage, bool) {
	for _, candidate := range candidates(raw) {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal([]byte(candidate), &obj); err == nil && obj != nil {
			return obj, true
		}
	}
	return nil, false
}

func candidates(raw string) []string {
	var out []string
	if m := fencedJSON.FindStringSubmatch(raw); m != nil {
		out = append(out, strings.TrimSpace(m[1]))
	}
	out = append(out, balancedObjects(raw)...)
	return append(out, strings.TrimSpace(raw))
}

// balancedObjects returns every top-level {...} span of s in order. Braces
// inside JSON strings are ignored. An opening brace that is never closed is
// skipped and scanning resumes at the next one.
func balancedObjects(s string) []string {
	var out []string
	for i := 0; i < len(s); i++ {
		if s[i] != '{' {
			continue
		}
		end := matchBrace(s, i)
		if end < 0 {
			continue
		}
		out = append(out, s[i:end+1])
		i = end
	}
	return out
}

func matchBrace(s string, start int) int {
	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func readFields(obj map[string]json.RawMessage) (ReplyFields, error) {
	var f ReplyFields
	var err error

	if f.Original, err = readString(obj, "original"); err != nil {
		return f, err
	}
	if f.AlgorithmScore, err = readScore(obj, "algorithm_score"); err != nil {
		return f, err
	}
	if f.EngagementPrediction, err = readScore(obj, "engagement_prediction"); err != nil {
		return f, err
	}
	if f.OptimizedVersion, err = readString(obj, "optimized_version"); err != nil {
		return f, err
	}
	if f.Suggestions, err = readSuggestions(obj, "optimization_suggestions"); err != nil {
		return f, err
	}

	return f, nil
}

func lookup(obj map[string]json.RawMessage, key string) (json.RawMessage, error) {
	v, ok := obj[key]
	if !ok || string(v) == "null" {
		return nil, fmt.Errorf("missing field %q", key)
	}
	return v, nil
}

func readString(obj map[string]json.RawMessage, key string) (string, error) {
	v, err := lookup(obj, key)
	if err != nil {
		return "", err
	}

	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return "", fmt.Errorf("field %q must be a string", key)
	}
	return s, nil
}

// readScore accepts a number or a numeric string such as "85", "85%" or
// "85/100", rounds it and clamps it into [1, 100].
func readScore(obj map[string]json.RawMessage, key string) (int, error) {
	v, err := lookup(obj, key)
	if err != nil {
		return 0, err
	}

	var n float64
	if err := json.Unmarshal(v, &n); err != nil {
		var s string
		if json.Unmarshal(v, &s) != nil {
			return 0, fmt.Errorf("field %q must be a number", key)
		}

		s = strings.TrimSpace(s)
		s, _, _ = strings.Cut(s, "/")
		s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))

		n, err = strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("field %q must be a number", key)
		}
	}

	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, fmt.Errorf("field %q must be a finite number", key)
	}
	return clampScore(n), nil
}

func clampScore(n float64) int {
	r := math.Round(n)
	if r < minScore {
		return minScore
	}
	if r > maxScore {
		return maxScore
	}
	return int(r)
}

// readSuggestions accepts a list or a single string. List elements that are
// strings, numbers or booleans become text; anything else is dropped, as
// are blank entries.
func readSuggestions(obj map[string]json.RawMessage, key string) ([]string, error) {
	v, err := lookup(obj, key)
	if err != nil {
		return nil, err
	}

	var single string
	if err := json.Unmarshal(v, &single); err == nil {
		if s := strings.TrimSpace(single); s != "" {
			return []string{s}, nil
		}
		return []string{}, nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(v, &items); err != nil {
		return nil, fmt.Errorf("field %q must be a list of strings", key)
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		if len(out) == maxSuggestions {
			break
		}
		if s, ok := suggestionText(item); ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func suggestionText(item json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(item, &s); err == nil {
		s = strings.TrimSpace(s)
		return s, s != ""
	}

	var n json.Number
	if err := json.Unmarshal(item, &n); err == nil {
		return n.String(), true
	}

	var b bool
	if err := json.Unmarshal(item, &b); err == nil {
		return strconv.FormatBool(b), true
	}

	return "", false
}
