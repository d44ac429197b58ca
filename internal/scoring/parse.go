// internal/scoring/parse.go
//
// Recovery of evaluation lists from free-text model output.
// Layers, in order:
//   1. strip a surrounding ``` fence (and a language tag on its first line)
//   2. parse the remainder as JSON
//   3. failing that, parse the earliest {...} or [...] span
//
// Accepted shapes are a bare array or {"evaluations": [...]}. Entries with an
// empty word or a score outside [1, 100] are dropped, never clamped.

package scoring

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
)

// Score bounds for a single evaluation.
const (
	MinScore = 1
	MaxScore = 100
)

// ErrUnparseable is returned when no evaluation list can be recovered.
var ErrUnparseable = errors.New("scoring: unparseable evaluation response")

// Evaluation is the oracle's verdict on one word.
type Evaluation struct {
	Word        string `json:"word"`
	Score       int    `json:"score"`
	Explanation string `json:"explanation"`
}

// Result is the validated oracle output for one move.
type Result struct {
	Evaluations []Evaluation `json:"evaluations"`
}

// Total sums the scores of all evaluations.
func (r Result) Total() int {
	sum := 0
	for _, e := range r.Evaluations {
		sum += e.Score
	}
	return sum
}

// ParseEvaluations turns raw model text into a validated Result.
func ParseEvaluations(raw string) (Result, error) {
	text := unfence(raw)
	if r, ok := decodeEvaluations(text); ok {
		return r, nil
	}
	if sub := extractJSON(text); sub != "" {
		if r, ok := decodeEvaluations(sub); ok {
			return r, nil
		}
	}
	return Result{}, ErrUnparseable
}

// unfence strips a ``` code fence. Text that does not start with a fence is
// returned unchanged.
func unfence(text string) string {
	t := strings.TrimSpace(text)
	if !strings.HasPrefix(t, "```") {
		return text
	}
	last := strings.LastIndex(t, "```")
	if last <= 0 {
		return text
	}
	inner := t[3:last]
	if nl := strings.IndexByte(inner, '\n'); nl != -1 {
		return strings.TrimSpace(inner[nl+1:])
	}
	return strings.TrimSpace(inner)
}

// extractJSON returns the span from the first '{' to the last '}' or from the
// first '[' to the last ']', whichever starts earlier. Empty if neither exists.
func extractJSON(text string) string {
	objStart, objEnd := strings.IndexByte(text, '{'), strings.LastIndexByte(text, '}')
	arrStart, arrEnd := strings.IndexByte(text, '['), strings.LastIndexByte(text, ']')
	hasObj := objStart != -1 && objEnd > objStart
	hasArr := arrStart != -1 && arrEnd > arrStart
	switch {
	case hasObj && (!hasArr || objStart < arrStart):
		return text[objStart : objEnd+1]
	case hasArr:
		return text[arrStart : arrEnd+1]
	}
	return ""
}

func decodeEvaluations(text string) (Result, bool) {
	var doc any
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return Result{}, false
	}
	var entries []any
	switch v := doc.(type) {
	case []any:
		entries = v
	case map[string]any:
		arr, ok := v["evaluations"].([]any)
		if !ok {
			return Result{}, false
		}
		entries = arr
	default:
		return Result{}, false
	}

	out := Result{Evaluations: make([]Evaluation, 0, len(entries))}
	for _, raw := range entries {
		m, _ := raw.(map[string]any)
		e := Evaluation{
			Word:        strings.ToUpper(toString(m["word"])),
			Score:       toInt(m["score"]),
			Explanation: toString(m["explanation"]),
		}
		if e.Word == "" || e.Score < MinScore || e.Score > MaxScore {
			continue
		}
		out.Evaluations = append(out.Evaluations, e)
	}
	return out, true
}

// toString accepts strings and numbers; anything else reads as empty.
func toString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	}
	return ""
}

// toInt rounds numeric scores; numeric strings are accepted too. Anything
// else becomes 0, which the range check then drops.
func toInt(v any) int {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case string:
		p, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0
		}
		f = p
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int(math.Round(f))
}
