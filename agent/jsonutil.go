package agent

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Pre-compiled regex patterns for JSON extraction from agent responses.
var (
	// fencedBlockPattern matches content inside a markdown code fence with
	// an optional language tag.
	fencedBlockPattern = regexp.MustCompile("(?s)```[a-zA-Z0-9_-]*\\s*\\n?(.*?)\\s*```")
	// jsonObjectPattern matches the outermost JSON object (greedy).
	jsonObjectPattern = regexp.MustCompile(`(?s)\{[\s\S]*\}`)
	// trailingCommaPattern matches trailing commas before ] or }.
	trailingCommaPattern = regexp.MustCompile(`,\s*([}\]])`)
)

// ExtractJSONObject pulls a JSON object out of noisy agent output. The
// passes run in order, first success wins: trim whitespace, strip a
// markdown fence, trim prose around the outermost braces. Returns "" when
// no candidate object is present.
func ExtractJSONObject(content string) string {
	text := strings.TrimSpace(content)
	if text == "" {
		return ""
	}

	if matches := fencedBlockPattern.FindStringSubmatch(text); len(matches) > 1 {
		if inner := jsonObjectPattern.FindString(matches[1]); inner != "" {
			return cleanJSON(inner)
		}
	}

	raw := jsonObjectPattern.FindString(text)
	if raw == "" {
		return ""
	}
	return cleanJSON(raw)
}

// cleanJSON removes JavaScript-style comments and trailing commas, both of
// which agents commonly emit inside otherwise-valid JSON.
func cleanJSON(raw string) string {
	lines := strings.Split(raw, "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		cleaned = append(cleaned, stripLineComment(line))
	}
	result := strings.Join(cleaned, "\n")
	return trailingCommaPattern.ReplaceAllString(result, "$1")
}

// stripLineComment removes a // comment from a JSON line, respecting
// string values.
func stripLineComment(line string) string {
	if !strings.Contains(line, "//") {
		return line
	}

	inString := false
	escaped := false
	for i := 0; i < len(line); i++ {
		ch := line[i]
		if escaped {
			escaped = false
			continue
		}
		if ch == '\\' && inString {
			escaped = true
			continue
		}
		if ch == '"' {
			inString = !inString
			continue
		}
		if !inString && ch == '/' && i+1 < len(line) && line[i+1] == '/' {
			return strings.TrimRight(line[:i], " \t")
		}
	}
	return line
}

// FieldKind is the expected runtime kind of a required field.
type FieldKind int

// Runtime kinds checked by ParseAndValidate.
const (
	KindAny FieldKind = iota
	KindString
	KindNumber
	KindBool
	KindObject
	KindArray
)

func (k FieldKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	default:
		return "any"
	}
}

// Field names a required field and its expected kind.
type Field struct {
	Name string
	Kind FieldKind
}

// ValidationResult is the outcome of ParseAndValidate.
type ValidationResult struct {
	Success bool
	Data    map[string]any
	Error   string
}

// ParseAndValidate extracts a JSON object from raw agent output, parses
// it, and checks the required fields for presence and kind. stepName, when
// non-empty, prefixes error messages. When a direct parse fails and the
// candidate carries escaped sequences (\\n, \\"), the candidate is
// unescaped and parsed once more.
func ParseAndValidate(raw string, required []Field, stepName string) ValidationResult {
	fail := func(format string, args ...any) ValidationResult {
		msg := fmt.Sprintf(format, args...)
		if stepName != "" {
			msg = stepName + ": " + msg
		}
		return ValidationResult{Error: msg}
	}

	candidate := ExtractJSONObject(raw)
	if candidate == "" {
		return fail("no JSON object found in agent output")
	}

	var parsed any
	if err := json.Unmarshal([]byte(candidate), &parsed); err != nil {
		unescaped, ok := unescapeCandidate(candidate)
		if !ok {
			return fail("invalid JSON: %v", err)
		}
		if err2 := json.Unmarshal([]byte(unescaped), &parsed); err2 != nil {
			return fail("invalid JSON: %v", err)
		}
	}

	obj, ok := parsed.(map[string]any)
	if !ok {
		return fail("root is not a JSON object")
	}

	var problems []string
	for _, field := range required {
		value, present := obj[field.Name]
		if !present {
			problems = append(problems, fmt.Sprintf("missing required field %q", field.Name))
			continue
		}
		if !kindMatches(value, field.Kind) {
			problems = append(problems, fmt.Sprintf("field %q is not a %s", field.Name, field.Kind))
		}
	}
	if len(problems) > 0 {
		sort.Strings(problems)
		return fail("%s", strings.Join(problems, "; "))
	}

	return ValidationResult{Success: true, Data: obj}
}

// unescapeCandidate undoes one layer of backslash escaping. Agents
// occasionally return JSON that was itself serialised into a JSON string.
func unescapeCandidate(candidate string) (string, bool) {
	if !strings.Contains(candidate, `\n`) && !strings.Contains(candidate, `\"`) {
		return "", false
	}
	replacer := strings.NewReplacer(`\n`, "\n", `\"`, `"`)
	return replacer.Replace(candidate), true
}

func kindMatches(value any, kind FieldKind) bool {
	switch kind {
	case KindString:
		_, ok := value.(string)
		return ok
	case KindNumber:
		_, ok := value.(float64)
		return ok
	case KindBool:
		_, ok := value.(bool)
		return ok
	case KindObject:
		_, ok := value.(map[string]any)
		return ok
	case KindArray:
		_, ok := value.([]any)
		return ok
	default:
		return true
	}
}
