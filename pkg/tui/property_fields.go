package tui

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/tidwall/gjson"
)

// ConfigEntry is one key/value row of the config working copy
type ConfigEntry struct {
	Key   string
	Value string
}

// configEntries renders a config mapping as rows sorted by key
func configEntries(config map[string]any) []ConfigEntry {
	entries := make([]ConfigEntry, 0, len(config))
	for k, v := range config {
		entries = append(entries, ConfigEntry{Key: k, Value: FormatConfigValue(v)})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries
}

// FormatConfigValue turns a config value into its editable text form
func FormatConfigValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(data)
	}
}

// ParseConfigValue turns edited text back into a config value.
// A key that already holds a non-empty string keeps raw as a string.
// Otherwise booleans and numbers become JSON scalars, JSON arrays and
// objects are decoded, and anything else stays a string.
func ParseConfigValue(raw string, previous any) any {
	if s, ok := previous.(string); ok && s != "" {
		return raw
	}
	trimmed := strings.TrimSpace(raw)
	switch trimmed {
	case "true":
		return true
	case "false":
		return false
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
		return f
	}
	if (strings.HasPrefix(trimmed, "[") || strings.HasPrefix(trimmed, "{")) && gjson.Valid(trimmed) {
		var v any
		if err := json.Unmarshal([]byte(trimmed), &v); err == nil {
			return v
		}
	}
	return raw
}

// validateConfigValue checks values whose key implies a syntax
func validateConfigValue(key, raw string) error {
	switch {
	case key == "condition":
		return validateConditionField(raw)
	case key == "template" || strings.HasSuffix(key, "_template"):
		return validateTemplateField(raw)
	}
	return nil
}

// validateConditionField validates condition expressions.
// Variables are resolved at run time, so unknown names are allowed.
func validateConditionField(value string) error {
	if value == "" {
		return nil
	}

	unsafePatterns := []string{
		"os.", "exec.", "http.", "net.", "syscall.", "unsafe.",
	}
	for _, pattern := range unsafePatterns {
		if strings.Contains(value, pattern) {
			return fmt.Errorf("unsafe operation not allowed: %s", pattern)
		}
	}

	if _, err := expr.Compile(value, expr.AllowUndefinedVariables()); err != nil {
		return fmt.Errorf("invalid condition syntax: %w", err)
	}
	return nil
}

var placeholderName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*(\.[a-zA-Z_][a-zA-Z0-9_]*)*$`)
var placeholderPattern = regexp.MustCompile(`\{\{([^}]*)\}\}`)

// validateTemplateField checks {{name}} placeholders in prompt templates
func validateTemplateField(value string) error {
	if strings.Count(value, "{{") != strings.Count(value, "}}") {
		return fmt.Errorf("unbalanced braces in template")
	}

	for _, match := range placeholderPattern.FindAllStringSubmatch(value, -1) {
		name := strings.TrimSpace(match[1])
		if name == "" {
			return fmt.Errorf("empty placeholder in template")
		}
		if !placeholderName.MatchString(name) {
			return fmt.Errorf("invalid variable name in template: %s", name)
		}
	}
	return nil
}
