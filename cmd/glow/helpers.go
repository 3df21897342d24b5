package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// parseParams turns repeated --param key=value flags into a parameter
// map. Values are typed loosely; the daemon-side schema coerces and
// validates them.
func parseParams(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	params := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !found || key == "" {
			return nil, fmt.Errorf("invalid parameter %q (expected key=value)", pair)
		}
		params[key] = parseParamValue(strings.TrimSpace(value))
	}
	return params, nil
}

func parseParamValue(value string) any {
	switch value {
	case "true":
		return true
	case "false":
		return false
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return f
	}
	return value
}

var displayCaser = cases.Title(language.Und)

// titleLabel renders identifiers like "static_color" as "Static Color".
func titleLabel(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	return displayCaser.String(strings.ReplaceAll(value, "_", " "))
}

func formatBrightness(level float64) string {
	return fmt.Sprintf("%.0f%%", level*100)
}

// formatFPS derives the render rate from the wire interval.
func formatFPS(intervalMS float64) string {
	if intervalMS <= 0 {
		return "-"
	}
	return fmt.Sprintf("%.1f", 1000/intervalMS)
}

func formatParams(params map[string]any) string {
	if len(params) == 0 {
		return "-"
	}
	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", key, params[key]))
	}
	return strings.Join(parts, " ")
}

func parseBrightnessArg(arg string) (float64, error) {
	value, err := strconv.ParseFloat(strings.TrimSpace(arg), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid brightness %q (expected a number between 0 and 1)", arg)
	}
	if value < 0 || value > 1 {
		return 0, fmt.Errorf("brightness %v out of range [0, 1]", value)
	}
	return value, nil
}
