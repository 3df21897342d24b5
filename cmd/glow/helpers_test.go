package main

import "testing"

func TestParseParams(t *testing.T) {
	params, err := parseParams([]string{"speed=2.5", "label=pulse", "mirror=true"})
	if err != nil {
		t.Fatalf("parseParams: %v", err)
	}
	if got := params["speed"]; got != 2.5 {
		t.Fatalf("speed = %v (%T), want 2.5", got, got)
	}
	if got := params["label"]; got != "pulse" {
		t.Fatalf("label = %v, want pulse", got)
	}
	if got := params["mirror"]; got != true {
		t.Fatalf("mirror = %v, want true", got)
	}

	if params, err := parseParams(nil); err != nil || params != nil {
		t.Fatalf("expected nil map for no flags, got %v err %v", params, err)
	}

	if _, err := parseParams([]string{"missing"}); err == nil {
		t.Fatal("expected error for pair without =")
	}
	if _, err := parseParams([]string{"=5"}); err == nil {
		t.Fatal("expected error for empty key")
	}
}

func TestParseParamValue(t *testing.T) {
	cases := []struct {
		in   string
		want any
	}{
		{"true", true},
		{"false", false},
		{"1.5", 1.5},
		{"42", float64(42)},
		{"teal", "teal"},
		{"#ff0040", "#ff0040"},
	}
	for _, tc := range cases {
		if got := parseParamValue(tc.in); got != tc.want {
			t.Fatalf("parseParamValue(%q) = %v (%T), want %v", tc.in, got, got, tc.want)
		}
	}
}

func TestTitleLabel(t *testing.T) {
	cases := map[string]string{
		"static_color": "Static Color",
		"running":      "Running",
		" nova ":       "Nova",
		"":             "",
	}
	for in, want := range cases {
		if got := titleLabel(in); got != want {
			t.Fatalf("titleLabel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatBrightness(t *testing.T) {
	cases := map[float64]string{
		0:    "0%",
		0.25: "25%",
		0.5:  "50%",
		1:    "100%",
	}
	for in, want := range cases {
		if got := formatBrightness(in); got != want {
			t.Fatalf("formatBrightness(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatFPS(t *testing.T) {
	if got := formatFPS(25); got != "40.0" {
		t.Fatalf("formatFPS(25) = %q, want 40.0", got)
	}
	if got := formatFPS(0); got != "-" {
		t.Fatalf("formatFPS(0) = %q, want -", got)
	}
}

func TestFormatParams(t *testing.T) {
	got := formatParams(map[string]any{"speed": 2.0, "color": "#ff0000"})
	if got != "color=#ff0000 speed=2" {
		t.Fatalf("formatParams = %q", got)
	}
	if got := formatParams(nil); got != "-" {
		t.Fatalf("formatParams(nil) = %q, want -", got)
	}
}

func TestParseBrightnessArg(t *testing.T) {
	if got, err := parseBrightnessArg(" 0.25 "); err != nil || got != 0.25 {
		t.Fatalf("parseBrightnessArg(0.25) = %v, %v", got, err)
	}
	if got, err := parseBrightnessArg("1"); err != nil || got != 1 {
		t.Fatalf("parseBrightnessArg(1) = %v, %v", got, err)
	}
	for _, in := range []string{"x", "1.5", "-0.1"} {
		if _, err := parseBrightnessArg(in); err == nil {
			t.Fatalf("expected error for %q", in)
		}
	}
}
