package prediction

import (
	"math"
	"testing"
)

func TestParseReading(t *testing.T) {
	cases := map[string]float64{
		"42":      42,
		"  42.5 ": 42.5,
		"-5":      -5,
		"1e3":     1000,
		".5":      0.5,
		"5.":      5,
		"":        0,
		"   ":     0,
		"abc":     0,
		"-":       0,
		"NaN":     0,
		"+Inf":    0,
		"-Inf":    0,
	}
	for raw, want := range cases {
		if got := ParseReading(raw); got != want {
			t.Fatalf("ParseReading(%q): expected %v, got %v", raw, want, got)
		}
	}
}

func TestParseReading_LongestNumericPrefix(t *testing.T) {
	cases := map[string]float64{
		"150 °C":   150,
		"12abc":    12,
		"1e3x":     1000,
		"1e":       1,
		"2.5e-1kV": 0.25,
		"0x1p4":    0,
		"\t7 bar":  7,
	}
	for raw, want := range cases {
		if got := ParseReading(raw); got != want {
			t.Fatalf("ParseReading(%q): expected %v, got %v", raw, want, got)
		}
	}
}

func TestParseReading_Infinity(t *testing.T) {
	if got := ParseReading("Infinity"); !math.IsInf(got, 1) {
		t.Fatalf("expected +Inf, got %v", got)
	}
	if got := ParseReading("-Infinity degrees"); !math.IsInf(got, -1) {
		t.Fatalf("expected -Inf, got %v", got)
	}
	if got := ParseReading("1e999"); !math.IsInf(got, 1) {
		t.Fatalf("expected overflow to +Inf, got %v", got)
	}
}

func TestReadingsValue_Missing(t *testing.T) {
	var readings Readings
	if got := readings.Value("oilTemp"); got != 0 {
		t.Fatalf("expected 0 for nil readings, got %v", got)
	}
	readings = Readings{"other": "3"}
	if got := readings.Value("oilTemp"); got != 0 {
		t.Fatalf("expected 0 for missing sensor, got %v", got)
	}
}
