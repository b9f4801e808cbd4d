package prediction

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// Readings maps sensor id to raw user-entered text.
type Readings map[string]string

// numericPrefix matches the longest leading decimal literal or a signed Infinity.
var numericPrefix = regexp.MustCompile(`^[+-]?(Infinity|(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?)`)

// ParseReading converts raw sensor text to a number from its longest numeric
// prefix, so "150 °C" reads as 150. Text without a numeric prefix yields 0.
// Infinity is kept and clamped by the health index.
func ParseReading(raw string) float64 {
	match := numericPrefix.FindString(strings.TrimLeftFunc(raw, unicode.IsSpace))
	if match == "" {
		return 0
	}
	parsed, err := strconv.ParseFloat(match, 64)
	if err != nil && !math.IsInf(parsed, 0) {
		return 0
	}
	if math.IsNaN(parsed) {
		return 0
	}
	return parsed
}

// Value returns the parsed reading of a sensor, 0 when absent.
func (r Readings) Value(sensorID string) float64 {
	if r == nil {
		return 0
	}
	raw, ok := r[sensorID]
	if !ok {
		return 0
	}
	return ParseReading(raw)
}
