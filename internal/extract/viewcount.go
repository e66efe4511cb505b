package extract

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var leadingNumber = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?`)

// ParseViewCount turns displayed counts like "1.5M", "250K" or "1,234"
// into a number. Anything it cannot read is 0.
func ParseViewCount(text string) int64 {
	cleaned := strings.ReplaceAll(strings.TrimSpace(text), ",", "")
	if cleaned == "" {
		return 0
	}

	lit := leadingNumber.FindString(cleaned)
	if lit == "" {
		return 0
	}
	v, err := strconv.ParseFloat(lit, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}

	lower := strings.ToLower(cleaned)
	switch {
	case strings.Contains(lower, "m"):
		v *= 1_000_000
	case strings.Contains(lower, "k"):
		v *= 1_000
	}

	v = math.Round(v)
	if v <= 0 {
		return 0
	}
	if v >= math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(v)
}
