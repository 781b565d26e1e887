package pipeline

import (
	"math"
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

// Minutes converts a duration value to minutes.
//
// Text containing a colon must be exactly "hours:minutes" with integer parts.
// Any other value (numeric text, ints, floats, bools) is coerced to a float.
// Unparseable, missing, NaN or infinite values read as 0.
func Minutes(v any) float64 {
	if s, ok := v.(string); ok {
		return textMinutes(s)
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0
	}
	return finite(f)
}

func textMinutes(s string) float64 {
	if strings.Contains(s, ":") {
		parts := strings.Split(s, ":")
		if len(parts) != 2 {
			return 0
		}
		h, err := strconv.Atoi(strings.TrimSpace(parts[0]))
		if err != nil {
			return 0
		}
		m, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			return 0
		}
		return float64(h*60 + m)
	}

	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	f, err := cast.ToFloat64E(s)
	if err != nil {
		return 0
	}
	return finite(f)
}

func finite(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
