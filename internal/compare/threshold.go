package compare

import (
	"math"
	"strconv"
	"strings"
)

// Threshold is the minimum absolute percentage change that makes a matched
// bundle significant. The zero value is undefined: every run is significant.
type Threshold struct {
	percent float64
	defined bool
}

// Percent returns a defined threshold. Negative, NaN or infinite values give
// an undefined threshold.
func Percent(p float64) Threshold {
	if p < 0 || math.IsNaN(p) || math.IsInf(p, 0) {
		return Threshold{}
	}
	return Threshold{percent: p, defined: true}
}

// Undefined returns the always-significant threshold.
func Undefined() Threshold {
	return Threshold{}
}

// ParseThreshold parses a configured threshold. Empty or unparseable input
// gives an undefined threshold and ok=false; ok is true for an empty string
// since leaving the option unset is not a mistake.
func ParseThreshold(s string) (t Threshold, ok bool) {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	if s == "" {
		return Threshold{}, true
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Threshold{}, false
	}
	t = Percent(v)
	return t, t.defined
}

// Defined reports whether a percentage was configured.
func (t Threshold) Defined() bool {
	return t.defined
}

// Value returns the percentage; zero when undefined.
func (t Threshold) Value() float64 {
	return t.percent
}

func (t Threshold) String() string {
	if !t.defined {
		return "undefined"
	}
	return strconv.FormatFloat(t.percent, 'f', -1, 64) + "%"
}
