package output

import (
	"math"
	"strconv"
	"strings"
)

var byteUnits = []string{"B", "KB", "MB", "GB", "TB", "PB"}

// FormatBytes renders a byte count with 1024-based units and at most two
// decimals, e.g. "1.5 KB".
func FormatBytes(n int64) string {
	abs := math.Abs(float64(n))
	unit := 0
	for unit < len(byteUnits)-1 && abs >= math.Pow(1024, float64(unit+1)) {
		unit++
	}
	v := float64(n) / math.Pow(1024, float64(unit))
	return trimDecimals(strconv.FormatFloat(v, 'f', 2, 64)) + " " + byteUnits[unit]
}

// FormatTime renders seconds as "1.3 s" at or above one second and as whole
// milliseconds below.
func FormatTime(seconds float64) string {
	if seconds >= 1 {
		return formatNumber(math.Ceil(seconds*10)/10) + " s"
	}
	return formatNumber(math.Ceil(seconds*1000)) + " ms"
}

// FormatChange renders a percentage change rounded up to two decimals away
// from zero, with a direction marker.
func FormatChange(percent float64) string {
	v := math.Copysign(math.Ceil(math.Abs(percent)*100)/100, percent)
	switch {
	case v > 0:
		return "+" + formatNumber(v) + "% 🔺"
	case v < 0:
		return formatNumber(v) + "% 🔽"
	default:
		return "0%"
	}
}

// FormatBytesDelta renders a signed byte difference, e.g. "+2 KB".
func FormatBytesDelta(delta int64) string {
	if delta > 0 {
		return "+" + FormatBytes(delta)
	}
	return FormatBytes(delta)
}

func formatNumber(v float64) string {
	if v == 0 {
		return "0"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func trimDecimals(s string) string {
	if !strings.Contains(s, ".") {
		return s
	}
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
