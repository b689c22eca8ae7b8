// Package report renders backtest results as human-readable text for the
// command-line tools.
package report

import (
	"fmt"
	"math"
	"strings"
)

// FormatInt formats an integer with comma separators.
func FormatInt(n int) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	start := len(s) % 3
	if start > 0 {
		b.WriteString(s[:start])
	}
	for i := start; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// FormatMoney formats a dollar amount with B/M/K suffixes for large values.
func FormatMoney(v float64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	switch {
	case v >= 1e9:
		return fmt.Sprintf("%s$%.2fB", sign, v/1e9)
	case v >= 1e6:
		return fmt.Sprintf("%s$%.2fM", sign, v/1e6)
	case v >= 1e3:
		return fmt.Sprintf("%s$%.1fK", sign, v/1e3)
	default:
		return fmt.Sprintf("%s$%.2f", sign, v)
	}
}

// FormatPct formats a percentage value with an explicit sign.
func FormatPct(p float64) string {
	if p > 0 {
		return fmt.Sprintf("+%.2f%%", p)
	}
	return fmt.Sprintf("%.2f%%", p)
}

// FormatRatio formats a unitless ratio, rendering infinities as "inf".
func FormatRatio(r float64) string {
	if math.IsInf(r, 1) {
		return "inf"
	}
	if math.IsInf(r, -1) {
		return "-inf"
	}
	return fmt.Sprintf("%.2f", r)
}

// FormatHours renders a duration in hours, switching to days past 48h.
func FormatHours(h float64) string {
	if h >= 48 {
		return fmt.Sprintf("%.1fd", h/24)
	}
	return fmt.Sprintf("%.1fh", h)
}
