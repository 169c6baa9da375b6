// Package symbol normalizes Chinese stock symbols between the formats the
// upstream endpoints expect.
package symbol

import "strings"

var exchangePrefixes = []string{"SH", "SZ", "BJ", "HK"}

// Normalize strips exchange prefixes and suffixes and returns the bare code:
// "SH600000" and "600000.SH" both become "600000".
func Normalize(sym string) string {
	if sym == "" {
		return sym
	}

	for _, prefix := range exchangePrefixes {
		if strings.HasPrefix(sym, prefix) {
			return sym[len(prefix):]
		}
	}

	if i := strings.IndexByte(sym, '.'); i >= 0 {
		return sym[:i]
	}

	return sym
}

// Market detects the market a symbol trades on: sh, sz, bj, hk, us or
// unknown.
func Market(sym string) string {
	if sym == "" {
		return "unknown"
	}

	clean := Normalize(sym)

	switch {
	case strings.HasPrefix(clean, "6"), strings.HasPrefix(clean, "9"):
		return "sh"
	case strings.HasPrefix(clean, "0"), strings.HasPrefix(clean, "2"), strings.HasPrefix(clean, "3"):
		return "sz"
	case strings.HasPrefix(clean, "8"), strings.HasPrefix(clean, "4"):
		return "bj"
	case isDigits(clean) && len(clean) <= 5:
		return "hk"
	case isAlpha(clean):
		return "us"
	}

	return "unknown"
}

// Xueqiu converts a symbol to XueQiu format ("600000" -> "SH600000").
// US tickers pass through unchanged.
func Xueqiu(sym string) string {
	if sym == "" {
		return sym
	}

	for _, prefix := range exchangePrefixes {
		if strings.HasPrefix(sym, prefix) && len(sym) > len(prefix) {
			return sym
		}
	}

	switch {
	case strings.HasPrefix(sym, "6"):
		return "SH" + sym
	case strings.HasPrefix(sym, "0"), strings.HasPrefix(sym, "3"):
		return "SZ" + sym
	case strings.HasPrefix(sym, "8"), strings.HasPrefix(sym, "4"):
		return "BJ" + sym
	case strings.HasPrefix(sym, "9"):
		return "SH" + sym
	case strings.HasPrefix(sym, "2"):
		return "SZ" + sym
	case isDigits(sym) && len(sym) <= 5:
		return "HK" + strings.Repeat("0", 5-len(sym)) + sym
	}

	return sym
}

// EastmoneySecID converts a symbol to EastMoney's secid format:
// market flag "1." for Shanghai, "0." for everything else.
func EastmoneySecID(sym string) string {
	clean := Normalize(sym)
	if Market(clean) == "sh" {
		return "1." + clean
	}
	return "0." + clean
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func isAlpha(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}
