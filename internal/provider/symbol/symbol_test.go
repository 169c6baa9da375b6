package symbol

import "testing"

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"SH600000":  "600000",
		"600000.SH": "600000",
		"SZ000001":  "000001",
		"600000":    "600000",
		"AAPL":      "AAPL",
		"":          "",
	}
	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMarket(t *testing.T) {
	cases := map[string]string{
		"600000":   "sh",
		"900901":   "sh",
		"000001":   "sz",
		"300001":   "sz",
		"200002":   "sz",
		"830047":   "bj",
		"430047":   "bj",
		"00700":    "hk",
		"AAPL":     "us",
		"SH600000": "sh",
		"":         "unknown",
	}
	for in, want := range cases {
		if got := Market(in); got != want {
			t.Errorf("Market(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestXueqiu(t *testing.T) {
	cases := map[string]string{
		"600000":   "SH600000",
		"000001":   "SZ000001",
		"688001":   "SH688001",
		"430047":   "BJ430047",
		"900901":   "SH900901",
		"200002":   "SZ200002",
		"700":      "HK00700",
		"AAPL":     "AAPL",
		"SH600000": "SH600000",
	}
	for in, want := range cases {
		if got := Xueqiu(in); got != want {
			t.Errorf("Xueqiu(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestEastmoneySecID(t *testing.T) {
	cases := map[string]string{
		"600000":   "1.600000",
		"000001":   "0.000001",
		"SH688001": "1.688001",
	}
	for in, want := range cases {
		if got := EastmoneySecID(in); got != want {
			t.Errorf("EastmoneySecID(%q) = %q, want %q", in, got, want)
		}
	}
}
