package main

import "testing"

func TestFormatMoney(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{170000, "170,000"},
		{1234567, "1,234,567"},
		{-50000, "-50,000"},
	}
	for _, c := range cases {
		if got := formatMoney(c.in); got != c.want {
			t.Errorf("formatMoney(%d) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	cases := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 30, "short"},
		{"exactly-ten", 11, "exactly-ten"},
		{"a very long listing title here", 10, "a very ..."},
		{"ab", 2, "ab"},
		{"abcd", 2, "ab"},
		// Multibyte titles must cut on rune boundaries.
		{"Квартира в центре города!!", 10, "Квартир..."},
		{"日本語のタイトルです", 5, "日本..."},
	}
	for _, c := range cases {
		got := truncate(c.in, c.max)
		if got != c.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", c.in, c.max, got, c.want)
		}
	}
}
