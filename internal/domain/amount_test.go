package domain

import "testing"

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"10", "10", false},
		{" 10 ", "10", false},
		{"0.5", "0.5", false},
		{"10.500000", "10.5", false},
		{"007", "7", false},
		{"0", "", true},
		{"0.0", "", true},
		{"", "", true},
		{"-5", "", true},
		{"+5", "", true},
		{"ten", "", true},
		{"1e3", "", true},
		{"1.", "", true},
		{".5", "", true},
		{"1.2.3", "", true},
	}
	for _, c := range cases {
		got, err := ParseAmount(c.in)
		if c.wantErr {
			if err == nil {
				t.Errorf("ParseAmount(%q): expected error, got %q", c.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseAmount(%q): %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("ParseAmount(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestScaleAmount(t *testing.T) {
	cases := []struct {
		in       string
		decimals int
		want     int64
		wantErr  bool
	}{
		{"10", 6, 10_000_000, false},
		{"0.5", 6, 500_000, false},
		{"1.234567", 6, 1_234_567, false},
		{"100", 0, 100, false},
		{"1.2345678", 6, 0, true},
		{"0", 6, 0, true},
	}
	for _, c := range cases {
		got, err := ScaleAmount(c.in, c.decimals)
		if c.wantErr {
			if err == nil {
				t.Errorf("ScaleAmount(%q, %d): expected error, got %d", c.in, c.decimals, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ScaleAmount(%q, %d): %v", c.in, c.decimals, err)
			continue
		}
		if got != c.want {
			t.Errorf("ScaleAmount(%q, %d) = %d, want %d", c.in, c.decimals, got, c.want)
		}
	}
}

func TestFormatAmount(t *testing.T) {
	if got := FormatAmount(10_000_000, 6); got != "10" {
		t.Errorf("FormatAmount(10000000, 6) = %q, want \"10\"", got)
	}
	if got := FormatAmount(500_000, 6); got != "0.5" {
		t.Errorf("FormatAmount(500000, 6) = %q, want \"0.5\"", got)
	}
	if got := FormatAmount(1_234_567, 6); got != "1.234567" {
		t.Errorf("FormatAmount(1234567, 6) = %q, want \"1.234567\"", got)
	}
}
