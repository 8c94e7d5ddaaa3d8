package parse

import (
	"math"
	"testing"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"1.234,56", 1234.56, true},
		{"(1.234,56)", -1234.56, true},
		{"1.234", 1234, true},
		{"-123", -123, true},
		{"0,5", 0.5, true},
		{"12.345.678", 12345678, true},
		{"", 0, false},
		{"-", 0, false},
		{"abc", 0, false},
	}
	for _, tc := range cases {
		got, ok := ParseAmount(tc.in)
		if ok != tc.ok {
			t.Errorf("ParseAmount(%q) ok = %v, want %v", tc.in, ok, tc.ok)
			continue
		}
		if ok && math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("ParseAmount(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestFormatAmountRoundTrip(t *testing.T) {
	for _, value := range []float64{0, 1234.56, -1234.56, 999, 1000000.01, -0.5} {
		text := FormatAmount(value)
		got, ok := ParseAmount(text)
		if !ok {
			t.Fatalf("ParseAmount(FormatAmount(%v) = %q) failed", value, text)
		}
		if math.Abs(got-value) > 1e-6 {
			t.Errorf("round trip %v -> %q -> %v", value, text, got)
		}
	}
}

func TestFindAmounts(t *testing.T) {
	// taxonomy code fragments are picked up too; callers align against the
	// year columns by keeping only the trailing tokens
	got := FindAmounts("1.01.01 Caixa e Equivalentes 1.234 (567) 89,5")
	want := []float64{1, 1, 1, 1234, -567, 89.5}
	if len(got) != len(want) {
		t.Fatalf("FindAmounts returned %v, want %v", got, want)
	}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Errorf("FindAmounts[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestPrecisionMultiplier(t *testing.T) {
	if got := PrecisionMultiplier("Mil"); got != 1000 {
		t.Errorf("PrecisionMultiplier(Mil) = %v, want 1000", got)
	}
	if got := PrecisionMultiplier("R$ mil"); got != 1000 {
		t.Errorf("PrecisionMultiplier(R$ mil) = %v, want 1000", got)
	}
	if got := PrecisionMultiplier(""); got != 1 {
		t.Errorf("PrecisionMultiplier(empty) = %v, want 1", got)
	}
	if got := PrecisionMultiplier("unidade"); got != 1 {
		t.Errorf("PrecisionMultiplier(unidade) = %v, want 1", got)
	}
}

func TestInferYear(t *testing.T) {
	opts := DefaultOptions()
	cases := []struct {
		in     string
		year   int
		source string
		ok     bool
	}{
		{"31/12/2022", 2022, YearFromFullDate, true},
		{"31/12/22", 2022, YearFromTwoDigitDate, true},
		{"31/12/85", 1985, YearFromTwoDigitDate, true},
		{"2022-12-31", 2022, YearFromISODate, true},
		{"2021", 2021, YearFromBareYear, true},
		{"not a date", 0, "", false},
		{"", 0, "", false},
	}
	for _, tc := range cases {
		year, source, ok := InferYear(tc.in, opts)
		if ok != tc.ok || year != tc.year || source != tc.source {
			t.Errorf("InferYear(%q) = (%d, %q, %v), want (%d, %q, %v)",
				tc.in, year, source, ok, tc.year, tc.source, tc.ok)
		}
	}
}

func TestInferYearConfigurablePivot(t *testing.T) {
	// pivot 50: 31/12/60 should land in the 1900s
	year, _, ok := InferYear("31/12/60", Options{CenturyPivot: 50})
	if !ok || year != 1960 {
		t.Errorf("InferYear pivot 50 = %d (ok=%v), want 1960", year, ok)
	}
	year, _, ok = InferYear("31/12/40", Options{CenturyPivot: 50})
	if !ok || year != 2040 {
		t.Errorf("InferYear pivot 50 = %d (ok=%v), want 2040", year, ok)
	}
}

func TestParseDecimal(t *testing.T) {
	if v := ParseDecimal("12.5"); v == nil || *v != 12.5 {
		t.Errorf("ParseDecimal(12.5) = %v", v)
	}
	if v := ParseDecimal("12,5"); v == nil || *v != 12.5 {
		t.Errorf("ParseDecimal(12,5) = %v", v)
	}
	if v := ParseDecimal(""); v != nil {
		t.Errorf("ParseDecimal(empty) = %v, want nil", *v)
	}
	if v := ParseDecimal("n/a"); v != nil {
		t.Errorf("ParseDecimal(n/a) = %v, want nil", *v)
	}
}
