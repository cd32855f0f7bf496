package ingest

import "testing"

func TestExtractSalary(t *testing.T) {
	tests := []struct {
		text     string
		min, max float64
	}{
		{"Pay: $90,000 - $120,000 per year", 90000, 120000},
		{"$95000-$110000 DOE", 95000, 110000},
		{"$50 per hour on C2C", 104000, 104000},
		{"rate $65/hr", 135200, 135200},
		{"$60 - $70 per hour", 124800, 145600},
		{"Salary 80 - 100k", 80000, 100000},
		{"$80k - $100K", 80000, 100000},
		{"120 - 150 thousand", 120000, 150000},
		{"$120,000.00 - $135,000.00", 120000, 135000},
	}
	for _, tt := range tests {
		lo, hi := ExtractSalary(tt.text)
		if lo == nil || hi == nil {
			t.Errorf("ExtractSalary(%q) = nil, want (%v, %v)", tt.text, tt.min, tt.max)
			continue
		}
		if *lo != tt.min || *hi != tt.max {
			t.Errorf("ExtractSalary(%q) = (%v, %v), want (%v, %v)", tt.text, *lo, *hi, tt.min, tt.max)
		}
	}
}

func TestExtractSalary_NoMatch(t *testing.T) {
	for _, text := range []string{
		"",
		"Competitive pay",
		"Looking for 5 - 7 years of experience with k8s",
		"Team of 10-12 kind people",
	} {
		if lo, hi := ExtractSalary(text); lo != nil || hi != nil {
			t.Errorf("ExtractSalary(%q) matched unexpectedly", text)
		}
	}
}
