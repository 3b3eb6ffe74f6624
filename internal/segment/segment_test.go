package segment

import (
	"testing"
)

func TestSplit(t *testing.T) {
	text := `preamble line
KEY FINDINGS: revenue grew 12%
costs held flat
SUMMARY:
quarterly performance was solid
RECOMMENDATIONS: reduce overhead
`
	sections := Split(text)

	if got := sections["key findings"]; got != "revenue grew 12%\ncosts held flat" {
		t.Errorf("key findings = %q", got)
	}
	if got := sections["summary"]; got != "quarterly performance was solid" {
		t.Errorf("summary = %q", got)
	}
	if got := sections["recommendations"]; got != "reduce overhead" {
		t.Errorf("recommendations = %q", got)
	}
	if got := sections["conclusion"]; got != "not provided" {
		t.Errorf("expected placeholder for absent conclusion, got %q", got)
	}
}

func TestSplit_CaseInsensitiveMarkers(t *testing.T) {
	sections := Split("summary: all good\n")
	if got := sections["summary"]; got != "all good" {
		t.Errorf("summary = %q", got)
	}
}

func TestSplit_IndentedMarker(t *testing.T) {
	sections := Split("  CONCLUSION: done\n")
	if got := sections["conclusion"]; got != "done" {
		t.Errorf("conclusion = %q", got)
	}
}

func TestPrimary(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "priority order wins",
			text: "SUMMARY: second\nKEY FINDINGS: first\n",
			want: "first",
		},
		{
			name: "falls through to lower priority",
			text: "CONCLUSION: tail\n",
			want: "tail",
		},
		{
			name: "no markers",
			text: "plain unstructured text",
			want: "not provided",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Primary(tc.text); got != tc.want {
				t.Errorf("Primary() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestMetrics(t *testing.T) {
	text := `toxicity: 0.85
Fluency: 0.72
bias:0.1
note: this is prose, not a number
multi word: 0.5
score: 88
`
	metrics := Metrics(text)

	want := map[string]float64{
		"toxicity": 0.85,
		"fluency":  0.72,
		"bias":     0.1,
		"score":    88,
	}
	for name, value := range want {
		if got, ok := metrics[name]; !ok || got != value {
			t.Errorf("metrics[%q] = %v (present=%v), want %v", name, got, ok, value)
		}
	}
	if _, ok := metrics["note"]; ok {
		t.Error("non-numeric value should be skipped")
	}
	if _, ok := metrics["multi word"]; ok {
		t.Error("multi-word names should be skipped")
	}
}

func TestMetrics_Empty(t *testing.T) {
	if got := Metrics(""); len(got) != 0 {
		t.Errorf("expected no metrics, got %v", got)
	}
}
