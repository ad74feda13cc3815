package language_test

import (
	"testing"

	"github.com/JulesGR953/OptiScam-Framework/internal/language"
)

func TestToISO2(t *testing.T) {
	cases := map[string]string{
		"en":      "en",
		"ENG":     "en",
		"english": "en",
		"fre":     "fr",
		"fra":     "fr",
		" zh ":    "zh",
		"":        "",
		"klingon": "",
	}
	for input, expect := range cases {
		if got := language.ToISO2(input); got != expect {
			t.Errorf("ToISO2(%q) = %q, want %q", input, got, expect)
		}
	}
}

func TestDisplayFallsBackToInput(t *testing.T) {
	if got := language.Display("es"); got != "Spanish" {
		t.Fatalf("expected Spanish, got %q", got)
	}
	if got := language.Display("xx"); got != "xx" {
		t.Fatalf("expected passthrough, got %q", got)
	}
}
