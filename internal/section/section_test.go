package section

import (
	"strings"
	"testing"
)

const ruleLine = "================================================================================"

func TestAssemble_BasicSections(t *testing.T) {
	marked := strings.Join([]string{
		ruleLine,
		"SECTION_1: Risk Factors",
		ruleLine,
		"",
		"Competition could harm our margins.",
		"",
		ruleLine,
		"SECTION_2: Legal Proceedings",
		ruleLine,
		"",
		"We are party to various lawsuits.",
	}, "\n")

	secs := Assemble(marked, DefaultClassifier())
	if len(secs) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(secs))
	}
	if secs[0].Title != "Risk Factors" || secs[0].Level != 1 || secs[0].Type != TypeRisk {
		t.Errorf("section 0: got %+v", secs[0])
	}
	if secs[1].Title != "Legal Proceedings" || secs[1].Level != 2 || secs[1].Type != TypeLegal {
		t.Errorf("section 1: got %+v", secs[1])
	}
	if secs[0].Content != "Competition could harm our margins." {
		t.Errorf("section 0 content: %q", secs[0].Content)
	}
}

func TestAssemble_PreservesParagraphBoundaries(t *testing.T) {
	marked := "SECTION_1: Business\n\nFirst paragraph.\n\nSecond paragraph."
	secs := Assemble(marked, DefaultClassifier())
	if len(secs) != 1 {
		t.Fatalf("expected 1 section, got %d", len(secs))
	}
	if !strings.Contains(secs[0].Content, "First paragraph.\n\nSecond paragraph.") {
		t.Errorf("blank-line boundary lost: %q", secs[0].Content)
	}
}

func TestAssemble_ContentBeforeFirstHeaderIsLevelZero(t *testing.T) {
	marked := "Cover page text accumulates first.\n\nSECTION_1: Business\n\nBody."
	secs := Assemble(marked, DefaultClassifier())
	if len(secs) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(secs))
	}
	if secs[0].Level != 0 || secs[0].Title != "" {
		t.Errorf("leading section: got level=%d title=%q", secs[0].Level, secs[0].Title)
	}
}

func TestAssemble_UnparseableLevelDefaultsToOne(t *testing.T) {
	secs := Assemble("SECTION_x: Odd Header\n\nSome body text.", DefaultClassifier())
	if len(secs) != 1 {
		t.Fatalf("expected 1 section, got %d", len(secs))
	}
	if secs[0].Level != 1 {
		t.Errorf("expected default level 1, got %d", secs[0].Level)
	}
	if secs[0].Title != "Odd Header" {
		t.Errorf("title: got %q", secs[0].Title)
	}
}

func TestAssemble_NoHeadersYieldsFallback(t *testing.T) {
	secs := Assemble("Just some document text.\n\nAnd a second paragraph.", DefaultClassifier())
	if len(secs) != 1 {
		t.Fatalf("expected exactly 1 fallback section, got %d", len(secs))
	}
	s := secs[0]
	if s.Title != FallbackTitle || s.Level != FallbackLevel || s.Type != TypeGeneral {
		t.Errorf("fallback section: got %+v", s)
	}
	if !strings.Contains(s.Content, "Just some document text.") ||
		!strings.Contains(s.Content, "And a second paragraph.") {
		t.Errorf("fallback content incomplete: %q", s.Content)
	}
}

func TestAssemble_BlankStream(t *testing.T) {
	if secs := Assemble("   \n\n  ", DefaultClassifier()); len(secs) != 0 {
		t.Errorf("expected no sections for blank stream, got %d", len(secs))
	}
}

func TestAssemble_EmptySectionsSkipped(t *testing.T) {
	marked := "SECTION_1: Empty One\n\nSECTION_1: Full One\n\nActual content here."
	secs := Assemble(marked, DefaultClassifier())
	if len(secs) != 1 {
		t.Fatalf("expected 1 section, got %d", len(secs))
	}
	if secs[0].Title != "Full One" {
		t.Errorf("expected %q, got %q", "Full One", secs[0].Title)
	}
}

func TestClassify_Categories(t *testing.T) {
	c := DefaultClassifier()
	cases := []struct {
		title string
		want  string
	}{
		{"Consolidated Financial Statements", TypeFinancial},
		{"Statements of Cash Flow", TypeFinancial},
		{"Risk Factors", TypeRisk},
		{"Business Overview", TypeBusiness},
		{"Our Operations", TypeBusiness},
		{"Legal Proceedings", TypeLegal},
		{"Pending Litigation", TypeLegal},
		{"Management's Discussion and Analysis", TypeMDA},
		{"MD&A", TypeMDA},
		{"Exhibits and Signatures", TypeGeneral},
		{"", TypeGeneral},
	}
	for _, tc := range cases {
		if got := c.Classify(tc.title); got != tc.want {
			t.Errorf("Classify(%q): expected %q, got %q", tc.title, tc.want, got)
		}
	}
}

func TestClassify_PrecedenceAndIdempotence(t *testing.T) {
	c := DefaultClassifier()
	// "Financial Risk Management" matches both financial and risk keywords;
	// financial wins by precedence.
	title := "Financial Risk Management"
	first := c.Classify(title)
	if first != TypeFinancial {
		t.Errorf("precedence: expected %q, got %q", TypeFinancial, first)
	}
	for range 5 {
		if got := c.Classify(title); got != first {
			t.Fatalf("classification not idempotent: %q then %q", first, got)
		}
	}
}
