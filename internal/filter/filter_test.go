package filter

import "testing"

// S1/S2 from spec.md §8.
func TestScenarioS1Accepted(t *testing.T) {
	q, err := Parse(`("AI" OR "ML") AND ("safety")`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	f := New(q)
	if !f.IsRelevant("Machine Learning Safety: A Survey", "This paper surveys the field of ML safety methods, experiments, and results across several benchmarks, with ablation studies of each approach in detail.") {
		t.Fatalf("expected candidate to be accepted")
	}
}

func TestScenarioS2Rejected(t *testing.T) {
	q, err := Parse(`("AI" OR "ML") AND ("safety")`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	f := New(q)
	if f.IsRelevant("AI Safety Weekly Roundup", "Links: https://a https://b https://c https://d https://e") {
		t.Fatalf("expected aggregator candidate to be rejected")
	}
}

func TestScenarioS6InvalidQuery(t *testing.T) {
	if _, err := Parse(`("AI" OR "ML"`); err == nil {
		t.Fatalf("expected unbalanced parens to fail validation")
	}
}

func TestParseRejectsLeadingANDNOT(t *testing.T) {
	if _, err := Parse(`ANDNOT ("spam")`); err == nil {
		t.Fatalf("expected leading ANDNOT to fail validation")
	}
}

func TestParseRequiresQuotedTerm(t *testing.T) {
	if _, err := Parse(`AI AND ML`); err == nil {
		t.Fatalf("expected missing quotes to fail validation")
	}
}

func TestUserExcludedRejectsMatch(t *testing.T) {
	q, err := Parse(`("safety") ANDNOT ("survey")`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	f := New(q)
	if f.IsRelevant("A Survey of Safety", "long abstract with enough words to avoid aggregator or marketing heuristics triggering incorrectly here at all") {
		t.Fatalf("expected ANDNOT term to reject candidate")
	}
}

func TestProximityRejectsDistantTerms(t *testing.T) {
	q, err := Parse(`("alpha") AND ("omega")`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	f := &Filter{Query: q, MaxDistance: 5}
	abstract := "alpha " + string(make([]byte, 100)) + " omega"
	if f.IsRelevant("title", abstract) {
		t.Fatalf("expected distant terms to fail proximity check")
	}
}
