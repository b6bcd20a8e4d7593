package consensus

import (
	"testing"

	"github.com/GriffinCanCode/screenlate/internal/ocr"
)

func result(engine string, conf float64, text string, score float64) ocr.DetectionResult {
	return ocr.DetectionResult{
		Text:          text,
		ValidatedText: ocr.Validate(text, false),
		Score:         score,
		Engine:        ocr.EngineRef{ID: engine, Confidence: conf},
	}
}

func TestSelectMajorityOverridesScore(t *testing.T) {
	results := []ocr.DetectionResult{
		result("a", 0.5, "Hello there", 2.5),
		result("b", 0.9, "Hello there!", 2.5),
		result("c", 0.1, "Hell0 thxre", 9.0),
		result("d", 0.7, "hello, there", 2.5),
	}

	got, confirmed := Select(results, DefaultMinAgree)
	if !confirmed {
		t.Fatal("Select() should confirm the majority group")
	}
	if got.Score != ocr.ConsensusScore {
		t.Errorf("Score = %v, want ConsensusScore", got.Score)
	}
	if got.Engine.ID != "b" {
		t.Errorf("Engine = %q, want b (highest confidence in group)", got.Engine.ID)
	}
}

func TestSelectFallbackHighestScore(t *testing.T) {
	results := []ocr.DetectionResult{
		result("a", 0.5, "one", 1.3),
		result("b", 0.9, "two words", 2.8),
		result("c", 0.1, "two words", 2.2),
		result("d", 0.7, "three", 1.5),
	}

	got, confirmed := Select(results, DefaultMinAgree)
	if confirmed {
		t.Error("Select() should not confirm a group of 2")
	}
	if got.Engine.ID != "b" {
		t.Errorf("Engine = %q, want b", got.Engine.ID)
	}
	if got.Score != 2.8 {
		t.Errorf("Score = %v, want unchanged 2.8", got.Score)
	}
}

func TestSelectFallbackConfidenceBreaksTies(t *testing.T) {
	results := []ocr.DetectionResult{
		result("a", 0.9, "alpha", 2.0),
		result("b", 0.2, "beta", 2.0),
	}

	got, _ := Select(results, DefaultMinAgree)
	if got.Engine.ID != "a" {
		t.Errorf("Engine = %q, want a (higher confidence)", got.Engine.ID)
	}
}

func TestSelectFirstGroupWins(t *testing.T) {
	// Two qualifying groups: the first one found scanning forward wins even
	// though the second has more members.
	results := []ocr.DetectionResult{
		result("a", 0.5, "first group", 2.0),
		result("b", 0.5, "second group", 2.0),
		result("c", 0.5, "first group", 2.0),
		result("d", 0.5, "second group", 2.0),
		result("e", 0.5, "first group", 2.0),
		result("f", 0.5, "second group", 2.0),
		result("g", 0.5, "second group", 2.0),
	}

	got, confirmed := Select(results, DefaultMinAgree)
	if !confirmed || got.ValidatedText != "first group" {
		t.Errorf("Select() = %q confirmed=%v, want first group", got.ValidatedText, confirmed)
	}
}

func TestSelectIgnoresZeroScoreGroups(t *testing.T) {
	results := []ocr.DetectionResult{
		result("a", 0.5, "", 0),
		result("b", 0.5, "", 0),
		result("c", 0.5, "", 0),
		result("d", 0.5, "real text here", 2.5),
	}

	got, confirmed := Select(results, DefaultMinAgree)
	if confirmed {
		t.Error("empty readings should never form a consensus")
	}
	if got.Engine.ID != "d" {
		t.Errorf("Engine = %q, want d", got.Engine.ID)
	}
}

func TestSelectTooFewResults(t *testing.T) {
	results := []ocr.DetectionResult{
		result("a", 0.5, "same text", 2.0),
		result("b", 0.5, "same text", 2.0),
	}

	got, confirmed := Select(results, DefaultMinAgree)
	if confirmed {
		t.Error("two results cannot reach minAgree=3")
	}
	if got.Engine.ID != "b" {
		t.Errorf("Engine = %q, want b (later result wins exact ties)", got.Engine.ID)
	}
}

func TestSelectEmpty(t *testing.T) {
	got, confirmed := Select(nil, DefaultMinAgree)
	if confirmed || got.Score != 0 {
		t.Errorf("Select(nil) = %+v, %v", got, confirmed)
	}
}
