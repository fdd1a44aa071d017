package summarize

import (
	"errors"
	"strings"
	"testing"
)

func TestSanitize_StripsLabelAndFences(t *testing.T) {
	in := "```\n要約: 新製品が発表された。\n市場の反応は好意的。\n```"
	got := Sanitize(in)
	if strings.Contains(got, "要約") || strings.Contains(got, "```") {
		t.Errorf("labels and fences must be stripped: %q", got)
	}
	if !strings.Contains(got, "新製品が発表された。") {
		t.Errorf("content must survive: %q", got)
	}
}

func TestSanitize_StripsBoilerplate(t *testing.T) {
	got := Sanitize("はい、承知しました。以下に要約を示します。本文はこちら。")
	if got != "本文はこちら。" {
		t.Errorf("got %q", got)
	}
}

func TestSanitize_EmptyInput(t *testing.T) {
	if got := Sanitize("   \n```\n```\n"); got != "" {
		t.Errorf("expected empty, got %q", got)
	}
}

func TestBudget_EnforcesCeiling(t *testing.T) {
	b := NewBudget(2)
	if err := b.Take(); err != nil {
		t.Fatal(err)
	}
	if err := b.Take(); err != nil {
		t.Fatal(err)
	}
	if err := b.Take(); !errors.Is(err, ErrBudgetExhausted) {
		t.Errorf("third take must exhaust the budget, got %v", err)
	}
	if b.Used() != 2 {
		t.Errorf("used = %d", b.Used())
	}
}

func TestBudget_ZeroMeansUnlimited(t *testing.T) {
	b := NewBudget(0)
	for i := 0; i < 100; i++ {
		if err := b.Take(); err != nil {
			t.Fatalf("take %d: %v", i, err)
		}
	}
}

func TestBuildPrompt_TruncatesLongBody(t *testing.T) {
	body := strings.Repeat("あ", maxPromptChars+500)
	p := buildPrompt("t", body)
	if !strings.Contains(p, "[TRUNCATED]") {
		t.Error("over-long body must be truncated with a marker")
	}
	short := buildPrompt("t", "短い本文。")
	if strings.Contains(short, "[TRUNCATED]") {
		t.Error("short body must not be truncated")
	}
}
