package prompts

import (
	"strings"
	"testing"
)

func TestFill(t *testing.T) {
	got := Fill("Hello {{name}}, welcome to {{place}}.", map[string]string{
		"name":  "Riley",
		"place": "the lake house",
	})
	want := "Hello Riley, welcome to the lake house."
	if got != want {
		t.Errorf("Fill = %q, want %q", got, want)
	}
}

func TestStoreRender_UnboundPlaceholder(t *testing.T) {
	s := NewStore()
	s.Override(NameProgress, "{{known}} and {{unknown}}")
	_, err := s.Render(NameProgress, map[string]string{"known": "x"})
	if err == nil {
		t.Fatal("expected error for unbound placeholder")
	}
	if !strings.Contains(err.Error(), "{{unknown}}") {
		t.Errorf("error does not name the unbound placeholder: %v", err)
	}
}

func TestStoreRender(t *testing.T) {
	s := NewStore()
	out, err := s.Render(NameAppraisal, map[string]string{
		"agent_name":        "Sam",
		"agent_description": "quiet, loyal",
		"scene_history":     "[Narrative]: It rained.",
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(out, "You are Sam.") {
		t.Errorf("rendered prompt missing agent name:\n%s", out)
	}
	if strings.Contains(out, "{{agent_name}}") {
		t.Error("placeholder left unfilled")
	}
}

func TestStoreRender_UnknownTemplate(t *testing.T) {
	if _, err := NewStore().Render("nope", nil); err == nil {
		t.Fatal("expected error for unknown template")
	}
}

func TestStoreOverride(t *testing.T) {
	s := NewStore()
	s.Override(NameProgress, "custom {{x}}")
	out, err := s.Render(NameProgress, map[string]string{"x": "y"})
	if err != nil {
		t.Fatal(err)
	}
	if out != "custom y" {
		t.Errorf("Render = %q", out)
	}
}

func TestDefaultsDemandJSON(t *testing.T) {
	// Every built-in template must instruct the model to reply with
	// JSON; the repair layer depends on at least an attempt at it.
	s := NewStore()
	for _, name := range []string{NameInitialize, NameProgress, NameAppraisal, NameDecision, NameSummarize, NameCommitment} {
		text, err := s.Get(name)
		if err != nil {
			t.Fatalf("Get(%s): %v", name, err)
		}
		if !strings.Contains(text, "JSON") {
			t.Errorf("template %s does not request JSON output", name)
		}
	}
}
