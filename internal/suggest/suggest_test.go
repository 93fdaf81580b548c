package suggest

import (
	"strings"
	"testing"
)

func TestBuildPromptEmbedsVerbatim(t *testing.T) {
	question := "why does hello() print twice?"
	code := "function hello() {\n  console.log('hi');\n}"
	language := "javascript"

	prompt := BuildPrompt(question, code, language)

	for _, want := range []string{question, code, language} {
		if !strings.Contains(prompt, want) {
			t.Errorf("Prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestBuildPromptEmptyFields(t *testing.T) {
	// The handler never validates suggest requests; empty fields still
	// produce a usable prompt.
	prompt := BuildPrompt("", "", "")
	if prompt == "" {
		t.Error("Prompt should not be empty even with empty inputs")
	}
}
