package suggest

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// FallbackAnswer is the only failure detail clients ever see.
const FallbackAnswer = "Couldn't Fetch Response."

// Generator produces a completion for a prompt. The HTTP layer depends on
// this interface so tests never touch the network.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

const promptTemplate = `You are an AI assistant embedded in a collaborative code editor.
The user has the following %s file open:

%s

Question: %s

Answer with reference to the code above. Keep it concise and use markdown code blocks for any code you include.`

// BuildPrompt embeds the question, code and language verbatim into the
// fixed template sent upstream.
func BuildPrompt(question, code, language string) string {
	return fmt.Sprintf(promptTemplate, language, code, question)
}

// Gemini relays prompts to the Gemini API.
type Gemini struct {
	client *genai.Client
	model  string
}

func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Gemini{client: client, model: model}, nil
}

func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	return resp.Text(), nil
}
