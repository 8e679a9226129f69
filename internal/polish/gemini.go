package polish

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// GeminiPolisher uses the Gemini API through google.golang.org/genai.
type GeminiPolisher struct {
	client      *genai.Client
	model       string
	temperature float32
}

// NewGeminiPolisher creates the client. opts.BaseURL overrides the API
// endpoint.
func NewGeminiPolisher(ctx context.Context, opts Options) (*GeminiPolisher, error) {
	cfg := &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if opts.BaseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	model := opts.Model
	if model == "" {
		model = GeminiModel
	}
	temp := opts.Temperature
	if temp == 0 {
		temp = 0.3
	}
	return &GeminiPolisher{client: client, model: model, temperature: temp}, nil
}

func (g *GeminiPolisher) Name() string { return "gemini:" + g.model }

// Complete generates one response with system as the system instruction.
func (g *GeminiPolisher) Complete(ctx context.Context, system, user string) (string, error) {
	result, err := g.client.Models.GenerateContent(ctx,
		g.model,
		genai.Text("Please rewrite this email:\n\n"+user),
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
			Temperature:       genai.Ptr(g.temperature),
		},
	)
	if err != nil {
		return "", fmt.Errorf("GenAI generate failed: %w", err)
	}
	text := result.Text()
	if text == "" {
		return "", errors.New("no text returned")
	}
	return text, nil
}
