package ai

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.5-flash"

// recognitionSchema constrains the Gemini response to a RecognitionResult.
var recognitionSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"status": {
			Type: genai.TypeString,
			Enum: []string{StatusPresent, StatusAbsent, StatusError},
		},
		"message": {
			Type: genai.TypeString,
		},
		"confidence": {
			Type:        genai.TypeNumber,
			Description: "Confidence score between 0 and 1",
		},
		"identifiedName": {
			Type:        genai.TypeString,
			Description: "Name of the student identified, or 'Unknown'",
		},
	},
	Required: []string{"status", "message"},
}

type GeminiRecognizer struct {
	client       *genai.Client
	model        string
	maxImageSize int
	usageTracker
}

func NewGeminiRecognizer(ctx context.Context, apiKey, model string, maxImageSize int, pricing RequestPricing) (*GeminiRecognizer, error) {
	if apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	if model == "" {
		model = defaultGeminiModel
	}

	return &GeminiRecognizer{
		client:       client,
		model:        model,
		maxImageSize: maxImageSize,
		usageTracker: usageTracker{pricing: pricing},
	}, nil
}

func (p *GeminiRecognizer) Name() string {
	return p.model
}

// buildGeminiParts converts the shared prompt into Gemini content parts.
func buildGeminiParts(req *RecognitionRequest, maxImageSize int) []*genai.Part {
	prompt := buildPromptParts(req)
	parts := make([]*genai.Part, 0, len(prompt))
	for _, pp := range prompt {
		if pp.Image != nil {
			data := PrepareImage(pp.Image, maxImageSize)
			parts = append(parts, &genai.Part{InlineData: &genai.Blob{Data: data, MIMEType: ImageMIMEType(data)}})
			continue
		}
		parts = append(parts, &genai.Part{Text: pp.Text})
	}
	return parts
}

func (p *GeminiRecognizer) Recognize(ctx context.Context, req *RecognitionRequest) (*RecognitionResult, error) {
	if len(req.Target) == 0 {
		return nil, errNoTarget
	}

	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: buildGeminiParts(req, p.maxImageSize),
		},
	}

	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   recognitionSchema,
	}

	result, err := p.client.Models.GenerateContent(ctx, p.model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("gemini API error: %w", err)
	}

	var input, output int
	if result.UsageMetadata != nil {
		input = int(result.UsageMetadata.PromptTokenCount)
		output = int(result.UsageMetadata.CandidatesTokenCount)
		p.track(input, output)
	}

	parsed, err := parseRecognitionResult(result.Text())
	if err != nil {
		return nil, err
	}
	parsed.InputTokens, parsed.OutputTokens = input, output
	return parsed, nil
}
