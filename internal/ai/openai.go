package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

const defaultOpenAIModel = openai.ChatModelGPT4_1Mini

// openAIRecognitionSchema is the strict-mode equivalent of recognitionSchema:
// every property is required, optional ones are nullable.
var openAIRecognitionSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"status": map[string]any{
			"type": "string",
			"enum": []string{StatusPresent, StatusAbsent, StatusError},
		},
		"message": map[string]any{
			"type": "string",
		},
		"confidence": map[string]any{
			"type":        []string{"number", "null"},
			"description": "Confidence score between 0 and 1",
		},
		"identifiedName": map[string]any{
			"type":        []string{"string", "null"},
			"description": "Name of the student identified, or 'Unknown'",
		},
	},
	"required":             []string{"status", "message", "confidence", "identifiedName"},
	"additionalProperties": false,
}

type OpenAIRecognizer struct {
	client       *openai.Client
	model        string
	maxImageSize int
	usageTracker
}

func NewOpenAIRecognizer(apiKey, model string, maxImageSize int, pricing RequestPricing) (*OpenAIRecognizer, error) {
	if apiKey == "" {
		return nil, errors.New("OPENAI_TOKEN is required")
	}
	if model == "" {
		model = string(defaultOpenAIModel)
	}
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAIRecognizer{
		client:       &client,
		model:        model,
		maxImageSize: maxImageSize,
		usageTracker: usageTracker{pricing: pricing},
	}, nil
}

func (p *OpenAIRecognizer) Name() string {
	return p.model
}

// buildOpenAIParts converts the shared prompt into chat content parts.
func buildOpenAIParts(req *RecognitionRequest, maxImageSize int) []openai.ChatCompletionContentPartUnionParam {
	prompt := buildPromptParts(req)
	parts := make([]openai.ChatCompletionContentPartUnionParam, 0, len(prompt))
	for _, pp := range prompt {
		if pp.Image != nil {
			parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
				URL:    EncodeDataURL(PrepareImage(pp.Image, maxImageSize)),
				Detail: "high",
			}))
			continue
		}
		parts = append(parts, openai.TextContentPart(pp.Text))
	}
	return parts
}

func (p *OpenAIRecognizer) Recognize(ctx context.Context, req *RecognitionRequest) (*RecognitionResult, error) {
	if len(req.Target) == 0 {
		return nil, errNoTarget
	}

	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(p.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			{
				OfUser: &openai.ChatCompletionUserMessageParam{
					Content: openai.ChatCompletionUserMessageParamContentUnion{
						OfArrayOfContentParts: buildOpenAIParts(req, p.maxImageSize),
					},
				},
			},
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
				JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   "attendance_verification",
					Schema: openAIRecognitionSchema,
					Strict: openai.Bool(true),
				},
			},
		},
		MaxTokens: openai.Int(300),
	})
	if err != nil {
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, errEmptyResponse
	}

	input, output := int(resp.Usage.PromptTokens), int(resp.Usage.CompletionTokens)
	p.track(input, output)

	parsed, err := parseRecognitionResult(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	parsed.InputTokens, parsed.OutputTokens = input, output
	return parsed, nil
}
