// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package openai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/safetyrag/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

const systemPrompt = "You are a safety information assistant. Provide helpful, accurate, and concise " +
	"information about safety protocols, incidents, and hazard management."

const contextPreamble = "Here is some relevant safety information:"

// Generator implements ai.Generator using OpenAI-compatible chat APIs.
type Generator struct {
	client      llms.Model
	temperature float64
	logger      *slog.Logger
}

// newGenerator is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newGenerator(config *ai.Config) (*Generator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.GeneratorHost),
		openai.WithToken(config.APIToken),
		openai.WithModel(config.GeneratorModel),
	)
	if err != nil {
		return nil, err
	}

	return &Generator{
		client:      client,
		temperature: config.Temperature,
		logger:      slog.Default().With("component", "openai-generator", "model", config.GeneratorModel),
	}, nil
}

// NewGenerator creates a new generator using the provided configuration.
//
// Returns ai.Generator interface to enforce abstraction.
func NewGenerator(config *ai.Config) (ai.Generator, error) {
	return newGenerator(config)
}

// Generate asks the model to answer prompt using the context passages.
func (g *Generator) Generate(ctx context.Context, prompt string, passages []string, maxLength int) (string, error) {
	content := buildMessages(prompt, passages)

	opts := []llms.CallOption{llms.WithTemperature(g.temperature)}
	if maxLength > 0 {
		opts = append(opts, llms.WithMaxTokens(maxLength))
	}

	g.logger.Debug("generating response", "passages", len(passages), "maxLength", maxLength)
	response, err := g.client.GenerateContent(ctx, content, opts...)
	if err != nil {
		g.logger.Warn("failed to generate content", "err", err)
		return "", fmt.Errorf("%w: %w", ai.ErrUnavailable, err)
	}

	if len(response.Choices) < 1 {
		g.logger.Debug("no choices returned from model")
		return "", nil
	}

	return cleanResponse(response.Choices[0].Content), nil
}

// buildMessages lays out the system prompt, the optional context block and the user prompt.
func buildMessages(prompt string, passages []string) []llms.MessageContent {
	content := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(systemPrompt)},
		},
	}

	if len(passages) > 0 {
		var sb strings.Builder
		sb.WriteString(contextPreamble)
		sb.WriteString("\n\n")
		for i, passage := range passages {
			fmt.Fprintf(&sb, "Document %d: %s\n\n", i+1, scrubString(passage))
		}
		content = append(content, llms.MessageContent{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(strings.TrimSpace(sb.String()))},
		})
	}

	content = append(content, llms.MessageContent{
		Role:  llms.ChatMessageTypeHuman,
		Parts: []llms.ContentPart{llms.TextPart(prompt)},
	})
	return content
}
