//
// Tencent is pleased to support the open source community by making trpc-taskgraph-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-taskgraph-go is licensed under the Apache License Version 2.0.
//
//

// Package llm provides the answer, structured and eval tools on top of an
// OpenAI compatible chat completion endpoint, plus offline fallbacks that
// need no model at all.
package llm

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strings"

	"github.com/openai/openai-go"
	openaiopt "github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// Environment variables read by NewModel when the matching option is unset.
const (
	EnvAPIKey  = "OPENAI_API_KEY"
	EnvBaseURL = "OPENAI_BASE_URL"
)

// DefaultModelName is used when NewModel gets an empty name.
const DefaultModelName = "gpt-4o-mini"

// ErrEmptyCompletion is returned when the model answers with no choice or
// empty content.
var ErrEmptyCompletion = errors.New("empty completion")

// Option configures a Model.
type Option func(*options)

type options struct {
	apiKey         string
	baseURL        string
	httpClient     *http.Client
	temperature    *float64
	requestOptions []openaiopt.RequestOption
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) Option {
	return func(o *options) {
		o.apiKey = key
	}
}

// WithBaseURL sets the endpoint base URL.
func WithBaseURL(url string) Option {
	return func(o *options) {
		o.baseURL = url
	}
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(o *options) {
		o.temperature = &t
	}
}

// WithRequestOptions appends raw openai-go request options.
func WithRequestOptions(opts ...openaiopt.RequestOption) Option {
	return func(o *options) {
		o.requestOptions = append(o.requestOptions, opts...)
	}
}

// Model is a chat completion model.
type Model struct {
	name        string
	client      openai.Client
	temperature *float64
}

// NewModel creates a model. The API key and base URL fall back to
// OPENAI_API_KEY and OPENAI_BASE_URL.
func NewModel(name string, opts ...Option) *Model {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.apiKey == "" {
		o.apiKey = os.Getenv(EnvAPIKey)
	}
	if o.baseURL == "" {
		o.baseURL = os.Getenv(EnvBaseURL)
	}
	if name == "" {
		name = DefaultModelName
	}

	var clientOpts []openaiopt.RequestOption
	if o.apiKey != "" {
		clientOpts = append(clientOpts, openaiopt.WithAPIKey(o.apiKey))
	}
	if o.baseURL != "" {
		clientOpts = append(clientOpts, openaiopt.WithBaseURL(o.baseURL))
	}
	if o.httpClient != nil {
		clientOpts = append(clientOpts, openaiopt.WithHTTPClient(o.httpClient))
	}
	clientOpts = append(clientOpts, o.requestOptions...)

	return &Model{
		name:        name,
		client:      openai.NewClient(clientOpts...),
		temperature: o.temperature,
	}
}

// Name returns the model name.
func (m *Model) Name() string {
	return m.name
}

// responseFormat selects plain text, any JSON object, or a JSON schema.
type responseFormat struct {
	jsonObject bool
	schemaName string
	schema     map[string]any
}

// complete sends one system and one user message and returns the content
// of the first choice.
func (m *Model) complete(ctx context.Context, system, user string, format *responseFormat) (string, error) {
	req := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(m.name),
		Messages: []openai.ChatCompletionMessageParamUnion{
			{OfSystem: &openai.ChatCompletionSystemMessageParam{
				Content: openai.ChatCompletionSystemMessageParamContentUnion{OfString: openai.String(system)},
			}},
			{OfUser: &openai.ChatCompletionUserMessageParam{
				Content: openai.ChatCompletionUserMessageParamContentUnion{OfString: openai.String(user)},
			}},
		},
	}
	if m.temperature != nil {
		req.Temperature = openai.Float(*m.temperature)
	}
	switch {
	case format == nil:
	case format.schema != nil:
		req.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
				JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   format.schemaName,
					Schema: format.schema,
				},
			},
		}
	case format.jsonObject:
		req.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	resp, err := m.client.Chat.Completions.New(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", ErrEmptyCompletion
	}
	return content, nil
}

// stripFence removes a surrounding markdown code fence, which some models
// add around JSON even in JSON mode.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
