// Package anthropic provides a model.Client implementation backed by the
// Anthropic Claude Messages API, translating between the engine's
// provider-agnostic model types and github.com/anthropics/anthropic-sdk-go.
// It is the reference transport named in spec.md §6; the engine never
// imports this package directly, so a caller constructs a Client (which
// satisfies model.Client) and passes it to engine.Execute.
package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/shared/constant"

	"goa.design/agentcore/model"
)

type (
	// MessagesClient captures the subset of the Anthropic SDK used by this
	// adapter. It is satisfied by *sdk.MessageService, so tests can supply a
	// stub instead of a live client. Streaming is a spec.md Non-goal, so
	// unlike the SDK's full surface this interface exposes only New.
	MessagesClient interface {
		New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
	}

	// Options configures optional Client behavior.
	Options struct {
		// DefaultModel is used when model.Request.Model is empty.
		DefaultModel string

		// MaxTokens is used when a request does not specify MaxTokens.
		MaxTokens int

		// Temperature is used when a request does not specify Temperature.
		Temperature float64
	}

	// Client implements model.Client on top of the Anthropic Messages API.
	Client struct {
		msg          MessagesClient
		defaultModel string
		maxTokens    int
		temperature  float64
	}
)

// New builds a Client from an Anthropic Messages client and options.
// DefaultModel is required; it is the fallback used whenever a Request
// leaves Model empty.
func New(msg MessagesClient, opts Options) (*Client, error) {
	if msg == nil {
		return nil, errors.New("anthropic: messages client is required")
	}
	if opts.DefaultModel == "" {
		return nil, errors.New("anthropic: default model is required")
	}
	return &Client{
		msg:          msg,
		defaultModel: opts.DefaultModel,
		maxTokens:    opts.MaxTokens,
		temperature:  opts.Temperature,
	}, nil
}

// NewFromAPIKey constructs a Client using the SDK's default HTTP transport,
// authenticated with apiKey.
func NewFromAPIKey(apiKey, defaultModel string) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("anthropic: api key is required")
	}
	sc := sdk.NewClient(option.WithAPIKey(apiKey))
	return New(&sc.Messages, Options{DefaultModel: defaultModel})
}

// Complete implements model.Client.
func (c *Client) Complete(ctx context.Context, req *model.Request) (*model.Response, error) {
	params, err := c.prepareRequest(req)
	if err != nil {
		return nil, err
	}
	msg, err := c.msg.New(ctx, *params)
	if err != nil {
		return nil, c.classifyError(err)
	}
	return translateResponse(msg)
}

func (c *Client) prepareRequest(req *model.Request) (*sdk.MessageNewParams, error) {
	if len(req.Messages) == 0 {
		return nil, errors.New("anthropic: at least one message is required")
	}
	msgs, err := encodeMessages(req.Messages)
	if err != nil {
		return nil, err
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}
	if maxTokens <= 0 {
		return nil, errors.New("anthropic: max_tokens must be positive")
	}
	modelID := req.Model
	if modelID == "" {
		modelID = c.defaultModel
	}
	params := &sdk.MessageNewParams{
		Model:     sdk.Model(modelID),
		MaxTokens: int64(maxTokens),
		Messages:  msgs,
	}
	if req.System != "" {
		params.System = []sdk.TextBlockParam{{Text: req.System}}
	}
	if temp := req.Temperature; temp > 0 {
		params.Temperature = sdk.Float(temp)
	} else if c.temperature > 0 {
		params.Temperature = sdk.Float(c.temperature)
	}
	if len(req.Tools) > 0 {
		tools, err := encodeTools(req.Tools)
		if err != nil {
			return nil, err
		}
		params.Tools = tools
	}
	return params, nil
}

func encodeMessages(msgs []*model.Message) ([]sdk.MessageParam, error) {
	out := make([]sdk.MessageParam, 0, len(msgs))
	for _, m := range msgs {
		if m == nil {
			continue
		}
		blocks := make([]sdk.ContentBlockParamUnion, 0, len(m.Parts))
		for _, part := range m.Parts {
			switch v := part.(type) {
			case model.TextPart:
				if v.Text != "" {
					blocks = append(blocks, sdk.NewTextBlock(v.Text))
				}
			case model.ToolUsePart:
				if v.Name == "" {
					return nil, errors.New("anthropic: tool_use part missing name")
				}
				blocks = append(blocks, sdk.NewToolUseBlock(v.ID, v.Input, v.Name))
			case model.ToolResultPart:
				blocks = append(blocks, sdk.NewToolResultBlock(v.ToolUseID, v.Content, v.IsError))
			default:
				return nil, fmt.Errorf("anthropic: unsupported message part %T", part)
			}
		}
		if len(blocks) == 0 {
			continue
		}
		switch m.Role {
		case model.ConversationRoleUser:
			out = append(out, sdk.NewUserMessage(blocks...))
		case model.ConversationRoleAssistant:
			out = append(out, sdk.NewAssistantMessage(blocks...))
		default:
			return nil, fmt.Errorf("anthropic: unsupported message role %q outside system", m.Role)
		}
	}
	if len(out) == 0 {
		return nil, errors.New("anthropic: at least one user/assistant message is required")
	}
	return out, nil
}

func encodeTools(defs []*model.ToolDefinition) ([]sdk.ToolUnionParam, error) {
	out := make([]sdk.ToolUnionParam, 0, len(defs))
	for _, def := range defs {
		if def == nil || def.Name == "" {
			continue
		}
		schema, err := toolInputSchema(def.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("anthropic: tool %q schema: %w", def.Name, err)
		}
		param := sdk.ToolParam{Name: def.Name, InputSchema: schema}
		if def.Description != "" {
			param.Description = sdk.String(def.Description)
		}
		out = append(out, sdk.ToolUnionParam{OfTool: &param})
	}
	return out, nil
}

// toolInputSchema translates a tool.Schema's JSON-shaped output (via
// MarshalJSON) into the SDK's param struct, which pulls properties/required
// out as named fields and keeps anything else as ExtraFields.
func toolInputSchema(schema any) (sdk.ToolInputSchemaParam, error) {
	out := sdk.ToolInputSchemaParam{Type: constant.ValueOf[constant.Object]()}
	if schema == nil {
		return out, nil
	}
	data, err := json.Marshal(schema)
	if err != nil {
		return sdk.ToolInputSchemaParam{}, err
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return sdk.ToolInputSchemaParam{}, err
	}
	if props, ok := fields["properties"]; ok {
		out.Properties = props
		delete(fields, "properties")
	}
	if req, ok := fields["required"]; ok {
		if items, ok := req.([]any); ok {
			for _, item := range items {
				if s, ok := item.(string); ok {
					out.Required = append(out.Required, s)
				}
			}
		}
		delete(fields, "required")
	}
	delete(fields, "type")
	if len(fields) > 0 {
		out.ExtraFields = fields
	}
	return out, nil
}

func translateResponse(msg *sdk.Message) (*model.Response, error) {
	if msg == nil {
		return nil, errors.New("anthropic: response message is nil")
	}
	resp := &model.Response{StopReason: string(msg.StopReason)}
	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			if block.Text != "" {
				resp.Content = append(resp.Content, model.TextPart{Text: block.Text})
			}
		case "tool_use":
			resp.Content = append(resp.Content, model.ToolUsePart{
				ID:    block.ID,
				Name:  block.Name,
				Input: block.Input,
			})
		}
	}
	resp.Usage = model.TokenUsage{
		InputTokens:  int(msg.Usage.InputTokens),
		OutputTokens: int(msg.Usage.OutputTokens),
	}
	return resp, nil
}

// classifyError maps an Anthropic SDK error into a model.ProviderError so
// callers (and the engine's result.NewAPIError wrapping) can distinguish
// retryable failures from ones a retry cannot fix, without parsing strings.
func (c *Client) classifyError(err error) error {
	var apiErr *sdk.Error
	if !errors.As(err, &apiErr) {
		return model.NewProviderError("anthropic", "messages.new", 0, model.ProviderErrorKindUnknown, "", err.Error(), "", false, err)
	}
	kind, retryable := classifyStatus(apiErr.StatusCode)
	message := ""
	code := ""
	requestID := apiErr.RequestID
	var payload struct {
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
		RequestID string `json:"request_id"`
	}
	if raw := apiErr.RawJSON(); raw != "" && json.Unmarshal([]byte(raw), &payload) == nil {
		if payload.Error.Message != "" {
			message = payload.Error.Message
		}
		code = payload.Error.Type
		if payload.RequestID != "" {
			requestID = payload.RequestID
		}
	}
	if message == "" {
		message = apiErr.Error()
	}
	return model.NewProviderError("anthropic", "messages.new", apiErr.StatusCode, kind, code, message, requestID, retryable, apiErr)
}

func classifyStatus(status int) (model.ProviderErrorKind, bool) {
	switch {
	case status == 401 || status == 403:
		return model.ProviderErrorKindAuth, false
	case status == 429:
		return model.ProviderErrorKindRateLimited, true
	case status == 400 || status == 404 || status == 422:
		return model.ProviderErrorKindInvalidRequest, false
	case status >= 500:
		return model.ProviderErrorKindUnavailable, true
	default:
		return model.ProviderErrorKindUnknown, false
	}
}
