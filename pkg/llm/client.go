package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/alphasolve/alphasolve/pkg/config"
	"github.com/alphasolve/alphasolve/pkg/httpclient"
	"github.com/alphasolve/alphasolve/pkg/observability"
)

type chatRequest struct {
	Model           string    `json:"model"`
	Messages        []Message `json:"messages"`
	Temperature     *float64  `json:"temperature,omitempty"`
	Stream          bool      `json:"stream"`
	Tools           []ToolDef `json:"tools,omitempty"`
	ToolChoice      string    `json:"tool_choice,omitempty"`
	ReasoningEffort string    `json:"reasoning_effort,omitempty"`
}

type streamResponse struct {
	Choices []streamChoice `json:"choices"`
	Usage   *usage         `json:"usage,omitempty"`
	Error   *apiError      `json:"error,omitempty"`
}

type streamChoice struct {
	Delta        delta  `json:"delta"`
	FinishReason string `json:"finish_reason"`
}

type delta struct {
	Content          string          `json:"content,omitempty"`
	ReasoningContent string          `json:"reasoning_content,omitempty"`
	ToolCalls        []toolCallDelta `json:"tool_calls,omitempty"`
}

// toolCallDelta is one streamed fragment of a tool call. Index is a pointer
// because providers that stream a single call may omit it entirely.
type toolCallDelta struct {
	Index    *int         `json:"index"`
	ID       string       `json:"id,omitempty"`
	Type     string       `json:"type,omitempty"`
	Function FunctionCall `json:"function"`
}

type usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

// completionTurn is the assembled result of one streamed completion.
type completionTurn struct {
	content   string
	reasoning string
	toolCalls []ToolCall
	usage     *usage
}

// Client is a streaming tool-calling chat-completion client bound to one
// model configuration. A Client has no mutable state across calls beyond its
// HTTP client, so one instance may serve concurrent conversations.
type Client struct {
	config     *config.ModelConfig
	apiKey     string
	httpClient *httpclient.Client
	counter    *TokenCounter
	stream     io.Writer
	defaults   []ToolDef
}

type Option func(*Client)

// WithStreamWriter forwards raw content and reasoning fragments to w as they
// stream in. Write errors are ignored; the writer must tolerate partial
// lines.
func WithStreamWriter(w io.Writer) Option {
	return func(c *Client) {
		c.stream = w
	}
}

// WithHTTPClient replaces the retrying HTTP client, mainly for tests.
func WithHTTPClient(client *httpclient.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithDefaultTools sets the tool definitions used when a caller passes nil
// tools to GetResult.
func WithDefaultTools(tools []ToolDef) Option {
	return func(c *Client) {
		c.defaults = tools
	}
}

// New creates a client for cfg, resolving the API key through the configured
// lookup chain.
func New(cfg *config.ModelConfig, opts ...Option) (*Client, error) {
	apiKey, err := cfg.ResolveAPIKey()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve API key: %w", err)
	}

	counter, err := NewTokenCounter(cfg.Model)
	if err != nil {
		// Token counts are metrics input only, not worth failing over.
		slog.Warn("Token counting degraded to estimates", "model", cfg.Model, "error", err)
		counter = &TokenCounter{model: cfg.Model}
	}

	c := &Client{
		config:  cfg,
		apiKey:  apiKey,
		counter: counter,
		httpClient: httpclient.New(
			httpclient.WithHTTPClient(&http.Client{
				Timeout: time.Duration(cfg.Timeout) * time.Second,
			}),
			httpclient.WithMaxRetries(2),
		),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.config.Model
}

// Counter returns the client's token counter.
func (c *Client) Counter() *TokenCounter {
	return c.counter
}

// GetResult runs a complete conversation: it streams completions, executes
// requested tool calls through dispatcher, and repeats until the model
// answers without tools. It returns the final answer, the final reasoning,
// and the full updated transcript.
//
// A nil tools slice selects the client's configured default tools; an empty
// non-nil slice disables tools for this call. The input messages are
// deep-copied, and any mid-conversation failure restarts from that baseline,
// up to MaxRetries attempts in total.
func (c *Client) GetResult(ctx context.Context, messages []Message, tools []ToolDef, dispatcher Dispatcher) (string, string, []Message, error) {
	if tools == nil {
		tools = c.defaults
	}

	baseline := CloneMessages(messages)

	maxRetries := c.config.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 1
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", "", nil, err
		}

		answer, reasoning, updated, err := c.converse(ctx, CloneMessages(baseline), tools, dispatcher)
		if err == nil {
			return answer, reasoning, updated, nil
		}
		if ctx.Err() != nil {
			return "", "", nil, err
		}

		lastErr = err
		slog.Warn("LLM call failed, restarting from baseline",
			"model", c.config.Model, "attempt", attempt+1, "max", maxRetries, "error", err)
	}

	return "", "", nil, fmt.Errorf("llm call failed after %d attempts: %w", maxRetries, lastErr)
}

// converse is one attempt: a completion loop that feeds tool results back
// until the model stops calling tools.
func (c *Client) converse(ctx context.Context, messages []Message, tools []ToolDef, dispatcher Dispatcher) (string, string, []Message, error) {
	for {
		turn, err := c.streamCompletion(ctx, messages, tools)
		if err != nil {
			return "", "", nil, err
		}

		messages = append(messages, Message{
			Role:             RoleAssistant,
			Content:          turn.content,
			ReasoningContent: turn.reasoning,
			ToolCalls:        turn.toolCalls,
		})

		if len(turn.toolCalls) == 0 {
			return turn.content, turn.reasoning, messages, nil
		}

		if dispatcher == nil {
			return "", "", nil, &ServiceError{Message: "model requested tool calls but no dispatcher is bound"}
		}

		for _, call := range turn.toolCalls {
			var resultText string

			args, err := DecodeToolArguments(call.Function.Arguments)
			if err != nil {
				// Surface the parse failure to the model; the conversation
				// continues and the model may re-issue the call.
				resultText = fmt.Sprintf("Error: %v", err)
			} else {
				resultText, err = dispatcher.Execute(ctx, call.Function.Name, args)
				if err != nil {
					return "", "", nil, err
				}
			}

			messages = append(messages, Message{
				Role:       RoleTool,
				Content:    resultText,
				ToolCallID: call.ID,
			})
		}
	}
}

// streamCompletion performs one streaming chat-completion request and
// assembles the full turn from the SSE fragments.
func (c *Client) streamCompletion(ctx context.Context, messages []Message, tools []ToolDef) (*completionTurn, error) {
	startTime := time.Now()

	tracer := observability.GetTracer("alphasolve.llm")
	ctx, span := tracer.Start(ctx, observability.SpanLLMRequest,
		trace.WithAttributes(
			attribute.String(observability.AttrLLMModel, c.config.Model),
			attribute.Bool("streaming", true),
			attribute.Int("llm.tools", len(tools)),
		),
	)
	defer span.End()

	turn, err := c.doStream(ctx, messages, tools)
	duration := time.Since(startTime)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		metrics := observability.GetGlobalMetrics()
		if metrics != nil {
			metrics.RecordLLMCall(ctx, c.config.Model, duration, 0, 0, err)
		}

		return nil, err
	}

	inputTokens, outputTokens := c.countTurn(messages, turn)

	span.SetAttributes(
		attribute.Int(observability.AttrLLMTokensInput, inputTokens),
		attribute.Int(observability.AttrLLMTokensOutput, outputTokens),
		attribute.Int("llm.tool_calls", len(turn.toolCalls)),
	)
	span.SetStatus(codes.Ok, "success")

	metrics := observability.GetGlobalMetrics()
	if metrics != nil {
		metrics.RecordLLMCall(ctx, c.config.Model, duration, inputTokens, outputTokens, nil)
	}

	return turn, nil
}

// countTurn prefers provider-reported usage and falls back to the tiktoken
// counter when the stream carried none.
func (c *Client) countTurn(messages []Message, turn *completionTurn) (int, int) {
	if turn.usage != nil {
		return turn.usage.PromptTokens, turn.usage.CompletionTokens
	}

	inputTokens := c.counter.CountMessages(messages)
	outputTokens := c.counter.Count(turn.reasoning) + c.counter.Count(turn.content)
	return inputTokens, outputTokens
}

func (c *Client) doStream(ctx context.Context, messages []Message, tools []ToolDef) (*completionTurn, error) {
	requestBody, err := c.encodeRequest(messages, tools)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := strings.TrimRight(c.config.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(requestBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(requestBody)), nil
	}

	req.Header.Set("Content-Type", "application/json")

	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	// The HTTP client may return both a response and an error for non-2xx
	// status codes, so check the response body even when err is set.
	if resp != nil {
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			body, readErr := io.ReadAll(resp.Body)
			errorBody := string(body)
			if readErr != nil {
				errorBody = fmt.Sprintf("(failed to read error body: %v)", readErr)
			}
			if apiErr := parseErrorResponse(body); apiErr != nil {
				return nil, &ServiceError{
					Status:  resp.StatusCode,
					Message: fmt.Sprintf("%s (type: %s, code: %s)", apiErr.Message, apiErr.Type, apiErr.Code),
				}
			}
			return nil, &ServiceError{Status: resp.StatusCode, Message: errorBody}
		}
	}

	if err != nil {
		return nil, &ServiceError{Message: fmt.Sprintf("HTTP request failed: %v", err)}
	}

	if resp == nil {
		return nil, &ServiceError{Message: "HTTP request failed: no response received"}
	}

	return c.readStream(resp.Body)
}

// readStream consumes the SSE body and assembles content, reasoning, and
// tool calls. Tool-call fragments merge by their explicit delta index, never
// by arrival order, and id/name/arguments concatenate per index.
func (c *Client) readStream(body io.Reader) (*completionTurn, error) {
	reader := bufio.NewReader(body)

	var content strings.Builder
	var reasoning strings.Builder
	calls := make(map[int]*ToolCall)
	var streamUsage *usage
	sawFinish := false

	for {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, &ServiceError{Message: fmt.Sprintf("failed to read stream: %v", err)}
		}

		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		if !bytes.HasPrefix(line, []byte("data: ")) {
			continue
		}
		line = line[6:]

		if bytes.Equal(line, []byte("[DONE]")) {
			break
		}

		var chunk streamResponse
		if err := json.Unmarshal(line, &chunk); err != nil {
			continue
		}

		if chunk.Error != nil {
			return nil, &ServiceError{Message: chunk.Error.Message}
		}

		if chunk.Usage != nil {
			streamUsage = chunk.Usage
		}

		if len(chunk.Choices) == 0 {
			continue
		}

		choice := chunk.Choices[0]

		if choice.Delta.ReasoningContent != "" {
			reasoning.WriteString(choice.Delta.ReasoningContent)
			c.writeStream(choice.Delta.ReasoningContent)
		}

		if choice.Delta.Content != "" {
			content.WriteString(choice.Delta.Content)
			c.writeStream(choice.Delta.Content)
		}

		for _, deltaCall := range choice.Delta.ToolCalls {
			idx := 0
			if deltaCall.Index != nil {
				idx = *deltaCall.Index
			}

			call, exists := calls[idx]
			if !exists {
				call = &ToolCall{}
				calls[idx] = call
			}

			call.ID += deltaCall.ID
			if deltaCall.Type != "" {
				call.Type = deltaCall.Type
			}
			call.Function.Name += deltaCall.Function.Name
			call.Function.Arguments += deltaCall.Function.Arguments
		}

		if choice.FinishReason != "" {
			if choice.FinishReason != "stop" && choice.FinishReason != "tool_calls" {
				return nil, &ServiceError{Message: fmt.Sprintf("completion finished with reason %q", choice.FinishReason)}
			}
			// Keep reading: a usage chunk may still follow before [DONE].
			sawFinish = true
		}
	}

	if !sawFinish {
		return nil, &ServiceError{Message: "stream ended without a terminal finish_reason"}
	}

	turn := &completionTurn{
		content:   content.String(),
		reasoning: reasoning.String(),
		usage:     streamUsage,
	}

	if len(calls) > 0 {
		indexes := make([]int, 0, len(calls))
		for idx := range calls {
			indexes = append(indexes, idx)
		}
		sort.Ints(indexes)

		for _, idx := range indexes {
			call := calls[idx]
			if call.Type == "" {
				call.Type = "function"
			}
			turn.toolCalls = append(turn.toolCalls, *call)
		}
	}

	return turn, nil
}

func (c *Client) writeStream(text string) {
	if c.stream == nil {
		return
	}
	_, _ = io.WriteString(c.stream, text)
}

// encodeRequest marshals the request and merges configured extra_body fields
// on top, so provider-specific parameters like thinking modes pass through
// without dedicated struct fields.
func (c *Client) encodeRequest(messages []Message, tools []ToolDef) ([]byte, error) {
	request := chatRequest{
		Model:           c.config.Model,
		Messages:        messages,
		Temperature:     c.config.Temperature,
		Stream:          true,
		Tools:           tools,
		ReasoningEffort: c.config.ReasoningEffort,
	}

	if len(tools) > 0 {
		request.ToolChoice = "auto"
	}

	body, err := json.Marshal(request)
	if err != nil {
		return nil, err
	}

	if len(c.config.ExtraBody) == 0 {
		return body, nil
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}
	for k, v := range c.config.ExtraBody {
		payload[k] = v
	}

	return json.Marshal(payload)
}

// parseErrorResponse extracts error information from API error payloads.
func parseErrorResponse(body []byte) *apiError {
	if len(body) == 0 {
		return nil
	}
	var errorResp struct {
		Error apiError `json:"error"`
	}
	if err := json.Unmarshal(body, &errorResp); err == nil && errorResp.Error.Message != "" {
		return &errorResp.Error
	}
	return nil
}
