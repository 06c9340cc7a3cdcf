package vision

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/ppiankov/shotspectre/internal/screenshot"
)

var mimeTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webp": "image/webp",
	".gif":  "image/gif",
}

// Analyzer classifies screenshots through a chat-completion backend.
// It is safe for concurrent use when the underlying ChatAPI is.
type Analyzer struct {
	api            ChatAPI
	model          string
	requestTimeout time.Duration
}

// NewAnalyzer creates an Analyzer. An empty model selects DefaultModel.
// A zero requestTimeout leaves each call bounded only by the caller's context.
func NewAnalyzer(api ChatAPI, model string, requestTimeout time.Duration) *Analyzer {
	if model == "" {
		model = DefaultModel
	}
	return &Analyzer{api: api, model: model, requestTimeout: requestTimeout}
}

// Model returns the backend model identifier.
func (a *Analyzer) Model() string {
	return a.model
}

// Analyze sends one screenshot to the backend and returns its outcome.
// Every fault is reported as a Failure; Analyze never returns an error.
func (a *Analyzer) Analyze(ctx context.Context, img screenshot.ImageFile) screenshot.Outcome {
	if err := ctx.Err(); err != nil {
		return screenshot.Failuref(screenshot.FailureCanceled, "analysis not started: %v", err)
	}

	data, err := os.ReadFile(img.Path)
	if err != nil {
		return screenshot.Failuref(screenshot.FailureIO, "read image: %v", err)
	}

	req := a.buildRequest(dataURL(img.Ext, data))

	callCtx := ctx
	if a.requestTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, a.requestTimeout)
		defer cancel()
	}

	slog.Debug("Sending screenshot for analysis", "file", img.Name, "model", a.model, "bytes", len(data))
	resp, err := a.api.CreateChatCompletion(callCtx, req)
	if err != nil {
		return classifyError(ctx, err, a.requestTimeout)
	}

	if len(resp.Choices) == 0 {
		return screenshot.Failure(screenshot.FailureBackend, "empty response: no choices returned")
	}

	findings, raw, err := decodeFindings(resp.Choices[0].Message.Content)
	if err != nil {
		return screenshot.Failuref(screenshot.FailureBackend, "malformed response: %v", err)
	}

	usage := screenshot.Usage{
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}
	return screenshot.Success(findings, raw, usage)
}

func (a *Analyzer) buildRequest(imageURL string) openai.ChatCompletionRequest {
	req := openai.ChatCompletionRequest{
		Model: a.model,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: userPrompt},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    imageURL,
							Detail: openai.ImageURLDetailHigh,
						},
					},
				},
			},
		},
	}
	if isReasoningModel(a.model) {
		req.MaxCompletionTokens = maxTokens
	} else {
		req.MaxTokens = maxTokens
	}
	return req
}

// classifyError maps a failed call to a Failure. Cancellation of the run
// context is reported as canceled; an expired per-request timeout is a
// backend failure.
func classifyError(runCtx context.Context, err error, requestTimeout time.Duration) screenshot.Outcome {
	if runCtx.Err() != nil {
		return screenshot.Failuref(screenshot.FailureCanceled, "analysis interrupted: %v", runCtx.Err())
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return screenshot.Failuref(screenshot.FailureBackend, "request timed out after %s", requestTimeout)
	}
	if errors.Is(err, context.Canceled) {
		return screenshot.Failuref(screenshot.FailureCanceled, "analysis interrupted: %v", err)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return screenshot.Failure(screenshot.FailureBackend, describeAPIError(apiErr))
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return screenshot.Failuref(screenshot.FailureBackend, "request failed with status %d: %v", reqErr.HTTPStatusCode, reqErr.Err)
	}
	return screenshot.Failuref(screenshot.FailureBackend, "chat completion: %v", err)
}

func describeAPIError(e *openai.APIError) string {
	msg := fmt.Sprintf("api error (status %d", e.HTTPStatusCode)
	if e.Type != "" {
		msg += ", type " + e.Type
	}
	if code, ok := e.Code.(string); ok && code != "" {
		msg += ", code " + code
	}
	return msg + "): " + e.Message
}

func dataURL(ext string, data []byte) string {
	mime, ok := mimeTypes[ext]
	if !ok {
		mime = "image/jpeg"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}
