package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Lllllllleong/bookingworkflow/internal/models"
)

// maxErrorBody bounds how much of a failed response is kept for diagnostics.
const maxErrorBody = 8 << 10

// Config configures the completion-service client.
type Config struct {
	BaseURL         string
	APIKey          string
	Model           string
	ReasoningEffort string
	Timeout         time.Duration
}

// Client sends prompts to the completion service. It never retries: each
// call may already have triggered tool-broker side effects.
type Client struct {
	httpClient *http.Client
	config     Config
	logger     *zap.Logger
}

func NewClient(config Config, logger *zap.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: config.Timeout},
		config:     config,
		logger:     logger.With(zap.String("component", "gateway")),
	}
}

type responsesRequest struct {
	Model     string          `json:"model"`
	Input     string          `json:"input"`
	Tools     []remoteTool    `json:"tools"`
	Reasoning *reasoningParam `json:"reasoning,omitempty"`
}

type reasoningParam struct {
	Effort string `json:"effort"`
}

// remoteTool declares a tool-broker server. AllowedTools bounds what the
// completion service may invoke on it.
type remoteTool struct {
	Type            string            `json:"type"`
	ServerLabel     string            `json:"server_label"`
	ServerURL       string            `json:"server_url"`
	Headers         map[string]string `json:"headers,omitempty"`
	AllowedTools    []string          `json:"allowed_tools"`
	RequireApproval string            `json:"require_approval"`
}

// Complete performs exactly one outbound call.
func (c *Client) Complete(ctx context.Context, req models.CompletionRequest) (models.RawResponse, error) {
	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}

	payload := responsesRequest{
		Model: c.config.Model,
		Input: req.Prompt,
		Tools: declareTools(req.Tools),
	}
	if c.config.ReasoningEffort != "" {
		payload.Reasoning = &reasoningParam{Effort: c.config.ReasoningEffort}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal completion request: %w", err)
	}

	endpoint := strings.TrimSuffix(c.config.BaseURL, "/") + "/responses"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build completion request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		kind := KindNetwork
		if isTimeout(ctx, err) {
			kind = KindTimeout
		}
		c.logger.Error("completion call failed", zap.String("kind", string(kind)), zap.Duration("elapsed", time.Since(start)), zap.Error(err))
		return nil, &CallError{Kind: kind, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.Error("completion service returned non-2xx",
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(snippet)),
		)
		return nil, &CallError{Kind: KindStatus, StatusCode: resp.StatusCode, Body: string(snippet)}
	}

	var decoded interface{}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		kind := KindDecode
		if isTimeout(ctx, err) {
			kind = KindTimeout
		}
		return nil, &CallError{Kind: kind, StatusCode: resp.StatusCode, Err: err}
	}

	// Any JSON is a delivered response. Shapes other than an object are left
	// for the text resolver to reject with its diagnostics.
	raw, ok := decoded.(map[string]interface{})
	if !ok {
		c.logger.Warn("completion service returned a non-object body", zap.String("jsonType", jsonType(decoded)))
		return models.RawResponse{}, nil
	}

	c.logger.Info("completion call finished", zap.Duration("elapsed", time.Since(start)), zap.Int("responseKeys", len(raw)))
	return raw, nil
}

func jsonType(v interface{}) string {
	switch v.(type) {
	case nil:
		return "null"
	case []interface{}:
		return "array"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func declareTools(set models.ToolSet) []remoteTool {
	if set.ServerURL == "" || len(set.AllowedActions) == 0 {
		return []remoteTool{}
	}
	tool := remoteTool{
		Type:            "mcp",
		ServerLabel:     set.ServerLabel,
		ServerURL:       set.ServerURL,
		AllowedTools:    append([]string(nil), set.AllowedActions...),
		RequireApproval: "never",
	}
	if set.BearerToken != "" {
		tool.Headers = map[string]string{"Authorization": "Bearer " + set.BearerToken}
	}
	return []remoteTool{tool}
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
