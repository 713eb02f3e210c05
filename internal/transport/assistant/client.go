// Package assistant resolves tenant tokens through the assistant directory HTTP API.
package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/kailas-cloud/ragchat/internal/domain"
	"github.com/kailas-cloud/ragchat/internal/domain/assistant"
	"github.com/kailas-cloud/ragchat/internal/domain/prompt"
)

const maxBodyBytes = 1 << 20

// Config holds the directory client settings.
type Config struct {
	Endpoint string
	Timeout  time.Duration
	Attempts uint
	Delay    time.Duration
}

// Client is the assistant directory client.
type Client struct {
	endpoint string
	http     *http.Client
	attempts uint
	delay    time.Duration
}

// New creates a directory client.
func New(cfg Config) *Client {
	attempts := cfg.Attempts
	if attempts == 0 {
		attempts = 3
	}
	delay := cfg.Delay
	if delay <= 0 {
		delay = 200 * time.Millisecond
	}
	return &Client{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		http:     &http.Client{Timeout: cfg.Timeout},
		attempts: attempts,
		delay:    delay,
	}
}

// detailsResponse is the directory payload for GET /assistants/get-assistant-details/{token}/.
type detailsResponse struct {
	Name     string `json:"name"`
	IsActive *bool  `json:"is_active"`
	Message  string `json:"message"`
	Prompts  struct {
		Standalone string `json:"STANDALONE_QUESTION_PROMPT"`
		Answer     string `json:"QUESTION_ANSWER_PROMPT"`
		FollowUp   string `json:"GENERATE_FOLLOWUP_QUESTIONS_PROMPT"`
	} `json:"prompts"`
}

// Resolve returns the active assistant for a token.
// Unknown or inactive tokens yield domain.ErrAssistantUnavailable.
// Transport failures and 5xx responses are retried, then reported as domain.ErrDirectoryUnavailable.
func (c *Client) Resolve(ctx context.Context, token string) (assistant.Assistant, error) {
	if strings.TrimSpace(token) == "" {
		return assistant.Assistant{}, fmt.Errorf("empty token: %w", domain.ErrAssistantUnavailable)
	}

	var body detailsResponse
	err := retry.Do(
		func() error {
			var fetchErr error
			body, fetchErr = c.fetch(ctx, token)
			return fetchErr
		},
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(c.delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		if errors.Is(err, domain.ErrAssistantUnavailable) {
			return assistant.Assistant{}, err
		}
		// A caller that went away or ran out of time is not a directory outage.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return assistant.Assistant{}, fmt.Errorf("resolve assistant: %w", ctxErr)
		}
		return assistant.Assistant{}, fmt.Errorf("resolve assistant: %w: %w", domain.ErrDirectoryUnavailable, err)
	}

	if body.IsActive != nil && !*body.IsActive {
		return assistant.Assistant{}, fmt.Errorf("assistant inactive: %w", domain.ErrAssistantUnavailable)
	}

	a := assistant.Assistant{
		Token:  token,
		Name:   body.Name,
		Active: true,
		Prompts: assistant.Prompts{
			Standalone: prompt.Template(body.Prompts.Standalone),
			Answer:     prompt.Template(body.Prompts.Answer),
			FollowUp:   prompt.Template(body.Prompts.FollowUp),
		},
	}
	return a.WithDefaults(), nil
}

func (c *Client) fetch(ctx context.Context, token string) (detailsResponse, error) {
	u := c.endpoint + "/assistants/get-assistant-details/" + url.PathEscape(token) + "/"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return detailsResponse{}, retry.Unrecoverable(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return detailsResponse{}, fmt.Errorf("directory request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return detailsResponse{}, fmt.Errorf("read directory response: %w", err)
	}

	var body detailsResponse
	decodeErr := json.Unmarshal(raw, &body)

	switch {
	case resp.StatusCode == http.StatusOK:
		if decodeErr != nil {
			return detailsResponse{}, retry.Unrecoverable(fmt.Errorf("decode directory response: %w", decodeErr))
		}
		return body, nil
	case resp.StatusCode >= http.StatusInternalServerError:
		return detailsResponse{}, fmt.Errorf("directory status %d", resp.StatusCode)
	default:
		msg := body.Message
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return detailsResponse{}, retry.Unrecoverable(
			fmt.Errorf("directory status %d: %s: %w", resp.StatusCode, msg, domain.ErrAssistantUnavailable))
	}
}
