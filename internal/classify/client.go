package classify

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/JulesGR953/OptiScam-Framework/internal/services"
)

const (
	defaultHTTPTimeout    = 10 * time.Minute
	defaultRetryMaxDelay  = 10 * time.Second
	defaultRetryBaseDelay = 1 * time.Second
	defaultRetryAttempts  = 3
	topLogprobCount       = 20
	maxCompletionTokens   = 256
)

// Config captures the runtime settings required to talk to the VLM server.
type Config struct {
	BaseURL        string
	Model          string
	APIKey         string
	TimeoutSeconds int
}

// Client wraps an OpenAI-compatible chat completions endpoint serving a
// vision-language model.
type Client struct {
	cfg        Config
	httpClient *http.Client

	retryMaxAttempts int
	retryBaseDelay   time.Duration
	retryMaxDelay    time.Duration
	sleeper          func(time.Duration)
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRetryMaxAttempts overrides the default retry count.
func WithRetryMaxAttempts(attempts int) Option {
	return func(c *Client) {
		c.retryMaxAttempts = attempts
	}
}

// WithRetryBackoff overrides the retry backoff delays.
func WithRetryBackoff(baseDelay, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.retryBaseDelay = baseDelay
		c.retryMaxDelay = maxDelay
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// NewClient constructs a VLM client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			BaseURL:        strings.TrimSpace(cfg.BaseURL),
			Model:          strings.TrimSpace(cfg.Model),
			APIKey:         strings.TrimSpace(cfg.APIKey),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient:       &http.Client{Timeout: timeout},
		retryMaxAttempts: defaultRetryAttempts,
		retryBaseDelay:   defaultRetryBaseDelay,
		retryMaxDelay:    defaultRetryMaxDelay,
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return client
}

type httpStatusError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("vlm request: http %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	Logprobs    bool          `json:"logprobs"`
	TopLogprobs int           `json:"top_logprobs"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type tokenLogprob struct {
	Token   string  `json:"token"`
	Logprob float64 `json:"logprob"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		Logprobs struct {
			Content []struct {
				Token       string         `json:"token"`
				Logprob     float64        `json:"logprob"`
				TopLogprobs []tokenLogprob `json:"top_logprobs"`
			} `json:"content"`
		} `json:"logprobs"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Decision is the outcome of one model call: the calibrated Yes/No answer
// plus the free-form narrative generated after the decision token.
type Decision struct {
	Scam       bool
	Confidence float64
	Reasoning  string
}

// Decide asks the model the verdict question over the given frame images and
// prompt. The scam flag and confidence come from the first-token Yes/No
// logits; the reasoning is the generated text that follows.
func (c *Client) Decide(ctx context.Context, imagePaths []string, userPrompt string) (Decision, error) {
	if strings.TrimSpace(c.cfg.BaseURL) == "" {
		return Decision{}, services.Wrap(
			services.ErrConfiguration, "classifying", "decide", "classifier base url required", nil)
	}

	content := make([]contentPart, 0, len(imagePaths)+1)
	for _, path := range imagePaths {
		encoded, encErr := encodeImageDataURL(path)
		if encErr != nil {
			return Decision{}, encErr
		}
		content = append(content, contentPart{Type: "image_url", ImageURL: &imageURL{URL: encoded}})
	}
	content = append(content, contentPart{Type: "text", Text: userPrompt})

	payload := chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: SystemPrompt},
			{Role: "user", Content: content},
		},
		Temperature: 0,
		MaxTokens:   maxCompletionTokens,
		Logprobs:    true,
		TopLogprobs: topLogprobCount,
	}

	response, err := c.sendWithRetry(ctx, payload)
	if err != nil {
		return Decision{}, err
	}
	return extractDecision(response)
}

func extractDecision(response chatResponse) (Decision, error) {
	if len(response.Choices) == 0 {
		return Decision{}, services.Wrap(
			services.ErrUnparseableVerdict, "classifying", "decide", "response has no choices", nil)
	}
	logprobContent := response.Choices[0].Logprobs.Content
	if len(logprobContent) == 0 {
		return Decision{}, services.Wrap(
			services.ErrUnparseableVerdict, "classifying", "decide",
			"response carries no logprobs; is the server started with logprobs enabled?", nil)
	}

	first := logprobContent[0]
	candidates := make([]tokenLogprob, 0, len(first.TopLogprobs)+1)
	candidates = append(candidates, tokenLogprob{Token: first.Token, Logprob: first.Logprob})
	candidates = append(candidates, first.TopLogprobs...)

	logitYes, logitNo, okYes, okNo := yesNoLogits(candidates)
	if !okYes && !okNo {
		answer := strings.TrimSpace(response.Choices[0].Message.Content)
		return Decision{}, services.Wrap(
			services.ErrUnparseableVerdict, "classifying", "decide",
			fmt.Sprintf("first token offers neither Yes nor No (content %q)", answer), nil)
	}
	// A missing alternative means the model put it below the reported top
	// logprobs; floor it well under anything observable.
	if !okYes {
		logitYes = logitNo - 40
	}
	if !okNo {
		logitNo = logitYes - 40
	}

	scam, confidence := DecisionProbability(logitYes, logitNo)
	return Decision{
		Scam:       scam,
		Confidence: confidence,
		Reasoning:  reasoningFromContent(response.Choices[0].Message.Content),
	}, nil
}

// reasoningFromContent strips the leading Yes/No answer token so only the
// narrative remains.
func reasoningFromContent(content string) string {
	text := strings.TrimSpace(content)
	lower := strings.ToLower(text)
	for _, answer := range []string{"yes", "no"} {
		if !strings.HasPrefix(lower, answer) {
			continue
		}
		rest := text[len(answer):]
		if rest != "" && !isAnswerBoundary(rune(rest[0])) {
			continue
		}
		return strings.TrimLeft(rest, " \t\n.,:;!-")
	}
	return text
}

func isAnswerBoundary(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '.', ',', ':', ';', '!', '-':
		return true
	}
	return false
}

func yesNoLogits(candidates []tokenLogprob) (logitYes, logitNo float64, okYes, okNo bool) {
	for _, candidate := range candidates {
		token := strings.ToLower(strings.TrimSpace(candidate.Token))
		switch token {
		case "yes":
			if !okYes {
				logitYes = candidate.Logprob
				okYes = true
			}
		case "no":
			if !okNo {
				logitNo = candidate.Logprob
				okNo = true
			}
		}
	}
	return logitYes, logitNo, okYes, okNo
}

func (c *Client) sendWithRetry(ctx context.Context, payload chatRequest) (chatResponse, error) {
	attempts := c.retryAttempts()
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		response, err := c.sendOnce(ctx, payload)
		if err == nil {
			return response, nil
		}

		delay, retry := c.retryDelay(ctx, err, attempt, attempts)
		if !retry {
			return chatResponse{}, err
		}
		if sleepErr := c.sleep(ctx, delay); sleepErr != nil {
			return chatResponse{}, sleepErr
		}
		lastErr = err
	}

	if lastErr == nil {
		lastErr = errors.New("unknown retry failure")
	}
	return chatResponse{}, fmt.Errorf("vlm request: failed after %d attempts: %w", attempts, lastErr)
}

func (c *Client) sendOnce(ctx context.Context, payload chatRequest) (chatResponse, error) {
	var response chatResponse
	encoded, err := json.Marshal(payload)
	if err != nil {
		return response, fmt.Errorf("vlm request: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(encoded))
	if err != nil {
		return response, fmt.Errorf("vlm request: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		var opErr *net.OpError
		if errors.As(err, &opErr) {
			return response, services.Wrap(
				services.ErrEngineUnavailable, "classifying", "decide",
				fmt.Sprintf("vlm server at %s unreachable", c.cfg.BaseURL), err)
		}
		return response, fmt.Errorf("vlm request: http error: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return response, fmt.Errorf("vlm request: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		retryAfter, _ := parseRetryAfter(resp.Header.Get("Retry-After"))
		return response, &httpStatusError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
			RetryAfter: retryAfter,
		}
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return response, fmt.Errorf("vlm request: decode response: %w", err)
	}
	if response.Error != nil {
		return response, fmt.Errorf("vlm request: api error: %s", strings.TrimSpace(response.Error.Message))
	}
	return response, nil
}

// HealthCheck verifies the VLM endpoint accepts connections.
func (c *Client) HealthCheck(ctx context.Context) error {
	if strings.TrimSpace(c.cfg.BaseURL) == "" {
		return errors.New("classifier base url required")
	}
	parsed, err := url.Parse(c.cfg.BaseURL)
	if err != nil {
		return fmt.Errorf("parse base url: %w", err)
	}
	parsed.Path = "/v1/models"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return err
	}
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	_ = resp.Body.Close()
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("vlm server returned http %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) retryAttempts() int {
	if c == nil || c.retryMaxAttempts <= 0 {
		return 1
	}
	return c.retryMaxAttempts
}

func (c *Client) retryDelay(ctx context.Context, err error, attempt, maxAttempts int) (time.Duration, bool) {
	if attempt >= maxAttempts || err == nil || ctx == nil || ctx.Err() != nil {
		return 0, false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return 0, false
	}
	if errors.Is(err, services.ErrUnparseableVerdict) {
		return 0, false
	}

	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.StatusCode == http.StatusRequestTimeout,
			statusErr.StatusCode == http.StatusTooManyRequests,
			statusErr.StatusCode >= http.StatusInternalServerError:
			if statusErr.RetryAfter > 0 {
				return c.capDelay(statusErr.RetryAfter), true
			}
			return c.backoffDelay(attempt), true
		default:
			return 0, false
		}
	}

	if errors.Is(err, services.ErrEngineUnavailable) {
		return c.backoffDelay(attempt), true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return c.backoffDelay(attempt), true
	}

	return 0, false
}

func (c *Client) backoffDelay(attempt int) time.Duration {
	base := c.retryBaseDelay
	if base <= 0 {
		base = defaultRetryBaseDelay
	}
	maxDelay := c.retryMaxDelay
	if maxDelay <= 0 {
		maxDelay = defaultRetryMaxDelay
	}

	delay := base
	for i := 1; i < attempt; i++ {
		if delay > maxDelay/2 {
			delay = maxDelay
			break
		}
		delay *= 2
	}
	return c.capDelay(delay)
}

func (c *Client) capDelay(delay time.Duration) time.Duration {
	if delay < 0 {
		return 0
	}
	maxDelay := c.retryMaxDelay
	if maxDelay <= 0 {
		maxDelay = defaultRetryMaxDelay
	}
	if delay > maxDelay {
		return maxDelay
	}
	return delay
}

func (c *Client) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if c.sleeper != nil {
		c.sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func parseRetryAfter(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	if when, err := http.ParseTime(value); err == nil {
		delay := time.Until(when)
		if delay < 0 {
			return 0, false
		}
		return delay, true
	}
	return 0, false
}

func encodeImageDataURL(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read frame image: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(data), nil
}
