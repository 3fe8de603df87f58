// Package ocr talks to a ddddocr-compatible recognition service.
package ocr

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PentesterFlow/OpenPage/internal/errors"
	"github.com/PentesterFlow/OpenPage/internal/ratelimit"
)

// Classifier recognises captcha images.
type Classifier interface {
	// Classify returns the text shown in a character captcha image.
	Classify(ctx context.Context, image []byte) (string, error)
	// SlideMatch locates the slider piece target inside background.
	SlideMatch(ctx context.Context, target, background []byte) (*SlideResult, error)
}

// SlideResult is the box where the slider piece fits, as
// [x1, y1, x2, y2] in background pixels.
type SlideResult struct {
	Target []int `json:"target"`
}

// X returns the left edge of the matched box.
func (r *SlideResult) X() (int, error) {
	if r == nil || len(r.Target) == 0 {
		return 0, fmt.Errorf("slide match returned no target")
	}
	return r.Target[0], nil
}

// Config holds configuration for the recognition client.
type Config struct {
	Endpoint          string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	Retry             errors.RetryConfig
}

// DefaultConfig returns defaults for a service on localhost.
func DefaultConfig() Config {
	return Config{
		Endpoint:          "http://127.0.0.1:9898",
		Timeout:           15 * time.Second,
		RequestsPerSecond: 5,
		Burst:             2,
		Retry:             errors.DefaultRetryConfig(),
	}
}

// Client is an HTTP client for the recognition service.
type Client struct {
	client   *http.Client
	endpoint string
	limiter  *ratelimit.Adaptive
	retrier  *errors.Retrier
}

// NewClient creates a recognition client.
func NewClient(config Config) *Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
	}

	minRate := config.RequestsPerSecond / 4
	return &Client{
		client: &http.Client{
			Transport: transport,
			Timeout:   config.Timeout,
		},
		endpoint: strings.TrimRight(config.Endpoint, "/"),
		limiter:  ratelimit.NewAdaptive(minRate, config.RequestsPerSecond, config.Burst, 10),
		retrier:  errors.NewRetrier(config.Retry),
	}
}

// Endpoint returns the service base URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

type response struct {
	Code int             `json:"code"`
	Data json.RawMessage `json:"data"`
	Msg  string          `json:"msg"`
}

// Classify sends a character captcha for recognition.
func (c *Client) Classify(ctx context.Context, image []byte) (string, error) {
	if len(image) == 0 {
		return "", errors.NewInvalidArgumentError("ocr", "image is empty")
	}

	form := url.Values{}
	form.Set("image", base64.StdEncoding.EncodeToString(image))

	data, err := c.call(ctx, "ocr", "/ocr", form)
	if err != nil {
		return "", err
	}

	var text string
	if err := json.Unmarshal(data, &text); err != nil {
		return "", errors.NewRecognitionError("ocr", "unexpected ocr payload", err)
	}
	return text, nil
}

// SlideMatch asks the service where target fits in background.
func (c *Client) SlideMatch(ctx context.Context, target, background []byte) (*SlideResult, error) {
	if len(target) == 0 || len(background) == 0 {
		return nil, errors.NewInvalidArgumentError("slide_match", "slider and background images are required")
	}

	form := url.Values{}
	form.Set("target", base64.StdEncoding.EncodeToString(target))
	form.Set("background", base64.StdEncoding.EncodeToString(background))
	form.Set("simple_target", "true")

	data, err := c.call(ctx, "slide_match", "/slide_match", form)
	if err != nil {
		return nil, err
	}

	var result SlideResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, errors.NewRecognitionError("slide_match", "unexpected slide match payload", err)
	}
	if len(result.Target) == 0 {
		return nil, errors.NewRecognitionError("slide_match", "slide match returned no target", nil)
	}
	return &result, nil
}

// call posts form to path with pacing and retries and returns the data
// field of a successful reply.
func (c *Client) call(ctx context.Context, operation, path string, form url.Values) (json.RawMessage, error) {
	target := c.endpoint + path

	data, result := errors.DoWithResult(ctx, c.retrier, operation, target, func(ctx context.Context) (json.RawMessage, error) {
		if err := c.limiter.WaitEndpoint(ctx, path); err != nil {
			return nil, errors.Categorize(err, operation, target)
		}

		data, err := c.post(ctx, operation, target, form)
		if err != nil {
			c.limiter.RecordError()
			return nil, err
		}
		c.limiter.RecordSuccess()
		return data, nil
	})
	if !result.Success {
		return nil, result.LastError
	}
	return data, nil
}

func (c *Client) post(ctx context.Context, operation, target string, form url.Values) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, errors.NewInvalidArgumentError(operation, err.Error())
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Categorize(err, operation, target)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, errors.NewServiceError(operation, target, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, errors.NewNetworkError(operation, target, err)
	}

	var r response
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, errors.NewRecognitionError(operation, "invalid service response", err)
	}
	if r.Code != http.StatusOK {
		msg := r.Msg
		if msg == "" {
			msg = fmt.Sprintf("service reported code %d", r.Code)
		}
		return nil, errors.NewRecognitionError(operation, msg, nil)
	}
	return r.Data, nil
}
