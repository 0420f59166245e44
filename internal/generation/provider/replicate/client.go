// Package replicate runs models on the Replicate predictions API.
package replicate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/smallbiznis/genstudio/internal/generation/domain"
	"github.com/smallbiznis/genstudio/internal/generation/provider"
	"go.uber.org/zap"
)

const (
	Name = "replicate"

	defaultBaseURL      = "https://api.replicate.com"
	defaultPollInterval = time.Second
	requestTimeout      = 90 * time.Second
)

const (
	statusStarting   = "starting"
	statusProcessing = "processing"
	statusSucceeded  = "succeeded"
	statusFailed     = "failed"
	statusCanceled   = "canceled"
)

var (
	ErrMissingToken     = errors.New("replicate: api token is required")
	ErrPredictionFailed = errors.New("replicate: prediction did not succeed")
)

type Factory struct{}

func (Factory) Provider() string { return Name }

func (Factory) New(cfg provider.Config) (domain.Provider, error) {
	return New(cfg)
}

type Client struct {
	http         *resty.Client
	pollInterval time.Duration
	fileOutput   bool
	log          *zap.Logger
}

func New(cfg provider.Config) (*Client, error) {
	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, ErrMissingToken
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}

	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(requestTimeout).
		SetAuthToken(token).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", "genstudio/1.0")

	return &Client{
		http:         httpClient,
		pollInterval: interval,
		fileOutput:   cfg.FileOutput,
		log:          log.Named("replicate"),
	}, nil
}

func (c *Client) Name() string { return Name }

type prediction struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  any             `json:"error"`
}

type apiError struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
	Status int    `json:"status"`
}

// Run creates a prediction, waits for it to reach a terminal state and
// decodes its output. Cancellation only comes from ctx.
func (c *Client) Run(ctx context.Context, inv domain.Invocation) (domain.Output, error) {
	pred, err := c.create(ctx, inv)
	if err != nil {
		return domain.Null(), err
	}

	for !isTerminal(pred.Status) {
		timer := time.NewTimer(c.pollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return domain.Null(), fmt.Errorf("replicate: waiting for prediction %s: %w", pred.ID, ctx.Err())
		case <-timer.C:
		}

		pred, err = c.get(ctx, pred.ID)
		if err != nil {
			return domain.Null(), err
		}
	}

	if pred.Status != statusSucceeded {
		return domain.Null(), fmt.Errorf("%w: prediction %s %s: %v", ErrPredictionFailed, pred.ID, pred.Status, pred.Error)
	}

	c.log.Debug("prediction succeeded",
		zap.String("prediction_id", pred.ID),
		zap.String("model", inv.Model),
	)
	return DecodeOutput(pred.Output, c.fileOutput)
}

func (c *Client) create(ctx context.Context, inv domain.Invocation) (*prediction, error) {
	owner, name, version, err := parseModel(inv.Model)
	if err != nil {
		return nil, err
	}

	body := map[string]any{"input": inv.Input}
	path := fmt.Sprintf("/v1/models/%s/%s/predictions", owner, name)
	if version != "" {
		body["version"] = version
		path = "/v1/predictions"
	}

	var (
		res     prediction
		errResp apiError
	)
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Prefer", "wait").
		SetBody(body).
		SetResult(&res).
		SetError(&errResp).
		Post(path)
	if err != nil {
		return nil, fmt.Errorf("replicate: create prediction: %w", err)
	}
	if resp.StatusCode() != http.StatusCreated && resp.StatusCode() != http.StatusOK && resp.StatusCode() != http.StatusAccepted {
		return nil, fmt.Errorf("replicate: create prediction: status %d: %s", resp.StatusCode(), errResp.message(resp.String()))
	}
	if res.ID == "" {
		return nil, errors.New("replicate: create prediction: missing prediction id")
	}
	return &res, nil
}

func (c *Client) get(ctx context.Context, id string) (*prediction, error) {
	var (
		res     prediction
		errResp apiError
	)
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", id).
		SetResult(&res).
		SetError(&errResp).
		Get("/v1/predictions/{id}")
	if err != nil {
		return nil, fmt.Errorf("replicate: get prediction %s: %w", id, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("replicate: get prediction %s: status %d: %s", id, resp.StatusCode(), errResp.message(resp.String()))
	}
	return &res, nil
}

func (e apiError) message(fallback string) string {
	if e.Detail != "" {
		return e.Detail
	}
	if e.Title != "" {
		return e.Title
	}
	if len(fallback) > 256 {
		return fallback[:256]
	}
	return fallback
}

func isTerminal(status string) bool {
	switch status {
	case statusSucceeded, statusFailed, statusCanceled:
		return true
	default:
		return false
	}
}

// parseModel splits "owner/name" or "owner/name:version".
func parseModel(ref string) (owner, name, version string, err error) {
	ref = strings.TrimSpace(ref)
	if i := strings.LastIndex(ref, ":"); i >= 0 {
		version = ref[i+1:]
		ref = ref[:i]
	}
	parts := strings.Split(ref, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", "", fmt.Errorf("replicate: invalid model reference %q", ref)
	}
	return parts[0], parts[1], version, nil
}
