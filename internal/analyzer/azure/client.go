// Package azure implements models.DocumentAnalyzer on top of the Azure
// Document Intelligence (Form Recognizer) REST API.
package azure

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/kiranshivaraju/docextract/internal/config"
	"github.com/kiranshivaraju/docextract/pkg/models"
)

const (
	keyHeader          = "Ocp-Apim-Subscription-Key"
	defaultModel       = "prebuilt-document"
	defaultAPIVersion  = "2023-07-31"
	defaultPollEvery   = time.Second
	maxPollInterval    = 10 * time.Second
	requestTimeout     = 2 * time.Minute
	maxErrorBodyLength = 64 << 10
)

// Sentinel errors for Document Intelligence failures.
var (
	ErrServiceUnavailable = errors.New("analysis service unavailable")
	ErrAnalysisFailed     = errors.New("document analysis failed")
	ErrAnalysisTimeout    = errors.New("document analysis timeout")
	ErrInvalidResponse    = errors.New("analysis service returned invalid response")
)

var errStillRunning = errors.New("analysis operation still running")

// Client submits documents to a Document Intelligence resource and polls the
// resulting long-running operation until it finishes.
type Client struct {
	endpoint     string
	key          string
	model        string
	apiVersion   string
	pollInterval time.Duration
	client       *http.Client
}

// NewClient creates a new Document Intelligence client.
func NewClient(cfg config.AzureConfig) *Client {
	c := &Client{
		endpoint:     strings.TrimRight(cfg.Endpoint, "/"),
		key:          cfg.Key,
		model:        cfg.Model,
		apiVersion:   cfg.APIVersion,
		pollInterval: cfg.PollInterval,
		client:       &http.Client{Timeout: requestTimeout},
	}
	if c.model == "" {
		c.model = defaultModel
	}
	if c.apiVersion == "" {
		c.apiVersion = defaultAPIVersion
	}
	if c.pollInterval <= 0 {
		c.pollInterval = defaultPollEvery
	}
	return c
}

func (c *Client) Name() string { return "azure" }

// Model identifies the analysis model and API version, e.g.
// "prebuilt-document@2023-07-31". Results differ across either.
func (c *Client) Model() string { return c.model + "@" + c.apiVersion }

// Analyze starts an analysis of document and waits for its result. The wait
// is bounded only by ctx.
func (c *Client) Analyze(ctx context.Context, document []byte) (*models.AnalysisResult, error) {
	operationURL, err := c.begin(ctx, document)
	if err != nil {
		return nil, err
	}

	var result *models.AnalysisResult
	poll := func() error {
		res, err := c.getOperation(ctx, operationURL)
		if err != nil {
			return err
		}
		result = res
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.pollInterval
	b.MaxInterval = maxPollInterval
	b.MaxElapsedTime = 0

	if err := backoff.Retry(poll, backoff.WithContext(b, ctx)); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrAnalysisTimeout, ctxErr)
		}
		return nil, err
	}
	return result, nil
}

// begin submits the document and returns the Operation-Location to poll.
func (c *Client) begin(ctx context.Context, document []byte) (string, error) {
	params := url.Values{"api-version": {c.apiVersion}}
	u := fmt.Sprintf("%s/formrecognizer/documentModels/%s:analyze?%s",
		c.endpoint, url.PathEscape(c.model), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(document))
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	req.Header.Set(keyHeader, c.key)
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		return "", statusError(resp)
	}

	location := resp.Header.Get("Operation-Location")
	if location == "" {
		return "", fmt.Errorf("%w: missing Operation-Location header", ErrInvalidResponse)
	}
	return location, nil
}

// getOperation fetches the operation once. It returns errStillRunning while
// the service is working; errors that retrying cannot fix are wrapped in
// backoff.Permanent.
func (c *Client) getOperation(ctx context.Context, operationURL string) (*models.AnalysisResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, operationURL, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("building request: %w", err))
	}
	req.Header.Set(keyHeader, c.key)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := statusError(resp)
		if errors.Is(err, ErrServiceUnavailable) {
			return nil, err
		}
		return nil, backoff.Permanent(err)
	}

	var op operationResponse
	if err := json.NewDecoder(resp.Body).Decode(&op); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("%w: decoding operation: %v", ErrInvalidResponse, err))
	}

	switch op.Status {
	case "notStarted", "running":
		return nil, errStillRunning
	case "succeeded":
		if op.AnalyzeResult == nil {
			return nil, backoff.Permanent(fmt.Errorf("%w: succeeded without analyzeResult", ErrInvalidResponse))
		}
		return op.AnalyzeResult.toModel(), nil
	case "failed", "canceled":
		return nil, backoff.Permanent(fmt.Errorf("%w: %s", ErrAnalysisFailed, op.Error.describe(op.Status)))
	default:
		return nil, backoff.Permanent(fmt.Errorf("%w: unknown operation status %q", ErrInvalidResponse, op.Status))
	}
}

// statusError maps a non-success response to a sentinel error carrying the
// service's own error code and message.
func statusError(resp *http.Response) error {
	var body errorResponse
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyLength))
	_ = json.Unmarshal(raw, &body)
	detail := body.Error.describe(fmt.Sprintf("status %d", resp.StatusCode))

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return fmt.Errorf("%w: status %d: %s", ErrServiceUnavailable, resp.StatusCode, detail)
	}
	return fmt.Errorf("%w: status %d: %s", ErrAnalysisFailed, resp.StatusCode, detail)
}

// classifyError maps transport-level errors to sentinel errors.
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrAnalysisTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrAnalysisTimeout, err)
	}

	return fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
}

// --- Document Intelligence response types ---

type operationResponse struct {
	Status        string         `json:"status"`
	AnalyzeResult *analyzeResult `json:"analyzeResult"`
	Error         *serviceError  `json:"error"`
}

type analyzeResult struct {
	APIVersion string            `json:"apiVersion"`
	ModelID    string            `json:"modelId"`
	Content    string            `json:"content"`
	Pages      []json.RawMessage `json:"pages"`
	Tables     []models.Table    `json:"tables"`
}

func (r *analyzeResult) toModel() *models.AnalysisResult {
	tables := r.Tables
	if tables == nil {
		tables = []models.Table{}
	}
	return &models.AnalysisResult{
		ModelID: r.ModelID,
		Content: r.Content,
		Pages:   len(r.Pages),
		Tables:  tables,
	}
}

type errorResponse struct {
	Error *serviceError `json:"error"`
}

type serviceError struct {
	Code       string        `json:"code"`
	Message    string        `json:"message"`
	InnerError *serviceError `json:"innererror"`
}

// describe renders the error as "code: message (inner)", or fallback when absent.
func (e *serviceError) describe(fallback string) string {
	if e == nil || (e.Code == "" && e.Message == "") {
		return fallback
	}
	s := e.Code
	if e.Message != "" {
		if s != "" {
			s += ": "
		}
		s += e.Message
	}
	if e.InnerError != nil && e.InnerError.Message != "" {
		s += " (" + e.InnerError.Message + ")"
	}
	return s
}

// Compile-time check that Client implements DocumentAnalyzer.
var _ models.DocumentAnalyzer = (*Client)(nil)
