package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rbright/escriba/internal/encoding"
)

const maxResponseBytes = 4 << 20

// RESTOptions configures a RESTClient.
type RESTOptions struct {
	Endpoint    string
	APIKey      string
	Timeout     time.Duration
	EmptyMarker string
	UserAgent   string
	HTTPClient  *http.Client
	// DebugSink receives one JSONL line per raw response body. May be nil.
	DebugSink io.Writer
}

// RESTClient calls POST {endpoint}?key={API_KEY} with a JSON body.
type RESTClient struct {
	endpoint  *url.URL
	apiKey    string
	timeout   time.Duration
	marker    string
	userAgent string
	http      *http.Client
	debugSink io.Writer
}

// NewRESTClient validates the endpoint and builds a client.
func NewRESTClient(opts RESTOptions) (*RESTClient, error) {
	endpoint, err := url.Parse(strings.TrimSpace(opts.Endpoint))
	if err != nil {
		return nil, fmt.Errorf("parse speech endpoint: %w", err)
	}
	if endpoint.Scheme != "http" && endpoint.Scheme != "https" {
		return nil, fmt.Errorf("speech endpoint %q must be an http(s) URL", opts.Endpoint)
	}
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("speech api key is empty")
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &RESTClient{
		endpoint:  endpoint,
		apiKey:    opts.APIKey,
		timeout:   opts.Timeout,
		marker:    opts.EmptyMarker,
		userAgent: opts.UserAgent,
		http:      httpClient,
		debugSink: opts.DebugSink,
	}, nil
}

type recognizeRequest struct {
	Config recognizeConfig `json:"config"`
	Audio  recognizeAudio  `json:"audio"`
}

type recognizeConfig struct {
	Encoding        string `json:"encoding"`
	SampleRateHertz int    `json:"sampleRateHertz"`
	LanguageCode    string `json:"languageCode"`
}

type recognizeAudio struct {
	Content string `json:"content"`
}

type recognizeResponse struct {
	Results []struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
	} `json:"results"`
}

type errorEnvelope struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Transcribe sends one recognize request and returns the first alternative.
func (c *RESTClient) Transcribe(ctx context.Context, audio encoding.Audio, cfg RecognitionConfig) (Result, error) {
	body, err := json.Marshal(recognizeRequest{
		Config: recognizeConfig{
			Encoding:        cfg.Encoding,
			SampleRateHertz: cfg.SampleRateHertz,
			LanguageCode:    cfg.LanguageCode,
		},
		Audio: recognizeAudio{Content: audio.Content},
	})
	if err != nil {
		return Result{}, &APIError{Message: "encode request", Err: err}
	}

	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.requestURL(), bytes.NewReader(body))
	if err != nil {
		return Result{}, &APIError{Message: "build request", Err: redact(err, c.apiKey)}
	}
	req.Header.Set("Content-Type", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return Result{}, &APIError{Message: "request failed", Err: redact(err, c.apiKey)}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	latency := time.Since(started)
	if err != nil {
		return Result{}, &APIError{StatusCode: resp.StatusCode, Message: "read response", Err: err}
	}
	c.dump(raw)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Result{}, errorFromResponse(resp.StatusCode, raw)
	}

	var decoded recognizeResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return Result{}, &APIError{StatusCode: resp.StatusCode, Message: "decode response", Err: err}
	}

	var (
		transcript string
		found      bool
	)
	if len(decoded.Results) > 0 && len(decoded.Results[0].Alternatives) > 0 {
		transcript, found = decoded.Results[0].Alternatives[0].Transcript, true
	}

	result := resultFrom(transcript, found, c.marker)
	result.Latency = latency
	return result, nil
}

func (c *RESTClient) requestURL() string {
	u := *c.endpoint
	query := u.Query()
	query.Set("key", c.apiKey)
	u.RawQuery = query.Encode()
	return u.String()
}

func (c *RESTClient) dump(raw []byte) {
	if c.debugSink == nil {
		return
	}
	var line bytes.Buffer
	if err := json.Compact(&line, raw); err != nil {
		encoded, _ := json.Marshal(string(raw))
		line.Reset()
		line.Write(encoded)
	}
	line.WriteByte('\n')
	_, _ = c.debugSink.Write(line.Bytes())
}

// errorFromResponse parses the Google error envelope when present.
func errorFromResponse(statusCode int, raw []byte) *APIError {
	apiErr := &APIError{StatusCode: statusCode}

	var envelope errorEnvelope
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Error.Message != "" {
		apiErr.Status = envelope.Error.Status
		apiErr.Message = envelope.Error.Message
		return apiErr
	}

	apiErr.Message = strings.TrimSpace(string(raw))
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(statusCode)
	}
	return apiErr
}

// redact strips the API key from URLs embedded in transport errors.
func redact(err error, apiKey string) error {
	var urlErr *url.Error
	if apiKey == "" || !errors.As(err, &urlErr) {
		return err
	}
	urlErr.URL = strings.ReplaceAll(urlErr.URL, url.QueryEscape(apiKey), "REDACTED")
	return err
}
