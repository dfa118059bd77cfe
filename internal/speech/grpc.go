package speech

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/rbright/escriba/internal/encoding"
	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
)

const apiKeyMetadata = "x-goog-api-key"

// GRPCOptions configures a GRPCClient.
type GRPCOptions struct {
	Endpoint    string
	APIKey      string
	Insecure    bool
	Timeout     time.Duration
	EmptyMarker string
	UserAgent   string
	// DebugSink receives one protojson line per response. May be nil.
	DebugSink io.Writer
}

// GRPCClient calls google.cloud.speech.v1.Speech/Recognize.
type GRPCClient struct {
	conn      *grpc.ClientConn
	client    speechpb.SpeechClient
	apiKey    string
	timeout   time.Duration
	marker    string
	debugSink io.Writer
}

// NewGRPCClient creates a lazily connecting client. Close releases it.
func NewGRPCClient(opts GRPCOptions) (*GRPCClient, error) {
	endpoint := strings.TrimSpace(opts.Endpoint)
	if endpoint == "" {
		return nil, errors.New("speech grpc endpoint is empty")
	}

	creds := credentials.NewClientTLSFromCert(nil, "")
	if opts.Insecure {
		creds = insecure.NewCredentials()
	}

	dialOpts := []grpc.DialOption{grpc.WithTransportCredentials(creds)}
	if opts.UserAgent != "" {
		dialOpts = append(dialOpts, grpc.WithUserAgent(opts.UserAgent))
	}

	conn, err := grpc.NewClient(endpoint, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("dial speech grpc %q: %w", endpoint, err)
	}

	return &GRPCClient{
		conn:      conn,
		client:    speechpb.NewSpeechClient(conn),
		apiKey:    strings.TrimSpace(opts.APIKey),
		timeout:   opts.Timeout,
		marker:    opts.EmptyMarker,
		debugSink: opts.DebugSink,
	}, nil
}

// Transcribe sends one Recognize call with the audio decoded back to bytes.
//
// Content that is not valid base64 fails before any request is sent and is
// returned as an *encoding.EncodingError, not an *APIError, so it reports as
// an encoding failure.
func (c *GRPCClient) Transcribe(ctx context.Context, audio encoding.Audio, cfg RecognitionConfig) (Result, error) {
	value, ok := speechpb.RecognitionConfig_AudioEncoding_value[cfg.Encoding]
	if !ok {
		return Result{}, &APIError{Message: fmt.Sprintf("unsupported encoding %q", cfg.Encoding)}
	}

	content, err := encoding.Decode(audio)
	if err != nil {
		return Result{}, err
	}

	req := &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:        speechpb.RecognitionConfig_AudioEncoding(value),
			SampleRateHertz: int32(cfg.SampleRateHertz),
			LanguageCode:    cfg.LanguageCode,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: content},
		},
	}

	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()
	if c.apiKey != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, apiKeyMetadata, c.apiKey)
	}

	started := time.Now()
	resp, err := c.client.Recognize(ctx, req)
	latency := time.Since(started)
	if err != nil {
		return Result{}, errorFromStatus(err)
	}
	c.dump(resp)

	var (
		transcript string
		found      bool
	)
	if results := resp.GetResults(); len(results) > 0 {
		if alternatives := results[0].GetAlternatives(); len(alternatives) > 0 {
			transcript, found = alternatives[0].GetTranscript(), true
		}
	}

	result := resultFrom(transcript, found, c.marker)
	result.Latency = latency
	return result, nil
}

// Ping waits until the connection is ready or ctx expires.
func (c *GRPCClient) Ping(ctx context.Context) error {
	c.conn.Connect()
	for {
		state := c.conn.GetState()
		switch state {
		case connectivity.Ready:
			return nil
		case connectivity.Shutdown:
			return errors.New("speech grpc connection is shut down")
		}
		if !c.conn.WaitForStateChange(ctx, state) {
			return fmt.Errorf("speech grpc not ready (%s): %w", state, ctx.Err())
		}
	}
}

// Close releases the underlying connection.
func (c *GRPCClient) Close() error {
	return c.conn.Close()
}

func (c *GRPCClient) dump(resp *speechpb.RecognizeResponse) {
	if c.debugSink == nil {
		return
	}
	b, err := protojson.Marshal(resp)
	if err != nil {
		return
	}
	_, _ = c.debugSink.Write(append(b, '\n'))
}

func errorFromStatus(err error) *APIError {
	st, ok := status.FromError(err)
	if !ok {
		return &APIError{Message: "request failed", Err: err}
	}
	return &APIError{Status: st.Code().String(), Message: st.Message()}
}
