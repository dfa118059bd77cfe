package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rbright/escriba/internal/pipeline"
	"github.com/rbright/escriba/internal/speech"
	"github.com/stretchr/testify/require"
)

type recognizeBody struct {
	Config struct {
		Encoding        string `json:"encoding"`
		SampleRateHertz int    `json:"sampleRateHertz"`
		LanguageCode    string `json:"languageCode"`
	} `json:"config"`
	Audio struct {
		Content string `json:"content"`
	} `json:"audio"`
}

func newRecognizeServer(t *testing.T, reply string, seen *recognizeBody) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "test-key", r.URL.Query().Get("key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(seen))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newEndToEndController(t *testing.T, endpoint string, sink Sink) (*Controller, *fakeRecorder) {
	t.Helper()

	client, err := speech.NewRESTClient(speech.RESTOptions{
		Endpoint:    endpoint,
		APIKey:      "test-key",
		EmptyMarker: speech.DefaultEmptyMarker,
	})
	require.NoError(t, err)

	recorder := &fakeRecorder{data: []byte("teste")}
	ctrl := NewController(Options{
		Recorder: recorder,
		Processor: pipeline.NewProcessor(pipeline.Options{
			Transcriber: client,
			Recognition: speech.DefaultRecognitionConfig(),
		}),
		Sink: sink,
	})
	t.Cleanup(func() { _ = ctrl.Close() })
	return ctrl, recorder
}

func TestEndToEndRecognizedSpeechIsDisplayed(t *testing.T) {
	var seen recognizeBody
	srv := newRecognizeServer(t, `{"results":[{"alternatives":[{"transcript":"teste"}]}]}`, &seen)
	sink := &recordingSink{}
	ctrl, _ := newEndToEndController(t, srv.URL, sink)

	_, err := ctrl.Start(context.Background())
	require.NoError(t, err)
	done, err := ctrl.Stop(context.Background())
	require.NoError(t, err)

	outcome := receive(t, done)
	require.NoError(t, outcome.Err)
	require.Equal(t, "teste", outcome.Result.Text)
	require.Equal(t, []speech.Result{{Text: "teste", Found: true}}, stripLatency(sink.shown()))

	require.Equal(t, "WEBM_OPUS", seen.Config.Encoding)
	require.Equal(t, 48000, seen.Config.SampleRateHertz)
	require.Equal(t, "pt-BR", seen.Config.LanguageCode)
	require.Equal(t, "dGVzdGU=", seen.Audio.Content)
}

func TestEndToEndEmptyResponseShowsMarker(t *testing.T) {
	var seen recognizeBody
	srv := newRecognizeServer(t, `{}`, &seen)
	sink := &recordingSink{}
	ctrl, _ := newEndToEndController(t, srv.URL, sink)

	_, err := ctrl.Start(context.Background())
	require.NoError(t, err)
	done, err := ctrl.Stop(context.Background())
	require.NoError(t, err)

	outcome := receive(t, done)
	require.NoError(t, outcome.Err)
	require.Equal(t, "empty", outcome.Status())

	shown := stripLatency(sink.shown())
	require.Len(t, shown, 1)
	require.Equal(t, speech.DefaultEmptyMarker, shown[0].Text)
	require.False(t, shown[0].Found)
}

func TestEndToEndAPIErrorIsReported(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":400,"message":"bad encoding","status":"INVALID_ARGUMENT"}}`))
	}))
	t.Cleanup(srv.Close)

	sink := &recordingSink{}
	ctrl, _ := newEndToEndController(t, srv.URL, sink)

	_, err := ctrl.Start(context.Background())
	require.NoError(t, err)
	done, err := ctrl.Stop(context.Background())
	require.NoError(t, err)

	outcome := receive(t, done)
	require.Equal(t, "api_error", outcome.Status())
	require.Contains(t, outcome.Err.Error(), "INVALID_ARGUMENT")
	require.Empty(t, sink.shown())
	require.False(t, ctrl.Snapshot().HasResult)
}

func stripLatency(results []speech.Result) []speech.Result {
	out := make([]speech.Result, len(results))
	for i, r := range results {
		r.Latency = 0
		out[i] = r
	}
	return out
}
