package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/rbright/escriba/internal/audio"
	"github.com/rbright/escriba/internal/pipeline"
	"github.com/rbright/escriba/internal/speech"
)

type fakeIndicator struct {
	recording    atomic.Int32
	transcribing atomic.Int32
	// transcribingGate, when set, blocks ShowTranscribing until closed.
	transcribingGate chan struct{}
	stopCues     atomic.Int32
	completeCues atomic.Int32
	cancelCues   atomic.Int32
	hides        atomic.Int32

	mu     sync.Mutex
	errors []string
}

func (f *fakeIndicator) ShowRecording(context.Context)    { f.recording.Add(1) }
func (f *fakeIndicator) ShowTranscribing(context.Context) {
	if f.transcribingGate != nil {
		<-f.transcribingGate
	}
	f.transcribing.Add(1)
}
func (f *fakeIndicator) ShowError(_ context.Context, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errors = append(f.errors, text)
}
func (f *fakeIndicator) CueStop(context.Context)     { f.stopCues.Add(1) }
func (f *fakeIndicator) CueComplete(context.Context) { f.completeCues.Add(1) }
func (f *fakeIndicator) CueCancel(context.Context)   { f.cancelCues.Add(1) }
func (f *fakeIndicator) Hide(context.Context)        { f.hides.Add(1) }

func (f *fakeIndicator) errorTexts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.errors...)
}

type fakeHandle struct {
	data  []byte
	err   error
	stops atomic.Int32
	once  sync.Once
	done  chan audio.Completion
}

func newFakeHandle(data []byte, err error) *fakeHandle {
	return &fakeHandle{data: data, err: err, done: make(chan audio.Completion, 1)}
}

func (h *fakeHandle) Stop() {
	h.stops.Add(1)
	h.once.Do(func() {
		h.done <- audio.Completion{
			Blob: audio.Blob{Data: h.data, Format: audio.Format{Encoding: "WEBM_OPUS", SampleRateHertz: 48000, Channels: 1}},
			Err:  h.err,
		}
		close(h.done)
	})
}

func (h *fakeHandle) Done() <-chan audio.Completion { return h.done }
func (h *fakeHandle) Device() string               { return "test mic" }
func (h *fakeHandle) BytesCaptured() int64         { return int64(len(h.data)) }

// fakeRecorder hands takes[i] to the i-th recording, falling back to data.
type fakeRecorder struct {
	mu       sync.Mutex
	startErr error
	data     []byte
	takes    [][]byte
	handles  []*fakeHandle
}

func (r *fakeRecorder) Start(context.Context) (audio.Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.startErr != nil {
		return nil, r.startErr
	}
	data := r.data
	if n := len(r.handles); n < len(r.takes) {
		data = r.takes[n]
	}
	if data == nil {
		data = []byte("opus")
	}
	h := newFakeHandle(data, nil)
	r.handles = append(r.handles, h)
	return h, nil
}

func (r *fakeRecorder) handle(i int) *fakeHandle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.handles[i]
}

// fakeProcessor answers by blob content when byBlob has an entry, otherwise
// with queued responses in call order. A non-nil gate blocks that call until
// it is closed.
type fakeProcessor struct {
	mu     sync.Mutex
	calls  int
	steps  []processStep
	byBlob map[string]processStep
}

type processStep struct {
	result speech.Result
	err    error
	gate   chan struct{}
}

func (p *fakeProcessor) Process(_ context.Context, blob audio.Blob) (pipeline.Report, error) {
	p.mu.Lock()
	step := processStep{result: speech.Result{Text: "teste", Found: true}}
	if keyed, ok := p.byBlob[string(blob.Data)]; ok {
		step = keyed
	} else if p.calls < len(p.steps) {
		step = p.steps[p.calls]
	}
	p.calls++
	p.mu.Unlock()

	if step.gate != nil {
		<-step.gate
	}
	return pipeline.Report{Result: step.result, AudioBytes: blob.Len(), EncodedBytes: 8}, step.err
}

func (p *fakeProcessor) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type recordingSink struct {
	mu      sync.Mutex
	results []speech.Result
	err     error
}

func (s *recordingSink) Display(_ context.Context, result speech.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, result)
	return s.err
}

func (s *recordingSink) shown() []speech.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]speech.Result(nil), s.results...)
}

var errDenied = errors.New("permission denied")
