package domain

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"testing"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/Vovarama1992/voicenotes/internal/domain/stations"
	"github.com/Vovarama1992/voicenotes/internal/metrics"
	"github.com/Vovarama1992/voicenotes/internal/models"
	"github.com/Vovarama1992/voicenotes/internal/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeSTT decodes every clip it is given and answers "chunk N".
type fakeSTT struct {
	mu        sync.Mutex
	windows   [][]byte
	failNext  int
	failAll   bool
	inflight  int
	maxFlight int

	// when set, each call signals started and waits for release
	started chan struct{}
	release chan struct{}
}

func (f *fakeSTT) Recognize(ctx context.Context, name string, clip io.Reader) (string, error) {
	data, err := io.ReadAll(clip)
	if err != nil {
		return "", err
	}
	pcm, err := stations.DecodeWAV(data)
	if err != nil {
		return "", err
	}

	f.mu.Lock()
	f.windows = append(f.windows, pcm)
	n := len(f.windows)
	f.inflight++
	if f.inflight > f.maxFlight {
		f.maxFlight = f.inflight
	}
	fail := f.failAll || f.failNext > 0
	if f.failNext > 0 {
		f.failNext--
	}
	started, release := f.started, f.release
	f.mu.Unlock()

	if started != nil {
		started <- struct{}{}
		<-release
	}

	f.mu.Lock()
	f.inflight--
	f.mu.Unlock()

	if fail {
		return "", fmt.Errorf("stt unavailable (call %d)", n)
	}
	return fmt.Sprintf("chunk %d", n), nil
}

func (f *fakeSTT) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.windows)
}

func (f *fakeSTT) window(i int) []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.windows[i]
}

type fakeBus struct {
	mu     sync.Mutex
	events []ports.Event
}

func (b *fakeBus) Broadcast(ev ports.Event) {
	b.mu.Lock()
	b.events = append(b.events, ev)
	b.mu.Unlock()
}

func (b *fakeBus) types() []ports.EventType {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]ports.EventType, 0, len(b.events))
	for _, ev := range b.events {
		out = append(out, ev.EventType())
	}
	return out
}

func (b *fakeBus) count(t ports.EventType) int {
	n := 0
	for _, got := range b.types() {
		if got == t {
			n++
		}
	}
	return n
}

type fakeArchive struct {
	mu     sync.Mutex
	saved  []models.RecordingSummary
	stored []models.RecordingSummary
}

func (a *fakeArchive) Save(_ context.Context, rec models.RecordingSummary) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.saved = append(a.saved, rec)
	return nil
}

func (a *fakeArchive) List(context.Context) ([]models.RecordingSummary, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]models.RecordingSummary{}, a.stored...), nil
}

type fixture struct {
	store     *RecordingStore
	stt       *fakeSTT
	bus       *fakeBus
	archive   *fakeArchive
	outputDir string
	clipDir   string
}

type fixtureOpt func(*fixtureConfig)

type fixtureConfig struct {
	sched     SchedulerConfig
	outputDir string
}

func withScheduler(cfg SchedulerConfig) fixtureOpt {
	return func(c *fixtureConfig) { c.sched = cfg }
}

func withOutputDir(dir string) fixtureOpt {
	return func(c *fixtureConfig) { c.outputDir = dir }
}

func newFixture(t *testing.T, stt *fakeSTT, opts ...fixtureOpt) *fixture {
	t.Helper()

	fc := fixtureConfig{outputDir: t.TempDir()}
	for _, o := range opts {
		o(&fc)
	}

	zl := logger.NewZapLogger(zap.NewNop().Sugar())
	m := metrics.New(prometheus.NewRegistry())
	bus := &fakeBus{}
	archive := &fakeArchive{}
	clipDir := t.TempDir()

	s2 := stations.NewS2PCMtoWAV()
	s3 := stations.NewS3WAVtoText(stt, s2, clipDir, zl)
	sched := NewTranscriptionScheduler(s3, bus, m, zl, fc.sched)
	fin := NewSessionFinalizer(sched, s2, fc.outputDir, bus, archive, m, zl)

	return &fixture{
		store:     NewRecordingStore(sched, fin, bus, archive, m, zl),
		stt:       stt,
		bus:       bus,
		archive:   archive,
		outputDir: fc.outputDir,
		clipDir:   clipDir,
	}
}

func (f *fixture) session(t *testing.T, id string) *session {
	t.Helper()
	f.store.mu.RLock()
	defer f.store.mu.RUnlock()
	s, ok := f.store.sessions[id]
	require.True(t, ok, "session %s not found", id)
	return s
}

func (f *fixture) requireNoClips(t *testing.T) {
	t.Helper()
	entries, err := os.ReadDir(f.clipDir)
	require.NoError(t, err)
	require.Empty(t, entries, "ephemeral clips left behind")
}

// pattern returns n bytes whose values depend on seed and position.
func pattern(seed byte, n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = seed + byte(i%251)
	}
	return b
}
