package orchestrator

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	apperrors "github.com/GriffinCanCode/screenlate/internal/errors"
	"github.com/GriffinCanCode/screenlate/internal/ocr"
	"github.com/GriffinCanCode/screenlate/internal/orchestrator/autoclear"
	"github.com/GriffinCanCode/screenlate/internal/orchestrator/dedup"
	"github.com/GriffinCanCode/screenlate/internal/orchestrator/screen"
	"github.com/GriffinCanCode/screenlate/internal/output"
	screencap "github.com/GriffinCanCode/screenlate/internal/screen"
	"github.com/GriffinCanCode/screenlate/internal/syncx"
	"github.com/GriffinCanCode/screenlate/internal/trace"
	"github.com/GriffinCanCode/screenlate/internal/translate"
)

// LocalCache is the local translation cache consulted before the translator.
type LocalCache interface {
	Get(text string) (string, bool)
	Put(text, translation string)
	Flush() error
}

// Speaker receives emitted translations. Speak must not block.
type Speaker interface {
	Speak(text string) bool
}

// Settings are the tunables that can change on reconfiguration.
type Settings struct {
	AppendToLocalDB     bool
	AutoClear           bool
	AutoClearDelay      time.Duration
	TranslationTimeout  time.Duration
	SkipUnchangedFrames bool
}

// Components is everything Reconfigure can replace. LocalDB may be nil.
type Components struct {
	Engines    []ocr.Engine
	Language   ocr.Language
	Translator translate.Translator
	LocalDB    LocalCache
	Settings   Settings
}

// snapshot is an immutable view of Components plus derived values.
type snapshot struct {
	Components
	gen      uint64
	provider *ocr.Provider
	primary  ocr.Engine
	others   []ocr.Engine
}

// frameProcessor tracks consecutive frames for the skip and union checks.
type frameProcessor interface {
	Unchanged(frame []byte) bool
	Union(frame []byte) ([]byte, bool, error)
	SetSkipUnchanged(skip bool)
	Reset()
	Close()
}

// Timing holds the scheduler delays.
type Timing struct {
	Sequential  time.Duration
	Full        time.Duration
	Short       time.Duration
	OnceTimeout time.Duration
}

// DefaultTiming returns the production delays.
func DefaultTiming() Timing {
	return Timing{
		Sequential:  SequentialDelay,
		Full:        FullDelay,
		Short:       ShortDelay,
		OnceTimeout: OnceTranslationTimeout,
	}
}

type iterationKind int

const (
	iterNone iterationKind = iota
	iterShort
	iterFull
)

// session is the state of one processing session, guarded by Manager.mu.
type session struct {
	capturer       screencap.Capturer
	lastDetected   string
	sequential     bool
	kind           iterationKind
	captureFailing bool
	totalChars     int
	tasks          []*task
}

// Manager runs the translation loop and the once-shot pass.
type Manager struct {
	factory screencap.Factory
	out     output.Channel
	speech  Speaker
	timing  Timing

	components *syncx.RWGuard[*snapshot]
	gen        atomic.Uint64
	tracker    *dedup.Tracker
	frames     frameProcessor
	clear      *autoclear.Timer
	flight     singleflight.Group

	mu           sync.Mutex
	session      session
	onceCapturer screencap.Capturer

	lifeMu sync.Mutex
	runCtx context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a manager. speaker may be nil.
func New(factory screencap.Factory, out output.Channel, speaker Speaker, c Components) *Manager {
	m := &Manager{
		factory: factory,
		out:     out,
		speech:  speaker,
		timing:  DefaultTiming(),
		tracker: dedup.New(dedup.MinScoreThreshold),
		frames:  screen.NewProcessor(c.Settings.SkipUnchangedFrames),
		clear:   autoclear.New(c.Settings.AutoClear, c.Settings.AutoClearDelay),
	}
	m.components = syncx.NewGuard(m.newSnapshot(c))
	return m
}

func (m *Manager) newSnapshot(c Components) *snapshot {
	if c.Settings.TranslationTimeout <= 0 {
		c.Settings.TranslationTimeout = OnceTranslationTimeout
	}
	primary, others := ocr.Primary(c.Engines)
	return &snapshot{
		Components: c,
		gen:        m.gen.Add(1),
		provider:   ocr.NewProvider(c.Language),
		primary:    primary,
		others:     others,
	}
}

// Start launches the loop. It refuses to start without engines or without a
// working capturer. Starting a running manager is a no-op.
func (m *Manager) Start(ctx context.Context) error {
	m.lifeMu.Lock()
	defer m.lifeMu.Unlock()

	if m.runCtx != nil && m.runCtx.Err() == nil {
		return nil
	}
	if m.done != nil {
		<-m.done
	}

	if len(m.components.Get().Engines) == 0 {
		m.out.SendText(NoticeNoEngine, false)
		return apperrors.New(apperrors.InvalidArgument, "no OCR engine is selected")
	}

	m.mu.Lock()
	err := m.ensureCapturerLocked(ctx)
	m.mu.Unlock()
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	m.runCtx, m.cancel, m.done = runCtx, cancel, make(chan struct{})
	m.clear.Touch()

	go m.run(runCtx, cancel, m.done)

	trace.Logger(ctx).Info("translation started")
	m.out.SendText(NoticeStarted, false)
	return nil
}

// Stop cancels the loop, waits for it, flushes the local cache and clears
// the session. Stopping a stopped manager is a no-op.
func (m *Manager) Stop() {
	m.lifeMu.Lock()
	defer m.lifeMu.Unlock()

	if m.cancel == nil {
		return
	}
	m.cancel()
	<-m.done
	m.runCtx, m.cancel, m.done = nil, nil, nil

	m.out.SendText(NoticeFinished, false)
	m.flushLocalDB(m.components.Get())
	m.tracker.Reset()
	m.clear.Reset()
	m.frames.Reset()

	m.mu.Lock()
	if m.session.capturer != nil {
		m.session.capturer.Close()
	}
	m.session = session{}
	m.mu.Unlock()

	trace.Logger(context.Background()).Info("translation finished")
}

// IsStarted reports whether the loop is running.
func (m *Manager) IsStarted() bool {
	m.lifeMu.Lock()
	defer m.lifeMu.Unlock()
	return m.runCtx != nil && m.runCtx.Err() == nil
}

// Reconfigure atomically replaces engines, translator, local cache and
// settings. Engines that are not part of the new set are closed, and the
// previous local cache is flushed when it is replaced.
func (m *Manager) Reconfigure(c Components) {
	next := m.newSnapshot(c)

	m.mu.Lock()
	prev := m.components.Swap(next)
	m.mu.Unlock()

	m.clear.Configure(c.Settings.AutoClear, c.Settings.AutoClearDelay)
	m.frames.SetSkipUnchanged(c.Settings.SkipUnchangedFrames)

	if prev.LocalDB != nil && prev.LocalDB != next.LocalDB {
		m.flushLocalDB(prev)
	}
	closeRemoved(prev.Engines, next.Engines)

	trace.Logger(context.Background()).Info("pipeline reconfigured",
		"engines", len(c.Engines), "local_db", c.LocalDB != nil, "language", c.Language.Code)
}

func closeRemoved(prev, next []ocr.Engine) {
	kept := make(map[ocr.Engine]bool, len(next))
	for _, e := range next {
		kept[e] = true
	}
	for _, e := range prev {
		if !kept[e] {
			if err := e.Close(); err != nil {
				trace.Logger(context.Background()).Warn("failed to close engine", "engine", e.Ref().ID, "error", err)
			}
		}
	}
}

// Close stops the loop and releases engines, capturers and frame buffers.
func (m *Manager) Close() {
	m.Stop()

	m.mu.Lock()
	if m.onceCapturer != nil {
		m.onceCapturer.Close()
		m.onceCapturer = nil
	}
	m.mu.Unlock()

	snap := m.components.Get()
	m.flushLocalDB(snap)
	closeRemoved(snap.Engines, nil)
	m.frames.Close()
}

func (m *Manager) flushLocalDB(snap *snapshot) {
	if snap.LocalDB == nil || !snap.Settings.AppendToLocalDB {
		return
	}
	if err := snap.LocalDB.Flush(); err != nil {
		trace.Logger(context.Background()).Error("failed to flush local db", "error", err)
	}
}

// ensureCapturerLocked creates the loop capturer if there is none.
func (m *Manager) ensureCapturerLocked(ctx context.Context) error {
	if m.session.capturer != nil {
		return nil
	}
	c, err := m.factory(false)
	if err != nil {
		trace.Logger(ctx).Error("failed to initialize capturer", "error", err)
		m.out.SendText(NoticeCapturerInit, false)
		return apperrors.Wrap(err, apperrors.CapturerInit, "initialize capturer")
	}
	m.session.capturer = c
	return nil
}

// SetTiming changes the scheduler delays. Intended for tests and tuning.
func (m *Manager) SetTiming(t Timing) {
	m.mu.Lock()
	m.timing = t
	m.mu.Unlock()
}
