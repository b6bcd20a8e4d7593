package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	apperrors "github.com/GriffinCanCode/screenlate/internal/errors"
	"github.com/GriffinCanCode/screenlate/internal/ocr"
	"github.com/GriffinCanCode/screenlate/internal/orchestrator/consensus"
	"github.com/GriffinCanCode/screenlate/internal/orchestrator/dedup"
	"github.com/GriffinCanCode/screenlate/internal/trace"
)

// task is one in-flight translation.
type task struct {
	done chan struct{}
	err  error
}

func (t *task) finished() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// run is the scheduler loop. It exits only when ctx is cancelled.
func (m *Manager) run(ctx context.Context, cancel context.CancelFunc, done chan struct{}) {
	defer close(done)

	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		if err := m.iterate(ctx); apperrors.IsCode(err, apperrors.CapturerInit) {
			cancel()
			return
		}
		timer.Reset(m.nextDelay())
	}
}

// nextDelay derives the sleep before the next tick from the last one.
func (m *Manager) nextDelay() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case m.session.sequential:
		return m.timing.Sequential
	case m.session.kind == iterFull:
		return m.timing.Full
	case m.session.kind == iterShort:
		return m.timing.Short
	default:
		return 0
	}
}

// iterate runs one tick and handles its failure. Only a capturer that cannot
// be recreated is returned, which ends the loop.
func (m *Manager) iterate(ctx context.Context) error {
	ctx, span := trace.StartSpan(ctx, "tick")
	defer span.End()

	err := m.safeTick(ctx)
	if err == nil {
		return nil
	}
	span.SetAttr("error", err.Error())

	if apperrors.IsCode(err, apperrors.CaptureFailed) {
		return m.recoverCapture(ctx, err)
	}
	m.report(ctx, err)
	if apperrors.IsCode(err, apperrors.CapturerInit) {
		return err
	}
	return nil
}

func (m *Manager) safeTick(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = apperrors.Newf(apperrors.Unknown, "tick panic: %v", r)
		}
	}()
	return m.tick(ctx)
}

// tick is one pass of the pipeline, run under the session mutex.
func (m *Manager) tick(ctx context.Context) error {
	log := trace.Logger(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	s := &m.session
	snap := m.components.Get()

	if ctx.Err() == nil && m.clear.Due() {
		m.out.ClearTexts()
	}
	m.tracker.EndIteration()

	if err := s.reap(); err != nil {
		return err
	}
	if len(s.tasks) >= MaxTranslateTaskPool {
		log.Debug("max task count reached, no-op")
		return nil
	}
	if snap.primary == nil {
		log.Debug("no engines configured, no-op")
		return nil
	}

	if err := m.ensureCapturerLocked(ctx); err != nil {
		return err
	}
	frame, err := s.capturer.Capture()
	if err != nil {
		return err
	}
	s.captureFailing = false
	s.kind = iterShort

	if m.frames.Unchanged(frame) {
		log.Debug("frame unchanged, no-op")
		return nil
	}

	primary, err := snap.provider.Detect(ctx, snap.primary, frame)
	if err != nil {
		return err
	}
	if primary.Score == 0 || m.tracker.IsCached(primary.Text, s.sequential) {
		log.Debug("primary check no-op")
		return nil
	}

	if snap.primary.Ref().SecondaryCheck {
		cached, err := m.secondaryCheck(ctx, snap, frame, primary)
		if err != nil {
			return err
		}
		if cached {
			log.Debug("secondary check no-op", "sequential", s.sequential)
			return nil
		}
	}

	results, err := m.detectOthers(ctx, snap, frame)
	s.kind = iterFull
	if err != nil {
		return err
	}
	results = append(results, primary)

	best, agreed := consensus.Select(results, consensus.DefaultMinAgree)
	if best.Score <= m.tracker.Threshold() {
		s.sequential = false
		log.Debug("detection score threshold not met", "score", best.Score)
		return nil
	}

	id, cached := m.tracker.Check(best.Text, best.Score, s.sequential)
	s.sequential = false
	if cached {
		log.Debug("cache hit")
		return nil
	}
	ctx = trace.WithIteration(ctx, id)

	text := m.filterLocked(ctx, best.Text)
	if text == "" {
		return nil
	}
	trace.Logger(ctx).Debug("dispatching translation", "engine", best.Engine.ID, "consensus", agreed, "chars", utf8.RuneCountInString(text))
	s.tasks = append(s.tasks, m.dispatch(ctx, snap, text, id))
	return nil
}

// secondaryCheck re-runs the primary engine on the union of the previous and
// current frames. A cached union reading ends the tick.
func (m *Manager) secondaryCheck(ctx context.Context, snap *snapshot, frame []byte, primary ocr.DetectionResult) (bool, error) {
	union, ok, err := m.frames.Union(frame)
	if err != nil || !ok {
		return false, err
	}
	res, err := snap.provider.Detect(ctx, snap.primary, union)
	if err != nil {
		return false, err
	}
	if !m.tracker.IsCached(res.Text, false) {
		return false, nil
	}
	if dedup.IsTruncation(primary.Text, res.Text) {
		m.session.sequential = true
	}
	return true, nil
}

// detectOthers runs the non-primary engines concurrently and waits for all of them.
func (m *Manager) detectOthers(ctx context.Context, snap *snapshot, frame []byte) ([]ocr.DetectionResult, error) {
	pending := make([]<-chan ocr.Outcome, len(snap.others))
	for i, e := range snap.others {
		pending[i] = snap.provider.DetectAsync(ctx, e, frame)
	}

	results := make([]ocr.DetectionResult, 0, len(snap.others)+1)
	var firstErr error
	for _, ch := range pending {
		o := <-ch
		if o.Err != nil && firstErr == nil {
			firstErr = o.Err
		}
		results = append(results, o.Result)
	}
	return results, firstErr
}

// filterLocked strips the previous detection from text and remembers text as
// the new previous detection.
func (m *Manager) filterLocked(ctx context.Context, text string) string {
	remainder := dedup.Diff(m.session.lastDetected, text)
	m.session.lastDetected = text
	if remainder == "" {
		trace.Logger(ctx).Debug("empty string to translate, skipping")
	}
	return remainder
}

// reap drops finished tasks and returns the first failure among them.
func (s *session) reap() error {
	var failed error
	kept := s.tasks[:0]
	for _, t := range s.tasks {
		if !t.finished() {
			kept = append(kept, t)
			continue
		}
		if t.err != nil && failed == nil {
			failed = t.err
		}
	}
	clear(s.tasks[len(kept):])
	s.tasks = kept
	return failed
}

// dispatch starts a translation task. It outlives the tick and the loop.
func (m *Manager) dispatch(ctx context.Context, snap *snapshot, text string, id uuid.UUID) *task {
	t := &task{done: make(chan struct{})}
	ctx = context.WithoutCancel(ctx)
	go func() {
		defer close(t.done)
		defer func() {
			if r := recover(); r != nil {
				t.err = apperrors.Newf(apperrors.Unknown, "translation task panic: %v", r)
			}
		}()
		t.err = m.translate(ctx, snap, text, id)
	}()
	return t
}

// translate resolves text through the local cache or the translator and emits the result.
func (m *Manager) translate(ctx context.Context, snap *snapshot, text string, id uuid.UUID) error {
	log := trace.Logger(ctx)

	var translation string
	if snap.LocalDB != nil {
		if v, ok := snap.LocalDB.Get(text); ok {
			translation = v
			log.Debug("local db hit")
		}
	}

	if strings.TrimSpace(translation) == "" {
		m.countChars(ctx, text)

		tctx, cancel := context.WithTimeout(ctx, snap.Settings.TranslationTimeout)
		v, err, shared := m.flight.Do(fmt.Sprintf("%d\x00%s", snap.gen, text), func() (any, error) {
			return snap.Translator.Translate(tctx, text)
		})
		cancel()
		if err != nil {
			return apperrors.Translation(err)
		}
		translation = v.(string)
		if shared {
			log.Debug("translation shared with a concurrent request")
		}

		if snap.Settings.AppendToLocalDB && snap.LocalDB != nil && strings.TrimSpace(translation) != "" {
			snap.LocalDB.Put(text, translation)
		}
	}

	if strings.TrimSpace(translation) == "" || m.tracker.IsTranslatedCached(translation, id) {
		log.Debug("translation suppressed")
		return nil
	}
	m.clear.Touch()
	m.out.SendText(translation, true)
	if m.speech != nil {
		m.speech.Speak(translation)
	}
	return nil
}

// countChars adds text to the session total and sends a progress notice each
// time the total crosses a CharNoticeQuantum boundary.
func (m *Manager) countChars(ctx context.Context, text string) {
	m.mu.Lock()
	before := m.session.totalChars / CharNoticeQuantum
	m.session.totalChars += utf8.RuneCountInString(text)
	total := m.session.totalChars
	m.mu.Unlock()

	trace.Logger(ctx).Debug("translation requested", "total_chars", total)
	if total/CharNoticeQuantum > before {
		m.out.SendText(fmt.Sprintf(noticeProgress, total), false)
	}
}

// recoverCapture notifies once per failure streak and recreates the capturer.
func (m *Manager) recoverCapture(ctx context.Context, err error) error {
	trace.Logger(ctx).Error("screen capture failed", "error", err)

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.session.captureFailing {
		m.session.captureFailing = true
		m.out.SendText(fmt.Sprintf(noticeCaptureFailed, reason(err)), false)
	}
	if m.session.capturer != nil {
		m.session.capturer.Close()
		m.session.capturer = nil
	}
	return m.ensureCapturerLocked(ctx)
}

// report logs a non-capture failure and tells the user about it.
func (m *Manager) report(ctx context.Context, err error) {
	log := trace.Logger(ctx)
	switch {
	case apperrors.IsCode(err, apperrors.CapturerInit):
		log.Error("capturer unavailable", "error", err)
	case apperrors.IsCode(err, apperrors.CaptureFailed):
		log.Error("screen capture failed", "error", err)
		m.out.SendText(fmt.Sprintf(noticeCaptureFailed, reason(err)), false)
	case apperrors.IsCode(err, apperrors.TranslationFailed), apperrors.IsCode(err, apperrors.TranslationRateLimited):
		log.Error("translation failed", "error", err)
		m.out.SendText(NoticeTranslationFailed, false)
	case apperrors.IsCode(err, apperrors.DetectionFailed):
		engine := apperrors.EngineOf(err)
		log.Error("text detection failed", "engine", engine, "error", err)
		m.out.SendText(fmt.Sprintf(noticeDetectionFailed, engine), false)
	default:
		log.Error("iteration failed due to unknown error", "error", err)
		m.out.SendText(fmt.Sprintf(noticeUnknown, reason(err)), false)
	}
}

// reason is the user-facing part of err.
func reason(err error) string {
	var app *apperrors.AppError
	if errors.As(err, &app) {
		if app.Cause != nil {
			return app.Cause.Error()
		}
		return app.Message
	}
	return err.Error()
}
