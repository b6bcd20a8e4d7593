package orchestrator

import (
	"context"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/GriffinCanCode/screenlate/internal/errors"
	"github.com/GriffinCanCode/screenlate/internal/orchestrator/consensus"
	screencap "github.com/GriffinCanCode/screenlate/internal/screen"
	"github.com/GriffinCanCode/screenlate/internal/trace"
)

// ProcessOnce captures region with a dedicated capturer, runs every engine,
// and translates the consensus reading, waiting a bounded time for the
// translation. It shares the diff state with the loop but skips the cache
// check, so repeated calls always re-translate.
func (m *Manager) ProcessOnce(ctx context.Context, region screencap.Region) error {
	ctx, span := trace.StartSpan(ctx, "process_once")
	defer span.End()
	span.SetAttr("region", region.String())

	if len(m.components.Get().Engines) == 0 {
		m.out.SendText(NoticeNoEngine, false)
		return apperrors.New(apperrors.InvalidArgument, "no OCR engine is selected")
	}

	t, err := m.onceDispatch(ctx, region)
	if err != nil {
		if !apperrors.IsCode(err, apperrors.CapturerInit) {
			m.report(ctx, err)
		}
		return err
	}
	if t == nil {
		return nil
	}

	m.mu.Lock()
	wait := m.timing.OnceTimeout
	m.mu.Unlock()

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-t.done:
		if t.err != nil {
			m.report(ctx, t.err)
			return t.err
		}
		return nil
	case <-timer.C:
		trace.Logger(ctx).Warn("once-shot translation timed out", "timeout", wait)
		return apperrors.New(apperrors.Timeout, "translation did not finish in time")
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) onceDispatch(ctx context.Context, region screencap.Region) (_ *task, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = apperrors.Newf(apperrors.Unknown, "once-shot panic: %v", r)
		}
	}()

	m.mu.Lock()
	defer m.mu.Unlock()
	snap := m.components.Get()

	if m.onceCapturer == nil {
		c, err := m.factory(true)
		if err != nil {
			trace.Logger(ctx).Error("failed to initialize once-shot capturer", "error", err)
			m.out.SendText(NoticeCapturerInit, false)
			return nil, apperrors.Wrap(err, apperrors.CapturerInit, "initialize capturer")
		}
		m.onceCapturer = c
	}
	m.onceCapturer.SetRegion(region)

	frame, err := m.onceCapturer.Capture()
	if err != nil {
		return nil, err
	}
	results, err := snap.provider.DetectAll(ctx, snap.Engines, frame)
	if err != nil {
		return nil, err
	}
	best, _ := consensus.Select(results, consensus.DefaultMinAgree)

	id := uuid.New()
	ctx = trace.WithIteration(ctx, id)
	text := m.filterLocked(ctx, best.Text)
	if text == "" {
		return nil, nil
	}
	return m.dispatch(ctx, snap, text, id), nil
}
