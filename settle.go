package canvascap

import (
	"context"
	"errors"
	"time"
)

// ErrNotSettled is returned by a [Settler] whose budget ran out before the
// canvas stopped changing. The capture pipeline logs it and carries on with
// the last reading.
var ErrNotSettled = errors.New("canvascap: canvas did not settle")

// Settler waits for the canvas to finish re-rendering after a viewport
// change.
//
// before is the canvas size read before the change. A zero before means no
// size change is expected.
type Settler interface {
	Settle(ctx context.Context, s Session, canvasSelector string, before CanvasSize) error
}

// SettleFixed sleeps for a fixed delay regardless of page state.
type SettleFixed struct {
	Delay time.Duration
}

// Settle implements [Settler].
func (f SettleFixed) Settle(ctx context.Context, s Session, _ string, _ CanvasSize) error {
	return s.Sleep(ctx, f.Delay)
}

// SettleStable polls the canvas width and height attributes until two
// consecutive readings agree and differ from the size before the change.
//
// Zero fields use defaults: 200 ms initial delay, 250 ms interval and a
// 5 s budget. Readings equal to before count as not yet re-rendered, so a
// viewer slower than the initial delay costs polling time, not a stale
// export. If the canvas really keeps its size the budget runs out and
// ErrNotSettled is returned.
type SettleStable struct {
	Initial  time.Duration
	Interval time.Duration
	Timeout  time.Duration
}

func (st SettleStable) resolved() SettleStable {
	if st.Initial <= 0 {
		st.Initial = 200 * time.Millisecond
	}
	if st.Interval <= 0 {
		st.Interval = 250 * time.Millisecond
	}
	if st.Timeout <= 0 {
		st.Timeout = 5 * time.Second
	}
	return st
}

// Settle implements [Settler].
func (st SettleStable) Settle(ctx context.Context, s Session, canvasSelector string, before CanvasSize) error {
	st = st.resolved()
	if err := s.Sleep(ctx, st.Initial); err != nil {
		return err
	}

	polls := int(st.Timeout / st.Interval)
	if polls < 2 {
		polls = 2
	}
	var prev *CanvasSize
	for i := 0; i < polls; i++ {
		var cur CanvasSize
		err := s.Evaluate(ctx, jsCanvasSize, &cur, canvasSelector)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// The canvas may be remounted mid-render.
			prev = nil
		case before != (CanvasSize{}) && cur == before:
			prev = nil
		default:
			if prev != nil && *prev == cur && cur.Height > 0 {
				return nil
			}
			prev = &cur
		}
		if err := s.Sleep(ctx, st.Interval); err != nil {
			return err
		}
	}
	return ErrNotSettled
}
