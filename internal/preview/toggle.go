package preview

import (
	"sync"

	"github.com/comigor/halilintar-go/internal/fence"
)

// Toggle is the opt-in preview switch of one message. Opening a renderable
// segment launches a context; closing tears it down rather than hiding it.
type Toggle struct {
	mu       sync.Mutex
	launcher Launcher
	seg      fence.Segment
	policy   Policy
	shown    bool
	ctx      Context
}

func NewToggle(l Launcher, seg fence.Segment) *Toggle {
	return &Toggle{launcher: l, seg: seg, policy: Lookup(seg.Language)}
}

func (t *Toggle) Policy() Policy { return t.policy }

// Shown reports whether the preview area is expanded.
func (t *Toggle) Shown() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.shown
}

// Context is the live context while shown, nil otherwise or when the
// language is not renderable.
func (t *Toggle) Context() Context {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ctx
}

// Flip switches the preview. Two flips leave no context behind.
func (t *Toggle) Flip() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.shown {
		t.shown = false
		if t.ctx == nil {
			return nil
		}
		ctx := t.ctx
		t.ctx = nil
		return ctx.Close()
	}
	if t.policy.Renderable {
		ctx, err := t.launcher.Launch(t.seg)
		if err != nil {
			return err
		}
		t.ctx = ctx
	}
	t.shown = true
	return nil
}

// Close tears down any live context.
func (t *Toggle) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.shown = false
	if t.ctx == nil {
		return nil
	}
	ctx := t.ctx
	t.ctx = nil
	return ctx.Close()
}
