package render

import (
	"sync"
	"time"

	"github.com/comigor/halilintar-go/internal/logger"
)

// CopyState is the transient feedback of a copy action.
type CopyState int

const (
	CopyIdle CopyState = iota
	CopyCopied
	CopyFailed
)

func (s CopyState) String() string {
	switch s {
	case CopyCopied:
		return "copied"
	case CopyFailed:
		return "failed"
	default:
		return "idle"
	}
}

// Clipboard is the system clipboard capability.
type Clipboard interface {
	WriteAll(text string) error
}

// ClipboardFunc adapts a function to Clipboard.
type ClipboardFunc func(text string) error

func (f ClipboardFunc) WriteAll(text string) error { return f(text) }

// Timer is a scheduled callback that can be cancelled.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d.
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// CopyAction copies one code block. The write runs in the background and
// its outcome shows for the feedback delay before reverting to idle.
type CopyAction struct {
	text  string
	clip  Clipboard
	delay time.Duration
	after AfterFunc

	mu    sync.Mutex
	state CopyState
	gen   int
	timer Timer
}

func (a *CopyAction) State() CopyState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Copy starts the clipboard write and returns immediately. The returned
// channel closes once the outcome is visible; callers may ignore it.
func (a *CopyAction) Copy() <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		var err error
		if a.clip == nil {
			err = errNoClipboard
		} else {
			err = a.clip.WriteAll(a.text)
		}
		if err != nil {
			logger.L.Warn("clipboard write failed", "error", err)
		}
		a.settle(err == nil)
	}()
	return done
}

func (a *CopyAction) settle(ok bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.state = CopyFailed
	if ok {
		a.state = CopyCopied
	}
	if a.timer != nil {
		a.timer.Stop()
	}
	a.gen++
	gen := a.gen
	a.timer = a.after(a.delay, func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		if a.gen == gen {
			a.state = CopyIdle
			a.timer = nil
		}
	})
}
