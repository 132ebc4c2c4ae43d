// Package render turns chat messages into display trees: prose and code
// blocks, a preview toggle on the first code block, and per-block copy
// actions.
package render

import (
	"errors"
	"fmt"
	"html/template"
	"net/url"
	"sync"
	"time"

	"github.com/comigor/halilintar-go/internal/conversation"
	"github.com/comigor/halilintar-go/internal/fence"
	"github.com/comigor/halilintar-go/internal/llm"
	"github.com/comigor/halilintar-go/internal/logger"
	"github.com/comigor/halilintar-go/internal/preview"
	"github.com/comigor/halilintar-go/internal/theme"
)

// DefaultCopyFeedback is how long copy feedback stays visible.
const DefaultCopyFeedback = 2 * time.Second

var errNoClipboard = errors.New("no clipboard available")

// Options are the capabilities and settings a Renderer is built with.
type Options struct {
	Theme      theme.Preference
	StyleLight string
	StyleDark  string

	Clipboard    Clipboard
	CopyFeedback time.Duration
	AfterFunc    AfterFunc

	// Launcher opens preview contexts. Nil disables previews.
	Launcher preview.Launcher
}

// BlockKind tells prose from code.
type BlockKind int

const (
	BlockProse BlockKind = iota
	BlockCode
)

// Block is one rendered segment.
type Block struct {
	Kind         BlockKind
	Text         string
	Language     string
	Unterminated bool
	// Offset is the byte offset of the segment in the message content.
	Offset int

	// Code only.
	Highlighted template.HTML
	Filename    string
	Copy        *CopyAction
	// Preview is set on the first code block only.
	Preview *preview.Toggle
}

// View is the display tree of one message.
type View struct {
	MessageID  string
	Role       conversation.Role
	ModelLabel string
	// Plain is true when the content had no fence and renders as one
	// reflowed text block.
	Plain  bool
	Blocks []Block
}

// FirstCode returns the block carrying the preview toggle.
func (v View) FirstCode() (Block, bool) {
	for _, b := range v.Blocks {
		if b.Kind == BlockCode {
			return b, true
		}
	}
	return Block{}, false
}

type copyKey struct {
	message string
	offset  int
}

// Renderer builds views. Copy actions and preview toggles are kept per
// message so their state survives re-rendering.
type Renderer struct {
	opts Options

	mu      sync.Mutex
	theme   theme.Preference
	copies  map[copyKey]*CopyAction
	toggles map[string]*preview.Toggle
}

func New(opts Options) *Renderer {
	if opts.CopyFeedback <= 0 {
		opts.CopyFeedback = DefaultCopyFeedback
	}
	if opts.AfterFunc == nil {
		opts.AfterFunc = realAfterFunc
	}
	if opts.StyleLight == "" {
		opts.StyleLight = "github"
	}
	if opts.StyleDark == "" {
		opts.StyleDark = "monokai"
	}
	if opts.Theme == "" {
		opts.Theme = theme.Default
	}
	return &Renderer{
		opts:    opts,
		theme:   opts.Theme,
		copies:  make(map[copyKey]*CopyAction),
		toggles: make(map[string]*preview.Toggle),
	}
}

// SetTheme switches the highlighting style of subsequent renders.
func (r *Renderer) SetTheme(p theme.Preference) {
	r.mu.Lock()
	r.theme = p
	r.mu.Unlock()
}

func (r *Renderer) Theme() theme.Preference {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.theme
}

func (r *Renderer) style() string {
	if r.Theme() == theme.Dark {
		return r.opts.StyleDark
	}
	return r.opts.StyleLight
}

// Render builds the view of msg.
func (r *Renderer) Render(msg conversation.Message) View {
	v := View{MessageID: msg.ID, Role: msg.Role}
	if msg.Role == conversation.RoleAssistant && msg.Model != "" {
		v.ModelLabel = llm.Label(msg.Model)
	}

	if !fence.HasFence(msg.Content) {
		v.Plain = true
		if msg.Content != "" {
			v.Blocks = []Block{{Kind: BlockProse, Text: msg.Content}}
		}
		return v
	}

	style := r.style()
	first := true
	for seg := range fence.Parse(msg.Content) {
		if seg.Kind == fence.Prose {
			v.Blocks = append(v.Blocks, Block{Kind: BlockProse, Text: seg.Text, Offset: seg.Offset})
			continue
		}
		b := Block{
			Kind:         BlockCode,
			Text:         seg.Text,
			Language:     seg.Language,
			Unterminated: seg.Unterminated,
			Offset:       seg.Offset,
			Highlighted:  highlightHTML(seg.Language, seg.Text, style),
			Filename:     Filename(seg.Language),
			Copy:         r.copyAction(msg.ID, seg),
		}
		if first {
			b.Preview = r.toggle(msg.ID, seg)
			first = false
		}
		v.Blocks = append(v.Blocks, b)
	}
	return v
}

func (r *Renderer) copyAction(messageID string, seg fence.Segment) *CopyAction {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := copyKey{messageID, seg.Offset}
	if a, ok := r.copies[key]; ok {
		return a
	}
	a := &CopyAction{
		text:  seg.Text,
		clip:  r.opts.Clipboard,
		delay: r.opts.CopyFeedback,
		after: r.opts.AfterFunc,
	}
	r.copies[key] = a
	return a
}

func (r *Renderer) toggle(messageID string, seg fence.Segment) *preview.Toggle {
	if r.opts.Launcher == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.toggles[messageID]; ok {
		return t
	}
	t := preview.NewToggle(r.opts.Launcher, seg)
	r.toggles[messageID] = t
	return t
}

// Toggle returns the preview toggle of a rendered message.
func (r *Renderer) Toggle(messageID string) (*preview.Toggle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.toggles[messageID]
	return t, ok
}

// CopyAction returns the copy action of the code block starting at offset.
func (r *Renderer) CopyAction(messageID string, offset int) (*CopyAction, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.copies[copyKey{messageID, offset}]
	return a, ok
}

// Forget tears down any preview and drops per-block state of the given
// messages.
func (r *Renderer) Forget(messageIDs ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	drop := make(map[string]bool, len(messageIDs))
	for _, id := range messageIDs {
		drop[id] = true
		if t, ok := r.toggles[id]; ok {
			if err := t.Close(); err != nil {
				logger.L.Warn("preview teardown failed", "message", id, "error", err)
			}
			delete(r.toggles, id)
		}
	}
	for k := range r.copies {
		if drop[k.message] {
			delete(r.copies, k)
		}
	}
}

// DataURI is a download link for a code block.
func DataURI(b Block) template.URL {
	return template.URL(fmt.Sprintf("data:text/plain;charset=utf-8,%s", url.PathEscape(b.Text)))
}
