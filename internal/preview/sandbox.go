package preview

import (
	"errors"
	"net/http"
	"sync"

	"github.com/google/uuid"

	"github.com/comigor/halilintar-go/internal/fence"
	"github.com/comigor/halilintar-go/internal/logger"
)

// SandboxAttr is the iframe sandbox token list for live previews. It must
// never grow allow-same-origin: the preview may not reach host cookies,
// storage or DOM.
const SandboxAttr = "allow-scripts"

// contentPolicy repeats the iframe restrictions on the document response so
// that opening the URL directly is just as isolated.
const contentPolicy = "sandbox " + SandboxAttr

var ErrNotRenderable = errors.New("preview: language is not renderable")

// Context is one live isolated execution context.
type Context interface {
	ID() string
	Close() error
}

// Launcher creates isolated contexts for renderable segments.
type Launcher interface {
	Launch(seg fence.Segment) (Context, error)
}

// Registry holds the documents of every open preview and serves them.
// A document exists only between Launch and Close of its frame.
type Registry struct {
	mu   sync.RWMutex
	docs map[string]string
}

func NewRegistry() *Registry {
	return &Registry{docs: make(map[string]string)}
}

// Launch registers seg as a sandboxed document.
func (r *Registry) Launch(seg fence.Segment) (Context, error) {
	if seg.Kind != fence.Code || !Eligible(seg.Language) {
		return nil, ErrNotRenderable
	}
	id := uuid.NewString()
	r.mu.Lock()
	r.docs[id] = seg.Text
	r.mu.Unlock()
	logger.L.Debug("preview opened", "id", id, "language", seg.Language)
	return &frame{id: id, reg: r}, nil
}

// Document returns the body of an open preview.
func (r *Registry) Document(id string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.docs[id]
	return doc, ok
}

// Len is the number of open previews.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.docs)
}

func (r *Registry) remove(id string) {
	r.mu.Lock()
	delete(r.docs, id)
	r.mu.Unlock()
}

// ServeHTTP writes the document named by the "id" path value.
func (r *Registry) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	doc, ok := r.Document(req.PathValue("id"))
	if !ok {
		http.NotFound(w, req)
		return
	}
	h := w.Header()
	h.Set("Content-Type", "text/html; charset=utf-8")
	h.Set("Content-Security-Policy", contentPolicy)
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("Referrer-Policy", "no-referrer")
	h.Set("Cache-Control", "no-store")
	if _, err := w.Write([]byte(doc)); err != nil {
		logger.L.Warn("preview write failed", "id", req.PathValue("id"), "error", err)
	}
}

type frame struct {
	id   string
	reg  *Registry
	once sync.Once
}

func (f *frame) ID() string { return f.id }

func (f *frame) Close() error {
	f.once.Do(func() {
		f.reg.remove(f.id)
		logger.L.Debug("preview closed", "id", f.id)
	})
	return nil
}
