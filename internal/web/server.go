// Package web serves the browser chat UI.
package web

import (
	"embed"
	"errors"
	"html/template"
	"io"
	"net/http"
	"time"

	"github.com/comigor/halilintar-go/internal/chatapi"
	"github.com/comigor/halilintar-go/internal/conversation"
	"github.com/comigor/halilintar-go/internal/llm"
	"github.com/comigor/halilintar-go/internal/logger"
	"github.com/comigor/halilintar-go/internal/personality"
	"github.com/comigor/halilintar-go/internal/preview"
	"github.com/comigor/halilintar-go/internal/render"
	"github.com/comigor/halilintar-go/internal/session"
	"github.com/comigor/halilintar-go/internal/theme"
)

//go:embed templates/*.html
var templateFS embed.FS

// Form field names of the send form.
const (
	FieldText        = "text"
	FieldProvider    = "provider"
	FieldPersonality = "personality"
	FieldFile        = "file"
)

// Deps are the components the UI drives.
type Deps struct {
	Store      *conversation.Store
	Controller *session.Controller
	Renderer   *render.Renderer
	Previews   *preview.Registry
	Themes     theme.Backend

	DefaultProvider string
	CopyFeedback    time.Duration
	MaxUploadBytes  int64
}

type Server struct {
	Deps
	tmpl *template.Template
}

func New(d Deps) (*Server, error) {
	if d.CopyFeedback <= 0 {
		d.CopyFeedback = render.DefaultCopyFeedback
	}
	if d.MaxUploadBytes <= 0 {
		d.MaxUploadBytes = 10 << 20
	}
	if d.DefaultProvider == "" {
		d.DefaultProvider = llm.Gemini
	}
	tmpl, err := template.New("index.html").Funcs(template.FuncMap{
		"dataURI": render.DataURI,
		"isCode":  func(b render.Block) bool { return b.Kind == render.BlockCode },
		"label":   llm.Label,
		"millis":  func(d time.Duration) int64 { return d.Milliseconds() },
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &Server{Deps: d, tmpl: tmpl}, nil
}

// Register mounts the UI routes on mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", s.index)
	mux.HandleFunc("POST /conversations", s.create)
	mux.HandleFunc("POST /conversations/{id}/select", s.selectConversation)
	mux.HandleFunc("POST /conversations/{id}/delete", s.delete)
	mux.HandleFunc("POST /conversations/{id}/messages", s.send)
	mux.HandleFunc("POST /messages/{id}/preview", s.togglePreview)
	mux.HandleFunc("POST /theme", s.toggleTheme)
	mux.Handle("GET /sandbox/{id}", s.Previews)
}

type pageData struct {
	Theme           theme.Preference
	Conversations   []conversation.Conversation
	Current         *conversation.Conversation
	Views           []render.View
	Busy            bool
	Providers       []string
	DefaultProvider string
	Traits          []personality.Trait
	CopyFeedback    time.Duration
	SandboxAttr     string
}

func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	data := pageData{
		Theme:           s.Renderer.Theme(),
		Conversations:   s.Store.List(),
		Providers:       llm.Tags,
		DefaultProvider: s.DefaultProvider,
		Traits:          personality.Traits,
		CopyFeedback:    s.CopyFeedback,
		SandboxAttr:     preview.SandboxAttr,
	}
	if cur, ok := s.Store.Current(); ok {
		data.Current = &cur
		data.Busy = s.Controller.Busy(cur.ID)
		for _, m := range cur.Messages {
			data.Views = append(data.Views, s.Renderer.Render(m))
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.ExecuteTemplate(w, "index.html", data); err != nil {
		logger.L.Error("render page failed", "error", err)
	}
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	c := s.Store.Create()
	logger.L.Info("conversation created", "conversation", c.ID)
	home(w, r)
}

func (s *Server) selectConversation(w http.ResponseWriter, r *http.Request) {
	if !s.Store.Select(r.PathValue("id")) {
		http.NotFound(w, r)
		return
	}
	home(w, r)
}

func (s *Server) delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if c, ok := s.Store.Get(id); ok {
		ids := make([]string, len(c.Messages))
		for i, m := range c.Messages {
			ids[i] = m.ID
		}
		s.Renderer.Forget(ids...)
	}
	s.Store.Delete(id)
	s.Controller.Forget(id)
	home(w, r)
}

func (s *Server) send(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	r.Body = http.MaxBytesReader(w, r.Body, s.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.MaxUploadBytes); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			http.Error(w, "attachment too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	att, err := attachment(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	provider := r.FormValue(FieldProvider)
	if provider == "" {
		provider = s.DefaultProvider
	}

	_, err = s.Controller.Send(r.Context(), session.Turn{
		ConversationID: id,
		Text:           r.FormValue(FieldText),
		Provider:       provider,
		Personalities:  r.MultipartForm.Value[FieldPersonality],
		Attachment:     att,
	})
	switch {
	case errors.Is(err, session.ErrBusy):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	case errors.Is(err, session.ErrUnknownConversation):
		http.NotFound(w, r)
		return
	case errors.Is(err, session.ErrEmptyInput):
	case err != nil:
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	home(w, r)
}

func attachment(r *http.Request) (*chatapi.Attachment, error) {
	f, hdr, err := r.FormFile(FieldFile)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if hdr.Filename == "" {
		return nil, nil
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	return &chatapi.Attachment{Name: hdr.Filename, Content: data}, nil
}

func (s *Server) togglePreview(w http.ResponseWriter, r *http.Request) {
	t, ok := s.Renderer.Toggle(r.PathValue("id"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	if err := t.Flip(); err != nil {
		logger.L.Warn("preview toggle failed", "message", r.PathValue("id"), "error", err)
	}
	home(w, r)
}

func (s *Server) toggleTheme(w http.ResponseWriter, r *http.Request) {
	next := s.Renderer.Theme().Toggle()
	s.Renderer.SetTheme(next)
	if err := theme.Save(s.Themes, next); err != nil {
		logger.L.Error("theme save failed", "error", err)
	}
	home(w, r)
}

func home(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
