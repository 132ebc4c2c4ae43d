// Package gateway serves the completion endpoint: it accepts the chat UI's
// multipart turn, compiles the system instruction and dispatches to the
// selected upstream provider.
package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/comigor/halilintar-go/internal/config"
	"github.com/comigor/halilintar-go/internal/conversation"
	"github.com/comigor/halilintar-go/internal/llm"
	"github.com/comigor/halilintar-go/internal/logger"
	"github.com/comigor/halilintar-go/internal/personality"
)

// Multipart field names of a turn.
const (
	FieldMessages      = "messages"
	FieldModel         = "model"
	FieldPersonalities = "personalities"
	FieldFile          = "file"
)

// Response is the JSON body of every reply: exactly one field is set.
type Response struct {
	Content string `json:"content,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Handler is the POST /api/chat endpoint.
type Handler struct {
	providers llm.Providers
	limiter   *rate.Limiter
	maxBytes  int64
}

func New(providers llm.Providers, cfg config.GatewayConfig) *Handler {
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	maxBytes := cfg.MaxUploadBytes
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}
	return &Handler{
		providers: providers,
		limiter:   rate.NewLimiter(limit, burst),
		maxBytes:  maxBytes,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, Response{Error: "method not allowed"})
		return
	}
	if !h.limiter.Allow() {
		writeJSON(w, http.StatusTooManyRequests, Response{Error: "too many requests, slow down"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeJSON(w, http.StatusRequestEntityTooLarge, Response{Error: "request too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, Response{Error: "invalid form: " + err.Error()})
		return
	}
	defer r.MultipartForm.RemoveAll()

	rawMessages := r.FormValue(FieldMessages)
	if rawMessages == "" {
		writeJSON(w, http.StatusBadRequest, Response{Error: "messages required"})
		return
	}
	var messages []conversation.Message
	if err := json.Unmarshal([]byte(rawMessages), &messages); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Error: "invalid messages: " + err.Error()})
		return
	}
	var traits []string
	if raw := r.FormValue(FieldPersonalities); raw != "" {
		if err := json.Unmarshal([]byte(raw), &traits); err != nil {
			writeJSON(w, http.StatusBadRequest, Response{Error: "invalid personalities: " + err.Error()})
			return
		}
	}

	model := r.FormValue(FieldModel)
	provider, err := h.providers.Get(model)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Error: llm.ErrUnknownProvider.Error()})
		return
	}

	prompt := ""
	if len(messages) > 0 {
		prompt = messages[len(messages)-1].Content
	}
	if attached, err := attachment(r); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Error: err.Error()})
		return
	} else if attached != "" {
		prompt += attached
	}

	logger.L.Info("completion request", "model", model, "messages", len(messages), "traits", len(traits))
	content, err := provider.Complete(r.Context(), personality.Compile(traits), prompt)
	if err != nil {
		logger.L.Error("completion failed", "model", model, "error", err)
		writeJSON(w, http.StatusInternalServerError, Response{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, Response{Content: content})
}

// attachment renders the optional uploaded file as text appended to the
// latest user turn.
func attachment(r *http.Request) (string, error) {
	f, hdr, err := r.FormFile(FieldFile)
	if errors.Is(err, http.ErrMissingFile) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("invalid file: %w", err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	return fmt.Sprintf("\n\n[File: %s]\n%s", hdr.Filename, data), nil
}

func writeJSON(w http.ResponseWriter, status int, body Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.L.Warn("response write failed", "error", err)
	}
}
