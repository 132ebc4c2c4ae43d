package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/comigor/halilintar-go/internal/config"
	"github.com/comigor/halilintar-go/internal/llm"
	"github.com/comigor/halilintar-go/internal/personality"
)

type fakeProvider struct {
	reply  string
	err    error
	system string
	prompt string
}

func (f *fakeProvider) Complete(ctx context.Context, system, prompt string) (string, error) {
	f.system, f.prompt = system, prompt
	return f.reply, f.err
}

type form struct {
	fields   map[string]string
	fileName string
	fileBody string
}

func (f form) request(t *testing.T) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range f.fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if f.fileName != "" {
		fw, err := mw.CreateFormFile(FieldFile, f.fileName)
		require.NoError(t, err)
		_, err = fw.Write([]byte(f.fileBody))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/chat", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func serve(t *testing.T, h http.Handler, req *http.Request) (int, Response) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec.Code, resp
}

func newHandler(p llm.Provider) *Handler {
	return New(llm.Providers{llm.Gemini: p, llm.DeepSeek: p}, config.GatewayConfig{})
}

func TestGateway_Success(t *testing.T) {
	p := &fakeProvider{reply: "pong"}
	h := newHandler(p)

	code, resp := serve(t, h, form{fields: map[string]string{
		FieldMessages:      `[{"id":"1","role":"user","content":"earlier"},{"id":"2","role":"user","content":"ping"}]`,
		FieldModel:         llm.Gemini,
		FieldPersonalities: `["ringkas"]`,
	}}.request(t))

	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "pong", resp.Content)
	require.Empty(t, resp.Error)
	require.Equal(t, "ping", p.prompt)
	require.Equal(t, personality.Compile([]string{"ringkas"}), p.system)
}

func TestGateway_AppendsAttachment(t *testing.T) {
	p := &fakeProvider{reply: "ok"}
	h := newHandler(p)

	code, _ := serve(t, h, form{
		fields: map[string]string{
			FieldMessages: `[{"id":"1","role":"user","content":"summarise"}]`,
			FieldModel:    llm.DeepSeek,
		},
		fileName: "notes.txt",
		fileBody: "line one",
	}.request(t))

	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "summarise\n\n[File: notes.txt]\nline one", p.prompt)
}

func TestGateway_MessagesRequired(t *testing.T) {
	code, resp := serve(t, newHandler(&fakeProvider{}), form{fields: map[string]string{FieldModel: llm.Gemini}}.request(t))
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, "messages required", resp.Error)
}

func TestGateway_MalformedMessages(t *testing.T) {
	code, resp := serve(t, newHandler(&fakeProvider{}), form{fields: map[string]string{
		FieldMessages: "[{",
		FieldModel:    llm.Gemini,
	}}.request(t))
	require.Equal(t, http.StatusBadRequest, code)
	require.True(t, strings.HasPrefix(resp.Error, "invalid messages"))
}

func TestGateway_InvalidModel(t *testing.T) {
	code, resp := serve(t, newHandler(&fakeProvider{}), form{fields: map[string]string{
		FieldMessages: `[]`,
		FieldModel:    "gpt-9",
	}}.request(t))
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, "invalid model", resp.Error)
}

func TestGateway_ProviderFailure(t *testing.T) {
	code, resp := serve(t, newHandler(&fakeProvider{err: errors.New("boom")}), form{fields: map[string]string{
		FieldMessages: `[{"id":"1","role":"user","content":"hi"}]`,
		FieldModel:    llm.Gemini,
	}}.request(t))
	require.Equal(t, http.StatusInternalServerError, code)
	require.Equal(t, "boom", resp.Error)
}

func TestGateway_RateLimited(t *testing.T) {
	h := New(llm.Providers{llm.Gemini: &fakeProvider{reply: "x"}}, config.GatewayConfig{RateLimit: 0.001, Burst: 1})
	fields := map[string]string{FieldMessages: `[{"id":"1","role":"user","content":"hi"}]`, FieldModel: llm.Gemini}

	code, _ := serve(t, h, form{fields: fields}.request(t))
	require.Equal(t, http.StatusOK, code)
	code, resp := serve(t, h, form{fields: fields}.request(t))
	require.Equal(t, http.StatusTooManyRequests, code)
	require.NotEmpty(t, resp.Error)
}

func TestGateway_TooLarge(t *testing.T) {
	h := New(llm.Providers{llm.Gemini: &fakeProvider{reply: "x"}}, config.GatewayConfig{MaxUploadBytes: 64})
	code, resp := serve(t, h, form{
		fields:   map[string]string{FieldMessages: `[]`, FieldModel: llm.Gemini},
		fileName: "big.txt",
		fileBody: strings.Repeat("a", 4096),
	}.request(t))
	require.Equal(t, http.StatusRequestEntityTooLarge, code)
	require.Equal(t, "request too large", resp.Error)
}

func TestGateway_MethodNotAllowed(t *testing.T) {
	code, _ := serve(t, newHandler(&fakeProvider{}), httptest.NewRequest(http.MethodGet, "/api/chat", nil))
	require.Equal(t, http.StatusMethodNotAllowed, code)
}
