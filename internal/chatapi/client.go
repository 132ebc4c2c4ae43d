// Package chatapi is the client side of the completion endpoint.
package chatapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/comigor/halilintar-go/internal/conversation"
	"github.com/comigor/halilintar-go/internal/gateway"
)

// ErrMalformed is returned when the endpoint answers with a body that is
// neither {content} nor {error}.
var ErrMalformed = errors.New("malformed completion response")

// RemoteError carries an {error} reported by the endpoint.
type RemoteError struct {
	Status  int
	Message string
}

func (e *RemoteError) Error() string { return e.Message }

// Attachment is an optional file sent alongside a turn.
type Attachment struct {
	Name    string
	Content []byte
}

// Request is one completion turn.
type Request struct {
	Messages      []conversation.Message
	Model         string
	Personalities []string
	File          *Attachment
}

// Client posts turns to the completion endpoint.
type Client struct {
	endpoint string
	http     *http.Client
}

// New returns a client for endpoint. A nil httpClient gets one without a
// timeout: a turn waits for the endpoint however long it takes.
func New(endpoint string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{endpoint: endpoint, http: httpClient}
}

// Complete sends req and returns the assistant content.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	body, contentType, err := encode(req)
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", contentType)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("completion request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("completion response: %w", err)
	}

	var out gateway.Response
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("%w: status %d", ErrMalformed, resp.StatusCode)
	}
	if out.Error != "" {
		return "", &RemoteError{Status: resp.StatusCode, Message: out.Error}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: status %d", ErrMalformed, resp.StatusCode)
	}
	if out.Content == "" {
		return "", fmt.Errorf("%w: empty content", ErrMalformed)
	}
	return out.Content, nil
}

func encode(req Request) (io.Reader, string, error) {
	msgs := req.Messages
	if msgs == nil {
		msgs = []conversation.Message{}
	}
	messages, err := json.Marshal(msgs)
	if err != nil {
		return nil, "", err
	}
	traits := req.Personalities
	if traits == nil {
		traits = []string{}
	}
	personalities, err := json.Marshal(traits)
	if err != nil {
		return nil, "", err
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fields := [][2]string{
		{gateway.FieldMessages, string(messages)},
		{gateway.FieldModel, req.Model},
		{gateway.FieldPersonalities, string(personalities)},
	}
	for _, f := range fields {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return nil, "", err
		}
	}
	if req.File != nil {
		fw, err := mw.CreateFormFile(gateway.FieldFile, req.File.Name)
		if err != nil {
			return nil, "", err
		}
		if _, err := fw.Write(req.File.Content); err != nil {
			return nil, "", err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}
