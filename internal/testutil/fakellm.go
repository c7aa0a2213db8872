package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
)

// ChatRequest is the decoded body of a chat completion call.
type ChatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
	ResponseFormat struct {
		Type string `json:"type"`
	} `json:"response_format"`
	Temperature float64 `json:"temperature"`
	Auth        string  `json:"-"`
}

// FakeLLM is an OpenAI-compatible chat completion endpoint that answers every
// call with canned message content.
type FakeLLM struct {
	Server *httptest.Server

	mu        sync.Mutex
	requests  []ChatRequest
	respond   func(ChatRequest) string
	failCode  int
	failBody  string
	rawAnswer string
}

// NewFakeLLM starts a fake generation service that is closed with the test.
func NewFakeLLM(t *testing.T) *FakeLLM {
	t.Helper()
	f := &FakeLLM{respond: func(ChatRequest) string { return "{}" }}

	r := chi.NewRouter()
	r.Post("/v1/chat/completions", f.handle)

	f.Server = httptest.NewServer(r)
	t.Cleanup(f.Server.Close)
	return f
}

// BaseURL is the value to configure as the generation base URL.
func (f *FakeLLM) BaseURL() string {
	return f.Server.URL + "/v1"
}

// SetContent makes every call return content as the first choice's message.
func (f *FakeLLM) SetContent(content string) {
	f.SetResponder(func(ChatRequest) string { return content })
}

// SetResponder computes the message content from the request.
func (f *FakeLLM) SetResponder(fn func(ChatRequest) string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.respond = fn
	f.rawAnswer = ""
}

// SetRawResponse makes every call return body verbatim with status 200,
// bypassing the completion envelope.
func (f *FakeLLM) SetRawResponse(body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rawAnswer = body
}

// Fail makes every call return status with body.
func (f *FakeLLM) Fail(status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failCode = status
	f.failBody = body
}

// Requests returns the calls received so far.
func (f *FakeLLM) Requests() []ChatRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ChatRequest(nil), f.requests...)
}

func (f *FakeLLM) handle(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	var req ChatRequest
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	req.Auth = r.Header.Get("Authorization")

	f.mu.Lock()
	f.requests = append(f.requests, req)
	failCode, failBody, raw, respond := f.failCode, f.failBody, f.rawAnswer, f.respond
	f.mu.Unlock()

	if failCode != 0 {
		w.WriteHeader(failCode)
		_, _ = w.Write([]byte(failBody))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if raw != "" {
		_, _ = w.Write([]byte(raw))
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"choices": []map[string]any{{
			"index":   0,
			"message": map[string]string{"role": "assistant", "content": respond(req)},
		}},
	})
}
