package ollama

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

type keyResponse struct {
	Key         string `json:"key"`
	Description string `json:"description"`
}

func TestGenerateCompletionWithFormat(t *testing.T) {
	var req map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("Authorization got = %q, want Bearer secret", got)
		}
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &req)

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"model":"llama3","message":{"role":"assistant","content":"{\"key\":\"title\",\"description\":\"Item title\"}"},"done":true,"prompt_eval_count":10,"eval_count":5}`)
	}))
	defer srv.Close()

	client, err := NewOllamaClient(NewOllamaClientParams{Model: "llama3", BaseURL: srv.URL, ApiKey: "secret"})
	if err != nil {
		t.Fatalf("NewOllamaClient() error = %v", err)
	}

	var got keyResponse
	if err := client.GenerateCompletionWithFormat(t.Context(), "key_response", "", "name it", &got); err != nil {
		t.Fatalf("GenerateCompletionWithFormat() error = %v", err)
	}
	if got.Key != "title" {
		t.Fatalf("GenerateCompletionWithFormat() got = %+v, want key title", got)
	}
	if req["format"] == nil {
		t.Fatal("request has no format schema")
	}
	if m := client.GetMetrics(); m.TotalTokens != 15 || m.Requests != 1 {
		t.Fatalf("GetMetrics() got = %+v", m)
	}
}

func TestGenerateCompletionWithFormat_NilOut(t *testing.T) {
	client, err := NewOllamaClient(NewOllamaClientParams{BaseURL: "http://127.0.0.1:1"})
	if err != nil {
		t.Fatalf("NewOllamaClient() error = %v", err)
	}
	if err := client.GenerateCompletionWithFormat(t.Context(), "x", "", "p", nil); err == nil {
		t.Fatal("GenerateCompletionWithFormat() expected error for nil out")
	}
}
