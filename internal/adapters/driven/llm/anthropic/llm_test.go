package anthropic

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/proofscan/internal/core/ports/driven"
)

const messageReply = `{
  "id": "msg_1",
  "type": "message",
  "role": "assistant",
  "model": "claude-test",
  "content": [{"type": "text", "text": "{\"offers\": [\"$500 off\"]}"}],
  "stop_reason": "end_turn",
  "usage": {"input_tokens": 10, "output_tokens": 5}
}`

type messagesServer struct {
	*httptest.Server
	body   map[string]any
	apiKey string
}

func newMessagesServer(t *testing.T, status int, reply string) *messagesServer {
	t.Helper()
	s := &messagesServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.apiKey = r.Header.Get("X-Api-Key")
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/v1/messages":
			_ = json.NewDecoder(r.Body).Decode(&s.body)
			w.WriteHeader(status)
			_, _ = w.Write([]byte(reply))
		case "/v1/models":
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"data":[],"has_more":false,"first_id":null,"last_id":null}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(s.Close)
	return s
}

func TestNewLLMService(t *testing.T) {
	_, err := NewLLMService(Config{})
	assert.Error(t, err)

	svc, err := NewLLMService(Config{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, svc.ModelName())
}

func TestGenerate(t *testing.T) {
	tests := []struct {
		name       string
		opts       driven.GenerateOptions
		wantBlocks []string
		maxTokens  float64
	}{
		{
			name:       "text only",
			opts:       driven.GenerateOptions{},
			wantBlocks: []string{"text"},
			maxTokens:  DefaultMaxTokens,
		},
		{
			name: "pdf attachment",
			opts: driven.GenerateOptions{
				MaxTokens:  300,
				Attachment: &driven.Attachment{MIMEType: "application/pdf", Data: []byte("%PDF-1.7")},
			},
			wantBlocks: []string{"document", "text"},
			maxTokens:  300,
		},
		{
			name: "unsupported attachment dropped",
			opts: driven.GenerateOptions{
				Attachment: &driven.Attachment{MIMEType: "image/png", Data: []byte{0x89}},
			},
			wantBlocks: []string{"text"},
			maxTokens:  DefaultMaxTokens,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newMessagesServer(t, http.StatusOK, messageReply)
			svc, err := NewLLMService(Config{APIKey: "secret", BaseURL: srv.URL, Model: "claude-test"})
			require.NoError(t, err)

			text, err := svc.Generate(context.Background(), "find coupons", tt.opts)
			require.NoError(t, err)
			assert.Equal(t, `{"offers": ["$500 off"]}`, text)
			assert.Equal(t, "secret", srv.apiKey)
			assert.Equal(t, "claude-test", srv.body["model"])
			assert.Equal(t, tt.maxTokens, srv.body["max_tokens"])

			messages := srv.body["messages"].([]any)
			require.Len(t, messages, 1)
			content := messages[0].(map[string]any)["content"].([]any)
			var types []string
			for _, c := range content {
				types = append(types, c.(map[string]any)["type"].(string))
			}
			assert.Equal(t, tt.wantBlocks, types)

			if tt.wantBlocks[0] == "document" {
				source := content[0].(map[string]any)["source"].(map[string]any)
				assert.Equal(t, "application/pdf", source["media_type"])
				assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("%PDF-1.7")), source["data"])
			}
		})
	}
}

func TestGenerate_JSONInstruction(t *testing.T) {
	srv := newMessagesServer(t, http.StatusOK, messageReply)
	svc, err := NewLLMService(Config{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = svc.Generate(context.Background(), "find coupons", driven.GenerateOptions{JSON: true, Temperature: 0.2})
	require.NoError(t, err)

	content := srv.body["messages"].([]any)[0].(map[string]any)["content"].([]any)
	assert.Contains(t, content[0].(map[string]any)["text"], jsonInstruction)
	assert.InDelta(t, 0.2, srv.body["temperature"], 0.0001)
}

func TestGenerate_ZeroTemperatureIsSent(t *testing.T) {
	srv := newMessagesServer(t, http.StatusOK, messageReply)
	svc, err := NewLLMService(Config{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = svc.Generate(context.Background(), "find coupons", driven.GenerateOptions{Temperature: 0})
	require.NoError(t, err)

	temp, ok := srv.body["temperature"]
	require.True(t, ok, "temperature must be present in the request")
	assert.InDelta(t, 0, temp, 0.0001)
}

func TestGenerate_APIError(t *testing.T) {
	srv := newMessagesServer(t, http.StatusInternalServerError,
		`{"type":"error","error":{"type":"api_error","message":"boom"}}`)
	svc, err := NewLLMService(Config{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = svc.Generate(context.Background(), "p", driven.GenerateOptions{})
	assert.ErrorContains(t, err, "anthropic")
}

func TestPing(t *testing.T) {
	srv := newMessagesServer(t, http.StatusOK, "")
	svc, err := NewLLMService(Config{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)
	assert.NoError(t, svc.Ping(context.Background()))

	denied := newMessagesServer(t, http.StatusUnauthorized, "")
	svc, err = NewLLMService(Config{APIKey: "k", BaseURL: denied.URL})
	require.NoError(t, err)
	assert.Error(t, svc.Ping(context.Background()))
}
