package llmclient

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xkilldash9x/droidpilot/api/schemas"
	"github.com/xkilldash9x/droidpilot/internal/config"
)

// setupGoogleClient points a GoogleClient at a mock HTTP server.
func setupGoogleClient(t *testing.T, handler http.HandlerFunc) (*GoogleClient, config.LLMModelConfig, *observer.ObservedLogs) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	loggerCore, observedLogs := observer.New(zap.InfoLevel)
	cfg := getValidLLMConfig()
	cfg.Endpoint = server.URL

	client, err := NewGoogleClient(context.Background(), cfg, zap.New(loggerCore))
	require.NoError(t, err, "NewGoogleClient initialization failed")
	return client, cfg, observedLogs
}

func createTestRequest() schemas.GenerationRequest {
	return schemas.GenerationRequest{
		SystemPrompt: "System prompt instructions.",
		UserPrompt:   "User query.",
		Images:       []schemas.ImagePart{{MIMEType: "image/png", Data: []byte("fake-png")}},
		Options:      schemas.GenerationOptions{Temperature: 0.2, ForceJSONFormat: true},
	}
}

const okResponse = `{
  "candidates": [{"content": {"role": "model", "parts": [{"text": "{\"status\":\"COMPLETE\"}"}]}, "finishReason": "STOP"}],
  "usageMetadata": {"promptTokenCount": 11, "candidatesTokenCount": 7, "totalTokenCount": 18}
}`

func TestNewGoogleClient_Validation(t *testing.T) {
	logger := setupTestLogger(t)

	cfg := getValidLLMConfig()
	cfg.APIKey = ""
	_, err := NewGoogleClient(context.Background(), cfg, logger)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key is required")

	cfg = getValidLLMConfig()
	cfg.Model = ""
	_, err = NewGoogleClient(context.Background(), cfg, logger)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model name is required")

	client, err := NewGoogleClient(context.Background(), getValidLLMConfig(), logger)
	require.NoError(t, err)
	assert.NotNil(t, client.client)
	assert.Equal(t, "test-model", client.config.Model)
	assert.NoError(t, client.Close())
}

func TestGoogleClient_Generate_Success(t *testing.T) {
	var calls int32
	var body string
	client, _, logs := setupGoogleClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.True(t, strings.HasSuffix(r.URL.Path, "models/test-model:generateContent"), "unexpected path %s", r.URL.Path)
		assert.Equal(t, "test-api-key", r.Header.Get("x-goog-api-key"))
		raw, _ := io.ReadAll(r.Body)
		body = string(raw)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, okResponse)
	})

	out, err := client.Generate(context.Background(), createTestRequest())
	require.NoError(t, err)
	assert.Equal(t, `{"status":"COMPLETE"}`, out)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	assert.Contains(t, body, "User query.")
	assert.Contains(t, body, "System prompt instructions.")
	assert.Contains(t, body, "image/png")
	assert.Contains(t, body, base64.StdEncoding.EncodeToString([]byte("fake-png")))
	assert.Contains(t, body, "application/json")

	entries := logs.FilterMessage("LLM generation complete (Gemini)").All()
	require.Len(t, entries, 1)
	assert.EqualValues(t, 18, entries[0].ContextMap()["total_tokens"])
}

func TestGoogleClient_Generate_Failures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{
			name:    "api error status",
			status:  http.StatusBadRequest,
			body:    `{"error": {"code": 400, "message": "API key not valid", "status": "INVALID_ARGUMENT"}}`,
			wantErr: "gemini API error",
		},
		{
			name:    "no candidates",
			status:  http.StatusOK,
			body:    `{"candidates": []}`,
			wantErr: "no candidates",
		},
		{
			name:    "blocked prompt",
			status:  http.StatusOK,
			body:    `{"promptFeedback": {"blockReason": "SAFETY"}}`,
			wantErr: "blocked the request",
		},
		{
			name:    "empty text",
			status:  http.StatusOK,
			body:    `{"candidates": [{"content": {"role": "model", "parts": []}, "finishReason": "MAX_TOKENS"}]}`,
			wantErr: "empty content",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _, _ := setupGoogleClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})
			_, err := client.Generate(context.Background(), createTestRequest())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGoogleClient_BuildGenerateConfig(t *testing.T) {
	cfg := getValidLLMConfig()
	cfg.TopP = 0.9
	cfg.TopK = 40
	cfg.SafetyFilters = map[string]string{"HARM_CATEGORY_HARASSMENT": "BLOCK_NONE"}
	client := &GoogleClient{config: cfg, logger: zap.NewNop()}

	gc := client.buildGenerateConfig(schemas.GenerationRequest{SystemPrompt: "sys", Options: schemas.GenerationOptions{ForceJSONFormat: true}})
	require.NotNil(t, gc.Temperature)
	assert.InDelta(t, 0.4, *gc.Temperature, 1e-6, "falls back to the model temperature")
	require.NotNil(t, gc.TopP)
	assert.InDelta(t, 0.9, *gc.TopP, 1e-6)
	require.NotNil(t, gc.TopK)
	assert.InDelta(t, 40, *gc.TopK, 1e-6)
	assert.Equal(t, int32(512), gc.MaxOutputTokens)
	assert.Equal(t, "application/json", gc.ResponseMIMEType)
	require.NotNil(t, gc.SystemInstruction)
	require.Len(t, gc.SafetySettings, 1)
	assert.Equal(t, "HARM_CATEGORY_HARASSMENT", string(gc.SafetySettings[0].Category))

	plain := client.buildGenerateConfig(schemas.GenerationRequest{Options: schemas.GenerationOptions{Temperature: 0.1}})
	assert.InDelta(t, 0.1, *plain.Temperature, 1e-6)
	assert.Empty(t, plain.ResponseMIMEType)
	assert.Nil(t, plain.SystemInstruction)
}
