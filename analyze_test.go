package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func completionBody(content string) string {
	b, _ := json.Marshal(chatResponse{
		Choices: []chatChoice{{Message: chatMessage{Role: "assistant", Content: content}}},
	})
	return string(b)
}

func TestAnalyzeSuccess(t *testing.T) {
	var gotReq chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(completionBody("```json\n" + sampleAnalysisJSON + "\n```")))
	}))
	defer server.Close()

	client := NewOpenRouterClient(server.URL, "test-key", zap.NewNop().Sugar())
	a := client.Analyze(context.Background(), "prompt text")

	assert.Empty(t, a.Error)
	assert.Equal(t, "Two suppliers posting surgical gloves", a.Summary)

	assert.Equal(t, analysisModel, gotReq.Model)
	assert.Equal(t, analysisMaxTokens, gotReq.MaxTokens)
	assert.InDelta(t, analysisTemperature, gotReq.Temperature, 1e-9)
	require.Len(t, gotReq.Messages, 2)
	assert.Equal(t, "system", gotReq.Messages[0].Role)
	assert.Contains(t, gotReq.Messages[0].Content, "required schema")
	assert.Equal(t, "prompt text", gotReq.Messages[1].Content)
}

func TestAnalyzeUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"quota exceeded"}}`, http.StatusPaymentRequired)
	}))
	defer server.Close()

	client := NewOpenRouterClient(server.URL, "test-key", zap.NewNop().Sugar())
	a := client.Analyze(context.Background(), "prompt text")

	assert.Equal(t, "AI analysis failed", a.Error)
	assert.Contains(t, a.Details, "402")
}

func TestAnalyzeTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on

	client := NewOpenRouterClient(server.URL, "test-key", zap.NewNop().Sugar())
	a := client.Analyze(context.Background(), "prompt text")

	assert.Equal(t, "AI analysis failed", a.Error)
	assert.NotEmpty(t, a.Details)
}

func TestAnalyzeEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	client := NewOpenRouterClient(server.URL, "test-key", zap.NewNop().Sugar())
	a := client.Analyze(context.Background(), "prompt text")

	assert.Equal(t, "AI analysis failed", a.Error)
}

func TestAnalyzeUnparseableContentKeepsRaw(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(completionBody("Sorry, I cannot help with that.")))
	}))
	defer server.Close()

	client := NewOpenRouterClient(server.URL, "test-key", zap.NewNop().Sugar())
	a := client.Analyze(context.Background(), "prompt text")

	assert.Equal(t, "Failed to parse AI output", a.Error)
	assert.Equal(t, "Sorry, I cannot help with that.", a.Raw)
}

func TestAnalysisPrompt(t *testing.T) {
	posts := []Post{
		{Text: "Gloves 10% off"},
		{Text: "Call +123456789"},
	}
	prompt := analysisPrompt(posts)

	assert.Contains(t, prompt, "Analyze this medical products list")
	assert.Contains(t, prompt, "Gloves 10% off\n\nCall +123456789")
}
