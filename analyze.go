package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// Fixed generation parameters; the analysis schema is pinned by the system
// prompt, so there is nothing to configure per request.
const (
	analysisModel       = "mistralai/mistral-7b-instruct:free"
	analysisMaxTokens   = 1000
	analysisTemperature = 0.3
)

const systemPrompt = "You are a medical product analysis assistant. " +
	"Your response must ONLY be valid JSON — not markdown or natural language.\n\n" +
	"Here is the required schema:\n" +
	"{\n" +
	"  \"summary\": \"string\",\n" +
	"  \"trends\": \"string\",\n" +
	"  \"contacts\": [\"...\"],\n" +
	"  \"companies\": [\n" +
	"    {\n" +
	"      \"name\": \"string\",\n" +
	"      \"contact_information\": {\n" +
	"        \"phone_number\": \"string\",\n" +
	"        \"social_media_handles\": [\"...\"]\n" +
	"      },\n" +
	"      \"special_offers\": \"string\"\n" +
	"    }\n" +
	"  ],\n" +
	"  \"discounts\": [\"...\"]\n" +
	"}\n\n" +
	"Do NOT return markdown-style JSON (e.g., no ```json). Do NOT include comments. " +
	"Keep it strictly valid JSON."

const promptHeader = "Analyze this medical products list and extract:\n" +
	"1. Contact information (phone numbers, social media handles)\n" +
	"2. Company/organization names\n" +
	"3. Price discounts and special offers\n" +
	"4. Key product trends\n\n" +
	"Text: "

// analysisPrompt assembles the user message from the matched posts.
func analysisPrompt(posts []Post) string {
	texts := make([]string, 0, len(posts))
	for _, p := range posts {
		texts = append(texts, p.Text)
	}
	return promptHeader + strings.Join(texts, "\n\n")
}

// Analyzer produces a structured analysis for a prompt. Failures are carried
// inside the Analysis as an error shape rather than a Go error, because the
// search endpoint embeds them in an otherwise successful response.
type Analyzer interface {
	Analyze(ctx context.Context, prompt string) Analysis
}

// API request/response types for OpenAI-compatible chat completions.

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
}

type chatChoice struct {
	Message chatMessage `json:"message"`
}

// OpenRouterClient calls a hosted chat-completions API over HTTPS.
type OpenRouterClient struct {
	url    string
	key    string
	http   *http.Client
	logger *zap.SugaredLogger
}

// NewOpenRouterClient creates a client for the given completion endpoint.
func NewOpenRouterClient(url, key string, logger *zap.SugaredLogger) *OpenRouterClient {
	return &OpenRouterClient{url: url, key: key, http: &http.Client{}, logger: logger}
}

// Analyze sends the prompt with the pinned system instruction and extracts
// the JSON analysis from the completion. No retries.
func (c *OpenRouterClient) Analyze(ctx context.Context, prompt string) Analysis {
	reqBody := chatRequest{
		Model: analysisModel,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		MaxTokens:   analysisMaxTokens,
		Temperature: analysisTemperature,
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return errorAnalysis(fmt.Errorf("marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return errorAnalysis(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.key)

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Errorw("completion request failed", "error", err)
		return errorAnalysis(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return errorAnalysis(fmt.Errorf("read response: %w", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Errorw("completion API error", "status", resp.StatusCode, "body", string(respBody))
		return errorAnalysis(fmt.Errorf("API status %d: %s", resp.StatusCode, respBody))
	}

	var cr chatResponse
	if err := json.Unmarshal(respBody, &cr); err != nil {
		return errorAnalysis(fmt.Errorf("unmarshal response: %w", err))
	}
	if len(cr.Choices) == 0 {
		return errorAnalysis(fmt.Errorf("empty completion choices"))
	}

	content := cr.Choices[0].Message.Content
	c.logger.Debugw("completion content", "content", content)
	return extractAnalysis(content)
}

func errorAnalysis(err error) Analysis {
	return Analysis{Error: "AI analysis failed", Details: err.Error()}
}
