package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
)

const (
	geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	VerdictFlag = "FLAG"
	VerdictOK   = "OK"

	moderationInstruction = "You are an AI moderator for a Discord server. Your task is to determine if a message violates community guidelines (e.g., contains hate speech, spam, explicit content, or excessive toxicity). Respond with only one of two words: 'FLAG' if the message is inappropriate, or 'OK' if the message is acceptable. Do not provide any explanation or other text."
)

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type generateRequest struct {
	SystemInstruction *geminiContent  `json:"systemInstruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// GeminiClient classifies message content through the Gemini REST API.
type GeminiClient struct {
	*Client
	BaseURL string
	apiKey  string
	model   string
}

func NewGeminiClient(client *Client, apiKey, model string) *GeminiClient {
	return &GeminiClient{Client: client, BaseURL: geminiBaseURL, apiKey: apiKey, model: model}
}

// Classify returns VerdictFlag or VerdictOK. Any failure yields VerdictOK.
func (c *GeminiClient) Classify(ctx context.Context, content string) string {
	verdict, err := c.generate(ctx, content)
	if err != nil {
		log.Printf("[Gemini] Moderation call failed for content %q: %v", preview(content, 50), err)
		return VerdictOK
	}
	if strings.EqualFold(verdict, VerdictFlag) {
		return VerdictFlag
	}
	return VerdictOK
}

func (c *GeminiClient) generate(ctx context.Context, content string) (string, error) {
	payload, err := json.Marshal(generateRequest{
		SystemInstruction: &geminiContent{Parts: []geminiPart{{Text: moderationInstruction}}},
		Contents:          []geminiContent{{Role: "user", Parts: []geminiPart{{Text: content}}}},
	})
	if err != nil {
		return "", err
	}

	u := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.BaseURL, url.PathEscape(c.model), url.QueryEscape(c.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.sendRequest(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	var result generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if result.Error != nil {
		return "", fmt.Errorf("API error (code %d): %s", result.Error.Code, result.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API returned status %d", resp.StatusCode)
	}
	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty response")
	}
	return strings.TrimSpace(result.Candidates[0].Content.Parts[0].Text), nil
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
