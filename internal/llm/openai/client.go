package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"reflections-backend/internal/llm"
)

const defaultAPIURL = "https://api.openai.com/v1/chat/completions"

// Client implements llm.Client using OpenAI Chat Completions.
type Client struct {
	apiKey     string
	model      string
	apiURL     string
	httpClient *http.Client
}

// NewClient constructs a new OpenAI client.
func NewClient(apiKey, model string) (*Client, error) {
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("LLM_MODEL is required for OpenAI")
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}
	timeout := 120 * time.Second
	if raw := strings.TrimSpace(os.Getenv("OPENAI_TIMEOUT_SECONDS")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			timeout = time.Duration(parsed) * time.Second
		}
	}
	return &Client{
		apiKey: apiKey,
		model:  model,
		apiURL: defaultAPIURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    *float32        `json:"temperature,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage,omitempty"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// AnalyzeEntry requests a structured emotion/qualities analysis of the entry text.
func (c *Client) AnalyzeEntry(ctx context.Context, content string) (llm.Analysis, error) {
	temp := float32(0.3)
	raw, err := c.complete(ctx, BuildAnalysisPrompt(content), &temp, &responseFormat{Type: "json_object"})
	if err != nil {
		return llm.Analysis{}, err
	}

	var parsed struct {
		Emotion   *string  `json:"emotion"`
		Qualities []string `json:"qualities"`
		Summary   string   `json:"summary"`
	}
	jsonStr := stripCodeFence(raw)
	if err := json.Unmarshal([]byte(jsonStr), &parsed); err != nil {
		return llm.Analysis{}, fmt.Errorf("%w: %v", llm.ErrMalformedAnalysis, err)
	}
	if parsed.Emotion == nil || strings.TrimSpace(*parsed.Emotion) == "" || parsed.Qualities == nil {
		return llm.Analysis{}, fmt.Errorf("%w: missing emotion or qualities", llm.ErrMalformedAnalysis)
	}

	return llm.Analysis{
		Emotion:   *parsed.Emotion,
		Qualities: parsed.Qualities,
		Summary:   strings.TrimSpace(parsed.Summary),
	}, nil
}

// GenerateCheckInQuestion requests a single open-ended follow-up question.
func (c *Client) GenerateCheckInQuestion(ctx context.Context, emotion string, qualities []string) (string, error) {
	temp := float32(0.7)
	raw, err := c.complete(ctx, BuildQuestionPrompt(emotion, qualities), &temp, nil)
	if err != nil {
		return "", err
	}

	question := strings.TrimSpace(raw)
	if strings.HasPrefix(question, `"`) && strings.HasSuffix(question, `"`) && len(question) >= 2 {
		question = question[1 : len(question)-1]
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return "", llm.ErrEmptyQuestion
	}
	return question, nil
}

func (c *Client) complete(ctx context.Context, messages []Message, temperature *float32, format *responseFormat) (string, error) {
	reqMessages := make([]chatMessage, 0, len(messages))
	for _, m := range messages {
		reqMessages = append(reqMessages, chatMessage{Role: m.Role, Content: m.Content})
	}
	reqBody := chatRequest{
		Model:          c.model,
		Messages:       reqMessages,
		Temperature:    temperature,
		ResponseFormat: format,
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "Client.Timeout") {
			return "", fmt.Errorf("openai request timeout: %w", err)
		}
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("openai response parse: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("openai error: %s (%s)", parsed.Error.Message, parsed.Error.Type)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("openai response missing choices")
	}

	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("openai response empty content")
	}
	logUsage(c.model, parsed.Usage)
	return content, nil
}

var fenceRegexp = regexp.MustCompile("(?s)^```(?:[a-zA-Z]*)?\\s*\\n?(.*?)\\n?\\s*```$")

// stripCodeFence removes a single wrapping fenced code block if present.
func stripCodeFence(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if m := fenceRegexp.FindStringSubmatch(trimmed); m != nil {
		return strings.TrimSpace(m[1])
	}
	return trimmed
}

func logUsage(model string, usage *struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}) {
	if usage == nil {
		log.Printf("llm response model=%s", model)
		return
	}
	log.Printf("llm response model=%s prompt_tokens=%d completion_tokens=%d total_tokens=%d",
		model, usage.PromptTokens, usage.CompletionTokens, usage.TotalTokens)
}

var _ llm.Client = (*Client)(nil)
