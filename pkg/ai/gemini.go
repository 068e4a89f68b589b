package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultGeminiModel   = "gemini-2.0-flash"

	// Returned in place of an excerpt when the provider call fails.
	excerptFallback = "Could not generate excerpt at this time."

	chatMaxOutputTokens = 500
)

// Turn is one prior message in a book conversation.
type Turn struct {
	Role string // "user" or "model"
	Text string
}

// GeminiClient calls the Google AI Studio (Gemini) API.
type GeminiClient struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewGeminiClient constructs a client. An empty API key is tolerated so the
// server can boot without one; provider calls will then fail and excerpt
// requests fall back to the default text.
func NewGeminiClient(apiKey, model string) *GeminiClient {
	model = strings.TrimSpace(model)
	if model == "" {
		model = defaultGeminiModel
	}
	return &GeminiClient{
		apiKey:     strings.TrimSpace(apiKey),
		model:      normalizeModel(model),
		baseURL:    defaultGeminiBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// GenerateExcerpt asks the model for a short excerpt from the given book.
// Provider failures are logged and swallowed; the fallback text is returned
// so callers never see a broken excerpt surface.
func (c *GeminiClient) GenerateExcerpt(ctx context.Context, title, author string) string {
	prompt := fmt.Sprintf("Generate a short, inspiring, random excerpt (about 1-2 paragraphs) from the book %q by %s. Format it as plain text.", title, author)
	reqBody := generateRequest{
		Contents: []content{
			{Role: "user", Parts: []part{{Text: prompt}}},
		},
	}
	text, err := c.generate(ctx, reqBody)
	if err != nil {
		slog.Error("gemini excerpt failed", "title", title, "err", err)
		return excerptFallback
	}
	return text
}

// ChatWithBook sends one user message in a persona conversation where the
// model speaks as the book itself. The full prior history is supplied on
// every call; the seeded two-turn preamble carries the persona instruction.
func (c *GeminiClient) ChatWithBook(ctx context.Context, title, author, message string, history []Turn) (string, error) {
	persona := fmt.Sprintf("You are the book %q by %s. You must embody the persona of this book completely. Answer the user's questions as if you are the book itself speaking. Do not break character. Be inquisitive and engage the user in conversation about your themes, characters, and their thoughts on reading you. Format your responses using standard Markdown (bold, italics, lists, etc.) where appropriate to enhance readability.", title, author)

	contents := make([]content, 0, len(history)+3)
	contents = append(contents,
		content{Role: "user", Parts: []part{{Text: "System Instruction: " + persona}}},
		content{Role: "model", Parts: []part{{Text: fmt.Sprintf("Understood. I am now %q by %s.", title, author)}}},
	)
	for _, turn := range history {
		role := turn.Role
		if role != "model" {
			role = "user"
		}
		contents = append(contents, content{Role: role, Parts: []part{{Text: turn.Text}}})
	}
	contents = append(contents, content{Role: "user", Parts: []part{{Text: message}}})

	reqBody := generateRequest{
		Contents:         contents,
		GenerationConfig: &generationConfig{MaxOutputTokens: chatMaxOutputTokens},
	}
	reply, err := c.generate(ctx, reqBody)
	if err != nil {
		return "", fmt.Errorf("chat with book: %w", err)
	}
	return reply, nil
}

func (c *GeminiClient) generate(ctx context.Context, reqBody generateRequest) (string, error) {
	var resp generateResponse
	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	if err := c.doJSON(ctx, url, reqBody, &resp); err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty response from gemini")
	}
	return resp.Candidates[0].Content.Parts[0].Text, nil
}

func normalizeModel(model string) string {
	return strings.TrimPrefix(strings.TrimSpace(model), "models/")
}

func (c *GeminiClient) doJSON(ctx context.Context, url string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		var errResp errorResponse
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		if errResp.Error.Message != "" {
			return fmt.Errorf("gemini api error: %s", errResp.Error.Message)
		}
		return fmt.Errorf("gemini api error: %s", resp.Status)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	MaxOutputTokens int `json:"maxOutputTokens,omitempty"`
}

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}
