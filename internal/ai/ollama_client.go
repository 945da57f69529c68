package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strings"
	"time"
)

const (
	defaultOllamaURL   = "http://localhost:11434"
	defaultOllamaModel = "llama3.2"
)

const answerSystemPrompt = `You are a home assistant that helps users find objects in their home.
You have access to visual memory data about objects that have been detected by cameras.

When answering questions about object locations:
1. Be specific about when and where objects were seen
2. Mention confidence levels if relevant
3. Provide helpful suggestions if objects haven't been seen recently
4. Be conversational and helpful

Context about recent object sightings:
`

type OllamaClient struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

func NewOllamaClient(baseURL, model string) *OllamaClient {
	if baseURL == "" {
		baseURL = defaultOllamaURL
	}
	if model == "" {
		model = defaultOllamaModel
	}
	return &OllamaClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
	Error    string `json:"error,omitempty"`
}

// IsAvailable probes the Ollama tags endpoint to see whether the service is
// reachable at all.
func (c *OllamaClient) IsAvailable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// AnswerObjectQuestion asks the model to phrase an answer from the retrieved
// sighting facts.
func (c *OllamaClient) AnswerObjectQuestion(ctx context.Context, question string, facts []SightingFact) (string, error) {
	var sb strings.Builder
	sb.WriteString(answerSystemPrompt)

	if len(facts) == 0 {
		sb.WriteString("No recent object sightings available.\n")
	}
	for _, f := range facts {
		fmt.Fprintf(&sb, "Object: %s\nLast seen: %s\nLocation: %s\nConfidence: %.2f\nTotal sightings: %d\n\n",
			f.Label, f.Timestamp.Format(time.RFC1123), f.Zone, f.Confidence, f.Count)
	}

	fmt.Fprintf(&sb, "\nUser: %s\nAssistant:", question)
	return c.Generate(ctx, sb.String())
}

// Generate runs a single non-streaming completion. A local Ollama can stall
// while loading a model, so one timed-out attempt is retried.
func (c *OllamaClient) Generate(ctx context.Context, prompt string) (string, error) {
	text, err := c.generateOnce(ctx, prompt)
	if err != nil && isTimeout(err) && ctx.Err() == nil {
		log.Printf("[LLM] generate timed out, retrying once")
		text, err = c.generateOnce(ctx, prompt)
	}
	return text, err
}

func (c *OllamaClient) generateOnce(ctx context.Context, prompt string) (string, error) {
	reqBody := generateRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: false,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/generate", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	var genResp generateResponse
	if err := json.Unmarshal(body, &genResp); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if genResp.Error != "" {
		return "", fmt.Errorf("ollama API error: %s", genResp.Error)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama returned status %d", resp.StatusCode)
	}

	return genResp.Response, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
