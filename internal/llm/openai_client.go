package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/csheth/sanctuary/internal/document"
	"github.com/csheth/sanctuary/internal/i18n"
)

type openAIClient struct {
	apiKey string
	model  string
	base   string
	client *http.Client
}

func (c *openAIClient) Name() string {
	return fmt.Sprintf("OpenAI (%s)", c.model)
}

func (c *openAIClient) ExtractAxioms(ctx context.Context, doc document.Document, lang i18n.Language) ([]Axiom, error) {
	if strings.TrimSpace(doc.Encoded) == "" {
		return nil, fmt.Errorf("document empty; cannot extract axioms")
	}
	messages := []map[string]any{
		{"role": "system", "content": systemInstruction},
		{"role": "user", "content": openAIDocumentContent(doc, buildExtractionPrompt(lang))},
	}
	raw, err := c.chat(ctx, messages, openAIAxiomFormat())
	if err != nil {
		return nil, err
	}
	return parseAxioms(raw)
}

func (c *openAIClient) Converse(ctx context.Context, doc document.Document, history []Message, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("message cannot be empty")
	}
	if strings.TrimSpace(doc.Encoded) == "" {
		return "", fmt.Errorf("document empty; cannot converse")
	}
	messages := make([]map[string]any, 0, len(history)+2)
	messages = append(messages, map[string]any{"role": "system", "content": systemInstruction})
	for _, msg := range history {
		messages = append(messages, map[string]any{"role": string(msg.Role), "content": msg.Text})
	}
	messages = append(messages, map[string]any{"role": "user", "content": openAIDocumentContent(doc, text)})

	reply, err := c.chat(ctx, messages, nil)
	if err != nil {
		return "", err
	}
	return normalizeReply(reply), nil
}

func (c *openAIClient) chat(ctx context.Context, messages []map[string]any, responseFormat map[string]any) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("%w: openai API key not configured", ErrTransport)
	}
	payload := map[string]any{
		"model":       c.model,
		"messages":    messages,
		"temperature": 0.4,
	}
	if responseFormat != nil {
		payload["response_format"] = responseFormat
	}
	buf, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("%s/chat/completions", c.base)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(buf))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read openai response: %w", ErrTransport, err)
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("%w: openai API error: %s (%s)", ErrTransport, resp.Status, clipBody(body))
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("%w: decode openai response: %w", ErrMalformedResponse, err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices", ErrTransport)
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

func openAIDocumentContent(doc document.Document, text string) []map[string]any {
	return []map[string]any{
		{
			"type": "file",
			"file": map[string]string{
				"filename":  doc.Name,
				"file_data": doc.DataURL(),
			},
		},
		{"type": "text", "text": text},
	}
}

// Strict JSON schema output requires an object root, so axioms travel in a wrapper.
func openAIAxiomFormat() map[string]any {
	axiom := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"term":       map[string]string{"type": "string"},
			"definition": map[string]string{"type": "string"},
		},
		"required":             []string{"term", "definition"},
		"additionalProperties": false,
	}
	return map[string]any{
		"type": "json_schema",
		"json_schema": map[string]any{
			"name":   "knowledge_axioms",
			"strict": true,
			"schema": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"axioms": map[string]any{"type": "array", "items": axiom},
				},
				"required":             []string{"axioms"},
				"additionalProperties": false,
			},
		},
	}
}
