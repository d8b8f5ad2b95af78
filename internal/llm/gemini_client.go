package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/csheth/sanctuary/internal/document"
	"github.com/csheth/sanctuary/internal/i18n"
)

const (
	geminiRoleUser  = "user"
	geminiRoleModel = "model"
)

type geminiClient struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
}

type geminiBlob struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiPart struct {
	Text       string      `json:"text,omitempty"`
	InlineData *geminiBlob `json:"inlineData,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiSchema struct {
	Type       string                   `json:"type"`
	Items      *geminiSchema            `json:"items,omitempty"`
	Properties map[string]*geminiSchema `json:"properties,omitempty"`
	Required   []string                 `json:"required,omitempty"`
}

type geminiGenerationConfig struct {
	ResponseMIMEType string        `json:"responseMimeType,omitempty"`
	ResponseSchema   *geminiSchema `json:"responseSchema,omitempty"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	Contents          []geminiContent         `json:"contents"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
}

func (c *geminiClient) Name() string {
	return fmt.Sprintf("Gemini (%s)", c.model)
}

func (c *geminiClient) ExtractAxioms(ctx context.Context, doc document.Document, lang i18n.Language) ([]Axiom, error) {
	if strings.TrimSpace(doc.Encoded) == "" {
		return nil, fmt.Errorf("document empty; cannot extract axioms")
	}
	payload := geminiRequest{
		SystemInstruction: &geminiContent{Parts: []geminiPart{{Text: systemInstruction}}},
		Contents: []geminiContent{{
			Role:  geminiRoleUser,
			Parts: []geminiPart{geminiDocumentPart(doc), {Text: buildExtractionPrompt(lang)}},
		}},
		GenerationConfig: &geminiGenerationConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema:   geminiAxiomSchema(),
		},
	}
	raw, err := c.generate(ctx, payload)
	if err != nil {
		return nil, err
	}
	return parseAxioms(raw)
}

func (c *geminiClient) Converse(ctx context.Context, doc document.Document, history []Message, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("message cannot be empty")
	}
	if strings.TrimSpace(doc.Encoded) == "" {
		return "", fmt.Errorf("document empty; cannot converse")
	}
	contents := make([]geminiContent, 0, len(history)+1)
	for _, msg := range history {
		contents = append(contents, geminiContent{
			Role:  geminiRole(msg.Role),
			Parts: []geminiPart{{Text: msg.Text}},
		})
	}
	contents = append(contents, geminiContent{
		Role:  geminiRoleUser,
		Parts: []geminiPart{geminiDocumentPart(doc), {Text: text}},
	})

	reply, err := c.generate(ctx, geminiRequest{
		SystemInstruction: &geminiContent{Parts: []geminiPart{{Text: systemInstruction}}},
		Contents:          contents,
	})
	if err != nil {
		return "", err
	}
	return normalizeReply(reply), nil
}

func (c *geminiClient) generate(ctx context.Context, payload geminiRequest) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("%w: gemini API key not configured", ErrTransport)
	}
	buf, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.endpoint, url.PathEscape(c.model))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(buf))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read gemini response: %w", ErrTransport, err)
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("%w: gemini API error: %s (%s)", ErrTransport, resp.Status, clipBody(body))
	}

	var parsed geminiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("%w: decode gemini response: %w", ErrMalformedResponse, err)
	}
	if parsed.PromptFeedback != nil && parsed.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("%w: prompt blocked: %s", ErrTransport, parsed.PromptFeedback.BlockReason)
	}
	if len(parsed.Candidates) == 0 {
		return "", fmt.Errorf("%w: no candidates", ErrTransport)
	}
	var text strings.Builder
	for _, part := range parsed.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}
	return strings.TrimSpace(text.String()), nil
}

func geminiDocumentPart(doc document.Document) geminiPart {
	return geminiPart{InlineData: &geminiBlob{MIMEType: document.MIMEType, Data: doc.Encoded}}
}

func geminiRole(role Role) string {
	if role == RoleAssistant {
		return geminiRoleModel
	}
	return geminiRoleUser
}

func geminiAxiomSchema() *geminiSchema {
	return &geminiSchema{
		Type: "ARRAY",
		Items: &geminiSchema{
			Type: "OBJECT",
			Properties: map[string]*geminiSchema{
				"term":       {Type: "STRING"},
				"definition": {Type: "STRING"},
			},
			Required: []string{"term", "definition"},
		},
	}
}
