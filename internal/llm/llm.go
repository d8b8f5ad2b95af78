package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/csheth/sanctuary/internal/document"
	"github.com/csheth/sanctuary/internal/i18n"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"

	DefaultGeminiModel    = "gemini-2.5-flash"
	DefaultGeminiEndpoint = "https://generativelanguage.googleapis.com"
	DefaultOpenAIModel    = "gpt-4o-mini"
	DefaultOpenAIEndpoint = "https://api.openai.com/v1"

	// AxiomCount is how many axioms an extraction asks for.
	AxiomCount = 6
)

const defaultLLMHTTPTimeout = 3 * time.Minute

var (
	// ErrTransport covers network failures, provider errors and missing credentials.
	ErrTransport = errors.New("llm transport failure")
	// ErrMalformedResponse means the provider answered with an unexpected shape.
	ErrMalformedResponse = errors.New("llm malformed response")
)

// Config describes how to build an LLM client.
type Config struct {
	Provider   string
	Model      string
	Endpoint   string
	APIKey     string
	HTTPClient *http.Client
}

// Client issues the two remote calls of a study session.
type Client interface {
	ExtractAxioms(ctx context.Context, doc document.Document, lang i18n.Language) ([]Axiom, error)
	Converse(ctx context.Context, doc document.Document, history []Message, text string) (string, error)
	Name() string
}

// Axiom is one extracted term/definition pair.
type Axiom struct {
	Term       string `json:"term"`
	Definition string `json:"definition"`
}

// Role tags a transcript entry.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one transcript turn.
type Message struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// New builds the client for cfg.Provider. A missing API key is not an error
// here; every remote call then fails with ErrTransport.
func New(cfg Config) (Client, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" {
		provider = ProviderGemini
	}
	endpoint := strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/")
	model := strings.TrimSpace(cfg.Model)
	httpClient := pickHTTPClient(cfg.HTTPClient)

	switch provider {
	case ProviderGemini:
		if endpoint == "" {
			endpoint = DefaultGeminiEndpoint
		}
		if model == "" {
			model = DefaultGeminiModel
		}
		return &geminiClient{apiKey: cfg.APIKey, model: model, endpoint: endpoint, client: httpClient}, nil
	case ProviderOpenAI:
		if endpoint == "" {
			endpoint = DefaultOpenAIEndpoint
		}
		if model == "" {
			model = DefaultOpenAIModel
		}
		return &openAIClient{apiKey: cfg.APIKey, model: model, base: endpoint, client: httpClient}, nil
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.Provider)
	}
}

func pickHTTPClient(custom *http.Client) *http.Client {
	if custom != nil {
		return custom
	}
	// PDF-grounded generations routinely exceed a minute; callers bound each call with a context.
	return &http.Client{Timeout: defaultLLMHTTPTimeout}
}
