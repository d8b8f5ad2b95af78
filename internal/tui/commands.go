package tui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/csheth/sanctuary/internal/document"
	"github.com/csheth/sanctuary/internal/i18n"
	"github.com/csheth/sanctuary/internal/llm"
)

var errNoClient = fmt.Errorf("%w: no model client configured", llm.ErrTransport)

func encodeJob(encoder *document.Encoder, path string, generation uint64) jobRunner {
	return func(context.Context) (tea.Msg, error) {
		doc, err := encoder.EncodeFile(path)
		return encodeResultMsg{generation: generation, doc: doc, err: err}, err
	}
}

func extractJob(client llm.Client, doc document.Document, lang i18n.Language, generation uint64, timeout time.Duration) jobRunner {
	return func(parent context.Context) (tea.Msg, error) {
		if client == nil {
			return extractResultMsg{generation: generation, err: errNoClient}, errNoClient
		}
		ctx, cancel := context.WithTimeout(parent, timeout)
		defer cancel()
		axioms, err := client.ExtractAxioms(ctx, doc, lang)
		return extractResultMsg{generation: generation, axioms: axioms, err: err}, err
	}
}

func converseJob(client llm.Client, doc document.Document, history []llm.Message, text string, generation uint64, timeout time.Duration) jobRunner {
	prior := append([]llm.Message(nil), history...)
	return func(parent context.Context) (tea.Msg, error) {
		if client == nil {
			return converseResultMsg{generation: generation, err: errNoClient}, errNoClient
		}
		ctx, cancel := context.WithTimeout(parent, timeout)
		defer cancel()
		reply, err := client.Converse(ctx, doc, prior, text)
		return converseResultMsg{generation: generation, reply: reply, err: err}, err
	}
}
