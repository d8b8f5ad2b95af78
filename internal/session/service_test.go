package session

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/csheth/sanctuary/internal/document"
	"github.com/csheth/sanctuary/internal/i18n"
	"github.com/csheth/sanctuary/internal/llm"
)

var tinyPDF = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n<< /Root 1 0 R >>\n%%EOF\n")

type fakeLLM struct {
	mu       sync.Mutex
	axioms   []llm.Axiom
	extErr   error
	reply    string
	replyErr error
	gate     chan struct{}
	started  chan struct{}
	langs    []i18n.Language
	history  [][]llm.Message
}

func (f *fakeLLM) Name() string { return "fake" }

func (f *fakeLLM) ExtractAxioms(ctx context.Context, doc document.Document, lang i18n.Language) ([]llm.Axiom, error) {
	f.mu.Lock()
	f.langs = append(f.langs, lang)
	f.mu.Unlock()
	return f.axioms, f.extErr
}

func (f *fakeLLM) Converse(ctx context.Context, doc document.Document, history []llm.Message, text string) (string, error) {
	f.mu.Lock()
	f.history = append(f.history, history)
	f.mu.Unlock()
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.gate != nil {
		<-f.gate
	}
	return f.reply, f.replyErr
}

func newTestService(client *fakeLLM) *Service {
	return NewService(Options{Store: NewMemoryStore(time.Minute), LLM: client})
}

func pdfUpload(name string) document.Upload {
	return document.Upload{Name: name, ContentType: document.MIMEType, Reader: bytes.NewReader(tinyPDF)}
}

func readyServiceSession(t *testing.T, svc *Service) State {
	t.Helper()
	ctx := context.Background()
	state, err := svc.Create(ctx, "")
	require.NoError(t, err)
	_, err = svc.Upload(ctx, state.ID, pdfUpload("paper.pdf"))
	require.NoError(t, err)
	svc.Wait()
	state, err = svc.Get(ctx, state.ID)
	require.NoError(t, err)
	require.Equal(t, StatusReady, state.Status)
	return state
}

func TestServiceUploadReachesReady(t *testing.T) {
	client := &fakeLLM{axioms: []llm.Axiom{{Term: "Entropy", Definition: "A measure of disorder."}}}
	svc := newTestService(client)
	ctx := context.Background()

	state, err := svc.Create(ctx, i18n.Arabic)
	require.NoError(t, err)

	pending, err := svc.Upload(ctx, state.ID, pdfUpload("paper.pdf"))
	require.NoError(t, err)
	assert.Equal(t, StatusAnalyzing, pending.Status)
	assert.Equal(t, "paper.pdf", pending.FileName)

	svc.Wait()
	ready, err := svc.Get(ctx, state.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusReady, ready.Status)
	require.Len(t, ready.Axioms, 1)
	assert.Equal(t, "Entropy", ready.Axioms[0].Term)
	assert.Equal(t, []i18n.Language{i18n.Arabic}, client.langs)

	doc, err := svc.Document(ctx, state.ID)
	require.NoError(t, err)
	raw, err := doc.Bytes()
	require.NoError(t, err)
	assert.Equal(t, tinyPDF, raw)
}

func TestServiceRejectedUploadReturnsToIdle(t *testing.T) {
	client := &fakeLLM{}
	svc := newTestService(client)
	ctx := context.Background()
	state, err := svc.Create(ctx, "")
	require.NoError(t, err)

	returned, err := svc.Upload(ctx, state.ID, document.Upload{Name: "notes.txt", ContentType: "text/plain", Reader: strings.NewReader("hello")})
	require.ErrorIs(t, err, document.ErrInvalidDocument)
	assert.Equal(t, StatusIdle, returned.Status)

	after, err := svc.Get(ctx, state.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusIdle, after.Status)
	assert.Empty(t, after.FileName)
	assert.Nil(t, after.Document)
	assert.Contains(t, after.LastError, "invalid document")
	svc.Wait()
	assert.Empty(t, client.langs, "a rejected upload must not reach extraction")
}

// observedReader runs observe once, on the first Read, while the service is
// still consuming the upload.
type observedReader struct {
	r       io.Reader
	once    sync.Once
	observe func()
}

func (o *observedReader) Read(p []byte) (int, error) {
	o.once.Do(o.observe)
	return o.r.Read(p)
}

func TestServiceUploadIsReadingWhileBodyIsConsumed(t *testing.T) {
	svc := newTestService(&fakeLLM{axioms: []llm.Axiom{{Term: "Entropy", Definition: "Disorder."}}})
	ctx := context.Background()
	state, err := svc.Create(ctx, "")
	require.NoError(t, err)

	var seen State
	reader := &observedReader{r: bytes.NewReader(tinyPDF), observe: func() {
		seen, _ = svc.Get(ctx, state.ID)
	}}
	pending, err := svc.Upload(ctx, state.ID, document.Upload{Name: "paper.pdf", ContentType: document.MIMEType, Reader: reader})
	require.NoError(t, err)

	assert.Equal(t, StatusReading, seen.Status)
	assert.Equal(t, "paper.pdf", seen.FileName)
	assert.Equal(t, StatusAnalyzing, pending.Status)
	assert.Equal(t, seen.Generation, pending.Generation)

	svc.Wait()
	ready, err := svc.Get(ctx, state.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusReady, ready.Status)
}

func TestServiceResetWhileReadingDiscardsUpload(t *testing.T) {
	client := &fakeLLM{axioms: []llm.Axiom{{Term: "Entropy", Definition: "Disorder."}}}
	svc := newTestService(client)
	ctx := context.Background()
	state, err := svc.Create(ctx, "")
	require.NoError(t, err)

	reader := &observedReader{r: bytes.NewReader(tinyPDF), observe: func() {
		_, resetErr := svc.Reset(ctx, state.ID)
		require.NoError(t, resetErr)
	}}
	returned, err := svc.Upload(ctx, state.ID, document.Upload{Name: "paper.pdf", ContentType: document.MIMEType, Reader: reader})
	require.ErrorIs(t, err, ErrStale)
	assert.Equal(t, StatusIdle, returned.Status)

	svc.Wait()
	after, err := svc.Get(ctx, state.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusIdle, after.Status)
	assert.Nil(t, after.Document)
	assert.Empty(t, client.langs)
}

func TestServiceExtractionFailureReturnsToIdle(t *testing.T) {
	svc := newTestService(&fakeLLM{extErr: llm.ErrMalformedResponse})
	ctx := context.Background()
	state, err := svc.Create(ctx, "")
	require.NoError(t, err)

	_, err = svc.Upload(ctx, state.ID, pdfUpload("paper.pdf"))
	require.NoError(t, err)
	svc.Wait()

	after, err := svc.Get(ctx, state.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusIdle, after.Status)
	assert.Nil(t, after.Document)
	assert.Empty(t, after.Axioms)
	assert.Contains(t, after.LastError, "malformed")
}

func TestServiceSecondUploadIsBusy(t *testing.T) {
	svc := newTestService(&fakeLLM{axioms: []llm.Axiom{{Term: "A", Definition: "a"}}})
	state := readyServiceSession(t, svc)

	_, err := svc.Upload(context.Background(), state.ID, pdfUpload("other.pdf"))
	assert.ErrorIs(t, err, ErrBusy)
}

func TestServiceSendReplaysHistory(t *testing.T) {
	client := &fakeLLM{axioms: []llm.Axiom{{Term: "A", Definition: "a"}}, reply: "The author argues X."}
	svc := newTestService(client)
	state := readyServiceSession(t, svc)
	ctx := context.Background()

	after, err := svc.Send(ctx, state.ID, "What is the author's thesis?")
	require.NoError(t, err)
	assert.Equal(t, []llm.Message{
		{Role: llm.RoleUser, Text: "What is the author's thesis?"},
		{Role: llm.RoleAssistant, Text: "The author argues X."},
	}, after.Transcript)
	assert.False(t, after.ReplyPending)

	_, err = svc.Send(ctx, state.ID, "And then?")
	require.NoError(t, err)
	require.Len(t, client.history, 2)
	assert.Empty(t, client.history[0])
	assert.Len(t, client.history[1], 2, "second call should replay the first exchange")
}

func TestServiceSendFailureAppendsFallback(t *testing.T) {
	svc := newTestService(&fakeLLM{axioms: []llm.Axiom{{Term: "A", Definition: "a"}}, replyErr: llm.ErrTransport})
	state := readyServiceSession(t, svc)

	after, err := svc.Send(context.Background(), state.ID, "Hello")
	require.NoError(t, err)
	require.Len(t, after.Transcript, 2)
	assert.Equal(t, FallbackReply, after.Transcript[1].Text)
	assert.Equal(t, StatusReady, after.Status)
}

func TestServiceResetDuringPendingReply(t *testing.T) {
	client := &fakeLLM{
		axioms:  []llm.Axiom{{Term: "A", Definition: "a"}},
		reply:   "The author argues X.",
		gate:    make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	svc := newTestService(client)
	state := readyServiceSession(t, svc)
	ctx := context.Background()

	type result struct {
		state State
		err   error
	}
	done := make(chan result, 1)
	go func() {
		st, err := svc.Send(ctx, state.ID, "What is the author's thesis?")
		done <- result{st, err}
	}()

	<-client.started
	_, err := svc.Send(ctx, state.ID, "Another one")
	assert.ErrorIs(t, err, ErrReplyPending)

	reset, err := svc.Reset(ctx, state.ID)
	require.NoError(t, err)
	assert.Empty(t, reset.Transcript)

	close(client.gate)
	res := <-done
	assert.True(t, errors.Is(res.err, ErrStale), "late reply should be stale, got %v", res.err)

	final, err := svc.Get(ctx, state.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusIdle, final.Status)
	assert.Empty(t, final.Transcript)
}

func TestServiceViewAndLanguage(t *testing.T) {
	svc := newTestService(&fakeLLM{axioms: []llm.Axiom{{Term: "A", Definition: "a"}}})
	ctx := context.Background()

	idle, err := svc.Create(ctx, "")
	require.NoError(t, err)
	_, err = svc.ToggleView(ctx, idle.ID)
	assert.ErrorIs(t, err, ErrNoDocument)
	_, err = svc.Document(ctx, idle.ID)
	assert.ErrorIs(t, err, ErrNoDocument)

	state := readyServiceSession(t, svc)
	toggled, err := svc.ToggleView(ctx, state.ID)
	require.NoError(t, err)
	assert.Equal(t, ViewDocument, toggled.View)

	set, err := svc.SetView(ctx, state.ID, ViewSanctuary)
	require.NoError(t, err)
	assert.Equal(t, ViewSanctuary, set.View)

	lang, err := svc.SetLanguage(ctx, state.ID, i18n.Arabic)
	require.NoError(t, err)
	assert.Equal(t, i18n.Arabic, lang.Language)

	_, err = svc.SetLanguage(ctx, state.ID, "de")
	assert.ErrorIs(t, err, i18n.ErrUnsupportedLanguage)
}

func TestServiceUnknownSession(t *testing.T) {
	svc := newTestService(&fakeLLM{})
	_, err := svc.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Reset(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
