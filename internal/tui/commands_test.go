package tui

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/csheth/sanctuary/internal/document"
	"github.com/csheth/sanctuary/internal/i18n"
	"github.com/csheth/sanctuary/internal/llm"
)

var tinyPDF = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n<< /Root 1 0 R >>\n%%EOF\n")

type fakeLLM struct {
	mu        sync.Mutex
	axioms    []llm.Axiom
	extErr    error
	reply     string
	replyErr  error
	langs     []i18n.Language
	docs      []string
	histories [][]llm.Message
	texts     []string
	ctxErrs   []error
}

func (f *fakeLLM) ExtractAxioms(ctx context.Context, doc document.Document, lang i18n.Language) ([]llm.Axiom, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.langs = append(f.langs, lang)
	f.ctxErrs = append(f.ctxErrs, ctx.Err())
	f.docs = append(f.docs, doc.Name)
	return f.axioms, f.extErr
}

func (f *fakeLLM) Converse(ctx context.Context, doc document.Document, history []llm.Message, text string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs = append(f.docs, doc.Name)
	f.histories = append(f.histories, append([]llm.Message(nil), history...))
	f.texts = append(f.texts, text)
	return f.reply, f.replyErr
}

func (f *fakeLLM) Name() string { return "fake" }

func newTestModel(t *testing.T, client llm.Client) *model {
	t.Helper()
	teaModel, ok := New(Config{LLM: client}).(*model)
	if !ok {
		t.Fatalf("expected *model, got %T", teaModel)
	}
	teaModel.Update(tea.WindowSizeMsg{Width: 120, Height: 60})
	return teaModel
}

func writeFixture(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

// unpack expands batch and sequence messages into their commands.
func unpack(msg tea.Msg) ([]tea.Cmd, bool) {
	value := reflect.ValueOf(msg)
	if !value.IsValid() || value.Kind() != reflect.Slice {
		return nil, false
	}
	if value.Type().Elem() != reflect.TypeOf((tea.Cmd)(nil)) {
		return nil, false
	}
	cmds := make([]tea.Cmd, 0, value.Len())
	for i := 0; i < value.Len(); i++ {
		cmd, _ := value.Index(i).Interface().(tea.Cmd)
		cmds = append(cmds, cmd)
	}
	return cmds, true
}

// drive runs cmd and everything it spawns, feeding each message back into
// the model. Spinner ticks are dropped so the loop settles.
func drive(t *testing.T, m *model, cmd tea.Cmd) {
	t.Helper()
	queue := []tea.Cmd{cmd}
	for steps := 0; len(queue) > 0; steps++ {
		if steps > 200 {
			t.Fatal("command loop did not settle")
		}
		next := queue[0]
		queue = queue[1:]
		if next == nil {
			continue
		}
		msg := next()
		if cmds, ok := unpack(msg); ok {
			queue = append(queue, cmds...)
			continue
		}
		if _, ok := msg.(spinner.TickMsg); ok {
			continue
		}
		_, follow := m.Update(msg)
		queue = append(queue, follow)
	}
}

func TestExtractJobWithoutClient(t *testing.T) {
	msg, err := extractJob(nil, document.Document{Name: "a.pdf"}, i18n.English, 3, defaultCallTimeout)(context.Background())
	if !errors.Is(err, llm.ErrTransport) {
		t.Fatalf("expected transport failure, got %v", err)
	}
	result, ok := msg.(extractResultMsg)
	if !ok {
		t.Fatalf("unexpected payload %T", msg)
	}
	if result.generation != 3 || !errors.Is(result.err, llm.ErrTransport) {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestConverseJobSnapshotsHistory(t *testing.T) {
	client := &fakeLLM{reply: "ok"}
	history := []llm.Message{{Role: llm.RoleUser, Text: "first"}, {Role: llm.RoleAssistant, Text: "answer"}}
	runner := converseJob(client, document.Document{Name: "paper.pdf"}, history, "second", 1, defaultCallTimeout)
	history[0].Text = "mutated"

	msg, err := runner(context.Background())
	if err != nil {
		t.Fatalf("converse: %v", err)
	}
	if got := msg.(converseResultMsg); got.reply != "ok" || got.generation != 1 {
		t.Fatalf("unexpected result: %+v", got)
	}
	if client.histories[0][0].Text != "first" {
		t.Fatalf("history was not copied: %+v", client.histories[0])
	}
	if client.texts[0] != "second" || client.docs[0] != "paper.pdf" {
		t.Fatalf("unexpected call: texts=%v docs=%v", client.texts, client.docs)
	}
}

func TestJobBusWrapsPayload(t *testing.T) {
	bus := newJobBus(nil)
	failure := errors.New("boom")
	cmd := bus.Start(jobKindEncode, 7, func(context.Context) (tea.Msg, error) {
		return encodeResultMsg{generation: 7, err: failure}, failure
	})
	if bus.Running() != 1 {
		t.Fatalf("job should be registered before it runs, running=%d", bus.Running())
	}

	cmds, ok := unpack(cmd())
	if !ok || len(cmds) != 2 {
		t.Fatalf("expected a two-step sequence, got %v", cmds)
	}
	start, ok := cmds[0]().(jobSignalMsg)
	if !ok || start.Snapshot.Status != jobStatusRunning || start.Snapshot.Kind != jobKindEncode || start.Snapshot.Generation != 7 {
		t.Fatalf("unexpected start signal: %+v", start)
	}
	envelope, ok := cmds[1]().(jobResultEnvelope)
	if !ok {
		t.Fatal("expected a result envelope")
	}
	if envelope.Snapshot.Status != jobStatusFailed || envelope.Snapshot.Err != "boom" {
		t.Fatalf("unexpected snapshot: %+v", envelope.Snapshot)
	}
	if envelope.Snapshot.ID != start.Snapshot.ID {
		t.Fatalf("snapshot ids differ: %s vs %s", envelope.Snapshot.ID, start.Snapshot.ID)
	}
	if payload := envelope.Payload.(encodeResultMsg); payload.generation != 7 {
		t.Fatalf("unexpected payload: %+v", payload)
	}
	if bus.Running() != 0 {
		t.Fatalf("finished job still registered, running=%d", bus.Running())
	}
}

func TestJobBusCancelStale(t *testing.T) {
	bus := newJobBus(nil)
	waitForCancel := func(ctx context.Context) (tea.Msg, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	immediate := func(ctx context.Context) (tea.Msg, error) {
		return nil, ctx.Err()
	}
	old := bus.Start(jobKindExtract, 1, waitForCancel)
	current := bus.Start(jobKindConverse, 2, immediate)

	if n := bus.CancelStale(2); n != 1 {
		t.Fatalf("expected one stale job canceled, got %d", n)
	}

	oldCmds, _ := unpack(old())
	envelope := oldCmds[1]().(jobResultEnvelope)
	if envelope.Snapshot.Status != jobStatusCanceled || envelope.Snapshot.Generation != 1 {
		t.Fatalf("stale job not canceled: %+v", envelope.Snapshot)
	}

	currentCmds, _ := unpack(current())
	envelope = currentCmds[1]().(jobResultEnvelope)
	if envelope.Snapshot.Status != jobStatusSucceeded {
		t.Fatalf("current job should run to completion: %+v", envelope.Snapshot)
	}
	if bus.Running() != 0 {
		t.Fatalf("expected no running jobs, got %d", bus.Running())
	}
}
