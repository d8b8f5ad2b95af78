package session

import (
	"errors"
	"fmt"
	"strings"

	"github.com/csheth/sanctuary/internal/document"
	"github.com/csheth/sanctuary/internal/i18n"
	"github.com/csheth/sanctuary/internal/llm"
)

// Status is the lifecycle stage of one uploaded document.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusReading   Status = "reading"
	StatusAnalyzing Status = "analyzing"
	StatusReady     Status = "ready"
)

// Busy reports whether an upload or extraction is in flight.
func (s Status) Busy() bool {
	return s == StatusReading || s == StatusAnalyzing
}

// ViewMode selects what the presentation shows next to the session.
type ViewMode string

const (
	ViewSanctuary ViewMode = "sanctuary"
	ViewDocument  ViewMode = "document"
)

// ParseViewMode accepts "sanctuary" or "document" in any case.
func ParseViewMode(value string) (ViewMode, error) {
	switch ViewMode(strings.ToLower(strings.TrimSpace(value))) {
	case ViewSanctuary:
		return ViewSanctuary, nil
	case ViewDocument:
		return ViewDocument, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidView, value)
	}
}

// FallbackReply answers a turn whose conversation call failed.
const FallbackReply = "Forgive me, my intellectual circuits are momentarily clouded. Please rephrase."

var (
	ErrNotFound          = errors.New("session not found")
	ErrBusy              = errors.New("session busy")
	ErrReplyPending      = errors.New("reply already pending")
	ErrNoDocument        = errors.New("no document loaded")
	ErrEmptyMessage      = errors.New("message cannot be empty")
	ErrStale             = errors.New("stale result")
	ErrInvalidView       = errors.New("invalid view mode")
	ErrInvalidTransition = errors.New("invalid transition")
)

// State is the authoritative record of one study session. Every transition
// returns a new State and leaves the receiver untouched.
type State struct {
	ID           string             `json:"id"`
	Generation   uint64             `json:"generation"`
	Status       Status             `json:"status"`
	FileName     string             `json:"file_name,omitempty"`
	Document     *document.Document `json:"document,omitempty"`
	Axioms       []llm.Axiom        `json:"axioms,omitempty"`
	Transcript   []llm.Message      `json:"transcript,omitempty"`
	Language     i18n.Language      `json:"language"`
	View         ViewMode           `json:"view"`
	ReplyPending bool               `json:"reply_pending"`
	LastError    string             `json:"last_error,omitempty"`
}

// New returns an idle session.
func New(id string, lang i18n.Language) State {
	if lang == "" {
		lang = i18n.English
	}
	return State{
		ID:       id,
		Status:   StatusIdle,
		Language: lang,
		View:     ViewSanctuary,
	}
}

// HasDocument reports whether a document is loaded.
func (s State) HasDocument() bool {
	return s.Document != nil
}

// BeginUpload records the incoming file name and starts a new generation.
func (s State) BeginUpload(name string) (State, error) {
	switch {
	case s.Status.Busy():
		return s, fmt.Errorf("%w: document is still %s", ErrBusy, s.Status)
	case s.Status == StatusReady:
		return s, fmt.Errorf("%w: reset before uploading another document", ErrBusy)
	}
	next := s.clone()
	next.Generation++
	next.Status = StatusReading
	next.FileName = name
	next.Document = nil
	next.Axioms = nil
	next.View = ViewSanctuary
	next.LastError = ""
	return next, nil
}

// DocumentEncoded stores the encoded document and moves on to analysis.
func (s State) DocumentEncoded(gen uint64, doc document.Document) (State, error) {
	if err := s.expect(gen, StatusReading); err != nil {
		return s, err
	}
	next := s.clone()
	next.Status = StatusAnalyzing
	next.Document = &doc
	if next.FileName == "" {
		next.FileName = doc.Name
	}
	return next, nil
}

// EncodingFailed drops a rejected upload.
func (s State) EncodingFailed(gen uint64, cause error) (State, error) {
	if err := s.expect(gen, StatusReading); err != nil {
		return s, err
	}
	next := s.clone()
	next.Status = StatusIdle
	next.FileName = ""
	next.LastError = errorText(cause)
	return next, nil
}

// AxiomsReady installs a freshly extracted batch, replacing any previous one.
func (s State) AxiomsReady(gen uint64, axioms []llm.Axiom) (State, error) {
	if err := s.expect(gen, StatusAnalyzing); err != nil {
		return s, err
	}
	next := s.clone()
	next.Status = StatusReady
	next.Axioms = append([]llm.Axiom(nil), axioms...)
	next.LastError = ""
	return next, nil
}

// ExtractionFailed returns to idle with nothing from the failed document kept.
// A reply still pending for that document is answered with the fallback.
func (s State) ExtractionFailed(gen uint64, cause error) (State, error) {
	if err := s.expect(gen, StatusAnalyzing); err != nil {
		return s, err
	}
	next := s.clone()
	next.Status = StatusIdle
	next.FileName = ""
	next.Document = nil
	next.Axioms = nil
	next.View = ViewSanctuary
	if next.ReplyPending {
		next.Transcript = append(next.Transcript, llm.Message{Role: llm.RoleAssistant, Text: FallbackReply})
		next.ReplyPending = false
	}
	next.LastError = errorText(cause)
	return next, nil
}

// SendMessage appends the user's turn and marks a reply pending.
func (s State) SendMessage(text string) (State, error) {
	text = strings.TrimSpace(text)
	switch {
	case text == "":
		return s, ErrEmptyMessage
	case !s.HasDocument():
		return s, ErrNoDocument
	case s.ReplyPending:
		return s, ErrReplyPending
	}
	next := s.clone()
	next.Transcript = append(next.Transcript, llm.Message{Role: llm.RoleUser, Text: text})
	next.ReplyPending = true
	next.LastError = ""
	return next, nil
}

// ReplyReceived answers the pending turn.
func (s State) ReplyReceived(gen uint64, text string) (State, error) {
	if err := s.expectReply(gen); err != nil {
		return s, err
	}
	next := s.clone()
	next.Transcript = append(next.Transcript, llm.Message{Role: llm.RoleAssistant, Text: text})
	next.ReplyPending = false
	return next, nil
}

// ReplyFailed answers the pending turn with FallbackReply.
func (s State) ReplyFailed(gen uint64, cause error) (State, error) {
	if err := s.expectReply(gen); err != nil {
		return s, err
	}
	next := s.clone()
	next.Transcript = append(next.Transcript, llm.Message{Role: llm.RoleAssistant, Text: FallbackReply})
	next.ReplyPending = false
	next.LastError = errorText(cause)
	return next, nil
}

// Reset clears the session back to idle. Resetting a pristine session
// returns it unchanged.
func (s State) Reset() State {
	if s.pristine() {
		return s.clone()
	}
	return State{
		ID:         s.ID,
		Generation: s.Generation + 1,
		Status:     StatusIdle,
		Language:   s.Language,
		View:       ViewSanctuary,
	}
}

// ToggleView flips between the sanctuary and document views.
func (s State) ToggleView() (State, error) {
	if s.View == ViewDocument {
		return s.SetView(ViewSanctuary)
	}
	return s.SetView(ViewDocument)
}

// SetView selects a view. Any view other than sanctuary needs a document.
func (s State) SetView(mode ViewMode) (State, error) {
	mode, err := ParseViewMode(string(mode))
	if err != nil {
		return s, err
	}
	if mode != ViewSanctuary && !s.HasDocument() {
		return s, ErrNoDocument
	}
	next := s.clone()
	next.View = mode
	return next, nil
}

// SetLanguage switches the language used by later calls and the interface.
func (s State) SetLanguage(lang i18n.Language) (State, error) {
	parsed, err := i18n.Parse(string(lang))
	if err != nil {
		return s, err
	}
	next := s.clone()
	next.Language = parsed
	return next, nil
}

func (s State) expect(gen uint64, status Status) error {
	if gen != s.Generation {
		return fmt.Errorf("%w: generation %d, session at %d", ErrStale, gen, s.Generation)
	}
	if s.Status != status {
		return fmt.Errorf("%w: session is %s, want %s", ErrInvalidTransition, s.Status, status)
	}
	return nil
}

func (s State) expectReply(gen uint64) error {
	if gen != s.Generation || !s.ReplyPending {
		return fmt.Errorf("%w: no reply pending for generation %d", ErrStale, gen)
	}
	return nil
}

func (s State) pristine() bool {
	return s.Status == StatusIdle &&
		s.Document == nil &&
		s.FileName == "" &&
		len(s.Axioms) == 0 &&
		len(s.Transcript) == 0 &&
		!s.ReplyPending &&
		s.View == ViewSanctuary &&
		s.LastError == ""
}

func (s State) clone() State {
	next := s
	if s.Document != nil {
		doc := *s.Document
		next.Document = &doc
	}
	next.Axioms = append([]llm.Axiom(nil), s.Axioms...)
	next.Transcript = append([]llm.Message(nil), s.Transcript...)
	return next
}

// Clone returns a deep copy safe to hand to another goroutine.
func (s State) Clone() State {
	return s.clone()
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
