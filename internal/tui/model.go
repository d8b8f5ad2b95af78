package tui

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/csheth/sanctuary/internal/document"
	"github.com/csheth/sanctuary/internal/i18n"
	"github.com/csheth/sanctuary/internal/llm"
	"github.com/csheth/sanctuary/internal/session"
)

// Config wires runtime options into the TUI program.
type Config struct {
	LLM         llm.Client
	Encoder     *document.Encoder
	Language    i18n.Language
	Logger      *zap.Logger
	CallTimeout time.Duration
	// InitialPath, when set, is uploaded as soon as the program starts.
	InitialPath string
}

// New returns a tea.Model ready to be mounted into a Program.
func New(config Config) tea.Model {
	if config.Encoder == nil {
		config.Encoder = document.NewEncoder(0)
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	if config.CallTimeout <= 0 {
		config.CallTimeout = defaultCallTimeout
	}

	composer := textinput.New()
	composer.Placeholder = i18n.For(config.Language).Terminal.PathPlaceholder
	composer.CharLimit = 2000
	composer.Width = 70
	composer.Focus()

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	vp := viewport.New(80, 20)
	vp.MouseWheelEnabled = true

	return &model{
		config:        config,
		logger:        config.Logger,
		jobs:          newJobBus(config.Logger),
		state:         session.New("terminal", config.Language),
		layout:        newPageLayout(),
		composer:      composer,
		spinner:       spin,
		viewport:      vp,
		flipped:       map[int]bool{},
		cardRows:      map[int]int{},
		jobStatus:     map[jobKind]jobSnapshot{},
		viewportDirty: true,
	}
}

type model struct {
	config Config
	logger *zap.Logger
	jobs   *jobBus
	state  session.State
	layout pageLayout

	composer textinput.Model
	spinner  spinner.Model
	viewport viewport.Model

	cardCursor    int
	flipped       map[int]bool
	cardRows      map[int]int
	helpVisible   bool
	infoMessage   string
	errorMessage  string
	jobStatus     map[jobKind]jobSnapshot
	viewportDirty bool
}

func (m *model) Init() tea.Cmd {
	if path := strings.TrimSpace(m.config.InitialPath); path != "" {
		return tea.Batch(textinput.Blink, m.startUpload(path))
	}
	return textinput.Blink
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout.Update(msg.Width, msg.Height)
		m.viewport.Width = m.layout.viewportWidth
		m.viewport.Height = m.layout.viewportHeight
		m.composer.Width = m.layout.composerWidth
		m.markViewportDirty()
		return m, nil
	case spinner.TickMsg:
		if !m.working() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.markViewportDirty()
		return m, cmd
	case jobSignalMsg:
		m.recordJob(msg.Snapshot)
		return m, nil
	case jobResultEnvelope:
		m.recordJob(msg.Snapshot)
		if msg.Payload == nil {
			return m, nil
		}
		return m.Update(msg.Payload)
	case encodeResultMsg:
		return m, m.handleEncodeResult(msg)
	case extractResultMsg:
		m.handleExtractResult(msg)
		return m, nil
	case converseResultMsg:
		m.handleConverseResult(msg)
		return m, nil
	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *model) handleKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyCtrlR:
		m.resetSession()
		return m, nil
	case tea.KeyCtrlL:
		m.toggleLanguage()
		return m, nil
	case tea.KeyTab:
		m.toggleView()
		return m, nil
	case tea.KeyEsc:
		switch {
		case m.composer.Value() != "":
			m.composer.Reset()
		case m.helpVisible:
			m.helpVisible = false
		default:
			return m, tea.Quit
		}
		return m, nil
	case tea.KeyPgUp, tea.KeyPgDown:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(key)
		return m, cmd
	}

	if m.composer.Value() == "" {
		if m.galleryActive() && m.handleGalleryKey(key) {
			return m, nil
		}
		if key.String() == "?" {
			m.helpVisible = !m.helpVisible
			return m, nil
		}
	}

	if key.Type == tea.KeyEnter {
		return m, m.submitComposer()
	}
	if m.composerMode() == composerModeDisabled {
		return m, nil
	}
	var cmd tea.Cmd
	m.composer, cmd = m.composer.Update(key)
	return m, cmd
}

// handleGalleryKey moves across or flips axiom cards. It only runs while the
// composer is empty, so typing a message is never intercepted.
func (m *model) handleGalleryKey(key tea.KeyMsg) bool {
	columns := m.layout.cardColumns
	if columns < 1 {
		columns = 1
	}
	right, left := 1, -1
	if m.state.Language == i18n.Arabic {
		right, left = -1, 1
	}
	switch {
	case key.Type == tea.KeyRight:
		m.moveCard(right)
	case key.Type == tea.KeyLeft:
		m.moveCard(left)
	case key.Type == tea.KeyDown:
		m.moveCard(columns)
	case key.Type == tea.KeyUp:
		m.moveCard(-columns)
	case key.Type == tea.KeyEnter, key.Type == tea.KeySpace, key.String() == " ":
		m.flipped[m.cardCursor] = !m.flipped[m.cardCursor]
		m.markViewportDirty()
	default:
		return false
	}
	return true
}

func (m *model) moveCard(delta int) {
	target := m.cardCursor + delta
	if target < 0 || target >= len(m.state.Axioms) {
		return
	}
	m.cardCursor = target
	m.markViewportDirty()
	m.refreshViewportIfDirty()
	m.ensureCardVisible()
}

func (m *model) submitComposer() tea.Cmd {
	value := strings.TrimSpace(m.composer.Value())
	switch m.composerMode() {
	case composerModePath:
		if value == "" {
			m.errorMessage = m.labels().Terminal.PathRequired
			return nil
		}
		m.composer.Reset()
		return m.startUpload(value)
	case composerModeMessage:
		if value == "" {
			return nil
		}
		return m.sendMessage(value)
	default:
		return nil
	}
}

func (m *model) startUpload(path string) tea.Cmd {
	next, err := m.state.BeginUpload(filepath.Base(path))
	if err != nil {
		m.errorMessage = err.Error()
		return nil
	}
	m.state = next
	m.errorMessage = ""
	m.infoMessage = ""
	m.cardCursor = 0
	m.flipped = map[int]bool{}
	m.syncComposer()
	m.markViewportDirty()
	m.logger.Info("upload started", zap.String("path", path), zap.Uint64("generation", next.Generation))
	return tea.Batch(m.spinner.Tick, m.jobs.Start(jobKindEncode, next.Generation, encodeJob(m.config.Encoder, path, next.Generation)))
}

func (m *model) handleEncodeResult(msg encodeResultMsg) tea.Cmd {
	if msg.err != nil {
		next, err := m.state.EncodingFailed(msg.generation, msg.err)
		if err != nil {
			m.logStale(jobKindEncode, err)
			return nil
		}
		m.state = next
		m.errorMessage = msg.err.Error()
		m.syncComposer()
		m.markViewportDirty()
		return nil
	}
	next, err := m.state.DocumentEncoded(msg.generation, msg.doc)
	if err != nil {
		m.logStale(jobKindEncode, err)
		return nil
	}
	m.state = next
	m.syncComposer()
	m.markViewportDirty()
	runner := extractJob(m.config.LLM, msg.doc, next.Language, next.Generation, m.config.CallTimeout)
	return tea.Batch(m.spinner.Tick, m.jobs.Start(jobKindExtract, m.state.Generation, runner))
}

func (m *model) handleExtractResult(msg extractResultMsg) {
	var (
		next session.State
		err  error
	)
	if msg.err != nil {
		next, err = m.state.ExtractionFailed(msg.generation, msg.err)
	} else {
		next, err = m.state.AxiomsReady(msg.generation, msg.axioms)
	}
	if err != nil {
		m.logStale(jobKindExtract, err)
		return
	}
	m.state = next
	m.cardCursor = 0
	m.flipped = map[int]bool{}
	if msg.err != nil {
		m.errorMessage = fmt.Sprintf(m.labels().Terminal.ExtractionFailed, msg.err)
		m.infoMessage = ""
	} else {
		m.errorMessage = ""
		m.infoMessage = m.labels().DialogueReady
	}
	m.viewport.GotoTop()
	m.syncComposer()
	m.markViewportDirty()
}

func (m *model) sendMessage(text string) tea.Cmd {
	history := m.state.Clone().Transcript
	next, err := m.state.SendMessage(text)
	if err != nil {
		if !errors.Is(err, session.ErrEmptyMessage) {
			m.errorMessage = err.Error()
		}
		return nil
	}
	m.state = next
	m.composer.Reset()
	m.errorMessage = ""
	m.syncComposer()
	m.markViewportDirty()
	m.refreshViewportIfDirty()
	m.viewport.GotoBottom()

	utterance := next.Transcript[len(next.Transcript)-1].Text
	runner := converseJob(m.config.LLM, *next.Document, history, utterance, next.Generation, m.config.CallTimeout)
	return tea.Batch(m.spinner.Tick, m.jobs.Start(jobKindConverse, m.state.Generation, runner))
}

func (m *model) handleConverseResult(msg converseResultMsg) {
	var (
		next session.State
		err  error
	)
	if msg.err != nil {
		next, err = m.state.ReplyFailed(msg.generation, msg.err)
	} else {
		next, err = m.state.ReplyReceived(msg.generation, msg.reply)
	}
	if err != nil {
		m.logStale(jobKindConverse, err)
		return
	}
	if msg.err != nil {
		m.logger.Warn("conversation failed", zap.Error(msg.err))
	}
	m.state = next
	m.syncComposer()
	m.markViewportDirty()
	m.refreshViewportIfDirty()
	m.viewport.GotoBottom()
}

func (m *model) resetSession() {
	m.state = m.state.Reset()
	if n := m.jobs.CancelStale(m.state.Generation); n > 0 {
		m.logger.Info("canceled jobs of the previous session", zap.Int("jobs", n), zap.Uint64("generation", m.state.Generation))
	}
	m.jobStatus = map[jobKind]jobSnapshot{}
	m.cardCursor = 0
	m.flipped = map[int]bool{}
	m.errorMessage = ""
	m.infoMessage = ""
	m.composer.Reset()
	m.viewport.GotoTop()
	m.syncComposer()
	m.markViewportDirty()
}

func (m *model) toggleView() {
	next, err := m.state.ToggleView()
	if err != nil {
		m.errorMessage = err.Error()
		return
	}
	m.state = next
	m.errorMessage = ""
	m.viewport.GotoTop()
	m.markViewportDirty()
}

func (m *model) toggleLanguage() {
	next, err := m.state.SetLanguage(m.state.Language.Toggle())
	if err != nil {
		m.errorMessage = err.Error()
		return
	}
	m.state = next
	if m.state.Status == session.StatusReady && m.infoMessage != "" {
		m.infoMessage = m.labels().DialogueReady
	}
	m.syncComposer()
	m.markViewportDirty()
}

func (m *model) composerMode() composerMode {
	switch {
	case m.state.ReplyPending, m.state.Status == session.StatusReading:
		return composerModeDisabled
	case m.state.HasDocument():
		return composerModeMessage
	case m.state.Status == session.StatusIdle:
		return composerModePath
	default:
		return composerModeDisabled
	}
}

// syncComposer matches the composer's focus and placeholder to the session.
func (m *model) syncComposer() {
	switch m.composerMode() {
	case composerModePath:
		m.composer.Placeholder = m.labels().Terminal.PathPlaceholder
		m.composer.Focus()
	case composerModeMessage:
		m.composer.Placeholder = m.labels().ChatPlaceholder
		m.composer.Focus()
	default:
		m.composer.Blur()
	}
}

func (m *model) galleryActive() bool {
	return m.state.Status == session.StatusReady &&
		m.state.View == session.ViewSanctuary &&
		len(m.state.Axioms) > 0
}

func (m *model) working() bool {
	return m.state.Status.Busy() || m.state.ReplyPending
}

func (m *model) labels() i18n.Strings {
	return i18n.For(m.state.Language)
}

// recordJob keeps the latest snapshot per kind for the current session only,
// so a canceled job of an earlier session cannot mask a live one.
func (m *model) recordJob(snap jobSnapshot) {
	if snap.Generation != m.state.Generation {
		return
	}
	m.jobStatus[snap.Kind] = snap
}

func (m *model) logStale(kind jobKind, err error) {
	m.logger.Info("discarded job result", zap.String("kind", string(kind)), zap.Error(err))
}

func (m *model) markViewportDirty() {
	m.viewportDirty = true
}

func (m *model) refreshViewportIfDirty() {
	if !m.viewportDirty {
		return
	}
	view := m.buildDisplayContent()
	m.cardRows = view.cardRows
	offset := m.viewport.YOffset
	m.viewport.SetContent(view.content)
	m.viewport.SetYOffset(offset)
	m.viewportDirty = false
}

func (m *model) ensureCardVisible() {
	columns := m.layout.cardColumns
	if columns < 1 {
		columns = 1
	}
	line, ok := m.cardRows[m.cardCursor/columns]
	if !ok {
		return
	}
	bottom := line + cardBodyLines + 2
	switch {
	case line < m.viewport.YOffset:
		m.viewport.SetYOffset(line)
	case bottom > m.viewport.YOffset+m.viewport.Height:
		m.viewport.SetYOffset(bottom - m.viewport.Height)
	}
}
