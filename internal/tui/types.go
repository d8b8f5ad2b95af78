package tui

import (
	"time"

	"github.com/csheth/sanctuary/internal/document"
	"github.com/csheth/sanctuary/internal/llm"
)

const (
	minViewportWidth          = 40
	viewportHorizontalPadding = 4
	defaultCallTimeout        = 2 * time.Minute

	cardWidth        = 30
	cardGutter       = 2
	cardBodyLines    = 6
	previewLineLimit = 40
)

type composerMode int

const (
	composerModeDisabled composerMode = iota
	composerModePath
	composerModeMessage
)

// Results of the three long-running jobs. Each carries the session
// generation it was started under so late completions can be discarded.
type encodeResultMsg struct {
	generation uint64
	doc        document.Document
	err        error
}

type extractResultMsg struct {
	generation uint64
	axioms     []llm.Axiom
	err        error
}

type converseResultMsg struct {
	generation uint64
	reply      string
	err        error
}
