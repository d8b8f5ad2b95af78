package termtest

import (
	"bytes"
	"io"
	"regexp"
	"strings"
)

// Frame is one render of the screen, with and without escape sequences.
type Frame struct {
	Index int
	ANSI  string
	Plain string
}

var (
	clearScreen = regexp.MustCompile(`\x1b\[[0-9;]*J`)
	csiSequence = regexp.MustCompile(`\x1b\[[0-9;?]*[A-Za-z]`)
	oscSequence = regexp.MustCompile(`\x1b\][^\x07\x1b]*(\x07|\x1b\\)`)
)

func splitFrames(raw []byte) []Frame {
	text := strings.ReplaceAll(string(raw), "\r", "")
	var frames []Frame
	for _, segment := range clearScreen.Split(text, -1) {
		segment = strings.TrimPrefix(strings.Trim(segment, "\x00"), "\x1b[H")
		plain := normalize(stripEscapes(segment))
		if strings.TrimSpace(plain) == "" {
			continue
		}
		frames = append(frames, Frame{Index: len(frames), ANSI: segment, Plain: plain})
	}
	return frames
}

func stripEscapes(s string) string {
	s = oscSequence.ReplaceAllString(s, "")
	s = csiSequence.ReplaceAllString(s, "")
	return strings.NewReplacer("\x0e", "", "\x0f", "").Replace(s)
}

func normalize(s string) string {
	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " ")
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}

// queryResponder answers the terminal capability queries bubbletea and
// termenv send at startup, which would otherwise block until they time out.
type queryResponder struct {
	w    io.Writer
	tail []byte
}

var terminalReplies = []struct {
	query []byte
	reply []byte
}{
	{[]byte("\x1b[6n"), []byte("\x1b[1;1R")},
	{[]byte("\x1b]10;?\x07"), []byte("\x1b]10;rgb:e7e7/e2e2/d4d4\x07")},
	{[]byte("\x1b]10;?\x1b\\"), []byte("\x1b]10;rgb:e7e7/e2e2/d4d4\x1b\\")},
	{[]byte("\x1b]11;?\x07"), []byte("\x1b]11;rgb:0d0d/0c0c/0a0a\x07")},
	{[]byte("\x1b]11;?\x1b\\"), []byte("\x1b]11;rgb:0d0d/0c0c/0a0a\x1b\\")},
}

func newQueryResponder(w io.Writer) *queryResponder {
	return &queryResponder{w: w}
}

// Observe scans output for queries, including ones split across reads.
func (q *queryResponder) Observe(chunk []byte) {
	q.tail = append(q.tail, chunk...)
	for {
		first, which := -1, -1
		for i, entry := range terminalReplies {
			if idx := bytes.Index(q.tail, entry.query); idx >= 0 && (first < 0 || idx < first) {
				first, which = idx, i
			}
		}
		if which < 0 {
			break
		}
		_, _ = q.w.Write(terminalReplies[which].reply)
		q.tail = q.tail[first+len(terminalReplies[which].query):]
	}
	if len(q.tail) > 32 {
		q.tail = append([]byte(nil), q.tail[len(q.tail)-32:]...)
	}
}
