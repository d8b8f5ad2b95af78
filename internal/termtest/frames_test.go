package termtest

import (
	"bytes"
	"testing"
)

func TestSplitFrames(t *testing.T) {
	raw := []byte("\x1b[2J\x1b[H\x1b[1mKNOWLEDGE AI\x1b[0m   \r\nidle\r\n\x1b[2J\x1b[HKNOWLEDGE AI\r\n\x1b]0;title\x07ready  \r\n\r\n")
	frames := splitFrames(raw)
	if len(frames) != 2 {
		t.Fatalf("expected 2 frames, got %d: %+v", len(frames), frames)
	}
	if frames[0].Plain != "KNOWLEDGE AI\nidle" {
		t.Fatalf("unexpected first frame: %q", frames[0].Plain)
	}
	if frames[1].Plain != "KNOWLEDGE AI\nready" || frames[1].Index != 1 {
		t.Fatalf("unexpected second frame: %+v", frames[1])
	}
}

func TestStripEscapes(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"\x1b[38;5;81mgold\x1b[0m", "gold"},
		{"\x1b[?25lhidden cursor\x1b[?25h", "hidden cursor"},
		{"\x1b]11;?\x1b\\plain", "plain"},
		{"\x0eshift\x0f", "shift"},
	}
	for _, tc := range cases {
		if got := stripEscapes(tc.in); got != tc.want {
			t.Fatalf("stripEscapes(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestQueryResponderAnswersSplitQueries(t *testing.T) {
	var replies bytes.Buffer
	q := newQueryResponder(&replies)
	q.Observe([]byte("frame\x1b["))
	q.Observe([]byte("6nmore\x1b]11;?\x07"))

	want := "\x1b[1;1R\x1b]11;rgb:0d0d/0c0c/0a0a\x07"
	if replies.String() != want {
		t.Fatalf("unexpected replies %q", replies.String())
	}

	q.Observe([]byte("nothing to answer"))
	if replies.String() != want {
		t.Fatal("responder answered a query twice")
	}
}
