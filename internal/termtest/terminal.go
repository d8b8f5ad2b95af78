// Package termtest drives a terminal program through a pseudo terminal so
// tests can type into it and wait for text to appear on screen.
package termtest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/creack/pty"
)

const (
	defaultWidth  = 120
	defaultHeight = 40
	pollInterval  = 50 * time.Millisecond
	closeGrace    = 3 * time.Second
)

var (
	// KeyEnter submits the composer.
	KeyEnter = []byte{'\r'}
	// KeyEsc clears input or closes overlays.
	KeyEsc = []byte{27}
	// KeyTab toggles the view.
	KeyTab = []byte{'\t'}
	// KeyCtrlC quits.
	KeyCtrlC = []byte{3}
	// KeyCtrlL switches the language.
	KeyCtrlL = []byte{12}
	// KeyCtrlR starts a new session.
	KeyCtrlR = []byte{18}
)

// Options describes the program to run.
type Options struct {
	Command []string
	Dir     string
	Env     []string
	Width   int
	Height  int
}

// Terminal is a running program attached to a pseudo terminal.
type Terminal struct {
	cmd  *exec.Cmd
	ptmx *os.File

	mu  sync.Mutex
	out bytes.Buffer

	readDone chan struct{}
	exited   chan struct{}
	exitErr  error
}

// Start launches the program inside a PTY of the requested size.
func Start(opts Options) (*Terminal, error) {
	if len(opts.Command) == 0 {
		return nil, errors.New("termtest: command is required")
	}
	width, height := opts.Width, opts.Height
	if width <= 0 {
		width = defaultWidth
	}
	if height <= 0 {
		height = defaultHeight
	}

	cmd := exec.Command(opts.Command[0], opts.Command[1:]...)
	cmd.Dir = opts.Dir
	cmd.Env = environment(opts.Env)

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: uint16(height), Cols: uint16(width)})
	if err != nil {
		return nil, fmt.Errorf("termtest: start %s: %w", opts.Command[0], err)
	}

	term := &Terminal{
		cmd:      cmd,
		ptmx:     ptmx,
		readDone: make(chan struct{}),
		exited:   make(chan struct{}),
	}
	go term.read()
	go func() {
		term.exitErr = cmd.Wait()
		close(term.exited)
	}()
	return term, nil
}

func (t *Terminal) read() {
	defer close(t.readDone)
	replies := newQueryResponder(t.ptmx)
	buf := make([]byte, 4096)
	for {
		n, err := t.ptmx.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			replies.Observe(chunk)
			t.mu.Lock()
			t.out.Write(chunk)
			t.mu.Unlock()
		}
		if err != nil {
			return
		}
	}
}

// Type writes text as if typed on the keyboard.
func (t *Terminal) Type(text string) error {
	return t.Press([]byte(text))
}

// Press writes a raw key sequence such as KeyEnter.
func (t *Terminal) Press(key []byte) error {
	if _, err := t.ptmx.Write(key); err != nil {
		return fmt.Errorf("termtest: write input: %w", err)
	}
	return nil
}

// Output returns everything the program printed with escape sequences removed.
func (t *Terminal) Output() string {
	t.mu.Lock()
	raw := t.out.String()
	t.mu.Unlock()
	return normalize(stripEscapes(strings.ReplaceAll(raw, "\r", "")))
}

// Screen returns the most recent frame the program rendered.
func (t *Terminal) Screen() Frame {
	t.mu.Lock()
	raw := t.out.Bytes()
	frames := splitFrames(append([]byte(nil), raw...))
	t.mu.Unlock()
	if len(frames) == 0 {
		return Frame{}
	}
	return frames[len(frames)-1]
}

// WaitFor blocks until text appears in the program output or ctx ends.
func (t *Terminal) WaitFor(ctx context.Context, text string) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		if strings.Contains(t.Output(), text) {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("termtest: %q never appeared: %w\n---- output ----\n%s", text, ctx.Err(), t.Output())
		case <-t.exited:
			if strings.Contains(t.Output(), text) {
				return nil
			}
			return fmt.Errorf("termtest: program exited before %q appeared: %v", text, t.exitErr)
		case <-ticker.C:
		}
	}
}

// Close asks the program to quit with Ctrl+C and kills it if it lingers.
func (t *Terminal) Close() error {
	select {
	case <-t.exited:
	default:
		_ = t.Press(KeyCtrlC)
		select {
		case <-t.exited:
		case <-time.After(closeGrace):
			_ = t.cmd.Process.Kill()
			<-t.exited
		}
	}
	_ = t.ptmx.Close()
	<-t.readDone
	return t.exitErr
}

func environment(extra []string) []string {
	env := append(os.Environ(), extra...)
	for _, entry := range env {
		if strings.HasPrefix(entry, "TERM=") {
			return env
		}
	}
	return append(env, "TERM=xterm-256color")
}
