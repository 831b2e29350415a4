// Package encoder wraps an external MP3 encoder process as a plain byte
// sink. It is explicitly outside the normalizer core (spec §9): the core
// only ever sees an io.Writer, never a subprocess.
package encoder

import (
	"bufio"
	"fmt"
	"io"
	"os/exec"
	"sync"

	"github.com/creack/pty"
	"golang.org/x/term"
)

// Process spawns an external encoder (e.g. lame reading raw PCM on
// stdin) and exposes its stdin as an io.WriteCloser. Two background
// goroutines continuously drain stdout and stderr so the child never
// blocks on a full pipe buffer while the caller is mid-write — the
// deadlock spec §9 calls out by name.
//
// Input is piped to the child over a pseudo-terminal master/slave pair
// rather than a plain os.Pipe, the same pty.Open handshake
// doismellburning-samoyed/src/kiss.go uses to hand a client process a
// device-like endpoint; here the "client" is the encoder's stdin.
type Process struct {
	cmd *exec.Cmd

	ptmx fileCloser // master end, write side for callers

	stdoutDone chan struct{}
	stderrDone chan struct{}

	mu       sync.Mutex
	lastLine string
	closed   bool
}

// fileCloser narrows *os.File (what pty.Open returns) to the methods
// this package needs, so tests can substitute a fake without pulling in
// a real pty.
type fileCloser interface {
	io.ReadWriteCloser
	Name() string
}

// Start launches name with args, wiring its stdin to a pty and draining
// its stdout/stderr. onStderrLine, if non-nil, is called (from the
// stderr-draining goroutine, never the caller's goroutine) once per line
// the encoder writes to stderr — most encoders report progress there.
func Start(name string, args []string, onStderrLine func(line string)) (*Process, error) {
	ptmx, pts, err := pty.Open()
	if err != nil {
		return nil, fmt.Errorf("encoder: open pty: %w", err)
	}
	// PCM bytes are arbitrary binary data, not a line-oriented text
	// stream, so the slave side must be switched out of the default
	// cooked/echo terminal mode: a raw 0x03 or 0x04 byte in a canonical
	// pty would otherwise signal INTR/EOF to the child instead of
	// reaching its stdin. kiss.go notes this exact gap (its cfmakeraw
	// call is a standing TODO); here it's done for real.
	if _, err := term.MakeRaw(int(pts.Fd())); err != nil {
		ptmx.Close()
		pts.Close()
		return nil, fmt.Errorf("encoder: set raw mode: %w", err)
	}

	cmd := exec.Command(name, args...)
	cmd.Stdin = pts

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		ptmx.Close()
		pts.Close()
		return nil, fmt.Errorf("encoder: stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		ptmx.Close()
		pts.Close()
		return nil, fmt.Errorf("encoder: stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		ptmx.Close()
		pts.Close()
		return nil, fmt.Errorf("encoder: start %s: %w", name, err)
	}
	// The child has its own copy of pts now; our copy of the slave
	// exists only to have handed it to cmd.Stdin and can be closed.
	pts.Close()

	p := &Process{
		cmd:        cmd,
		ptmx:       ptmx,
		stdoutDone: make(chan struct{}),
		stderrDone: make(chan struct{}),
	}

	go p.drain(stdout, p.stdoutDone, nil, false)
	go p.drain(stderr, p.stderrDone, onStderrLine, true)

	return p, nil
}

func (p *Process) drain(r io.Reader, done chan struct{}, onLine func(string), trackLast bool) {
	defer close(done)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if trackLast {
			p.mu.Lock()
			p.lastLine = line
			p.mu.Unlock()
		}
		if onLine != nil {
			onLine(line)
		}
	}
}

// LastStderrLine returns the most recent line the encoder wrote to
// stderr, useful for surfacing a failure reason after Wait returns an
// error.
func (p *Process) LastStderrLine() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastLine
}

// Write feeds raw bytes to the encoder's stdin.
func (p *Process) Write(data []byte) (int, error) {
	return p.ptmx.Write(data)
}

// Close closes the encoder's stdin (signalling end of input), waits for
// the process to exit and for both drain goroutines to finish, then
// returns the process's exit error, if any.
func (p *Process) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	closeErr := p.ptmx.Close()
	waitErr := p.cmd.Wait()
	<-p.stdoutDone
	<-p.stderrDone

	if waitErr != nil {
		return fmt.Errorf("encoder: %s: %w (stderr: %s)", p.cmd.Path, waitErr, p.LastStderrLine())
	}
	return closeErr
}
