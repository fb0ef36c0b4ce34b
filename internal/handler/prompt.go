package handler

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"

	"github.com/xxxsen/docqa/internal/service"
)

// Prompter is the terminal side of the services: it asks for
// confirmation, shows notices and reacts to the session ending.
type Prompter struct {
	raw    io.Reader
	in     *bufio.Reader
	out    io.Writer
	errOut io.Writer

	mu        sync.Mutex
	assumeYes bool
	onLogin   func()
}

func NewPrompter(in io.Reader, out, errOut io.Writer) *Prompter {
	return &Prompter{raw: in, in: bufio.NewReader(in), out: out, errOut: errOut}
}

func (p *Prompter) Out() io.Writer {
	return p.out
}

func (p *Prompter) ErrOut() io.Writer {
	return p.errOut
}

// AssumeYes makes Confirm answer yes without asking.
func (p *Prompter) AssumeYes(yes bool) {
	p.mu.Lock()
	p.assumeYes = yes
	p.mu.Unlock()
}

// OnLogin registers fn to run when the session ends.
func (p *Prompter) OnLogin(fn func()) {
	p.mu.Lock()
	p.onLogin = fn
	p.mu.Unlock()
}

func (p *Prompter) Confirm(ctx context.Context, prompt string) bool {
	p.mu.Lock()
	yes := p.assumeYes
	p.mu.Unlock()
	if yes {
		return true
	}
	answer, err := p.ReadLine(prompt + " [y/N]: ")
	if err != nil {
		return false
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true
	}
	return false
}

func (p *Prompter) Notify(level service.NoticeLevel, message string) {
	if level == service.NoticeError {
		fmt.Fprintf(p.errOut, "error: %s\n", message)
		return
	}
	fmt.Fprintln(p.out, message)
}

func (p *Prompter) ToLogin() {
	fmt.Fprintln(p.errOut, "Your session has expired. Run `docqa login` to sign in again.")
	p.mu.Lock()
	fn := p.onLogin
	p.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// ReadLine prints prompt and returns the next input line, trimmed. io.EOF
// is returned only when nothing was typed before the input ended.
func (p *Prompter) ReadLine(prompt string) (string, error) {
	if prompt != "" {
		fmt.Fprint(p.out, prompt)
	}
	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// ReadSecret reads without echo when attached to a terminal.
func (p *Prompter) ReadSecret(prompt string) (string, error) {
	f, ok := p.raw.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return p.ReadLine(prompt)
	}
	fmt.Fprint(p.out, prompt)
	secret, err := term.ReadPassword(int(f.Fd()))
	fmt.Fprintln(p.out)
	if err != nil {
		return "", err
	}
	return string(secret), nil
}
