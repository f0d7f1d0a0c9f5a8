package util

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/ssh/terminal"

	"github.com/sidkik/studymirror/pkg/errors"
)

// Mocked for unit testing.
var (
	exit                 = os.Exit
	stderr     io.Writer = os.Stderr
	stdin      io.Reader = os.Stdin
	isTerminal           = terminal.IsTerminal
	readPassword         = terminal.ReadPassword
)

// HandleFatalError prints `err` to the user and exits with a non-zero code.
// Friendly errors are printed without the context that was added while the
// error propagated.
func HandleFatalError(err error) {
	log.WithError(err).Debug("Fatal error")
	fmt.Fprintln(stderr, errors.GetPrintableMessage(err))
	exit(1)
}

// HandlePanic logs the stack trace of a panic before exiting. It should be
// deferred at the start of every goroutine.
func HandlePanic() {
	if r := recover(); r != nil {
		log.WithField("stack", string(debug.Stack())).Errorf("Unexpected panic: %v", r)
		exit(1)
	}
}

// PromptPassword asks the user for a password without echoing it. It fails if
// stdin isn't a terminal.
func PromptPassword(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !isTerminal(fd) {
		return "", errors.NewFriendlyError("A password is required, but stdin is not a terminal.\n" +
			"Set it with --password or the STUDYMIRROR_PASSWORD environment variable.")
	}

	fmt.Fprint(stderr, prompt)
	password, err := readPassword(fd)
	fmt.Fprintln(stderr)
	if err != nil {
		return "", errors.WithContext(err, "read password")
	}
	return string(password), nil
}

// PromptYesOrNo asks the user a yes or no question, and returns whether they
// answered yes.
func PromptYesOrNo(prompt string) (bool, error) {
	fmt.Fprintf(stderr, "%s [y/N] ", prompt)
	answer, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, errors.WithContext(err, "read answer")
	}

	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes", nil
}

// ProgressPrinter prints a message followed by a growing line of dots until
// it's stopped.
type ProgressPrinter struct {
	out      io.Writer
	msg      string
	interval time.Duration

	stop     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
}

// NewProgressPrinter creates a new ProgressPrinter. Call Run in a goroutine
// to start printing.
func NewProgressPrinter(out io.Writer, msg string) *ProgressPrinter {
	return &ProgressPrinter{
		out:      out,
		msg:      msg,
		interval: time.Second,
		stop:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
}

// Run prints the progress until Stop is called.
func (pp *ProgressPrinter) Run() {
	defer close(pp.stopped)

	fmt.Fprint(pp.out, pp.msg)
	ticker := time.NewTicker(pp.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			fmt.Fprint(pp.out, ".")
		case <-pp.stop:
			fmt.Fprintln(pp.out)
			return
		}
	}
}

// Stop stops the printer, and waits for it to finish writing.
func (pp *ProgressPrinter) Stop() {
	pp.stopOnce.Do(func() {
		close(pp.stop)
	})
	<-pp.stopped
}
