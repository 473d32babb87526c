// Package repl implements the interactive read-eval-print loop: one
// persistent VM per session, multiline block entry, and optional input
// history recording.
package repl

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/tliron/commonlog"

	"github.com/chazu/slither/pkg/bytecode"
	"github.com/chazu/slither/pkg/parser"
)

var log = commonlog.GetLogger("slither.repl")

// Recorder persists entered lines. The history store satisfies it; a nil
// Recorder disables recording.
type Recorder interface {
	Append(input string) error
}

// REPL drives one interactive session. Bindings persist across inputs
// because every input executes on the same VM, and the input intrinsic
// shares the session's reader so prompts and programs read the same
// stream.
type REPL struct {
	vm         *bytecode.VM
	in         *bufio.Reader
	out        io.Writer
	prompt     string
	contPrompt string
	recorder   Recorder
}

// Option configures a REPL.
type Option func(*REPL)

// WithPrompts overrides the primary and continuation prompts.
func WithPrompts(primary, continuation string) Option {
	return func(r *REPL) {
		r.prompt = primary
		r.contPrompt = continuation
	}
}

// WithRecorder records every executed input.
func WithRecorder(rec Recorder) Option {
	return func(r *REPL) { r.recorder = rec }
}

// New creates a session reading from in and writing both program output
// and echoes to out.
func New(in io.Reader, out io.Writer, opts ...Option) *REPL {
	br := bufio.NewReader(in)
	r := &REPL{
		vm:         bytecode.New(bytecode.WithOutput(out), bytecode.WithInput(br)),
		in:         br,
		out:        out,
		prompt:     ">>> ",
		contPrompt: "... ",
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// VM exposes the session's VM, mainly so callers can flip tracing.
func (r *REPL) VM() *bytecode.VM {
	return r.vm
}

// Run loops until the input ends or the user types exit. Faults are
// reported and the session continues; they never unwind the loop.
func (r *REPL) Run() error {
	for {
		input, ok := r.read()
		if !ok {
			fmt.Fprintln(r.out)
			return nil
		}
		trimmed := strings.TrimSpace(input)
		if trimmed == "" {
			continue
		}
		if trimmed == "exit" || trimmed == "exit()" {
			return nil
		}
		r.record(input)
		r.Eval(input)
	}
}

// read collects one input: a single line, or, when the line opens a
// block, every following line up to a blank one.
func (r *REPL) read() (string, bool) {
	fmt.Fprint(r.out, r.prompt)
	line, ok := r.readLine()
	if !ok {
		return "", false
	}
	if !strings.HasSuffix(strings.TrimSpace(line), ":") {
		return line, true
	}

	var block strings.Builder
	block.WriteString(line)
	block.WriteByte('\n')
	for {
		fmt.Fprint(r.out, r.contPrompt)
		next, ok := r.readLine()
		if !ok || strings.TrimSpace(next) == "" {
			return block.String(), true
		}
		block.WriteString(next)
		block.WriteByte('\n')
	}
}

func (r *REPL) readLine() (string, bool) {
	line, err := r.in.ReadString('\n')
	if err != nil && line == "" {
		return "", false
	}
	return strings.TrimRight(line, "\r\n"), true
}

// Eval compiles and runs one input on the session VM, echoing non-None
// expression values and reporting faults without ending the session.
func (r *REPL) Eval(input string) {
	if !strings.HasSuffix(input, "\n") {
		input += "\n"
	}
	nodes, err := parser.Parse(input)
	if err != nil {
		r.report(err)
		return
	}
	unit, err := bytecode.Compile(nodes, "<stdin>")
	if err != nil {
		r.report(err)
		return
	}
	result, err := r.vm.Execute(unit)
	if err != nil {
		r.report(err)
		return
	}
	switch result.Kind() {
	case bytecode.KindNone, bytecode.KindNull:
		// statements echo nothing
	default:
		fmt.Fprintln(r.out, result.Repr())
	}
}

func (r *REPL) report(err error) {
	fmt.Fprintln(r.out, err.Error())
}

func (r *REPL) record(input string) {
	if r.recorder == nil {
		return
	}
	if err := r.recorder.Append(input); err != nil {
		log.Warningf("cannot record history: %s", err.Error())
	}
}
