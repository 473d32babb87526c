package repl

import (
	"strings"
	"testing"
)

// session runs a scripted interaction and returns everything written to
// the terminal, prompts included.
func session(t *testing.T, input string, opts ...Option) string {
	t.Helper()
	var out strings.Builder
	r := New(strings.NewReader(input), &out, opts...)
	if err := r.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	return out.String()
}

func TestEchoesExpressionValues(t *testing.T) {
	out := session(t, "1 + 2\n\"a\" + \"b\"\n")
	for _, want := range []string{"3\n", "'ab'\n"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestStatementsEchoNothing(t *testing.T) {
	out := session(t, "x = 5\n")
	// Only prompts: the assignment itself prints nothing.
	if strings.Contains(out, "5") {
		t.Errorf("assignment echoed a value:\n%s", out)
	}
}

func TestBindingsPersistAcrossInputs(t *testing.T) {
	out := session(t, "x = 5\nx * 2\n")
	if !strings.Contains(out, "10\n") {
		t.Errorf("output missing 10:\n%s", out)
	}
}

func TestBlockInputRunsOnBlankLine(t *testing.T) {
	out := session(t, "def twice(n):\n\treturn n * 2\n\ntwice(21)\n")
	if !strings.Contains(out, "42\n") {
		t.Errorf("output missing 42:\n%s", out)
	}
	if !strings.Contains(out, "... ") {
		t.Errorf("continuation prompt never shown:\n%s", out)
	}
}

func TestBlockKeepsPromptingUntilBlankLine(t *testing.T) {
	out := session(t, "if True:\n\tprint(1)\n\tprint(2)\n\n")
	if !strings.Contains(out, "1\n2\n") {
		t.Errorf("block body not executed together:\n%s", out)
	}
}

func TestFaultReportedAndSessionContinues(t *testing.T) {
	out := session(t, "1 / 0\nprint(\"alive\")\n")
	if !strings.Contains(out, "ZeroDivisionError: division by zero") {
		t.Errorf("fault not reported:\n%s", out)
	}
	if !strings.Contains(out, "alive\n") {
		t.Errorf("session did not continue after fault:\n%s", out)
	}
}

func TestSyntaxErrorReported(t *testing.T) {
	out := session(t, "def (:\n\n")
	if !strings.Contains(out, "SyntaxError") {
		t.Errorf("syntax error not reported:\n%s", out)
	}
}

func TestExitEndsSession(t *testing.T) {
	out := session(t, "exit\nprint(\"unreached\")\n")
	if strings.Contains(out, "unreached") {
		t.Errorf("input after exit still executed:\n%s", out)
	}
	out = session(t, "exit()\nprint(\"unreached\")\n")
	if strings.Contains(out, "unreached") {
		t.Errorf("input after exit() still executed:\n%s", out)
	}
}

func TestCustomPrompts(t *testing.T) {
	out := session(t, "1\n", WithPrompts("py> ", "..> "))
	if !strings.Contains(out, "py> ") {
		t.Errorf("custom prompt not shown:\n%s", out)
	}
}

type memRecorder struct {
	lines []string
}

func (m *memRecorder) Append(input string) error {
	m.lines = append(m.lines, input)
	return nil
}

func TestRecorderSeesExecutedInputs(t *testing.T) {
	rec := &memRecorder{}
	session(t, "x = 1\n\nexit\n", WithRecorder(rec))
	if len(rec.lines) != 1 || rec.lines[0] != "x = 1" {
		t.Errorf("recorded = %v, want [x = 1]", rec.lines)
	}
}

func TestProgramInputSharesStream(t *testing.T) {
	// The input intrinsic reads the line after the one holding the call.
	out := session(t, "name = input(\"? \")\nbob\nprint(name)\n")
	if !strings.Contains(out, "bob\n") {
		t.Errorf("input() did not read from the session stream:\n%s", out)
	}
}
