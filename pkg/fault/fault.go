// Package fault defines the interpreter's error type. Scanning, parsing,
// compilation, and execution never terminate the host process; every
// user-triggerable fault surfaces as an *Error carrying one of the kinds
// below.
package fault

import (
	"errors"
	"fmt"
)

// ErrorKind classifies interpreter faults.
type ErrorKind int

const (
	ArithmeticError ErrorKind = iota
	IndexError
	KeyError
	IndentationError
	TypeError
	NotImplementedError
	ZeroDivisionError
	UndefinedVariableError
	FloatParseError
	StackError
	SyntaxError
	FileError
)

var errorKindNames = map[ErrorKind]string{
	ArithmeticError:        "ArithmeticError",
	IndexError:             "IndexError",
	KeyError:               "KeyError",
	IndentationError:       "IndentationError",
	TypeError:              "TypeError",
	NotImplementedError:    "NotImplementedError",
	ZeroDivisionError:      "ZeroDivisionError",
	UndefinedVariableError: "UndefinedVariableError",
	FloatParseError:        "FloatParseError",
	StackError:             "StackError",
	SyntaxError:            "SyntaxError",
	FileError:              "FileError",
}

func (k ErrorKind) String() string {
	if s, ok := errorKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Error is the interpreter's fault type. Dump holds the diagnostic
// context the VM attaches to runtime faults (bytecode listing, operand
// stack, locals); it is empty for faults raised before execution.
type Error struct {
	Kind ErrorKind
	Msg  string
	Dump string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// Errorf builds an *Error of the given kind.
func Errorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// As extracts an *Error from an error chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf reports the ErrorKind of err, or ok=false for foreign errors.
func KindOf(err error) (ErrorKind, bool) {
	if e, ok := As(err); ok {
		return e.Kind, true
	}
	return 0, false
}
