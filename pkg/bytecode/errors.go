package bytecode

import "github.com/chazu/slither/pkg/fault"

// Compilation and execution report faults with the shared interpreter
// error type; the kinds and helpers are re-exported here so this package
// and its callers do not need a second import for every fault.

type (
	Error     = fault.Error
	ErrorKind = fault.ErrorKind
)

const (
	ArithmeticError        = fault.ArithmeticError
	IndexError             = fault.IndexError
	KeyError               = fault.KeyError
	IndentationError       = fault.IndentationError
	TypeError              = fault.TypeError
	NotImplementedError    = fault.NotImplementedError
	ZeroDivisionError      = fault.ZeroDivisionError
	UndefinedVariableError = fault.UndefinedVariableError
	FloatParseError        = fault.FloatParseError
	StackError             = fault.StackError
	SyntaxError            = fault.SyntaxError
	FileError              = fault.FileError
)

// Errorf builds an *Error of the given kind.
func Errorf(kind ErrorKind, format string, args ...any) *Error {
	return fault.Errorf(kind, format, args...)
}

// AsError extracts an *Error from an error chain.
func AsError(err error) (*Error, bool) {
	return fault.As(err)
}

// KindOf reports the ErrorKind of err, or ok=false for foreign errors.
func KindOf(err error) (ErrorKind, bool) {
	return fault.KindOf(err)
}
