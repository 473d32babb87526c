package bytecode

import (
	"fmt"
	"io"
	"math"
	"math/big"
	"strings"
)

// The intrinsic surface is a fixed table: calls to these names compile to
// the dedicated intrinsic-call instruction instead of the general call
// path. They are also exposed as builtins so user code can pass them
// around by name.

var intrinsicNames = map[string]bool{
	"print": true,
	"input": true,
	"range": true,
}

// IsIntrinsic reports whether name is in the fixed intrinsic table.
func IsIntrinsic(name string) bool {
	return intrinsicNames[name]
}

// callIntrinsic invokes an intrinsic with arguments already in source
// order. A nil result means the intrinsic pushes nothing.
func (vm *VM) callIntrinsic(name string, args []Value) (Value, *Error) {
	switch name {
	case "print":
		return nil, vm.intrinsicPrint(args)
	case "input":
		return vm.intrinsicInput(args)
	case "range":
		return intrinsicRange(args)
	default:
		return nil, Errorf(NotImplementedError, "unknown intrinsic '%s'", name)
	}
}

// intrinsicPrint writes the space-joined display forms of its arguments
// followed by a newline. It returns nothing.
func (vm *VM) intrinsicPrint(args []Value) *Error {
	parts := make([]string, len(args))
	for i, arg := range args {
		parts[i] = arg.Str()
	}
	if _, err := fmt.Fprintln(vm.out, strings.Join(parts, " ")); err != nil {
		return Errorf(FileError, "print: %v", err)
	}
	return nil
}

// intrinsicInput writes the prompt, reads one line from the configured
// input, and returns it with surrounding whitespace trimmed.
func (vm *VM) intrinsicInput(args []Value) (Value, *Error) {
	if len(args) > 0 {
		fmt.Fprint(vm.out, args[0].Str())
	}
	line, err := vm.in.ReadString('\n')
	if err != nil && err != io.EOF {
		return nil, Errorf(FileError, "input: %v", err)
	}
	if line == "" && err == io.EOF {
		return nil, Errorf(FileError, "input: end of input")
	}
	return Str(strings.TrimSpace(line)), nil
}

// intrinsicRange materializes range(n), range(start, end), or
// range(start, end, step) into a list of Int.
func intrinsicRange(args []Value) (Value, *Error) {
	if len(args) == 0 || len(args) > 3 {
		return nil, Errorf(TypeError, "range expected 1 to 3 arguments, got %d", len(args))
	}
	bounds := make([]int64, len(args))
	for i, arg := range args {
		n, ok := arg.(Int)
		if !ok {
			return nil, Errorf(TypeError, "'%s' object cannot be interpreted as an integer", arg.Kind())
		}
		if !n.Big.IsInt64() {
			return nil, Errorf(ArithmeticError, "range() argument out of range")
		}
		bounds[i] = n.Big.Int64()
	}

	start, end, step := int64(0), int64(0), int64(1)
	switch len(bounds) {
	case 1:
		end = bounds[0]
	case 2:
		start, end = bounds[0], bounds[1]
	case 3:
		start, end, step = bounds[0], bounds[1], bounds[2]
	}
	if step == 0 {
		return nil, Errorf(ArithmeticError, "range() step must not be zero")
	}

	var items []Value
	if step > 0 {
		for i := start; i < end; i += step {
			items = append(items, NewInt(i))
		}
	} else {
		for i := start; i > end; i += step {
			items = append(items, NewInt(i))
		}
	}
	return NewList(items...), nil
}

// builtinTable exposes the intrinsics on the general call path, so a name
// lookup of print yields a callable value.
func builtinTable(vm *VM) map[string]Value {
	return map[string]Value{
		"print": &NativeFunc{Name: "print", Fn: func(args []Value) (Value, *Error) {
			return nil, vm.intrinsicPrint(args)
		}},
		"input": &NativeFunc{Name: "input", Fn: vm.intrinsicInput},
		"range": &NativeFunc{Name: "range", Fn: intrinsicRange},
	}
}

// ---------------------------------------------------------------------------
// Modules
// ---------------------------------------------------------------------------

// standardModules builds the importable module registry. The maths module
// exposes a small host-backed numeric surface.
func standardModules() map[string]*Module {
	maths := &Module{
		Name: "maths",
		Members: map[string]Value{
			"pi":    Float(math.Pi),
			"e":     Float(math.E),
			"sin":   mathFunc("sin", math.Sin),
			"cos":   mathFunc("cos", math.Cos),
			"tan":   mathFunc("tan", math.Tan),
			"exp":   mathFunc("exp", math.Exp),
			"ln":    domainFunc("ln", math.Log, func(x float64) bool { return x > 0 }),
			"log10": domainFunc("log10", math.Log10, func(x float64) bool { return x > 0 }),
			"sqrt":  domainFunc("sqrt", math.Sqrt, func(x float64) bool { return x >= 0 }),
			"abs": &NativeFunc{Name: "abs", Fn: func(args []Value) (Value, *Error) {
				if len(args) != 1 {
					return nil, Errorf(TypeError, "abs() takes exactly one argument (%d given)", len(args))
				}
				switch v := args[0].(type) {
				case Int:
					return Int{Big: new(big.Int).Abs(v.Big)}, nil
				case Float:
					return Float(math.Abs(float64(v))), nil
				case Bool:
					if v {
						return NewInt(1), nil
					}
					return NewInt(0), nil
				default:
					return nil, Errorf(TypeError, "bad operand type for abs(): '%s'", args[0].Kind())
				}
			}},
		},
	}
	return map[string]*Module{"maths": maths}
}

// mathFunc wraps a float function as a one-argument native.
func mathFunc(name string, fn func(float64) float64) *NativeFunc {
	return domainFunc(name, fn, nil)
}

// domainFunc wraps a float function with an optional domain check.
func domainFunc(name string, fn func(float64) float64, inDomain func(float64) bool) *NativeFunc {
	return &NativeFunc{Name: name, Fn: func(args []Value) (Value, *Error) {
		if len(args) != 1 {
			return nil, Errorf(TypeError, "%s() takes exactly one argument (%d given)", name, len(args))
		}
		x, ok := asFloat(args[0])
		if !ok {
			return nil, Errorf(TypeError, "%s() argument must be a number, not '%s'", name, args[0].Kind())
		}
		if inDomain != nil && !inDomain(x) {
			return nil, Errorf(ArithmeticError, "math domain error")
		}
		return Float(fn(x)), nil
	}}
}
