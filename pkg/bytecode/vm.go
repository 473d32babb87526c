package bytecode

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// VM executes code units over a stack of call frames. The loop repeatedly
// inspects the top frame, fetches the instruction under its pointer, and
// dispatches; execution ends when the frame stack empties. Every fault
// surfaces as an *Error return with the diagnostic dump attached — the VM
// never terminates the host process.
type VM struct {
	globals map[string]Value
	frames  []*Frame
	result  Value

	builtins map[string]Value
	modules  map[string]*Module

	out   io.Writer
	in    *bufio.Reader
	trace io.Writer

	// Trace prints each instruction before dispatch.
	Trace bool
}

// Frame is one call-stack entry: a code unit reference, an instruction
// pointer, a private operand stack, and local slots pre-filled with the
// Null sentinel. Created on call, destroyed on return, never reused.
type Frame struct {
	code   *CodeUnit
	fn     *UserFunc // nil for the top-level frame
	ip     int
	stack  []Value
	locals []Value
}

// Option configures a VM.
type Option func(*VM)

// WithOutput directs print and prompt output to w.
func WithOutput(w io.Writer) Option {
	return func(vm *VM) { vm.out = w }
}

// WithInput sets the reader the input intrinsic consumes.
func WithInput(r io.Reader) Option {
	return func(vm *VM) { vm.in = bufio.NewReader(r) }
}

// WithTraceOutput directs instruction tracing to w.
func WithTraceOutput(w io.Writer) Option {
	return func(vm *VM) { vm.trace = w }
}

// New creates a VM with a fresh global namespace. Multiple VMs never share
// state.
func New(opts ...Option) *VM {
	vm := &VM{
		globals: make(map[string]Value),
		out:     os.Stdout,
		in:      bufio.NewReader(os.Stdin),
		trace:   os.Stderr,
		modules: standardModules(),
	}
	for _, o := range opts {
		o(vm)
	}
	vm.builtins = builtinTable(vm)
	return vm
}

// Globals exposes the VM's global namespace. The REPL and tests read
// bindings out of it; it is shared by reference with every function made
// during the run.
func (vm *VM) Globals() map[string]Value {
	return vm.globals
}

// Execute runs a code unit to completion and returns the final value: the
// top of the last frame's operand stack, or None when it is empty.
func (vm *VM) Execute(unit *CodeUnit) (Value, error) {
	vm.frames = vm.frames[:0]
	vm.result = None{}
	vm.pushFrame(unit, nil, nil)
	result, cerr := vm.run()
	if cerr != nil {
		return nil, cerr
	}
	return result, nil
}

func (vm *VM) run() (Value, *Error) {
	for len(vm.frames) > 0 {
		f := vm.frames[len(vm.frames)-1]

		if f.ip >= len(f.code.Instructions) {
			// Fell off the end: the frame's value is its top of stack.
			var result Value = None{}
			if len(f.stack) > 0 {
				result = f.stack[len(f.stack)-1]
			}
			vm.popFrame(result)
			continue
		}

		ins := f.code.Instructions[f.ip]
		at := f.ip
		f.ip++

		if vm.Trace {
			fmt.Fprintf(vm.trace, "%s: %s\n", f.code.Name, formatInstruction(f.code, at, ins))
		}

		if cerr := vm.dispatch(f, ins); cerr != nil {
			if cerr.Dump == "" {
				cerr.Dump = vm.buildDump(f, at, ins)
			}
			return nil, cerr
		}
	}
	return vm.result, nil
}

func (vm *VM) dispatch(f *Frame, ins Instruction) *Error {
	switch ins.Op {
	case OpNop:
		// nothing

	case OpPop:
		_, cerr := vm.pop(f)
		return cerr

	case OpPushNull:
		vm.push(f, Null{})

	case OpPushNone:
		vm.push(f, None{})

	case OpLoadConst:
		if ins.Arg < 0 || ins.Arg >= len(f.code.Constants) {
			return Errorf(StackError, "constant index %d out of range in '%s'", ins.Arg, f.code.Name)
		}
		vm.push(f, f.code.Constants[ins.Arg])

	case OpLoadName:
		name, cerr := vm.name(f, ins.Arg)
		if cerr != nil {
			return cerr
		}
		v, cerr := vm.lookupName(f, name)
		if cerr != nil {
			return cerr
		}
		vm.push(f, v)

	case OpStoreName:
		name, cerr := vm.name(f, ins.Arg)
		if cerr != nil {
			return cerr
		}
		v, cerr := vm.pop(f)
		if cerr != nil {
			return cerr
		}
		vm.namespace(f)[name] = v

	case OpLoadFast:
		if ins.Arg < 0 || ins.Arg >= len(f.locals) {
			return Errorf(StackError, "local slot %d out of range in '%s'", ins.Arg, f.code.Name)
		}
		vm.push(f, f.locals[ins.Arg])

	case OpStoreFast:
		if ins.Arg < 0 || ins.Arg >= len(f.locals) {
			return Errorf(StackError, "local slot %d out of range in '%s'", ins.Arg, f.code.Name)
		}
		v, cerr := vm.pop(f)
		if cerr != nil {
			return cerr
		}
		f.locals[ins.Arg] = v

	case OpLoadAttr:
		name, cerr := vm.name(f, ins.Arg)
		if cerr != nil {
			return cerr
		}
		obj, cerr := vm.pop(f)
		if cerr != nil {
			return cerr
		}
		member, cerr := vm.loadAttr(f, obj, name)
		if cerr != nil {
			return cerr
		}
		vm.push(f, member)

	case OpAdd, OpSub, OpMul, OpDiv:
		b, cerr := vm.pop(f)
		if cerr != nil {
			return cerr
		}
		a, cerr := vm.pop(f)
		if cerr != nil {
			return cerr
		}
		var result Value
		switch ins.Op {
		case OpAdd:
			result, cerr = Add(a, b)
		case OpSub:
			result, cerr = Sub(a, b)
		case OpMul:
			result, cerr = Mul(a, b)
		default:
			result, cerr = Div(a, b)
		}
		if cerr != nil {
			return cerr
		}
		vm.push(f, result)

	case OpNegate:
		v, cerr := vm.pop(f)
		if cerr != nil {
			return cerr
		}
		result, cerr := Negate(v)
		if cerr != nil {
			return cerr
		}
		vm.push(f, result)

	case OpEqual, OpNotEqual, OpLess, OpLessEq, OpGreater, OpGreaterEq:
		b, cerr := vm.pop(f)
		if cerr != nil {
			return cerr
		}
		a, cerr := vm.pop(f)
		if cerr != nil {
			return cerr
		}
		result, cerr := Compare(ins.Op, a, b)
		if cerr != nil {
			return cerr
		}
		vm.push(f, result)

	case OpJumpIfFalse:
		cond, cerr := vm.pop(f)
		if cerr != nil {
			return cerr
		}
		if !cond.Truthy() {
			f.ip += ins.Arg
		}

	case OpJumpForward:
		f.ip += ins.Arg

	case OpJumpBackward:
		f.ip -= ins.Arg

	case OpGetIter:
		v, cerr := vm.pop(f)
		if cerr != nil {
			return cerr
		}
		it, cerr := Iterate(v)
		if cerr != nil {
			return cerr
		}
		vm.push(f, it)

	case OpForIter:
		top, cerr := vm.peek(f)
		if cerr != nil {
			return cerr
		}
		it, ok := top.(*Iterator)
		if !ok {
			return Errorf(TypeError, "FOR_ITER on '%s', expected iterator", top.Kind())
		}
		if item, more := it.Next(); more {
			vm.push(f, item)
		} else {
			vm.pop(f) // exhausted iterator
			f.ip += ins.Arg
		}

	case OpBuildList:
		items, cerr := vm.popN(f, ins.Arg)
		if cerr != nil {
			return cerr
		}
		vm.push(f, NewList(items...))

	case OpBuildTuple:
		items, cerr := vm.popN(f, ins.Arg)
		if cerr != nil {
			return cerr
		}
		vm.push(f, Tuple{Items: items})

	case OpBuildSet:
		items, cerr := vm.popN(f, ins.Arg)
		if cerr != nil {
			return cerr
		}
		vm.push(f, NewSet(items...))

	case OpBuildMap:
		pairs, cerr := vm.popN(f, 2*ins.Arg)
		if cerr != nil {
			return cerr
		}
		d := &Dict{}
		for i := 0; i < len(pairs); i += 2 {
			d.Set(pairs[i], pairs[i+1])
		}
		vm.push(f, d)

	case OpCall:
		callee, cerr := vm.pop(f)
		if cerr != nil {
			return cerr
		}
		args, cerr := vm.popN(f, ins.Arg)
		if cerr != nil {
			return cerr
		}
		return vm.call(f, callee, args)

	case OpCallIntrinsic:
		name, cerr := vm.name(f, ins.Arg)
		if cerr != nil {
			return cerr
		}
		args, cerr := vm.popToSentinel(f)
		if cerr != nil {
			return cerr
		}
		result, cerr := vm.callIntrinsic(name, args)
		if cerr != nil {
			return cerr
		}
		if result != nil {
			vm.push(f, result)
		}

	case OpReturn:
		var result Value = Null{}
		if len(f.stack) > 0 {
			result, _ = vm.pop(f)
		}
		vm.popFrame(result)

	case OpMakeFunction:
		v, cerr := vm.pop(f)
		if cerr != nil {
			return cerr
		}
		unit, ok := v.(*CodeUnit)
		if !ok {
			return Errorf(TypeError, "MAKE_FUNCTION on '%s', expected code", v.Kind())
		}
		vm.push(f, vm.makeFunction(f, unit))

	case OpImportName:
		name, cerr := vm.name(f, ins.Arg)
		if cerr != nil {
			return cerr
		}
		mod, ok := vm.modules[name]
		if !ok {
			return Errorf(FileError, "no module named '%s'", name)
		}
		vm.push(f, mod)

	case OpImportFrom:
		name, cerr := vm.name(f, ins.Arg)
		if cerr != nil {
			return cerr
		}
		top, cerr := vm.peek(f)
		if cerr != nil {
			return cerr
		}
		mod, ok := top.(*Module)
		if !ok {
			return Errorf(TypeError, "IMPORT_FROM on '%s', expected module", top.Kind())
		}
		member, ok := mod.Members[name]
		if !ok {
			return Errorf(UndefinedVariableError, "cannot import name '%s' from '%s'", name, mod.Name)
		}
		vm.push(f, member)

	default:
		return Errorf(NotImplementedError, "unknown opcode 0x%02X", byte(ins.Op))
	}
	return nil
}

// ---------------------------------------------------------------------------
// Calls and frames
// ---------------------------------------------------------------------------

// call invokes a callee with positional args. Arity is not checked for
// user functions: extra arguments are dropped and missing parameters keep
// the Null sentinel in their slots.
func (vm *VM) call(f *Frame, callee Value, args []Value) *Error {
	switch callee := callee.(type) {
	case *UserFunc:
		vm.pushFrame(callee.Code, callee, args)
		return nil
	case *boundMethod:
		bound := make([]Value, 0, len(args)+1)
		bound = append(bound, callee.recv)
		bound = append(bound, args...)
		vm.pushFrame(callee.fn.Code, callee.fn, bound)
		return nil
	case *NativeFunc:
		result, cerr := callee.Fn(args)
		if cerr != nil {
			return cerr
		}
		if result == nil {
			result = None{}
		}
		vm.push(f, result)
		return nil
	case *Class:
		vm.push(f, vm.instantiate(callee, args))
		return nil
	default:
		return Errorf(TypeError, "'%s' object is not callable", callee.Kind())
	}
}

// instantiate builds an instance: field slots start from the class
// defaults, then positional arguments override fields in declaration
// order, with the same arity looseness as function calls.
func (vm *VM) instantiate(class *Class, args []Value) *Instance {
	fields := make(map[string]Value, len(class.FieldNames))
	for _, name := range class.FieldNames {
		fields[name] = class.FieldDefaults[name]
	}
	for i, arg := range args {
		if i >= len(class.FieldNames) {
			break
		}
		fields[class.FieldNames[i]] = arg
	}
	return &Instance{Class: class, Fields: fields}
}

// makeFunction wraps a code unit with the current frame's namespace and
// captures the unit's free names out of the frame into closure cells.
func (vm *VM) makeFunction(f *Frame, unit *CodeUnit) *UserFunc {
	fn := &UserFunc{Code: unit, Globals: vm.namespace(f)}
	if len(unit.FreeNames) > 0 {
		fn.Cells = make(map[string]Value, len(unit.FreeNames))
		for _, name := range unit.FreeNames {
			if slot, ok := f.code.ParamSlot(name); ok && slot < len(f.locals) {
				fn.Cells[name] = f.locals[slot]
				continue
			}
			if f.fn != nil {
				if v, ok := f.fn.Cells[name]; ok {
					fn.Cells[name] = v
				}
			}
		}
	}
	return fn
}

func (vm *VM) pushFrame(unit *CodeUnit, fn *UserFunc, args []Value) {
	locals := make([]Value, len(unit.Params))
	for i := range locals {
		locals[i] = Null{}
	}
	for i, arg := range args {
		if i >= len(locals) {
			break
		}
		locals[i] = arg
	}
	vm.frames = append(vm.frames, &Frame{
		code:   unit,
		fn:     fn,
		stack:  make([]Value, 0, 16),
		locals: locals,
	})
}

// popFrame destroys the top frame and hands its result to the caller, or
// records it as the program result when no caller remains.
func (vm *VM) popFrame(result Value) {
	vm.frames = vm.frames[:len(vm.frames)-1]
	if len(vm.frames) == 0 {
		vm.result = result
		return
	}
	caller := vm.frames[len(vm.frames)-1]
	caller.stack = append(caller.stack, result)
}

// ---------------------------------------------------------------------------
// Name resolution and attributes
// ---------------------------------------------------------------------------

// namespace returns the frame's named-binding table: the function's
// captured namespace inside a call, the VM globals at top level.
func (vm *VM) namespace(f *Frame) map[string]Value {
	if f.fn != nil {
		return f.fn.Globals
	}
	return vm.globals
}

// lookupName resolves a free-standing name: closure cells first, then the
// frame's namespace, then builtins.
func (vm *VM) lookupName(f *Frame, name string) (Value, *Error) {
	if f.fn != nil {
		if v, ok := f.fn.Cells[name]; ok {
			return v, nil
		}
	}
	if v, ok := vm.namespace(f)[name]; ok {
		return v, nil
	}
	if v, ok := vm.builtins[name]; ok {
		return v, nil
	}
	return nil, Errorf(UndefinedVariableError, "name '%s' is not defined", name)
}

func (vm *VM) loadAttr(f *Frame, obj Value, name string) (Value, *Error) {
	switch obj := obj.(type) {
	case *Instance:
		if v, ok := obj.Fields[name]; ok {
			return v, nil
		}
		if code, ok := obj.Class.Methods[name]; ok {
			fn := &UserFunc{Code: code, Globals: vm.namespace(f)}
			return &boundMethod{recv: obj, fn: fn, name: obj.Class.Name + "." + name}, nil
		}
		return nil, Errorf(UndefinedVariableError, "'%s' object has no attribute '%s'", obj.Class.Name, name)
	case *Class:
		if v, ok := obj.FieldDefaults[name]; ok {
			return v, nil
		}
		if code, ok := obj.Methods[name]; ok {
			return &UserFunc{Code: code, Globals: vm.namespace(f)}, nil
		}
		return nil, Errorf(UndefinedVariableError, "type '%s' has no attribute '%s'", obj.Name, name)
	case *Module:
		if v, ok := obj.Members[name]; ok {
			return v, nil
		}
		return nil, Errorf(UndefinedVariableError, "module '%s' has no attribute '%s'", obj.Name, name)
	default:
		return nil, Errorf(UndefinedVariableError, "'%s' object has no attribute '%s'", obj.Kind(), name)
	}
}

func (vm *VM) name(f *Frame, idx int) (string, *Error) {
	if idx < 0 || idx >= len(f.code.Names) {
		return "", Errorf(StackError, "name index %d out of range in '%s'", idx, f.code.Name)
	}
	return f.code.Names[idx], nil
}

// ---------------------------------------------------------------------------
// Operand stack
// ---------------------------------------------------------------------------

func (vm *VM) push(f *Frame, v Value) {
	f.stack = append(f.stack, v)
}

func (vm *VM) pop(f *Frame) (Value, *Error) {
	if len(f.stack) == 0 {
		return nil, Errorf(StackError, "operand stack underflow in '%s'", f.code.Name)
	}
	v := f.stack[len(f.stack)-1]
	f.stack = f.stack[:len(f.stack)-1]
	return v, nil
}

func (vm *VM) peek(f *Frame) (Value, *Error) {
	if len(f.stack) == 0 {
		return nil, Errorf(StackError, "operand stack underflow in '%s'", f.code.Name)
	}
	return f.stack[len(f.stack)-1], nil
}

// popN removes n operands and returns them in source (push) order.
func (vm *VM) popN(f *Frame, n int) ([]Value, *Error) {
	if n < 0 || len(f.stack) < n {
		return nil, Errorf(StackError, "operand stack underflow in '%s'", f.code.Name)
	}
	items := make([]Value, n)
	copy(items, f.stack[len(f.stack)-n:])
	f.stack = f.stack[:len(f.stack)-n]
	return items, nil
}

// popToSentinel removes operands down to and including the Null sentinel,
// returning the arguments in source order.
func (vm *VM) popToSentinel(f *Frame) ([]Value, *Error) {
	for i := len(f.stack) - 1; i >= 0; i-- {
		if _, ok := f.stack[i].(Null); ok {
			args := make([]Value, len(f.stack)-i-1)
			copy(args, f.stack[i+1:])
			f.stack = f.stack[:i]
			return args, nil
		}
	}
	return nil, Errorf(StackError, "intrinsic argument sentinel missing in '%s'", f.code.Name)
}

// ---------------------------------------------------------------------------
// Diagnostics
// ---------------------------------------------------------------------------

// buildDump renders the diagnostic context attached to runtime faults:
// the offending instruction, the full bytecode listing, the operand
// stack, and the local slots.
func (vm *VM) buildDump(f *Frame, at int, ins Instruction) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "in '%s' at instruction (%d) \t%s\n", f.code.Name, at, ins)
	sb.WriteString("\nbytecode:\n")
	sb.WriteString(Disassemble(f.code))
	sb.WriteString("\noperand stack (top last):\n")
	if len(f.stack) == 0 {
		sb.WriteString("  <empty>\n")
	}
	for _, v := range f.stack {
		fmt.Fprintf(&sb, "  %s\n", v.Repr())
	}
	if len(f.locals) > 0 {
		sb.WriteString("\nlocals:\n")
		for i, v := range f.locals {
			name := fmt.Sprintf("slot %d", i)
			if i < len(f.code.Params) {
				name = f.code.Params[i]
			}
			fmt.Fprintf(&sb, "  %s = %s\n", name, v.Repr())
		}
	}
	return sb.String()
}
