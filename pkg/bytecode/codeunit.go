package bytecode

import "fmt"

// Instruction is one word-coded VM instruction. Arg is meaningful only
// for opcodes whose metadata says HasArg: a pool index, a local slot, an
// element count, or a jump distance.
type Instruction struct {
	Op  Opcode
	Arg int
}

func (ins Instruction) String() string {
	if ins.Op.HasArg() {
		return fmt.Sprintf("%s %d", ins.Op, ins.Arg)
	}
	return ins.Op.String()
}

// CodeUnit is the immutable compiled artifact for one script or one
// function body: an instruction sequence plus its pools. Pools are never
// shared across function boundaries; every nested function gets its own.
//
// A CodeUnit is itself a Value so it can sit in a constant pool and be
// consumed by MAKE_FUNCTION.
type CodeUnit struct {
	Name string

	Instructions []Instruction

	// Constants is deduplicated by strict value identity (kind + content),
	// so 1, 1.0, and True occupy distinct slots even though they compare
	// equal under promotion.
	Constants []Value

	// Names is the deduplicated pool of free-standing names, used for
	// global loads/stores, attribute access, and intrinsic identity.
	Names []string

	// Params lists the positional parameter names; local slots are bound
	// to them at call time.
	Params []string

	// FreeNames lists enclosing-scope locals this unit reads; their values
	// are captured into closure cells when the function is made.
	FreeNames []string

	constantKeys map[string]int
	nameIndex    map[string]int
}

// NewCodeUnit creates an empty code unit with the given diagnostic name
// and parameter list.
func NewCodeUnit(name string, params []string) *CodeUnit {
	return &CodeUnit{
		Name:         name,
		Params:       append([]string(nil), params...),
		constantKeys: make(map[string]int),
		nameIndex:    make(map[string]int),
	}
}

// AddConstant interns a constant and returns its pool index. An index,
// once issued, is never reused for a different logical constant.
func (u *CodeUnit) AddConstant(v Value) int {
	key := constantKey(v)
	if idx, ok := u.constantKeys[key]; ok {
		return idx
	}
	idx := len(u.Constants)
	u.Constants = append(u.Constants, v)
	u.constantKeys[key] = idx
	return idx
}

// AddName interns a name and returns its pool index.
func (u *CodeUnit) AddName(name string) int {
	if idx, ok := u.nameIndex[name]; ok {
		return idx
	}
	idx := len(u.Names)
	u.Names = append(u.Names, name)
	u.nameIndex[name] = idx
	return idx
}

// ParamSlot returns the local slot for a parameter name.
func (u *CodeUnit) ParamSlot(name string) (int, bool) {
	for i, p := range u.Params {
		if p == name {
			return i, true
		}
	}
	return 0, false
}

// RebuildIndexes restores the intern maps after deserialization.
func (u *CodeUnit) RebuildIndexes() {
	u.constantKeys = make(map[string]int, len(u.Constants))
	for i, c := range u.Constants {
		u.constantKeys[constantKey(c)] = i
	}
	u.nameIndex = make(map[string]int, len(u.Names))
	for i, n := range u.Names {
		u.nameIndex[n] = i
	}
}

// constantKey builds the strict-identity intern key for a constant.
// Code units and classes are interned by pointer; they are unique anyway.
func constantKey(v Value) string {
	switch v := v.(type) {
	case *CodeUnit:
		return fmt.Sprintf("code:%p", v)
	case *Class:
		return fmt.Sprintf("class:%p", v)
	default:
		return fmt.Sprintf("%d:%s", v.Kind(), v.Repr())
	}
}

func (u *CodeUnit) Kind() ValueKind { return KindCode }
func (u *CodeUnit) Str() string     { return fmt.Sprintf("<code unit '%s'>", u.Name) }
func (u *CodeUnit) Repr() string    { return u.Str() }
func (u *CodeUnit) Truthy() bool    { return true }
