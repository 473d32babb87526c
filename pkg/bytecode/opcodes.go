package bytecode

import "fmt"

// Opcode identifies a VM instruction. Instructions are word-coded: every
// instruction occupies one slot in a code unit's instruction sequence, and
// jump distances count instructions, not bytes.
//
// Opcodes are organized into ranges by category for easy identification.
type Opcode byte

const (
	// ========================================================================
	// Stack manipulation (0x00-0x0F)
	// ========================================================================

	OpNop      Opcode = 0x00 // No operation
	OpPop      Opcode = 0x01 // Pop and discard top of stack
	OpPushNull Opcode = 0x02 // Push the Null sentinel (argument-scan marker)
	OpPushNone Opcode = 0x03 // Push None

	// ========================================================================
	// Loads and stores (0x10-0x1F)
	// ========================================================================

	OpLoadConst Opcode = 0x10 // Push constant: OpLoadConst <pool index>
	OpLoadName  Opcode = 0x11 // Push named binding: OpLoadName <name index>
	OpStoreName Opcode = 0x12 // Pop into named binding: OpStoreName <name index>
	OpLoadFast  Opcode = 0x13 // Push local slot: OpLoadFast <slot>
	OpStoreFast Opcode = 0x14 // Pop into local slot: OpStoreFast <slot>
	OpLoadAttr  Opcode = 0x15 // Pop object, push member: OpLoadAttr <name index>

	// ========================================================================
	// Arithmetic (0x20-0x2F)
	// ========================================================================

	OpAdd    Opcode = 0x20 // Pop b, pop a, push a + b
	OpSub    Opcode = 0x21 // Pop b, pop a, push a - b
	OpMul    Opcode = 0x22 // Pop b, pop a, push a * b
	OpDiv    Opcode = 0x23 // Pop b, pop a, push a / b (always Float)
	OpNegate Opcode = 0x24 // Negate top of stack

	// ========================================================================
	// Comparison (0x30-0x3F) - always push Bool
	// ========================================================================

	OpEqual     Opcode = 0x30
	OpNotEqual  Opcode = 0x31
	OpLess      Opcode = 0x32
	OpLessEq    Opcode = 0x33
	OpGreater   Opcode = 0x34
	OpGreaterEq Opcode = 0x35

	// ========================================================================
	// Control flow (0x40-0x4F) - a jump at index i with distance d resumes
	// at i+1+d (forward) or i+1-d (backward)
	// ========================================================================

	OpJumpIfFalse  Opcode = 0x40 // Pop condition, jump forward d if falsy
	OpJumpForward  Opcode = 0x41 // Jump forward d
	OpJumpBackward Opcode = 0x42 // Jump backward d

	// ========================================================================
	// Iteration (0x50-0x5F)
	// ========================================================================

	OpGetIter Opcode = 0x50 // Pop container, push snapshot iterator
	OpForIter Opcode = 0x51 // Advance iterator at TOS: push item, or pop it and jump forward d

	// ========================================================================
	// Collection builds (0x60-0x6F)
	// ========================================================================

	OpBuildList  Opcode = 0x60 // Pop n elements, push List
	OpBuildTuple Opcode = 0x61 // Pop n elements, push Tuple
	OpBuildSet   Opcode = 0x62 // Pop n elements, push Set (deduplicated)
	OpBuildMap   Opcode = 0x63 // Pop n key/value pairs, push Dict

	// ========================================================================
	// Calls and functions (0x70-0x7F)
	// ========================================================================

	OpCall          Opcode = 0x70 // Pop callee, pop n args, invoke
	OpCallIntrinsic Opcode = 0x71 // Invoke intrinsic <name index>; args scanned back to the Null sentinel
	OpReturn        Opcode = 0x72 // Pop result, pop frame, push result in caller
	OpMakeFunction  Opcode = 0x73 // Pop code unit constant, push UserFunction

	// ========================================================================
	// Imports (0x80-0x8F)
	// ========================================================================

	OpImportName Opcode = 0x80 // Push module <name index> from the registry
	OpImportFrom Opcode = 0x81 // Peek module at TOS, push member <name index>
)

// Operand interpretation, used by the disassembler.
type operandKind int

const (
	operandNone operandKind = iota
	operandConst
	operandName
	operandSlot
	operandCount
	operandFwd
	operandBack
)

// OpcodeInfo provides metadata about each opcode for debugging and
// validation.
type OpcodeInfo struct {
	Name    string
	HasArg  bool
	Operand operandKind
}

var opcodeInfoTable = map[Opcode]OpcodeInfo{
	OpNop:      {"NOP", false, operandNone},
	OpPop:      {"POP", false, operandNone},
	OpPushNull: {"PUSH_NULL", false, operandNone},
	OpPushNone: {"PUSH_NONE", false, operandNone},

	OpLoadConst: {"LOAD_CONST", true, operandConst},
	OpLoadName:  {"LOAD_NAME", true, operandName},
	OpStoreName: {"STORE_NAME", true, operandName},
	OpLoadFast:  {"LOAD_FAST", true, operandSlot},
	OpStoreFast: {"STORE_FAST", true, operandSlot},
	OpLoadAttr:  {"LOAD_ATTR", true, operandName},

	OpAdd:    {"ADD", false, operandNone},
	OpSub:    {"SUB", false, operandNone},
	OpMul:    {"MUL", false, operandNone},
	OpDiv:    {"DIV", false, operandNone},
	OpNegate: {"NEGATE", false, operandNone},

	OpEqual:     {"EQUAL", false, operandNone},
	OpNotEqual:  {"NOT_EQUAL", false, operandNone},
	OpLess:      {"LESS", false, operandNone},
	OpLessEq:    {"LESS_EQ", false, operandNone},
	OpGreater:   {"GREATER", false, operandNone},
	OpGreaterEq: {"GREATER_EQ", false, operandNone},

	OpJumpIfFalse:  {"JUMP_IF_FALSE", true, operandFwd},
	OpJumpForward:  {"JUMP_FORWARD", true, operandFwd},
	OpJumpBackward: {"JUMP_BACKWARD", true, operandBack},

	OpGetIter: {"GET_ITER", false, operandNone},
	OpForIter: {"FOR_ITER", true, operandFwd},

	OpBuildList:  {"BUILD_LIST", true, operandCount},
	OpBuildTuple: {"BUILD_TUPLE", true, operandCount},
	OpBuildSet:   {"BUILD_SET", true, operandCount},
	OpBuildMap:   {"BUILD_MAP", true, operandCount},

	OpCall:          {"CALL", true, operandCount},
	OpCallIntrinsic: {"CALL_INTRINSIC", true, operandName},
	OpReturn:        {"RETURN", false, operandNone},
	OpMakeFunction:  {"MAKE_FUNCTION", false, operandNone},

	OpImportName: {"IMPORT_NAME", true, operandName},
	OpImportFrom: {"IMPORT_FROM", true, operandName},
}

// GetOpcodeInfo returns metadata for an opcode. Unknown opcodes get a
// placeholder name rather than an error so the disassembler stays total.
func GetOpcodeInfo(op Opcode) OpcodeInfo {
	if info, ok := opcodeInfoTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN(0x%02X)", byte(op))}
}

// String returns the human-readable name of an opcode.
func (op Opcode) String() string {
	return GetOpcodeInfo(op).Name
}

// HasArg reports whether the opcode carries an operand.
func (op Opcode) HasArg() bool {
	return GetOpcodeInfo(op).HasArg
}

// IsJump reports whether the opcode moves the instruction pointer by a
// distance operand.
func (op Opcode) IsJump() bool {
	switch op {
	case OpJumpIfFalse, OpJumpForward, OpJumpBackward, OpForIter:
		return true
	}
	return false
}

// AllOpcodes returns every defined opcode. Useful for testing that all
// opcodes have metadata.
func AllOpcodes() []Opcode {
	opcodes := make([]Opcode, 0, len(opcodeInfoTable))
	for op := range opcodeInfoTable {
		opcodes = append(opcodes, op)
	}
	return opcodes
}
