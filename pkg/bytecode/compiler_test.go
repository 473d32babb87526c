package bytecode

import (
	"testing"

	"github.com/chazu/slither/pkg/parser"
)

func compileSrc(t *testing.T, src string) *CodeUnit {
	t.Helper()
	nodes, err := parser.Parse(src)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	unit, err := Compile(nodes, "<test>")
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	return unit
}

func assertOps(t *testing.T, unit *CodeUnit, want []Opcode) {
	t.Helper()
	if len(unit.Instructions) != len(want) {
		t.Fatalf("got %d instructions, want %d:\n%s", len(unit.Instructions), len(want), Disassemble(unit))
	}
	for i, ins := range unit.Instructions {
		if ins.Op != want[i] {
			t.Errorf("instruction %d: got %s, want %s\n%s", i, ins.Op, want[i], Disassemble(unit))
		}
	}
}

// assertJumps checks encoded distances by the jump invariant: an
// instruction at index i with distance d resumes at i+1+d forward or
// i+1-d backward.
func assertJumpTargets(t *testing.T, unit *CodeUnit, want map[int]int) {
	t.Helper()
	for pos, target := range want {
		ins := unit.Instructions[pos]
		if !ins.Op.IsJump() {
			t.Errorf("instruction %d is %s, not a jump", pos, ins.Op)
			continue
		}
		got := pos + 1 + ins.Arg
		if ins.Op == OpJumpBackward {
			got = pos + 1 - ins.Arg
		}
		if got != target {
			t.Errorf("jump at %d: lands at %d, want %d\n%s", pos, got, target, Disassemble(unit))
		}
	}
}

func TestCompileIfIntrinsicGolden(t *testing.T) {
	unit := compileSrc(t, "x = 2\nif x:\n\tprint(x)\n")
	assertOps(t, unit, []Opcode{
		OpLoadConst,     // 2
		OpStoreName,     // x
		OpLoadName,      // x
		OpJumpIfFalse,   // skip the body
		OpPushNull,      // intrinsic argument sentinel
		OpLoadName,      // x
		OpCallIntrinsic, // print
	})
	if unit.Instructions[3].Arg != 3 {
		t.Errorf("conditional jump distance = %d, want 3", unit.Instructions[3].Arg)
	}
	assertJumpTargets(t, unit, map[int]int{3: 7})
}

func TestCompileWhileGolden(t *testing.T) {
	unit := compileSrc(t, "x = 0\nwhile x < 3:\n\tprint(x)\n\tx += 1\n")
	assertOps(t, unit, []Opcode{
		OpLoadConst,     // 0:  0
		OpStoreName,     // 1:  x
		OpLoadName,      // 2:  x       <- loop condition start
		OpLoadConst,     // 3:  3
		OpLess,          // 4
		OpJumpIfFalse,   // 5:  exit
		OpPushNull,      // 6
		OpLoadName,      // 7:  x
		OpCallIntrinsic, // 8:  print
		OpLoadName,      // 9:  x
		OpLoadConst,     // 10: 1
		OpAdd,           // 11
		OpStoreName,     // 12: x
		OpJumpBackward,  // 13: back to the condition
		OpPushNone,      // 14: loop expression value
	})
	assertJumpTargets(t, unit, map[int]int{
		5:  14, // exit lands on the PUSH_NONE after the loop
		13: 2,  // backward jump lands exactly on the condition
	})
}

func TestCompileForGolden(t *testing.T) {
	unit := compileSrc(t, "for x in [1, 2]:\n\tprint(x)\n")
	assertOps(t, unit, []Opcode{
		OpLoadConst,     // 0: 1
		OpLoadConst,     // 1: 2
		OpBuildList,     // 2
		OpGetIter,       // 3
		OpForIter,       // 4: iterate or exit
		OpStoreName,     // 5: x
		OpPushNull,      // 6
		OpLoadName,      // 7: x
		OpCallIntrinsic, // 8: print
		OpJumpBackward,  // 9: back to FOR_ITER
	})
	assertJumpTargets(t, unit, map[int]int{
		4: 10, // exhausted: first instruction after the backward jump
		9: 4,
	})
}

func TestCompileIfElifElseJumps(t *testing.T) {
	unit := compileSrc(t, "if a:\n\tx = 1\nelif b:\n\tx = 2\nelse:\n\tx = 3\n")
	assertOps(t, unit, []Opcode{
		OpLoadName,    // 0: a
		OpJumpIfFalse, // 1: to elif condition
		OpLoadConst,   // 2: 1
		OpStoreName,   // 3: x
		OpJumpForward, // 4: past the whole chain
		OpLoadName,    // 5: b
		OpJumpIfFalse, // 6: to else body
		OpLoadConst,   // 7: 2
		OpStoreName,   // 8: x
		OpJumpForward, // 9: past the whole chain
		OpLoadConst,   // 10: 3
		OpStoreName,   // 11: x
	})
	assertJumpTargets(t, unit, map[int]int{
		1: 5,  // false: fall to the elif condition
		4: 12, // taken arm skips the rest of the chain
		6: 10, // false: fall to the else body
		9: 12,
	})
}

func TestCompileCompoundAssignLoadsFirst(t *testing.T) {
	unit := compileSrc(t, "x += 1\n")
	assertOps(t, unit, []Opcode{OpLoadName, OpLoadConst, OpAdd, OpStoreName})
}

func TestCompileFunctionBodyIndependentPools(t *testing.T) {
	unit := compileSrc(t, "def add(a, b):\n\treturn a + b\nresult = add(5, 3)\n")

	var fn *CodeUnit
	for _, c := range unit.Constants {
		if nested, ok := c.(*CodeUnit); ok {
			fn = nested
		}
	}
	if fn == nil {
		t.Fatalf("no nested code unit in constant pool:\n%s", Disassemble(unit))
	}
	if fn.Name != "add" {
		t.Errorf("nested unit name = %q, want add", fn.Name)
	}
	if len(fn.Params) != 2 || fn.Params[0] != "a" || fn.Params[1] != "b" {
		t.Errorf("params = %v, want [a b]", fn.Params)
	}

	// Parameters resolve to fast slots, and every body ends with the
	// implicit "push None; return".
	assertOps(t, fn, []Opcode{
		OpLoadFast, OpLoadFast, OpAdd, OpReturn,
		OpPushNone, OpReturn,
	})

	// The outer unit's pools do not leak into the function's.
	if len(fn.Names) != 0 {
		t.Errorf("function name pool = %v, want empty", fn.Names)
	}
	for _, c := range fn.Constants {
		if _, ok := c.(*CodeUnit); ok {
			t.Error("function constant pool contains a nested unit it should not")
		}
	}
}

func TestConstantPoolDeduplication(t *testing.T) {
	unit := compileSrc(t, "a = 7\nb = 7\nc = 7\n")
	count := 0
	for _, c := range unit.Constants {
		if i, ok := c.(Int); ok && i.Big.Int64() == 7 {
			count++
		}
	}
	if count != 1 {
		t.Errorf("constant 7 pooled %d times, want 1", count)
	}
}

func TestConstantPoolStrictIdentity(t *testing.T) {
	// 1, 1.0, and True compare equal under promotion but must keep
	// distinct pool slots.
	unit := compileSrc(t, "a = 1\nb = 1.0\nc = True\n")
	if len(unit.Constants) != 3 {
		t.Errorf("got %d constants, want 3: %v", len(unit.Constants), unit.Constants)
	}
}

func TestNamePoolDeduplication(t *testing.T) {
	unit := compileSrc(t, "x = 1\ny = x + x\nx = y\n")
	seen := make(map[string]int)
	for _, n := range unit.Names {
		seen[n]++
	}
	for name, n := range seen {
		if n != 1 {
			t.Errorf("name %q pooled %d times, want 1", name, n)
		}
	}
}

func TestClosureFreeNames(t *testing.T) {
	src := "def outer(x):\n\tdef inner():\n\t\treturn x\n\treturn inner\n"
	unit := compileSrc(t, src)
	var outer *CodeUnit
	for _, c := range unit.Constants {
		if nested, ok := c.(*CodeUnit); ok {
			outer = nested
		}
	}
	if outer == nil {
		t.Fatal("outer unit not found")
	}
	var inner *CodeUnit
	for _, c := range outer.Constants {
		if nested, ok := c.(*CodeUnit); ok {
			inner = nested
		}
	}
	if inner == nil {
		t.Fatal("inner unit not found")
	}
	if len(inner.FreeNames) != 1 || inner.FreeNames[0] != "x" {
		t.Errorf("inner free names = %v, want [x]", inner.FreeNames)
	}
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		kind ErrorKind
	}{
		{"assign to literal", "3 = x\n", SyntaxError},
		{"assign to call", "f() = 1\n", SyntaxError},
		{"return at top level", "return 1\n", SyntaxError},
		{"non-literal class field", "class C:\n\tx = f()\n", NotImplementedError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nodes, err := parser.Parse(tt.src)
			if err != nil {
				t.Fatalf("parse error: %v", err)
			}
			_, err = Compile(nodes, "<test>")
			if err == nil {
				t.Fatal("compile succeeded, want error")
			}
			kind, ok := KindOf(err)
			if !ok || kind != tt.kind {
				t.Errorf("error = %v, want kind %s", err, tt.kind)
			}
		})
	}
}

func TestDisassembleFormat(t *testing.T) {
	unit := compileSrc(t, "x = 2\nif x:\n\tprint(x)\n")
	out := Disassemble(unit)
	wantLines := []string{
		"(0) \tLOAD_CONST 0 (2)",
		"(1) \tSTORE_NAME 0 (x)",
		"(3) \tJUMP_IF_FALSE 3 (-> 7)",
		"(6) \tCALL_INTRINSIC 0 (print)",
	}
	for _, line := range wantLines {
		if !containsLine(out, line) {
			t.Errorf("disassembly missing line %q:\n%s", line, out)
		}
	}
}

func containsLine(out, line string) bool {
	for len(out) > 0 {
		idx := len(out)
		for i := 0; i < len(out); i++ {
			if out[i] == '\n' {
				idx = i
				break
			}
		}
		if out[:idx] == line {
			return true
		}
		if idx == len(out) {
			break
		}
		out = out[idx+1:]
	}
	return false
}

func TestOpcodeMetadataComplete(t *testing.T) {
	for _, op := range AllOpcodes() {
		info := GetOpcodeInfo(op)
		if info.Name == "" {
			t.Errorf("opcode 0x%02X has no name", byte(op))
		}
	}
	if got := GetOpcodeInfo(Opcode(0xEE)).Name; got != "UNKNOWN(0xEE)" {
		t.Errorf("unknown opcode name = %q", got)
	}
}
