package bytecode

import (
	"fmt"
	"strings"
)

// Disassemble renders a code unit one instruction per line in the form
// "(index) \t opcode-and-operands", with pool operands resolved for
// readability and nested function units appended after the unit that
// owns them.
func Disassemble(unit *CodeUnit) string {
	var sb strings.Builder
	writeUnit(&sb, unit)
	for _, c := range unit.Constants {
		if nested, ok := c.(*CodeUnit); ok {
			fmt.Fprintf(&sb, "\n== %s ==\n", nested.Name)
			sb.WriteString(Disassemble(nested))
		}
	}
	return sb.String()
}

func writeUnit(sb *strings.Builder, unit *CodeUnit) {
	for i, ins := range unit.Instructions {
		fmt.Fprintf(sb, "%s\n", formatInstruction(unit, i, ins))
	}
}

// formatInstruction renders one instruction with its index. Jump operands
// show the resolved target index; pool operands show the pooled value.
func formatInstruction(unit *CodeUnit, idx int, ins Instruction) string {
	info := GetOpcodeInfo(ins.Op)
	if !info.HasArg {
		return fmt.Sprintf("(%d) \t%s", idx, info.Name)
	}
	switch info.Operand {
	case operandConst:
		detail := "?"
		if ins.Arg >= 0 && ins.Arg < len(unit.Constants) {
			detail = unit.Constants[ins.Arg].Repr()
		}
		return fmt.Sprintf("(%d) \t%s %d (%s)", idx, info.Name, ins.Arg, detail)
	case operandName:
		detail := "?"
		if ins.Arg >= 0 && ins.Arg < len(unit.Names) {
			detail = unit.Names[ins.Arg]
		}
		return fmt.Sprintf("(%d) \t%s %d (%s)", idx, info.Name, ins.Arg, detail)
	case operandSlot:
		detail := "?"
		if ins.Arg >= 0 && ins.Arg < len(unit.Params) {
			detail = unit.Params[ins.Arg]
		}
		return fmt.Sprintf("(%d) \t%s %d (%s)", idx, info.Name, ins.Arg, detail)
	case operandFwd:
		return fmt.Sprintf("(%d) \t%s %d (-> %d)", idx, info.Name, ins.Arg, idx+1+ins.Arg)
	case operandBack:
		return fmt.Sprintf("(%d) \t%s %d (-> %d)", idx, info.Name, ins.Arg, idx+1-ins.Arg)
	default:
		return fmt.Sprintf("(%d) \t%s %d", idx, info.Name, ins.Arg)
	}
}
