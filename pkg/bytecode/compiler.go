package bytecode

import (
	"github.com/chazu/slither/pkg/ast"
	"github.com/chazu/slither/pkg/lexer"
)

// Compiler translates an AST into a code unit in a single pass, using
// placeholder jumps that are back-patched once body lengths are known.
// Each function body is compiled by a fresh Compiler with its own unit,
// so pools are never shared across function boundaries.
type Compiler struct {
	unit *CodeUnit

	// enclosing is the compiler of the surrounding function body, nil at
	// top level. Used to resolve closure captures.
	enclosing *Compiler

	// function marks a function-body context: parameter names resolve to
	// fast slots and return statements are legal.
	function bool
}

var binaryOpcodes = map[lexer.TokenType]Opcode{
	lexer.PLUS:  OpAdd,
	lexer.MINUS: OpSub,
	lexer.STAR:  OpMul,
	lexer.SLASH: OpDiv,
	lexer.EQ:    OpEqual,
	lexer.NEQ:   OpNotEqual,
	lexer.LT:    OpLess,
	lexer.LTE:   OpLessEq,
	lexer.GT:    OpGreater,
	lexer.GTE:   OpGreaterEq,
}

var compoundOpcodes = map[lexer.TokenType]Opcode{
	lexer.PLUSEQ:  OpAdd,
	lexer.MINUSEQ: OpSub,
	lexer.STAREQ:  OpMul,
	lexer.SLASHEQ: OpDiv,
}

// Compile translates top-level statements into a code unit named for
// diagnostics. It is a pure function of its input: all faults come back
// as *Error values, never as process aborts.
func Compile(nodes []ast.Node, name string) (*CodeUnit, error) {
	c := &Compiler{unit: NewCodeUnit(name, nil)}
	for _, node := range nodes {
		if cerr := c.compileStatement(node); cerr != nil {
			return nil, cerr
		}
	}
	return c.unit, nil
}

// compileFunction compiles a function body into its own independent unit.
// Every body ends with an implicit "push None; return" so an empty
// fall-through still returns a value.
func (c *Compiler) compileFunction(name string, params []string, body []ast.Node) (*CodeUnit, *Error) {
	sub := &Compiler{
		unit:      NewCodeUnit(name, params),
		enclosing: c,
		function:  true,
	}
	for _, node := range body {
		if cerr := sub.compileStatement(node); cerr != nil {
			return nil, cerr
		}
	}
	sub.emit(OpPushNone)
	sub.emit(OpReturn)
	return sub.unit, nil
}

func (c *Compiler) compileStatement(node ast.Node) *Error {
	switch node := node.(type) {
	case *ast.Assign:
		return c.compileAssign(node)
	case *ast.If:
		return c.compileIf(node)
	case *ast.While:
		return c.compileWhile(node)
	case *ast.For:
		return c.compileFor(node)
	case *ast.FuncDef:
		return c.compileFuncDef(node)
	case *ast.ClassDef:
		return c.compileClassDef(node)
	case *ast.Return:
		return c.compileReturn(node)
	case *ast.Pass:
		return nil
	case *ast.Import:
		c.emitArg(OpImportName, c.unit.AddName(node.Module))
		c.emitArg(OpStoreName, c.unit.AddName(node.Module))
		return nil
	case *ast.FromImport:
		c.emitArg(OpImportName, c.unit.AddName(node.Module))
		for _, name := range node.Names {
			c.emitArg(OpImportFrom, c.unit.AddName(name))
			c.emitArg(OpStoreName, c.unit.AddName(name))
		}
		c.emit(OpPop)
		return nil
	default:
		return c.compileExpr(node)
	}
}

// compileAssign lowers plain and compound assignment. The left-hand side
// must be a bare identifier.
func (c *Compiler) compileAssign(node *ast.Assign) *Error {
	target, ok := node.Target.(*ast.Ident)
	if !ok {
		return Errorf(SyntaxError, "line %d: cannot assign to this expression", node.Line)
	}
	if op, compound := compoundOpcodes[node.Op]; compound {
		c.compileLoad(target.Name)
		if cerr := c.compileExpr(node.Value); cerr != nil {
			return cerr
		}
		c.emit(op)
	} else {
		if cerr := c.compileExpr(node.Value); cerr != nil {
			return cerr
		}
	}
	c.compileStore(target.Name)
	return nil
}

// compileIf lowers an if/elif/else chain. Every non-final arm ends with a
// forward jump past the whole chain; those placeholders are patched in a
// final pass once every arm is compiled.
func (c *Compiler) compileIf(node *ast.If) *Error {
	type arm struct {
		cond ast.Node
		body []ast.Node
	}
	arms := []arm{{node.Cond, node.Body}}
	for _, e := range node.Elifs {
		arms = append(arms, arm{e.Cond, e.Body})
	}

	var endJumps []int
	for i, a := range arms {
		if cerr := c.compileExpr(a.cond); cerr != nil {
			return cerr
		}
		falseJump := c.emitJump(OpJumpIfFalse)
		for _, stmt := range a.body {
			if cerr := c.compileStatement(stmt); cerr != nil {
				return cerr
			}
		}
		last := i == len(arms)-1 && node.Else == nil
		if !last {
			endJumps = append(endJumps, c.emitJump(OpJumpForward))
		}
		c.patchJump(falseJump)
	}
	for _, stmt := range node.Else {
		if cerr := c.compileStatement(stmt); cerr != nil {
			return cerr
		}
	}
	for _, pos := range endJumps {
		c.patchJump(pos)
	}
	return nil
}

// compileWhile lowers a while loop. The backward jump returns control
// exactly to the recorded condition index; the loop's expression value
// is None.
func (c *Compiler) compileWhile(node *ast.While) *Error {
	loopStart := c.currentIndex()
	if cerr := c.compileExpr(node.Cond); cerr != nil {
		return cerr
	}
	exitJump := c.emitJump(OpJumpIfFalse)
	for _, stmt := range node.Body {
		if cerr := c.compileStatement(stmt); cerr != nil {
			return cerr
		}
	}
	c.emitLoop(loopStart)
	c.patchJump(exitJump)
	c.emit(OpPushNone)
	return nil
}

// compileFor lowers iteration: obtain an iterator, then FOR_ITER either
// pushes the next item or jumps to the first instruction after the
// backward jump when exhausted.
func (c *Compiler) compileFor(node *ast.For) *Error {
	if cerr := c.compileExpr(node.Iter); cerr != nil {
		return cerr
	}
	c.emit(OpGetIter)
	loopStart := c.currentIndex()
	forIter := c.emitJump(OpForIter)
	c.compileStore(node.Var)
	for _, stmt := range node.Body {
		if cerr := c.compileStatement(stmt); cerr != nil {
			return cerr
		}
	}
	c.emitLoop(loopStart)
	c.patchJump(forIter)
	return nil
}

func (c *Compiler) compileFuncDef(node *ast.FuncDef) *Error {
	unit, cerr := c.compileFunction(node.Name, node.Params, node.Body)
	if cerr != nil {
		return cerr
	}
	c.emitArg(OpLoadConst, c.unit.AddConstant(unit))
	c.emit(OpMakeFunction)
	c.compileStore(node.Name)
	return nil
}

// compileClassDef collects field defaults and method code into a Class
// constant. Field defaults must be literals; methods compile exactly like
// free functions.
func (c *Compiler) compileClassDef(node *ast.ClassDef) *Error {
	class := &Class{
		Name:          node.Name,
		FieldDefaults: make(map[string]Value),
		Methods:       make(map[string]*CodeUnit),
	}
	for _, stmt := range node.Body {
		switch stmt := stmt.(type) {
		case *ast.Assign:
			target, ok := stmt.Target.(*ast.Ident)
			if !ok || stmt.Op != lexer.ASSIGN {
				return Errorf(SyntaxError, "class '%s': field definitions must be plain assignments", node.Name)
			}
			def, ok := literalValue(stmt.Value)
			if !ok {
				return Errorf(NotImplementedError,
					"class '%s': field '%s' default must be a literal", node.Name, target.Name)
			}
			if _, exists := class.FieldDefaults[target.Name]; !exists {
				class.FieldNames = append(class.FieldNames, target.Name)
			}
			class.FieldDefaults[target.Name] = def
		case *ast.FuncDef:
			unit, cerr := c.compileFunction(node.Name+"."+stmt.Name, stmt.Params, stmt.Body)
			if cerr != nil {
				return cerr
			}
			class.Methods[stmt.Name] = unit
		case *ast.Pass:
			// empty class body
		default:
			return Errorf(NotImplementedError, "class '%s': unsupported statement in class body", node.Name)
		}
	}
	c.emitArg(OpLoadConst, c.unit.AddConstant(class))
	c.compileStore(node.Name)
	return nil
}

func (c *Compiler) compileReturn(node *ast.Return) *Error {
	if !c.function {
		return Errorf(SyntaxError, "'return' outside function")
	}
	if node.Value == nil {
		c.emit(OpPushNone)
	} else if cerr := c.compileExpr(node.Value); cerr != nil {
		return cerr
	}
	c.emit(OpReturn)
	return nil
}

func (c *Compiler) compileExpr(node ast.Node) *Error {
	switch node := node.(type) {
	case *ast.IntLit:
		c.emitArg(OpLoadConst, c.unit.AddConstant(Int{Big: node.Value}))
	case *ast.FloatLit:
		c.emitArg(OpLoadConst, c.unit.AddConstant(Float(node.Value)))
	case *ast.StrLit:
		c.emitArg(OpLoadConst, c.unit.AddConstant(Str(node.Value)))
	case *ast.BoolLit:
		c.emitArg(OpLoadConst, c.unit.AddConstant(Bool(node.Value)))
	case *ast.NoneLit:
		c.emit(OpPushNone)
	case *ast.Ident:
		c.compileLoad(node.Name)
	case *ast.Unary:
		if cerr := c.compileExpr(node.Operand); cerr != nil {
			return cerr
		}
		c.emit(OpNegate)
	case *ast.Binary:
		op, ok := binaryOpcodes[node.Op]
		if !ok {
			return Errorf(NotImplementedError, "binary operator %s", node.Op)
		}
		if cerr := c.compileExpr(node.Left); cerr != nil {
			return cerr
		}
		if cerr := c.compileExpr(node.Right); cerr != nil {
			return cerr
		}
		c.emit(op)
	case *ast.Call:
		return c.compileCall(node)
	case *ast.Attr:
		if cerr := c.compileExpr(node.Target); cerr != nil {
			return cerr
		}
		c.emitArg(OpLoadAttr, c.unit.AddName(node.Name))
	case *ast.ListLit:
		if cerr := c.compileElems(node.Elems); cerr != nil {
			return cerr
		}
		c.emitArg(OpBuildList, len(node.Elems))
	case *ast.TupleLit:
		if cerr := c.compileElems(node.Elems); cerr != nil {
			return cerr
		}
		c.emitArg(OpBuildTuple, len(node.Elems))
	case *ast.SetLit:
		if cerr := c.compileElems(node.Elems); cerr != nil {
			return cerr
		}
		c.emitArg(OpBuildSet, len(node.Elems))
	case *ast.DictLit:
		for i := range node.Keys {
			if cerr := c.compileExpr(node.Keys[i]); cerr != nil {
				return cerr
			}
			if cerr := c.compileExpr(node.Values[i]); cerr != nil {
				return cerr
			}
		}
		c.emitArg(OpBuildMap, len(node.Keys))
	case *ast.Assign:
		return Errorf(SyntaxError, "assignment is not an expression")
	default:
		return Errorf(NotImplementedError, "cannot compile %T", node)
	}
	return nil
}

// compileCall lowers a call. Intrinsic callees compile to the dedicated
// intrinsic-call instruction with a Null sentinel marking the argument
// scan boundary; everything else pushes arguments left-to-right, then the
// callee, then a general call carrying the argument count.
func (c *Compiler) compileCall(node *ast.Call) *Error {
	if id, ok := node.Callee.(*ast.Ident); ok && IsIntrinsic(id.Name) {
		c.emit(OpPushNull)
		for _, arg := range node.Args {
			if cerr := c.compileExpr(arg); cerr != nil {
				return cerr
			}
		}
		c.emitArg(OpCallIntrinsic, c.unit.AddName(id.Name))
		return nil
	}
	for _, arg := range node.Args {
		if cerr := c.compileExpr(arg); cerr != nil {
			return cerr
		}
	}
	if cerr := c.compileExpr(node.Callee); cerr != nil {
		return cerr
	}
	c.emitArg(OpCall, len(node.Args))
	return nil
}

func (c *Compiler) compileElems(elems []ast.Node) *Error {
	for _, elem := range elems {
		if cerr := c.compileExpr(elem); cerr != nil {
			return cerr
		}
	}
	return nil
}

// compileLoad resolves an identifier: parameters load from fast slots in
// function context; everything else goes through the name pool. A name
// that resolves to an enclosing function's parameter is recorded as a
// free name so MAKE_FUNCTION captures it into a closure cell.
func (c *Compiler) compileLoad(name string) {
	if c.function {
		if slot, ok := c.unit.ParamSlot(name); ok {
			c.emitArg(OpLoadFast, slot)
			return
		}
		if c.resolvesInEnclosing(name) {
			c.recordFreeName(name)
		}
	}
	c.emitArg(OpLoadName, c.unit.AddName(name))
}

func (c *Compiler) compileStore(name string) {
	if c.function {
		if slot, ok := c.unit.ParamSlot(name); ok {
			c.emitArg(OpStoreFast, slot)
			return
		}
	}
	c.emitArg(OpStoreName, c.unit.AddName(name))
}

func (c *Compiler) resolvesInEnclosing(name string) bool {
	for enc := c.enclosing; enc != nil; enc = enc.enclosing {
		if !enc.function {
			return false
		}
		if _, ok := enc.unit.ParamSlot(name); ok {
			return true
		}
	}
	return false
}

func (c *Compiler) recordFreeName(name string) {
	for _, existing := range c.unit.FreeNames {
		if existing == name {
			return
		}
	}
	c.unit.FreeNames = append(c.unit.FreeNames, name)
}

// literalValue constant-folds a literal node, used for class field
// defaults.
func literalValue(node ast.Node) (Value, bool) {
	switch node := node.(type) {
	case *ast.IntLit:
		return Int{Big: node.Value}, true
	case *ast.FloatLit:
		return Float(node.Value), true
	case *ast.StrLit:
		return Str(node.Value), true
	case *ast.BoolLit:
		return Bool(node.Value), true
	case *ast.NoneLit:
		return None{}, true
	default:
		return nil, false
	}
}

// ---------------------------------------------------------------------------
// Emission helpers
// ---------------------------------------------------------------------------

func (c *Compiler) emit(op Opcode) int {
	c.unit.Instructions = append(c.unit.Instructions, Instruction{Op: op})
	return len(c.unit.Instructions) - 1
}

func (c *Compiler) emitArg(op Opcode, arg int) int {
	c.unit.Instructions = append(c.unit.Instructions, Instruction{Op: op, Arg: arg})
	return len(c.unit.Instructions) - 1
}

func (c *Compiler) currentIndex() int {
	return len(c.unit.Instructions)
}

// emitJump appends a forward jump with a placeholder distance and returns
// its index for later patching.
func (c *Compiler) emitJump(op Opcode) int {
	return c.emitArg(op, 0)
}

// patchJump sets the distance of the placeholder at pos so execution
// resumes at the current end of the instruction stream: a jump at index i
// with distance d lands at i+1+d.
func (c *Compiler) patchJump(pos int) {
	c.unit.Instructions[pos].Arg = len(c.unit.Instructions) - pos - 1
}

// emitLoop appends a backward jump returning control exactly to target:
// a backward jump at index i with distance d lands at i+1-d.
func (c *Compiler) emitLoop(target int) {
	pos := c.emitArg(OpJumpBackward, 0)
	c.unit.Instructions[pos].Arg = pos + 1 - target
}
