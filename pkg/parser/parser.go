// Package parser builds an AST from the lexer's token stream. Expressions
// use Pratt-style precedence climbing; statements dispatch on the leading
// keyword, with block bodies delimited by INDENT/DEDENT tokens.
package parser

import (
	"math/big"
	"strconv"

	"github.com/chazu/slither/pkg/ast"
	"github.com/chazu/slither/pkg/fault"
	"github.com/chazu/slither/pkg/lexer"
)

// Binding powers for infix operators. A left power below the minimum stops
// the climb; the right power passed to the recursive call decides
// associativity.
const (
	bpComparison = 5
	bpAdditive   = 10
	bpMultiply   = 20
	bpUnary      = 30
	bpDot        = 40
	bpCall       = 50
)

type infixPower struct {
	left, right int
}

var infixPowers = map[lexer.TokenType]infixPower{
	lexer.EQ:    {bpComparison, bpComparison + 1},
	lexer.NEQ:   {bpComparison, bpComparison + 1},
	lexer.LT:    {bpComparison, bpComparison + 1},
	lexer.LTE:   {bpComparison, bpComparison + 1},
	lexer.GT:    {bpComparison, bpComparison + 1},
	lexer.GTE:   {bpComparison, bpComparison + 1},
	lexer.PLUS:  {bpAdditive, bpAdditive + 1},
	lexer.MINUS: {bpAdditive, bpAdditive + 1},
	lexer.STAR:  {bpMultiply, bpMultiply + 1},
	lexer.SLASH: {bpMultiply, bpMultiply + 1},
}

// Parser consumes a token stream produced by the lexer.
type Parser struct {
	toks []lexer.Token
	pos  int
}

// New creates a parser over the given tokens. The stream must be
// EOF-terminated, as the lexer guarantees.
func New(toks []lexer.Token) *Parser {
	return &Parser{toks: toks}
}

// Parse tokenizes and parses source text in one step.
func Parse(src string) ([]ast.Node, error) {
	toks, err := lexer.New(src).Tokenize()
	if err != nil {
		return nil, err
	}
	return New(toks).ParseProgram()
}

// ParseProgram parses statements until EOF.
func (p *Parser) ParseProgram() ([]ast.Node, error) {
	var stmts []ast.Node
	for p.cur().Type != lexer.EOF {
		if p.cur().Type == lexer.NEWLINE {
			p.next()
			continue
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	return stmts, nil
}

func (p *Parser) parseStatement() (ast.Node, error) {
	switch p.cur().Type {
	case lexer.KwIf:
		return p.parseIf()
	case lexer.KwWhile:
		return p.parseWhile()
	case lexer.KwFor:
		return p.parseFor()
	case lexer.KwDef:
		return p.parseFuncDef()
	case lexer.KwClass:
		return p.parseClassDef()
	case lexer.KwReturn:
		return p.parseReturn()
	case lexer.KwPass:
		p.next()
		if err := p.endStatement(); err != nil {
			return nil, err
		}
		return &ast.Pass{}, nil
	case lexer.KwImport:
		return p.parseImport()
	case lexer.KwFrom:
		return p.parseFromImport()
	default:
		return p.parseExprStatement()
	}
}

// parseExprStatement parses an expression, promoting it to an assignment
// when followed by = or a compound form.
func (p *Parser) parseExprStatement() (ast.Node, error) {
	line := p.cur().Line
	expr, err := p.parseExpression(0)
	if err != nil {
		return nil, err
	}
	switch op := p.cur().Type; op {
	case lexer.ASSIGN, lexer.PLUSEQ, lexer.MINUSEQ, lexer.STAREQ, lexer.SLASHEQ:
		p.next()
		value, err := p.parseExpression(0)
		if err != nil {
			return nil, err
		}
		if err := p.endStatement(); err != nil {
			return nil, err
		}
		return &ast.Assign{Op: op, Target: expr, Value: value, Line: line}, nil
	}
	if err := p.endStatement(); err != nil {
		return nil, err
	}
	return expr, nil
}

func (p *Parser) parseIf() (ast.Node, error) {
	p.next() // if
	cond, err := p.parseExpression(0)
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	stmt := &ast.If{Cond: cond, Body: body}
	for p.cur().Type == lexer.KwElif {
		p.next()
		elifCond, err := p.parseExpression(0)
		if err != nil {
			return nil, err
		}
		elifBody, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		stmt.Elifs = append(stmt.Elifs, ast.ElifArm{Cond: elifCond, Body: elifBody})
	}
	if p.cur().Type == lexer.KwElse {
		p.next()
		elseBody, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		stmt.Else = elseBody
	}
	return stmt, nil
}

func (p *Parser) parseWhile() (ast.Node, error) {
	p.next() // while
	cond, err := p.parseExpression(0)
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.While{Cond: cond, Body: body}, nil
}

func (p *Parser) parseFor() (ast.Node, error) {
	p.next() // for
	name, err := p.expect(lexer.IDENT)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.KwIn); err != nil {
		return nil, err
	}
	iter, err := p.parseExpression(0)
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.For{Var: name.Literal, Iter: iter, Body: body}, nil
}

func (p *Parser) parseFuncDef() (ast.Node, error) {
	p.next() // def
	name, err := p.expect(lexer.IDENT)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.LPAREN); err != nil {
		return nil, err
	}
	var params []string
	for p.cur().Type != lexer.RPAREN {
		param, err := p.expect(lexer.IDENT)
		if err != nil {
			return nil, err
		}
		params = append(params, param.Literal)
		if p.cur().Type == lexer.COMMA {
			p.next()
		}
	}
	p.next() // )
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.FuncDef{Name: name.Literal, Params: params, Body: body}, nil
}

func (p *Parser) parseClassDef() (ast.Node, error) {
	p.next() // class
	name, err := p.expect(lexer.IDENT)
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.ClassDef{Name: name.Literal, Body: body}, nil
}

func (p *Parser) parseReturn() (ast.Node, error) {
	p.next() // return
	if p.cur().Type == lexer.NEWLINE || p.cur().Type == lexer.EOF || p.cur().Type == lexer.DEDENT {
		if err := p.endStatement(); err != nil {
			return nil, err
		}
		return &ast.Return{}, nil
	}
	value, err := p.parseExpression(0)
	if err != nil {
		return nil, err
	}
	if err := p.endStatement(); err != nil {
		return nil, err
	}
	return &ast.Return{Value: value}, nil
}

func (p *Parser) parseImport() (ast.Node, error) {
	p.next() // import
	name, err := p.expect(lexer.IDENT)
	if err != nil {
		return nil, err
	}
	if err := p.endStatement(); err != nil {
		return nil, err
	}
	return &ast.Import{Module: name.Literal}, nil
}

func (p *Parser) parseFromImport() (ast.Node, error) {
	p.next() // from
	module, err := p.expect(lexer.IDENT)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.KwImport); err != nil {
		return nil, err
	}
	var names []string
	for {
		name, err := p.expect(lexer.IDENT)
		if err != nil {
			return nil, err
		}
		names = append(names, name.Literal)
		if p.cur().Type != lexer.COMMA {
			break
		}
		p.next()
	}
	if err := p.endStatement(); err != nil {
		return nil, err
	}
	return &ast.FromImport{Module: module.Literal, Names: names}, nil
}

// parseBlock parses ": NEWLINE INDENT stmts DEDENT".
func (p *Parser) parseBlock() ([]ast.Node, error) {
	if _, err := p.expect(lexer.COLON); err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.NEWLINE); err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.INDENT); err != nil {
		return nil, err
	}
	var stmts []ast.Node
	for p.cur().Type != lexer.DEDENT && p.cur().Type != lexer.EOF {
		if p.cur().Type == lexer.NEWLINE {
			p.next()
			continue
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	if p.cur().Type == lexer.DEDENT {
		p.next()
	}
	if len(stmts) == 0 {
		return nil, fault.Errorf(fault.SyntaxError, "line %d: empty block", p.cur().Line)
	}
	return stmts, nil
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

func (p *Parser) parseExpression(minBP int) (ast.Node, error) {
	left, err := p.parsePrefix()
	if err != nil {
		return nil, err
	}

	for {
		tok := p.cur()
		switch tok.Type {
		case lexer.LPAREN:
			if bpCall < minBP {
				return left, nil
			}
			left, err = p.parseCall(left)
			if err != nil {
				return nil, err
			}
			continue
		case lexer.DOT:
			if bpDot < minBP {
				return left, nil
			}
			p.next()
			name, err := p.expect(lexer.IDENT)
			if err != nil {
				return nil, err
			}
			left = &ast.Attr{Target: left, Name: name.Literal}
			continue
		}

		power, ok := infixPowers[tok.Type]
		if !ok || power.left < minBP {
			return left, nil
		}
		p.next()
		right, err := p.parseExpression(power.right)
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Op: tok.Type, Left: left, Right: right}
	}
}

func (p *Parser) parsePrefix() (ast.Node, error) {
	tok := p.cur()
	switch tok.Type {
	case lexer.INT:
		p.next()
		n, ok := new(big.Int).SetString(tok.Literal, 10)
		if !ok {
			return nil, fault.Errorf(fault.SyntaxError, "line %d: bad integer literal %q", tok.Line, tok.Literal)
		}
		return &ast.IntLit{Value: n}, nil
	case lexer.FLOAT:
		p.next()
		f, err := strconv.ParseFloat(tok.Literal, 64)
		if err != nil {
			return nil, fault.Errorf(fault.FloatParseError, "line %d: bad float literal %q", tok.Line, tok.Literal)
		}
		return &ast.FloatLit{Value: f}, nil
	case lexer.STRING:
		p.next()
		return &ast.StrLit{Value: tok.Literal}, nil
	case lexer.KwTrue:
		p.next()
		return &ast.BoolLit{Value: true}, nil
	case lexer.KwFalse:
		p.next()
		return &ast.BoolLit{Value: false}, nil
	case lexer.KwNone:
		p.next()
		return &ast.NoneLit{}, nil
	case lexer.IDENT:
		p.next()
		return &ast.Ident{Name: tok.Literal, Line: tok.Line}, nil
	case lexer.MINUS:
		p.next()
		operand, err := p.parseExpression(bpUnary)
		if err != nil {
			return nil, err
		}
		return &ast.Unary{Op: lexer.MINUS, Operand: operand}, nil
	case lexer.LPAREN:
		return p.parseParenOrTuple()
	case lexer.LBRACKET:
		return p.parseListLit()
	case lexer.LBRACE:
		return p.parseSetOrDict()
	default:
		return nil, fault.Errorf(fault.SyntaxError, "line %d: unexpected token %s in expression", tok.Line, tok)
	}
}

// parseParenOrTuple handles grouping "(expr)" and tuple literals
// "(a, b)". "()" is the empty tuple.
func (p *Parser) parseParenOrTuple() (ast.Node, error) {
	p.next() // (
	if p.cur().Type == lexer.RPAREN {
		p.next()
		return &ast.TupleLit{}, nil
	}
	first, err := p.parseExpression(0)
	if err != nil {
		return nil, err
	}
	if p.cur().Type == lexer.RPAREN {
		p.next()
		return first, nil
	}
	elems := []ast.Node{first}
	for p.cur().Type == lexer.COMMA {
		p.next()
		if p.cur().Type == lexer.RPAREN {
			break
		}
		elem, err := p.parseExpression(0)
		if err != nil {
			return nil, err
		}
		elems = append(elems, elem)
	}
	if _, err := p.expect(lexer.RPAREN); err != nil {
		return nil, err
	}
	return &ast.TupleLit{Elems: elems}, nil
}

func (p *Parser) parseListLit() (ast.Node, error) {
	p.next() // [
	var elems []ast.Node
	for p.cur().Type != lexer.RBRACKET {
		elem, err := p.parseExpression(0)
		if err != nil {
			return nil, err
		}
		elems = append(elems, elem)
		if p.cur().Type == lexer.COMMA {
			p.next()
		} else {
			break
		}
	}
	if _, err := p.expect(lexer.RBRACKET); err != nil {
		return nil, err
	}
	return &ast.ListLit{Elems: elems}, nil
}

// parseSetOrDict disambiguates "{a, b}" (set) from "{k: v}" (dict) by the
// token after the first element. "{}" is the empty dict.
func (p *Parser) parseSetOrDict() (ast.Node, error) {
	p.next() // {
	if p.cur().Type == lexer.RBRACE {
		p.next()
		return &ast.DictLit{}, nil
	}
	first, err := p.parseExpression(0)
	if err != nil {
		return nil, err
	}
	if p.cur().Type == lexer.COLON {
		p.next()
		firstVal, err := p.parseExpression(0)
		if err != nil {
			return nil, err
		}
		dict := &ast.DictLit{Keys: []ast.Node{first}, Values: []ast.Node{firstVal}}
		for p.cur().Type == lexer.COMMA {
			p.next()
			if p.cur().Type == lexer.RBRACE {
				break
			}
			k, err := p.parseExpression(0)
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(lexer.COLON); err != nil {
				return nil, err
			}
			v, err := p.parseExpression(0)
			if err != nil {
				return nil, err
			}
			dict.Keys = append(dict.Keys, k)
			dict.Values = append(dict.Values, v)
		}
		if _, err := p.expect(lexer.RBRACE); err != nil {
			return nil, err
		}
		return dict, nil
	}
	set := &ast.SetLit{Elems: []ast.Node{first}}
	for p.cur().Type == lexer.COMMA {
		p.next()
		if p.cur().Type == lexer.RBRACE {
			break
		}
		elem, err := p.parseExpression(0)
		if err != nil {
			return nil, err
		}
		set.Elems = append(set.Elems, elem)
	}
	if _, err := p.expect(lexer.RBRACE); err != nil {
		return nil, err
	}
	return set, nil
}

func (p *Parser) parseCall(callee ast.Node) (ast.Node, error) {
	p.next() // (
	var args []ast.Node
	for p.cur().Type != lexer.RPAREN {
		arg, err := p.parseExpression(0)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if p.cur().Type == lexer.COMMA {
			p.next()
		} else {
			break
		}
	}
	if _, err := p.expect(lexer.RPAREN); err != nil {
		return nil, err
	}
	return &ast.Call{Callee: callee, Args: args}, nil
}

// ---------------------------------------------------------------------------
// Token plumbing
// ---------------------------------------------------------------------------

func (p *Parser) cur() lexer.Token {
	if p.pos >= len(p.toks) {
		return lexer.Token{Type: lexer.EOF}
	}
	return p.toks[p.pos]
}

func (p *Parser) next() lexer.Token {
	tok := p.cur()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return tok
}

func (p *Parser) expect(t lexer.TokenType) (lexer.Token, error) {
	tok := p.cur()
	if tok.Type != t {
		return tok, fault.Errorf(fault.SyntaxError, "line %d: expected %s, got %s", tok.Line, t, tok)
	}
	return p.next(), nil
}

// endStatement consumes the statement terminator. EOF and DEDENT are
// accepted so the last statement of a block or file needs no trailing
// newline.
func (p *Parser) endStatement() error {
	switch p.cur().Type {
	case lexer.NEWLINE:
		p.next()
		return nil
	case lexer.EOF, lexer.DEDENT:
		return nil
	default:
		return fault.Errorf(fault.SyntaxError, "line %d: expected end of statement, got %s", p.cur().Line, p.cur())
	}
}
