package bytecode

import (
	"math/big"
	"strings"
)

// Numeric promotion: Bool behaves as 0/1, and any Float operand promotes
// the whole operation to Float. Division is always true division.

// asInt views a value as an integer when no float promotion is in play.
func asInt(v Value) (*big.Int, bool) {
	switch v := v.(type) {
	case Int:
		return v.Big, true
	case Bool:
		if v {
			return big.NewInt(1), true
		}
		return big.NewInt(0), true
	default:
		return nil, false
	}
}

// asFloat views any numeric value as a float.
func asFloat(v Value) (float64, bool) {
	switch v := v.(type) {
	case Float:
		return float64(v), true
	case Int:
		f, _ := new(big.Float).SetInt(v.Big).Float64()
		return f, true
	case Bool:
		if v {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

func isNumeric(v Value) bool {
	switch v.Kind() {
	case KindBool, KindInt, KindFloat:
		return true
	}
	return false
}

func binOpError(op string, a, b Value) *Error {
	return Errorf(TypeError, "unsupported operand type(s) for %s: '%s' and '%s'",
		op, a.Kind(), b.Kind())
}

// Add implements a + b: numeric promotion, string concatenation, and
// list/tuple concatenation. List concatenation produces a fresh shared
// list; neither operand is mutated.
func Add(a, b Value) (Value, *Error) {
	if isNumeric(a) && isNumeric(b) {
		if a.Kind() != KindFloat && b.Kind() != KindFloat {
			x, _ := asInt(a)
			y, _ := asInt(b)
			return Int{Big: new(big.Int).Add(x, y)}, nil
		}
		x, _ := asFloat(a)
		y, _ := asFloat(b)
		return Float(x + y), nil
	}
	switch x := a.(type) {
	case Str:
		if y, ok := b.(Str); ok {
			return x + y, nil
		}
		return nil, Errorf(TypeError, "can only concatenate str (not \"%s\") to str", b.Kind())
	case *List:
		if y, ok := b.(*List); ok {
			items := make([]Value, 0, len(x.Items)+len(y.Items))
			items = append(items, x.Items...)
			items = append(items, y.Items...)
			return &List{Items: items}, nil
		}
		return nil, Errorf(TypeError, "can only concatenate list (not \"%s\") to list", b.Kind())
	case Tuple:
		if y, ok := b.(Tuple); ok {
			items := make([]Value, 0, len(x.Items)+len(y.Items))
			items = append(items, x.Items...)
			items = append(items, y.Items...)
			return Tuple{Items: items}, nil
		}
		return nil, Errorf(TypeError, "can only concatenate tuple (not \"%s\") to tuple", b.Kind())
	}
	return nil, binOpError("+", a, b)
}

// Sub implements a - b for numeric operands.
func Sub(a, b Value) (Value, *Error) {
	if isNumeric(a) && isNumeric(b) {
		if a.Kind() != KindFloat && b.Kind() != KindFloat {
			x, _ := asInt(a)
			y, _ := asInt(b)
			return Int{Big: new(big.Int).Sub(x, y)}, nil
		}
		x, _ := asFloat(a)
		y, _ := asFloat(b)
		return Float(x - y), nil
	}
	return nil, binOpError("-", a, b)
}

// Mul implements a * b: numeric promotion plus string repetition in
// either operand order. A non-positive count yields the empty string.
func Mul(a, b Value) (Value, *Error) {
	if isNumeric(a) && isNumeric(b) {
		if a.Kind() != KindFloat && b.Kind() != KindFloat {
			x, _ := asInt(a)
			y, _ := asInt(b)
			return Int{Big: new(big.Int).Mul(x, y)}, nil
		}
		x, _ := asFloat(a)
		y, _ := asFloat(b)
		return Float(x * y), nil
	}
	if s, ok := a.(Str); ok {
		if n, ok := asInt(b); ok {
			return repeatStr(s, n), nil
		}
	}
	if s, ok := b.(Str); ok {
		if n, ok := asInt(a); ok {
			return repeatStr(s, n), nil
		}
	}
	return nil, binOpError("*", a, b)
}

func repeatStr(s Str, n *big.Int) Str {
	if n.Sign() <= 0 || !n.IsInt64() {
		return Str("")
	}
	return Str(strings.Repeat(string(s), int(n.Int64())))
}

// Div implements a / b: true division, always yielding Float. A zero
// divisor of either numeric kind is a ZeroDivision fault.
func Div(a, b Value) (Value, *Error) {
	if isNumeric(a) && isNumeric(b) {
		x, _ := asFloat(a)
		y, _ := asFloat(b)
		if y == 0 {
			return nil, Errorf(ZeroDivisionError, "division by zero")
		}
		return Float(x / y), nil
	}
	return nil, binOpError("/", a, b)
}

// Negate implements unary minus. Bools negate logically, matching the
// language's historical behavior; ints and floats negate arithmetically.
func Negate(v Value) (Value, *Error) {
	switch v := v.(type) {
	case Bool:
		return Bool(!v), nil
	case Int:
		return Int{Big: new(big.Int).Neg(v.Big)}, nil
	case Float:
		return Float(-v), nil
	default:
		return nil, Errorf(TypeError, "bad operand type for unary -: '%s'", v.Kind())
	}
}

// Equal implements cross-kind equality: numeric kinds compare under
// promotion (True == 1.0 holds), sequences compare element-wise, sets
// compare order-insensitively, dicts never compare equal, and values of
// unrelated kinds are unequal rather than erroneous.
func Equal(a, b Value) bool {
	if isNumeric(a) && isNumeric(b) {
		if a.Kind() != KindFloat && b.Kind() != KindFloat {
			x, _ := asInt(a)
			y, _ := asInt(b)
			return x.Cmp(y) == 0
		}
		x, _ := asFloat(a)
		y, _ := asFloat(b)
		return x == y
	}
	switch x := a.(type) {
	case None:
		_, ok := b.(None)
		return ok
	case Null:
		_, ok := b.(Null)
		return ok
	case Str:
		y, ok := b.(Str)
		return ok && x == y
	case *List:
		y, ok := b.(*List)
		return ok && equalItems(x.Items, y.Items)
	case Tuple:
		y, ok := b.(Tuple)
		return ok && equalItems(x.Items, y.Items)
	case Set:
		y, ok := b.(Set)
		if !ok || len(x.Items) != len(y.Items) {
			return false
		}
		for _, item := range x.Items {
			if !containsValue(y.Items, item) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func equalItems(a, b []Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

func containsValue(items []Value, v Value) bool {
	for _, item := range items {
		if Equal(item, v) {
			return true
		}
	}
	return false
}

// Less implements a < b: numeric promotion or lexicographic strings.
func Less(a, b Value) (bool, *Error) {
	if isNumeric(a) && isNumeric(b) {
		if a.Kind() != KindFloat && b.Kind() != KindFloat {
			x, _ := asInt(a)
			y, _ := asInt(b)
			return x.Cmp(y) < 0, nil
		}
		x, _ := asFloat(a)
		y, _ := asFloat(b)
		return x < y, nil
	}
	if x, ok := a.(Str); ok {
		if y, ok := b.(Str); ok {
			return x < y, nil
		}
	}
	return false, Errorf(TypeError, "'<' not supported between instances of '%s' and '%s'",
		a.Kind(), b.Kind())
}

// Compare dispatches one comparison opcode. The result is always Bool.
func Compare(op Opcode, a, b Value) (Value, *Error) {
	switch op {
	case OpEqual:
		return Bool(Equal(a, b)), nil
	case OpNotEqual:
		return Bool(!Equal(a, b)), nil
	case OpLess:
		lt, err := Less(a, b)
		if err != nil {
			return nil, err
		}
		return Bool(lt), nil
	case OpLessEq:
		lt, err := Less(a, b)
		if err != nil {
			return nil, err
		}
		return Bool(lt || Equal(a, b)), nil
	case OpGreater:
		gt, err := Less(b, a)
		if err != nil {
			return nil, err
		}
		return Bool(gt), nil
	case OpGreaterEq:
		gt, err := Less(b, a)
		if err != nil {
			return nil, err
		}
		return Bool(gt || Equal(a, b)), nil
	default:
		return nil, Errorf(NotImplementedError, "comparison opcode %s", op)
	}
}
