package bytecode

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

// ValueKind discriminates the closed set of runtime value kinds.
type ValueKind int

const (
	KindNone ValueKind = iota
	KindNull
	KindBool
	KindInt
	KindFloat
	KindStr
	KindList
	KindTuple
	KindSet
	KindDict
	KindIterator
	KindNativeFunc
	KindUserFunc
	KindClass
	KindInstance
	KindModule
	KindCode
)

var kindNames = map[ValueKind]string{
	KindNone:       "NoneType",
	KindNull:       "null",
	KindBool:       "bool",
	KindInt:        "int",
	KindFloat:      "float",
	KindStr:        "str",
	KindList:       "list",
	KindTuple:      "tuple",
	KindSet:        "set",
	KindDict:       "dict",
	KindIterator:   "iterator",
	KindNativeFunc: "builtin_function_or_method",
	KindUserFunc:   "function",
	KindClass:      "type",
	KindInstance:   "object",
	KindModule:     "module",
	KindCode:       "code",
}

func (k ValueKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("ValueKind(%d)", int(k))
}

// Value is the runtime representation of every datum the VM manipulates.
// Str is the display form used by print; Repr is the quoting form used
// when a value appears inside a container or is echoed by the REPL.
type Value interface {
	Kind() ValueKind
	Str() string
	Repr() string
	Truthy() bool
}

// ---------------------------------------------------------------------------
// Scalars
// ---------------------------------------------------------------------------

// None is the user-visible absence value.
type None struct{}

// Null is the internal sentinel. It marks unfilled call-argument slots and
// the start of an intrinsic argument scan; user code never observes it.
type Null struct{}

// Bool is a boolean.
type Bool bool

// Int is an arbitrary-precision integer.
type Int struct {
	Big *big.Int
}

// Float is an IEEE double.
type Float float64

// Str is an immutable string.
type Str string

// NewInt builds an Int from a machine integer.
func NewInt(n int64) Int {
	return Int{Big: big.NewInt(n)}
}

func (None) Kind() ValueKind { return KindNone }
func (None) Str() string { return "None" }
func (None) Repr() string { return "None" }
func (None) Truthy() bool { return false }

func (Null) Kind() ValueKind { return KindNull }
func (Null) Str() string { return "<null>" }
func (Null) Repr() string { return "<null>" }
func (Null) Truthy() bool { return false }

func (b Bool) Kind() ValueKind { return KindBool }
func (b Bool) Str() string {
	if b {
		return "True"
	}
	return "False"
}
func (b Bool) Repr() string { return b.Str() }
func (b Bool) Truthy() bool { return bool(b) }

func (i Int) Kind() ValueKind { return KindInt }
func (i Int) Str() string     { return i.Big.String() }
func (i Int) Repr() string    { return i.Big.String() }
func (i Int) Truthy() bool    { return i.Big.Sign() != 0 }

func (f Float) Kind() ValueKind { return KindFloat }
func (f Float) Str() string     { return formatFloat(float64(f)) }
func (f Float) Repr() string    { return f.Str() }
func (f Float) Truthy() bool    { return f != 0 }

func (s Str) Kind() ValueKind { return KindStr }
func (s Str) Str() string     { return string(s) }
func (s Str) Repr() string {
	var sb strings.Builder
	sb.WriteByte('\'')
	for _, r := range string(s) {
		switch r {
		case '\'':
			sb.WriteString("\\'")
		case '\\':
			sb.WriteString("\\\\")
		case '\n':
			sb.WriteString("\\n")
		case '\t':
			sb.WriteString("\\t")
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('\'')
	return sb.String()
}
func (s Str) Truthy() bool { return len(s) != 0 }

// formatFloat renders a float the way the language prints it: shortest
// round-trip form, with a ".0" suffix for integral values.
func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") && s != "+Inf" && s != "-Inf" && s != "NaN" {
		s += ".0"
	}
	return s
}

// ---------------------------------------------------------------------------
// Containers
// ---------------------------------------------------------------------------

// List is the one mutably aliasable container: assigning a list to another
// name shares the same *List, so in-place mutation through either name is
// visible through both.
type List struct {
	Items []Value
}

// Tuple is an immutable ordered collection with value semantics.
type Tuple struct {
	Items []Value
}

// Set is a deduplicated collection. Element order is the insertion order
// of the first occurrence; equality is order-insensitive.
type Set struct {
	Items []Value
}

// Dict is a key-unique mapping. Lookup uses value equality, so keys of any
// hashable-looking kind work; insertion order is preserved for display only.
type Dict struct {
	keys []Value
	vals []Value
}

// NewList builds a shared list from the given items.
func NewList(items ...Value) *List {
	return &List{Items: items}
}

// NewSet builds a set, deduplicating by value equality in source order.
func NewSet(items ...Value) Set {
	s := Set{}
	for _, item := range items {
		s.Items = appendUnique(s.Items, item)
	}
	return s
}

func appendUnique(items []Value, v Value) []Value {
	for _, existing := range items {
		if Equal(existing, v) {
			return items
		}
	}
	return append(items, v)
}

// NewDict builds a dict from parallel key/value slices; later duplicate
// keys overwrite earlier ones.
func NewDict(keys, vals []Value) *Dict {
	d := &Dict{}
	for i := range keys {
		d.Set(keys[i], vals[i])
	}
	return d
}

// Set inserts or overwrites a key.
func (d *Dict) Set(key, val Value) {
	for i, k := range d.keys {
		if Equal(k, key) {
			d.vals[i] = val
			return
		}
	}
	d.keys = append(d.keys, key)
	d.vals = append(d.vals, val)
}

// Get looks up a key by value equality.
func (d *Dict) Get(key Value) (Value, bool) {
	for i, k := range d.keys {
		if Equal(k, key) {
			return d.vals[i], true
		}
	}
	return nil, false
}

// Len returns the number of entries.
func (d *Dict) Len() int { return len(d.keys) }

// Keys returns the keys in insertion order.
func (d *Dict) Keys() []Value { return d.keys }

func (l *List) Kind() ValueKind { return KindList }
func (l *List) Str() string     { return joinItems(l.Items, "[", "]") }
func (l *List) Repr() string    { return l.Str() }
func (l *List) Truthy() bool    { return len(l.Items) != 0 }

func (t Tuple) Kind() ValueKind { return KindTuple }
func (t Tuple) Str() string {
	if len(t.Items) == 1 {
		return "(" + t.Items[0].Repr() + ",)"
	}
	return joinItems(t.Items, "(", ")")
}
func (t Tuple) Repr() string { return t.Str() }
func (t Tuple) Truthy() bool { return len(t.Items) != 0 }

func (s Set) Kind() ValueKind { return KindSet }
func (s Set) Str() string {
	if len(s.Items) == 0 {
		return "set()"
	}
	return joinItems(s.Items, "{", "}")
}
func (s Set) Repr() string { return s.Str() }
func (s Set) Truthy() bool { return len(s.Items) != 0 }

func (d *Dict) Kind() ValueKind { return KindDict }
func (d *Dict) Str() string {
	var sb strings.Builder
	sb.WriteByte('{')
	for i := range d.keys {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(d.keys[i].Repr())
		sb.WriteString(": ")
		sb.WriteString(d.vals[i].Repr())
	}
	sb.WriteByte('}')
	return sb.String()
}
func (d *Dict) Repr() string { return d.Str() }
func (d *Dict) Truthy() bool { return len(d.keys) != 0 }

func joinItems(items []Value, open, close string) string {
	var sb strings.Builder
	sb.WriteString(open)
	for i, item := range items {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(item.Repr())
	}
	sb.WriteString(close)
	return sb.String()
}

// ---------------------------------------------------------------------------
// Iterator
// ---------------------------------------------------------------------------

// Iterator is a snapshot of a container's items plus a cursor. Mutating
// the source container after the snapshot is taken is not observed.
type Iterator struct {
	Items []Value
	Index int
}

// Next advances the cursor, returning ok=false on exhaustion.
func (it *Iterator) Next() (Value, bool) {
	if it.Index >= len(it.Items) {
		return nil, false
	}
	v := it.Items[it.Index]
	it.Index++
	return v, true
}

func (it *Iterator) Kind() ValueKind { return KindIterator }
func (it *Iterator) Str() string     { return "<iterator>" }
func (it *Iterator) Repr() string    { return "<iterator>" }
func (it *Iterator) Truthy() bool    { return true }

// Iterate snapshots a container into a fresh Iterator. Lists are copied so
// later in-place mutation does not change what the loop visits; strings
// iterate per character; dicts iterate their keys.
func Iterate(v Value) (*Iterator, *Error) {
	switch v := v.(type) {
	case *List:
		items := make([]Value, len(v.Items))
		copy(items, v.Items)
		return &Iterator{Items: items}, nil
	case Tuple:
		items := make([]Value, len(v.Items))
		copy(items, v.Items)
		return &Iterator{Items: items}, nil
	case Set:
		items := make([]Value, len(v.Items))
		copy(items, v.Items)
		return &Iterator{Items: items}, nil
	case Str:
		items := make([]Value, 0, len(v))
		for _, r := range string(v) {
			items = append(items, Str(string(r)))
		}
		return &Iterator{Items: items}, nil
	case *Dict:
		items := make([]Value, len(v.keys))
		copy(items, v.keys)
		return &Iterator{Items: items}, nil
	default:
		return nil, Errorf(TypeError, "'%s' object is not iterable", v.Kind())
	}
}

// ---------------------------------------------------------------------------
// Callables, classes, modules
// ---------------------------------------------------------------------------

// NativeFunc is a host-provided function exposed to user code.
type NativeFunc struct {
	Name string
	Fn   func(args []Value) (Value, *Error)
}

// UserFunc wraps a compiled code unit with the global namespace snapshot
// taken when the function was made and the closure cells captured from the
// enclosing frame.
type UserFunc struct {
	Code    *CodeUnit
	Globals map[string]Value
	Cells   map[string]Value
}

// Class holds field defaults in declaration order plus method code.
type Class struct {
	Name          string
	FieldNames    []string
	FieldDefaults map[string]Value
	Methods       map[string]*CodeUnit
}

// Instance is one object of a Class.
type Instance struct {
	Class  *Class
	Fields map[string]Value
}

// Module is a named namespace of host values.
type Module struct {
	Name    string
	Members map[string]Value
}

// boundMethod pairs a receiver with a method function; calling it prepends
// the receiver to the arguments.
type boundMethod struct {
	recv Value
	fn   *UserFunc
	name string
}

func (f *NativeFunc) Kind() ValueKind { return KindNativeFunc }
func (f *NativeFunc) Str() string     { return fmt.Sprintf("<built-in function %s>", f.Name) }
func (f *NativeFunc) Repr() string    { return f.Str() }
func (f *NativeFunc) Truthy() bool    { return true }

func (f *UserFunc) Kind() ValueKind { return KindUserFunc }
func (f *UserFunc) Str() string     { return fmt.Sprintf("<function %s>", f.Code.Name) }
func (f *UserFunc) Repr() string    { return f.Str() }
func (f *UserFunc) Truthy() bool    { return true }

func (c *Class) Kind() ValueKind { return KindClass }
func (c *Class) Str() string     { return fmt.Sprintf("<class '__main__.%s'>", c.Name) }
func (c *Class) Repr() string    { return c.Str() }
func (c *Class) Truthy() bool    { return true }

func (i *Instance) Kind() ValueKind { return KindInstance }
func (i *Instance) Str() string     { return fmt.Sprintf("<__main__.%s object>", i.Class.Name) }
func (i *Instance) Repr() string    { return i.Str() }
func (i *Instance) Truthy() bool    { return true }

func (m *Module) Kind() ValueKind { return KindModule }
func (m *Module) Str() string     { return fmt.Sprintf("<module '%s'>", m.Name) }
func (m *Module) Repr() string    { return m.Str() }
func (m *Module) Truthy() bool    { return true }

func (b *boundMethod) Kind() ValueKind { return KindUserFunc }
func (b *boundMethod) Str() string     { return fmt.Sprintf("<bound method %s>", b.name) }
func (b *boundMethod) Repr() string    { return b.Str() }
func (b *boundMethod) Truthy() bool    { return true }
