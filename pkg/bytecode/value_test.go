package bytecode

import (
	"math/big"
	"testing"
)

func TestTruthiness(t *testing.T) {
	truthy := []Value{Bool(true), NewInt(1), NewInt(-3), Float(0.5), Str("x"),
		NewList(NewInt(1)), Tuple{Items: []Value{None{}}}, NewSet(NewInt(1)),
		NewDict([]Value{Str("k")}, []Value{NewInt(1)})}
	for _, v := range truthy {
		if !v.Truthy() {
			t.Errorf("%s is falsy, want truthy", v.Repr())
		}
	}
	falsy := []Value{None{}, Null{}, Bool(false), NewInt(0), Float(0), Str(""),
		NewList(), Tuple{}, NewSet(), &Dict{}}
	for _, v := range falsy {
		if v.Truthy() {
			t.Errorf("%s is truthy, want falsy", v.Repr())
		}
	}
}

func TestFloatDisplay(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{4, "4.0"},
		{11.5, "11.5"},
		{-0.25, "-0.25"},
		{1e21, "1e+21"},
	}
	for _, tt := range tests {
		if got := Float(tt.in).Str(); got != tt.want {
			t.Errorf("Float(%v).Str() = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStrReprQuoting(t *testing.T) {
	tests := []struct{ in, want string }{
		{"plain", "'plain'"},
		{"it's", `'it\'s'`},
		{"a\nb", `'a\nb'`},
		{`back\slash`, `'back\\slash'`},
	}
	for _, tt := range tests {
		if got := Str(tt.in).Repr(); got != tt.want {
			t.Errorf("Str(%q).Repr() = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestSetDeduplicatesByEquality(t *testing.T) {
	// 1, True, and 1.0 are equal under promotion, so only the first
	// occurrence survives.
	s := NewSet(NewInt(1), Bool(true), Float(1), NewInt(2))
	if len(s.Items) != 2 {
		t.Fatalf("set has %d items, want 2: %s", len(s.Items), s.Repr())
	}
	if s.Repr() != "{1, 2}" {
		t.Errorf("set = %s, want {1, 2}", s.Repr())
	}
}

func TestSetEqualityIgnoresOrder(t *testing.T) {
	a := NewSet(NewInt(1), NewInt(2))
	b := NewSet(NewInt(2), NewInt(1))
	if !Equal(a, b) {
		t.Error("{1, 2} != {2, 1}, want equal")
	}
	if Equal(a, NewSet(NewInt(1))) {
		t.Error("{1, 2} == {1}, want unequal")
	}
}

func TestDictLookupUsesValueEquality(t *testing.T) {
	d := NewDict([]Value{NewInt(1)}, []Value{Str("one")})
	// True promotes to 1, so it hits the same key.
	if v, ok := d.Get(Bool(true)); !ok || v.Repr() != "'one'" {
		t.Errorf("d[True] = %v, want 'one'", v)
	}
	d.Set(Float(1), Str("uno"))
	if d.Len() != 1 {
		t.Errorf("dict has %d entries after overwrite, want 1", d.Len())
	}
}

func TestDictsNeverCompareEqual(t *testing.T) {
	a := NewDict([]Value{Str("k")}, []Value{NewInt(1)})
	b := NewDict([]Value{Str("k")}, []Value{NewInt(1)})
	if Equal(a, b) {
		t.Error("structurally identical dicts compare equal, want unequal")
	}
}

func TestIteratorSnapshotsLists(t *testing.T) {
	l := NewList(NewInt(1), NewInt(2))
	it, cerr := Iterate(l)
	if cerr != nil {
		t.Fatalf("iterate error: %v", cerr)
	}
	l.Items = append(l.Items, NewInt(3))
	count := 0
	for _, more := it.Next(); more; _, more = it.Next() {
		count++
	}
	if count != 2 {
		t.Errorf("iterator visited %d items, want the 2 snapshotted", count)
	}
}

func TestAddPromotion(t *testing.T) {
	tests := []struct {
		a, b Value
		want string
	}{
		{NewInt(2), NewInt(3), "5"},
		{NewInt(2), Float(0.5), "2.5"},
		{Bool(true), NewInt(1), "2"},
		{Bool(true), Bool(true), "2"},
		{Str("ab"), Str("cd"), "'abcd'"},
	}
	for _, tt := range tests {
		got, cerr := Add(tt.a, tt.b)
		if cerr != nil {
			t.Errorf("Add(%s, %s): %v", tt.a.Repr(), tt.b.Repr(), cerr)
			continue
		}
		if got.Repr() != tt.want {
			t.Errorf("Add(%s, %s) = %s, want %s", tt.a.Repr(), tt.b.Repr(), got.Repr(), tt.want)
		}
	}
}

func TestAddKindErrors(t *testing.T) {
	if _, cerr := Add(Str("a"), NewInt(1)); cerr == nil || cerr.Kind != TypeError {
		t.Errorf("Add(str, int) = %v, want TypeError", cerr)
	}
	if _, cerr := Add(None{}, NewInt(1)); cerr == nil || cerr.Kind != TypeError {
		t.Errorf("Add(None, int) = %v, want TypeError", cerr)
	}
}

func TestMulRepetition(t *testing.T) {
	got, cerr := Mul(Str("ab"), NewInt(3))
	if cerr != nil || got.Repr() != "'ababab'" {
		t.Errorf("'ab' * 3 = %v (%v), want 'ababab'", got, cerr)
	}
	got, cerr = Mul(NewInt(0), Str("ab"))
	if cerr != nil || got.Repr() != "''" {
		t.Errorf("0 * 'ab' = %v (%v), want ''", got, cerr)
	}
	got, cerr = Mul(NewInt(-2), Str("ab"))
	if cerr != nil || got.Repr() != "''" {
		t.Errorf("-2 * 'ab' = %v (%v), want ''", got, cerr)
	}
}

func TestDivZeroKinds(t *testing.T) {
	for _, zero := range []Value{NewInt(0), Float(0), Bool(false)} {
		if _, cerr := Div(NewInt(1), zero); cerr == nil || cerr.Kind != ZeroDivisionError {
			t.Errorf("1 / %s = %v, want ZeroDivisionError", zero.Repr(), cerr)
		}
	}
}

func TestLessMixedKindsError(t *testing.T) {
	_, cerr := Less(Str("a"), NewInt(1))
	if cerr == nil || cerr.Kind != TypeError {
		t.Errorf("'a' < 1 = %v, want TypeError", cerr)
	}
}

func TestCompareOperators(t *testing.T) {
	two, three := NewInt(2), NewInt(3)
	tests := []struct {
		op   Opcode
		want bool
	}{
		{OpEqual, false},
		{OpNotEqual, true},
		{OpLess, true},
		{OpLessEq, true},
		{OpGreater, false},
		{OpGreaterEq, false},
	}
	for _, tt := range tests {
		got, cerr := Compare(tt.op, two, three)
		if cerr != nil {
			t.Fatalf("Compare(%s): %v", tt.op, cerr)
		}
		if bool(got.(Bool)) != tt.want {
			t.Errorf("2 %s 3 = %v, want %v", tt.op, got, tt.want)
		}
	}
}

func TestEqualSequencesElementwise(t *testing.T) {
	a := NewList(NewInt(1), Float(2))
	b := NewList(Bool(true), NewInt(2))
	if !Equal(a, b) {
		t.Error("[1, 2.0] != [True, 2] under promotion, want equal")
	}
	if Equal(a, Tuple{Items: a.Items}) {
		t.Error("list equals tuple with the same items, want unequal")
	}
}

func TestBigIntPreserved(t *testing.T) {
	huge, _ := new(big.Int).SetString("123456789012345678901234567890", 10)
	v := Int{Big: huge}
	got, cerr := Add(v, NewInt(1))
	if cerr != nil {
		t.Fatalf("add error: %v", cerr)
	}
	if got.Repr() != "123456789012345678901234567891" {
		t.Errorf("big add = %s", got.Repr())
	}
}

func TestConstantKeyDistinguishesKinds(t *testing.T) {
	u := NewCodeUnit("t", nil)
	i1 := u.AddConstant(NewInt(1))
	f1 := u.AddConstant(Float(1))
	b1 := u.AddConstant(Bool(true))
	again := u.AddConstant(NewInt(1))
	if i1 == f1 || i1 == b1 || f1 == b1 {
		t.Errorf("promotion-equal constants share a slot: %d %d %d", i1, f1, b1)
	}
	if again != i1 {
		t.Errorf("re-adding 1 allocated slot %d, want %d", again, i1)
	}
}
