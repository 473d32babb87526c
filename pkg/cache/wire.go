package cache

import (
	"fmt"
	"math/big"

	"github.com/fxamacker/cbor/v2"

	"github.com/chazu/slither/pkg/bytecode"
)

// cborEncMode uses canonical mode so identical units always produce
// identical bytes.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("cache: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Wire structures mirror the compiled artifact with only serializable
// kinds. Constant pools carry literals, nested code units, and class
// definitions; nothing else survives compilation.

type wireUnit struct {
	Name         string
	Instructions []wireInstr
	Constants    []wireConst
	Names        []string
	Params       []string
	FreeNames    []string
}

type wireInstr struct {
	Op  byte
	Arg int
}

type wireConst struct {
	Kind  string
	Bool  bool       `cbor:",omitempty"`
	Neg   bool       `cbor:",omitempty"`
	Int   []byte     `cbor:",omitempty"`
	Float float64    `cbor:",omitempty"`
	Str   string     `cbor:",omitempty"`
	Code  *wireUnit  `cbor:",omitempty"`
	Class *wireClass `cbor:",omitempty"`
}

type wireClass struct {
	Name       string
	FieldNames []string
	Defaults   []wireConst // parallel to FieldNames
	Methods    map[string]*wireUnit
}

const (
	kindNone  = "none"
	kindBool  = "bool"
	kindInt   = "int"
	kindFloat = "float"
	kindStr   = "str"
	kindCode  = "code"
	kindClass = "class"
)

// marshalUnit serializes a code unit to CBOR bytes.
func marshalUnit(unit *bytecode.CodeUnit) ([]byte, error) {
	w, err := toWire(unit)
	if err != nil {
		return nil, err
	}
	return cborEncMode.Marshal(w)
}

// unmarshalUnit deserializes a code unit from CBOR bytes.
func unmarshalUnit(data []byte) (*bytecode.CodeUnit, error) {
	var w wireUnit
	if err := cbor.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("unmarshal unit: %w", err)
	}
	return fromWire(&w)
}

func toWire(unit *bytecode.CodeUnit) (*wireUnit, error) {
	w := &wireUnit{
		Name:      unit.Name,
		Names:     unit.Names,
		Params:    unit.Params,
		FreeNames: unit.FreeNames,
	}
	for _, ins := range unit.Instructions {
		w.Instructions = append(w.Instructions, wireInstr{Op: byte(ins.Op), Arg: ins.Arg})
	}
	for _, c := range unit.Constants {
		wc, err := toWireConst(c)
		if err != nil {
			return nil, fmt.Errorf("unit '%s': %w", unit.Name, err)
		}
		w.Constants = append(w.Constants, wc)
	}
	return w, nil
}

func toWireConst(v bytecode.Value) (wireConst, error) {
	switch v := v.(type) {
	case bytecode.None:
		return wireConst{Kind: kindNone}, nil
	case bytecode.Bool:
		return wireConst{Kind: kindBool, Bool: bool(v)}, nil
	case bytecode.Int:
		return wireConst{Kind: kindInt, Int: v.Big.Bytes(), Neg: v.Big.Sign() < 0}, nil
	case bytecode.Float:
		return wireConst{Kind: kindFloat, Float: float64(v)}, nil
	case bytecode.Str:
		return wireConst{Kind: kindStr, Str: string(v)}, nil
	case *bytecode.CodeUnit:
		nested, err := toWire(v)
		if err != nil {
			return wireConst{}, err
		}
		return wireConst{Kind: kindCode, Code: nested}, nil
	case *bytecode.Class:
		wc := &wireClass{
			Name:       v.Name,
			FieldNames: v.FieldNames,
			Methods:    make(map[string]*wireUnit, len(v.Methods)),
		}
		for _, field := range v.FieldNames {
			def, err := toWireConst(v.FieldDefaults[field])
			if err != nil {
				return wireConst{}, fmt.Errorf("class '%s' field '%s': %w", v.Name, field, err)
			}
			wc.Defaults = append(wc.Defaults, def)
		}
		for name, code := range v.Methods {
			nested, err := toWire(code)
			if err != nil {
				return wireConst{}, fmt.Errorf("class '%s' method '%s': %w", v.Name, name, err)
			}
			wc.Methods[name] = nested
		}
		return wireConst{Kind: kindClass, Class: wc}, nil
	default:
		return wireConst{}, fmt.Errorf("constant of kind '%s' is not serializable", v.Kind())
	}
}

func fromWire(w *wireUnit) (*bytecode.CodeUnit, error) {
	unit := &bytecode.CodeUnit{
		Name:      w.Name,
		Names:     w.Names,
		Params:    w.Params,
		FreeNames: w.FreeNames,
	}
	for _, ins := range w.Instructions {
		unit.Instructions = append(unit.Instructions, bytecode.Instruction{
			Op:  bytecode.Opcode(ins.Op),
			Arg: ins.Arg,
		})
	}
	for i, wc := range w.Constants {
		c, err := fromWireConst(wc)
		if err != nil {
			return nil, fmt.Errorf("unit '%s' constant %d: %w", w.Name, i, err)
		}
		unit.Constants = append(unit.Constants, c)
	}
	unit.RebuildIndexes()
	return unit, nil
}

func fromWireConst(wc wireConst) (bytecode.Value, error) {
	switch wc.Kind {
	case kindNone:
		return bytecode.None{}, nil
	case kindBool:
		return bytecode.Bool(wc.Bool), nil
	case kindInt:
		n := new(big.Int).SetBytes(wc.Int)
		if wc.Neg {
			n.Neg(n)
		}
		return bytecode.Int{Big: n}, nil
	case kindFloat:
		return bytecode.Float(wc.Float), nil
	case kindStr:
		return bytecode.Str(wc.Str), nil
	case kindCode:
		if wc.Code == nil {
			return nil, fmt.Errorf("code constant without body")
		}
		return fromWire(wc.Code)
	case kindClass:
		if wc.Class == nil {
			return nil, fmt.Errorf("class constant without body")
		}
		if len(wc.Class.Defaults) != len(wc.Class.FieldNames) {
			return nil, fmt.Errorf("class '%s': %d defaults for %d fields",
				wc.Class.Name, len(wc.Class.Defaults), len(wc.Class.FieldNames))
		}
		class := &bytecode.Class{
			Name:          wc.Class.Name,
			FieldNames:    wc.Class.FieldNames,
			FieldDefaults: make(map[string]bytecode.Value, len(wc.Class.FieldNames)),
			Methods:       make(map[string]*bytecode.CodeUnit, len(wc.Class.Methods)),
		}
		for i, field := range wc.Class.FieldNames {
			def, err := fromWireConst(wc.Class.Defaults[i])
			if err != nil {
				return nil, fmt.Errorf("class '%s' field '%s': %w", wc.Class.Name, field, err)
			}
			class.FieldDefaults[field] = def
		}
		for name, code := range wc.Class.Methods {
			method, err := fromWire(code)
			if err != nil {
				return nil, fmt.Errorf("class '%s' method '%s': %w", wc.Class.Name, name, err)
			}
			class.Methods[name] = method
		}
		return class, nil
	default:
		return nil, fmt.Errorf("unknown constant kind %q", wc.Kind)
	}
}
