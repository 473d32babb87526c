package cache

import (
	"os"
	"strings"
	"testing"

	"github.com/chazu/slither/pkg/bytecode"
	"github.com/chazu/slither/pkg/parser"
)

func compileSrc(t *testing.T, src string) *bytecode.CodeUnit {
	t.Helper()
	nodes, err := parser.Parse(src)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	unit, err := bytecode.Compile(nodes, "<test>")
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	return unit
}

func runUnit(t *testing.T, unit *bytecode.CodeUnit) string {
	t.Helper()
	var out strings.Builder
	if _, err := bytecode.New(bytecode.WithOutput(&out)).Execute(unit); err != nil {
		t.Fatalf("execute error: %v", err)
	}
	return out.String()
}

func TestStoreAndLoadRoundTrip(t *testing.T) {
	c, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	src := "def add(a, b):\n\treturn a + b\nprint(add(5, 3))\n"
	unit := compileSrc(t, src)
	if err := c.Store(src, unit); err != nil {
		t.Fatalf("store: %v", err)
	}

	loaded, ok := c.Load(src)
	if !ok {
		t.Fatal("load missed a just-stored entry")
	}
	// The restored unit must behave identically to the fresh one.
	if got := runUnit(t, loaded); got != "8\n" {
		t.Errorf("restored unit output = %q, want %q", got, "8\n")
	}
	if got, want := bytecode.Disassemble(loaded), bytecode.Disassemble(unit); got != want {
		t.Errorf("restored listing differs:\n%s\nwant:\n%s", got, want)
	}
}

func TestRoundTripPreservesClasses(t *testing.T) {
	c, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	src := "class Point:\n\tx = 0\n\ty = 0\n\tdef total(self):\n\t\treturn self.x + self.y\n" +
		"p = Point(3, 4)\nprint(p.total())\n"
	if err := c.Store(src, compileSrc(t, src)); err != nil {
		t.Fatalf("store: %v", err)
	}
	loaded, ok := c.Load(src)
	if !ok {
		t.Fatal("load missed")
	}
	if got := runUnit(t, loaded); got != "7\n" {
		t.Errorf("output = %q, want %q", got, "7\n")
	}
}

func TestRoundTripPreservesBigIntegers(t *testing.T) {
	c, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	src := "print(-100000000000000000000 + 1)\n"
	if err := c.Store(src, compileSrc(t, src)); err != nil {
		t.Fatalf("store: %v", err)
	}
	loaded, ok := c.Load(src)
	if !ok {
		t.Fatal("load missed")
	}
	if got := runUnit(t, loaded); got != "-99999999999999999999\n" {
		t.Errorf("output = %q", got)
	}
}

func TestLoadMiss(t *testing.T) {
	c, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, ok := c.Load("never stored\n"); ok {
		t.Error("load hit on an empty cache")
	}
}

func TestLoadRejectsWrongVersion(t *testing.T) {
	dir := t.TempDir()
	c, err := Open(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	src := "x = 1\n"
	if err := c.Store(src, compileSrc(t, src)); err != nil {
		t.Fatalf("store: %v", err)
	}

	path := c.entryPath(Key(src))
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read entry: %v", err)
	}
	data[0] = formatVersion + 1
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("rewrite entry: %v", err)
	}

	if _, ok := c.Load(src); ok {
		t.Error("load accepted an entry with a foreign version byte")
	}
}

func TestLoadRejectsCorruptEntry(t *testing.T) {
	dir := t.TempDir()
	c, err := Open(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	src := "x = 1\n"
	path := c.entryPath(Key(src))
	if err := os.WriteFile(path, []byte{formatVersion, 0xFF, 0x00, 0x13}, 0o644); err != nil {
		t.Fatalf("write garbage: %v", err)
	}

	if _, ok := c.Load(src); ok {
		t.Error("load accepted garbage bytes")
	}
}

func TestKeyIsStablePerSource(t *testing.T) {
	if Key("a = 1\n") != Key("a = 1\n") {
		t.Error("identical sources produced different keys")
	}
	if Key("a = 1\n") == Key("a = 2\n") {
		t.Error("different sources produced the same key")
	}
}
