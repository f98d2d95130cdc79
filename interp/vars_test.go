// Copyright (c) 2024, gosh authors
// See LICENSE for licensing information

package interp

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func newTestVarTable() *VarTable {
	return &VarTable{top: newScope(nil), ifs: " \t\n"}
}

func TestVarTableScoping(t *testing.T) {
	vt := newTestVarTable()
	vt.SetVar("x", "outer")

	vt.PushScope()
	vt.SetLocal("x", "inner")
	if got, _ := vt.GetVar("x"); got != "inner" {
		t.Fatalf("GetVar(x) in inner scope = %q, want %q", got, "inner")
	}
	vt.PopScope()

	if got, _ := vt.GetVar("x"); got != "outer" {
		t.Fatalf("GetVar(x) after PopScope = %q, want %q", got, "outer")
	}
}

func TestVarTableArrays(t *testing.T) {
	vt := newTestVarTable()
	vt.SetArrayElem("arr", 0, "a")
	vt.SetArrayElem("arr", 2, "c")

	got, ok := vt.GetArray("arr")
	if !ok {
		t.Fatal("GetArray(arr) returned ok=false")
	}
	want := []string{"a", "", "c"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("GetArray(arr) mismatch (-want +got):\n%s", diff)
	}
}

// TestVarTableCloneIsolation makes sure a cloned table never lets writes
// leak back to the original, the isolation a subshell or command
// substitution depends on.
func TestVarTableCloneIsolation(t *testing.T) {
	vt := newTestVarTable()
	vt.SetVar("x", "orig")
	vt.SetArrayElem("arr", 0, "a")
	vt.PushScope()
	vt.SetLocal("y", "local-orig")

	clone := vt.Clone()
	clone.SetVar("x", "changed")
	clone.SetArrayElem("arr", 1, "b")
	clone.SetLocal("y", "local-changed")

	if got, _ := vt.GetVar("x"); got != "orig" {
		t.Fatalf("original x mutated by clone: got %q", got)
	}
	if got, _ := clone.GetVar("x"); got != "changed" {
		t.Fatalf("clone x = %q, want %q", got, "changed")
	}

	origArr, _ := vt.GetArray("arr")
	if diff := cmp.Diff([]string{"a"}, origArr); diff != "" {
		t.Fatalf("original arr mutated by clone (-want +got):\n%s", diff)
	}
	cloneArr, _ := clone.GetArray("arr")
	if diff := cmp.Diff([]string{"a", "b"}, cloneArr); diff != "" {
		t.Fatalf("clone arr mismatch (-want +got):\n%s", diff)
	}

	if got, _ := vt.GetVar("y"); got != "local-orig" {
		t.Fatalf("original y mutated by clone: got %q", got)
	}
}

func TestVarTableReadOnly(t *testing.T) {
	vt := newTestVarTable()
	vt.SetVar("ro", "const")
	vt.SetReadOnly("ro")
	vt.SetVar("ro", "changed")
	if got, _ := vt.GetVar("ro"); got != "const" {
		t.Fatalf("read-only variable was mutated: got %q", got)
	}
	vt.Unset("ro")
	if _, ok := vt.GetVar("ro"); !ok {
		t.Fatal("read-only variable was unset")
	}
}
