package contracts

import "testing"

func TestSafeVarCommitDiscardsShadow(t *testing.T) {
	v := NewSafeVar(10)
	root := newFrame(nil)
	v.Set(root, 20)
	root.commit() // root has no parent: no-op, mutation stays

	if v.Get() != 20 {
		t.Fatalf("want 20, got %d", v.Get())
	}
}

func TestSafeVarRevertRestoresShadow(t *testing.T) {
	v := NewSafeVar(10)
	frame := newFrame(nil)
	v.Set(frame, 20)
	v.Set(frame, 30) // second mutation in same frame: shadow stays 10

	frame.revert(nil)
	if v.Get() != 10 {
		t.Fatalf("want 10, got %d", v.Get())
	}
}

func TestNestedRevertLeavesOuterIntact(t *testing.T) {
	v := NewSafeVar("a")
	outer := newFrame(nil)
	v.Set(outer, "b")

	inner := newFrame(outer)
	v.Set(inner, "c")
	inner.revert(nil)

	if v.Get() != "b" {
		t.Fatalf("want b, got %s", v.Get())
	}
}

func TestNestedCommitPropagatesToParentRevert(t *testing.T) {
	v := NewSafeVar(1)
	root := newFrame(nil)

	inner := newFrame(root)
	v.Set(inner, 2)
	inner.commit() // merges inner's undo into root

	root.revert(nil)
	if v.Get() != 1 {
		t.Fatalf("want 1 after outer revert, got %d", v.Get())
	}
}

func TestSafeMapInsertEraseRevert(t *testing.T) {
	m := NewSafeMap[string, int]()
	frame := newFrame(nil)
	m.Insert(frame, "x", 1)
	m.Insert(frame, "y", 2)
	m.Erase(frame, "x")

	frame.revert(nil)
	if m.Len() != 0 {
		t.Fatalf("want empty map after revert, got len %d", m.Len())
	}
}

func TestSafeMapCommitKeepsMutations(t *testing.T) {
	m := NewSafeMap[string, int]()
	frame := newFrame(nil)
	m.Insert(frame, "x", 1)
	frame.commit()

	if v, ok := m.Get("x"); !ok || v != 1 {
		t.Fatalf("want x=1 after commit, got %v %v", v, ok)
	}
}
