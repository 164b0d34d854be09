package hooks

import (
	"context"
	"testing"
)

func TestRegisterAndFetch(t *testing.T) {
	r := NewRegistry()
	h := Hooks{Active: func(*Action) bool { return true }}
	if err := r.Register("Site", h); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if _, ok := r.Fetch("site"); !ok {
		t.Fatalf("expected fetch ok")
	}
	if r.Status("site") != "registered" {
		t.Fatalf("expected registered status")
	}
	if r.Status("missing") != "missing" {
		t.Fatalf("expected missing status")
	}
}

func TestRegisterDuplicate(t *testing.T) {
	r := NewRegistry()
	if err := r.Register("dup", Hooks{}); err != nil {
		t.Fatalf("first register failed: %v", err)
	}
	if err := r.Register(" DUP ", Hooks{}); err != ErrDuplicateHook {
		t.Fatalf("expected ErrDuplicateHook, got %v", err)
	}
	if err := r.Register("  ", Hooks{}); err == nil {
		t.Fatalf("blank name should be rejected")
	}
}

func TestSnapshot(t *testing.T) {
	r := NewRegistry()
	_ = r.Register("a", Hooks{})
	snap := r.Snapshot([]string{"a", "b"})
	if snap["a"] != "registered" {
		t.Fatalf("expected a registered, got %s", snap["a"])
	}
	if snap["b"] != "missing" {
		t.Fatalf("expected b missing, got %s", snap["b"])
	}
}

func TestActiveForKeepsOrderAndSkipsNilPredicate(t *testing.T) {
	r := NewRegistry()
	var calls []string
	r.MustRegister("second", Hooks{Active: func(a *Action) bool {
		calls = append(calls, "second")
		return a.ID == "home"
	}})
	r.MustRegister("first", Hooks{Active: func(a *Action) bool {
		calls = append(calls, "first")
		return true
	}})
	r.MustRegister("never", Hooks{})

	active := r.ActiveFor(&Action{ID: "home"})
	if len(active) != 2 {
		t.Fatalf("expected 2 active hooks, got %d", len(active))
	}
	if calls[0] != "second" || calls[1] != "first" {
		t.Fatalf("hooks should be evaluated in registration order, got %v", calls)
	}
	if got := r.ActiveFor(&Action{ID: "about"}); len(got) != 1 {
		t.Fatalf("expected 1 active hook for about, got %d", len(got))
	}
	if names := r.Names(); len(names) != 3 || names[2] != "never" {
		t.Fatalf("unexpected names %v", names)
	}
}

func TestActionCtxFallsBackToBackground(t *testing.T) {
	var a *Action
	if a.Ctx() == nil {
		t.Fatalf("nil action should yield background context")
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if (&Action{Context: ctx}).Ctx() != ctx {
		t.Fatalf("explicit context should be returned")
	}
}
