package agent

import "testing"

func TestIterationGrant_TakeAccumulatesUntilTaken(t *testing.T) {
	var g IterationGrant
	g.Grant(2)
	g.Grant(3)
	if n := g.Take(); n != 5 {
		t.Errorf("Take() = %d, want 5", n)
	}
	if n := g.Take(); n != 0 {
		t.Errorf("second Take() = %d, want 0 (cleared)", n)
	}
}

func TestIterationGrant_IgnoresNonPositive(t *testing.T) {
	var g IterationGrant
	g.Grant(0)
	g.Grant(-1)
	if n := g.Take(); n != 0 {
		t.Errorf("Take() = %d, want 0", n)
	}
}

func TestIterationGrant_NilReceiverSafe(t *testing.T) {
	var g *IterationGrant
	g.Grant(5)
	if n := g.Take(); n != 0 {
		t.Errorf("Take() on nil = %d, want 0", n)
	}
}

func TestModelSwitch_TakeClearsPending(t *testing.T) {
	var s ModelSwitch
	s.Request("grn")
	slot, ok := s.Take()
	if !ok || slot != "grn" {
		t.Fatalf("Take() = (%q, %v), want (grn, true)", slot, ok)
	}
	if _, ok := s.Take(); ok {
		t.Error("second Take() should report no pending switch")
	}
}

func TestModelSwitch_RequestOverwritesUnread(t *testing.T) {
	var s ModelSwitch
	s.Request("grn")
	s.Request("blu")
	slot, ok := s.Take()
	if !ok || slot != "blu" {
		t.Fatalf("Take() = (%q, %v), want (blu, true)", slot, ok)
	}
}

func TestModelSwitch_IgnoresEmptySlot(t *testing.T) {
	var s ModelSwitch
	s.Request("")
	if _, ok := s.Take(); ok {
		t.Error("Take() should report no pending switch for an empty Request")
	}
}

func TestModelSwitch_NilReceiverSafe(t *testing.T) {
	var s *ModelSwitch
	s.Request("grn")
	if _, ok := s.Take(); ok {
		t.Error("Take() on nil should report no pending switch")
	}
}
