package breakpoint

import "testing"

func TestAddPendingThenPromote(t *testing.T) {
	r := New()
	p := Point{File: "/src/Foo.scala", Line: 10}

	r.AddPending(p)
	if got := r.PendingForFile("Foo.scala"); len(got) != 1 || got[0] != p {
		t.Fatalf("PendingForFile = %v, want [%v]", got, p)
	}

	r.PromotePending(p)
	active, pending := r.List()
	if len(pending) != 0 {
		t.Fatalf("pending not cleared after promote: %v", pending)
	}
	if len(active) != 1 || active[0] != p {
		t.Fatalf("active = %v, want [%v]", active, p)
	}
}

func TestAddActiveRemovesMatchingPending(t *testing.T) {
	r := New()
	p := Point{File: "/src/Foo.scala", Line: 10}
	r.AddPending(p)
	r.AddActive(p)

	active, pending := r.List()
	if len(pending) != 0 {
		t.Fatalf("expected no pending entries, got %v", pending)
	}
	if len(active) != 1 || active[0] != p {
		t.Fatalf("active = %v, want [%v]", active, p)
	}
}

func TestAddPendingIgnoresAlreadyActive(t *testing.T) {
	r := New()
	p := Point{File: "/src/Foo.scala", Line: 10}
	r.AddActive(p)
	r.AddPending(p)

	_, pending := r.List()
	if len(pending) != 0 {
		t.Fatalf("expected AddPending to no-op for an active point, got %v", pending)
	}
}

func TestRemoveClearsBothSets(t *testing.T) {
	r := New()
	active := Point{File: "/src/Foo.scala", Line: 10}
	pending := Point{File: "/src/Foo.scala", Line: 20}
	r.AddActive(active)
	r.AddPending(pending)

	r.Remove(active)
	r.Remove(pending)

	gotActive, gotPending := r.List()
	if len(gotActive) != 0 || len(gotPending) != 0 {
		t.Fatalf("expected both sets empty, got active=%v pending=%v", gotActive, gotPending)
	}
}

func TestDemoteAllToPending(t *testing.T) {
	r := New()
	p1 := Point{File: "/src/A.scala", Line: 1}
	p2 := Point{File: "/src/B.scala", Line: 2}
	r.AddActive(p1)
	r.AddActive(p2)

	r.DemoteAllToPending()

	active, _ := r.List()
	if len(active) != 0 {
		t.Fatalf("expected no active points after demotion, got %v", active)
	}
	if got := r.PendingForFile("A.scala"); len(got) != 1 || got[0] != p1 {
		t.Fatalf("PendingForFile(A.scala) = %v, want [%v]", got, p1)
	}
	if got := r.PendingForFile("B.scala"); len(got) != 1 || got[0] != p2 {
		t.Fatalf("PendingForFile(B.scala) = %v, want [%v]", got, p2)
	}
}

func TestClearAll(t *testing.T) {
	r := New()
	r.AddActive(Point{File: "/src/A.scala", Line: 1})
	r.AddPending(Point{File: "/src/B.scala", Line: 2})

	r.ClearAll()

	active, pending := r.List()
	if len(active) != 0 || len(pending) != 0 {
		t.Fatalf("expected empty registry after ClearAll, got active=%v pending=%v", active, pending)
	}
}
