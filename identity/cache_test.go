package identity

import (
	"testing"

	"github.com/scala-ide/sdbg/wire/fake"
)

func TestRememberIsIdempotent(t *testing.T) {
	c := New()
	obj := fake.NewObject(fake.NextObjectID(), "scala.Foo", nil)

	first := c.Remember(obj)
	second := c.Remember(obj)
	if first != second {
		t.Fatalf("Remember returned different handles for the same object")
	}

	got, ok := c.Lookup(obj.ID())
	if !ok || got != first {
		t.Fatalf("Lookup(%v) = %v, %v; want %v, true", obj.ID(), got, ok, first)
	}
}

func TestRememberKeepsFirstHandlePerID(t *testing.T) {
	c := New()
	id := fake.NextObjectID()
	first := fake.NewObject(id, "scala.Foo", nil)
	second := fake.NewObject(id, "scala.Foo", nil) // distinct Go value, same target ID

	c.Remember(first)
	got := c.Remember(second)
	if got != first {
		t.Fatalf("Remember should keep the first handle recorded for a given ID")
	}
}

func TestClearDropsEverything(t *testing.T) {
	c := New()
	obj := fake.NewObject(fake.NextObjectID(), "scala.Foo", nil)
	c.Remember(obj)
	c.Clear()

	if c.Len() != 0 {
		t.Fatalf("Len() = %d after Clear, want 0", c.Len())
	}
	if _, ok := c.Lookup(obj.ID()); ok {
		t.Fatalf("Lookup succeeded after Clear")
	}
}
