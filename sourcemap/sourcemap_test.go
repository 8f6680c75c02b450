package sourcemap

import "testing"

func TestResolveSingleMatch(t *testing.T) {
	m := New(nil)
	m.Rebuild([]string{"/proj/src/main/scala/Foo.scala", "/proj/src/main/scala/Bar.scala"})

	path, ok := m.Resolve("Foo.scala")
	if !ok || path != "/proj/src/main/scala/Foo.scala" {
		t.Fatalf("Resolve(Foo.scala) = %q, %v", path, ok)
	}
}

func TestResolveUnknownFails(t *testing.T) {
	m := New(nil)
	m.Rebuild([]string{"/proj/src/main/scala/Foo.scala"})

	if _, ok := m.Resolve("Missing.scala"); ok {
		t.Fatalf("Resolve(Missing.scala) unexpectedly succeeded")
	}
}

func TestLookupReportsAmbiguity(t *testing.T) {
	m := New(nil)
	m.Rebuild([]string{
		"/proj/a/Foo.scala",
		"/proj/b/Foo.scala",
	})

	paths, ambiguous := m.Lookup("Foo.scala")
	if !ambiguous {
		t.Fatalf("expected ambiguous=true for two Foo.scala paths")
	}
	if len(paths) != 2 {
		t.Fatalf("expected 2 candidate paths, got %v", paths)
	}
	// Resolve picks the lexicographically first path deterministically.
	path, ok := m.Resolve("Foo.scala")
	if !ok || path != "/proj/a/Foo.scala" {
		t.Fatalf("Resolve(Foo.scala) = %q, %v, want /proj/a/Foo.scala, true", path, ok)
	}
}

func TestRebuildReplacesIndex(t *testing.T) {
	m := New(nil)
	m.Rebuild([]string{"/proj/Old.scala"})
	m.Rebuild([]string{"/proj/New.scala"})

	if _, ok := m.Resolve("Old.scala"); ok {
		t.Fatalf("Old.scala should not survive a Rebuild that omits it")
	}
	if _, ok := m.Resolve("New.scala"); !ok {
		t.Fatalf("New.scala should be resolvable after Rebuild")
	}
}
