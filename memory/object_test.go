package memory

import "testing"

type testObject struct {
	ObjectBase
	value     int
	destroyed int
}

func (o *testObject) Destroy() {
	o.destroyed++
}

type plainObject struct {
	ObjectBase
}

func TestAllocateStartsWithOneReference(t *testing.T) {
	obj := Allocate[testObject]()
	if got := obj.RefCounter().StrongRefCount(); got != 1 {
		t.Fatalf("expected 1 reference after Allocate, got %d", got)
	}
}

func TestAddRefReleaseRestoresCount(t *testing.T) {
	obj := Allocate[testObject]()

	for i := 0; i < 5; i++ {
		if got := obj.AddRef(); got != uint32(i+2) {
			t.Fatalf("AddRef #%d returned %d", i, got)
		}
	}
	for i := 0; i < 5; i++ {
		obj.Release()
	}

	if got := obj.RefCounter().StrongRefCount(); got != 1 {
		t.Fatalf("expected count to return to 1, got %d", got)
	}
	if obj.destroyed != 0 {
		t.Fatalf("object destroyed while still referenced")
	}
}

func TestDestroyRunsOnceAtZero(t *testing.T) {
	obj := Allocate[testObject]()
	obj.AddRef()

	if got := obj.Release(); got != 1 {
		t.Fatalf("expected 1, got %d", got)
	}
	if obj.destroyed != 0 {
		t.Fatalf("destroyed before the last release")
	}
	if got := obj.Release(); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
	if obj.destroyed != 1 {
		t.Fatalf("expected exactly one destroy, got %d", obj.destroyed)
	}

	// over-release is a programming error; it must not destroy again
	obj.Release()
	if obj.destroyed != 1 {
		t.Fatalf("destroy ran %d times", obj.destroyed)
	}
}

func TestAllocateWithoutDestroyer(t *testing.T) {
	obj := Allocate[plainObject]()
	if got := obj.Release(); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}

func TestUnallocatedObjectIsInert(t *testing.T) {
	var obj testObject
	if obj.AddRef() != 0 || obj.Release() != 0 {
		t.Fatalf("object without counter should report zero")
	}
}
