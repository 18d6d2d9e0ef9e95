package memory

import "reflect"

// Ptr is a shared handle to a reference counted object. The zero value is a
// nil handle. Ptr values must not be copied with plain assignment when the
// copy is meant to own a reference: use Clone to share and Move to transfer.
type Ptr[T Object] struct {
	obj T
	set bool
}

// NewPtr returns a handle that adds its own reference to obj.
func NewPtr[T Object](obj T) Ptr[T] {
	p := Attach(obj)
	if p.set {
		obj.AddRef()
	}
	return p
}

// Attach returns a handle that adopts a reference already owned by the caller.
func Attach[T Object](obj T) Ptr[T] {
	if isNil(obj) {
		return Ptr[T]{}
	}
	return Ptr[T]{obj: obj, set: true}
}

// isNil also catches typed nil pointers stored in an interface.
func isNil(obj any) bool {
	if obj == nil {
		return true
	}
	v := reflect.ValueOf(obj)
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return v.IsNil()
	}
	return false
}

// Get returns the referenced object without changing its count.
func (p Ptr[T]) Get() T {
	return p.obj
}

func (p Ptr[T]) IsNil() bool {
	return !p.set
}

// Clone returns a second handle to the same object.
func (p Ptr[T]) Clone() Ptr[T] {
	if p.set {
		p.obj.AddRef()
	}
	return p
}

// Move transfers the reference to the returned handle and leaves p nil.
func (p *Ptr[T]) Move() Ptr[T] {
	moved := *p
	*p = Ptr[T]{}
	return moved
}

// Reset releases the held reference and returns the remaining count.
func (p *Ptr[T]) Reset() uint32 {
	if !p.set {
		return 0
	}
	obj := p.obj
	*p = Ptr[T]{}
	return obj.Release()
}

// Same reports whether both handles refer to the same object.
func (p Ptr[T]) Same(other Ptr[T]) bool {
	if p.set != other.set {
		return false
	}
	return !p.set || any(p.obj) == any(other.obj)
}
