package memory

import (
	"sync/atomic"

	"github.com/andewx/dieselcompute/internal/logging"
)

// Object is implemented by every reference counted entity.
type Object interface {
	// AddRef adds a strong reference and returns the new count.
	AddRef() uint32
	// Release drops a strong reference and returns the new count. The object is
	// destroyed when the count reaches zero.
	Release() uint32
}

// Destroyer is implemented by objects that must free resources when their
// last reference is released.
type Destroyer interface {
	Destroy()
}

// ReferenceCounter is the strong reference count of one object. It lives in
// the same allocation as the object it counts.
type ReferenceCounter struct {
	strong    atomic.Int32
	destroyed atomic.Bool
	destroy   func()
}

// StrongRefCount returns the current number of strong references.
func (c *ReferenceCounter) StrongRefCount() uint32 {
	n := c.strong.Load()
	if n < 0 {
		return 0
	}
	return uint32(n)
}

func (c *ReferenceCounter) addStrongRef() uint32 {
	return uint32(c.strong.Add(1))
}

func (c *ReferenceCounter) releaseStrongRef() uint32 {
	n := c.strong.Add(-1)
	switch {
	case n > 0:
		return uint32(n)
	case n < 0:
		c.strong.Store(0)
		logging.For("memory").Error("release called on an object with no strong references")
		return 0
	}
	if c.destroyed.CompareAndSwap(false, true) && c.destroy != nil {
		c.destroy()
	}
	return 0
}

// ObjectBase implements Object. Embed it and create the value with Allocate.
type ObjectBase struct {
	counter *ReferenceCounter
}

func (o *ObjectBase) attachRefCounter(c *ReferenceCounter) {
	if o.counter != nil {
		panic("memory: reference counter attached twice")
	}
	o.counter = c
}

// RefCounter returns the counter attached to the object, nil if the object was
// not created with Allocate.
func (o *ObjectBase) RefCounter() *ReferenceCounter {
	return o.counter
}

func (o *ObjectBase) AddRef() uint32 {
	if o.counter == nil {
		return 0
	}
	return o.counter.addStrongRef()
}

func (o *ObjectBase) Release() uint32 {
	if o.counter == nil {
		return 0
	}
	return o.counter.releaseStrongRef()
}

type counterAttacher interface {
	attachRefCounter(c *ReferenceCounter)
}

type block[T any] struct {
	counter ReferenceCounter
	value   T
}

// Allocate creates a T together with its reference counter in a single
// allocation and returns it holding one strong reference. If *T implements
// Destroyer, Destroy runs exactly once when the last reference is released.
func Allocate[T any, PT interface {
	*T
	Object
}]() PT {
	b := new(block[T])
	p := PT(&b.value)
	attacher, ok := any(p).(counterAttacher)
	if !ok {
		panic("memory: allocated type does not embed ObjectBase")
	}
	attacher.attachRefCounter(&b.counter)
	if d, ok := any(p).(Destroyer); ok {
		b.counter.destroy = d.Destroy
	}
	b.counter.strong.Store(1)
	return p
}
