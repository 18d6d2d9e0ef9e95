package backend

import "github.com/andewx/dieselcompute/memory"

// DeviceObjectBase holds what every device object shares: the owning device,
// the descriptor captured at Init, the debug name and the init state.
type DeviceObjectBase[D any] struct {
	memory.ObjectBase
	device ComputeDevice
	desc   D
	name   string
	state  ObjectState
}

// Bind records the owning device. Devices call it right after allocation.
func (o *DeviceObjectBase[D]) Bind(device ComputeDevice) {
	o.device = device
}

func (o *DeviceObjectBase[D]) Device() ComputeDevice {
	return o.device
}

func (o *DeviceObjectBase[D]) Desc() D {
	return o.desc
}

func (o *DeviceObjectBase[D]) DebugName() string {
	return o.name
}

func (o *DeviceObjectBase[D]) ObjectState() ObjectState {
	return o.state
}

func (o *DeviceObjectBase[D]) Initialized() bool {
	return o.state == Initialized
}

// InitBase stores the descriptor snapshot.
func (o *DeviceObjectBase[D]) InitBase(name string, desc D) {
	o.name = name
	o.desc = desc
}

// SetDesc replaces the descriptor once Init has computed final values.
func (o *DeviceObjectBase[D]) SetDesc(desc D) {
	o.desc = desc
}

// FinishInit moves the object to Initialized or Failed and returns err.
func (o *DeviceObjectBase[D]) FinishInit(err error) error {
	if err != nil {
		o.state = Failed
		return err
	}
	o.state = Initialized
	return nil
}

// ResetBase returns the object to Uninitialized. It reports whether the object
// held anything worth releasing.
func (o *DeviceObjectBase[D]) ResetBase() bool {
	wasSet := o.state != Uninitialized
	var zero D
	o.desc = zero
	o.state = Uninitialized
	return wasSet
}
