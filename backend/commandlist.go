package backend

// CommandListBackend records commands into the backend-native command buffer.
// CommandListBase drives it and owns all state transitions.
type CommandListBackend interface {
	BeginRecording() error
	EndRecording() error
	ResetRecording() error
	RecordMemoryBarrier(buffer Buffer, desc MemoryBarrierDesc)
	RecordCopy(source, dest Buffer, region BufferCopyRegion)
	RecordDispatch(kernel Kernel, x, y, z uint32)
}

// CommandListBase implements the command list state machine on top of a
// CommandListBackend and a Fence. Backends embed it.
type CommandListBase struct {
	DeviceObjectBase[CommandListDesc]
	recorder CommandListBackend
	fence    Fence
	state    CommandListState
	// current is the recorder returned by the last Begin, nil once closed.
	current *CommandRecorder
}

// InitCommandList stores the collaborators created by the backend's Init.
func (c *CommandListBase) InitCommandList(desc CommandListDesc, fence Fence, recorder CommandListBackend) {
	c.InitBase(desc.Name, desc)
	c.fence = fence
	c.recorder = recorder
	c.state = CommandListInitial
}

// ResetCommandList drops the collaborators and returns the fence so the
// backend can release it.
func (c *CommandListBase) ResetCommandList() Fence {
	fence := c.fence
	c.closeRecorder()
	c.fence = nil
	c.recorder = nil
	c.state = CommandListInitial
	c.ResetBase()
	return fence
}

func (c *CommandListBase) Fence() Fence {
	return c.fence
}

// State reconciles a pending list against its fence.
func (c *CommandListBase) State() CommandListState {
	if c.state == CommandListPending && c.fence != nil && c.fence.State() == FenceSignaled {
		if c.Desc().OneTimeSubmit() {
			c.state = CommandListInvalid
		} else {
			c.state = CommandListExecutable
		}
	}
	return c.state
}

// Begin starts recording. The returned recorder must be closed with End; Record
// does that automatically.
func (c *CommandListBase) Begin() (*CommandRecorder, error) {
	if !Assert(c.recorder != nil, "command list %q is not initialized", c.DebugName()) {
		return nil, Errorf(InvalidOperation, "CommandList.Begin", "command list is not initialized")
	}
	if state := c.State(); !Assert(state == CommandListInitial,
		"command list %q: Begin called in state %s", c.DebugName(), state) {
		return nil, Errorf(InvalidOperation, "CommandList.Begin", "list is %s, expected Initial", state)
	}
	if err := c.recorder.BeginRecording(); err != nil {
		return nil, err
	}
	c.state = CommandListRecording
	c.current = &CommandRecorder{list: c}
	return c.current, nil
}

// Record runs fn between Begin and End. The recording is closed on every path
// out of fn; an error from fn is returned after closing.
func (c *CommandListBase) Record(fn func(r *CommandRecorder) error) (err error) {
	r, err := c.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if endErr := r.End(); err == nil {
			err = endErr
		}
	}()
	return fn(r)
}

// ResetState discards recorded commands and returns the list to Initial. An
// open recorder is closed without ending its recording.
func (c *CommandListBase) ResetState() {
	if c.recorder == nil {
		return
	}
	if state := c.State(); !Assert(state != CommandListPending,
		"command list %q: ResetState while the device is still executing it", c.DebugName()) {
		return
	}
	c.closeRecorder()
	if err := c.recorder.ResetRecording(); err != nil {
		Assert(false, "command list %q: reset failed: %v", c.DebugName(), err)
		return
	}
	c.state = CommandListInitial
}

// PrepareSubmit checks that the list is Executable.
func (c *CommandListBase) PrepareSubmit() error {
	if state := c.State(); !Assert(state == CommandListExecutable,
		"command list %q: Submit called in state %s", c.DebugName(), state) {
		return Errorf(InvalidOperation, "CommandList.Submit", "list is %s, expected Executable", state)
	}
	return nil
}

func (c *CommandListBase) closeRecorder() {
	if c.current != nil {
		c.current.closed = true
		c.current = nil
	}
}

// MarkPending records a successful submission.
func (c *CommandListBase) MarkPending() {
	c.state = CommandListPending
}

func (c *CommandListBase) end() error {
	c.current = nil
	if !Assert(c.state == CommandListRecording, "command list %q: End called in state %s", c.DebugName(), c.state) {
		return Errorf(InvalidOperation, "CommandList.End", "list is %s, expected Recording", c.state)
	}
	if err := c.recorder.EndRecording(); err != nil {
		c.state = CommandListInvalid
		return err
	}
	c.state = CommandListExecutable
	return nil
}

// CommandRecorder is the open recording scope of a command list.
type CommandRecorder struct {
	list   *CommandListBase
	closed bool
}

// open reports whether r is still the active recorder of its list.
func (r *CommandRecorder) open(op string) bool {
	return Assert(r != nil && !r.closed && r.list.current == r, "%s recorded on a closed command recorder", op)
}

// MemoryBarrier makes accesses of the first kind to buffer visible to accesses
// of the second, optionally transferring queue ownership.
func (r *CommandRecorder) MemoryBarrier(buffer Buffer, desc MemoryBarrierDesc) {
	if r.open("MemoryBarrier") {
		r.list.recorder.RecordMemoryBarrier(buffer, desc)
	}
}

func (r *CommandRecorder) Copy(source, dest Buffer, region BufferCopyRegion) {
	if !r.open("Copy") {
		return
	}
	if !Assert(regionFits(region.SourceOffset, region.Size, source.Desc().Size) &&
		regionFits(region.DestOffset, region.Size, dest.Desc().Size),
		"copy region %+v exceeds %q or %q", region, source.DebugName(), dest.DebugName()) {
		return
	}
	r.list.recorder.RecordCopy(source, dest, region)
}

// regionFits reports whether [offset, offset+size) lies within limit bytes
// without overflowing.
func regionFits(offset, size, limit uint64) bool {
	return size <= limit && offset <= limit-size
}

func (r *CommandRecorder) Dispatch(kernel Kernel, x, y, z uint32) {
	if r.open("Dispatch") {
		r.list.recorder.RecordDispatch(kernel, x, y, z)
	}
}

// End closes the recording. Calling it more than once is a no-op.
func (r *CommandRecorder) End() error {
	if r == nil || r.closed {
		return nil
	}
	r.closed = true
	if !Assert(r.list.current == r, "End called on a stale command recorder") {
		return nil
	}
	return r.list.end()
}
