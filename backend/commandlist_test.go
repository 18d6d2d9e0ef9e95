package backend

import (
	"errors"
	"math"
	"testing"
)

func recordCopy(t *testing.T, l *testList) {
	t.Helper()
	src, dst := newFakeBuffer("src", 64), newFakeBuffer("dst", 64)
	err := l.Record(func(r *CommandRecorder) error {
		r.Copy(src, dst, BufferCopyRegion{Size: 64})
		return nil
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
}

func TestCommandListLifecycle(t *testing.T) {
	l, fence, rec := newTestList(CommandListNone)

	if s := l.State(); s != CommandListInitial {
		t.Fatalf("new list should be Initial, got %s", s)
	}

	r, err := l.Begin()
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if s := l.State(); s != CommandListRecording {
		t.Fatalf("expected Recording, got %s", s)
	}
	r.Dispatch(nil, 1, 1, 1)
	if err := r.End(); err != nil {
		t.Fatalf("End: %v", err)
	}
	if s := l.State(); s != CommandListExecutable {
		t.Fatalf("expected Executable, got %s", s)
	}

	if err := l.Submit(); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if s := l.State(); s != CommandListPending {
		t.Fatalf("expected Pending, got %s", s)
	}
	if fence.State() != FenceReset {
		t.Fatalf("Submit should reset the fence")
	}

	fence.SignalOnCpu()
	if s := l.State(); s != CommandListExecutable {
		t.Fatalf("reusable list should return to Executable, got %s", s)
	}

	// resubmission of the same recording
	if err := l.Submit(); err != nil {
		t.Fatalf("second Submit: %v", err)
	}
	fence.SignalOnCpu()

	l.ResetState()
	if s := l.State(); s != CommandListInitial {
		t.Fatalf("expected Initial after ResetState, got %s", s)
	}
	if rec.resets != 1 || len(rec.commands) != 0 {
		t.Fatalf("ResetState should discard recorded commands")
	}
}

func TestOneTimeSubmitBecomesInvalid(t *testing.T) {
	l, fence, _ := newTestList(CommandListOneTimeSubmit)
	recordCopy(t, l)

	if err := l.Submit(); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	fence.SignalOnCpu()
	if s := l.State(); s != CommandListInvalid {
		t.Fatalf("one-time list should be Invalid after completion, got %s", s)
	}
	if err := l.Submit(); !errors.Is(err, InvalidOperation) {
		t.Fatalf("submitting an invalid list should fail with InvalidOperation, got %v", err)
	}
}

func TestSubmitOnlyFromExecutable(t *testing.T) {
	l, _, _ := newTestList(CommandListNone)

	if err := l.Submit(); !errors.Is(err, InvalidOperation) {
		t.Fatalf("Submit in Initial: expected InvalidOperation, got %v", err)
	}

	r, err := l.Begin()
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := l.Submit(); !errors.Is(err, InvalidOperation) {
		t.Fatalf("Submit while Recording: expected InvalidOperation, got %v", err)
	}
	r.End()

	if err := l.Submit(); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := l.Submit(); !errors.Is(err, InvalidOperation) {
		t.Fatalf("Submit while Pending: expected InvalidOperation, got %v", err)
	}
	if l.submits != 1 {
		t.Fatalf("rejected submits must not execute, got %d submissions", l.submits)
	}
}

func TestBeginRequiresInitial(t *testing.T) {
	l, _, _ := newTestList(CommandListNone)
	recordCopy(t, l)

	r, err := l.Begin()
	if r != nil || !errors.Is(err, InvalidOperation) {
		t.Fatalf("Begin on an Executable list should fail, got %v", err)
	}
}

func TestRecordClosesOnError(t *testing.T) {
	l, _, rec := newTestList(CommandListNone)
	boom := errors.New("boom")

	var kept *CommandRecorder
	err := l.Record(func(r *CommandRecorder) error {
		kept = r
		r.MemoryBarrier(nil, MemoryBarrierDesc{SourceAccess: AccessTransferWrite, DestAccess: AccessKernelRead})
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected the callback error, got %v", err)
	}
	if rec.ends != 1 {
		t.Fatalf("recording should be closed, EndRecording called %d times", rec.ends)
	}
	if s := l.State(); s != CommandListExecutable {
		t.Fatalf("expected Executable, got %s", s)
	}

	// the recorder is closed: further commands are dropped and End is a no-op
	kept.Dispatch(nil, 1, 1, 1)
	if err := kept.End(); err != nil {
		t.Fatalf("second End: %v", err)
	}
	if len(rec.commands) != 1 {
		t.Fatalf("expected only the barrier, got %v", rec.commands)
	}
}

func TestCopyOutOfRangeIsDropped(t *testing.T) {
	l, _, rec := newTestList(CommandListNone)
	src, dst := newFakeBuffer("src", 16), newFakeBuffer("dst", 16)

	l.Record(func(r *CommandRecorder) error {
		r.Copy(src, dst, BufferCopyRegion{Size: 16, SourceOffset: 8})
		return nil
	})
	if len(rec.commands) != 0 {
		t.Fatalf("out of range copy should not be recorded, got %v", rec.commands)
	}
}

func TestEndFailureInvalidatesList(t *testing.T) {
	l, _, rec := newTestList(CommandListNone)
	rec.endErr = Errorf(OutOfMemory, "EndRecording", "no memory")

	err := l.Record(func(r *CommandRecorder) error { return nil })
	if CodeOf(err) != OutOfMemory {
		t.Fatalf("expected OutOfMemory, got %v", err)
	}
	if s := l.State(); s != CommandListInvalid {
		t.Fatalf("expected Invalid, got %s", s)
	}
}

func TestResetStateClosesOpenRecorder(t *testing.T) {
	l, _, rec := newTestList(CommandListNone)

	stale, err := l.Begin()
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	l.ResetState()
	if s := l.State(); s != CommandListInitial {
		t.Fatalf("expected Initial after ResetState, got %s", s)
	}

	stale.Dispatch(nil, 1, 1, 1)
	if len(rec.commands) != 0 {
		t.Fatalf("closed recorder recorded %v", rec.commands)
	}

	fresh, err := l.Begin()
	if err != nil {
		t.Fatalf("Begin after ResetState: %v", err)
	}
	if err := stale.End(); err != nil {
		t.Fatalf("End on a closed recorder: %v", err)
	}
	if s := l.State(); s != CommandListRecording {
		t.Fatalf("old recorder must not end the new recording, state is %s", s)
	}

	fresh.Dispatch(nil, 2, 1, 1)
	if err := fresh.End(); err != nil {
		t.Fatalf("End: %v", err)
	}
	if s := l.State(); s != CommandListExecutable {
		t.Fatalf("expected Executable, got %s", s)
	}
	if len(rec.commands) != 1 || rec.ends != 1 {
		t.Fatalf("expected one dispatch and one EndRecording, got %v and %d", rec.commands, rec.ends)
	}
}

func TestCopyOverflowingRegionIsDropped(t *testing.T) {
	l, _, rec := newTestList(CommandListNone)
	src, dst := newFakeBuffer("src", 64), newFakeBuffer("dst", 64)

	regions := []BufferCopyRegion{
		{SourceOffset: math.MaxUint64 - 7, Size: 16},
		{DestOffset: math.MaxUint64 - 7, Size: 16},
		{Size: math.MaxUint64},
	}
	l.Record(func(r *CommandRecorder) error {
		for _, region := range regions {
			r.Copy(src, dst, region)
		}
		r.Copy(src, dst, BufferCopyRegion{SourceOffset: 48, DestOffset: 0, Size: 16})
		return nil
	})
	if len(rec.commands) != 1 {
		t.Fatalf("only the in-range copy should be recorded, got %v", rec.commands)
	}
}
