package backend

import (
	"errors"
	"fmt"
	"strings"
)

// ResultCode is the process-wide result taxonomy. Every non-Success code is an
// error value, so functions return it (or an *Error wrapping it) through the
// plain error interface.
type ResultCode int

const (
	Success ResultCode = iota
	Fail
	Abort
	NotImplemented
	InvalidOperation
	InvalidArguments
	AccessDenied
	Timeout
	OutOfMemory
)

var resultCodeNames = [...]string{
	Success:          "Success",
	Fail:             "Fail",
	Abort:            "Abort",
	NotImplemented:   "NotImplemented",
	InvalidOperation: "InvalidOperation",
	InvalidArguments: "InvalidArguments",
	AccessDenied:     "AccessDenied",
	Timeout:          "Timeout",
	OutOfMemory:      "OutOfMemory",
}

func (c ResultCode) String() string {
	if c >= 0 && int(c) < len(resultCodeNames) {
		return resultCodeNames[c]
	}
	return fmt.Sprintf("ResultCode(%d)", int(c))
}

func (c ResultCode) Error() string {
	return c.String()
}

func (c ResultCode) Succeeded() bool {
	return c == Success
}

func (c ResultCode) Failed() bool {
	return c != Success
}

// Error carries a result code together with the failing operation and an
// optional cause.
type Error struct {
	Code    ResultCode
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	if e.Message != "" {
		b.WriteString(e.Message)
	} else {
		b.WriteString(e.Code.String())
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	if e.Message != "" {
		fmt.Fprintf(&b, " (%s)", e.Code)
	}
	return b.String()
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Code}
	}
	return []error{e.Code, e.Err}
}

// Errorf builds an *Error with a formatted message.
func Errorf(code ResultCode, op, format string, args ...any) error {
	return &Error{Code: code, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a result code and an operation name to err. A nil err stays nil.
func Wrap(code ResultCode, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Op: op, Err: err}
}

// CodeOf extracts the result code from err. Errors without one map to Fail.
func CodeOf(err error) ResultCode {
	if err == nil {
		return Success
	}
	var code ResultCode
	if errors.As(err, &code) {
		return code
	}
	return Fail
}
