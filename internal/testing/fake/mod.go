// Package fake provides the test doubles shared by the packages of the module.
// Most of them can be configured to fail with the error of GetError, and some
// record their calls.
package fake

import (
	"sync"

	"golang.org/x/xerrors"
)

var fakeErr = xerrors.New("fake error")

// GetError returns the error of the fakes.
func GetError() error {
	return fakeErr
}

// Err returns the message of the fake error wrapped by the prefix.
func Err(msg string) string {
	return msg + ": " + fakeErr.Error()
}

// Call records the arguments of the calls of a function. A nil Call ignores
// the calls.
type Call struct {
	sync.Mutex
	calls [][]interface{}
}

// NewCall returns an empty record.
func NewCall() *Call {
	return &Call{}
}

// Get returns the argument i of the call n.
func (c *Call) Get(n, i int) interface{} {
	if c == nil {
		return nil
	}

	c.Lock()
	defer c.Unlock()

	return c.calls[n][i]
}

// Len returns the number of calls.
func (c *Call) Len() int {
	if c == nil {
		return 0
	}

	c.Lock()
	defer c.Unlock()

	return len(c.calls)
}

// Add records a call.
func (c *Call) Add(args ...interface{}) {
	if c == nil {
		return
	}

	c.Lock()
	c.calls = append(c.calls, args)
	c.Unlock()
}

// Clear forgets the calls.
func (c *Call) Clear() {
	if c == nil {
		return
	}

	c.Lock()
	c.calls = nil
	c.Unlock()
}

// Counter counts down the operations before a fake starts failing. A nil
// counter is always done.
type Counter struct {
	Value int
}

// NewCounter returns a counter of the value.
func NewCounter(value int) *Counter {
	return &Counter{Value: value}
}

// Done returns true when the counter reached zero.
func (c *Counter) Done() bool {
	return c == nil || c.Value <= 0
}

// Decrease decrements the counter.
func (c *Counter) Decrease() {
	if c != nil {
		c.Value--
	}
}
