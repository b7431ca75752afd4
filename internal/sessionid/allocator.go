// Package sessionid allocates process-unique SessionID tokens.
package sessionid

import (
	"fmt"
	"sync/atomic"
)

// Allocator hands out "session_N" tokens, monotonically increasing and
// unique for the life of the process. The zero value is ready to use.
type Allocator struct {
	counter atomic.Uint64
}

// Next returns the next SessionID. Safe for concurrent use.
func (a *Allocator) Next() string {
	n := a.counter.Add(1)
	return fmt.Sprintf("session_%d", n)
}
