package vm

import (
	"strings"
)

// Output is the append-only queue of text produced by the program.
type Output struct {
	chunks []string
}

// Append queues text for the host.
func (out *Output) Append(text string) {
	out.chunks = append(out.chunks, text)
}

// Drain returns all queued text and empties the queue.
func (out *Output) Drain() (chunks []string) {
	chunks = out.chunks
	out.chunks = nil
	return
}

// Len is the number of queued chunks.
func (out *Output) Len() int {
	return len(out.chunks)
}

// String returns the queued text without draining it.
func (out *Output) String() string {
	return strings.Join(out.chunks, "")
}
