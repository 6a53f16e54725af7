package host

import (
	"fmt"
	"io"
	"sync"

	"github.com/platinummonkey/cornerstone/pkg/plugins"
)

// ConsoleSender writes command output to a stream, one message per line
type ConsoleSender struct {
	mu  sync.Mutex
	out io.Writer
}

var _ plugins.CommandSender = (*ConsoleSender)(nil)

// NewConsoleSender creates a sender writing to out
func NewConsoleSender(out io.Writer) *ConsoleSender {
	return &ConsoleSender{out: out}
}

func (s *ConsoleSender) Name() string { return "Console" }

// SendMessage writes message followed by a newline
func (s *ConsoleSender) SendMessage(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.out, message)
}

// BufferSender collects messages in memory, e.g. for an HTTP response
type BufferSender struct {
	name string

	mu       sync.Mutex
	messages []string
}

var _ plugins.CommandSender = (*BufferSender)(nil)

// NewBufferSender creates an empty buffered sender
func NewBufferSender(name string) *BufferSender {
	return &BufferSender{name: name}
}

func (s *BufferSender) Name() string { return s.name }

func (s *BufferSender) SendMessage(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, message)
}

// Messages returns a copy of the collected messages
func (s *BufferSender) Messages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]string, len(s.messages))
	copy(result, s.messages)
	return result
}
