// Package memory implements the conversation store: an ordered message list
// with an optional pinned system message and a bounded retention policy.
// Every mutation republishes the full current message list through an
// embedded stream source so observers can be piped from it.
package memory

import (
	"sync"

	"github.com/hupe1980/agentflow/core"
	"github.com/hupe1980/agentflow/logging"
	"github.com/hupe1980/agentflow/stream"
)

// Options configures a Conversation.
type Options struct {
	// SystemPrompt pins a system message at index 0. It survives retention
	// eviction and Clear.
	SystemPrompt string
	// MaxMessages bounds the number of retained messages. Zero or negative
	// means unbounded. The pinned system message counts toward the bound but
	// is never evicted.
	MaxMessages int
	// Logger receives mutation diagnostics. Defaults to NoOp.
	Logger logging.Logger
}

// Conversation is a volatile, process-local conversation store. It is safe
// for concurrent access; all reads return defensive copies.
type Conversation struct {
	mu          sync.Mutex
	messages    []core.Message
	system      *core.Message
	maxMessages int
	source      *stream.Source
	logger      logging.Logger
}

// New constructs a Conversation, pre-seeding the pinned system message when a
// system prompt is configured.
func New(optFns ...func(o *Options)) *Conversation {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	c := &Conversation{
		maxMessages: opts.MaxMessages,
		source:      stream.NewSource(),
		logger:      opts.Logger,
	}
	if opts.SystemPrompt != "" {
		sys := core.NewSystemMessage(opts.SystemPrompt)
		c.system = &sys
		c.messages = append(c.messages, sys)
	}
	return c
}

// Source exposes the stream on which every mutation publishes the full
// message list.
func (c *Conversation) Source() *stream.Source { return c.source }

// Append adds a message to the end of the list and enforces the retention
// bound, evicting the oldest non-system messages first.
func (c *Conversation) Append(msg core.Message) {
	c.mu.Lock()
	c.messages = append(c.messages, msg)
	c.enforceBoundLocked()
	snapshot := c.copyLocked()
	c.mu.Unlock()

	c.logger.Debug("memory.append", "role", string(msg.Role), "len", len(snapshot))
	c.source.Emit(snapshot)
}

// AppendUserText is shorthand for appending a plain-text user message.
func (c *Conversation) AppendUserText(text string) {
	c.Append(core.NewUserMessage(text))
}

// Messages returns a defensive copy of the current message list, never the
// live backing slice.
func (c *Conversation) Messages() []core.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.copyLocked()
}

// Len returns the number of stored messages.
func (c *Conversation) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.messages)
}

// Clear empties the store, re-inserting the pinned system message if one was
// configured at construction time.
func (c *Conversation) Clear() {
	c.mu.Lock()
	c.messages = c.messages[:0]
	if c.system != nil {
		c.messages = append(c.messages, *c.system)
	}
	snapshot := c.copyLocked()
	c.mu.Unlock()

	c.logger.Debug("memory.clear", "len", len(snapshot))
	c.source.Emit(snapshot)
}

// enforceBoundLocked drops the oldest evictable messages until the retention
// bound holds. With a pinned system message at index 0 eviction starts at
// index 1.
func (c *Conversation) enforceBoundLocked() {
	if c.maxMessages <= 0 {
		return
	}
	for len(c.messages) > c.maxMessages {
		if c.system != nil && len(c.messages) > 1 {
			c.messages = append(c.messages[:1], c.messages[2:]...)
		} else if c.system == nil {
			c.messages = c.messages[1:]
		} else {
			break
		}
	}
}

func (c *Conversation) copyLocked() []core.Message {
	out := make([]core.Message, len(c.messages))
	copy(out, c.messages)
	return out
}
