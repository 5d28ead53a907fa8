// Package chat provides the append-only transcript of a single query.
package chat

import (
	"github.com/germanamz/mcpchat/pkg/chats/message"
)

// Chat is an ordered, append-only sequence of messages. The zero value is
// ready to use. Chat is not safe for concurrent use.
type Chat struct {
	messages []message.Message
}

// New creates a Chat seeded with the given messages.
func New(msgs ...message.Message) *Chat {
	return &Chat{messages: msgs}
}

// Append adds messages to the end of the transcript.
func (c *Chat) Append(msgs ...message.Message) {
	c.messages = append(c.messages, msgs...)
}

// Len returns the number of messages.
func (c *Chat) Len() int {
	return len(c.messages)
}

// Messages returns a copy of the transcript.
func (c *Chat) Messages() []message.Message {
	cp := make([]message.Message, len(c.messages))
	copy(cp, c.messages)
	return cp
}
