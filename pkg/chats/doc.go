// Package chats holds the transcript data model exchanged with the chat model.
//
// It is organized into sub-packages:
//   - [github.com/germanamz/mcpchat/pkg/chats/content] — message parts (text, tool call, tool result)
//   - [github.com/germanamz/mcpchat/pkg/chats/message] — role-tagged messages composed of parts
//   - [github.com/germanamz/mcpchat/pkg/chats/chat] — append-only transcript for one query
//
// Nothing here talks to a provider; adapters translate these types to their
// wire format.
package chats
