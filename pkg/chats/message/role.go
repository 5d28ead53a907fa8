package message

// Role tags a transcript entry: the system prompt, the user's query, a model
// reply, or the results of the tool calls that reply requested.
type Role string

const (
	System    Role = "system"
	User      Role = "user"
	Assistant Role = "assistant"
	Tool      Role = "tool"
)

func (r Role) String() string { return string(r) }
