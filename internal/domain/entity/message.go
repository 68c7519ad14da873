package entity

type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Message is one turn of the planning conversation. Tool observations
// are fed back as user turns with an OBS: prefix, so no dedicated tool
// role exists in this vocabulary.
type Message struct {
	Role    MessageRole
	Content string
}
