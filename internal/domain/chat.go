package domain

// ChatMessage is the provider-agnostic chat message shape shared by the
// oracle clients and prompt assembly.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
