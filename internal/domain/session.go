package domain

import "sync"

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a conversation. History is append-only.
type Message struct {
	Role    Role
	Content string
}

// Prompt is the payload sent to the generative provider: a system context,
// optional few-shot examples and the conversation history.
type Prompt struct {
	Context  string
	Examples []Example
	Messages []Message
}

// Example is a few-shot input/output pair. The chat endpoint always sends an
// empty list today; the field exists because the provider wire format
// requires it.
type Example struct {
	Input  string
	Output string
}

// Session holds one conversation's message history and active retrieval
// mode. One instance exists per active conversation, in memory only.
//
// Single-writer discipline: callers must hold the session lock for the whole
// duration of a turn so that two concurrent turns against the same session
// cannot interleave. Different sessions proceed fully in parallel.
type Session struct {
	mu      sync.Mutex
	id      string
	ragMode bool
	history []Message
}

// NewSession creates an empty session with RAG disabled.
func NewSession(id string) *Session {
	return &Session{id: id}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Lock acquires the session's exclusive section for one turn.
func (s *Session) Lock() { s.mu.Lock() }

// Unlock releases the session's exclusive section.
func (s *Session) Unlock() { s.mu.Unlock() }

// SetMode records the requested retrieval mode. When the value differs from
// the stored one the history is cleared first: a mode switch starts a fresh
// conversation so grounding context cannot leak across modes. Setting the
// same mode twice never clears history.
func (s *Session) SetMode(rag bool) {
	if s.ragMode == rag {
		return
	}
	s.history = nil
	s.ragMode = rag
}

// RAGMode reports the active retrieval mode.
func (s *Session) RAGMode() bool {
	return s.ragMode
}

// AppendUser appends a user message to the history.
func (s *Session) AppendUser(content string) {
	s.history = append(s.history, Message{Role: RoleUser, Content: content})
}

// AppendAssistant appends an assistant message to the history.
func (s *Session) AppendAssistant(content string) {
	s.history = append(s.history, Message{Role: RoleAssistant, Content: content})
}

// History returns a copy of the message history.
func (s *Session) History() []Message {
	out := make([]Message, len(s.history))
	copy(out, s.history)
	return out
}
