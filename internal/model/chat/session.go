package chat

import (
	"time"
	"unicode/utf8"
)

// TitleLimit is the number of runes kept from the first user message.
const TitleLimit = 30

// Session captures one owned conversation.
type Session struct {
	ID            string    `json:"id"`
	OwnerID       string    `json:"ownerId"`
	Title         string    `json:"title"`
	Messages      []Message `json:"messages"`
	CreatedAt     time.Time `json:"createdAt"`
	LastUpdatedAt time.Time `json:"lastUpdatedAt"`
}

// NewSession returns an empty session stamped with now.
func NewSession(id, ownerID string, now time.Time) *Session {
	return &Session{
		ID:            id,
		OwnerID:       ownerID,
		Messages:      make([]Message, 0, 16),
		CreatedAt:     now,
		LastUpdatedAt: now,
	}
}

// Append adds msg at the end of the conversation. The title is derived from the
// first user message and never recomputed afterwards.
func (s *Session) Append(msg Message, now time.Time) {
	if n := len(s.Messages); n > 0 && msg.CreatedAt.Before(s.Messages[n-1].CreatedAt) {
		msg.CreatedAt = s.Messages[n-1].CreatedAt
	}
	s.Messages = append(s.Messages, msg)
	if s.Title == "" && msg.Role == RoleUser {
		s.Title = DeriveTitle(msg.Content)
	}
	s.Touch(now)
}

// Touch refreshes LastUpdatedAt without letting it move backwards.
func (s *Session) Touch(now time.Time) {
	if now.After(s.LastUpdatedAt) {
		s.LastUpdatedAt = now
	}
}

// Last returns a pointer to the newest message, or nil for an empty session.
func (s *Session) Last() *Message {
	if len(s.Messages) == 0 {
		return nil
	}
	return &s.Messages[len(s.Messages)-1]
}

// Clone returns a copy that shares no message storage with s.
func (s Session) Clone() Session {
	out := s
	out.Messages = append([]Message(nil), s.Messages...)
	return out
}

// DeriveTitle cuts text to TitleLimit runes, appending "..." when truncated.
func DeriveTitle(text string) string {
	if utf8.RuneCountInString(text) <= TitleLimit {
		return text
	}
	runes := []rune(text)
	return string(runes[:TitleLimit]) + "..."
}
