package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_SetMode(t *testing.T) {
	t.Run("mode switch clears history", func(t *testing.T) {
		s := NewSession("s1")
		s.AppendUser("hello")
		s.AppendAssistant("hi")

		s.SetMode(true)

		assert.Empty(t, s.History())
		assert.True(t, s.RAGMode())
	})

	t.Run("same mode keeps history", func(t *testing.T) {
		s := NewSession("s1")
		s.AppendUser("hello")

		s.SetMode(false)

		assert.Len(t, s.History(), 1)
		assert.False(t, s.RAGMode())
	})

	t.Run("switching back clears again", func(t *testing.T) {
		s := NewSession("s1")
		s.SetMode(true)
		s.AppendUser("grounded question")

		s.SetMode(false)

		assert.Empty(t, s.History())
		assert.False(t, s.RAGMode())
	})
}

func TestSession_History(t *testing.T) {
	t.Run("appends keep arrival order", func(t *testing.T) {
		s := NewSession("s1")
		s.AppendUser("q1")
		s.AppendAssistant("a1")
		s.AppendUser("q2")

		h := s.History()
		require.Len(t, h, 3)
		assert.Equal(t, Message{Role: RoleUser, Content: "q1"}, h[0])
		assert.Equal(t, Message{Role: RoleAssistant, Content: "a1"}, h[1])
		assert.Equal(t, Message{Role: RoleUser, Content: "q2"}, h[2])
	})

	t.Run("returned history is a copy", func(t *testing.T) {
		s := NewSession("s1")
		s.AppendUser("original")

		h := s.History()
		h[0].Content = "mutated"

		assert.Equal(t, "original", s.History()[0].Content)
	})
}

func TestDomainError(t *testing.T) {
	t.Run("message includes code and wrapped error", func(t *testing.T) {
		inner := assert.AnError
		err := NewEmbeddingFailure(inner)

		assert.Contains(t, err.Error(), ErrCodeEmbeddingFailure)
		assert.ErrorIs(t, err, inner)
	})

	t.Run("no grounding is a distinguishable outcome", func(t *testing.T) {
		assert.Equal(t, ErrCodeNoGrounding, ErrNoGrounding.Code)
	})
}
