package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewID_IsValidObjectID(t *testing.T) {
	id := NewID()
	assert.Len(t, id, 24)
	assert.True(t, IsValidObjectID(id))
	assert.NotEqual(t, id, NewID())
}

func TestIsValidObjectID(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"hex_24", "507f1f77bcf86cd799439011", true},
		{"too_short", "507f1f77bcf86cd79943901", false},
		{"not_hex", "zzzf1f77bcf86cd799439011", false},
		{"username", "alice", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidObjectID(tt.input))
		})
	}
}

func TestIsValidIdentifier(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"object_id", "507f1f77bcf86cd799439011", true},
		{"username", "alice", true},
		{"dotted", "carol.smith_2", true},
		{"empty", "", false},
		{"space", "bob smith", false},
		{"leading_dash", "-bob", false},
		{"too_long", "a1234567890123456789012345678901234567890123456789012345678901234", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidIdentifier(tt.input))
		})
	}
}

func TestMessageInput_Validate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, MessageInput{Msg: "hi", MsgFrom: "alice"}.Validate())
	})

	t.Run("blank_body", func(t *testing.T) {
		err := MessageInput{Msg: "   ", MsgFrom: "alice"}.Validate()
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("bad_sender", func(t *testing.T) {
		err := MessageInput{Msg: "hi", MsgFrom: "not valid"}.Validate()
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestPersistenceError(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewPersistenceError("save chat", cause)

	assert.ErrorIs(t, err, ErrPersistence)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "save chat: connection reset", err.Error())

	wrapped := fmt.Errorf("outer: %w", err)
	var pe *PersistenceError
	assert.True(t, errors.As(wrapped, &pe))
	assert.Equal(t, "save chat", pe.Op)

	assert.NoError(t, NewPersistenceError("noop", nil))
}

func TestPopulatedChat_HasParticipant(t *testing.T) {
	chat := &PopulatedChat{Participants: []string{"alice", "bob"}}
	assert.True(t, chat.HasParticipant("bob"))
	assert.False(t, chat.HasParticipant("carol"))
}
