package handler

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"fakeso-chat/internal/domain"

	"github.com/go-playground/validator/v10"
)

// dateOnly is accepted for msgDateTime alongside RFC 3339 timestamps
const dateOnly = "2006-01-02"

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	mustRegister(v, "identifier", func(fl validator.FieldLevel) bool {
		return domain.IsValidIdentifier(fl.Field().String())
	})
	mustRegister(v, "notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	mustRegister(v, "timestamp", func(fl validator.FieldLevel) bool {
		_, err := parseTimestamp(fl.Field().String())
		return err == nil
	})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %s validation: %v", tag, err))
	}
}

// parseTimestamp accepts RFC 3339 timestamps, with or without fractional
// seconds, and bare dates.
func parseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	return time.Parse(dateOnly, s)
}

// MessageRequest is a message as sent by clients
type MessageRequest struct {
	Msg         string `json:"msg" validate:"required,notblank"`
	MsgFrom     string `json:"msgFrom" validate:"required,identifier"`
	MsgDateTime string `json:"msgDateTime,omitempty" validate:"omitempty,timestamp"`
}

// Input converts a validated request into a service input
func (m MessageRequest) Input() domain.MessageInput {
	in := domain.MessageInput{Msg: m.Msg, MsgFrom: m.MsgFrom}
	if m.MsgDateTime != "" {
		// already validated
		in.MsgDateTime, _ = parseTimestamp(m.MsgDateTime)
	}
	return in
}

// InitialMessageRequest is a message supplied at chat creation. Unlike
// appended messages it carries its own kind, stored as given.
type InitialMessageRequest struct {
	Msg         string             `json:"msg" validate:"required,notblank"`
	MsgFrom     string             `json:"msgFrom" validate:"required,identifier"`
	MsgDateTime string             `json:"msgDateTime,omitempty" validate:"omitempty,timestamp"`
	Type        domain.MessageType `json:"type,omitempty" validate:"omitempty,max=32"`
}

// Input converts a validated request into a service input
func (m InitialMessageRequest) Input() domain.MessageInput {
	in := MessageRequest{Msg: m.Msg, MsgFrom: m.MsgFrom, MsgDateTime: m.MsgDateTime}.Input()
	in.Type = m.Type
	return in
}

// CreateChatRequest represents chat creation request
type CreateChatRequest struct {
	Participants []string                `json:"participants" validate:"required,min=1,unique,dive,identifier"`
	Messages     []InitialMessageRequest `json:"messages,omitempty" validate:"omitempty,dive"`
}

// AddParticipantRequest represents the participant addition request
type AddParticipantRequest struct {
	ParticipantID string `json:"participantId" validate:"required,identifier"`
}

// validationMessage renders the first failed rule as a short client message
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		field := fe.Namespace()
		if _, rest, ok := strings.Cut(field, "."); ok {
			field = rest
		}
		switch fe.Tag() {
		case "required", "min":
			return fmt.Sprintf("%s is required", field)
		case "unique":
			return fmt.Sprintf("%s must not contain duplicates", field)
		default:
			return fmt.Sprintf("invalid %s", field)
		}
	}
	return "Invalid request body"
}
