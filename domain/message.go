// Package domain contains core concepts of the chat client.
// This file defines inbound Messages and the rules validating them.
// Messages are immutable once built by NewMessage.
package domain

import (
	"dsatter-client/errors"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
)

// DateTimeLayout is the wire format of a message timestamp (UTC, microseconds).
// It is used for rendering, parsing goes through dateTimeShape.
const DateTimeLayout = "2006-01-02T15:04:05.000000Z"

// dateTimeShape accepts 1 to 6 fractional digits, the fraction is mandatory.
var dateTimeShape = regexp.MustCompile(`^\d{4}-\d\d-\d\dT\d\d:\d\d:\d\d\.\d{1,6}Z$`)

const (
	FieldMessageID = "messageId"
	FieldText      = "text"
	FieldDateTime  = "dateTime"
	FieldSender    = "sender"
	FieldChatID    = "chatId"
)

var requiredFields = []string{FieldMessageID, FieldText, FieldDateTime, FieldSender, FieldChatID}

// Message represents one validated chat message received from a node-server.
type Message struct {
	ID       int64
	Text     string
	DateTime time.Time
	Sender   string
	ChatID   int64
}

// MissingFieldsError lists the required fields absent from a payload element.
type MissingFieldsError struct {
	Fields []string
}

func (e MissingFieldsError) Error() string {
	return fmt.Sprintf("required fields: '%s' are missing from the new message", strings.Join(e.Fields, "', '"))
}

func (e MissingFieldsError) Is(target error) bool {
	return target == errors.ErrMissingFields
}

// FieldViolation describes one field that failed its type check or conversion.
type FieldViolation struct {
	Field  string
	Reason string
}

// InvalidFieldsError gathers every violation found in a payload element.
type InvalidFieldsError struct {
	Violations []FieldViolation
}

func (e InvalidFieldsError) Error() string {
	reasons := lo.Map(e.Violations, func(v FieldViolation, _ int) string {
		return fmt.Sprintf("%s %s", v.Field, v.Reason)
	})
	return fmt.Sprintf("%s: %s", errors.ErrInvalidMessage, strings.Join(reasons, "; "))
}

func (e InvalidFieldsError) Is(target error) bool {
	return target == errors.ErrInvalidMessage
}

// NewMessage validates a decoded payload element and converts it into a Message.
// Presence of all required fields is checked first. Then every field is checked,
// without stopping at the first failure, so the returned InvalidFieldsError
// reports all of them. messageId is coerced from its numeric string form,
// chatId must already be an integer.
func NewMessage(raw map[string]any) (Message, error) {
	missing := lo.Filter(requiredFields, func(field string, _ int) bool {
		_, ok := raw[field]
		return !ok
	})
	if len(missing) > 0 {
		return Message{}, MissingFieldsError{Fields: missing}
	}

	var (
		msg        Message
		violations []FieldViolation
	)
	fail := func(field, reason string) {
		violations = append(violations, FieldViolation{Field: field, Reason: reason})
	}

	if s, ok := raw[FieldMessageID].(string); !ok {
		fail(FieldMessageID, "is not of type string")
	} else if id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err != nil {
		fail(FieldMessageID, "cannot be converted to an integer")
	} else {
		msg.ID = id
	}

	if s, ok := raw[FieldText].(string); !ok {
		fail(FieldText, "is not of type string")
	} else {
		msg.Text = s
	}

	if s, ok := raw[FieldDateTime].(string); !ok {
		fail(FieldDateTime, "is not of type string")
	} else if at, err := parseDateTime(s); err != nil {
		fail(FieldDateTime, fmt.Sprintf("has invalid format: %v", err))
	} else {
		msg.DateTime = at
	}

	if s, ok := raw[FieldSender].(string); !ok {
		fail(FieldSender, "is not of type string")
	} else {
		msg.Sender = s
	}

	if id, ok := asInteger(raw[FieldChatID]); !ok {
		fail(FieldChatID, "is not of type int")
	} else {
		msg.ChatID = id
	}

	if len(violations) > 0 {
		return Message{}, InvalidFieldsError{Violations: violations}
	}
	return msg, nil
}

func parseDateTime(s string) (time.Time, error) {
	if !dateTimeShape.MatchString(s) {
		return time.Time{}, fmt.Errorf("%q does not match YYYY-MM-DDTHH:MM:SS.fZ", s)
	}
	return time.Parse(time.RFC3339Nano, s)
}

// asInteger accepts integral JSON numbers and Go integer types.
// Numeric strings and floats are rejected.
func asInteger(v any) (int64, bool) {
	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	default:
		return 0, false
	}
}

// Less orders messages by their timestamp only.
func (m Message) Less(other Message) bool {
	return m.DateTime.Before(other.DateTime)
}

// Fields returns the canonical field mapping handed to the presentation layer.
func (m Message) Fields() map[string]any {
	return map[string]any{
		FieldMessageID: m.ID,
		FieldText:      m.Text,
		FieldDateTime:  m.DateTime,
		FieldSender:    m.Sender,
		FieldChatID:    m.ChatID,
	}
}

func (m Message) String() string {
	return fmt.Sprintf("Message %d from %s at %s in chat %d: %s",
		m.ID, m.Sender, m.DateTime.Format(DateTimeLayout), m.ChatID, m.Text)
}

// MessageFromFields rebuilds a Message from the mapping returned by Fields.
func MessageFromFields(fields map[string]any) (Message, error) {
	id, okID := fields[FieldMessageID].(int64)
	text, okText := fields[FieldText].(string)
	at, okAt := fields[FieldDateTime].(time.Time)
	sender, okSender := fields[FieldSender].(string)
	chatID, okChat := fields[FieldChatID].(int64)
	if !okID || !okText || !okAt || !okSender || !okChat {
		return Message{}, fmt.Errorf("%w: not a canonical field mapping", errors.ErrInvalidMessage)
	}
	return Message{ID: id, Text: text, DateTime: at, Sender: sender, ChatID: chatID}, nil
}
