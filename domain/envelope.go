package domain

import (
	"bytes"
	"dsatter-client/errors"
	"encoding/json"
	"fmt"
)

// MessageType is the tag carried by every frame exchanged with a node-server.
type MessageType string

const (
	ClientSyncRequest     MessageType = "clientSyncRequest"
	ClientSyncReply       MessageType = "clientSyncReply"
	NewMessageFromClient  MessageType = "newMessageFromClient"
	NewMessagesForClient  MessageType = "newMessagesForClient"
	ClientMessageResponse MessageType = "clientMessageResponse"
)

// Frame is one deserialized wire envelope.
// Payload elements are kept raw, each one is decoded by its handler.
type Frame struct {
	Type    MessageType
	Payload []json.RawMessage
}

type outgoingFrame struct {
	Type    MessageType       `json:"type"`
	Payload []OutgoingMessage `json:"payload"`
}

// OutgoingMessage is the element of a newMessageFromClient frame.
type OutgoingMessage struct {
	Text   string `json:"text"`
	Sender string `json:"sender"`
	ChatID int64  `json:"chatId"`
}

// DecodeFrame parses a raw frame. A frame that is not a JSON object,
// lacks "type" or "payload", or whose payload is not a list is malformed.
func DecodeFrame(data []byte) (Frame, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return Frame{}, fmt.Errorf("%w: %v", errors.ErrMalformedFrame, err)
	}
	rawType, hasType := fields["type"]
	rawPayload, hasPayload := fields["payload"]
	if !hasType || !hasPayload {
		return Frame{}, fmt.Errorf("%w: type or payload missing", errors.ErrMalformedFrame)
	}

	var frame Frame
	if err := json.Unmarshal(rawType, &frame.Type); err != nil {
		return Frame{}, fmt.Errorf("%w: type is not a string", errors.ErrMalformedFrame)
	}
	if bytes.Equal(bytes.TrimSpace(rawPayload), []byte("null")) {
		return Frame{}, fmt.Errorf("%w: payload is null", errors.ErrMalformedFrame)
	}
	if err := json.Unmarshal(rawPayload, &frame.Payload); err != nil {
		return Frame{}, fmt.Errorf("%w: payload is not a list", errors.ErrMalformedFrame)
	}
	return frame, nil
}

// DecodeElement decodes one payload element into a field mapping.
// Numbers are kept as json.Number so integers and floats stay distinguishable.
func DecodeElement(raw json.RawMessage) (map[string]any, error) {
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	var element map[string]any
	if err := decoder.Decode(&element); err != nil {
		return nil, err
	}
	if element == nil {
		return nil, fmt.Errorf("payload element is not an object")
	}
	return element, nil
}

// EncodeOutgoing serializes a newMessageFromClient frame carrying one element.
func EncodeOutgoing(msg OutgoingMessage) (string, error) {
	data, err := json.Marshal(outgoingFrame{
		Type:    NewMessageFromClient,
		Payload: []OutgoingMessage{msg},
	})
	if err != nil {
		return "", err
	}
	return string(data), nil
}
