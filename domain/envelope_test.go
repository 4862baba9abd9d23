package domain

import (
	"dsatter-client/errors"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeFrame(t *testing.T) {
	req := require.New(t)

	frame, err := DecodeFrame([]byte(`{"type":"newMessagesForClient","payload":[{"a":1},{"b":2}]}`))

	req.NoError(err)
	req.Equal(NewMessagesForClient, frame.Type)
	req.Len(frame.Payload, 2)
}

func TestDecodeFrame_Malformed(t *testing.T) {
	cases := map[string]string{
		"not json":         `{"type":`,
		"missing type":     `{"payload":[]}`,
		"missing payload":  `{"type":"clientSyncReply"}`,
		"payload not list": `{"type":"clientSyncReply","payload":{"text":"hi"}}`,
		"null payload":     `{"type":"clientSyncReply","payload":null}`,
		"type not string":  `{"type":3,"payload":[]}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeFrame([]byte(raw))
			require.ErrorIs(t, err, errors.ErrMalformedFrame)
		})
	}
}

func TestDecodeElement_Keeps_Numbers(t *testing.T) {
	req := require.New(t)

	element, err := DecodeElement(json.RawMessage(`{"chatId":11,"messageId":"7"}`))

	req.NoError(err)
	req.Equal(json.Number("11"), element[FieldChatID])
	req.Equal("7", element[FieldMessageID])

	_, err = DecodeElement(json.RawMessage(`true`))
	req.Error(err)
}

func TestEncodeOutgoing(t *testing.T) {
	req := require.New(t)

	frame, err := EncodeOutgoing(OutgoingMessage{Text: "hi", Sender: "Alice", ChatID: 11})

	req.NoError(err)
	req.JSONEq(`{"type":"newMessageFromClient","payload":[{"text":"hi","sender":"Alice","chatId":11}]}`, frame)
}

func TestParseEndpoint(t *testing.T) {
	req := require.New(t)

	endpoint, err := ParseEndpoint("ws://node-1.local:9090")
	req.NoError(err)
	req.Equal(Endpoint{Address: "node-1.local", Port: 9090}, endpoint)
	req.Equal("ws://node-1.local:9090", endpoint.URL())

	endpoint, err = ParseEndpoint("127.0.0.1:8080")
	req.NoError(err)
	req.Equal(Endpoint{Address: "127.0.0.1", Port: 8080}, endpoint)

	for _, raw := range []string{"ws://node-1.local", "ws://:8080", "ws://host:port"} {
		_, err = ParseEndpoint(raw)
		req.ErrorIs(err, errors.ErrInvalidEndpoint, raw)
	}
}

func TestEndpoint_UnmarshalJSON_Port_As_String(t *testing.T) {
	req := require.New(t)
	var endpoints []Endpoint

	err := json.Unmarshal([]byte(`[{"address":"a","port":1},{"address":"b","port":"2"}]`), &endpoints)

	req.NoError(err)
	req.Equal([]Endpoint{{Address: "a", Port: 1}, {Address: "b", Port: 2}}, endpoints)
}
