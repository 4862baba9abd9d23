package errors

import "fmt"

var (
	ErrWorkerPanic = fmt.Errorf("worker panic")

	// Message validation
	ErrMissingFields  = fmt.Errorf("required fields are missing from the new message")
	ErrInvalidMessage = fmt.Errorf("error while parsing the new message")

	// Inbound frames
	ErrMalformedFrame = fmt.Errorf("malformed frame")
	ErrUnknownType    = fmt.Errorf("unknown message type")

	// Outbound path
	ErrTransportUnavailable = fmt.Errorf("websocket message sender not installed")
	ErrNotConnected         = fmt.Errorf("transport is not connected")

	// Status
	ErrUsernameTooShort = fmt.Errorf("username must be at least 4 characters long")

	// Connection lifecycle
	ErrDiscoveryUnreachable = fmt.Errorf("discovery node unreachable")
	ErrNoActiveNodes        = fmt.Errorf("discovery node failed to suggest node-server endpoint")
	ErrInvalidEndpoint      = fmt.Errorf("invalid node-server url")
	ErrNoCandidates         = fmt.Errorf("no candidate endpoint")
	ErrLifecycleExhausted   = fmt.Errorf("could not open a connection to any node-server")
)
