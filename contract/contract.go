//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"dsatter-client/domain"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// Transport is one connection attempt to a node-server.
// Start returns immediately, the outcome is observed through
// IsConnected and HasConnectionError.
type Transport interface {
	Start()
	IsConnected() bool
	HasConnectionError() bool
	Terminate()
	Send(frame string) error
}

// FrameHandler receives every inbound frame of a Transport.
// It is called from the transport's own goroutine.
type FrameHandler func(frame string)

type TransportFactory interface {
	NewTransport(url string, onFrame FrameHandler) Transport
}

// Discovery returns the node-servers currently accepting clients.
type Discovery interface {
	ActiveNodes(ctx context.Context) ([]domain.Endpoint, error)
}

// SenderSlot holds the function forwarding serialized frames to the transport.
type SenderSlot interface {
	InstallSender(send func(frame string) error)
	ClearSender()
}

// Consumer receives batches of canonical message field mappings.
type Consumer func(batch []map[string]any)

type MessageRepository interface {
	StoreMessage(message domain.Message) error
	GetMessages(chatID int64, limit int) ([]domain.Message, error)
}
