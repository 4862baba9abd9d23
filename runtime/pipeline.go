package runtime

import (
	"context"
	"dsatter-client/contract"
	"dsatter-client/domain"
	"dsatter-client/errors"
	"fmt"
	"log/slog"
	"sync"
)

type pipelineItem struct {
	message domain.Message
	stop    bool
}

// Pipeline decouples the transport receive callback from the presentation layer.
// OnRawFrame validates frames eagerly and queues accepted messages, Run is the
// single consumer handing them, in arrival order, to the installed Consumer.
type Pipeline struct {
	log    *slog.Logger
	status *Status
	chatID int64
	queue  *Queue[pipelineItem]

	consumerMu sync.RWMutex
	consumer   contract.Consumer

	senderMu sync.RWMutex
	send     func(frame string) error
}

func NewPipeline(log *slog.Logger, status *Status, chatID int64) *Pipeline {
	return &Pipeline{
		log:    log,
		status: status,
		chatID: chatID,
		queue:  NewQueue[pipelineItem](),
	}
}

func (p *Pipeline) InstallConsumer(consumer contract.Consumer) {
	p.consumerMu.Lock()
	defer p.consumerMu.Unlock()
	p.log.Debug("Message consumer installed")
	p.consumer = consumer
}

func (p *Pipeline) InstallSender(send func(frame string) error) {
	p.senderMu.Lock()
	defer p.senderMu.Unlock()
	p.send = send
}

func (p *Pipeline) ClearSender() {
	p.senderMu.Lock()
	defer p.senderMu.Unlock()
	p.send = nil
}

// SubmitOutgoing sends text typed by the user to the node-server.
// It never blocks on the queue and never fails the caller, problems are logged.
func (p *Pipeline) SubmitOutgoing(text string) {
	if len(text) == 0 {
		return
	}

	frame, err := domain.EncodeOutgoing(domain.OutgoingMessage{
		Text:   text,
		Sender: p.status.Username(),
		ChatID: p.chatID,
	})
	if err != nil {
		p.log.Error("Failed to encode outgoing message", "error", err)
		return
	}

	p.senderMu.RLock()
	send := p.send
	p.senderMu.RUnlock()

	if send == nil {
		p.log.Info("Discarding new message", "error", errors.ErrTransportUnavailable)
		return
	}
	if err = send(frame); err != nil {
		p.log.Error("Failed to send new message", "error", err)
	}
}

// OnRawFrame is the transport receive callback, called from the transport goroutine.
// Nothing escapes it: undecodable or unknown frames are logged and dropped.
func (p *Pipeline) OnRawFrame(raw string) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("Panic while handling incoming frame", "panic", r)
		}
	}()

	frame, err := domain.DecodeFrame([]byte(raw))
	if err != nil {
		p.log.Error("Discarding incoming message", "error", err)
		return
	}

	route, ok := RouteFor(frame.Type)
	if !ok {
		p.log.Info("Received unknown message type, ignoring",
			"error", errors.ErrUnknownType, "type", frame.Type, "frame", raw)
		return
	}

	switch route {
	case RouteIgnored:
		p.log.Debug("Ignoring frame", "type", frame.Type, "route", route, "elements", len(frame.Payload))
	case RouteDeliver:
		for i, element := range frame.Payload {
			p.deliver(i, element)
		}
	case RouteAcknowledge:
		for _, element := range frame.Payload {
			p.log.Debug("Message acknowledged by node-server", "route", route, "response", string(element))
		}
	}
}

// deliver validates one payload element and queues it.
// A rejected element is dropped, its siblings are still processed.
func (p *Pipeline) deliver(index int, element []byte) {
	fields, err := domain.DecodeElement(element)
	if err != nil {
		p.log.Warn("Error when handling incoming message", "index", index, "error", err)
		return
	}

	msg, err := domain.NewMessage(fields)
	if err != nil {
		if invalid, ok := err.(domain.InvalidFieldsError); ok {
			for _, v := range invalid.Violations {
				p.log.Warn(fmt.Sprintf("Parsing new message, %s %s", v.Field, v.Reason), "index", index)
			}
		}
		p.log.Warn("Error when handling incoming message", "index", index, "error", err)
		return
	}

	p.queue.Put(pipelineItem{message: msg})
}

// Run delivers queued messages one by one until Terminate is observed.
// Messages arriving while no consumer is installed are dropped.
func (p *Pipeline) Run(ctx context.Context) error {
	p.log.Debug("Message handler started")
	for {
		item, err := p.queue.Take(ctx)
		if err != nil {
			return err
		}
		if item.stop {
			p.log.Debug("Message handler stopping")
			return nil
		}

		p.consumerMu.RLock()
		consumer := p.consumer
		p.consumerMu.RUnlock()

		if consumer == nil {
			continue
		}
		consumer([]map[string]any{item.message.Fields()})
	}
}

// Terminate asks Run to stop once every message queued before it is delivered.
// Messages queued afterwards may never be delivered.
func (p *Pipeline) Terminate() {
	p.queue.Put(pipelineItem{stop: true})
}

// Pending reports how many items wait in the queue.
func (p *Pipeline) Pending() int {
	return p.queue.Len()
}
