package sink

import (
	"dsatter-client/contract"
	"dsatter-client/domain"
	"log/slog"
)

// HistorySink records every delivered message before passing the batch on.
// A storage failure is logged and never prevents delivery.
type HistorySink struct {
	log        *slog.Logger
	repository contract.MessageRepository
	next       contract.Consumer
}

func NewHistorySink(log *slog.Logger, repository contract.MessageRepository, next contract.Consumer) *HistorySink {
	return &HistorySink{log: log, repository: repository, next: next}
}

func (h *HistorySink) Consume(batch []map[string]any) {
	for _, fields := range batch {
		msg, err := domain.MessageFromFields(fields)
		if err != nil {
			h.log.Warn("Not recording message in history", "error", err)
			continue
		}
		if err = h.repository.StoreMessage(msg); err != nil {
			h.log.Error("Failed to record message in history", "messageId", msg.ID, "error", err)
		}
	}
	if h.next != nil {
		h.next(batch)
	}
}
