package repositories

import (
	"dsatter-client/domain"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// MessageRepository keeps the history of delivered messages in BadgerDB.
type MessageRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) MessageRepository {
	return MessageRepository{db: db, log: log}
}

// StoreMessage persists a message in BadgerDB.
// The key is formatted as "msg:{chat_id}:{timestamp_padded}:{message_id}" so
// messages of a chat sort chronologically (19-digit zero padding keeps the
// lexicographical order) and a redelivered message overwrites itself.
func (m MessageRepository) StoreMessage(message domain.Message) error {
	bytes, err := encode(message)
	if err != nil {
		return err
	}
	return m.db.Update(func(txn *badger.Txn) error {
		return txn.Set(messageKey(message), bytes)
	})
}

// GetMessages returns up to limit messages of a chat, newest first.
// A limit of zero or less returns the whole history.
func (m MessageRepository) GetMessages(chatID int64, limit int) ([]domain.Message, error) {
	var messages []domain.Message
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := []byte(fmt.Sprintf("msg:%d:", chatID))
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		// Reverse iteration starts from the greatest key of the prefix
		seekKey := append(append([]byte{}, prefix...), 0xFF)
		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(messages) == limit {
				m.log.Debug(fmt.Sprintf("Maximum of %d message reached", limit))
				break
			}
			err := it.Item().Value(func(value []byte) error {
				message, err := decode(value)
				if err != nil {
					return err
				}
				messages = append(messages, message)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func messageKey(message domain.Message) []byte {
	return []byte(fmt.Sprintf("msg:%d:%019d:%d",
		message.ChatID,
		message.DateTime.UnixNano(),
		message.ID,
	))
}

// Identifiers are stored as strings, protobuf numbers would lose precision above 2^53.
func encode(message domain.Message) ([]byte, error) {
	record, err := structpb.NewStruct(map[string]any{
		domain.FieldMessageID: strconv.FormatInt(message.ID, 10),
		domain.FieldText:      message.Text,
		domain.FieldDateTime:  message.DateTime.UTC().Format(time.RFC3339Nano),
		domain.FieldSender:    message.Sender,
		domain.FieldChatID:    strconv.FormatInt(message.ChatID, 10),
	})
	if err != nil {
		return nil, err
	}
	return proto.Marshal(record)
}

func decode(value []byte) (domain.Message, error) {
	var record structpb.Struct
	if err := proto.Unmarshal(value, &record); err != nil {
		return domain.Message{}, err
	}
	fields := record.GetFields()

	id, err := strconv.ParseInt(fields[domain.FieldMessageID].GetStringValue(), 10, 64)
	if err != nil {
		return domain.Message{}, fmt.Errorf("stored messageId: %w", err)
	}
	chatID, err := strconv.ParseInt(fields[domain.FieldChatID].GetStringValue(), 10, 64)
	if err != nil {
		return domain.Message{}, fmt.Errorf("stored chatId: %w", err)
	}
	at, err := time.Parse(time.RFC3339Nano, fields[domain.FieldDateTime].GetStringValue())
	if err != nil {
		return domain.Message{}, fmt.Errorf("stored dateTime: %w", err)
	}
	return domain.Message{
		ID:       id,
		Text:     fields[domain.FieldText].GetStringValue(),
		DateTime: at,
		Sender:   fields[domain.FieldSender].GetStringValue(),
		ChatID:   chatID,
	}, nil
}
