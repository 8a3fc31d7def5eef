package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"haven-chat/domain/chat"
)

type MessageRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) MessageRepository {
	return MessageRepository{db: db, log: log}
}

// diskMessage is the stored shape; it stays decoupled from the wire payload
// so either can evolve alone.
type diskMessage struct {
	ID        uuid.UUID      `json:"id"`
	Room      string         `json:"room"`
	UserID    string         `json:"userId"`
	Nickname  string         `json:"nickname"`
	Content   string         `json:"content"`
	At        time.Time      `json:"at"`
	RiskLevel chat.RiskLevel `json:"riskLevel"`
}

// Insert persists a message in BadgerDB, assigning its ID and server
// timestamp. The key is formatted as "msg:{room_escaped}:{timestamp_padded}:{uuid}" to:
//  1. Ensure chronological sorting using 19-digit zero padding (lexicographical order).
//  2. Prevent data loss by using UUID as a collision disconnector if two messages
//     arrive at the same nanosecond.
//
// The room segment is query-escaped: room ids are client-chosen and may contain
// ":", which would otherwise fold one room's keys into another room's scan range.
func (m MessageRepository) Insert(room chat.RoomID, userID, nickname, content string, level chat.RiskLevel) (chat.Message, error) {
	msg := chat.Message{
		ID:        uuid.New(),
		Room:      room,
		UserID:    userID,
		Nickname:  nickname,
		Content:   content,
		CreatedAt: time.Now().UTC(),
		RiskLevel: level,
	}

	bytes, err := json.Marshal(toDiskMessage(msg))
	if err != nil {
		return chat.Message{}, err
	}
	err = m.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(messageKey(msg)), bytes)
	})
	if err != nil {
		return chat.Message{}, err
	}
	return msg, nil
}

// ListRecent returns the most recent messages of a room, oldest first.
// Thanks to the padded timestamp in the key, a reverse prefix scan yields
// the newest entries; the slice is flipped before returning.
func (m MessageRepository) ListRecent(room chat.RoomID, limit int) ([]chat.Message, error) {
	var collected [][]byte
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := roomPrefix(room)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		// Seek past the newest possible key of this room
		seekKey := append(append([]byte{}, prefix...), []byte("9999999999999999999")...)
		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			if len(collected) == limit {
				break
			}
			err := it.Item().Value(func(value []byte) error {
				collected = append(collected, append([]byte{}, value...))
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

	messages := make([]chat.Message, 0, len(collected))
	for i := len(collected) - 1; i >= 0; i-- {
		var disk diskMessage
		if err := json.Unmarshal(collected[i], &disk); err != nil {
			return nil, err
		}
		messages = append(messages, fromDiskMessage(disk))
	}
	return messages, nil
}

func messageKey(msg chat.Message) string {
	return fmt.Sprintf("%s%019d:%s", roomPrefix(msg.Room), msg.CreatedAt.UnixNano(), msg.ID)
}

// roomPrefix bounds the scan range of a single room. The escaped room segment
// never contains a raw ":", so no room id can be a key prefix of another.
func roomPrefix(room chat.RoomID) []byte {
	return []byte(fmt.Sprintf("msg:%s:", url.QueryEscape(string(room))))
}

func toDiskMessage(msg chat.Message) diskMessage {
	return diskMessage{
		ID:        msg.ID,
		Room:      string(msg.Room),
		UserID:    msg.UserID,
		Nickname:  msg.Nickname,
		Content:   msg.Content,
		At:        msg.CreatedAt,
		RiskLevel: msg.RiskLevel,
	}
}

func fromDiskMessage(disk diskMessage) chat.Message {
	return chat.Message{
		ID:        disk.ID,
		Room:      chat.RoomID(disk.Room),
		UserID:    disk.UserID,
		Nickname:  disk.Nickname,
		Content:   disk.Content,
		CreatedAt: disk.At,
		RiskLevel: lo.Ternary(disk.RiskLevel == "", chat.RiskNone, disk.RiskLevel),
	}
}
