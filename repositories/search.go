package repositories

import (
	"context"
	"log/slog"
	"time"

	"github.com/blugelabs/bluge"
	"github.com/google/uuid"

	"haven-chat/domain/chat"
)

// SearchIndex maintains a bluge full-text index over broadcast messages.
// Indexing happens asynchronously through the fanout sink, so the index is
// eventually consistent with the badger store.
type SearchIndex struct {
	writer *bluge.Writer
	log    *slog.Logger
}

func NewSearchIndex(writer *bluge.Writer, log *slog.Logger) *SearchIndex {
	return &SearchIndex{writer: writer, log: log}
}

func (s *SearchIndex) Index(msg chat.Message) error {
	doc := bluge.NewDocument(msg.ID.String()).
		AddField(bluge.NewTextField("content", msg.Content).StoreValue()).
		AddField(bluge.NewKeywordField("room", string(msg.Room))).
		AddField(bluge.NewStoredOnlyField("user_id", []byte(msg.UserID))).
		AddField(bluge.NewStoredOnlyField("nickname", []byte(msg.Nickname))).
		AddField(bluge.NewStoredOnlyField("risk_level", []byte(msg.RiskLevel))).
		AddField(bluge.NewStoredOnlyField("created_at", []byte(msg.CreatedAt.UTC().Format(time.RFC3339Nano))))

	return s.writer.Update(doc.ID(), doc)
}

// Search returns messages of one room matching the query, most relevant
// first. Results from other rooms are excluded by a mandatory term clause.
func (s *SearchIndex) Search(ctx context.Context, query string, room chat.RoomID, limit int) ([]chat.Message, error) {
	reader, err := s.writer.Reader()
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := reader.Close(); err != nil {
			s.log.Warn("failed to close index reader", "error", err)
		}
	}()

	boolQuery := bluge.NewBooleanQuery().
		AddMust(bluge.NewMatchQuery(query).SetField("content")).
		AddMust(bluge.NewTermQuery(string(room)).SetField("room"))

	iter, err := reader.Search(ctx, bluge.NewTopNSearch(limit, boolQuery))
	if err != nil {
		return nil, err
	}

	var messages []chat.Message
	for {
		match, err := iter.Next()
		if err != nil {
			return nil, err
		}
		if match == nil {
			break
		}

		msg := chat.Message{Room: room, RiskLevel: chat.RiskNone}
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			switch field {
			case "_id":
				if id, err := uuid.Parse(string(value)); err == nil {
					msg.ID = id
				}
			case "content":
				msg.Content = string(value)
			case "user_id":
				msg.UserID = string(value)
			case "nickname":
				msg.Nickname = string(value)
			case "risk_level":
				msg.RiskLevel = chat.RiskLevel(value)
			case "created_at":
				if at, err := time.Parse(time.RFC3339Nano, string(value)); err == nil {
					msg.CreatedAt = at
				}
			}
			return true
		})
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, nil
}
