package sink

import (
	"context"
	"log/slog"

	"haven-chat/contract"
	"haven-chat/domain/event"
)

// SearchSink feeds broadcast messages into the full-text index. Indexing is
// a side effect of a successful broadcast; a failure is logged and never
// blocks delivery.
type SearchSink struct {
	index contract.ISearchIndex
	log   *slog.Logger
}

func NewSearchSink(index contract.ISearchIndex, log *slog.Logger) SearchSink {
	return SearchSink{index: index, log: log}
}

func (s SearchSink) Consume(_ context.Context, e event.DomainEvent) error {
	if evt, ok := e.(event.MessageBroadcast); ok {
		return s.index.Index(evt.Message)
	}
	return nil
}
