// Package runtime interprets inbound frames and drives classification,
// persistence, and fan-out. It orchestrates the system without containing
// domain rules: risk scoring lives in risk, membership state in Registry.
package runtime

import (
	"context"
	"log/slog"
	"time"

	"haven-chat/contract"
	"haven-chat/domain/chat"
	"haven-chat/domain/event"
	"haven-chat/protocol"
	"haven-chat/risk"
)

type Orchestrator struct {
	log          *slog.Logger
	registry     contract.IRegistry
	repository   contract.IMessageRepository
	classifier   *risk.Classifier
	search       contract.ISearchIndex
	events       chan event.DomainEvent
	historyLimit int
	searchLimit  int
}

func NewOrchestrator(log *slog.Logger, registry contract.IRegistry,
	repository contract.IMessageRepository, classifier *risk.Classifier,
	search contract.ISearchIndex, bufferSize, historyLimit, searchLimit int) *Orchestrator {
	return &Orchestrator{
		log:          log,
		registry:     registry,
		repository:   repository,
		classifier:   classifier,
		search:       search,
		events:       make(chan event.DomainEvent, bufferSize),
		historyLimit: historyLimit,
		searchLimit:  searchLimit,
	}
}

// Events exposes the broadcast queue drained by the fanout worker.
func (o *Orchestrator) Events() chan event.DomainEvent {
	return o.events
}

// Dispatch queues an event for fan-out. Delivery is best effort: when the
// queue is full the event is dropped with a warning rather than blocking a
// connection's read loop.
func (o *Orchestrator) Dispatch(evt event.DomainEvent) {
	select {
	case o.events <- evt:
	default:
		o.log.Warn("event queue full, dropping event", "room_id", evt.RoomID())
	}
}

// HandleFrame processes one raw frame from a session. Frame handling is
// strictly sequential per connection because each session calls this from
// its single read loop. A bad frame earns a private error reply and nothing
// else: the connection stays open and other members are unaffected.
func (o *Orchestrator) HandleFrame(ctx context.Context, sess contract.Session, raw []byte) {
	frame, err := protocol.ParseInbound(raw)
	if err != nil {
		o.log.Debug("rejecting frame", "session_id", sess.ID(), "error", err)
		o.replyError(sess, "malformed frame")
		return
	}

	switch frame.Type {
	case protocol.TypeJoin:
		o.handleJoin(sess, frame)
	case protocol.TypeLeave:
		o.handleLeave(sess)
	case protocol.TypeChat:
		o.handleChat(ctx, sess, frame)
	case protocol.TypeSearch:
		o.handleSearch(ctx, sess, frame)
	}
}

// HandleDisconnect runs the cleanup shared by client closes and liveness
// evictions. A bound session leaves its room (guarded by connection
// identity, so a stale close never evicts a fresher membership) and the
// room is told; an unbound session disappears silently.
func (o *Orchestrator) HandleDisconnect(sess contract.Session) {
	binding, ok := sess.Binding()
	if !ok {
		return
	}
	sess.Unbind()
	if o.registry.Leave(binding.Room, binding.UserID, sess.ID()) {
		o.Dispatch(event.UserLeft{
			Room:     binding.Room,
			UserID:   binding.UserID,
			Nickname: binding.Nickname,
			At:       time.Now().UTC(),
		})
	}
}

func (o *Orchestrator) handleJoin(sess contract.Session, frame protocol.Inbound) {
	if frame.RoomID == "" || frame.UserID == "" || frame.Nickname == "" {
		o.replyError(sess, "join requires roomId, userId and nickname")
		return
	}

	// A second join on the same connection rebinds it; the prior room gets
	// a regular leave first.
	o.HandleDisconnect(sess)

	binding := chat.Binding{
		Room:     chat.RoomID(frame.RoomID),
		UserID:   frame.UserID,
		Nickname: frame.Nickname,
	}
	superseded := o.registry.Join(binding.Room, binding.UserID, binding.Nickname, sess)
	sess.Bind(binding)
	if superseded != nil {
		o.log.Info("membership superseded, terminating stale connection",
			"room_id", binding.Room, "user_id", binding.UserID, "stale_session_id", superseded.ID())
		superseded.Terminate()
	}

	// History is best effort: a storage failure degrades to an empty
	// history plus a notice, the join itself still succeeds.
	history, err := o.repository.ListRecent(binding.Room, o.historyLimit)
	if err != nil {
		o.log.Error("failed to fetch history", "room_id", binding.Room, "error", err)
		o.replyError(sess, "message history is temporarily unavailable")
		history = nil
	}
	payload, err := protocol.EncodeHistory(history)
	o.reply(sess, payload, err)

	o.Dispatch(event.UserJoined{
		Room:     binding.Room,
		UserID:   binding.UserID,
		Nickname: binding.Nickname,
		At:       time.Now().UTC(),
	})
}

func (o *Orchestrator) handleLeave(sess contract.Session) {
	// Leaving while unbound is a no-op, not an error
	o.HandleDisconnect(sess)
}

func (o *Orchestrator) handleChat(ctx context.Context, sess contract.Session, frame protocol.Inbound) {
	binding, ok := sess.Binding()
	if !ok {
		o.replyError(sess, "join a room before sending messages")
		return
	}
	if frame.Content == "" {
		o.replyError(sess, "chat requires content")
		return
	}

	verdict := o.classifier.Classify(ctx, frame.Content)

	// Broadcast strictly follows successful persistence so that every
	// message seen in a room exists in history.
	msg, err := o.repository.Insert(binding.Room, binding.UserID, binding.Nickname, frame.Content, verdict.Level)
	if err != nil {
		o.log.Error("failed to persist message", "room_id", binding.Room, "error", err)
		o.replyError(sess, "your message could not be saved and was not delivered")
		return
	}

	o.Dispatch(event.MessageBroadcast{Message: msg})

	// The advisory goes to the sender only; the room never sees it
	if verdict.IsCrisis {
		payload, err := protocol.EncodeCrisisAlert(
			verdict.Level,
			risk.ResourceMessage(verdict.Level),
			msg.CreatedAt,
		)
		o.reply(sess, payload, err)
	}
}

func (o *Orchestrator) handleSearch(ctx context.Context, sess contract.Session, frame protocol.Inbound) {
	binding, ok := sess.Binding()
	if !ok {
		o.replyError(sess, "join a room before searching")
		return
	}
	if frame.Content == "" {
		o.replyError(sess, "search requires content")
		return
	}

	results, err := o.search.Search(ctx, frame.Content, binding.Room, o.searchLimit)
	if err != nil {
		o.log.Error("search failed", "room_id", binding.Room, "error", err)
		o.replyError(sess, "search is temporarily unavailable")
		return
	}
	payload, err := protocol.EncodeSearchResults(results)
	o.reply(sess, payload, err)
}

func (o *Orchestrator) reply(sess contract.Session, payload []byte, err error) {
	if err != nil {
		o.log.Error("failed to encode reply", "session_id", sess.ID(), "error", err)
		return
	}
	if err := sess.Deliver(payload); err != nil {
		o.log.Debug("failed to deliver private reply", "session_id", sess.ID(), "error", err)
	}
}

func (o *Orchestrator) replyError(sess contract.Session, message string) {
	payload, err := protocol.EncodeError(message)
	o.reply(sess, payload, err)
}
