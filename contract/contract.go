//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"haven-chat/domain/chat"
	"haven-chat/domain/event"
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

// Conn is the delivery side of one live transport connection.
// Deliver must never block; a full queue is reported as an error and the
// payload is dropped for that connection only.
type Conn interface {
	ID() string
	Deliver(payload []byte) error
	Open() bool
	Terminate()
}

// Session is a Conn plus the lifecycle binding set by a successful join.
// A session is bound to at most one (room, user) pair at a time; a second
// join rebinds it.
type Session interface {
	Conn
	Bind(b chat.Binding)
	Unbind()
	Binding() (chat.Binding, bool)
}

// EventSink consumes every event leaving the fanout, independently of room
// membership (storage indexes, telemetry, projections).
type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

type IRegistry interface {
	Join(room chat.RoomID, userID, nickname string, conn Conn) (previous Conn)
	Leave(room chat.RoomID, userID, connID string) bool
	MembersOf(room chat.RoomID) []Membership
}

// Membership is one live (room, user) entry in the registry.
type Membership struct {
	Conn     Conn
	UserID   string
	Nickname string
}

type IMessageRepository interface {
	Insert(room chat.RoomID, userID, nickname, content string, level chat.RiskLevel) (chat.Message, error)
	ListRecent(room chat.RoomID, limit int) ([]chat.Message, error)
}

type ISearchIndex interface {
	Index(msg chat.Message) error
	Search(ctx context.Context, query string, room chat.RoomID, limit int) ([]chat.Message, error)
}
