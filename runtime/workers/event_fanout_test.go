package workers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"haven-chat/contract"
	"haven-chat/domain/chat"
	"haven-chat/domain/event"
	"haven-chat/mocks"
	"haven-chat/protocol"
	"haven-chat/sink"
)

func broadcastOf(room chat.RoomID, content string) event.MessageBroadcast {
	return event.MessageBroadcast{Message: chat.Message{
		ID:        uuid.New(),
		Room:      room,
		UserID:    "u1",
		Nickname:  "alice",
		Content:   content,
		CreatedAt: time.Now().UTC(),
		RiskLevel: chat.RiskNone,
	}}
}

func TestFanout_Delivers_Same_Payload_To_Every_Open_Member(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	registry := mocks.NewMockIRegistry(ctrl)
	conn1 := mocks.NewMockConn(ctrl)
	conn2 := mocks.NewMockConn(ctrl)

	room := chat.RoomID("support")
	evt := broadcastOf(room, "hello room")

	var got1, got2 []byte
	conn1.EXPECT().Open().Return(true)
	conn1.EXPECT().Deliver(gomock.Any()).DoAndReturn(func(p []byte) error {
		got1 = p
		return nil
	})
	conn2.EXPECT().Open().Return(true)
	conn2.EXPECT().Deliver(gomock.Any()).DoAndReturn(func(p []byte) error {
		got2 = p
		return nil
	})

	registry.EXPECT().MembersOf(room).Return([]contract.Membership{
		{Conn: conn1, UserID: "u1", Nickname: "alice"},
		{Conn: conn2, UserID: "u2", Nickname: "bob"},
	})

	fanout := NewEventFanout(slog.Default(), registry,
		make(chan event.DomainEvent, 1), make(chan event.DomainEvent, 1))

	// When the event fans out
	fanout.Fanout(context.Background(), evt)

	// Then both members got the exact same encoded frame
	req.Equal(got1, got2)
	var frame protocol.ChatFrame
	req.NoError(json.Unmarshal(got1, &frame))
	req.Equal(protocol.TypeChat, frame.Type)
	req.Equal("hello room", frame.Content)
}

func TestFanout_Skips_Closed_And_Full_Members(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	registry := mocks.NewMockIRegistry(ctrl)
	closed := mocks.NewMockConn(ctrl)
	full := mocks.NewMockConn(ctrl)
	healthy := mocks.NewMockConn(ctrl)

	room := chat.RoomID("support")

	// Given one closed member, one with a full queue, one healthy
	closed.EXPECT().Open().Return(false)
	full.EXPECT().Open().Return(true)
	full.EXPECT().Deliver(gomock.Any()).Return(errors.New("queue full"))
	healthy.EXPECT().Open().Return(true)
	delivered := 0
	healthy.EXPECT().Deliver(gomock.Any()).DoAndReturn(func(p []byte) error {
		delivered++
		return nil
	})

	registry.EXPECT().MembersOf(room).Return([]contract.Membership{
		{Conn: closed, UserID: "u1"},
		{Conn: full, UserID: "u2"},
		{Conn: healthy, UserID: "u3"},
	})

	fanout := NewEventFanout(slog.Default(), registry,
		make(chan event.DomainEvent, 1), make(chan event.DomainEvent, 1))

	// When the event fans out
	fanout.Fanout(context.Background(), broadcastOf(room, "hello"))

	// Then only the healthy member received it, and no one blocked anyone
	req.Equal(1, delivered)
}

func TestFanout_Feeds_Sinks_After_Members(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	registry := mocks.NewMockIRegistry(ctrl)
	sink := mocks.NewMockEventSink(ctrl)

	room := chat.RoomID("support")
	evt := broadcastOf(room, "index me")

	registry.EXPECT().MembersOf(room).Return(nil)
	sink.EXPECT().Consume(gomock.Any(), evt).Return(nil)

	fanout := NewEventFanout(slog.Default(), registry,
		make(chan event.DomainEvent, 1), make(chan event.DomainEvent, 1)).Add(sink)

	fanout.Fanout(context.Background(), evt)

	// Then an empty room still reached the sink
	req.NotNil(fanout)
}

func TestFanout_Run_Drains_Queue_And_Copies_To_Telemetry(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	registry := mocks.NewMockIRegistry(ctrl)
	room := chat.RoomID("support")
	registry.EXPECT().MembersOf(room).Return(nil).AnyTimes()

	events := make(chan event.DomainEvent, 4)
	telemetry := make(chan event.DomainEvent, 4)
	timeline := sink.NewTimeline()
	fanout := NewEventFanout(slog.Default(), registry, events, telemetry).Add(timeline)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		req.NoError(fanout.Run(ctx))
		close(done)
	}()

	// When an event is queued
	evt := broadcastOf(room, "observe me")
	events <- evt

	// Then a copy lands on the telemetry channel
	select {
	case copied := <-telemetry:
		req.Equal(evt, copied)
	case <-time.After(500 * time.Millisecond):
		req.Fail("telemetry copy never arrived")
	}

	// And the timeline sink witnessed the broadcast
	req.Eventually(func() bool { return len(timeline.Messages()) == 1 }, time.Second, 10*time.Millisecond)
	req.Equal("observe me", timeline.Messages()[0].Content)

	// And cancellation stops the worker cleanly
	cancel()
	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		req.Fail("fanout should stop on context cancel")
	}
}
