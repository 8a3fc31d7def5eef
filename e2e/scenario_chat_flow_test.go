package e2e

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"haven-chat/protocol"
)

type testChatFlowSuite struct {
	BaseWsSuite
}

func TestChatFlowSuite(t *testing.T) {
	suite.Run(t, &testChatFlowSuite{})
}

func (s *testChatFlowSuite) TestRoomBroadcastAndCrisisAlert() {
	// A fresh room per run keeps scenarios independent
	room := s.Config.Room + "-" + uuid.NewString()[:8]

	alice := s.Connect("alice")
	bob := s.Connect("bob")

	s.Run("Step 1: Both users join and receive history", func() {
		alice.Join(room)
		raw := alice.Expect(protocol.TypeHistory)
		var history protocol.HistoryFrame
		s.Require().NoError(json.Unmarshal(raw, &history))
		s.Require().Empty(history.Messages, "fresh room should start with no history")

		// Members receive their own join broadcast first
		raw = alice.Expect(protocol.TypeJoin)
		var presence protocol.PresenceFrame
		s.Require().NoError(json.Unmarshal(raw, &presence))
		s.Require().Equal("alice", presence.Nickname)

		bob.Join(room)
		bob.Expect(protocol.TypeHistory)

		// Alice sees bob arrive
		raw = alice.Expect(protocol.TypeJoin)
		s.Require().NoError(json.Unmarshal(raw, &presence))
		s.Require().Equal("bob", presence.Nickname)
	})

	s.Run("Step 2: A harmless message reaches every member", func() {
		alice.Send(protocol.Inbound{Type: protocol.TypeChat, Content: "hello everyone"})

		for _, member := range []*Client{alice, bob} {
			raw := member.Expect(protocol.TypeChat)
			var frame protocol.ChatFrame
			s.Require().NoError(json.Unmarshal(raw, &frame))
			s.Require().Equal("hello everyone", frame.Content)
			s.Require().Equal("alice", frame.Nickname)
		}
	})

	s.Run("Step 3: Crisis content alerts the sender privately", func() {
		alice.Send(protocol.Inbound{Type: protocol.TypeChat, Content: "honestly I want to give up on everything"})

		// The room still sees the message itself
		bob.Expect(protocol.TypeChat)

		// Only the sender receives the advisory
		raw := alice.Expect(protocol.TypeCrisisAlert)
		var alert protocol.CrisisAlertFrame
		s.Require().NoError(json.Unmarshal(raw, &alert))
		s.Require().NotEmpty(alert.Message)
		s.Require().NotEqual("none", alert.RiskLevel)

		bob.ExpectNothing(protocol.TypeCrisisAlert, time.Second)
	})

	s.Run("Step 4: History replays persisted messages to a newcomer", func() {
		carol := s.Connect("carol")
		carol.Join(room)

		raw := carol.Expect(protocol.TypeHistory)
		var history protocol.HistoryFrame
		s.Require().NoError(json.Unmarshal(raw, &history))
		s.Require().Len(history.Messages, 2)
		s.Require().Equal("hello everyone", history.Messages[0].Content)
	})

	s.Run("Step 5: Search finds the room's messages", func() {
		// The index is fed asynchronously by the fanout
		time.Sleep(500 * time.Millisecond)

		bob.Send(protocol.Inbound{Type: protocol.TypeSearch, Content: "everyone"})
		raw := bob.Expect(protocol.TypeSearchResults)
		var results protocol.SearchResultsFrame
		s.Require().NoError(json.Unmarshal(raw, &results))
		s.Require().NotEmpty(results.Messages)
	})

	s.Run("Step 6: Leaving notifies the room", func() {
		bob.Send(protocol.Inbound{Type: protocol.TypeLeave})

		raw := alice.Expect(protocol.TypeLeave)
		var presence protocol.PresenceFrame
		s.Require().NoError(json.Unmarshal(raw, &presence))
		s.Require().Equal("bob", presence.Nickname)
	})
}

func (s *testChatFlowSuite) TestSecondJoinSupersedesFirstConnection() {
	room := s.Config.Room + "-" + uuid.NewString()[:8]

	first := s.Connect("dora")
	first.Join(room)
	first.Expect(protocol.TypeHistory)

	// The same identity joins again from a second connection
	second := s.Connect("dora")
	second.UserID = first.UserID
	second.Join(room)
	second.Expect(protocol.TypeHistory)

	// The first connection is force-closed by the server
	_ = first.conn.SetReadDeadline(time.Now().Add(frameTimeout))
	for {
		if _, _, err := first.conn.ReadMessage(); err != nil {
			break
		}
	}

	// And the survivor still receives room traffic
	second.Send(protocol.Inbound{Type: protocol.TypeChat, Content: "still here"})
	raw := second.Expect(protocol.TypeChat)
	var frame protocol.ChatFrame
	s.Require().NoError(json.Unmarshal(raw, &frame))
	s.Require().Equal("still here", frame.Content)
}
