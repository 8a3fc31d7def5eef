package repositories

import (
	"log/slog"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"haven-chat/domain/chat"
)

func openTestDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func Test_Insert_And_List_Recent(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t), slog.Default())
	room := chat.RoomID("support")

	// Given three messages stored in order
	contents := []string{"first", "second", "third"}
	for _, c := range contents {
		msg, err := repository.Insert(room, "u1", "alice", c, chat.RiskNone)
		req.NoError(err)
		req.NotEqual(uuid.Nil, msg.ID)
		req.False(msg.CreatedAt.IsZero())
	}

	// When the recent messages are listed
	fetched, err := repository.ListRecent(room, 10)
	req.NoError(err)

	// Then all three come back, oldest first
	req.Len(fetched, 3)
	req.Equal("first", fetched[0].Content)
	req.Equal("third", fetched[2].Content)
}

func Test_List_Recent_Honors_Limit(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t), slog.Default())
	room := chat.RoomID("support")

	for _, c := range []string{"one", "two", "three", "four"} {
		_, err := repository.Insert(room, "u1", "alice", c, chat.RiskNone)
		req.NoError(err)
	}

	// When only the last two are requested
	fetched, err := repository.ListRecent(room, 2)
	req.NoError(err)

	// Then the newest two come back, still oldest first
	req.Len(fetched, 2)
	req.Equal("three", fetched[0].Content)
	req.Equal("four", fetched[1].Content)
}

func Test_List_Recent_Isolates_Rooms(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t), slog.Default())

	_, err := repository.Insert(chat.RoomID("support"), "u1", "alice", "in support", chat.RiskNone)
	req.NoError(err)
	_, err = repository.Insert(chat.RoomID("general"), "u2", "bob", "in general", chat.RiskNone)
	req.NoError(err)

	fetched, err := repository.ListRecent(chat.RoomID("support"), 10)
	req.NoError(err)

	req.Len(fetched, 1)
	req.Equal("in support", fetched[0].Content)
}

func Test_List_Recent_Isolates_Colliding_Room_Ids(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t), slog.Default())

	// Given a room whose id extends another one with a ":" segment
	_, err := repository.Insert(chat.RoomID("a"), "u1", "alice", "in a", chat.RiskNone)
	req.NoError(err)
	_, err = repository.Insert(chat.RoomID("a:1"), "u2", "bob", "private to a:1", chat.RiskNone)
	req.NoError(err)

	// Then neither room's history contains the other's messages
	fetched, err := repository.ListRecent(chat.RoomID("a"), 10)
	req.NoError(err)
	req.Len(fetched, 1)
	req.Equal("in a", fetched[0].Content)

	fetched, err = repository.ListRecent(chat.RoomID("a:1"), 10)
	req.NoError(err)
	req.Len(fetched, 1)
	req.Equal("private to a:1", fetched[0].Content)
}

func Test_List_Recent_Empty_Room(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t), slog.Default())

	fetched, err := repository.ListRecent(chat.RoomID("ghost"), 10)
	req.NoError(err)
	req.Empty(fetched)
}

func Test_Insert_Preserves_Risk_Level(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t), slog.Default())
	room := chat.RoomID("support")

	// Given a message stored with a critical risk tag
	stored, err := repository.Insert(room, "u1", "alice", "I want to give up", chat.RiskCritical)
	req.NoError(err)
	req.Equal(chat.RiskCritical, stored.RiskLevel)

	// Then the tag survives the round trip to disk
	fetched, err := repository.ListRecent(room, 1)
	req.NoError(err)
	req.Len(fetched, 1)
	req.Equal(chat.RiskCritical, fetched[0].RiskLevel)
	req.Equal(stored.ID, fetched[0].ID)
}
