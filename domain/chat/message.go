package chat

import (
	"time"

	"github.com/google/uuid"
)

// RoomID identifies a broadcast group. It is an opaque string chosen by
// clients; a room exists as soon as its first member joins.
type RoomID string

// RiskLevel is the ordered severity tag attached to every message.
type RiskLevel string

const (
	RiskNone     RiskLevel = "none"
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

var riskRanks = map[RiskLevel]int{
	RiskNone:     0,
	RiskLow:      1,
	RiskMedium:   2,
	RiskHigh:     3,
	RiskCritical: 4,
}

// Rank returns the position of the level in the total order
// none < low < medium < high < critical. Unknown levels rank as none.
func (r RiskLevel) Rank() int {
	return riskRanks[r]
}

// MaxRisk returns the higher of two levels. Ties resolve to the first
// operand, which is indistinguishable from resolving to the second.
func MaxRisk(a, b RiskLevel) RiskLevel {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// Message is the canonical chat message as persisted and broadcast.
// Immutable once the repository has assigned ID and CreatedAt.
type Message struct {
	ID        uuid.UUID
	Room      RoomID
	UserID    string
	Nickname  string
	Content   string
	CreatedAt time.Time
	RiskLevel RiskLevel
}

// Binding ties a connection to its room and identity after a join.
type Binding struct {
	Room     RoomID
	UserID   string
	Nickname string
}
