package e2e

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/suite"

	"haven-chat/protocol"
)

const frameTimeout = 3 * time.Second

type BaseWsSuite struct {
	suite.Suite
	Config Config
}

// SetupSuite loads the environment configuration before running tests
func (s *BaseWsSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
	if s.Config.ServerURL == "" {
		s.T().Skip("E2E_SERVER_URL not set, skipping websocket scenarios")
	}
}

// Client is one connected chat participant driven by the test.
type Client struct {
	suite    *BaseWsSuite
	conn     *websocket.Conn
	Nickname string
	UserID   string
}

// Connect dials the server and prints a colorized header for the step.
func (s *BaseWsSuite) Connect(nickname string) *Client {
	header := fmt.Sprintf("  ====== %s connects ======", nickname)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)

	conn, _, err := websocket.DefaultDialer.Dial(s.Config.ServerURL, nil)
	s.Require().NoError(err, "failed to dial %s", s.Config.ServerURL)
	s.T().Cleanup(func() { conn.Close() })

	return &Client{suite: s, conn: conn, Nickname: nickname, UserID: uuid.NewString()}
}

func (c *Client) Send(frame protocol.Inbound) {
	raw, err := json.Marshal(frame)
	c.suite.Require().NoError(err)
	if c.suite.Config.DebugFrames {
		c.suite.T().Logf("%s >> %s", c.Nickname, raw)
	}
	c.suite.Require().NoError(c.conn.WriteMessage(websocket.TextMessage, raw))
}

func (c *Client) Join(room string) {
	c.Send(protocol.Inbound{
		Type:     protocol.TypeJoin,
		RoomID:   room,
		UserID:   c.UserID,
		Nickname: c.Nickname,
	})
}

// Expect reads frames until one of the wanted type arrives; anything else in
// between is tolerated, out-of-band presence frames race with the scenario.
func (c *Client) Expect(frameType string) []byte {
	deadline := time.Now().Add(frameTimeout)
	for {
		c.suite.Require().NoError(c.conn.SetReadDeadline(deadline))
		_, raw, err := c.conn.ReadMessage()
		c.suite.Require().NoError(err, "%s timed out waiting for %q", c.Nickname, frameType)
		if c.suite.Config.DebugFrames {
			c.suite.T().Logf("%s << %s", c.Nickname, raw)
		}

		var head struct {
			Type string `json:"type"`
		}
		c.suite.Require().NoError(json.Unmarshal(raw, &head))
		if head.Type == frameType {
			return raw
		}
	}
}

// ExpectNothing asserts no frame of the given type arrives within the window.
func (c *Client) ExpectNothing(frameType string, window time.Duration) {
	deadline := time.Now().Add(window)
	for {
		_ = c.conn.SetReadDeadline(deadline)
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			// Timeout means the window closed quietly
			return
		}
		var head struct {
			Type string `json:"type"`
		}
		if json.Unmarshal(raw, &head) == nil && head.Type == frameType {
			c.suite.Require().Failf("unexpected frame", "%s received %q: %s", c.Nickname, frameType, raw)
		}
	}
}
