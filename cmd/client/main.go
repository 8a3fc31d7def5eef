package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/google/uuid"
	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"

	"haven-chat/protocol"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

// Config defines the client-side environment variables.
type Config struct {
	ServerURL string `env:"CHAT_SERVER_URL,default=ws://localhost:8080/ws"`
	RoomID    string `env:"CHAT_ROOM_ID,default=lobby"`
	Nickname  string `env:"CHAT_NICKNAME,default=anonymous"`
	LogLevel  string `env:"LOG_LEVEL,default=INFO"`
}

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

// run handles the websocket client lifecycle: connection, the join
// handshake, one goroutine rendering server frames and a stdin loop turning
// lines into chat frames. `/search words` queries the room history,
// `/quit` leaves cleanly.
func run() (int, error) {
	// 1. Load configuration from environment variables.
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Setup context to handle termination signals (Ctrl+C).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Connect and join.
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, config.ServerURL, nil)
	if err != nil {
		return exitRuntime, fmt.Errorf("could not connect to %s: %w", config.ServerURL, err)
	}
	defer func() {
		log.Info("Closing connection...")
		_ = conn.Close()
	}()

	userID := uuid.NewString()
	if err := send(conn, protocol.Inbound{
		Type:     protocol.TypeJoin,
		RoomID:   config.RoomID,
		UserID:   userID,
		Nickname: config.Nickname,
	}); err != nil {
		return exitRuntime, fmt.Errorf("join failed: %w", err)
	}

	color.New(color.FgGreen).Printf(">>> Connected to %s as %s in room %q (Ctrl+C to quit)\n",
		config.ServerURL, config.Nickname, config.RoomID)

	// 4. Render loop.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				if ctx.Err() == nil {
					log.Error("connection lost", "error", err)
				}
				return
			}
			render(raw)
		}
	}()

	// 5. Input loop.
	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			_ = send(conn, protocol.Inbound{Type: protocol.TypeLeave})
			return exitOK, nil
		case <-done:
			return exitRuntime, nil
		case line, ok := <-lines:
			if !ok {
				_ = send(conn, protocol.Inbound{Type: protocol.TypeLeave})
				return exitOK, nil
			}
			if err := handleLine(conn, line); err != nil {
				return exitOK, nil
			}
		}
	}
}

func handleLine(conn *websocket.Conn, line string) error {
	line = strings.TrimSpace(line)
	switch {
	case line == "":
		return nil
	case line == "/quit":
		_ = send(conn, protocol.Inbound{Type: protocol.TypeLeave})
		return fmt.Errorf("quit")
	case strings.HasPrefix(line, "/search "):
		return send(conn, protocol.Inbound{
			Type:    protocol.TypeSearch,
			Content: strings.TrimPrefix(line, "/search "),
		})
	default:
		return send(conn, protocol.Inbound{Type: protocol.TypeChat, Content: line})
	}
}

func send(conn *websocket.Conn, frame protocol.Inbound) error {
	raw, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, raw)
}

// render pretty-prints one server frame. Unknown types are shown raw so a
// newer server never breaks an older client.
func render(raw []byte) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		fmt.Println(string(raw))
		return
	}

	switch head.Type {
	case protocol.TypeHistory:
		var frame protocol.HistoryFrame
		if json.Unmarshal(raw, &frame) != nil {
			return
		}
		color.New(color.FgGray).Printf("--- last %d messages ---\n", len(frame.Messages))
		for _, m := range frame.Messages {
			printMessage(m)
		}
	case protocol.TypeChat:
		var frame protocol.ChatFrame
		if json.Unmarshal(raw, &frame) != nil {
			return
		}
		printMessage(frame.MessagePayload)
	case protocol.TypeJoin, protocol.TypeLeave:
		var frame protocol.PresenceFrame
		if json.Unmarshal(raw, &frame) != nil {
			return
		}
		verb := "joined"
		if frame.Type == protocol.TypeLeave {
			verb = "left"
		}
		color.New(color.FgCyan).Printf("* %s %s the room\n", frame.Nickname, verb)
	case protocol.TypeCrisisAlert:
		var frame protocol.CrisisAlertFrame
		if json.Unmarshal(raw, &frame) != nil {
			return
		}
		color.New(color.BgRed, color.FgWhite).Printf("[%s] %s\n", strings.ToUpper(frame.RiskLevel), frame.Message)
	case protocol.TypeSearchResults:
		var frame protocol.SearchResultsFrame
		if json.Unmarshal(raw, &frame) != nil {
			return
		}
		color.New(color.FgYellow).Printf("--- %d search results ---\n", len(frame.Messages))
		for _, m := range frame.Messages {
			printMessage(m)
		}
	case protocol.TypeError:
		var frame protocol.ErrorFrame
		if json.Unmarshal(raw, &frame) != nil {
			return
		}
		color.New(color.FgRed).Printf("! %s\n", frame.Message)
	default:
		fmt.Println(string(raw))
	}
}

func printMessage(m protocol.MessagePayload) {
	stamp := m.Timestamp.Local().Format(time.TimeOnly)
	fmt.Printf("[%s] %s: %s\n", stamp, color.New(color.FgLightBlue).Render(m.Nickname), m.Content)
}
