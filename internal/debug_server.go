package internal

import (
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"
)

//go:embed inspect.html
var templatesFS embed.FS

// InspectRow is one rendered message record in the debug view.
type InspectRow struct {
	Key       string
	Room      string
	Timestamp string
	MessageID string
	Nickname  string
	Risk      string
	Content   string
}

type StatsProvider func() map[string]any

type PageData struct {
	Prefix string
	Items  []InspectRow
	Stats  map[string]any
}

// StartDebugServer exposes a read-only HTML view over the message store.
// Debug tooling only, it must never be reachable in production.
func StartDebugServer(db *badger.DB, port int, endpoint string, statsProvider StatsProvider) {
	mux := http.NewServeMux()
	tmpl := template.Must(template.ParseFS(templatesFS, "inspect.html"))

	mux.HandleFunc(endpoint, func(w http.ResponseWriter, r *http.Request) {
		prefix := r.URL.Query().Get("prefix")
		if prefix == "" {
			prefix = "msg:"
		}

		data := PageData{
			Prefix: prefix,
			Stats:  make(map[string]any),
		}
		if statsProvider != nil {
			data.Stats = statsProvider()
		}

		_ = db.View(func(txn *badger.Txn) error {
			it := txn.NewIterator(badger.DefaultIteratorOptions)
			defer it.Close()
			for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
				item := it.Item()
				_ = item.Value(func(val []byte) error {
					data.Items = append(data.Items, messageRow(string(item.Key()), val))
					return nil
				})
			}
			return nil
		})

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = tmpl.Execute(w, data)
	})

	go func() {
		_ = http.ListenAndServe(fmt.Sprintf("0.0.0.0:%d", port), mux)
	}()
}

// messageRow decodes a stored message record; undecodable values fall back
// to a raw row so a schema change never blanks the whole view.
func messageRow(key string, val []byte) InspectRow {
	row := InspectRow{
		Key:       key,
		Room:      "-",
		Timestamp: "--:--:--",
		MessageID: "--------",
		Nickname:  "-",
		Risk:      "-",
		Content:   "Size: " + strconv.Itoa(len(val)) + " bytes",
	}

	var m struct {
		ID        string    `json:"id"`
		Room      string    `json:"room"`
		Nickname  string    `json:"nickname"`
		Content   string    `json:"content"`
		At        time.Time `json:"at"`
		RiskLevel string    `json:"riskLevel"`
	}
	if err := json.Unmarshal(val, &m); err != nil {
		return row
	}

	row.Room = m.Room
	row.Timestamp = m.At.Format("15:04:05")
	row.MessageID = m.ID
	if len(row.MessageID) > 8 {
		row.MessageID = row.MessageID[:8]
	}
	row.Nickname = m.Nickname
	row.Risk = m.RiskLevel
	if row.Risk == "" {
		row.Risk = "none"
	}
	row.Content = m.Content
	return row
}
