package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/olekukonko/tablewriter"
)

// storedMessage mirrors the on-disk record so the inspector stays decoupled
// from the server packages.
type storedMessage struct {
	ID        string    `json:"id"`
	Room      string    `json:"room"`
	UserID    string    `json:"userId"`
	Nickname  string    `json:"nickname"`
	Content   string    `json:"content"`
	At        time.Time `json:"at"`
	RiskLevel string    `json:"riskLevel"`
}

func main() {
	dbPath := flag.String("db", "./data/badger", "Path to badger DB")
	prefix := flag.String("prefix", "msg:", "Prefix to scan; use msg:{room}: to narrow to one room")
	flag.Parse()

	db, err := openDB(*dbPath)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Key", "Room", "Time", "Message ID", "Nickname", "Risk", "Content"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefixBytes := []byte(*prefix)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			item := it.Item()

			err := item.Value(func(v []byte) error {
				var m storedMessage
				if err := json.Unmarshal(v, &m); err != nil {
					fmt.Printf("Error unmarshaling key %s: %v\n", string(item.Key()), err)
					return nil
				}

				// Shorten the ID to 8 characters for readability
				displayID := m.ID
				if len(displayID) > 8 {
					displayID = displayID[:8]
				}

				risk := m.RiskLevel
				if risk == "" {
					risk = "none"
				}

				table.Append([]string{
					string(item.Key()),
					m.Room,
					m.At.Format("15:04:05"),
					displayID,
					m.Nickname,
					risk,
					m.Content,
				})
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})

	if err != nil {
		log.Fatal(err)
	}

	table.Render()
}

func openDB(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true).
		WithValueLogFileSize(10 * 1024 * 1024)

	db, err := badger.Open(opts)
	if err != nil {
		if strings.Contains(err.Error(), "Log truncate required") {
			// Open in write mode once to let badger truncate, then reopen read-only
			repairOpts := badger.DefaultOptions(path).
				WithLogger(nil).WithBypassLockGuard(true)

			db, err = badger.Open(repairOpts)
			if err != nil {
				return nil, fmt.Errorf("repair failed: %w", err)
			}

			db.Close()
			return badger.Open(opts)
		}
		return nil, err
	}
	return db, nil
}
