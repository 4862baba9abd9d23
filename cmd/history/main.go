// Command history prints the messages recorded by the client, newest first.
package main

import (
	"dsatter-client/domain"
	"dsatter-client/repositories"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strconv"

	"github.com/dgraph-io/badger/v4"
	"github.com/kelseyhightower/envconfig"
	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"
)

type Config struct {
	HistoryPath string `envconfig:"HISTORY_PATH" required:"true"`
	ChatID      int64  `envconfig:"CHAT_ID" default:"11"`
	Limit       int    `envconfig:"HISTORY_LIMIT" default:"50"`
}

func main() {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		log.Fatalf("Config error: %v", err)
	}

	// Read-only, the client may be running and holding the lock
	db, err := badger.Open(badger.DefaultOptions(config.HistoryPath).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		log.Fatalf("Failed to open history: %v", err)
	}
	defer db.Close()

	messages, err := repositories.NewMessageRepository(db, logs.GetLoggerFromLevel(slog.LevelWarn)).GetMessages(config.ChatID, config.Limit)
	if err != nil {
		log.Fatal(err)
	}
	render(os.Stdout, messages)
}

func render(w io.Writer, messages []domain.Message) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Id", "Chat", "Date", "Sender", "Text"})
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

	for _, m := range messages {
		table.Append([]string{
			strconv.FormatInt(m.ID, 10),
			strconv.FormatInt(m.ChatID, 10),
			m.DateTime.Format(domain.DateTimeLayout),
			m.Sender,
			m.Text,
		})
	}
	table.Render()
	fmt.Fprintf(w, "%d message(s)\n", len(messages))
}
