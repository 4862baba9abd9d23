// Package ui is the terminal presentation layer of the client.
// It shows delivered messages and status changes and turns typed lines
// into outgoing messages or commands.
package ui

import (
	"bufio"
	"context"
	"dsatter-client/domain"
	"dsatter-client/runtime"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gookit/color"
	"github.com/samber/lo"
)

const (
	commandName = "/name"
	commandQuit = "/quit"
	commandHelp = "/help"
)

// Submitter forwards user input to the node-server.
type Submitter interface {
	SubmitOutgoing(text string)
}

type Console struct {
	log       *slog.Logger
	status    *runtime.Status
	submitter Submitter
	in        io.Reader

	mu  sync.Mutex // serializes writes, messages and status come from different goroutines
	out io.Writer
}

func NewConsole(log *slog.Logger, status *runtime.Status, submitter Submitter, in io.Reader, out io.Writer) *Console {
	return &Console{log: log, status: status, submitter: submitter, in: in, out: out}
}

// ShowMessages renders a batch delivered by the pipeline.
func (c *Console) ShowMessages(batch []map[string]any) {
	lines := lo.FilterMap(batch, func(fields map[string]any, _ int) (string, bool) {
		msg, err := domain.MessageFromFields(fields)
		if err != nil {
			c.log.Warn("Cannot display message", "error", err)
			return "", false
		}
		return fmt.Sprintf("%s %s: %s",
			color.Gray.Sprintf("[%s]", msg.DateTime.Local().Format(time.TimeOnly)),
			color.Cyan.Sprint(msg.Sender),
			msg.Text,
		), true
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, line := range lines {
		_, _ = fmt.Fprintln(c.out, line)
	}
}

// ShowStatus is the Status observer.
func (c *Console) ShowStatus(username string, target *string) {
	where := color.Yellow.Sprint("disconnected")
	if target != nil {
		where = color.Green.Sprint(*target)
	}
	c.println(fmt.Sprintf("%s %s@%s", color.New(color.BgBlack, color.FgGreen).Render("status"), username, where))
}

func (c *Console) println(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = fmt.Fprintln(c.out, line)
}

// Run reads the input line by line until /quit, end of input or ctx is done.
func (c *Console) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(c.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	c.println(color.Gray.Sprintf("Type a message, %s <username> to rename yourself, %s to leave", commandName, commandQuit))
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			return err
		case line := <-lines:
			if !c.handle(line) {
				return nil
			}
		}
	}
}

// handle returns false when the user asked to leave.
func (c *Console) handle(line string) bool {
	trimmed := strings.TrimSpace(line)
	switch {
	case trimmed == commandQuit:
		return false
	case trimmed == commandHelp:
		c.println(fmt.Sprintf("%s <username>  change your name (at least 4 characters)\n%s  leave", commandName, commandQuit))
	case trimmed == commandName || strings.HasPrefix(trimmed, commandName+" "):
		username := strings.TrimSpace(strings.TrimPrefix(trimmed, commandName))
		if err := c.status.SetUsername(username); err != nil {
			c.println(color.Red.Sprint(err.Error()))
		}
	default:
		c.submitter.SubmitOutgoing(trimmed)
	}
	return true
}
