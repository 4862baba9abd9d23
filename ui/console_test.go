package ui

import (
	"bytes"
	"context"
	"dsatter-client/domain"
	"dsatter-client/runtime"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

type recordingSubmitter struct {
	texts []string
}

func (r *recordingSubmitter) SubmitOutgoing(text string) {
	r.texts = append(r.texts, text)
}

func TestConsole_Run_Handles_Commands_And_Messages(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	status := runtime.NewStatus(log)
	submitter := &recordingSubmitter{}
	out := &bytes.Buffer{}

	in := strings.NewReader(strings.Join([]string{
		"hello everyone",
		"/name abc",
		"/name Alice",
		"",
		"/quit",
		"never sent",
	}, "\n"))
	console := NewConsole(log, status, submitter, in, out)

	// When the user types lines
	req.NoError(console.Run(context.Background()))

	// Then plain text is submitted, the short name refused and /quit stops reading
	req.Equal([]string{"hello everyone", ""}, submitter.texts)
	req.Equal("Alice", status.Username())
	req.Contains(out.String(), "at least 4 characters")
}

func TestConsole_Run_Stops_At_End_Of_Input(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	submitter := &recordingSubmitter{}
	console := NewConsole(log, runtime.NewStatus(log), submitter, strings.NewReader("one\ntwo"), &bytes.Buffer{})

	done := make(chan error, 1)
	go func() { done <- console.Run(context.Background()) }()

	select {
	case err := <-done:
		req.NoError(err)
	case <-time.After(time.Second):
		req.FailNow("console did not stop at end of input")
	}
	req.Equal([]string{"one", "two"}, submitter.texts)
}

func TestConsole_ShowMessages_And_Status(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	out := &bytes.Buffer{}
	console := NewConsole(log, runtime.NewStatus(log), &recordingSubmitter{}, strings.NewReader(""), out)

	msg := domain.Message{ID: 1, Text: "Hello Bob", DateTime: time.Now(), Sender: "Alice", ChatID: 11}
	console.ShowMessages([]map[string]any{msg.Fields(), {"text": "broken"}})
	console.ShowStatus("Alice", lo.ToPtr("ws://node-1:8080"))
	console.ShowStatus("Alice", nil)

	output := out.String()
	req.Contains(output, "Alice")
	req.Contains(output, "Hello Bob")
	req.NotContains(output, "broken")
	req.Contains(output, "ws://node-1:8080")
	req.Contains(output, "disconnected")
}
