package workers

import (
	"context"
	"dsatter-client/mocks"
	"dsatter-client/runtime"
	"encoding/json"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestSupervisor_RestartOnPanic(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	workerMock := mocks.NewMockWorker(ctrl)

	var calls atomic.Int32
	workerMock.EXPECT().
		Run(gomock.Any()).
		DoAndReturn(func(ctx context.Context) error {
			calls.Add(1)
			panic("boom")
		}).
		AnyTimes()

	sup := NewSupervisor(log, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	// Run returns once the context expires
	sup.Add(workerMock).Run(ctx)

	req.GreaterOrEqual(calls.Load(), int32(2))
}

func TestSupervisor_StopOnSuccess(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	workerMock := mocks.NewMockWorker(ctrl)

	// Given a worker running only once
	workerMock.EXPECT().
		Run(gomock.Any()).
		Return(nil).
		Times(1)

	sup := NewSupervisor(log, 0)

	done := make(chan struct{})
	go func() {
		sup.Add(workerMock).Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
		// Then supervisor detected a success and stopped
	case <-time.After(500 * time.Millisecond):
		req.Fail("Supervisor should have stopped after worker success")
	}
}

func TestSupervisor_Stop_Cancels_Workers(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	status := runtime.NewStatus(log)
	pipeline := runtime.NewPipeline(log, status, 11)

	sup := NewSupervisor(log, 0)
	done := make(chan struct{})
	go func() {
		sup.Add(pipeline).Run(context.Background())
		close(done)
	}()

	// Given the consumer loop is idle, when the supervisor is stopped
	time.Sleep(20 * time.Millisecond)
	sup.Stop()

	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		req.Fail("Supervisor should have stopped its workers")
	}
}

func TestSupervisor_Keeps_Pipeline_Alive_After_Consumer_Panic(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	pipeline := runtime.NewPipeline(log, runtime.NewStatus(log), 11)

	// Given a consumer that panics on the first message only
	var calls atomic.Int32
	delivered := make(chan int64, 2)
	pipeline.InstallConsumer(func(batch []map[string]any) {
		if calls.Add(1) == 1 {
			panic("presentation failure")
		}
		delivered <- batch[0]["messageId"].(int64)
	})

	sup := NewSupervisor(log, 5*time.Millisecond)
	done := make(chan struct{})
	go func() {
		sup.Add(pipeline).Run(context.Background())
		close(done)
	}()

	for _, id := range []string{"1", "2"} {
		data, err := json.Marshal(map[string]any{
			"type": "newMessagesForClient",
			"payload": []map[string]any{{
				"messageId": id, "text": "hi", "dateTime": "2021-05-04T10:20:30.000000Z",
				"sender": "Alice", "chatId": 11,
			}},
		})
		req.NoError(err)
		pipeline.OnRawFrame(string(data))
	}

	// Then the loop is restarted and the second message still arrives
	select {
	case id := <-delivered:
		req.Equal(int64(2), id)
	case <-time.After(time.Second):
		req.FailNow("message lost after consumer panic")
	}

	// And terminating the pipeline ends supervision
	pipeline.Terminate()
	select {
	case <-done:
	case <-time.After(time.Second):
		req.Fail("Supervisor should have stopped after the pipeline terminated")
	}
}
