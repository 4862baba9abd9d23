package runtime

import (
	"context"
	"dsatter-client/domain"
	"dsatter-client/errors"
	"dsatter-client/mocks"
	"log/slog"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const testPollInterval = time.Millisecond

var (
	endpointA = domain.Endpoint{Address: "node-a", Port: 8080}
	endpointB = domain.Endpoint{Address: "node-b", Port: 8081}
)

func failingTransport(ctrl *gomock.Controller) *mocks.MockTransport {
	transport := mocks.NewMockTransport(ctrl)
	transport.EXPECT().Start().Times(1)
	transport.EXPECT().IsConnected().Return(false).AnyTimes()
	transport.EXPECT().HasConnectionError().Return(true).AnyTimes()
	transport.EXPECT().Terminate().Times(1)
	return transport
}

func TestLifecycle_Fails_Over_To_Second_Candidate(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	factory := mocks.NewMockTransportFactory(ctrl)
	slot := mocks.NewMockSenderSlot(ctrl)
	status := NewStatus(log)

	// Given A fails
	transportA := failingTransport(ctrl)

	// And B connects after a few polls
	transportB := mocks.NewMockTransport(ctrl)
	polls := 0
	transportB.EXPECT().Start().Times(1)
	transportB.EXPECT().IsConnected().DoAndReturn(func() bool {
		polls++
		return polls > 3
	}).AnyTimes()
	transportB.EXPECT().HasConnectionError().Return(false).AnyTimes()

	gomock.InOrder(
		factory.EXPECT().NewTransport("ws://node-a:8080", gomock.Any()).Return(transportA),
		factory.EXPECT().NewTransport("ws://node-b:8081", gomock.Any()).Return(transportB),
	)

	var installed func(string) error
	slot.EXPECT().InstallSender(gomock.Any()).Do(func(send func(string) error) {
		installed = send
	}).Times(1)

	lifecycle := NewLifecycle(log, factory, status, slot, func(string) {}, testPollInterval)

	// When the lifecycle runs
	transport, err := lifecycle.Connect(context.Background(), []domain.Endpoint{endpointA, endpointB})

	// Then B is the connected transport
	req.NoError(err)
	req.Equal(transportB, transport)
	req.Equal("ws://node-b:8081", *status.ConnectionTarget())

	// And the installed sender writes to B
	transportB.EXPECT().Send("frame").Return(nil).Times(1)
	req.NotNil(installed)
	req.NoError(installed("frame"))
}

func TestLifecycle_Single_Failing_Candidate_Is_Tried_Once(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	factory := mocks.NewMockTransportFactory(ctrl)
	slot := mocks.NewMockSenderSlot(ctrl)
	status := NewStatus(log)

	// Given A fails and is the only candidate
	factory.EXPECT().NewTransport("ws://node-a:8080", gomock.Any()).Return(failingTransport(ctrl)).Times(1)

	lifecycle := NewLifecycle(log, factory, status, slot, func(string) {}, testPollInterval)

	// When the lifecycle runs
	transport, err := lifecycle.Connect(context.Background(), []domain.Endpoint{endpointA})

	// Then it gives up after one attempt
	req.ErrorIs(err, errors.ErrLifecycleExhausted)
	req.Nil(transport)
	req.False(status.IsConnected())
}

func TestLifecycle_All_Candidates_Fail(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	factory := mocks.NewMockTransportFactory(ctrl)
	slot := mocks.NewMockSenderSlot(ctrl)

	gomock.InOrder(
		factory.EXPECT().NewTransport("ws://node-a:8080", gomock.Any()).Return(failingTransport(ctrl)),
		factory.EXPECT().NewTransport("ws://node-b:8081", gomock.Any()).Return(failingTransport(ctrl)),
	)

	lifecycle := NewLifecycle(log, factory, NewStatus(log), slot, func(string) {}, testPollInterval)

	_, err := lifecycle.Connect(context.Background(), []domain.Endpoint{endpointA, endpointB})

	req.ErrorIs(err, errors.ErrLifecycleExhausted)
}

func TestLifecycle_Error_Wins_Over_Connected(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	factory := mocks.NewMockTransportFactory(ctrl)
	slot := mocks.NewMockSenderSlot(ctrl)

	// Given a transport reporting both connected and errored
	transport := mocks.NewMockTransport(ctrl)
	transport.EXPECT().Start()
	transport.EXPECT().IsConnected().Return(true).AnyTimes()
	transport.EXPECT().HasConnectionError().Return(true).AnyTimes()
	transport.EXPECT().Terminate()
	factory.EXPECT().NewTransport(gomock.Any(), gomock.Any()).Return(transport)

	lifecycle := NewLifecycle(log, factory, NewStatus(log), slot, func(string) {}, testPollInterval)

	_, err := lifecycle.Connect(context.Background(), []domain.Endpoint{endpointA})

	// Then no success is reported
	req.ErrorIs(err, errors.ErrLifecycleExhausted)
}

func TestLifecycle_Wait_Honors_Context(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	factory := mocks.NewMockTransportFactory(ctrl)
	slot := mocks.NewMockSenderSlot(ctrl)

	// Given a transport that never resolves
	transport := mocks.NewMockTransport(ctrl)
	transport.EXPECT().Start()
	transport.EXPECT().IsConnected().Return(false).AnyTimes()
	transport.EXPECT().HasConnectionError().Return(false).AnyTimes()
	transport.EXPECT().Terminate()
	factory.EXPECT().NewTransport(gomock.Any(), gomock.Any()).Return(transport)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	lifecycle := NewLifecycle(log, factory, NewStatus(log), slot, func(string) {}, testPollInterval)

	_, err := lifecycle.Connect(ctx, []domain.Endpoint{endpointA})

	req.ErrorIs(err, context.DeadlineExceeded)
}

func TestLifecycle_Disconnect(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	slot := mocks.NewMockSenderSlot(ctrl)
	transport := mocks.NewMockTransport(ctrl)
	status := NewStatus(log)
	target := "ws://node-a:8080"
	status.SetConnectionTarget(&target)

	gomock.InOrder(
		slot.EXPECT().ClearSender(),
		transport.EXPECT().Terminate(),
	)

	NewLifecycle(log, mocks.NewMockTransportFactory(ctrl), status, slot, nil, 0).Disconnect(transport)

	req.False(status.IsConnected())
}

func TestResolveCandidates(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	discovery := mocks.NewMockDiscovery(ctrl)

	// Given an explicit url, discovery is not consulted
	candidates, err := ResolveCandidates(context.Background(), log, "ws://node-a:8080", discovery)
	req.NoError(err)
	req.Equal([]domain.Endpoint{endpointA}, candidates)

	// Given a malformed explicit url
	_, err = ResolveCandidates(context.Background(), log, "ws://node-a", discovery)
	req.ErrorIs(err, errors.ErrInvalidEndpoint)

	// Given discovery suggests two nodes
	discovery.EXPECT().ActiveNodes(gomock.Any()).Return([]domain.Endpoint{endpointA, endpointB}, nil)
	candidates, err = ResolveCandidates(context.Background(), log, "", discovery)
	req.NoError(err)
	req.Equal([]domain.Endpoint{endpointA, endpointB}, candidates)

	// Given discovery suggests none
	discovery.EXPECT().ActiveNodes(gomock.Any()).Return(nil, nil)
	_, err = ResolveCandidates(context.Background(), log, "", discovery)
	req.ErrorIs(err, errors.ErrNoActiveNodes)

	// Given discovery is unreachable
	discovery.EXPECT().ActiveNodes(gomock.Any()).Return(nil, errors.ErrDiscoveryUnreachable)
	_, err = ResolveCandidates(context.Background(), log, "", discovery)
	req.ErrorIs(err, errors.ErrDiscoveryUnreachable)
}
