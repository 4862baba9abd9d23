package runtime

import (
	"context"
	"dsatter-client/contract"
	"dsatter-client/domain"
	"dsatter-client/errors"
	"fmt"
	"log/slog"
	"time"
)

const DefaultPollInterval = 500 * time.Millisecond

// ResolveCandidates returns the endpoints to try, in order.
// An explicit node-server URL wins over the discovery lookup.
func ResolveCandidates(ctx context.Context, log *slog.Logger, explicitURL string, discovery contract.Discovery) ([]domain.Endpoint, error) {
	if explicitURL != "" {
		endpoint, err := domain.ParseEndpoint(explicitURL)
		if err != nil {
			return nil, err
		}
		return []domain.Endpoint{endpoint}, nil
	}

	endpoints, err := discovery.ActiveNodes(ctx)
	if err != nil {
		return nil, err
	}
	if len(endpoints) == 0 {
		return nil, errors.ErrNoActiveNodes
	}
	log.Debug("Node-servers suggested by discovery", "count", len(endpoints))
	return endpoints, nil
}

// Lifecycle walks the candidate endpoints until one transport connects.
type Lifecycle struct {
	log          *slog.Logger
	factory      contract.TransportFactory
	status       *Status
	slot         contract.SenderSlot
	onFrame      contract.FrameHandler
	pollInterval time.Duration
}

func NewLifecycle(
	log *slog.Logger,
	factory contract.TransportFactory,
	status *Status,
	slot contract.SenderSlot,
	onFrame contract.FrameHandler,
	pollInterval time.Duration,
) *Lifecycle {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	return &Lifecycle{
		log:          log,
		factory:      factory,
		status:       status,
		slot:         slot,
		onFrame:      onFrame,
		pollInterval: pollInterval,
	}
}

// Connect tries the candidates round-robin starting from the first one.
// Each candidate is attempted at most once: coming back to the first
// candidate means every endpoint failed and ErrLifecycleExhausted is returned.
// On success the transport's send function is installed in the sender slot
// and the endpoint becomes the Status connection target.
func (l *Lifecycle) Connect(ctx context.Context, candidates []domain.Endpoint) (contract.Transport, error) {
	if len(candidates) == 0 {
		return nil, errors.ErrNoCandidates
	}

	i := 0
	for {
		url := candidates[i].URL()
		l.log.Info("Attempting to open a WS connection to a node-server", "url", url)

		transport := l.factory.NewTransport(url, l.onFrame)
		transport.Start()

		if err := l.awaitResolution(ctx, transport); err != nil {
			transport.Terminate()
			return nil, err
		}

		if !transport.HasConnectionError() {
			l.log.Info("Connected to node-server", "url", url)
			l.slot.InstallSender(transport.Send)
			l.status.SetConnectionTarget(&url)
			return transport, nil
		}

		l.log.Info("Connection attempt to node-server failed", "url", url)
		transport.Terminate()

		i = (i + 1) % len(candidates)
		if i == 0 {
			l.log.Info("Could not open a connection to any node-server")
			return nil, fmt.Errorf("%w: %d candidate(s) tried", errors.ErrLifecycleExhausted, len(candidates))
		}
	}
}

// awaitResolution polls the transport until it is connected or has failed.
func (l *Lifecycle) awaitResolution(ctx context.Context, transport contract.Transport) error {
	ticker := time.NewTicker(l.pollInterval)
	defer ticker.Stop()

	for !transport.IsConnected() && !transport.HasConnectionError() {
		l.log.Debug("Waiting for connection establishment..")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// Disconnect clears the sender slot before closing the transport so
// no frame is sent to a closing connection.
func (l *Lifecycle) Disconnect(transport contract.Transport) {
	l.slot.ClearSender()
	transport.Terminate()
	l.status.SetConnectionTarget(nil)
}
