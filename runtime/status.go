package runtime

import (
	"dsatter-client/errors"
	"log/slog"
	"sync"

	"github.com/go-playground/validator/v10"
)

// DefaultUsername is used until the user picks a name.
const DefaultUsername = "Anonymous"

var validate = validator.New()

// StatusObserver is called after every accepted change of the Status.
// target is nil while no node-server connection is active.
type StatusObserver func(username string, target *string)

// Status holds the current identity and connection target of the client.
// Each field has its own lock so unrelated reads and writes never wait on each
// other. Observer notification is serialized by a third lock and reads the
// fields live, a notification reports the latest values at callback time.
type Status struct {
	log *slog.Logger

	usernameMu sync.RWMutex
	username   string

	targetMu sync.RWMutex
	target   *string

	observerMu sync.Mutex
	observer   StatusObserver
}

func NewStatus(log *slog.Logger) *Status {
	return &Status{log: log, username: DefaultUsername}
}

func (s *Status) Username() string {
	s.usernameMu.RLock()
	defer s.usernameMu.RUnlock()
	return s.username
}

// SetUsername rejects names shorter than 4 characters and leaves the
// current one untouched in that case.
func (s *Status) SetUsername(username string) error {
	if err := validate.Var(username, "min=4"); err != nil {
		s.log.Debug("Username rejected", "username", username)
		return errors.ErrUsernameTooShort
	}

	s.usernameMu.Lock()
	s.username = username
	s.usernameMu.Unlock()

	s.notify()
	return nil
}

// ConnectionTarget returns the address of the active node-server, nil when disconnected.
func (s *Status) ConnectionTarget() *string {
	s.targetMu.RLock()
	defer s.targetMu.RUnlock()
	if s.target == nil {
		return nil
	}
	target := *s.target
	return &target
}

func (s *Status) SetConnectionTarget(target *string) {
	s.targetMu.Lock()
	if target == nil {
		s.target = nil
	} else {
		t := *target
		s.target = &t
	}
	s.targetMu.Unlock()

	s.notify()
}

func (s *Status) IsConnected() bool {
	return s.ConnectionTarget() != nil
}

// SetObserver installs the observer, nil removes it.
func (s *Status) SetObserver(observer StatusObserver) {
	s.observerMu.Lock()
	defer s.observerMu.Unlock()
	s.observer = observer
}

func (s *Status) notify() {
	s.observerMu.Lock()
	defer s.observerMu.Unlock()
	if s.observer == nil {
		return
	}
	s.observer(s.Username(), s.ConnectionTarget())
}
