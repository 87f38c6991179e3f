package checkout

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Lixing-Zhang/account-storefront/internal/models"
	"github.com/google/uuid"
)

// Session is one buyer's checkout for one product: the workflow plus the
// confirmation that follows a successful submit.
type Session struct {
	ID        string
	ProductID int64

	workflow *Workflow
	gateway  PaymentGateway
	log      *slog.Logger

	mu           sync.Mutex
	submitting   int
	confirmation *Confirmation
	lastSeen     time.Time
}

// Workflow returns the session's checkout workflow
func (s *Session) Workflow() *Workflow {
	return s.workflow
}

// Submit submits the workflow and opens the confirmation on success. The
// session does not count as done until the confirmation is attached.
func (s *Session) Submit(ctx context.Context) (*models.Order, error) {
	s.mu.Lock()
	s.submitting++
	s.mu.Unlock()

	order, err := s.workflow.Submit(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitting--
	if err != nil {
		return nil, err
	}
	s.confirmation = NewConfirmation(*order, s.gateway, s.log)
	return order, nil
}

// Confirmation returns the open confirmation
func (s *Session) Confirmation() (*Confirmation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.confirmation == nil || !s.confirmation.IsOpen() {
		return nil, ErrNoConfirmation
	}
	return s.confirmation, nil
}

// Done reports whether nothing is left open in the session
func (s *Session) Done() bool {
	s.mu.Lock()
	conf := s.confirmation
	submitting := s.submitting
	s.mu.Unlock()

	if submitting > 0 {
		return false
	}
	if conf != nil && conf.IsOpen() {
		return false
	}
	st := s.workflow.State()
	return st == StateIdle || st == StateConfirmed
}

func (s *Session) inFlight() bool {
	s.mu.Lock()
	submitting := s.submitting
	s.mu.Unlock()
	return submitting > 0 || s.workflow.State() == StateSubmitting
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Registry holds the live checkout sessions
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	creator      OrderCreator
	gateway      PaymentGateway
	log          *slog.Logger
	onTransition TransitionFunc
	now          func() time.Time
}

// NewRegistry creates an empty registry whose sessions submit through
// creator and pay through gateway
func NewRegistry(creator OrderCreator, gateway PaymentGateway, log *slog.Logger) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		creator:  creator,
		gateway:  gateway,
		log:      log,
		now:      time.Now,
	}
}

// OnTransition registers fn on every workflow created afterwards
func (r *Registry) OnTransition(fn TransitionFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onTransition = fn
}

// Open creates a session and opens its checkout for product
func (r *Registry) Open(product models.Product) (*Session, error) {
	r.mu.RLock()
	hook := r.onTransition
	r.mu.RUnlock()

	wf := NewWorkflow(r.creator, r.log)
	if hook != nil {
		wf.OnTransition(hook)
	}
	if err := wf.Open(product); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	s := &Session{
		ID:        id,
		ProductID: product.ID,
		workflow:  wf,
		gateway:   r.gateway,
		log:       r.log.With("session_id", id),
		lastSeen:  r.now(),
	}

	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()

	return s, nil
}

// Get returns the session with id
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()

	if !ok {
		return nil, ErrSessionNotFound
	}
	s.touch(r.now())
	return s, nil
}

// Release drops the session if it has nothing left open
func (r *Registry) Release(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok || !s.Done() {
		return false
	}
	delete(r.sessions, id)
	return true
}

// Len returns the number of live sessions
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Sweep removes sessions idle for longer than ttl. Sessions with a
// submission or payment in flight are kept.
func (r *Registry) Sweep(ttl time.Duration) int {
	cutoff := r.now().Add(-ttl)

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, s := range r.sessions {
		if s.idleSince().After(cutoff) {
			continue
		}
		if s.inFlight() {
			continue
		}
		if conf, err := s.Confirmation(); err == nil {
			if v, err := conf.View(); err == nil && v.Paying {
				continue
			}
		}
		delete(r.sessions, id)
		removed++
	}
	return removed
}
