package tether

import (
	"log/slog"

	"github.com/plexsphere/tetherd/internal/eventloop"
	"github.com/plexsphere/tetherd/internal/supplicant"
)

// Predicate decides whether a wait is over. It is evaluated on the event
// loop after the registry was seeded and after every change notification.
type Predicate func(r *Registry) bool

// State is the coordinator's position in the wait protocol.
type State int

const (
	// StateIdle means no session exists.
	StateIdle State = iota
	// StateArmed means a session exists but the nested loop was not entered.
	StateArmed
	// StateWaiting means the nested loop is running.
	StateWaiting
	// StateDone means the session finished and is being torn down.
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateArmed:
		return "ARMED"
	case StateWaiting:
		return "WAITING"
	case StateDone:
		return "DONE"
	default:
		return "INVALID STATE"
	}
}

// Outcome reports how a Request ended.
type Outcome int

const (
	// OutcomeNone means nothing was awaited.
	OutcomeNone Outcome = iota
	// OutcomeSatisfied means the predicate succeeded.
	OutcomeSatisfied
	// OutcomeTimedOut means the wait window elapsed first.
	OutcomeTimedOut
	// OutcomeCancelled means a request without predicate ended the wait.
	OutcomeCancelled
	// OutcomeOverridden is returned to a request that arrived while another
	// wait was active and replaced its predicate.
	OutcomeOverridden
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNone:
		return "none"
	case OutcomeSatisfied:
		return "satisfied"
	case OutcomeTimedOut:
		return "timed_out"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeOverridden:
		return "overridden"
	default:
		return "unknown"
	}
}

// Coordinator runs at most one wait session at a time. All methods must be
// called from the event loop.
type Coordinator struct {
	loop   *eventloop.Loop
	sup    supplicant.Supplicant
	cfg    Config
	logger *slog.Logger

	state   State
	session *session
}

// NewCoordinator creates a new Coordinator. Config defaults are applied
// automatically.
func NewCoordinator(loop *eventloop.Loop, sup supplicant.Supplicant, cfg Config, logger *slog.Logger) *Coordinator {
	cfg.ApplyDefaults()
	return &Coordinator{
		loop:   loop,
		sup:    sup,
		cfg:    cfg,
		logger: logger,
	}
}

// State returns the current protocol state.
func (c *Coordinator) State() State {
	return c.state
}

// Active reports whether a session exists.
func (c *Coordinator) Active() bool {
	return c.session != nil
}

type session struct {
	check     Predicate
	reg       *Registry
	quit      chan struct{}
	done      bool
	timedOut  bool
	cancelled bool
	logger    *slog.Logger
}

// evaluate re-checks the predicate and ends the wait once it holds. A nil
// predicate ends the wait unconditionally.
func (s *session) evaluate() {
	if s.done {
		return
	}
	if s.check == nil || s.check(s.reg) {
		s.finish()
	}
}

func (s *session) supplicantChanged(p supplicant.Property) {
	if s.done {
		return
	}
	s.logger.Debug("supplicant changed",
		"component", "tether",
		"property", p.String(),
	)
	s.reg.Refresh()
	s.evaluate()
}

func (s *session) timeout() {
	s.logger.Info("wait timed out, continuing anyway", "component", "tether")
	s.timedOut = true
	s.finish()
}

func (s *session) finish() {
	if s.done {
		return
	}
	s.done = true
	close(s.quit)
}

// Request waits until check holds for the supplicant's interfaces or the
// wait window elapses, dispatching other loop work meanwhile.
//
// If a session is already active, Request does not start another one: it
// replaces the active predicate and returns OutcomeOverridden at once. A
// nil check ends the active session; with no session active it is a no-op.
func (c *Coordinator) Request(check Predicate) Outcome {
	if s := c.session; s != nil {
		c.logger.Debug("already waiting", "component", "tether")
		s.check = check
		if check == nil {
			s.cancelled = true
			s.finish()
		}
		return OutcomeOverridden
	}
	if check == nil {
		return OutcomeNone
	}

	s := &session{
		check:  check,
		quit:   make(chan struct{}),
		logger: c.logger,
	}
	c.session = s
	c.state = StateArmed

	c.sup.Ref()
	s.reg = NewRegistry(c.sup, s.evaluate, c.logger)
	defer func() {
		s.reg.Close()
		c.sup.Unref()
		c.session = nil
		c.state = StateIdle
	}()

	// See what is known already.
	s.reg.Refresh()
	if c.sup.Valid() && check(s.reg) {
		c.state = StateDone
		return OutcomeSatisfied
	}

	timer := c.loop.AfterFunc(c.cfg.WaitTimeout, s.timeout)
	defer timer.Stop()

	ids := []supplicant.HandlerID{
		c.sup.AddPropertyChangedHandler(supplicant.PropertyValid, s.supplicantChanged),
		c.sup.AddPropertyChangedHandler(supplicant.PropertyInterfaces, s.supplicantChanged),
	}
	defer c.sup.RemoveHandlers(ids...)

	c.state = StateWaiting
	c.logger.Debug("waiting",
		"component", "tether",
		"timeout", c.cfg.WaitTimeout,
		"interfaces", s.reg.Len(),
	)
	c.loop.RunNested(s.quit)
	c.state = StateDone
	c.logger.Debug("done waiting", "component", "tether")

	switch {
	case s.timedOut:
		return OutcomeTimedOut
	case s.cancelled:
		return OutcomeCancelled
	case !s.done:
		// The loop stopped underneath us.
		s.done = true
		return OutcomeCancelled
	default:
		return OutcomeSatisfied
	}
}
