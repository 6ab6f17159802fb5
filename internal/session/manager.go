package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kalini-labs/lexio/internal/classify"
	"github.com/kalini-labs/lexio/internal/config"
	"github.com/kalini-labs/lexio/internal/mastery"
	"github.com/kalini-labs/lexio/internal/observe"
	"github.com/kalini-labs/lexio/internal/planner"
	"github.com/kalini-labs/lexio/pkg/provider/passage"
	"github.com/kalini-labs/lexio/pkg/wordstore"
)

var (
	// ErrSessionActive reports an Open for a user who already has a session.
	ErrSessionActive = errors.New("session: user already has an active session")

	// ErrNoSession reports a lookup for a user without an active session.
	ErrNoSession = errors.New("session: no active session for user")

	// ErrUnknownLanguage reports an Open with a language the configuration
	// does not define.
	ErrUnknownLanguage = errors.New("session: unknown language")
)

// Deps are the collaborators a [Manager] needs.
type Deps struct {
	Config    *config.Config
	Store     wordstore.Store
	Generator passage.Generator

	// GeneratorName labels generator metrics; defaults to the configured
	// generator name.
	GeneratorName string

	// Metrics defaults to [observe.DefaultMetrics].
	Metrics *observe.Metrics

	// Log defaults to slog.Default.
	Log *slog.Logger

	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Manager owns the active sessions, one per user.
type Manager struct {
	deps    Deps
	machine *mastery.Machine
	planner *planner.Planner

	mu       sync.Mutex
	sessions map[string]*Session

	// onramp counts bridge sessions per user and grade. Held in memory; a
	// restart begins a fresh on-ramp.
	onramp map[onrampKey]int
}

type onrampKey struct {
	user  string
	grade int
}

// NewManager validates deps and builds a manager.
func NewManager(deps Deps) (*Manager, error) {
	if deps.Config == nil {
		return nil, errors.New("session: config is required")
	}
	if deps.Store == nil {
		return nil, errors.New("session: store is required")
	}
	if deps.Generator == nil {
		return nil, errors.New("session: generator is required")
	}
	if deps.GeneratorName == "" {
		deps.GeneratorName = deps.Config.Generator.Name
	}
	if deps.Metrics == nil {
		deps.Metrics = observe.DefaultMetrics()
	}
	if deps.Log == nil {
		deps.Log = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	p := deps.Config.Practice
	return &Manager{
		deps:     deps,
		machine:  mastery.NewMachine(p.Mastery, p.Spacing, p.Instruction),
		planner:  planner.New(p, deps.Log),
		sessions: make(map[string]*Session),
		onramp:   make(map[onrampKey]int),
	}, nil
}

// Open starts a session for user in the given language and grade. A user can
// hold at most one active session.
func (m *Manager) Open(ctx context.Context, user, language string, grade int) (*Session, error) {
	lang := m.deps.Config.LanguageByCode(language)
	if lang == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLanguage, language)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.sessions[user]; exists {
		return nil, fmt.Errorf("%w: %s", ErrSessionActive, user)
	}

	bridge := m.deps.Config.BridgeFor(grade)
	if bridge != nil && bridge.OnrampSessions > 0 {
		key := onrampKey{user: user, grade: grade}
		m.onramp[key]++
		if m.onramp[key] > bridge.OnrampSessions {
			// On-ramp spent: the user continues at the grade's regular
			// difficulty.
			bridge = nil
		}
	}

	s := &Session{
		ID:         uuid.NewString(),
		User:       user,
		Language:   language,
		Grade:      grade,
		lang:       *lang,
		cfg:        m.deps.Config.Practice,
		store:      m.deps.Store,
		machine:    m.machine,
		plannerv:   m.planner,
		gen:        m.deps.Generator,
		genName:    m.deps.GeneratorName,
		classifier: classify.New(m.deps.Config.Practice.Scoring, *lang),
		metrics:    m.deps.Metrics,
		bridge:     bridge,
		now:        m.deps.Now,
		cache:      make(map[string]mastery.WordRecord),
		pending:    make(map[string]mastery.WordRecord),
		unresolved: make(map[string]int),
	}
	s.log = m.deps.Log.With("session_id", s.ID, "user", user, "language", language)
	m.sessions[user] = s

	m.deps.Metrics.ActiveSessions.Add(ctx, 1)
	s.log.Info("session: opened", "grade", grade)
	return s, nil
}

// Get returns the user's active session.
func (m *Manager) Get(user string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[user]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoSession, user)
	}
	return s, nil
}

// Close ends the user's session, flushing buffered writes. The session is
// removed even when the flush partially fails; committed per-word writes
// stay committed. Returns how many buffered records were flushed.
func (m *Manager) Close(ctx context.Context, user string) (int, error) {
	m.mu.Lock()
	s, ok := m.sessions[user]
	if ok {
		delete(m.sessions, user)
	}
	m.mu.Unlock()
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrNoSession, user)
	}

	m.deps.Metrics.ActiveSessions.Add(ctx, -1)
	flushed, err := s.close(ctx)
	if err != nil {
		return flushed, fmt.Errorf("session: close %s: %w", user, err)
	}
	s.log.Info("session: closed", "flushed_writes", flushed)
	return flushed, nil
}

// ActiveCount returns the number of open sessions.
func (m *Manager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// ActiveUsers returns the users with an open session. Used at shutdown to
// flush every session's buffered writes.
func (m *Manager) ActiveUsers() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	users := make([]string, 0, len(m.sessions))
	for user := range m.sessions {
		users = append(users, user)
	}
	return users
}
