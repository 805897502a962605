package service

import (
	"context"
	"sync"
	"time"

	"studycards/internal/logger"
	"studycards/internal/models"
	"studycards/internal/study"
)

// CompletionMailer sends the summary of a finished set
type CompletionMailer interface {
	SendSetCompletedEmail(ctx context.Context, toEmail, toName string, set models.FlashcardSet, analysis models.SetAnalysis, studyTime string) error
}

type sessionKey struct {
	userID int64
	setID  int64
}

type studyEntry struct {
	mu       sync.Mutex
	session  *study.Session
	lastUsed time.Time
}

// StudyService keeps one in-memory study session per user and set. Calls on the
// same session are serialized; different sessions run independently.
type StudyService struct {
	mu       sync.Mutex
	sessions map[sessionKey]*studyEntry

	deps    study.Deps
	mailer  CompletionMailer
	idleTTL time.Duration
	now     func() time.Time
	log     *logger.Logger
}

// NewStudyService creates the registry. mailer may be nil.
func NewStudyService(store study.Store, gen study.Generator, mailer CompletionMailer, idleTTL time.Duration, log *logger.Logger) *StudyService {
	log = log.With("component", "study")
	return &StudyService{
		sessions: make(map[sessionKey]*studyEntry),
		deps:     study.Deps{Store: store, Generator: gen, Log: log},
		mailer:   mailer,
		idleTTL:  idleTTL,
		now:      time.Now,
		log:      log,
	}
}

func (s *StudyService) entry(auth models.AuthContext, setID int64) *studyEntry {
	key := sessionKey{userID: auth.UserID, setID: setID}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[key]
	if !ok {
		// Stamped now so PruneIdle cannot drop it before withSession takes e.mu
		e = &studyEntry{lastUsed: s.now()}
		s.sessions[key] = e
	}
	return e
}

func (s *StudyService) drop(auth models.AuthContext, setID int64, e *studyEntry) {
	key := sessionKey{userID: auth.UserID, setID: setID}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sessions[key] == e {
		delete(s.sessions, key)
	}
}

// withSession runs fn on the loaded session, loading it on first use.
// The entry lock is held for the whole call.
func (s *StudyService) withSession(ctx context.Context, auth models.AuthContext, setID int64, fn func(*study.Session) error) error {
	e := s.entry(auth, setID)
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == nil {
		deps := s.deps
		deps.Now = s.now
		session, err := study.Load(ctx, deps, auth, setID)
		if err != nil {
			s.drop(auth, setID, e)
			return err
		}
		e.session = session
	}
	e.lastUsed = s.now()
	return fn(e.session)
}

// Open returns the current state of the user's session on a set
func (s *StudyService) Open(ctx context.Context, auth models.AuthContext, setID int64) (study.View, error) {
	var view study.View
	err := s.withSession(ctx, auth, setID, func(session *study.Session) error {
		view = session.View()
		return nil
	})
	return view, err
}

// Classify records a verdict for the current card of the session
func (s *StudyService) Classify(ctx context.Context, auth models.AuthContext, setID, cardID int64, verdict study.Verdict) (study.Outcome, study.View, error) {
	var (
		out  study.Outcome
		view study.View
	)
	err := s.withSession(ctx, auth, setID, func(session *study.Session) error {
		var err error
		out, err = session.Classify(ctx, cardID, verdict)
		if err != nil {
			return err
		}
		view = session.View()
		return nil
	})
	if err != nil {
		return study.Outcome{}, study.View{}, err
	}

	if out.Completed {
		s.notifyCompleted(ctx, auth, view)
	}
	return out, view, nil
}

// Restart starts another pass over a completed session
func (s *StudyService) Restart(ctx context.Context, auth models.AuthContext, setID int64) (study.View, error) {
	var view study.View
	err := s.withSession(ctx, auth, setID, func(session *study.Session) error {
		if err := session.Restart(); err != nil {
			return err
		}
		view = session.View()
		return nil
	})
	return view, err
}

// Evict forgets the session of a user on a set
func (s *StudyService) Evict(auth models.AuthContext, setID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionKey{userID: auth.UserID, setID: setID})
}

// Active reports how many sessions are held in memory
func (s *StudyService) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// PruneIdle drops sessions not used within the idle TTL
func (s *StudyService) PruneIdle() int {
	cutoff := s.now().Add(-s.idleTTL)

	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for key, e := range s.sessions {
		if !e.mu.TryLock() {
			continue
		}
		if e.lastUsed.Before(cutoff) {
			delete(s.sessions, key)
			removed++
		}
		e.mu.Unlock()
	}
	if removed > 0 {
		s.log.Debug("idle study sessions pruned", "count", removed)
	}
	return removed
}

// Run prunes idle sessions on every interval until ctx is done
func (s *StudyService) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.PruneIdle()
		}
	}
}

func (s *StudyService) notifyCompleted(ctx context.Context, auth models.AuthContext, view study.View) {
	if s.mailer == nil || auth.Email == "" || view.Summary == nil {
		return
	}
	if err := s.mailer.SendSetCompletedEmail(ctx, auth.Email, auth.Name, view.Set, *view.Summary, view.StudyTime); err != nil {
		s.log.Warn("completion email failed", "set_id", view.Set.ID, "error", err)
	}
}
