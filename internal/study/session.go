// Package study drives a learner through the cards of one flashcard set.
//
// A Session walks the cards in order, records an understood/needs-review verdict
// for each, and when the pass ends with cards needing review it asks the generator
// once for explanatory cards and appends them to the pass. Card flag writes and the
// completion mark are best effort: the in-memory session is the source of truth for
// traversal, so a failed write is reported in the Outcome but never stops the learner.
//
// A Session is not safe for concurrent use.
package study

import (
	"context"
	"errors"
	"fmt"
	"time"

	"studycards/internal/generator"
	"studycards/internal/logger"
	"studycards/internal/models"
)

var (
	ErrNotFound        = errors.New("study: flashcard set not found")
	ErrEmptySet        = errors.New("study: flashcard set has no cards")
	ErrSessionComplete = errors.New("study: session is complete")
	ErrNotComplete     = errors.New("study: session is not complete")
	ErrStaleCard       = errors.New("study: card is not the current card")

	errNoRemediationCards = errors.New("study: generator returned no explanatory cards")
)

// Store is the persistence the session needs
type Store interface {
	GetSet(ctx context.Context, setID, userID int64) (*models.FlashcardSet, error)
	ListCards(ctx context.Context, setID int64) ([]models.Flashcard, error)
	InsertCards(ctx context.Context, setID int64, cards []models.NewFlashcard) ([]models.Flashcard, error)
	UpdateCardFlags(ctx context.Context, cardID int64, understood, needsReview bool) error
	MarkSetCompleted(ctx context.Context, setID int64) error
}

// Generator produces explanatory cards for difficult card texts
type Generator interface {
	GenerateExplanatory(ctx context.Context, grade int, subject, topic string, difficult []string) ([]generator.CardContent, error)
}

// Deps are the collaborators of a session
type Deps struct {
	Store     Store
	Generator Generator
	Log       *logger.Logger
	Now       func() time.Time
}

// Session is the in-memory state of one study pass over a set
type Session struct {
	deps Deps
	log  *logger.Logger

	set         models.FlashcardSet
	cards       []models.Flashcard
	cursor      int
	reviewQueue []models.Flashcard
	queued      map[int64]bool
	phase       Phase
	remediated  bool
	startedAt   time.Time
	completedAt time.Time
}

// Load fetches an owned set and its cards and starts a session at the first card.
func Load(ctx context.Context, deps Deps, auth models.AuthContext, setID int64) (*Session, error) {
	if deps.Log == nil {
		deps.Log = logger.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	set, err := deps.Store.GetSet(ctx, setID, auth.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load set %d: %w", setID, err)
	}
	if set == nil {
		return nil, ErrNotFound
	}

	cards, err := deps.Store.ListCards(ctx, setID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cards of set %d: %w", setID, err)
	}
	if len(cards) == 0 {
		return nil, ErrEmptySet
	}

	return &Session{
		deps:      deps,
		log:       deps.Log.With("set_id", setID, "user_id", auth.UserID),
		set:       *set,
		cards:     cards,
		queued:    map[int64]bool{},
		phase:     Active,
		startedAt: deps.Now(),
	}, nil
}

// Classify records the verdict for the current card and advances the session.
// cardID must be the current card; anything else is rejected with ErrStaleCard.
func (s *Session) Classify(ctx context.Context, cardID int64, verdict Verdict) (Outcome, error) {
	if s.phase == Complete {
		return Outcome{}, ErrSessionComplete
	}
	if verdict != Understood && verdict != NeedsReview {
		return Outcome{}, fmt.Errorf("%w: %d", ErrInvalidVerdict, int(verdict))
	}

	current := &s.cards[s.cursor]
	if current.ID != cardID {
		return Outcome{}, ErrStaleCard
	}

	out := Outcome{Verdict: verdict}
	understood := verdict == Understood

	// Sync result ignored: the local verdict drives traversal even if the write fails.
	if err := s.deps.Store.UpdateCardFlags(ctx, current.ID, understood, !understood); err != nil {
		out.SyncFailed = true
		s.log.Warn("card flag sync failed", "card_id", current.ID, "error", err)
	}
	current.Understood = understood
	current.NeedsReview = !understood

	if verdict == NeedsReview && !s.queued[current.ID] {
		s.queued[current.ID] = true
		s.reviewQueue = append(s.reviewQueue, *current)
		out.AddedToReview = true
	}

	if s.cursor < len(s.cards)-1 {
		s.cursor++
	} else {
		s.endOfSequence(ctx, &out)
	}

	out.Phase = s.phase
	out.Cursor = s.cursor
	return out, nil
}

func (s *Session) endOfSequence(ctx context.Context, out *Outcome) {
	if len(s.reviewQueue) > 0 && !s.remediated {
		if s.remediate(ctx, out) {
			return
		}
	}
	s.complete(ctx, out)
}

// remediate requests explanatory cards for the review queue and appends them.
// It reports whether the session went back to Active.
func (s *Session) remediate(ctx context.Context, out *Outcome) bool {
	s.phase = GeneratingRemediation
	s.remediated = true
	out.RemediationStarted = true

	texts := make([]string, len(s.reviewQueue))
	for i, card := range s.reviewQueue {
		texts[i] = card.Content
	}

	contents, err := s.deps.Generator.GenerateExplanatory(ctx, s.set.Grade, s.set.Subject, s.set.Topic, texts)
	if err == nil && len(contents) == 0 {
		err = errNoRemediationCards
	}
	if err != nil {
		out.RemediationFailed = true
		out.RemediationErr = err
		s.log.Warn("remediation generation failed", "review_cards", len(texts), "error", err)
		return false
	}

	base := s.nextOrderIndex()
	newCards := make([]models.NewFlashcard, len(contents))
	for i, content := range contents {
		newCards[i] = models.NewFlashcard{
			Content:       content.Content,
			Explanation:   content.Explanation,
			OrderIndex:    base + i,
			IsExplanatory: true,
		}
	}

	inserted, err := s.deps.Store.InsertCards(ctx, s.set.ID, newCards)
	if err != nil {
		out.RemediationFailed = true
		out.RemediationErr = err
		s.log.Warn("storing explanatory cards failed", "cards", len(newCards), "error", err)
		return false
	}

	first := len(s.cards)
	s.cards = append(s.cards, inserted...)
	s.cursor = first
	s.reviewQueue = nil
	s.queued = map[int64]bool{}
	s.phase = Active
	out.AppendedCards = len(inserted)

	s.log.Info("explanatory cards appended", "cards", len(inserted))
	return true
}

// nextOrderIndex continues from the number of cards, moved past any larger stored
// index so explanatory cards always sort after everything already in the set.
func (s *Session) nextOrderIndex() int {
	next := len(s.cards)
	for _, card := range s.cards {
		if card.OrderIndex >= next {
			next = card.OrderIndex + 1
		}
	}
	return next
}

func (s *Session) complete(ctx context.Context, out *Outcome) {
	s.phase = Complete
	s.completedAt = s.deps.Now()
	s.set.Completed = true
	out.Completed = true

	// Sync result ignored: the session reaches Complete even if the mark is lost.
	if err := s.deps.Store.MarkSetCompleted(ctx, s.set.ID); err != nil {
		out.CompletionSyncFailed = true
		s.log.Warn("marking set completed failed", "error", err)
		return
	}
	s.set.UpdatedAt = s.completedAt
}

// Restart begins a new pass over the same cards. It is allowed from Complete, and is
// a no-op on a session that is already at the start of a fresh pass.
func (s *Session) Restart() error {
	if s.phase != Complete {
		if s.phase == Active && s.cursor == 0 && len(s.reviewQueue) == 0 {
			return nil
		}
		return ErrNotComplete
	}
	s.cursor = 0
	s.reviewQueue = nil
	s.queued = map[int64]bool{}
	s.phase = Active
	return nil
}

func (s *Session) Phase() Phase { return s.phase }

func (s *Session) Cursor() int { return s.cursor }

func (s *Session) Set() models.FlashcardSet { return s.set }

func (s *Session) StartedAt() time.Time { return s.startedAt }

// Remediated reports whether the one remediation round has been used
func (s *Session) Remediated() bool { return s.remediated }

// Current returns the card under the cursor, or nil once the session is complete
func (s *Session) Current() *models.Flashcard {
	if s.phase == Complete {
		return nil
	}
	card := s.cards[s.cursor]
	return &card
}

// Cards returns a copy of the cards of this pass
func (s *Session) Cards() []models.Flashcard {
	return append([]models.Flashcard(nil), s.cards...)
}

// ReviewQueue returns a copy of the cards waiting for remediation
func (s *Session) ReviewQueue() []models.Flashcard {
	return append([]models.Flashcard(nil), s.reviewQueue...)
}

// Progress is the share of the pass already behind the cursor, in percent
func (s *Session) Progress() int {
	if s.phase == Complete {
		return 100
	}
	return s.cursor * 100 / len(s.cards)
}

// StudyTime is the elapsed time of the session, measured until completion
func (s *Session) StudyTime() string {
	end := s.completedAt
	if s.phase != Complete || end.IsZero() {
		end = s.deps.Now()
	}
	return StudyTime(s.startedAt, end)
}
