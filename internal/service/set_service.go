package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"studycards/internal/generator"
	"studycards/internal/logger"
	"studycards/internal/models"
	"studycards/internal/validation"
)

const (
	WizardGradeStep = iota + 1
	WizardSubjectStep
	WizardTopicStep
)

var ErrWizardIncomplete = errors.New("set wizard is not complete")

// Wizard is the three step grade, subject and topic selection
type Wizard struct {
	Step    int
	Grade   int
	Subject string
	Topic   string
}

func NewWizard() Wizard {
	return Wizard{Step: WizardGradeStep}
}

func (w *Wizard) SetGrade(grade int)       { w.Grade = grade }
func (w *Wizard) SetSubject(subject string) { w.Subject = subject }
func (w *Wizard) SetTopic(topic string)     { w.Topic = topic }

// StepError validates the field owned by the current step
func (w Wizard) StepError() error {
	switch w.Step {
	case WizardGradeStep:
		return validation.ValidateGrade(w.Grade)
	case WizardSubjectStep:
		return validation.ValidateSubject(w.Subject)
	case WizardTopicStep:
		return validation.ValidateTopic(w.Topic)
	default:
		return fmt.Errorf("unknown wizard step %d", w.Step)
	}
}

func (w Wizard) CanProceed() bool {
	return w.StepError() == nil
}

// Next moves forward when the current step is valid
func (w *Wizard) Next() bool {
	if w.Step >= WizardTopicStep || !w.CanProceed() {
		return false
	}
	w.Step++
	return true
}

func (w *Wizard) Back() {
	if w.Step > WizardGradeStep {
		w.Step--
	}
}

// Ready reports whether every step holds a valid value
func (w Wizard) Ready() bool {
	return validation.ValidateGrade(w.Grade) == nil &&
		validation.ValidateSubject(w.Subject) == nil &&
		validation.ValidateTopic(w.Topic) == nil
}

// ProgressPercent is the share of steps reached
func (w Wizard) ProgressPercent() int {
	return w.Step * 100 / WizardTopicStep
}

// SetStore is the part of the card store used to create sets
type SetStore interface {
	CreateSet(ctx context.Context, userID int64, grade int, subject, topic string) (*models.FlashcardSet, error)
	InsertCards(ctx context.Context, setID int64, cards []models.NewFlashcard) ([]models.Flashcard, error)
}

// CardGenerator produces the initial cards of a set
type CardGenerator interface {
	Generate(ctx context.Context, req generator.Request) ([]generator.CardContent, error)
}

// SetService creates flashcard sets from a finished wizard
type SetService struct {
	store     SetStore
	generator CardGenerator
	count     int
	log       *logger.Logger
}

func NewSetService(store SetStore, gen CardGenerator, count int, log *logger.Logger) *SetService {
	return &SetService{
		store:     store,
		generator: gen,
		count:     count,
		log:       log.With("component", "sets"),
	}
}

// Create stores a new set and its generated cards. A set whose generation or
// insert fails is left in place without cards; the error is returned.
func (s *SetService) Create(ctx context.Context, auth models.AuthContext, w Wizard) (*models.FlashcardSet, []models.Flashcard, error) {
	if !w.Ready() {
		return nil, nil, ErrWizardIncomplete
	}
	topic := strings.TrimSpace(w.Topic)

	set, err := s.store.CreateSet(ctx, auth.UserID, w.Grade, w.Subject, topic)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create set: %w", err)
	}
	log := s.log.With("set_id", set.ID, "user_id", auth.UserID)

	contents, err := s.generator.Generate(ctx, generator.Request{
		Grade:   w.Grade,
		Subject: w.Subject,
		Topic:   topic,
		Count:   s.count,
	})
	if err != nil {
		log.Warn("card generation failed, set left empty", "error", err)
		return set, nil, err
	}

	newCards := make([]models.NewFlashcard, len(contents))
	for i, c := range contents {
		newCards[i] = models.NewFlashcard{Content: c.Content, Explanation: c.Explanation, OrderIndex: i}
	}

	cards, err := s.store.InsertCards(ctx, set.ID, newCards)
	if err != nil {
		log.Warn("storing generated cards failed, set left empty", "error", err)
		return set, nil, fmt.Errorf("failed to store cards: %w", err)
	}

	log.Info("set created", "cards", len(cards), "requested", s.count)
	return set, cards, nil
}
