package service

import (
	"context"
	"fmt"

	"studycards/internal/logger"
	"studycards/internal/models"
	"studycards/internal/study"
)

// AnalysisStore is the read side of the card store
type AnalysisStore interface {
	ListSets(ctx context.Context, userID int64) ([]models.FlashcardSet, error)
	GetSet(ctx context.Context, setID, userID int64) (*models.FlashcardSet, error)
	ListCards(ctx context.Context, setID int64) ([]models.Flashcard, error)
	DeleteSet(ctx context.Context, setID, userID int64) (bool, error)
}

// SetReport is the analysis page of one set
type SetReport struct {
	Set      models.FlashcardSet `json:"set"`
	Cards    []models.Flashcard  `json:"cards"`
	Analysis models.SetAnalysis  `json:"analysis"`
}

// AnalysisService builds the dashboard and per-set analysis
type AnalysisService struct {
	store AnalysisStore
	study *StudyService
	log   *logger.Logger
}

// NewAnalysisService creates the service. studySvc may be nil.
func NewAnalysisService(store AnalysisStore, studySvc *StudyService, log *logger.Logger) *AnalysisService {
	return &AnalysisService{store: store, study: studySvc, log: log.With("component", "analysis")}
}

func (s *AnalysisService) Dashboard(ctx context.Context, auth models.AuthContext) (models.DashboardSummary, error) {
	sets, err := s.store.ListSets(ctx, auth.UserID)
	if err != nil {
		return models.DashboardSummary{}, fmt.Errorf("failed to list sets: %w", err)
	}
	return models.SummarizeSets(sets), nil
}

// Analyze loads an owned set with its stored card flags
func (s *AnalysisService) Analyze(ctx context.Context, auth models.AuthContext, setID int64) (*SetReport, error) {
	set, err := s.store.GetSet(ctx, setID, auth.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load set: %w", err)
	}
	if set == nil {
		return nil, study.ErrNotFound
	}
	cards, err := s.store.ListCards(ctx, setID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cards: %w", err)
	}
	return &SetReport{Set: *set, Cards: cards, Analysis: models.AnalyzeCards(cards)}, nil
}

// DeleteSet removes an owned set, its cards and any open study session on it
func (s *AnalysisService) DeleteSet(ctx context.Context, auth models.AuthContext, setID int64) error {
	deleted, err := s.store.DeleteSet(ctx, setID, auth.UserID)
	if err != nil {
		return fmt.Errorf("failed to delete set: %w", err)
	}
	if !deleted {
		return study.ErrNotFound
	}
	if s.study != nil {
		s.study.Evict(auth, setID)
	}
	s.log.Info("set deleted", "set_id", setID, "user_id", auth.UserID)
	return nil
}
