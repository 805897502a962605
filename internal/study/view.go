package study

import "studycards/internal/models"

// View is a read-only snapshot of a session for rendering
type View struct {
	Set         models.FlashcardSet `json:"set"`
	Phase       Phase               `json:"phase"`
	Cursor      int                 `json:"cursor"`
	Total       int                 `json:"total"`
	Current     *models.Flashcard   `json:"current,omitempty"`
	ReviewCount int                 `json:"review_count"`
	Progress    int                 `json:"progress"`
	Remediated  bool                `json:"remediated"`
	StudyTime   string              `json:"study_time"`
	// Summary is only set once the session is complete
	Summary *models.SetAnalysis `json:"summary,omitempty"`
}

func (s *Session) View() View {
	v := View{
		Set:         s.set,
		Phase:       s.phase,
		Cursor:      s.cursor,
		Total:       len(s.cards),
		Current:     s.Current(),
		ReviewCount: len(s.reviewQueue),
		Progress:    s.Progress(),
		Remediated:  s.remediated,
		StudyTime:   s.StudyTime(),
	}
	if s.phase == Complete {
		summary := models.AnalyzeCards(s.cards)
		v.Summary = &summary
	}
	return v
}
