package models

import "math"

// SetAnalysis aggregates the card flags of one set
type SetAnalysis struct {
	TotalCards       int     `json:"total_cards"`
	UnderstoodCards  int     `json:"understood_cards"`
	ReviewCards      int     `json:"review_cards"`
	ExplanatoryCards int     `json:"explanatory_cards"`
	CompletionRate   float64 `json:"completion_rate"`
}

// AnalyzeCards counts understood, needs-review and explanatory cards.
// CompletionRate is understood/total*100, or 0 for an empty set.
func AnalyzeCards(cards []Flashcard) SetAnalysis {
	a := SetAnalysis{TotalCards: len(cards)}
	for _, card := range cards {
		if card.Understood {
			a.UnderstoodCards++
		}
		if card.NeedsReview {
			a.ReviewCards++
		}
		if card.IsExplanatory {
			a.ExplanatoryCards++
		}
	}
	if a.TotalCards > 0 {
		a.CompletionRate = float64(a.UnderstoodCards) / float64(a.TotalCards) * 100
	}
	return a
}

// RoundedCompletionRate is the rate as shown to users
func (a SetAnalysis) RoundedCompletionRate() int {
	return int(math.Round(a.CompletionRate))
}

// DashboardSummary splits a user's sets into current and past work
type DashboardSummary struct {
	CurrentSets     []FlashcardSet `json:"current_sets"`
	PastSets        []FlashcardSet `json:"past_sets"`
	TotalSets       int            `json:"total_sets"`
	CompletedSets   int            `json:"completed_sets"`
	InProgressSets  int            `json:"in_progress_sets"`
	CompletionShare int            `json:"completion_share"`
}

// SummarizeSets keeps the input order inside each group
func SummarizeSets(sets []FlashcardSet) DashboardSummary {
	s := DashboardSummary{
		CurrentSets: []FlashcardSet{},
		PastSets:    []FlashcardSet{},
		TotalSets:   len(sets),
	}
	for _, set := range sets {
		if set.Completed {
			s.PastSets = append(s.PastSets, set)
		} else {
			s.CurrentSets = append(s.CurrentSets, set)
		}
	}
	s.CompletedSets = len(s.PastSets)
	s.InProgressSets = s.TotalSets - s.CompletedSets
	if s.TotalSets > 0 {
		s.CompletionShare = int(math.Round(float64(s.CompletedSets) / float64(s.TotalSets) * 100))
	}
	return s
}
