package models

import "time"

// FlashcardSet is one grade/subject/topic study unit owned by a user
type FlashcardSet struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Grade     int       `json:"grade"`
	Subject   string    `json:"subject"`
	Topic     string    `json:"topic"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Flashcard is one study item of a set. OrderIndex is unique within the set only.
type Flashcard struct {
	ID             int64     `json:"id"`
	FlashcardSetID int64     `json:"flashcard_set_id"`
	Content        string    `json:"content"`
	Explanation    *string   `json:"explanation"`
	Understood     bool      `json:"understood"`
	NeedsReview    bool      `json:"needs_review"`
	OrderIndex     int       `json:"order_index"`
	IsExplanatory  bool      `json:"is_explanatory"`
	CreatedAt      time.Time `json:"created_at"`
}

// NewFlashcard is the insert shape for a card; flags start false
type NewFlashcard struct {
	Content       string
	Explanation   *string
	OrderIndex    int
	IsExplanatory bool
}

// ExplanationText returns the explanation or an empty string
func (c *Flashcard) ExplanationText() string {
	if c.Explanation == nil {
		return ""
	}
	return *c.Explanation
}

// Classified reports whether the card carries a verdict
func (c *Flashcard) Classified() bool {
	return c.Understood || c.NeedsReview
}
