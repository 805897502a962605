package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"studycards/internal/database"
	"studycards/internal/models"
)

const (
	setColumns  = `id, user_id, grade, subject, topic, completed, created_at, updated_at`
	cardColumns = `id, flashcard_set_id, content, explanation, understood, needs_review, order_index, is_explanatory, created_at`
)

// FlashcardRepository stores flashcard sets and their cards
type FlashcardRepository struct {
	db *database.DB
}

// NewFlashcardRepository creates a new flashcard repository
func NewFlashcardRepository(db *database.DB) *FlashcardRepository {
	return &FlashcardRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSet(row scanner) (*models.FlashcardSet, error) {
	set := &models.FlashcardSet{}
	err := row.Scan(
		&set.ID,
		&set.UserID,
		&set.Grade,
		&set.Subject,
		&set.Topic,
		&set.Completed,
		&set.CreatedAt,
		&set.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return set, nil
}

func scanCard(row scanner) (*models.Flashcard, error) {
	card := &models.Flashcard{}
	var explanation sql.NullString
	err := row.Scan(
		&card.ID,
		&card.FlashcardSetID,
		&card.Content,
		&explanation,
		&card.Understood,
		&card.NeedsReview,
		&card.OrderIndex,
		&card.IsExplanatory,
		&card.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if explanation.Valid {
		card.Explanation = &explanation.String
	}
	return card, nil
}

// CreateSet inserts a new, not yet completed set
func (r *FlashcardRepository) CreateSet(ctx context.Context, userID int64, grade int, subject, topic string) (*models.FlashcardSet, error) {
	now := time.Now()
	query := `
		INSERT INTO flashcard_sets (user_id, grade, subject, topic, completed, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(ctx, query, userID, grade, subject, topic, false, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create flashcard set: %w", err)
	}

	return &models.FlashcardSet{
		ID:        id,
		UserID:    userID,
		Grade:     grade,
		Subject:   subject,
		Topic:     topic,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// GetSet retrieves a set owned by userID. It returns nil, nil when the set does
// not exist or belongs to someone else.
func (r *FlashcardRepository) GetSet(ctx context.Context, setID, userID int64) (*models.FlashcardSet, error) {
	query := `SELECT ` + setColumns + ` FROM flashcard_sets WHERE id = ? AND user_id = ?`
	set, err := scanSet(r.db.QueryRowContext(ctx, query, setID, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get flashcard set: %w", err)
	}
	return set, nil
}

// ListSets retrieves a user's sets, newest first
func (r *FlashcardRepository) ListSets(ctx context.Context, userID int64) ([]models.FlashcardSet, error) {
	query := `SELECT ` + setColumns + ` FROM flashcard_sets WHERE user_id = ? ORDER BY created_at DESC, id DESC`
	return r.querySets(ctx, query, userID)
}

// ListAllSets retrieves every set, for backups
func (r *FlashcardRepository) ListAllSets(ctx context.Context) ([]models.FlashcardSet, error) {
	return r.querySets(ctx, `SELECT `+setColumns+` FROM flashcard_sets ORDER BY id`)
}

func (r *FlashcardRepository) querySets(ctx context.Context, query string, args ...interface{}) ([]models.FlashcardSet, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query flashcard sets: %w", err)
	}
	defer rows.Close()

	sets := []models.FlashcardSet{}
	for rows.Next() {
		set, err := scanSet(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan flashcard set: %w", err)
		}
		sets = append(sets, *set)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate flashcard sets: %w", err)
	}
	return sets, nil
}

// MarkSetCompleted flags the set completed and refreshes updated_at
func (r *FlashcardRepository) MarkSetCompleted(ctx context.Context, setID int64) error {
	query := "UPDATE flashcard_sets SET completed = ?, updated_at = ? WHERE id = ?"
	if _, err := r.db.ExecContext(ctx, query, true, time.Now(), setID); err != nil {
		return fmt.Errorf("failed to mark flashcard set completed: %w", err)
	}
	return nil
}

// DeleteSet removes an owned set and, through the foreign key, its cards.
// It reports whether anything was deleted.
func (r *FlashcardRepository) DeleteSet(ctx context.Context, setID, userID int64) (bool, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM flashcard_sets WHERE id = ? AND user_id = ?", setID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to delete flashcard set: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to delete flashcard set: %w", err)
	}
	return n > 0, nil
}

// ListCards retrieves a set's cards ordered by order_index
func (r *FlashcardRepository) ListCards(ctx context.Context, setID int64) ([]models.Flashcard, error) {
	query := `SELECT ` + cardColumns + ` FROM flashcards WHERE flashcard_set_id = ? ORDER BY order_index, id`
	return r.queryCards(ctx, query, setID)
}

// ListAllCards retrieves every card, for backups
func (r *FlashcardRepository) ListAllCards(ctx context.Context) ([]models.Flashcard, error) {
	return r.queryCards(ctx, `SELECT `+cardColumns+` FROM flashcards ORDER BY flashcard_set_id, order_index, id`)
}

func (r *FlashcardRepository) queryCards(ctx context.Context, query string, args ...interface{}) ([]models.Flashcard, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query flashcards: %w", err)
	}
	defer rows.Close()

	cards := []models.Flashcard{}
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan flashcard: %w", err)
		}
		cards = append(cards, *card)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate flashcards: %w", err)
	}
	return cards, nil
}

// InsertCards bulk inserts cards into a set inside one transaction and returns
// the stored rows in input order.
func (r *FlashcardRepository) InsertCards(ctx context.Context, setID int64, cards []models.NewFlashcard) ([]models.Flashcard, error) {
	if len(cards) == 0 {
		return []models.Flashcard{}, nil
	}

	query := `
		INSERT INTO flashcards (flashcard_set_id, content, explanation, understood, needs_review, order_index, is_explanatory, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	inserted := make([]models.Flashcard, 0, len(cards))
	err := r.db.WithTx(ctx, func(tx *database.Tx) error {
		now := time.Now()
		for _, card := range cards {
			id, err := tx.ExecReturningID(ctx, query, setID, card.Content, card.Explanation, false, false, card.OrderIndex, card.IsExplanatory, now)
			if err != nil {
				return err
			}
			inserted = append(inserted, models.Flashcard{
				ID:             id,
				FlashcardSetID: setID,
				Content:        card.Content,
				Explanation:    card.Explanation,
				OrderIndex:     card.OrderIndex,
				IsExplanatory:  card.IsExplanatory,
				CreatedAt:      now,
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to insert flashcards: %w", err)
	}
	return inserted, nil
}

// UpdateCardFlags stores a card's verdict
func (r *FlashcardRepository) UpdateCardFlags(ctx context.Context, cardID int64, understood, needsReview bool) error {
	query := "UPDATE flashcards SET understood = ?, needs_review = ? WHERE id = ?"
	if _, err := r.db.ExecContext(ctx, query, understood, needsReview, cardID); err != nil {
		return fmt.Errorf("failed to update flashcard: %w", err)
	}
	return nil
}
