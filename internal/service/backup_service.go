package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"studycards/internal/database"
	"studycards/internal/logger"
	"studycards/internal/models"
	"studycards/internal/repository"
)

const BackupVersion = "1"

// BackupData is the JSON snapshot written by Export
type BackupData struct {
	Version      string       `json:"version"`
	ExportedAt   time.Time    `json:"exported_at"`
	DatabaseType string       `json:"database_type"`
	Users        []UserBackup `json:"users"`
	Sets         []SetBackup  `json:"flashcard_sets"`
	Cards        []CardBackup `json:"flashcards"`
}

type UserBackup struct {
	ID            int64     `json:"id"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"password_hash"`
	Name          string    `json:"name"`
	OAuthProvider string    `json:"oauth_provider,omitempty"`
	OAuthSubject  string    `json:"oauth_subject,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type SetBackup struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Grade     int       `json:"grade"`
	Subject   string    `json:"subject"`
	Topic     string    `json:"topic"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CardBackup struct {
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

// BackupService exports and restores users, sets and cards
type BackupService struct {
	db    *database.DB
	users *repository.UserRepository
	cards *repository.FlashcardRepository
	log   *logger.Logger
}

func NewBackupService(db *database.DB, log *logger.Logger) *BackupService {
	return &BackupService{
		db:    db,
		users: repository.NewUserRepository(db),
		cards: repository.NewFlashcardRepository(db),
		log:   log.With("component", "backup"),
	}
}

// Snapshot reads the whole database into a BackupData
func (s *BackupService) Snapshot(ctx context.Context) (*BackupData, error) {
	backup := &BackupData{
		Version:      BackupVersion,
		ExportedAt:   time.Now().UTC(),
		DatabaseType: s.db.GetDialect().Name(),
		Users:        []UserBackup{},
		Sets:         []SetBackup{},
		Cards:        []CardBackup{},
	}

	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to export users: %w", err)
	}
	for _, u := range users {
		backup.Users = append(backup.Users, UserBackup{
			ID: u.ID, Email: u.Email, PasswordHash: u.PasswordHash, Name: u.Name,
			OAuthProvider: u.OAuthProvider, OAuthSubject: u.OAuthSubject,
			CreatedAt: u.CreatedAt, UpdatedAt: u.UpdatedAt,
		})
	}

	sets, err := s.cards.ListAllSets(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to export sets: %w", err)
	}
	for _, set := range sets {
		backup.Sets = append(backup.Sets, SetBackup(set))
	}

	cards, err := s.cards.ListAllCards(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to export cards: %w", err)
	}
	for _, c := range cards {
		backup.Cards = append(backup.Cards, cardBackup(c))
	}
	return backup, nil
}

func cardBackup(c models.Flashcard) CardBackup {
	return CardBackup{
		ID: c.ID, FlashcardSetID: c.FlashcardSetID, Content: c.Content, Explanation: c.Explanation,
		Understood: c.Understood, NeedsReview: c.NeedsReview, OrderIndex: c.OrderIndex,
		IsExplanatory: c.IsExplanatory, CreatedAt: c.CreatedAt,
	}
}

// Export writes an indented JSON snapshot to w
func (s *BackupService) Export(ctx context.Context, w io.Writer) (*BackupData, error) {
	backup, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(backup); err != nil {
		return nil, fmt.Errorf("failed to encode backup: %w", err)
	}
	s.log.Info("database exported", "users", len(backup.Users), "sets", len(backup.Sets), "cards", len(backup.Cards))
	return backup, nil
}

// backupTables lists the tables in dependency order
var backupTables = []string{"users", "flashcard_sets", "flashcards"}

// Import reads a snapshot from r and inserts it in one transaction, keeping ids.
// With clear set, existing rows are deleted first.
func (s *BackupService) Import(ctx context.Context, r io.Reader, clear bool) (*BackupData, error) {
	var backup BackupData
	if err := json.NewDecoder(r).Decode(&backup); err != nil {
		return nil, fmt.Errorf("failed to decode backup: %w", err)
	}
	if backup.Version != BackupVersion {
		return nil, fmt.Errorf("unsupported backup version %q", backup.Version)
	}

	err := s.db.WithTx(ctx, func(tx *database.Tx) error {
		if clear {
			if _, err := tx.ExecContext(ctx, "DELETE FROM sessions"); err != nil {
				return fmt.Errorf("failed to clear sessions: %w", err)
			}
			for i := len(backupTables) - 1; i >= 0; i-- {
				if _, err := tx.ExecContext(ctx, "DELETE FROM "+backupTables[i]); err != nil {
					return fmt.Errorf("failed to clear %s: %w", backupTables[i], err)
				}
			}
		}
		if err := importUsers(ctx, tx, backup.Users); err != nil {
			return err
		}
		if err := importSets(ctx, tx, backup.Sets); err != nil {
			return err
		}
		if err := importCards(ctx, tx, backup.Cards); err != nil {
			return err
		}
		return resetSequences(ctx, tx)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("database imported", "users", len(backup.Users), "sets", len(backup.Sets), "cards", len(backup.Cards), "exported_at", backup.ExportedAt)
	return &backup, nil
}

func importUsers(ctx context.Context, tx *database.Tx, users []UserBackup) error {
	query := "INSERT INTO users (id, email, password_hash, name, oauth_provider, oauth_subject, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)"
	for _, u := range users {
		if _, err := tx.ExecContext(ctx, query, u.ID, u.Email, u.PasswordHash, u.Name, nullIfEmpty(u.OAuthProvider), nullIfEmpty(u.OAuthSubject), u.CreatedAt, u.UpdatedAt); err != nil {
			return fmt.Errorf("failed to import user %d: %w", u.ID, err)
		}
	}
	return nil
}

func importSets(ctx context.Context, tx *database.Tx, sets []SetBackup) error {
	query := "INSERT INTO flashcard_sets (id, user_id, grade, subject, topic, completed, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)"
	for _, set := range sets {
		if _, err := tx.ExecContext(ctx, query, set.ID, set.UserID, set.Grade, set.Subject, set.Topic, set.Completed, set.CreatedAt, set.UpdatedAt); err != nil {
			return fmt.Errorf("failed to import set %d: %w", set.ID, err)
		}
	}
	return nil
}

func importCards(ctx context.Context, tx *database.Tx, cards []CardBackup) error {
	query := "INSERT INTO flashcards (id, flashcard_set_id, content, explanation, understood, needs_review, order_index, is_explanatory, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)"
	for _, c := range cards {
		if _, err := tx.ExecContext(ctx, query, c.ID, c.FlashcardSetID, c.Content, c.Explanation, c.Understood, c.NeedsReview, c.OrderIndex, c.IsExplanatory, c.CreatedAt); err != nil {
			return fmt.Errorf("failed to import card %d: %w", c.ID, err)
		}
	}
	return nil
}

// resetSequences moves id counters past the imported ids where the database needs it
func resetSequences(ctx context.Context, tx *database.Tx) error {
	for _, table := range backupTables {
		query := tx.GetDialect().ResetSequenceQuery(table)
		if query == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to reset %s sequence: %w", table, err)
		}
	}
	return nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
