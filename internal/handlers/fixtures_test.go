package handlers

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"studycards/internal/generator"
	"studycards/internal/logger"
	"studycards/internal/models"
	"studycards/internal/security"
	"studycards/internal/service"
	"studycards/internal/templates"
)

// memStore is an in-memory card store shared by the set, study and analysis services
type memStore struct {
	mu     sync.Mutex
	sets   map[int64]models.FlashcardSet
	cards  map[int64][]models.Flashcard
	nextID int64
}

func newMemStore() *memStore {
	return &memStore{sets: map[int64]models.FlashcardSet{}, cards: map[int64][]models.Flashcard{}, nextID: 100}
}

func (m *memStore) addSet(userID int64, topic string, contents ...string) models.FlashcardSet {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	set := models.FlashcardSet{ID: m.nextID, UserID: userID, Grade: 7, Subject: "Matematik", Topic: topic, CreatedAt: time.Now()}
	m.sets[set.ID] = set
	for i, c := range contents {
		m.nextID++
		m.cards[set.ID] = append(m.cards[set.ID], models.Flashcard{ID: m.nextID, FlashcardSetID: set.ID, Content: c, OrderIndex: i})
	}
	return set
}

func (m *memStore) CreateSet(ctx context.Context, userID int64, grade int, subject, topic string) (*models.FlashcardSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	set := models.FlashcardSet{ID: m.nextID, UserID: userID, Grade: grade, Subject: subject, Topic: topic, CreatedAt: time.Now()}
	m.sets[set.ID] = set
	return &set, nil
}

func (m *memStore) GetSet(ctx context.Context, setID, userID int64) (*models.FlashcardSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.sets[setID]
	if !ok || set.UserID != userID {
		return nil, nil
	}
	return &set, nil
}

func (m *memStore) ListSets(ctx context.Context, userID int64) ([]models.FlashcardSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.FlashcardSet
	for _, set := range m.sets {
		if set.UserID == userID {
			out = append(out, set)
		}
	}
	return out, nil
}

func (m *memStore) ListCards(ctx context.Context, setID int64) ([]models.Flashcard, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Flashcard(nil), m.cards[setID]...), nil
}

func (m *memStore) InsertCards(ctx context.Context, setID int64, cards []models.NewFlashcard) ([]models.Flashcard, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Flashcard
	for _, c := range cards {
		m.nextID++
		out = append(out, models.Flashcard{ID: m.nextID, FlashcardSetID: setID, Content: c.Content, Explanation: c.Explanation, OrderIndex: c.OrderIndex, IsExplanatory: c.IsExplanatory})
	}
	m.cards[setID] = append(m.cards[setID], out...)
	return out, nil
}

func (m *memStore) UpdateCardFlags(ctx context.Context, cardID int64, understood, needsReview bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for setID, cards := range m.cards {
		for i := range cards {
			if cards[i].ID == cardID {
				m.cards[setID][i].Understood = understood
				m.cards[setID][i].NeedsReview = needsReview
				return nil
			}
		}
	}
	return errors.New("card not found")
}

func (m *memStore) MarkSetCompleted(ctx context.Context, setID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	set := m.sets[setID]
	set.Completed = true
	m.sets[setID] = set
	return nil
}

func (m *memStore) DeleteSet(ctx context.Context, setID, userID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.sets[setID]
	if !ok || set.UserID != userID {
		return false, nil
	}
	delete(m.sets, setID)
	delete(m.cards, setID)
	return true, nil
}

// fakeGenerator returns n numbered cards, or err
type fakeGenerator struct {
	n   int
	err error
}

func (g *fakeGenerator) Generate(ctx context.Context, req generator.Request) ([]generator.CardContent, error) {
	if g.err != nil {
		return nil, g.err
	}
	out := make([]generator.CardContent, g.n)
	for i := range out {
		out[i] = generator.CardContent{Content: req.Topic + " kartı"}
	}
	return out, nil
}

func (g *fakeGenerator) GenerateExplanatory(ctx context.Context, grade int, subject, topic string, difficult []string) ([]generator.CardContent, error) {
	if g.err != nil {
		return nil, g.err
	}
	out := make([]generator.CardContent, len(difficult))
	for i, text := range difficult {
		out[i] = generator.CardContent{Content: text + " (açıklama)"}
	}
	return out, nil
}

var testUser = &models.User{ID: 1, Email: "ogrenci@example.com", Name: "Ayşe"}

const testSessionID = "session-1"

type testApp struct {
	store      *memStore
	gen        *fakeGenerator
	middleware *Middleware
	sets       *SetHandler
	study      *StudyHandler
	api        *APIHandler
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	tmpl, err := templates.Load()
	if err != nil {
		t.Fatalf("templates.Load() error = %v", err)
	}

	log := logger.NewNop()
	store := newMemStore()
	gen := &fakeGenerator{n: 3}
	studySvc := service.NewStudyService(store, gen, nil, time.Hour, log)
	analysisSvc := service.NewAnalysisService(store, studySvc, log)
	setSvc := service.NewSetService(store, gen, 3, log)
	mw := NewMiddleware(nil, security.NewCSRF("test-secret"), security.NewRateLimiter(2, time.Minute), log)

	return &testApp{
		store:      store,
		gen:        gen,
		middleware: mw,
		sets:       NewSetHandler(setSvc, analysisSvc, mw, tmpl, log),
		study:      NewStudyHandler(studySvc, analysisSvc, mw, tmpl, log),
		api:        NewAPIHandler(studySvc, analysisSvc, log),
	}
}

// signedIn attaches the test user as RequireAuth would
func signedIn(r *http.Request) *http.Request {
	return r.WithContext(withUser(r.Context(), testUser, testSessionID))
}
