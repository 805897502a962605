package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"studycards/internal/generator"
	"studycards/internal/logger"
	"studycards/internal/models"
	"studycards/internal/study"
)

type memoryCardStore struct {
	mu        sync.Mutex
	sets      map[int64]models.FlashcardSet
	cards     map[int64][]models.Flashcard
	listCalls int
	nextID    int64
}

func newMemoryCardStore() *memoryCardStore {
	return &memoryCardStore{
		sets:   map[int64]models.FlashcardSet{},
		cards:  map[int64][]models.Flashcard{},
		nextID: 1000,
	}
}

func (m *memoryCardStore) addSet(set models.FlashcardSet, contents ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets[set.ID] = set
	for i, c := range contents {
		m.nextID++
		m.cards[set.ID] = append(m.cards[set.ID], models.Flashcard{ID: m.nextID, FlashcardSetID: set.ID, Content: c, OrderIndex: i})
	}
}

func (m *memoryCardStore) GetSet(ctx context.Context, setID, userID int64) (*models.FlashcardSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.sets[setID]
	if !ok || set.UserID != userID {
		return nil, nil
	}
	return &set, nil
}

func (m *memoryCardStore) ListSets(ctx context.Context, userID int64) ([]models.FlashcardSet, error) {
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

func (m *memoryCardStore) ListCards(ctx context.Context, setID int64) ([]models.Flashcard, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	return append([]models.Flashcard(nil), m.cards[setID]...), nil
}

func (m *memoryCardStore) InsertCards(ctx context.Context, setID int64, cards []models.NewFlashcard) ([]models.Flashcard, error) {
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

func (m *memoryCardStore) UpdateCardFlags(ctx context.Context, cardID int64, understood, needsReview bool) error {
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

func (m *memoryCardStore) MarkSetCompleted(ctx context.Context, setID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	set := m.sets[setID]
	set.Completed = true
	m.sets[setID] = set
	return nil
}

func (m *memoryCardStore) DeleteSet(ctx context.Context, setID, userID int64) (bool, error) {
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

type stubExplainer struct {
	err error
}

func (s stubExplainer) GenerateExplanatory(ctx context.Context, grade int, subject, topic string, difficult []string) ([]generator.CardContent, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([]generator.CardContent, len(difficult))
	for i, text := range difficult {
		explanation := "Açıklama: " + text
		out[i] = generator.CardContent{Content: text + " (basit)", Explanation: &explanation}
	}
	return out, nil
}

type sentMail struct {
	to       string
	set      models.FlashcardSet
	analysis models.SetAnalysis
}

type recordingMailer struct {
	sent []sentMail
	err  error
}

func (r *recordingMailer) SendSetCompletedEmail(ctx context.Context, toEmail, toName string, set models.FlashcardSet, analysis models.SetAnalysis, studyTime string) error {
	r.sent = append(r.sent, sentMail{to: toEmail, set: set, analysis: analysis})
	return r.err
}

var student = models.AuthContext{UserID: 1, Email: "ogrenci@example.com", Name: "Ada"}

func newStudyFixture(t *testing.T) (*StudyService, *memoryCardStore, *recordingMailer) {
	t.Helper()
	store := newMemoryCardStore()
	store.addSet(models.FlashcardSet{ID: 5, UserID: 1, Grade: 6, Subject: "Matematik", Topic: "Kesirler"}, "A", "B")
	mailer := &recordingMailer{}
	return NewStudyService(store, stubExplainer{}, mailer, time.Hour, logger.NewNop()), store, mailer
}

func TestStudyServiceKeepsSessionBetweenCalls(t *testing.T) {
	svc, store, _ := newStudyFixture(t)
	ctx := context.Background()

	view, err := svc.Open(ctx, student, 5)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if view.Current == nil || view.Current.Content != "A" || view.Total != 2 {
		t.Fatalf("Open() view = %+v", view)
	}

	_, view, err = svc.Classify(ctx, student, 5, view.Current.ID, study.Understood)
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if view.Cursor != 1 {
		t.Errorf("Cursor = %d, want 1", view.Cursor)
	}

	again, err := svc.Open(ctx, student, 5)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if again.Cursor != 1 || store.listCalls != 1 {
		t.Errorf("session should be reused: cursor=%d loads=%d", again.Cursor, store.listCalls)
	}
}

func TestStudyServiceFullPassSendsSummary(t *testing.T) {
	svc, store, mailer := newStudyFixture(t)
	ctx := context.Background()

	view, _ := svc.Open(ctx, student, 5)
	_, view, _ = svc.Classify(ctx, student, 5, view.Current.ID, study.NeedsReview)
	out, view, err := svc.Classify(ctx, student, 5, view.Current.ID, study.Understood)
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if out.AppendedCards != 1 || view.Phase != study.Active || view.Current.Content != "A (basit)" {
		t.Fatalf("after remediation: out=%+v view=%+v", out, view)
	}
	if len(mailer.sent) != 0 {
		t.Error("no email before completion")
	}

	out, view, err = svc.Classify(ctx, student, 5, view.Current.ID, study.Understood)
	if err != nil || !out.Completed {
		t.Fatalf("Classify() = %+v, %v, want completion", out, err)
	}
	if view.Summary == nil || view.Summary.TotalCards != 3 || view.Summary.ExplanatoryCards != 1 {
		t.Errorf("Summary = %+v", view.Summary)
	}
	if len(mailer.sent) != 1 || mailer.sent[0].to != "ogrenci@example.com" || mailer.sent[0].analysis.UnderstoodCards != 2 {
		t.Errorf("mails = %+v", mailer.sent)
	}
	if !store.sets[5].Completed {
		t.Error("set should be stored as completed")
	}

	if _, _, err := svc.Classify(ctx, student, 5, view.Set.ID, study.Understood); !errors.Is(err, study.ErrSessionComplete) {
		t.Errorf("Classify() after completion error = %v", err)
	}

	view, err = svc.Restart(ctx, student, 5)
	if err != nil || view.Cursor != 0 || view.Phase != study.Active || view.Total != 3 {
		t.Errorf("Restart() = %+v, %v", view, err)
	}
}

func TestStudyServiceMailFailureIsIgnored(t *testing.T) {
	svc, _, mailer := newStudyFixture(t)
	mailer.err = errors.New("ses throttled")
	ctx := context.Background()

	view, _ := svc.Open(ctx, student, 5)
	_, view, _ = svc.Classify(ctx, student, 5, view.Current.ID, study.Understood)
	out, _, err := svc.Classify(ctx, student, 5, view.Current.ID, study.Understood)
	if err != nil || !out.Completed {
		t.Errorf("Classify() = %+v, %v", out, err)
	}
}

func TestStudyServiceLoadErrors(t *testing.T) {
	svc, store, _ := newStudyFixture(t)
	store.addSet(models.FlashcardSet{ID: 6, UserID: 1, Grade: 6, Subject: "Matematik", Topic: "Boş"})
	ctx := context.Background()

	if _, err := svc.Open(ctx, student, 99); !errors.Is(err, study.ErrNotFound) {
		t.Errorf("Open(missing) error = %v, want ErrNotFound", err)
	}
	if _, err := svc.Open(ctx, models.AuthContext{UserID: 2}, 5); !errors.Is(err, study.ErrNotFound) {
		t.Errorf("Open(other user) error = %v, want ErrNotFound", err)
	}
	if _, err := svc.Open(ctx, student, 6); !errors.Is(err, study.ErrEmptySet) {
		t.Errorf("Open(empty) error = %v, want ErrEmptySet", err)
	}
	if svc.Active() != 0 {
		t.Errorf("failed loads should not be kept, Active() = %d", svc.Active())
	}
}

func TestStudyServiceEvictAndPrune(t *testing.T) {
	svc, store, _ := newStudyFixture(t)
	now := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	ctx := context.Background()

	if _, err := svc.Open(ctx, student, 5); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	svc.Evict(student, 5)
	if svc.Active() != 0 {
		t.Fatal("Evict() should drop the session")
	}
	if _, err := svc.Open(ctx, student, 5); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if store.listCalls != 2 {
		t.Errorf("evicted session should reload, loads = %d", store.listCalls)
	}

	now = now.Add(30 * time.Minute)
	if n := svc.PruneIdle(); n != 0 {
		t.Errorf("PruneIdle() = %d before the TTL, want 0", n)
	}
	now = now.Add(31 * time.Minute)
	if n := svc.PruneIdle(); n != 1 || svc.Active() != 0 {
		t.Errorf("PruneIdle() = %d, Active() = %d, want 1, 0", n, svc.Active())
	}
}

func TestStudyServiceNewEntrySurvivesPrune(t *testing.T) {
	svc, _, _ := newStudyFixture(t)
	now := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	// A request has registered the entry but not yet loaded the session
	e := svc.entry(student, 5)
	if e.lastUsed.IsZero() {
		t.Error("new entry should be stamped with the current time")
	}
	if n := svc.PruneIdle(); n != 0 {
		t.Errorf("PruneIdle() = %d, want 0 for a fresh entry", n)
	}
	if svc.Active() != 1 {
		t.Fatalf("Active() = %d, want 1", svc.Active())
	}

	if _, err := svc.Open(context.Background(), student, 5); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if got := svc.entry(student, 5); got != e {
		t.Error("Open() should reuse the registered entry")
	}
}

func TestStudyServiceConcurrentClassify(t *testing.T) {
	svc, _, _ := newStudyFixture(t)
	ctx := context.Background()
	view, _ := svc.Open(ctx, student, 5)
	cardID := view.Current.ID

	var wg sync.WaitGroup
	results := make(chan error, 4)
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := svc.Classify(ctx, student, 5, cardID, study.Understood)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	ok, stale := 0, 0
	for err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, study.ErrStaleCard):
			stale++
		default:
			t.Errorf("unexpected error %v", err)
		}
	}
	if ok != 1 || stale != 3 {
		t.Errorf("ok=%d stale=%d, want 1 and 3", ok, stale)
	}
}

func TestAnalysisService(t *testing.T) {
	store := newMemoryCardStore()
	store.addSet(models.FlashcardSet{ID: 1, UserID: 1, Topic: "Kesirler"}, "A", "B", "C", "D")
	store.addSet(models.FlashcardSet{ID: 2, UserID: 1, Topic: "Oranlar", Completed: true}, "A")
	store.addSet(models.FlashcardSet{ID: 3, UserID: 2, Topic: "Başkasının"}, "A")
	ctx := context.Background()

	studySvc := NewStudyService(store, stubExplainer{}, nil, time.Hour, logger.NewNop())
	svc := NewAnalysisService(store, studySvc, logger.NewNop())

	summary, err := svc.Dashboard(ctx, student)
	if err != nil {
		t.Fatalf("Dashboard() error = %v", err)
	}
	if summary.TotalSets != 2 || summary.CompletedSets != 1 || summary.CompletionShare != 50 {
		t.Errorf("Dashboard() = %+v", summary)
	}

	cards := store.cards[1]
	store.UpdateCardFlags(ctx, cards[0].ID, true, false)
	store.UpdateCardFlags(ctx, cards[1].ID, false, true)

	report, err := svc.Analyze(ctx, student, 1)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if report.Analysis.TotalCards != 4 || report.Analysis.UnderstoodCards != 1 || report.Analysis.ReviewCards != 1 || report.Analysis.RoundedCompletionRate() != 25 {
		t.Errorf("Analyze() = %+v", report.Analysis)
	}
	if _, err := svc.Analyze(ctx, student, 3); !errors.Is(err, study.ErrNotFound) {
		t.Errorf("Analyze(other user) error = %v", err)
	}

	if _, err := studySvc.Open(ctx, student, 1); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := svc.DeleteSet(ctx, student, 1); err != nil {
		t.Fatalf("DeleteSet() error = %v", err)
	}
	if studySvc.Active() != 0 {
		t.Error("DeleteSet() should evict the study session")
	}
	if err := svc.DeleteSet(ctx, student, 1); !errors.Is(err, study.ErrNotFound) {
		t.Errorf("second DeleteSet() error = %v, want ErrNotFound", err)
	}
	if err := svc.DeleteSet(ctx, student, 3); !errors.Is(err, study.ErrNotFound) {
		t.Errorf("DeleteSet(other user) error = %v, want ErrNotFound", err)
	}
}
