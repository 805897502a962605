package study

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"studycards/internal/generator"
	"studycards/internal/logger"
	"studycards/internal/models"
)

type flagWrite struct {
	cardID      int64
	understood  bool
	needsReview bool
}

type fakeStore struct {
	set        *models.FlashcardSet
	cards      []models.Flashcard
	getErr     error
	listErr    error
	insertErr  error
	updateErr  error
	markErr    error
	nextID     int64
	flagWrites []flagWrite
	inserted   [][]models.NewFlashcard
	marked     []int64
}

func newFakeStore(contents ...string) *fakeStore {
	store := &fakeStore{
		set:    &models.FlashcardSet{ID: 7, UserID: 1, Grade: 8, Subject: "Fen Bilimleri", Topic: "Fotosentez"},
		nextID: 100,
	}
	for i, content := range contents {
		store.cards = append(store.cards, models.Flashcard{ID: int64(i + 1), FlashcardSetID: 7, Content: content, OrderIndex: i})
	}
	return store
}

func (f *fakeStore) GetSet(ctx context.Context, setID, userID int64) (*models.FlashcardSet, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.set == nil || f.set.ID != setID || f.set.UserID != userID {
		return nil, nil
	}
	set := *f.set
	return &set, nil
}

func (f *fakeStore) ListCards(ctx context.Context, setID int64) ([]models.Flashcard, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]models.Flashcard(nil), f.cards...), nil
}

func (f *fakeStore) InsertCards(ctx context.Context, setID int64, cards []models.NewFlashcard) ([]models.Flashcard, error) {
	f.inserted = append(f.inserted, cards)
	if f.insertErr != nil {
		return nil, f.insertErr
	}
	var out []models.Flashcard
	for _, c := range cards {
		f.nextID++
		out = append(out, models.Flashcard{
			ID:            f.nextID,
			FlashcardSetID: setID,
			Content:       c.Content,
			Explanation:   c.Explanation,
			OrderIndex:    c.OrderIndex,
			IsExplanatory: c.IsExplanatory,
		})
	}
	f.cards = append(f.cards, out...)
	return out, nil
}

func (f *fakeStore) UpdateCardFlags(ctx context.Context, cardID int64, understood, needsReview bool) error {
	f.flagWrites = append(f.flagWrites, flagWrite{cardID, understood, needsReview})
	return f.updateErr
}

func (f *fakeStore) MarkSetCompleted(ctx context.Context, setID int64) error {
	f.marked = append(f.marked, setID)
	return f.markErr
}

type fakeGenerator struct {
	calls  [][]string
	result []generator.CardContent
	err    error
}

func (g *fakeGenerator) GenerateExplanatory(ctx context.Context, grade int, subject, topic string, difficult []string) ([]generator.CardContent, error) {
	g.calls = append(g.calls, append([]string(nil), difficult...))
	if g.err != nil {
		return nil, g.err
	}
	return g.result, nil
}

func explain(content, explanation string) generator.CardContent {
	return generator.CardContent{Content: content, Explanation: &explanation}
}

var learner = models.AuthContext{UserID: 1, Email: "ogrenci@example.com", Name: "Ada"}

func loadSession(t *testing.T, store *fakeStore, gen *fakeGenerator) *Session {
	t.Helper()
	s, err := Load(context.Background(), Deps{Store: store, Generator: gen}, learner, 7)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return s
}

func classify(t *testing.T, s *Session, verdict Verdict) Outcome {
	t.Helper()
	current := s.Current()
	if current == nil {
		t.Fatal("Current() = nil, session has no card to classify")
	}
	out, err := s.Classify(context.Background(), current.ID, verdict)
	if err != nil {
		t.Fatalf("Classify(%d, %s) error = %v", current.ID, verdict, err)
	}
	return out
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		store   func() *fakeStore
		auth    models.AuthContext
		wantErr error
	}{
		{
			name:  "owned set",
			store: func() *fakeStore { return newFakeStore("A", "B") },
			auth:  learner,
		},
		{
			name:    "other owner",
			store:   func() *fakeStore { return newFakeStore("A") },
			auth:    models.AuthContext{UserID: 2},
			wantErr: ErrNotFound,
		},
		{
			name: "missing set",
			store: func() *fakeStore {
				s := newFakeStore("A")
				s.set = nil
				return s
			},
			auth:    learner,
			wantErr: ErrNotFound,
		},
		{
			name:    "no cards",
			store:   func() *fakeStore { return newFakeStore() },
			auth:    learner,
			wantErr: ErrEmptySet,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Load(context.Background(), Deps{Store: tt.store(), Generator: &fakeGenerator{}}, tt.auth, 7)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Load() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				return
			}
			if s.Phase() != Active || s.Cursor() != 0 || len(s.ReviewQueue()) != 0 {
				t.Errorf("initial state = %s/%d/%d, want active/0/0", s.Phase(), s.Cursor(), len(s.ReviewQueue()))
			}
		})
	}
}

func TestLoadStoreError(t *testing.T) {
	store := newFakeStore("A")
	store.listErr = errors.New("connection reset")
	_, err := Load(context.Background(), Deps{Store: store, Generator: &fakeGenerator{}}, learner, 7)
	if err == nil || errors.Is(err, ErrEmptySet) || errors.Is(err, ErrNotFound) {
		t.Errorf("Load() error = %v, want wrapped store error", err)
	}
}

func TestRemediationScenario(t *testing.T) {
	store := newFakeStore("A", "B", "C")
	gen := &fakeGenerator{result: []generator.CardContent{explain("D", "B daha basit")}}
	s := loadSession(t, store, gen)

	if out := classify(t, s, Understood); out.Cursor != 1 || out.Phase != Active {
		t.Fatalf("after A: %+v", out)
	}

	out := classify(t, s, NeedsReview)
	if out.Cursor != 2 || !out.AddedToReview {
		t.Fatalf("after B: %+v", out)
	}
	if q := s.ReviewQueue(); len(q) != 1 || q[0].Content != "B" {
		t.Fatalf("ReviewQueue() = %+v, want [B]", q)
	}

	out = classify(t, s, Understood)
	if !out.RemediationStarted || out.RemediationFailed || out.AppendedCards != 1 {
		t.Fatalf("after C: %+v", out)
	}
	if out.Phase != Active || out.Cursor != 3 {
		t.Fatalf("after C: phase=%s cursor=%d, want active/3", out.Phase, out.Cursor)
	}
	if len(gen.calls) != 1 || len(gen.calls[0]) != 1 || gen.calls[0][0] != "B" {
		t.Fatalf("generator calls = %v, want [[B]]", gen.calls)
	}

	cards := s.Cards()
	if len(cards) != 4 {
		t.Fatalf("len(Cards()) = %d, want 4", len(cards))
	}
	d := cards[3]
	if d.Content != "D" || !d.IsExplanatory || d.OrderIndex != 3 || d.Understood || d.NeedsReview {
		t.Errorf("appended card = %+v", d)
	}
	if len(s.ReviewQueue()) != 0 {
		t.Errorf("review queue should be cleared after remediation")
	}

	out = classify(t, s, Understood)
	if !out.Completed || out.Phase != Complete {
		t.Fatalf("after D: %+v", out)
	}
	if !s.Set().Completed {
		t.Error("set should be marked completed")
	}
	if len(store.marked) != 1 || store.marked[0] != 7 {
		t.Errorf("MarkSetCompleted calls = %v", store.marked)
	}
	if s.Current() != nil {
		t.Error("Current() should be nil once complete")
	}
	if s.Progress() != 100 {
		t.Errorf("Progress() = %d, want 100", s.Progress())
	}
}

func TestFlagsPersistedPerVerdict(t *testing.T) {
	store := newFakeStore("A", "B")
	s := loadSession(t, store, &fakeGenerator{err: errors.New("unused")})

	classify(t, s, Understood)
	classify(t, s, NeedsReview)

	want := []flagWrite{{1, true, false}, {2, false, true}}
	if len(store.flagWrites) != len(want) {
		t.Fatalf("flag writes = %+v, want %+v", store.flagWrites, want)
	}
	for i := range want {
		if store.flagWrites[i] != want[i] {
			t.Errorf("flag write %d = %+v, want %+v", i, store.flagWrites[i], want[i])
		}
	}
	for _, card := range s.Cards() {
		if card.Understood == card.NeedsReview {
			t.Errorf("card %d has understood=%v needs_review=%v", card.ID, card.Understood, card.NeedsReview)
		}
	}
}

func TestCompletionWithoutReview(t *testing.T) {
	store := newFakeStore("A", "B", "C")
	gen := &fakeGenerator{}
	s := loadSession(t, store, gen)

	var out Outcome
	for range 3 {
		out = classify(t, s, Understood)
	}

	if !out.Completed || out.RemediationStarted || s.Phase() != Complete {
		t.Fatalf("final outcome = %+v", out)
	}
	if len(gen.calls) != 0 {
		t.Errorf("generator called %d times, want 0", len(gen.calls))
	}
}

func TestRemediationFailureCompletes(t *testing.T) {
	tests := []struct {
		name      string
		gen       *fakeGenerator
		insertErr error
	}{
		{name: "generator error", gen: &fakeGenerator{err: &generator.UpstreamError{StatusCode: 500}}},
		{name: "no cards returned", gen: &fakeGenerator{result: []generator.CardContent{}}},
		{name: "insert fails", gen: &fakeGenerator{result: []generator.CardContent{explain("X", "y")}}, insertErr: errors.New("disk full")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore("A", "B")
			store.insertErr = tt.insertErr
			s := loadSession(t, store, tt.gen)

			classify(t, s, NeedsReview)
			out := classify(t, s, Understood)

			if !out.RemediationStarted || !out.RemediationFailed || out.RemediationErr == nil {
				t.Errorf("outcome = %+v, want failed remediation", out)
			}
			if !out.Completed || s.Phase() != Complete {
				t.Errorf("phase = %s, want complete", s.Phase())
			}
			if len(s.Cards()) != 2 {
				t.Errorf("len(Cards()) = %d, want 2", len(s.Cards()))
			}
			if len(store.marked) != 1 {
				t.Errorf("set should still be marked completed")
			}
		})
	}
}

func TestRemediationRunsOnce(t *testing.T) {
	store := newFakeStore("A")
	gen := &fakeGenerator{result: []generator.CardContent{explain("A'", "basit")}}
	s := loadSession(t, store, gen)

	classify(t, s, NeedsReview)
	if s.Phase() != Active || s.Cursor() != 1 {
		t.Fatalf("after A: phase=%s cursor=%d", s.Phase(), s.Cursor())
	}

	out := classify(t, s, NeedsReview)
	if !out.AddedToReview {
		t.Error("explanatory card should still be queued")
	}
	if out.RemediationStarted || !out.Completed {
		t.Errorf("second pass outcome = %+v, want completion without remediation", out)
	}
	if len(gen.calls) != 1 {
		t.Errorf("generator called %d times, want 1", len(gen.calls))
	}

	if err := s.Restart(); err != nil {
		t.Fatalf("Restart() error = %v", err)
	}
	classify(t, s, NeedsReview)
	out = classify(t, s, NeedsReview)
	if out.RemediationStarted || len(gen.calls) != 1 {
		t.Errorf("restart should not allow another remediation round: %+v", out)
	}
}

func TestReviewQueueHoldsEachCardOnce(t *testing.T) {
	store := newFakeStore("A", "B")
	// Same card listed twice.
	store.cards = append(store.cards, store.cards[0])
	store.cards[2].OrderIndex = 2
	gen := &fakeGenerator{err: errors.New("offline")}
	s := loadSession(t, store, gen)

	first := classify(t, s, NeedsReview)
	classify(t, s, Understood)
	if len(s.ReviewQueue()) != 1 {
		t.Fatalf("ReviewQueue() = %d cards before last, want 1", len(s.ReviewQueue()))
	}
	last := classify(t, s, NeedsReview)

	if !first.AddedToReview || last.AddedToReview {
		t.Errorf("AddedToReview = %v/%v, want true/false", first.AddedToReview, last.AddedToReview)
	}
	if len(gen.calls) != 1 || len(gen.calls[0]) != 1 {
		t.Errorf("generator calls = %v, want one text", gen.calls)
	}
}

func TestExplanatoryOrderIndexSkipsGaps(t *testing.T) {
	store := newFakeStore("A", "B")
	store.cards[1].OrderIndex = 9
	gen := &fakeGenerator{result: []generator.CardContent{explain("B1", "x"), explain("B2", "y")}}
	s := loadSession(t, store, gen)

	classify(t, s, Understood)
	classify(t, s, NeedsReview)

	if len(store.inserted) != 1 {
		t.Fatalf("InsertCards calls = %d, want 1", len(store.inserted))
	}
	got := store.inserted[0]
	if got[0].OrderIndex != 10 || got[1].OrderIndex != 11 {
		t.Errorf("order indexes = %d, %d, want 10, 11", got[0].OrderIndex, got[1].OrderIndex)
	}
	if s.Cursor() != 2 {
		t.Errorf("Cursor() = %d, want 2", s.Cursor())
	}
}

func TestSyncFailuresDoNotBlock(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	store := newFakeStore("A", "B")
	store.updateErr = errors.New("timeout")
	store.markErr = errors.New("timeout")

	s, err := Load(context.Background(), Deps{Store: store, Generator: &fakeGenerator{}, Log: logger.NewWithCore(core)}, learner, 7)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	out := classify(t, s, Understood)
	if !out.SyncFailed || out.Cursor != 1 {
		t.Errorf("first outcome = %+v, want sync failure and cursor 1", out)
	}
	out = classify(t, s, Understood)
	if !out.Completed || !out.CompletionSyncFailed {
		t.Errorf("final outcome = %+v, want completion with failed sync", out)
	}
	if !s.Set().Completed {
		t.Error("local set should be completed even when the store write fails")
	}

	if n := logs.FilterMessage("card flag sync failed").Len(); n != 2 {
		t.Errorf("flag sync warnings = %d, want 2", n)
	}
	if logs.FilterMessage("marking set completed failed").Len() != 1 {
		t.Error("expected completion sync warning")
	}
}

func TestClassifyRejections(t *testing.T) {
	store := newFakeStore("A")
	s := loadSession(t, store, &fakeGenerator{})

	if _, err := s.Classify(context.Background(), 99, Understood); !errors.Is(err, ErrStaleCard) {
		t.Errorf("Classify(stale) error = %v, want ErrStaleCard", err)
	}
	if _, err := s.Classify(context.Background(), 1, Verdict(9)); !errors.Is(err, ErrInvalidVerdict) {
		t.Errorf("Classify(bad verdict) error = %v, want ErrInvalidVerdict", err)
	}
	if len(store.flagWrites) != 0 {
		t.Errorf("rejected classify wrote flags: %+v", store.flagWrites)
	}

	classify(t, s, Understood)
	if _, err := s.Classify(context.Background(), 1, Understood); !errors.Is(err, ErrSessionComplete) {
		t.Errorf("Classify(after complete) error = %v, want ErrSessionComplete", err)
	}
}

func TestRestart(t *testing.T) {
	store := newFakeStore("A", "B")
	gen := &fakeGenerator{result: []generator.CardContent{explain("B'", "x")}}
	s := loadSession(t, store, gen)

	if err := s.Restart(); err != nil {
		t.Errorf("Restart() on fresh session error = %v, want nil", err)
	}

	classify(t, s, Understood)
	if err := s.Restart(); !errors.Is(err, ErrNotComplete) {
		t.Errorf("Restart() mid-pass error = %v, want ErrNotComplete", err)
	}

	classify(t, s, NeedsReview)
	classify(t, s, Understood)
	if s.Phase() != Complete {
		t.Fatalf("Phase() = %s, want complete", s.Phase())
	}
	writes := len(store.flagWrites)

	if err := s.Restart(); err != nil {
		t.Fatalf("Restart() error = %v", err)
	}
	if s.Phase() != Active || s.Cursor() != 0 || len(s.ReviewQueue()) != 0 || len(s.Cards()) != 3 {
		t.Errorf("after restart: phase=%s cursor=%d queue=%d cards=%d", s.Phase(), s.Cursor(), len(s.ReviewQueue()), len(s.Cards()))
	}
	if err := s.Restart(); err != nil || s.Cursor() != 0 || len(s.Cards()) != 3 {
		t.Errorf("second Restart() = %v, cursor=%d cards=%d", err, s.Cursor(), len(s.Cards()))
	}
	if len(store.flagWrites) != writes {
		t.Error("restart should not touch stored flags")
	}
	if !s.Cards()[1].NeedsReview {
		t.Error("restart should keep prior classifications")
	}
}

func TestProgressAndStudyTime(t *testing.T) {
	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	now := start
	store := newFakeStore("A", "B", "C", "D")
	s, err := Load(context.Background(), Deps{Store: store, Generator: &fakeGenerator{}, Now: func() time.Time { return now }}, learner, 7)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	classify(t, s, Understood)
	if s.Progress() != 25 {
		t.Errorf("Progress() = %d, want 25", s.Progress())
	}
	if got := s.StudyTime(); got != "1 dakikadan az" {
		t.Errorf("StudyTime() = %q", got)
	}

	now = start.Add(12*time.Minute + 40*time.Second)
	for range 3 {
		classify(t, s, Understood)
	}
	now = start.Add(time.Hour)
	if got := s.StudyTime(); got != "13 dakika" {
		t.Errorf("StudyTime() after completion = %q, want %q", got, "13 dakika")
	}
}

func TestNotices(t *testing.T) {
	tests := []struct {
		name string
		out  Outcome
		want []string
	}{
		{name: "plain advance", out: Outcome{}, want: nil},
		{name: "queued with failed sync", out: Outcome{SyncFailed: true, AddedToReview: true}, want: []string{"İlerleme güncellenemedi", "Gözden geçirme listesine eklendi"}},
		{name: "remediation", out: Outcome{RemediationStarted: true, AppendedCards: 2}, want: []string{"Açıklamalar oluşturuldu! Hadi bunları gözden geçirelim."}},
		{name: "remediation failed", out: Outcome{RemediationStarted: true, RemediationFailed: true, Completed: true}, want: []string{"Açıklamalar oluşturulamadı", "🎉 Çalışma seansı tamamlandı!"}},
		{name: "completion not stored", out: Outcome{Completed: true, CompletionSyncFailed: true}, want: []string{"🎉 Çalışma seansı tamamlandı!", "Tamamlanma durumu kaydedilemedi"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			notices := tt.out.Notices()
			if len(notices) != len(tt.want) {
				t.Fatalf("Notices() = %+v, want %v", notices, tt.want)
			}
			for i, n := range notices {
				if n.Message != tt.want[i] {
					t.Errorf("notice %d = %q, want %q", i, n.Message, tt.want[i])
				}
			}
		})
	}
}

func TestStudyTime(t *testing.T) {
	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	tests := []struct {
		elapsed time.Duration
		want    string
	}{
		{0, "1 dakikadan az"},
		{29 * time.Second, "1 dakikadan az"},
		{30 * time.Second, "1 dakika"},
		{90 * time.Second, "2 dakika"},
		{45 * time.Minute, "45 dakika"},
	}
	for _, tt := range tests {
		if got := StudyTime(start, start.Add(tt.elapsed)); got != tt.want {
			t.Errorf("StudyTime(%v) = %q, want %q", tt.elapsed, got, tt.want)
		}
	}
}

func TestParseVerdict(t *testing.T) {
	for in, want := range map[string]Verdict{"understood": Understood, " Needs_Review ": NeedsReview} {
		got, err := ParseVerdict(in)
		if err != nil || got != want {
			t.Errorf("ParseVerdict(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseVerdict("maybe"); !errors.Is(err, ErrInvalidVerdict) {
		t.Errorf("ParseVerdict(maybe) error = %v", err)
	}
}
