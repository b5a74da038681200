package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"lms-exam-service/internal/domain"
)

func TestQuestionCacheCaches(t *testing.T) {
	loader := &countingLoader{questions: sampleSet()}
	cache := NewQuestionCache(loader, time.Minute)

	if _, err := cache.QuestionsFor(context.Background(), "exam-1"); err != nil {
		t.Fatalf("load questions: %v", err)
	}
	if loader.calls.Load() != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls.Load())
	}

	qs, err := cache.QuestionsFor(context.Background(), "exam-1")
	if err != nil {
		t.Fatalf("load questions 2: %v", err)
	}
	if loader.calls.Load() != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls.Load())
	}
	if len(qs) != 2 || qs[0].ID != "q1" {
		t.Fatalf("unexpected cached set %+v", qs)
	}
}

func TestQuestionCacheExpiresAndInvalidates(t *testing.T) {
	loader := &countingLoader{questions: sampleSet()}
	cache := NewQuestionCache(loader, time.Minute)
	now := time.Now()
	cache.clock = func() time.Time { return now }

	ctx := context.Background()
	if _, err := cache.QuestionsFor(ctx, "exam-1"); err != nil {
		t.Fatalf("load: %v", err)
	}

	now = now.Add(2 * time.Minute)
	if _, err := cache.QuestionsFor(ctx, "exam-1"); err != nil {
		t.Fatalf("load after expiry: %v", err)
	}
	if loader.calls.Load() != 2 {
		t.Fatalf("expected reload after ttl, got %d calls", loader.calls.Load())
	}

	if err := cache.Invalidate(ctx, "exam-1"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, err := cache.QuestionsFor(ctx, "exam-1"); err != nil {
		t.Fatalf("load after invalidate: %v", err)
	}
	if loader.calls.Load() != 3 {
		t.Fatalf("expected reload after invalidate, got %d calls", loader.calls.Load())
	}
}

func TestQuestionCacheCollapsesConcurrentMisses(t *testing.T) {
	release := make(chan struct{})
	loader := &countingLoader{questions: sampleSet(), gate: release}
	cache := NewQuestionCache(loader, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := cache.QuestionsFor(context.Background(), "exam-1"); err != nil {
				t.Errorf("load: %v", err)
			}
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if loader.calls.Load() != 1 {
		t.Fatalf("expected a single load, got %d", loader.calls.Load())
	}
}

func TestQuestionCacheDoesNotCacheErrors(t *testing.T) {
	cache := NewQuestionCache(&countingLoader{err: domain.ErrExamNotFound}, time.Minute)
	if _, err := cache.QuestionsFor(context.Background(), "missing"); err != domain.ErrExamNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, ok := cache.lookup("missing"); ok {
		t.Fatalf("errors must not be cached")
	}
}

type countingLoader struct {
	questions []domain.BoundQuestion
	err       error
	gate      chan struct{}
	calls     atomic.Int32
}

func (l *countingLoader) LoadExamQuestions(_ context.Context, _ string) ([]domain.BoundQuestion, error) {
	l.calls.Add(1)
	if l.gate != nil {
		<-l.gate
	}
	if l.err != nil {
		return nil, l.err
	}
	return l.questions, nil
}

func sampleSet() []domain.BoundQuestion {
	return []domain.BoundQuestion{
		{
			Question: domain.Question{
				ID:   "q1",
				Text: "What is 2 + 2?",
				Options: []domain.Option{
					{ID: "o1", Label: "3"},
					{ID: "o2", Label: "4"},
				},
				CorrectOptionID: "o2",
			},
			Position: 1,
		},
		{
			Question: domain.Question{
				ID:              "q2",
				Text:            "Capital of France?",
				Options:         []domain.Option{{ID: "a", Label: "Paris"}, {ID: "b", Label: "Rome"}},
				CorrectOptionID: "a",
				Weight:          2,
			},
			Position: 2,
		},
	}
}

func TestQuestionCacheDropsLoadRacingInvalidate(t *testing.T) {
	loader := newRevisingLoader()
	cache := NewQuestionCache(loader, time.Minute)
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := cache.QuestionsFor(ctx, "exam-1"); err != nil {
			t.Errorf("first load: %v", err)
		}
	}()
	<-loader.started
	if err := cache.Invalidate(ctx, "exam-1"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	close(loader.release)
	<-done

	qs, err := cache.QuestionsFor(ctx, "exam-1")
	if err != nil {
		t.Fatalf("load after invalidate: %v", err)
	}
	if qs[0].CorrectOptionID != "new" || loader.calls.Load() != 2 {
		t.Fatalf("expected a fresh load after invalidate, got correct=%q calls=%d", qs[0].CorrectOptionID, loader.calls.Load())
	}
}

func TestQuestionCacheReturnsIndependentOptions(t *testing.T) {
	cache := NewQuestionCache(&countingLoader{questions: sampleSet()}, time.Minute)
	ctx := context.Background()

	qs, err := cache.QuestionsFor(ctx, "exam-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	qs[0].Options[0].ID = "mutated"

	again, err := cache.QuestionsFor(ctx, "exam-1")
	if err != nil {
		t.Fatalf("cached load: %v", err)
	}
	if again[0].Options[0].ID != "o1" {
		t.Fatalf("cached options were mutated through a returned set: %+v", again[0].Options)
	}
}

// revisingLoader blocks its first load, which returns the "old" correct option;
// later loads return "new" as if the question had been edited meanwhile.
type revisingLoader struct {
	started chan struct{}
	release chan struct{}
	calls   atomic.Int32
}

func newRevisingLoader() *revisingLoader {
	return &revisingLoader{started: make(chan struct{}), release: make(chan struct{})}
}

func (l *revisingLoader) LoadExamQuestions(_ context.Context, _ string) ([]domain.BoundQuestion, error) {
	correct := "new"
	if l.calls.Add(1) == 1 {
		close(l.started)
		<-l.release
		correct = "old"
	}
	return []domain.BoundQuestion{{
		Question: domain.Question{
			ID:              "q1",
			Text:            "edited",
			Options:         []domain.Option{{ID: "old", Label: "a"}, {ID: "new", Label: "b"}},
			CorrectOptionID: correct,
		},
		Position: 1,
	}}, nil
}
