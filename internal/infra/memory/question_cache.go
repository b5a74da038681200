package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"lms-exam-service/internal/app"
	"lms-exam-service/internal/domain"
)

var _ app.QuestionSource = (*QuestionCache)(nil)

// QuestionCache keeps exam question sets in process with a TTL to avoid repeated store hits.
type QuestionCache struct {
	loader app.QuestionLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedSet
	// gen is bumped by Invalidate; a load only fills the cache if it is unchanged.
	gen   map[string]uint64
}

type cachedSet struct {
	questions []domain.BoundQuestion
	expiresAt time.Time
}

func NewQuestionCache(loader app.QuestionLoader, ttl time.Duration) *QuestionCache {
	return &QuestionCache{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedSet),
		gen:    make(map[string]uint64),
	}
}

func (c *QuestionCache) QuestionsFor(ctx context.Context, examID string) ([]domain.BoundQuestion, error) {
	if qs, ok := c.lookup(examID); ok {
		return qs, nil
	}

	result, err, _ := c.sf.Do(examID, func() (interface{}, error) {
		if qs, ok := c.lookup(examID); ok {
			return qs, nil
		}
		c.mu.RLock()
		gen := c.gen[examID]
		c.mu.RUnlock()

		qs, err := c.loader.LoadExamQuestions(ctx, examID)
		if err != nil {
			return nil, err
		}
		qs = clone(qs)
		if c.ttl > 0 {
			c.mu.Lock()
			if c.gen[examID] == gen {
				c.cache[examID] = cachedSet{questions: qs, expiresAt: c.clock().Add(c.ttlWithJitter())}
			}
			c.mu.Unlock()
		}
		return qs, nil
	})
	if err != nil {
		return nil, err
	}
	return clone(result.([]domain.BoundQuestion)), nil
}

// Invalidate drops the cached set so the next read goes to the loader.
func (c *QuestionCache) Invalidate(_ context.Context, examID string) error {
	c.mu.Lock()
	delete(c.cache, examID)
	c.gen[examID]++
	c.mu.Unlock()
	c.sf.Forget(examID)
	return nil
}

func (c *QuestionCache) lookup(examID string) ([]domain.BoundQuestion, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.cache[examID]
	if !ok || !entry.expiresAt.After(c.clock()) {
		return nil, false
	}
	return clone(entry.questions), true
}

func (c *QuestionCache) ttlWithJitter() time.Duration {
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}

// clone deep-copies the set, options included, so callers cannot mutate cached entries.
func clone(qs []domain.BoundQuestion) []domain.BoundQuestion {
	out := make([]domain.BoundQuestion, len(qs))
	for i, q := range qs {
		q.Options = append([]domain.Option(nil), q.Options...)
		out[i] = q
	}
	return out
}
