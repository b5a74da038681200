package redis

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"lms-exam-service/internal/app"
	"lms-exam-service/internal/domain"
)

var _ app.QuestionSource = (*QuestionCache)(nil)

// QuestionCache caches exam question sets in Redis and falls back to a loader on cache miss.
// Sets are stored as: SET exam:{examID}:questions <json>
// Invalidate bumps exam:{examID}:questions:version; a load only fills the set if the
// version it read before loading is still current.
type QuestionCache struct {
	client *redis.Client
	loader app.QuestionLoader
	ttl    time.Duration
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewQuestionCache(client *redis.Client, loader app.QuestionLoader, ttl time.Duration) *QuestionCache {
	return &QuestionCache{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *QuestionCache) QuestionsFor(ctx context.Context, examID string) ([]domain.BoundQuestion, error) {
	if qs, ok := c.cached(ctx, examID); ok {
		return qs, nil
	}

	result, err, _ := c.sf.Do(examID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if qs, ok := c.cached(ctx, examID); ok {
			return qs, nil
		}

		version, err := c.client.Get(ctx, versionKey(examID)).Result()
		canFill := err == nil || errors.Is(err, redis.Nil)

		qs, err := c.loader.LoadExamQuestions(ctx, examID)
		if err != nil {
			return nil, err
		}
		if canFill {
			if payload, err := json.Marshal(qs); err == nil {
				// best-effort fill; a failed or skipped write only costs another load
				_ = c.fill(ctx, examID, version, payload)
			}
		}
		return qs, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.BoundQuestion), nil
}

// Invalidate removes the cached set of an exam.
func (c *QuestionCache) Invalidate(ctx context.Context, examID string) error {
	c.sf.Forget(examID)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, versionKey(examID))
		pipe.Del(ctx, key(examID))
		return nil
	})
	if err != nil {
		return domain.WrapStore("invalidate question cache", err)
	}
	return nil
}

var errStaleLoad = errors.New("question set invalidated during load")

// fill stores payload unless the exam was invalidated after version was read.
func (c *QuestionCache) fill(ctx context.Context, examID, version string, payload []byte) error {
	vk := versionKey(examID)
	return c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, vk).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != version {
			return errStaleLoad
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key(examID), payload, c.ttlWithJitter())
			return nil
		})
		return err
	}, vk)
}

func (c *QuestionCache) cached(ctx context.Context, examID string) ([]domain.BoundQuestion, bool) {
	payload, err := c.client.Get(ctx, key(examID)).Bytes()
	if err != nil {
		// redis.Nil on a miss; other errors degrade to the loader
		return nil, false
	}
	var qs []domain.BoundQuestion
	if err := json.Unmarshal(payload, &qs); err != nil {
		return nil, false
	}
	return qs, true
}

func key(examID string) string {
	return "exam:" + examID + ":questions"
}

func versionKey(examID string) string {
	return key(examID) + ":version"
}

func (c *QuestionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
