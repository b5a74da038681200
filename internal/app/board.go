package app

import (
	"context"
	"sync"

	"lms-exam-service/internal/domain"
)

// SnapshotFunc builds the current leaderboard of an exam.
type SnapshotFunc func(ctx context.Context, examID string) (domain.Leaderboard, error)

// Board fans leaderboard snapshots out to live subscribers, one channel set per exam.
// It implements Notifier so it can be handed to the ScoringService directly.
type Board struct {
	snapshot SnapshotFunc

	mu    sync.Mutex
	exams map[string]*examBoard
}

type examBoard struct {
	subscribers map[chan domain.Leaderboard]struct{}
	// started numbers each Notify snapshot; sent is the newest one delivered.
	started uint64
	sent    uint64
}

func NewBoard(snapshot SnapshotFunc) *Board {
	return &Board{snapshot: snapshot, exams: make(map[string]*examBoard)}
}

// Subscribe returns a channel primed with the exam's current leaderboard.
// The caller must invoke the returned cancel function to avoid leaks.
func (b *Board) Subscribe(ctx context.Context, examID string) (<-chan domain.Leaderboard, func(), error) {
	lb, err := b.snapshot(ctx, examID)
	if err != nil {
		return nil, nil, err
	}

	ch := make(chan domain.Leaderboard, 8)

	b.mu.Lock()
	eb, ok := b.exams[examID]
	if !ok {
		eb = &examBoard{subscribers: make(map[chan domain.Leaderboard]struct{})}
		b.exams[examID] = eb
	}
	eb.subscribers[ch] = struct{}{}
	ch <- lb
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		eb, ok := b.exams[examID]
		if !ok {
			return
		}
		if _, ok := eb.subscribers[ch]; ok {
			delete(eb.subscribers, ch)
			close(ch)
		}
		if len(eb.subscribers) == 0 {
			delete(b.exams, examID)
		}
	}
	return ch, cancel, nil
}

// Notify rebuilds the exam's leaderboard and pushes it to every subscriber.
// Exams nobody watches are skipped.
// A snapshot that finishes after a later-started one has been delivered is dropped.
func (b *Board) Notify(ctx context.Context, examID string) error {
	b.mu.Lock()
	eb, ok := b.exams[examID]
	if !ok {
		b.mu.Unlock()
		return nil
	}
	eb.started++
	seq := eb.started
	b.mu.Unlock()

	lb, err := b.snapshot(ctx, examID)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if current, ok := b.exams[examID]; !ok || current != eb || seq < eb.sent {
		return nil
	}
	eb.sent = seq
	for ch := range eb.subscribers {
		select {
		case ch <- lb:
		default:
			// subscriber is behind; replace its oldest pending snapshot
			select {
			case <-ch:
			default:
			}
			ch <- lb
		}
	}
	return nil
}

// Watchers reports how many subscribers follow the exam.
func (b *Board) Watchers(examID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if eb, ok := b.exams[examID]; ok {
		return len(eb.subscribers)
	}
	return 0
}

