package redis

import (
	"context"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"lms-exam-service/internal/app"
	"lms-exam-service/internal/domain"
)

// SubmittedChannel carries "exam:{examID}" whenever an exam's submissions change.
const SubmittedChannel = "lms:exam-submitted"

const examPrefix = "exam:"

var _ app.Notifier = (*Publisher)(nil)

// Publisher announces submission changes to every service instance.
type Publisher struct {
	client *redis.Client
}

func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client}
}

func (p *Publisher) Notify(ctx context.Context, examID string) error {
	if err := p.client.Publish(ctx, SubmittedChannel, examPrefix+examID).Err(); err != nil {
		return domain.WrapStore("publish submission", err)
	}
	return nil
}

// Relay forwards published submission changes to a local notifier, usually the results board.
type Relay struct {
	client *redis.Client
	target app.Notifier
	log    logrus.FieldLogger
}

func NewRelay(client *redis.Client, target app.Notifier, log logrus.FieldLogger) *Relay {
	return &Relay{client: client, target: target, log: log}
}

// Start subscribes and forwards messages until ctx is cancelled or stop is called.
// It returns once the subscription is confirmed.
func (r *Relay) Start(ctx context.Context) (stop func(), err error) {
	sub := r.client.Subscribe(ctx, SubmittedChannel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, domain.WrapStore("subscribe submissions", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				examID, found := strings.CutPrefix(msg.Payload, examPrefix)
				if !found || examID == "" {
					r.log.WithField("payload", msg.Payload).Warn("ignoring malformed submission message")
					continue
				}
				if err := r.target.Notify(ctx, examID); err != nil {
					r.log.WithError(err).WithField("exam_id", examID).Warn("board refresh failed")
				}
			}
		}
	}()

	return func() {
		cancel()
		_ = sub.Close()
		<-done
	}, nil
}
