package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/harborplay/roundengine/internal/domain"
)

// resultStreamMaxLen is the approximate cap for the durable result streams,
// enforced via XADD MAXLEN ~.
const resultStreamMaxLen int64 = 10000

// CoordinationBus implements domain.CoordinationBus on Redis: Pub/Sub
// channels for fan-out, a plain key holding the latest period snapshot for
// late joiners, and a stream of published results for at-least-once replay.
//
// Channel layout:
//
//	ch:period:{game}:{duration}:{timeline}  period snapshots (1/s)
//	ch:result:{game}:{duration}:{timeline}  settled results
//	cur:period:{game}:{duration}:{timeline} latest snapshot (SET, TTL)
//	stream:results:{game}:{duration}:{timeline}
//
// The scheduler process is the sole writer; broadcast processes only read.
type CoordinationBus struct {
	rdb *redis.Client
}

// NewCoordinationBus creates a CoordinationBus backed by the given Client.
func NewCoordinationBus(c *Client) *CoordinationBus {
	return &CoordinationBus{rdb: c.Underlying()}
}

func pairSuffix(gameType string, duration int, timeline string) string {
	return fmt.Sprintf("%s:%d:%s", gameType, duration, timeline)
}

// PeriodChannel returns the pub/sub channel carrying period snapshots for a
// pair. Wildcards are allowed for PSUBSCRIBE-style consumers.
func PeriodChannel(gameType string, duration int, timeline string) string {
	return "ch:period:" + pairSuffix(gameType, duration, timeline)
}

// ResultChannel returns the pub/sub channel carrying settled results.
func ResultChannel(gameType string, duration int, timeline string) string {
	return "ch:result:" + pairSuffix(gameType, duration, timeline)
}

// PublishPeriodState broadcasts a snapshot and refreshes the late-joiner
// key. The cached entry lives a little longer than the round so a freshly
// started broadcast process can always render the current countdown.
func (cb *CoordinationBus) PublishPeriodState(ctx context.Context, snap domain.PeriodSnapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("redis: marshal period snapshot: %w", err)
	}

	suffix := pairSuffix(snap.GameType, snap.Duration, snap.Timeline)
	ttl := time.Duration(snap.Duration+60) * time.Second

	pipe := cb.rdb.Pipeline()
	pipe.Set(ctx, "cur:period:"+suffix, payload, ttl)
	pipe.Publish(ctx, "ch:period:"+suffix, payload)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: publish period state %s: %w", suffix, err)
	}
	return nil
}

// CurrentPeriod returns the last published snapshot for the pair. Returns
// domain.ErrNotFound when nothing has been published yet (or the entry
// expired); callers fall back to computing from the clock.
func (cb *CoordinationBus) CurrentPeriod(ctx context.Context, gameType string, duration int, timeline string) (domain.PeriodSnapshot, error) {
	raw, err := cb.rdb.Get(ctx, "cur:period:"+pairSuffix(gameType, duration, timeline)).Bytes()
	if err == redis.Nil {
		return domain.PeriodSnapshot{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.PeriodSnapshot{}, fmt.Errorf("redis: current period: %w", err)
	}

	var snap domain.PeriodSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return domain.PeriodSnapshot{}, fmt.Errorf("redis: decode period snapshot: %w", err)
	}
	return snap, nil
}

// SubscribePeriodState streams snapshots for a pair until ctx is cancelled.
func (cb *CoordinationBus) SubscribePeriodState(ctx context.Context, gameType string, duration int, timeline string) (<-chan domain.PeriodSnapshot, error) {
	raw, err := cb.subscribe(ctx, PeriodChannel(gameType, duration, timeline))
	if err != nil {
		return nil, err
	}

	out := make(chan domain.PeriodSnapshot, 64)
	go func() {
		defer close(out)
		for payload := range raw {
			var snap domain.PeriodSnapshot
			if err := json.Unmarshal(payload, &snap); err != nil {
				continue
			}
			select {
			case out <- snap:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// PublishResult broadcasts a settled result and appends it to the durable
// result stream for consumers that replay after a disconnect.
func (cb *CoordinationBus) PublishResult(ctx context.Context, res domain.Result) error {
	payload, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("redis: marshal result: %w", err)
	}

	suffix := pairSuffix(res.GameType, res.Duration, res.Timeline)

	pipe := cb.rdb.Pipeline()
	pipe.Publish(ctx, "ch:result:"+suffix, payload)
	pipe.XAdd(ctx, &redis.XAddArgs{
		Stream: "stream:results:" + suffix,
		MaxLen: resultStreamMaxLen,
		Approx: true,
		Values: map[string]interface{}{"payload": payload},
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: publish result %s: %w", suffix, err)
	}
	return nil
}

// SubscribeResult streams settled results for a pair until ctx is cancelled.
func (cb *CoordinationBus) SubscribeResult(ctx context.Context, gameType string, duration int, timeline string) (<-chan domain.Result, error) {
	raw, err := cb.subscribe(ctx, ResultChannel(gameType, duration, timeline))
	if err != nil {
		return nil, err
	}

	out := make(chan domain.Result, 64)
	go func() {
		defer close(out)
		for payload := range raw {
			var res domain.Result
			if err := json.Unmarshal(payload, &res); err != nil {
				continue
			}
			select {
			case out <- res:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// SubscribeRaw subscribes to an arbitrary bus channel (wildcards allowed)
// and returns raw payloads. The broadcast hub uses this to bridge every
// period and result channel to WebSocket clients.
func (cb *CoordinationBus) SubscribeRaw(ctx context.Context, channel string) (<-chan []byte, error) {
	return cb.subscribe(ctx, channel)
}

// subscribe creates a Pub/Sub subscription and returns a read-only channel
// of raw payloads, closed when the context is cancelled.
func (cb *CoordinationBus) subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	var pubsub *redis.PubSub
	if strings.ContainsAny(channel, "*?[") {
		pubsub = cb.rdb.PSubscribe(ctx, channel)
	} else {
		pubsub = cb.rdb.Subscribe(ctx, channel)
	}

	// Receive the subscription confirmation before handing out the channel.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("redis: subscribe %s: %w", channel, err)
	}

	out := make(chan []byte, 128)
	go func() {
		defer close(out)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// Compile-time interface check.
var _ domain.CoordinationBus = (*CoordinationBus)(nil)
