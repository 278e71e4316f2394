package proctor

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/config"
)

const announcePrefix = "active:"

func instanceChannel(scope string) string {
	return config.CacheKey.InstanceChannel(scope)
}

// BroadcastDetector announces "active" on a shared Pub/Sub channel and treats
// any other instance's announcement as a duplicate.
type BroadcastDetector struct {
	rdb        redis.UniversalClient
	channel    string
	instanceID string
	log        zerolog.Logger

	mu     sync.Mutex
	sub    *redis.PubSub
	cancel context.CancelFunc
	done   chan struct{}
}

func NewBroadcastDetector(rdb redis.UniversalClient, scope, instanceID string, log zerolog.Logger) *BroadcastDetector {
	return &BroadcastDetector{
		rdb:        rdb,
		channel:    instanceChannel(scope),
		instanceID: instanceID,
		log:        log.With().Str("component", "broadcast_detector").Logger(),
	}
}

func (d *BroadcastDetector) Name() string { return string(DetectorBroadcast) }

func (d *BroadcastDetector) Start(ctx context.Context, onDuplicate func(InstanceDuplicated)) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.sub != nil {
		return nil
	}

	sub := d.rdb.Subscribe(ctx, d.channel)
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return fmt.Errorf("subscribe %s: %w", d.channel, err)
	}
	// Subscribe before announcing so an instance starting concurrently is
	// not missed.
	if err := d.rdb.Publish(ctx, d.channel, announcePrefix+d.instanceID).Err(); err != nil {
		sub.Close()
		return fmt.Errorf("announce: %w", err)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	d.sub = sub
	d.cancel = cancel
	d.done = make(chan struct{})

	go d.listen(loopCtx, sub.Channel(), onDuplicate)
	return nil
}

func (d *BroadcastDetector) listen(ctx context.Context, ch <-chan *redis.Message, onDuplicate func(InstanceDuplicated)) {
	defer close(d.done)
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			other, isAnnounce := strings.CutPrefix(msg.Payload, announcePrefix)
			if !isAnnounce || other == d.instanceID {
				continue
			}
			d.log.Warn().Str("other_instance", other).Msg("Duplicate instance announced")
			onDuplicate(InstanceDuplicated{Detector: d.Name()})
		}
	}
}

func (d *BroadcastDetector) Stop() {
	d.mu.Lock()
	sub, cancel, done := d.sub, d.cancel, d.done
	d.sub, d.cancel = nil, nil
	d.mu.Unlock()

	if sub == nil {
		return
	}
	cancel()
	if err := sub.Close(); err != nil {
		d.log.Debug().Err(err).Msg("Close subscription")
	}
	<-done
}
