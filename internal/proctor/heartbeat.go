package proctor

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/config"
)

// DefaultHeartbeatInterval matches the browser fallback's two-second beat.
const DefaultHeartbeatInterval = 2 * time.Second

// HeartbeatDetector is the fallback when Pub/Sub is unavailable. Each
// instance keeps a timestamped key alive under a shared prefix and scans the
// prefix every interval; a key from another instance that is new or changed
// since the previous scan is a duplicate. Storage errors are swallowed.
type HeartbeatDetector struct {
	rdb      redis.UniversalClient
	prefix   string
	key      string
	interval time.Duration
	log      zerolog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	// seen is only touched by the loop goroutine.
	seen     map[string]string
	baseline bool
}

func NewHeartbeatDetector(rdb redis.UniversalClient, scope, instanceID string, interval time.Duration, log zerolog.Logger) *HeartbeatDetector {
	if interval <= 0 {
		interval = DefaultHeartbeatInterval
	}
	return &HeartbeatDetector{
		rdb:      rdb,
		prefix:   config.CacheKey.InstanceHeartbeatPrefix(scope),
		key:      config.CacheKey.InstanceHeartbeatKey(scope, instanceID),
		interval: interval,
		log:      log.With().Str("component", "heartbeat_detector").Logger(),
		seen:     make(map[string]string),
	}
}

func (d *HeartbeatDetector) Name() string { return string(DetectorHeartbeat) }

// Key is this instance's own heartbeat key.
func (d *HeartbeatDetector) Key() string { return d.key }

func (d *HeartbeatDetector) Start(ctx context.Context, onDuplicate func(InstanceDuplicated)) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancel != nil {
		return nil
	}

	d.beat(ctx)
	d.scan(ctx, onDuplicate)

	loopCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.done = make(chan struct{})
	go d.loop(loopCtx, onDuplicate)
	return nil
}

func (d *HeartbeatDetector) loop(ctx context.Context, onDuplicate func(InstanceDuplicated)) {
	defer close(d.done)
	tk := time.NewTicker(d.interval)
	defer tk.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-tk.C:
			d.beat(ctx)
			d.scan(ctx, onDuplicate)
		}
	}
}

func (d *HeartbeatDetector) beat(ctx context.Context) {
	stamp := strconv.FormatInt(time.Now().UnixNano(), 10)
	if err := d.rdb.Set(ctx, d.key, stamp, 3*d.interval).Err(); err != nil {
		d.log.Debug().Err(err).Msg("Heartbeat write failed")
	}
}

func (d *HeartbeatDetector) scan(ctx context.Context, onDuplicate func(InstanceDuplicated)) {
	var keys []string
	iter := d.rdb.Scan(ctx, 0, d.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if k := iter.Val(); k != d.key && strings.HasPrefix(k, d.prefix) {
			keys = append(keys, k)
		}
	}
	if err := iter.Err(); err != nil {
		d.log.Debug().Err(err).Msg("Heartbeat scan failed")
		return
	}

	current := make(map[string]string, len(keys))
	if len(keys) > 0 {
		vals, err := d.rdb.MGet(ctx, keys...).Result()
		if err != nil {
			d.log.Debug().Err(err).Msg("Heartbeat read failed")
			return
		}
		for i, v := range vals {
			if s, ok := v.(string); ok {
				current[keys[i]] = s
			}
		}
	}

	first := !d.baseline
	d.baseline = true
	changed := false
	for k, v := range current {
		if prev, ok := d.seen[k]; !first && (!ok || prev != v) {
			changed = true
		}
	}
	d.seen = current

	if changed {
		d.log.Warn().Msg("Foreign heartbeat observed")
		onDuplicate(InstanceDuplicated{Detector: d.Name()})
	}
}

func (d *HeartbeatDetector) Stop() {
	d.mu.Lock()
	cancel, done := d.cancel, d.done
	d.cancel = nil
	d.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done

	ctx, stop := context.WithTimeout(context.Background(), time.Second)
	defer stop()
	if err := d.rdb.Del(ctx, d.key).Err(); err != nil {
		d.log.Debug().Err(err).Msg("Heartbeat cleanup failed")
	}
}
