package proctor

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/blake2b"
)

// InstanceDetector reports a second concurrently running instance of the
// same candidate's session. Implementations are interchangeable; exactly one
// is selected per session and they are never combined.
type InstanceDetector interface {
	Name() string
	// Start announces this instance and begins watching. onDuplicate may be
	// called from another goroutine, possibly more than once.
	Start(ctx context.Context, onDuplicate func(InstanceDuplicated)) error
	// Stop ends watching and removes only this instance's own traces.
	Stop()
}

// DetectorMode selects the InstanceDetector implementation.
type DetectorMode string

const (
	DetectorAuto      DetectorMode = "auto"
	DetectorBroadcast DetectorMode = "broadcast"
	DetectorHeartbeat DetectorMode = "heartbeat"
	DetectorOff       DetectorMode = "off"
)

// ParseDetectorMode falls back to auto for unknown input.
func ParseDetectorMode(s string) DetectorMode {
	switch DetectorMode(strings.ToLower(strings.TrimSpace(s))) {
	case DetectorBroadcast:
		return DetectorBroadcast
	case DetectorHeartbeat:
		return DetectorHeartbeat
	case DetectorOff:
		return DetectorOff
	default:
		return DetectorAuto
	}
}

// Scope derives the shared detection namespace for a candidate. Raw email
// addresses never appear in Redis key names.
func Scope(email string) string {
	sum := blake2b.Sum256([]byte(strings.ToLower(strings.TrimSpace(email))))
	return hex.EncodeToString(sum[:16])
}

// DetectorConfig carries what every implementation needs.
type DetectorConfig struct {
	Mode              DetectorMode
	Scope             string
	InstanceID        string
	HeartbeatInterval time.Duration
	ProbeTimeout      time.Duration
}

// SelectDetector picks one implementation. In auto mode the broadcast
// detector is used when a Pub/Sub subscription can be established, the
// heartbeat detector otherwise. A nil client yields a NoopDetector.
func SelectDetector(ctx context.Context, rdb redis.UniversalClient, cfg DetectorConfig, log zerolog.Logger) InstanceDetector {
	if rdb == nil || cfg.Mode == DetectorOff {
		return NoopDetector{}
	}

	switch cfg.Mode {
	case DetectorBroadcast:
		return NewBroadcastDetector(rdb, cfg.Scope, cfg.InstanceID, log)
	case DetectorHeartbeat:
		return NewHeartbeatDetector(rdb, cfg.Scope, cfg.InstanceID, cfg.HeartbeatInterval, log)
	}

	timeout := cfg.ProbeTimeout
	if timeout <= 0 {
		timeout = time.Second
	}
	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := probePubSub(probeCtx, rdb, cfg.Scope); err != nil {
		log.Debug().Err(err).Msg("Pub/Sub unavailable, using heartbeat detector")
		return NewHeartbeatDetector(rdb, cfg.Scope, cfg.InstanceID, cfg.HeartbeatInterval, log)
	}
	return NewBroadcastDetector(rdb, cfg.Scope, cfg.InstanceID, log)
}

func probePubSub(ctx context.Context, rdb redis.UniversalClient, scope string) error {
	sub := rdb.Subscribe(ctx, instanceChannel(scope))
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	return nil
}

// NoopDetector is used when no shared medium is available.
type NoopDetector struct{}

func (NoopDetector) Name() string { return "none" }

func (NoopDetector) Start(context.Context, func(InstanceDuplicated)) error { return nil }

func (NoopDetector) Stop() {}
