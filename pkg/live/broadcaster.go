package live

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"liyu1981.xyz/plant-station-service/pkg/common"
)

type BroadcastStats struct {
	Delivered uint64 `json:"delivered"`
	Failed    uint64 `json:"failed"`
	Sessions  int    `json:"sessions"`
}

// Broadcaster pushes payloads to every session bound to an owner. Each
// recipient gets its own goroutine so a slow or broken peer never holds up
// its siblings.
type Broadcaster struct {
	registry *Registry

	delivered atomic.Uint64
	failed    atomic.Uint64
}

func NewBroadcaster(registry *Registry) *Broadcaster {
	return &Broadcaster{registry: registry}
}

func (b *Broadcaster) Registry() *Registry {
	return b.registry
}

// Broadcast encodes payload once and delivers it to the owner's sessions,
// returning when every attempt has finished. Sessions that fail delivery are
// unregistered and closed. Having no sessions is a normal no-op.
func (b *Broadcaster) Broadcast(owner string, payload any) {
	logger := common.GetLoggerWith(
		common.LoggerNameLiveHub,
		zap.String(common.LoggerFieldCategory, common.LoggerCategoryBroadcast),
	)

	data, err := json.Marshal(payload)
	if err != nil {
		logger.Error("Failed to encode broadcast payload", zap.String("owner", owner), zap.Error(err))
		return
	}

	var wg sync.WaitGroup
	recipients := 0
	for session := range b.registry.SessionsFor(owner) {
		recipients++
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := b.deliver(session, data); err != nil {
				b.failed.Add(1)
				b.registry.Unregister(session)
				_ = session.Close()
				logger.Warn("Dropped session after failed delivery",
					zap.String("owner", owner),
					zap.String("session_id", session.ID()),
					zap.Error(err))
				return
			}
			b.delivered.Add(1)
		}()
	}
	wg.Wait()

	if recipients == 0 {
		logger.Debug("No live sessions for owner", zap.String("owner", owner))
		return
	}
	logger.Debug("Broadcast finished", zap.String("owner", owner), zap.Int("recipients", recipients))
}

func (b *Broadcaster) deliver(session Session, data []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic during send: %v", ErrDeliveryFailed, r)
		}
	}()
	if err := session.Send(data); err != nil {
		return fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
	}
	return nil
}

func (b *Broadcaster) Stats() BroadcastStats {
	return BroadcastStats{
		Delivered: b.delivered.Load(),
		Failed:    b.failed.Load(),
		Sessions:  b.registry.Len(),
	}
}
