package realtime

import (
	"fmt"
	"log/slog"

	"specboard/internal/config"
)

// NewNotifier builds the notifier selected by cfg.RealtimeDriver.
func NewNotifier(cfg *config.Config, logger *slog.Logger) (Notifier, error) {
	switch cfg.RealtimeDriver {
	case config.RealtimeNATS:
		return NewNATSNotifier(cfg.NATSURL, cfg.NATSSubjectPrefix, logger)
	case config.RealtimeRedis:
		return NewRedisNotifier(cfg.RedisAddr, cfg.RedisChannel, logger)
	case config.RealtimeNone, "":
		return NewNoopNotifier(), nil
	default:
		return nil, fmt.Errorf("unknown realtime driver %q", cfg.RealtimeDriver)
	}
}
