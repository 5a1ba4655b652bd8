package reqcache

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Observer receives an event after each Cache operation completes.
type Observer interface {
	OnCacheOp(ctx context.Context, op string, key string, hit bool, err error, dur time.Duration, driver Driver)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ctx context.Context, op string, key string, hit bool, err error, dur time.Duration, driver Driver)

// OnCacheOp implements Observer.
func (f ObserverFunc) OnCacheOp(ctx context.Context, op string, key string, hit bool, err error, dur time.Duration, driver Driver) {
	if f == nil {
		return
	}
	f(ctx, op, key, hit, err, dur, driver)
}

// NewLogObserver logs successful operations at debug level and failures as warnings.
// A nil logger yields a no-op observer.
func NewLogObserver(logger *zap.Logger) Observer {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("reqcache")
	return ObserverFunc(func(_ context.Context, op, key string, hit bool, err error, dur time.Duration, driver Driver) {
		fields := []zap.Field{
			zap.String("op", op),
			zap.String("key", key),
			zap.Bool("hit", hit),
			zap.Duration("duration", dur),
			zap.String("driver", string(driver)),
		}
		if err != nil {
			logger.Warn("cache operation failed", append(fields, zap.Error(err))...)
			return
		}
		logger.Debug("cache operation", fields...)
	})
}
