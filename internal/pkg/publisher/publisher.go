package publisher

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/anicoll/microtemp-integration/internal/pkg/model"
)

var errAlreadyRegistered = errors.New("publisher already registered")

// Publisher is an outbound sink for thermostat state. The message bus and the
// optional state-history database both implement it.
type Publisher interface {
	// RegisterThermostat announces a newly discovered thermostat to the sink.
	RegisterThermostat(ctx context.Context, t model.Thermostat) error
	// PublishState pushes the thermostat's current state as of now.
	PublishState(ctx context.Context, t model.Thermostat, now time.Time) error
	// PublishAvailability pushes the online/offline signal for a serial.
	PublishAvailability(ctx context.Context, serial string, availability model.Availability) error
}

var (
	mu                   sync.Mutex
	registeredPublishers = make(map[string]Publisher)
)

func RegisterPublisher(name string, p Publisher) error {
	mu.Lock()
	defer mu.Unlock()
	if _, ok := registeredPublishers[name]; ok {
		return errAlreadyRegistered
	}
	registeredPublishers[name] = p
	return nil
}

func snapshot() map[string]Publisher {
	mu.Lock()
	defer mu.Unlock()
	out := make(map[string]Publisher, len(registeredPublishers))
	for name, p := range registeredPublishers {
		out[name] = p
	}
	return out
}

// RegisterThermostat fans the registration out to every sink. A failing sink
// is logged and skipped; the others still see the device.
func RegisterThermostat(ctx context.Context, t model.Thermostat) {
	for name, p := range snapshot() {
		if err := p.RegisterThermostat(ctx, t); err != nil {
			zap.L().Error("failed to register thermostat",
				zap.Error(err), zap.String("publisher", name), zap.String("serial_number", t.SerialNumber))
			continue
		}
		zap.L().Debug("registered thermostat",
			zap.String("publisher", name), zap.String("serial_number", t.SerialNumber))
	}
}

// PublishState fans the state of t out to every sink.
func PublishState(ctx context.Context, t model.Thermostat, now time.Time) {
	for name, p := range snapshot() {
		if err := p.PublishState(ctx, t, now); err != nil {
			zap.L().Error("failed to publish state",
				zap.Error(err), zap.String("publisher", name), zap.String("serial_number", t.SerialNumber))
		}
	}
}

// PublishAvailability fans the availability of serial out to every sink.
func PublishAvailability(ctx context.Context, serial string, availability model.Availability) {
	for name, p := range snapshot() {
		if err := p.PublishAvailability(ctx, serial, availability); err != nil {
			zap.L().Error("failed to publish availability",
				zap.Error(err), zap.String("publisher", name), zap.String("serial_number", serial))
		}
	}
}

// Reset drops all registered publishers. Test helper.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	registeredPublishers = make(map[string]Publisher)
}
