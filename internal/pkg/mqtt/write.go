package mqtt

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/anicoll/microtemp-integration/internal/pkg/hass"
	"github.com/anicoll/microtemp-integration/internal/pkg/model"
)

var configuredThermostats sync.Map

// RegisterThermostat publishes the retained discovery document for a
// thermostat and subscribes to its command topic. Repeat registrations for a
// serial already announced are a no-op, so periodic refreshes stay cheap.
func (s *service) RegisterThermostat(_ context.Context, t model.Thermostat) error {
	if _, exists := configuredThermostats.Load(t.SerialNumber); exists {
		return nil
	}
	topics := hass.TopicsFor(s.prefix, t.SerialNumber)

	payload, err := json.Marshal(hass.DiscoveryFor(t, topics))
	if err != nil {
		return err
	}
	s.logger.Info("publishing thermostat config",
		zap.String("topic", topics.Config), zap.String("serial_number", t.SerialNumber))
	if err := s.publish(topics.Config, 0, true, payload); err != nil {
		return err
	}
	if err := s.subscribe(topics.Command); err != nil {
		return err
	}

	configuredThermostats.Store(t.SerialNumber, struct{}{})
	return nil
}

// PublishState publishes the thermostat's bus state.
func (s *service) PublishState(_ context.Context, t model.Thermostat, now time.Time) error {
	topics := hass.TopicsFor(s.prefix, t.SerialNumber)
	payload, err := json.Marshal(hass.StateFor(t, now))
	if err != nil {
		return err
	}
	s.logger.Debug("publishing state",
		zap.String("topic", topics.State), zap.ByteString("payload", payload))
	return s.publish(topics.State, 0, false, payload)
}

// PublishAvailability publishes the literal online/offline string.
func (s *service) PublishAvailability(_ context.Context, serial string, availability model.Availability) error {
	topics := hass.TopicsFor(s.prefix, serial)
	s.logger.Debug("publishing availability",
		zap.String("topic", topics.Availability), zap.Stringer("availability", availability))
	return s.publish(topics.Availability, 0, false, []byte(availability))
}
