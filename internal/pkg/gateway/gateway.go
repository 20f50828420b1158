package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/anicoll/microtemp-integration/internal/pkg/contxt"
	"github.com/anicoll/microtemp-integration/internal/pkg/hass"
	"github.com/anicoll/microtemp-integration/internal/pkg/model"
	"github.com/anicoll/microtemp-integration/internal/pkg/publisher"
	"github.com/anicoll/microtemp-integration/internal/pkg/registry"
)

const publishTimeout = time.Second * 5

type vendorAPI interface {
	Thermostats(ctx context.Context) ([]model.Thermostat, error)
	ChangeState(ctx context.Context, t model.Thermostat) error
}

// service keeps the thermostat registry consistent across the push feed, the
// reconciliation loop and inbound bus commands, and relays local mutations
// back to the vendor.
type service struct {
	api               vendorAPI
	registry          *registry.Registry
	reconcileInterval time.Duration
	logger            *zap.Logger
}

func New(api vendorAPI, reg *registry.Registry, reconcileInterval time.Duration) *service {
	return &service{
		api:               api,
		registry:          reg,
		reconcileInterval: reconcileInterval,
		logger:            zap.L(),
	}
}

// Bootstrap does the initial full fetch: every thermostat is loaded into the
// registry, announced to the publishers and published as online with its
// current state. Errors here are fatal; the gateway has nothing to serve
// without the initial device list.
func (s *service) Bootstrap(ctx context.Context) error {
	return s.syncAll(ctx)
}

// Refresh re-runs the full fetch. Used by the periodic reconciliation poll;
// failures only log, the next run retries.
func (s *service) Refresh(ctx context.Context) {
	if err := s.syncAll(ctx); err != nil {
		s.logger.Error("periodic thermostat refresh failed", zap.Error(err))
	}
}

func (s *service) syncAll(ctx context.Context) error {
	thermostats, err := s.api.Thermostats(ctx)
	if err != nil {
		return err
	}

	for _, t := range thermostats {
		s.registry.Upsert(t)
		publisher.RegisterThermostat(ctx, t)
		s.logger.Debug("thermostat added to registry", zap.String("serial_number", t.SerialNumber))
	}

	now := time.Now()
	s.registry.ForEach(func(t model.Thermostat) {
		publisher.PublishAvailability(ctx, t.SerialNumber, model.AvailabilityOnline)
		publisher.PublishState(ctx, t, now)
	})
	s.logger.Info("synchronized thermostats", zap.Int("count", len(thermostats)))
	return nil
}

// HandleFeedMessage applies one push notification frame. Each element of the
// envelope's M array is a second JSON layer that may carry a thermostat;
// known or new, the record fully replaces the registry entry and the fresh
// state goes out on the bus immediately.
func (s *service) HandleFeedMessage(data []byte) {
	var env model.FeedEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		s.logger.Warn("dropping malformed feed frame", zap.Error(err))
		return
	}

	for _, raw := range env.M {
		var item model.FeedItem
		if err := json.Unmarshal([]byte(raw), &item); err != nil {
			s.logger.Warn("dropping malformed feed item", zap.Error(err))
			continue
		}
		if item.Thermostat == nil {
			return
		}

		t := *item.Thermostat
		s.registry.Upsert(t)
		s.logger.Debug("received feed update", zap.String("serial_number", t.SerialNumber))

		ctx := contxt.NewContext(publishTimeout)
		publisher.RegisterThermostat(ctx, t)
		publisher.PublishState(ctx, t, time.Now())
		publisher.PublishAvailability(ctx, t.SerialNumber, model.AvailabilityOnline)
	}
}

// HandleCommand applies one inbound bus command to the registry and marks
// the device for the next reconciliation flush. Malformed payloads and
// unknown devices are dropped with a warning; a command can never take the
// gateway down.
func (s *service) HandleCommand(topic string, payload []byte) {
	cmd, err := hass.ParseCommand(payload)
	if err != nil {
		s.logger.Warn("dropping malformed command",
			zap.String("topic", topic), zap.Error(err))
		return
	}
	mode, ok := model.ModeFromString(cmd.Mode)
	if !ok {
		s.logger.Warn("dropping command with unknown mode",
			zap.String("topic", topic), zap.String("mode", cmd.Mode))
		return
	}

	err = s.registry.MarkDirty(cmd.UniqueID, func(t *model.Thermostat) {
		if cmd.TargetTemperature != nil {
			hundredths := int(*cmd.TargetTemperature * 100)
			t.ManuelRoomTemperature = hundredths
			t.ManuelFloorTemperature = hundredths
		}
		t.RegulationMode = mode
	})
	if errors.Is(err, registry.ErrNotFound) {
		s.logger.Warn("dropping command for unknown thermostat",
			zap.String("topic", topic), zap.String("serial_number", cmd.UniqueID))
		return
	}
	s.logger.Debug("applied command",
		zap.String("serial_number", cmd.UniqueID), zap.Stringer("mode", mode))
}

// Reconcile scans the registry on a fixed cadence and flushes every dirty
// device to the vendor. Runs until ctx is cancelled.
func (s *service) Reconcile(ctx context.Context) error {
	ticker := time.NewTicker(s.reconcileInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.flushDirty(ctx)
		}
	}
}

// flushDirty writes out one coalesced snapshot per dirty device. The atomic
// read-and-clear means a device never has two in-flight writes from the same
// cycle. A failed write is logged and dropped, not re-marked dirty: flushes
// are at-most-once and only a new mutation schedules another attempt.
func (s *service) flushDirty(ctx context.Context) {
	for _, serial := range s.registry.Serials() {
		snapshot, dirty := s.registry.TakeDirtySnapshot(serial)
		if !dirty {
			continue
		}
		if err := s.api.ChangeState(ctx, snapshot); err != nil {
			s.logger.Error("failed to flush thermostat state",
				zap.String("serial_number", serial), zap.Error(err))
			continue
		}
		s.logger.Debug("flushed thermostat state", zap.String("serial_number", serial))
	}
}

// Len reports how many thermostats the gateway currently tracks.
func (s *service) Len() int {
	return s.registry.Len()
}

// Snapshot returns a copy of every tracked thermostat.
func (s *service) Snapshot() []model.Thermostat {
	out := make([]model.Thermostat, 0, s.registry.Len())
	s.registry.ForEach(func(t model.Thermostat) {
		out = append(out, t)
	})
	return out
}
