package database

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/anicoll/microtemp-integration/internal/pkg/database/migration"
	"github.com/anicoll/microtemp-integration/internal/pkg/model"
)

func TestDatabase(t *testing.T) {
	if testing.Short() {
		t.Skip("requires docker")
	}
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("microtemp"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = container.Terminate(ctx)
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, migration.Migrate(dsn, "../../../migrations"))

	conn, err := pgx.Connect(ctx, dsn)
	require.NoError(t, err)
	db := NewDatabase(conn)
	t.Cleanup(func() {
		_ = db.Close(ctx)
	})

	th := model.Thermostat{
		SerialNumber:          "ABC123",
		GroupName:             "Ground Floor",
		RegulationMode:        model.ModeHeat,
		ManuelRoomTemperature: 2200,
		TemperatureRoom:       2150,
	}

	require.NoError(t, db.RegisterThermostat(ctx, th))
	// Re-registration updates in place instead of failing.
	th.GroupName = "First Floor"
	require.NoError(t, db.RegisterThermostat(ctx, th))

	now := time.Now()
	require.NoError(t, db.PublishState(ctx, th, now.Add(-time.Minute)))
	require.NoError(t, db.PublishState(ctx, th, now))
	require.NoError(t, db.PublishAvailability(ctx, th.SerialNumber, model.AvailabilityOnline))

	latest, err := db.GetLatestStates(ctx)
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, "ABC123", latest[0].SerialNumber)
	assert.Equal(t, "heat", latest[0].Mode)
	assert.InDelta(t, 22.0, latest[0].TargetTemperature, 0.001)
	assert.InDelta(t, 21.5, latest[0].CurrentTemperature, 0.001)

	history, err := db.GetStates(ctx, "ABC123", nil, nil)
	require.NoError(t, err)
	assert.Len(t, history, 2)

	require.NoError(t, db.Cleanup(ctx))
	history, err = db.GetStates(ctx, "ABC123", nil, nil)
	require.NoError(t, err)
	assert.Len(t, history, 2, "recent rows survive cleanup")
}
