package chrono

import (
	"errors"
	"testing"
	"time"

	"courseplanner-backend/internal/components/telemetry"

	"github.com/stretchr/testify/require"
)

func TestCronLogger(t *testing.T) {
	rec := telemetry.NewRecorder()
	logger := cronLogger{tel: rec}

	logger.Info("start", "entry", 1, "next", "soon")
	logger.Error(errors.New("boom"), "panic", "entry", 2)

	debug := rec.Reports(telemetry.KindDebug)
	require.Len(t, debug, 1)
	require.Equal(t, "cron: start", debug[0].ID)
	require.Equal(t, []any{
		telemetry.KV{Key: "entry", Value: 1},
		telemetry.KV{Key: "next", Value: "soon"},
	}, debug[0].Params)

	require.True(t, rec.Has(telemetry.KindBroken, "cron"))
}

func TestStandardCronRejectsBadSpec(t *testing.T) {
	clock := FixedImpl{At: time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)}
	c := NewStandardCron(clock, telemetry.NewRecorder())
	defer c.Stop()

	require.Error(t, c.Cron("not a spec", func() {}))
	require.NoError(t, c.Cron("0 3 * * *", func() {}))
}

func TestStandardImplDefaultsTimezone(t *testing.T) {
	clock, err := NewStandardImpl("")
	require.NoError(t, err)
	require.Equal(t, "America/Los_Angeles", clock.Location().String())
	require.Equal(t, clock.Location(), clock.Now().Location())
}
