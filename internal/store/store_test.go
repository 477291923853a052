package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streetview-randomizer/internal/geo"
	"streetview-randomizer/internal/migrate"
	"streetview-randomizer/internal/utils"
)

func TestNullTime(t *testing.T) {
	assert.False(t, nullTime(time.Time{}).Valid)
	now := time.Now()
	nt := nullTime(now)
	assert.True(t, nt.Valid)
	assert.Equal(t, now, nt.Time)
}

func TestNewRunIDUnique(t *testing.T) {
	assert.NotEqual(t, NewRunID(), NewRunID())
}

// 需要可用的 PostgreSQL：设置 PG_DSN 后运行
func TestStoreRoundTrip(t *testing.T) {
	if os.Getenv("PG_DSN") == "" {
		t.Skip("PG_DSN not set")
	}
	ctx := context.Background()
	db, err := utils.OpenPostgresFromEnv()
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, migrate.EnsureSchema(ctx, db))
	require.NoError(t, migrate.EnsureSchema(ctx, db))

	st := AttachDB(db)
	run := NewRunID()
	since := time.Now().Add(-time.Minute)
	samples := []Sample{
		{RunID: run, Index: 0, Country: "ZZA", Name: "Testland A", At: geo.Coordinate{Lat: 1, Lon: 2}, RadiusM: 5000, Attempts: 3, Elapsed: time.Second, Images: 2},
		{RunID: run, Index: 1, Country: "ZZA", Name: "Testland A", At: geo.Coordinate{Lat: 1, Lon: 3}, RadiusM: 5000, Attempts: 5, Elapsed: time.Second, Images: 2},
		{RunID: run, Index: 2, Country: "ZZB", Name: "Testland B", At: geo.Coordinate{Lat: 4, Lon: 5}, RadiusM: 5000, Attempts: 1, Elapsed: time.Second, Images: 2},
	}
	for _, s := range samples {
		require.NoError(t, st.InsertSample(ctx, s))
	}
	t.Cleanup(func() { _, _ = db.Exec(`DELETE FROM _sv_samples WHERE run_id=$1`, run.String()) })

	totals, err := st.CountryTotals(ctx, since)
	require.NoError(t, err)
	byCode := map[string]CountryTotal{}
	for _, ct := range totals {
		byCode[ct.Code] = ct
	}
	assert.Equal(t, int64(2), byCode["ZZA"].Samples)
	assert.Equal(t, int64(4), byCode["ZZA"].Images)
	assert.InDelta(t, 4.0, byCode["ZZA"].AvgAttempts, 1e-9)

	runs, err := st.RecentRuns(ctx, 50)
	require.NoError(t, err)
	var found bool
	for _, r := range runs {
		if r.RunID == run {
			found = true
			assert.Equal(t, int64(3), r.Samples)
			assert.Equal(t, int64(9), r.Attempts)
		}
	}
	assert.True(t, found)
}
