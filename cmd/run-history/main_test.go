package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"streetview-randomizer/internal/store"
)

func TestRunUnreachableDatabase(t *testing.T) {
	t.Setenv("PG_DSN", "postgres://sv:sv@127.0.0.1:1/streetview?sslmode=disable&connect_timeout=1")
	var out bytes.Buffer
	assert.Equal(t, 1, run([]string{"-days", "7"}, &out))
	assert.Empty(t, out.String())
}

func TestRunBadFlag(t *testing.T) {
	assert.Equal(t, 2, run([]string{"-weeks", "2"}, &bytes.Buffer{}))
}

func TestPrintTables(t *testing.T) {
	var out bytes.Buffer
	printTotals(&out, []store.CountryTotal{{Code: "JPN", Name: "Japan", Samples: 4, Images: 12, AvgAttempts: 7.5}})
	printRuns(&out, []store.RunSummary{{RunID: uuid.Nil, Started: time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC), Samples: 4, Attempts: 30}})

	assert.Contains(t, out.String(), "AVG ATTEMPTS")
	assert.Contains(t, out.String(), "Japan")
	assert.Contains(t, out.String(), "7.50")
	assert.Contains(t, out.String(), "2024-05-01T08:00:00Z")
	assert.Contains(t, out.String(), uuid.Nil.String())
}
