package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDay_TruncatesToUTCMidnight(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*60*60)
	in := time.Date(2026, 8, 24, 3, 15, 42, 999, loc)

	got := Day(in)

	assert.Equal(t, time.Date(2026, 8, 23, 0, 0, 0, 0, time.UTC), got)
	assert.Equal(t, time.UTC, got.Location())
}

func TestDay_Idempotent(t *testing.T) {
	d := Day(time.Now())
	assert.Equal(t, d, Day(d))
}

func TestDateString(t *testing.T) {
	d := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "2026-08-24", DateString(d))
}
