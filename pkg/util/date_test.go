package util

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeRFC3339(t *testing.T) {
	got, ok := ParseTime("2024-10-10T12:10:10+02:00")
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC), got)
	assert.Equal(t, time.UTC, got.Location())
}

func TestParseTimeUnix(t *testing.T) {
	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
	got, ok := ParseTime(strconv.FormatInt(ts, 10))
	require.True(t, ok)
	assert.Equal(t, ts, got.Unix())
}

func TestParseTimeRejectsGarbage(t *testing.T) {
	for _, s := range []string{"", "yesterday", "-5", "0"} {
		_, ok := ParseTime(s)
		assert.False(t, ok, s)
	}
}

func TestParseTimeDefault(t *testing.T) {
	def := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC)
	assert.True(t, ParseTimeDefault("", def).Equal(def))
	assert.True(t, ParseTimeDefault("nope", def).Equal(def))
}

func TestNormalizeSymbols(t *testing.T) {
	got := NormalizeSymbols([]string{" AAPL", "msft", "", "AAPL", "BINANCE:BTCUSDT "})
	assert.Equal(t, []string{"AAPL", "msft", "BINANCE:BTCUSDT"}, got)
}
