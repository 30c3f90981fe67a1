package common

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimer(t *testing.T) {
	timer := NewTimer("estimate")
	assert.Equal(t, "estimate", timer.Name())

	time.Sleep(10 * time.Millisecond)

	duration := timer.Stop()
	assert.GreaterOrEqual(t, duration, 10*time.Millisecond)
	assert.Equal(t, duration, timer.Duration())

	// a second Stop keeps the first measurement
	time.Sleep(2 * time.Millisecond)
	assert.Equal(t, duration, timer.Stop())

	str := timer.String()
	assert.Contains(t, str, "estimate")
	assert.Contains(t, str, "ms")
}

func TestTimer_Unnamed(t *testing.T) {
	timer := NewTimer("")
	timer.Stop()
	assert.Equal(t, timer.Duration().String(), timer.String())
}

func TestTimer_LogValue(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	timer := NewTimer("warp")
	timer.Stop()
	logger.Info("done", "timer", timer)

	assert.Contains(t, buf.String(), `"timer":{"name":"warp","ms":`)
}

func TestPhases(t *testing.T) {
	var p Phases
	p.Start("estimate")
	time.Sleep(2 * time.Millisecond)
	p.Start("warp")
	time.Sleep(2 * time.Millisecond)
	p.Stop()

	est, ok := p.Get("estimate")
	require.True(t, ok)
	warp, ok := p.Get("warp")
	require.True(t, ok)
	_, ok = p.Get("save")
	assert.False(t, ok)

	assert.GreaterOrEqual(t, est.Duration(), 2*time.Millisecond)
	assert.Equal(t, est.Duration()+warp.Duration(), p.Total())

	var buf bytes.Buffer
	require.NoError(t, p.Report(&buf))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "estimate"))
	assert.True(t, strings.HasPrefix(lines[1], "warp"))
	assert.True(t, strings.HasPrefix(lines[2], "total"))

	buf.Reset()
	slog.New(slog.NewJSONHandler(&buf, nil)).Info("timing", "phases", &p)
	assert.Contains(t, buf.String(), `"estimate_ms":`)
	assert.Contains(t, buf.String(), `"total_ms":`)
}

func TestMillis(t *testing.T) {
	assert.InDelta(t, 1.5, Millis(1500*time.Microsecond), 1e-12)
}
