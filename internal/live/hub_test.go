package live_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/caiomathol/weatherwatch/internal/domain"
	"github.com/caiomathol/weatherwatch/internal/live"
)

func TestSetReadingNotifiesInRegistrationOrder(t *testing.T) {
	hub := live.NewHub()

	var order []string
	hub.SubscribeReading(func(domain.Reading) { order = append(order, "first") })
	hub.SubscribeReading(func(domain.Reading) { order = append(order, "second") })
	hub.SubscribeReading(func(domain.Reading) { order = append(order, "third") })

	hub.SetReading(domain.Reading{Temperature: 20})
	require.Equal(t, []string{"first", "second", "third"}, order)
}

func TestLastWriteWins(t *testing.T) {
	hub := live.NewHub()

	_, ok := hub.CurrentReading()
	require.False(t, ok)

	hub.SetReading(domain.Reading{Temperature: 20})
	hub.SetReading(domain.Reading{Temperature: 25})

	r, ok := hub.CurrentReading()
	require.True(t, ok)
	require.Equal(t, 25.0, r.Temperature)
}

func TestPanickingSubscriberIsIsolated(t *testing.T) {
	hub := live.NewHub()

	var delivered []float64
	hub.SubscribeReading(func(domain.Reading) { panic("bad subscriber") })
	hub.SubscribeReading(func(r domain.Reading) { delivered = append(delivered, r.Temperature) })

	hub.SetReading(domain.Reading{Temperature: 21})
	require.Equal(t, []float64{21}, delivered)
}

func TestNegativeCountClamped(t *testing.T) {
	hub := live.NewHub()

	var seen []int
	hub.SubscribeCount(func(n int) { seen = append(seen, n) })

	hub.SetUnacknowledgedCount(3)
	hub.SetUnacknowledgedCount(-2)

	require.Equal(t, []int{3, 0}, seen)
	require.Equal(t, 0, hub.UnacknowledgedCount())
}

func TestConnectionStatus(t *testing.T) {
	hub := live.NewHub()

	var seen []bool
	hub.SubscribeStatus(func(c bool) { seen = append(seen, c) })

	hub.SetConnectionStatus(true)
	hub.SetConnectionStatus(false)

	require.Equal(t, []bool{true, false}, seen)
	require.False(t, hub.ConnectionStatus())
}

func TestReset(t *testing.T) {
	hub := live.NewHub()
	hub.SetReading(domain.Reading{Temperature: 20, Timestamp: time.Now()})
	hub.SetConnectionStatus(true)
	hub.SetUnacknowledgedCount(4)

	hub.Reset()

	_, ok := hub.CurrentReading()
	require.False(t, ok)
	require.False(t, hub.ConnectionStatus())
	require.Equal(t, 0, hub.UnacknowledgedCount())
}
