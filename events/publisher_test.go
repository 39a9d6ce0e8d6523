package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDisabledWithoutBrokers(t *testing.T) {
	for _, cfg := range []*Config{
		nil,
		{Enabled: false, Brokers: []string{"kafka:9092"}},
		{Enabled: true, Brokers: nil},
	} {
		p := New(cfg)
		assert.False(t, p.Enabled())
		require.NoError(t, p.Close())
	}
}

func TestPublishTurnLogOnlyMode(t *testing.T) {
	p := New(nil)

	ev := TurnEvent{
		SessionID: "s-1",
		Speaker:   "coach",
		Text:      "squeeze the glutes through the transition",
		At:        time.Now(),
	}

	// No broker is involved in log-only mode.
	require.NoError(t, p.PublishTurn(context.Background(), ev))
	require.NoError(t, p.Close())
}
