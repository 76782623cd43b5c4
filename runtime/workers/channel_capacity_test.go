package workers

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"
	"tutor-chat/observability"

	"github.com/mama165/sdk-go/logs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestChannelCapacityWorker_Samples_Channels(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	events := make(chan int, 4)
	events <- 1
	events <- 2
	worker := NewChannelCapacityWorker(log, []NamedChannel{
		{Name: "events", Channel: events},
		{Name: "not-a-channel", Channel: 42},
	}, metrics, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	req.Eventually(func() bool {
		expected := `
# HELP tutorchat_channel_length Events waiting in an internal queue
# TYPE tutorchat_channel_length gauge
tutorchat_channel_length{channel="events"} 2
`
		return testutil.GatherAndCompare(registry, strings.NewReader(expected), "tutorchat_channel_length") == nil
	}, time.Second, 5*time.Millisecond)

	cancel()
	req.NoError(<-done)
}
