package metrics

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrNoop(t *testing.T) {
	assert.Equal(t, NoopCollector{}, OrNoop(nil))

	c := NewPrometheusCollector(prometheus.NewRegistry())
	assert.Same(t, c, OrNoop(c))
}

func TestPrometheusCollectorCounters(t *testing.T) {
	c := NewPrometheusCollector(prometheus.NewRegistry())

	c.FrameSent("SUBSCRIBE")
	c.FrameSent("SUBSCRIBE")
	c.FrameReceived("EVENT")
	c.EventDelivered("DevicePresence")
	c.SubscriptionError("Statistic", "DESERIALIZATION")
	c.ReconnectAttempt()
	c.ActiveSubscriptions(4)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.framesSent.WithLabelValues("SUBSCRIBE")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.framesReceived.WithLabelValues("EVENT")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.eventsDelivered.WithLabelValues("DevicePresence")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.errors.WithLabelValues("Statistic", "DESERIALIZATION")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.reconnectAttempt))
	assert.Equal(t, 4.0, testutil.ToFloat64(c.active))
}

func TestPrometheusCollectorResubscribe(t *testing.T) {
	c := NewPrometheusCollector(prometheus.NewRegistry())
	c.ResubscribeCompleted(3, 1, 200*time.Millisecond)

	assert.Equal(t, 3.0, testutil.ToFloat64(c.resubscribes.WithLabelValues("succeeded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.resubscribes.WithLabelValues("failed")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.resubscribeTime))
}

func TestPrometheusCollectorConnectionState(t *testing.T) {
	c := NewPrometheusCollector(prometheus.NewRegistry())

	c.ConnectionState("CONNECTING")
	c.ConnectionState("CONNECTED")

	assert.Equal(t, 0.0, testutil.ToFloat64(c.connectionState.WithLabelValues("CONNECTING")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.connectionState.WithLabelValues("CONNECTED")))
}

func TestServerServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewPrometheusCollector(reg)
	c.FrameSent("SUBSCRIBE")

	srv := NewServer("127.0.0.1:0", reg, nil)
	addr, err := srv.Start()
	require.NoError(t, err)
	defer srv.Shutdown(context.Background())

	resp, err := http.Get("http://" + addr.String() + Endpoint)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(string(body), `rta_wire_frames_sent_total{message_type="SUBSCRIBE"} 1`), string(body))
}
