package metrics_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	account "github.com/goliatone/go-account"
	"github.com/goliatone/go-account/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSink_CountsEvents(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := metrics.NewSink(reg)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, sink.Record(ctx, account.ActivityEvent{EventType: account.ActivityEventRegistered}))
	require.NoError(t, sink.Record(ctx, account.ActivityEvent{EventType: account.ActivityEventRegistered}))
	require.NoError(t, sink.Record(ctx, account.ActivityEvent{EventType: account.ActivityEventLoginFailure}))
	require.NoError(t, sink.Record(ctx, account.ActivityEvent{
		EventType: account.ActivityEventUnactivatedSwept,
		Metadata:  map[string]any{"count": 4},
	}))

	count, err := testutil.GatherAndCount(reg, "account_events_total")
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	mfs, err := reg.Gather()
	require.NoError(t, err)

	values := map[string]float64{}
	for _, mf := range mfs {
		for _, m := range mf.GetMetric() {
			key := mf.GetName()
			for _, lp := range m.GetLabel() {
				key += "/" + lp.GetValue()
			}
			values[key] = m.GetCounter().GetValue()
		}
	}
	assert.Equal(t, 2.0, values["account_events_total/account.registered"])
	assert.Equal(t, 1.0, values["account_events_total/account.login.failure"])
	assert.Equal(t, 4.0, values["account_unactivated_swept_total"])
}

func TestNewSink_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := metrics.NewSink(reg)
	require.NoError(t, err)

	_, err = metrics.NewSink(reg)
	assert.Error(t, err)
}

func TestHandler_ServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := metrics.NewSink(reg)
	require.NoError(t, err)
	require.NoError(t, sink.Record(context.Background(), account.ActivityEvent{EventType: account.ActivityEventDeleted}))

	srv := httptest.NewServer(metrics.Handler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `account_events_total{event="account.deleted"} 1`)
}
