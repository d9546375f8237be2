package stats

import (
	"encoding/json"
	"expvar"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStatsUpdater(t *testing.T) {
	mux := http.NewServeMux()
	su := NewStatsUpdater(mux)
	assert.NotNil(t, su, "expected StatsUpdater to be non-nil")
	assert.NotNil(t, su.updateChan, "expected updateChan to be initialized")
	handler, pattern := mux.Handler(&http.Request{URL: &url.URL{Path: "/debug/vars"}, Method: http.MethodGet})
	assert.NotNil(t, handler, "expected handler for /debug/vars to be set")
	assert.Equal(t, "GET /debug/vars", pattern, "expected handler to be registered for GET method on /debug/vars")
}

func TestStatsUpdater_IncrDecr(t *testing.T) {
	mux := http.NewServeMux()
	su := newStatsUpdater(mux, new(expvar.Map).Init())
	su.RegisterMetric(NumSessions)
	// registering twice keeps the existing counter
	su.RegisterMetric(NumSessions)
	su.Run()

	su.Incr(NumSessions)
	su.Incr(NumSessions)
	su.Decr(NumSessions)

	assert.Eventually(t, func() bool {
		return su.vars.Get(NumSessions).(*expvar.Int).Value() == 1
	}, time.Second, 10*time.Millisecond, "expected counter to settle at 1")

	su.Stop()

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/debug/vars", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.EqualValues(t, 1, body[NumSessions])
	assert.Contains(t, body, "Uptime")
}

func TestStatsUpdater_nonBlocking(t *testing.T) {
	t.Run("drops updates when the queue is full", func(t *testing.T) {
		su := newStatsUpdater(http.NewServeMux(), new(expvar.Map).Init())
		su.RegisterMetric(NumSessions)

		// Run is not started, so nothing drains the queue.
		done := make(chan struct{})
		go func() {
			defer close(done)
			for i := 0; i < cap(su.updateChan)+10; i++ {
				su.Incr(NumSessions)
			}
		}()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("expected Incr not to block on a full queue")
		}
		assert.Len(t, su.updateChan, cap(su.updateChan))
	})

	t.Run("updates after stop are discarded", func(t *testing.T) {
		su := newStatsUpdater(http.NewServeMux(), new(expvar.Map).Init())
		su.RegisterMetric(NumSessions)
		su.Run()

		su.Stop()
		su.Stop()

		assert.NotPanics(t, func() {
			su.Incr(NumSessions)
			su.Decr(NumSessions)
		})
		assert.Empty(t, su.updateChan)
		assert.EqualValues(t, 0, su.vars.Get(NumSessions).(*expvar.Int).Value())
	})
}
