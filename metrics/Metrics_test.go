package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveUpdate(t *testing.T) {
	r := NewRecorder()

	loss := 0.75
	r.ObserveUpdate(10, 2, -1.5, &loss, 20*time.Millisecond)
	r.ObserveUpdate(4, 1, 0.5, nil, 10*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.UpdatesTotal))
	assert.Equal(t, 4.0, testutil.ToFloat64(r.BatchSize))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.BatchTrajectories))
	assert.Equal(t, 0.5, testutil.ToFloat64(r.PolicyLoss))

	// The baseline loss keeps its last reported value
	assert.Equal(t, 0.75, testutil.ToFloat64(r.BaselineLoss))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.UpdateErrorsTotal))

	r.ObserveError()
	assert.Equal(t, 1.0, testutil.ToFloat64(r.UpdateErrorsTotal))
}

func TestRecordersAreIndependent(t *testing.T) {
	a, b := NewRecorder(), NewRecorder()
	a.ObserveError()

	assert.Equal(t, 1.0, testutil.ToFloat64(a.UpdateErrorsTotal))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.UpdateErrorsTotal))

	count, err := testutil.GatherAndCount(a.Registry())
	require.NoError(t, err)
	assert.Equal(t, 7, count)
}

func TestHandler(t *testing.T) {
	r := NewRecorder()
	r.ObserveUpdate(3, 2, 1, nil, time.Millisecond)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		"/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "pgcore_updates_total 1")
	assert.Contains(t, rec.Body.String(), "pgcore_batch_size 3")
}
