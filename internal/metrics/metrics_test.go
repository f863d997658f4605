package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pears-cleaning/internal/engine"
)

func TestRecorder(t *testing.T) {
	r := NewRecorder()
	r.ObserveModule("monthly", &engine.Result{
		Module: "Partnerships",
		Rows:   make([]engine.Row, 3),
		Summary: []engine.SummaryRow{
			{Module: "Partnerships", Update: "GI UPDATE1", Entries: 2},
			{Module: "Partnerships", Update: "GI UPDATE3", Entries: 1},
			{Module: "Partnerships", Update: engine.TotalUpdate, Entries: 3},
		},
	})
	r.ModuleFailed("monthly", "Coalitions")
	r.ObserveDeliveries("monthly", 10, 2)
	finished := time.Unix(1665590400, 0)
	r.ObserveRun("monthly", 90*time.Second, true, finished)

	assert.Equal(t, 3.0, testutil.ToFloat64(r.corrections.WithLabelValues("monthly", "Partnerships")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.ruleHits.WithLabelValues("monthly", "Partnerships", "GI UPDATE1")))
	assert.Equal(t, 2, testutil.CollectAndCount(r.ruleHits), "the Total row is not a rule")
	assert.Equal(t, 1.0, testutil.ToFloat64(r.moduleErrors.WithLabelValues("monthly", "Coalitions")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.notifications.WithLabelValues("monthly", "failed")))
	assert.Equal(t, 90.0, testutil.ToFloat64(r.duration.WithLabelValues("monthly")))
	assert.Equal(t, float64(finished.Unix()), testutil.ToFloat64(r.lastSuccess.WithLabelValues("monthly")))
}

func TestPush(t *testing.T) {
	var method, path, body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		method, path = req.Method, req.URL.Path
		b, _ := io.ReadAll(req.Body)
		body = string(b)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	r := NewRecorder()
	r.ObserveDeliveries("quarterly", 4, 0)
	require.NoError(t, r.Push(context.Background(), srv.URL, "pears_cleaning"))

	assert.Equal(t, http.MethodPut, method)
	assert.Equal(t, "/metrics/job/pears_cleaning", path)
	assert.NotEmpty(t, body)
}

func TestPush_Disabled(t *testing.T) {
	assert.NoError(t, NewRecorder().Push(context.Background(), "", "pears_cleaning"))
}
