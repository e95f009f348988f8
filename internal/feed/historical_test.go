package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHTTPHistorical_FetchBars(t *testing.T) {
	var gotQuery map[string]string
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		q := r.URL.Query()
		gotQuery = map[string]string{
			"dataset": q.Get("dataset"),
			"schema":  q.Get("schema"),
			"symbols": q.Get("symbols"),
		}
		// Out of order on purpose; prices scaled by the divisor.
		w.Write([]byte(`[
			{"ts_ms":1787479980000,"open":25552e9,"high":25555e9,"low":25538e9,"close":25540e9,"volume":95},
			{"ts_ms":1787479920000,"open":25510e9,"high":25560e9,"low":25505e9,"close":25552e9,"volume":120}
		]`))
	}))
	defer srv.Close()

	f := NewHTTPHistorical(srv.URL, "test-key", "GLBX.MDP3", "ohlcv-1m", 1e9, "")
	bars, err := f.FetchBars(context.Background(), "NQZ5",
		time.UnixMilli(1787479920000), time.UnixMilli(1787480040000))
	require.NoError(t, err)

	require.Equal(t, "Bearer test-key", gotAuth)
	require.Equal(t, "GLBX.MDP3", gotQuery["dataset"])
	require.Equal(t, "ohlcv-1m", gotQuery["schema"])
	require.Equal(t, "NQZ5", gotQuery["symbols"])

	require.Len(t, bars, 2)
	require.True(t, bars[0].Start.Before(bars[1].Start), "bars sorted by start time")
	require.Equal(t, 25510.0, bars[0].Open)
	require.Equal(t, 25560.0, bars[0].High)
	require.Equal(t, 120.0, bars[0].Volume)
	require.True(t, bars[0].Finalized)
}

func TestHTTPHistorical_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	f := NewHTTPHistorical(srv.URL, "", "GLBX.MDP3", "ohlcv-1m", 1e9, "")
	_, err := f.FetchBars(context.Background(), "NQZ5", time.Now().Add(-time.Hour), time.Now())
	require.Error(t, err)
	require.Contains(t, err.Error(), "403")
}
