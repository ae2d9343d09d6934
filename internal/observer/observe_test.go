package observer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeAPI(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/status", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name":"mini-mind","frame":120,"speed":1,"running":true,
			"summary":{"agents":3,"states":{"idle":1,"exploring":2},"stats":{"decisions":40}}}`))
	})
	mux.HandleFunc("/api/v1/agents", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":1,"state":"idle","health":0.9},
			{"id":2,"state":"exploring","health":0.4},
			{"id":3,"state":"exploring","health":0.7}]`))
	})
	mux.HandleFunc("/api/v1/memory", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"decay_rate":0.1,"entries":{"threat:9":0.5}}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestObserve(t *testing.T) {
	srv := fakeAPI(t)

	snap, err := NewObserver(srv.URL).Observe(context.Background())
	require.NoError(t, err)

	assert.Equal(t, uint64(120), snap.Status.Frame)
	assert.Equal(t, uint64(40), snap.Status.Summary.Stats.Decisions)
	assert.Len(t, snap.Agents, 3)
	assert.Equal(t, 0.5, snap.Memory.Entries["threat:9"])

	top := snap.TopStates(1)
	require.Len(t, top, 1)
	assert.Equal(t, StateCount{State: "exploring", Count: 2}, top[0])

	weakest, ok := snap.Weakest()
	require.True(t, ok)
	assert.Equal(t, uint64(2), weakest.ID)
}

func TestObserveErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewObserver(srv.URL).Observe(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch status")
	assert.Contains(t, err.Error(), "500")
}

func TestTopStatesTiesByName(t *testing.T) {
	snap := &Snapshot{}
	snap.Status.Summary.States = map[string]int{"fleeing": 2, "attacking": 2, "idle": 1}

	top := snap.TopStates(0)
	require.Len(t, top, 3)
	assert.Equal(t, "attacking", top[0].State)
	assert.Equal(t, "fleeing", top[1].State)
	assert.Equal(t, "idle", top[2].State)
}

func TestWeakestEmpty(t *testing.T) {
	_, ok := (&Snapshot{}).Weakest()
	assert.False(t, ok)
}

func TestWaitForAPIRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "starting", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"frame":1}`))
	}))
	defer srv.Close()

	err := NewObserver(srv.URL).WaitForAPI(context.Background(), Backoff{
		Initial:  time.Millisecond,
		Max:      2 * time.Millisecond,
		Deadline: 5 * time.Second,
	})
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestWaitForAPIGivesUp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	err := NewObserver(srv.URL).WaitForAPI(context.Background(), Backoff{
		Initial:  time.Millisecond,
		Max:      time.Millisecond,
		Deadline: 20 * time.Millisecond,
	})
	assert.ErrorIs(t, err, ErrNotReady)
}
