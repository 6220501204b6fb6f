package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestFetchCatalog(t *testing.T) {
	t.Run("parses catalog and sends bearer token", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/fetch_sports_list", r.URL.Path)
			assert.Equal(t, "Bearer tkn", r.Header.Get("Authorization"))
			w.Write([]byte(`{"Football":[{"title":"Premier League","key":"Premier League","active":true}]}`))
		}))
		defer srv.Close()

		c := NewClient(srv.URL, "tkn", zap.NewNop())
		snap := c.FetchCatalog(context.Background())
		require.Len(t, snap, 1)
		assert.Equal(t, "Premier League", snap["Football"][0].Title)
		assert.True(t, snap["Football"][0].Active)
	})

	t.Run("non-2xx degrades to empty snapshot", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		c := NewClient(srv.URL, "tkn", zap.NewNop())
		assert.Empty(t, c.FetchCatalog(context.Background()))
	})

	t.Run("malformed body degrades to empty snapshot", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`not json`))
		}))
		defer srv.Close()

		c := NewClient(srv.URL, "tkn", zap.NewNop())
		assert.Empty(t, c.FetchCatalog(context.Background()))
	})

	t.Run("unreachable provider degrades to empty snapshot", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		srv.Close()

		c := NewClient(srv.URL, "tkn", zap.NewNop())
		assert.Empty(t, c.FetchCatalog(context.Background()))
	})
}

func TestFetchMatches(t *testing.T) {
	t.Run("parses matches with embedded odds", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/fetch_event_list", r.URL.Path)
			assert.Equal(t, "premier_league", r.URL.Query().Get("event_key"))
			w.Write([]byte(`[{"id":"m-1","sport_key":"soccer_epl","home_team":"Arsenal","away_team":"Chelsea",
				"commence_time":"2025-06-01T18:30:00Z","odds":{"outcomes":[{"name":"Arsenal","price":1.85}]}}]`))
		}))
		defer srv.Close()

		c := NewClient(srv.URL, "tkn", zap.NewNop())
		matches := c.FetchMatches(context.Background(), "premier_league")
		require.Len(t, matches, 1)
		assert.Equal(t, "m-1", matches[0].ID)
		require.Len(t, matches[0].Odds.Outcomes, 1)
		assert.Equal(t, 1.85, matches[0].Odds.Outcomes[0].Price)
	})

	t.Run("failure degrades to empty list", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		c := NewClient(srv.URL, "tkn", zap.NewNop())
		assert.Empty(t, c.FetchMatches(context.Background(), "premier_league"))
	})
}
