package calendar

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alijeyrad/carevisit_backend/config"
	"github.com/Alijeyrad/carevisit_backend/internal/calendar"
)

const watchStaff = "1c9f4d2b-7a3e-4f6a-9b8c-3e5d7f9a1b24"

func TestLiveSession_UnlinkedStaffKeepsSession(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   any
	}{
		{"rejected by the API", http.StatusForbidden, map[string]any{"error": "staff member has no facility"}},
		{"no facility in the answer", http.StatusOK, map[string]any{"data": map[string]any{"staff_id": watchStaff}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_ = json.NewEncoder(w).Encode(tt.body)
			}))
			t.Cleanup(srv.Close)

			cfg := &config.Config{Calendar: config.CalendarConfig{APIURL: srv.URL, StaffID: watchStaff}}
			s, err := liveSession(context.Background(), cfg, watchFlags{}, slog.Default())
			require.NoError(t, err)
			t.Cleanup(s.close)

			assert.ErrorIs(t, s.scopeErr, calendar.ErrNoFacility)
			assert.False(t, s.scope.Bound())
			assert.Equal(t, watchStaff, s.scope.StaffID)
			assert.NotNil(t, s.handlers)
			assert.Equal(t, "Staff 1c9f4d2b", s.title)
		})
	}
}

func TestLiveSession_UnreachableAPIFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	cfg := &config.Config{Calendar: config.CalendarConfig{APIURL: srv.URL, StaffID: watchStaff}}
	_, err := liveSession(context.Background(), cfg, watchFlags{}, slog.Default())
	require.Error(t, err)
	assert.NotErrorIs(t, err, calendar.ErrNoFacility)
}
