package meeting

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Kellia855/mindbridge/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

type recordedCall struct {
	Method string
	Path   string
	Query  map[string]string
	Event  calendar.Event
}

type fakeCalendar struct {
	mu      sync.Mutex
	calls   []recordedCall
	respond func(w http.ResponseWriter, r *http.Request)
}

func (f *fakeCalendar) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	call := recordedCall{Method: r.Method, Path: r.URL.Path, Query: map[string]string{}}
	for k := range r.URL.Query() {
		call.Query[k] = r.URL.Query().Get(k)
	}
	if r.Body != nil && r.Method != http.MethodDelete {
		_ = json.NewDecoder(r.Body).Decode(&call.Event)
	}
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
	f.respond(w, r)
}

func newTestGoogle(t *testing.T, respond func(w http.ResponseWriter, r *http.Request)) (*Google, *fakeCalendar, *httptest.Server) {
	t.Helper()
	fake := &fakeCalendar{respond: respond}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	kigali, err := time.LoadLocation("Africa/Kigali")
	require.NoError(t, err)

	g, err := NewGoogle(context.Background(), GoogleConfig{Location: kigali, Timeout: 2 * time.Second},
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	return g, fake, srv
}

func sampleBooking() *models.Booking {
	return &models.Booking{
		ID:          12,
		FullName:    "Aline Uwase",
		Email:       "aline@alu.edu",
		Date:        "2025-06-01",
		Time:        "10:00",
		SessionType: models.SessionTypeIndividual,
		Reason:      "exam stress",
		Status:      models.BookingStatusPending,
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestGoogle_CreateBuildsEventAndReturnsLink(t *testing.T) {
	g, fake, _ := newTestGoogle(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{
			"id":          "evt-1",
			"hangoutLink": "https://meet.example/abc",
			"htmlLink":    "https://calendar.example/evt-1",
			"conferenceData": map[string]interface{}{
				"conferenceId": "abc-defg-hij",
			},
		})
	})

	m, err := g.Create(context.Background(), sampleBooking())
	require.NoError(t, err)
	assert.Equal(t, &Meeting{
		JoinLink:     "https://meet.example/abc",
		EventID:      "evt-1",
		ConferenceID: "abc-defg-hij",
		HTMLLink:     "https://calendar.example/evt-1",
	}, m)

	require.Len(t, fake.calls, 1)
	call := fake.calls[0]
	assert.Equal(t, http.MethodPost, call.Method)
	assert.True(t, strings.HasSuffix(call.Path, "/calendars/primary/events"), call.Path)
	assert.Equal(t, "1", call.Query["conferenceDataVersion"])
	assert.Equal(t, "all", call.Query["sendUpdates"])

	ev := call.Event
	assert.Equal(t, "MindBridge Counseling Session - Aline Uwase", ev.Summary)
	assert.Contains(t, ev.Description, "Session Type: Individual Counseling")
	assert.Contains(t, ev.Description, "Additional Notes: Not provided")
	assert.Equal(t, "2025-06-01T10:00:00+02:00", ev.Start.DateTime)
	assert.Equal(t, "2025-06-01T11:00:00+02:00", ev.End.DateTime)
	assert.Equal(t, "Africa/Kigali", ev.Start.TimeZone)
	require.Len(t, ev.Attendees, 1)
	assert.Equal(t, "aline@alu.edu", ev.Attendees[0].Email)
	assert.Equal(t, "mindbridge-12", ev.ConferenceData.CreateRequest.RequestId)
	assert.Equal(t, "hangoutsMeet", ev.ConferenceData.CreateRequest.ConferenceSolutionKey.Type)
	require.Len(t, ev.Reminders.Overrides, 2)
	assert.Equal(t, int64(1440), ev.Reminders.Overrides[0].Minutes)
	assert.Equal(t, "popup", ev.Reminders.Overrides[1].Method)
}

func TestGoogle_CreateFallsBackToVideoEntryPoint(t *testing.T) {
	g, _, _ := newTestGoogle(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{
			"id": "evt-2",
			"conferenceData": map[string]interface{}{
				"entryPoints": []map[string]string{
					{"entryPointType": "phone", "uri": "tel:+1"},
					{"entryPointType": "video", "uri": "https://meet.example/xyz"},
				},
			},
		})
	})

	m, err := g.Create(context.Background(), sampleBooking())
	require.NoError(t, err)
	assert.Equal(t, "https://meet.example/xyz", m.JoinLink)
}

func TestAttempt_Outcomes(t *testing.T) {
	t.Run("provider error", func(t *testing.T) {
		g, _, _ := newTestGoogle(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":{"code":500,"message":"backend"}}`, http.StatusInternalServerError)
		})
		out := Attempt(context.Background(), g, sampleBooking())
		assert.Equal(t, OutcomeFailed, out.Kind)
		assert.Error(t, out.Err)
		assert.Nil(t, out.Meeting)
	})

	t.Run("network error", func(t *testing.T) {
		g, _, srv := newTestGoogle(t, func(w http.ResponseWriter, r *http.Request) {})
		srv.Close()
		out := Attempt(context.Background(), g, sampleBooking())
		assert.Equal(t, OutcomeFailed, out.Kind)
	})

	t.Run("empty link", func(t *testing.T) {
		g, _, _ := newTestGoogle(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, map[string]string{"id": "evt-3"})
		})
		out := Attempt(context.Background(), g, sampleBooking())
		assert.Equal(t, OutcomeFailed, out.Kind)
		assert.ErrorIs(t, out.Err, ErrNoLink)
	})

	t.Run("success", func(t *testing.T) {
		g, _, _ := newTestGoogle(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, map[string]string{"id": "evt-1", "hangoutLink": "https://meet.example/abc"})
		})
		out := Attempt(context.Background(), g, sampleBooking())
		assert.Equal(t, OutcomeProvisioned, out.Kind)
		assert.Equal(t, "evt-1", out.Meeting.EventID)
	})
}

func TestGoogle_UpdateAndDelete(t *testing.T) {
	g, fake, _ := newTestGoogle(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, map[string]string{"id": "evt-1"})
	})
	ctx := context.Background()

	b := sampleBooking()
	assert.ErrorIs(t, g.Update(ctx, b), ErrNotProvisioned)
	assert.ErrorIs(t, g.Delete(ctx, ""), ErrNotProvisioned)
	assert.Empty(t, fake.calls)

	id := "evt-1"
	b.CalendarEventID = &id
	b.Time = "15:30"
	require.NoError(t, g.Update(ctx, b))
	require.NoError(t, g.Delete(ctx, id))

	require.Len(t, fake.calls, 2)
	assert.Equal(t, http.MethodPatch, fake.calls[0].Method)
	assert.True(t, strings.HasSuffix(fake.calls[0].Path, "/events/evt-1"))
	assert.Equal(t, "2025-06-01T15:30:00+02:00", fake.calls[0].Event.Start.DateTime)
	assert.Equal(t, http.MethodDelete, fake.calls[1].Method)
	assert.Equal(t, "all", fake.calls[1].Query["sendUpdates"])
}

func TestGoogle_TimeoutCountsAsFailure(t *testing.T) {
	g, _, _ := newTestGoogle(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	})
	g.cfg.Timeout = 50 * time.Millisecond

	_, err := g.Create(context.Background(), sampleBooking())
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "deadline"), err.Error())
}

func TestNoop(t *testing.T) {
	out := Attempt(context.Background(), Noop{}, sampleBooking())
	assert.Equal(t, OutcomeFailed, out.Kind)
	assert.ErrorIs(t, out.Err, ErrDisabled)
	assert.ErrorIs(t, Noop{}.Delete(context.Background(), ""), ErrNotProvisioned)
}
