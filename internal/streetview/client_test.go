package streetview

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streetview-randomizer/internal/geo"
	"streetview-randomizer/internal/oracle"
)

func newTestClient(t *testing.T, h http.HandlerFunc, mutate ...func(*Options)) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	opt := Options{Endpoint: srv.URL + "/maps/api/streetview", Key: "test-key", Timeout: time.Second}
	for _, m := range mutate {
		m(&opt)
	}
	c, err := New(opt)
	require.NoError(t, err)
	return c
}

func jsonReply(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}
}

func TestNewRequiresKey(t *testing.T) {
	_, err := New(Options{})
	assert.ErrorIs(t, err, oracle.ErrAuth)
}

func TestCheckSendsQuery(t *testing.T) {
	reqs := make(chan *url.URL, 1)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		reqs <- r.URL
		jsonReply(`{"status":"ZERO_RESULTS"}`)(w, r)
	})

	found, at, err := c.Check(context.Background(), geo.Coordinate{Lat: -12.5, Lon: 130.75}, 5000)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, geo.Coordinate{Lat: -12.5, Lon: 130.75}, at)

	got := <-reqs
	assert.Equal(t, "/maps/api/streetview/metadata", got.Path)
	assert.Equal(t, "-12.5,130.75", got.Query().Get("location"))
	assert.Equal(t, "5000", got.Query().Get("radius"))
	assert.Equal(t, "test-key", got.Query().Get("key"))
}

func TestCheckFoundSnapsCoordinate(t *testing.T) {
	c := newTestClient(t, jsonReply(`{
		"status": "OK",
		"pano_id": "abc",
		"date": "2021-06",
		"location": {"lat": 45.4642, "lng": 9.19}
	}`))

	found, at, err := c.Check(context.Background(), geo.Coordinate{Lat: 45.47, Lon: 9.2}, 1000)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, geo.Coordinate{Lat: 45.4642, Lon: 9.19}, at)
}

func TestCheckRejectsOutOfRangeLocation(t *testing.T) {
	c := newTestClient(t, jsonReply(`{"status":"OK","location":{"lat":123.4,"lng":9.19}}`))

	found, at, err := c.Check(context.Background(), geo.Coordinate{Lat: 45.47, Lon: 9.2}, 1000)
	assert.ErrorIs(t, err, oracle.ErrProtocol)
	assert.False(t, found)
	assert.Equal(t, geo.Coordinate{Lat: 45.47, Lon: 9.2}, at)
}

func TestCheckStatusMapping(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		found   bool
		wantErr error
	}{
		{"not found", `{"status":"NOT_FOUND"}`, false, nil},
		{"zero results", `{"status":"ZERO_RESULTS"}`, false, nil},
		{"denied", `{"status":"REQUEST_DENIED","error_message":"The provided API key is invalid."}`, false, oracle.ErrAuth},
		{"quota", `{"status":"OVER_QUERY_LIMIT"}`, false, oracle.ErrTransport},
		{"unknown error", `{"status":"UNKNOWN_ERROR"}`, false, oracle.ErrTransport},
		{"invalid request", `{"status":"INVALID_REQUEST"}`, false, oracle.ErrProtocol},
		{"missing status", `{}`, false, oracle.ErrProtocol},
		{"not json", `<html>oops</html>`, false, oracle.ErrProtocol},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, jsonReply(tc.body))
			found, _, err := c.Check(context.Background(), geo.Coordinate{Lat: 1, Lon: 2}, 50)
			assert.Equal(t, tc.found, found)
			if tc.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestCheckHTTPStatus(t *testing.T) {
	tests := []struct {
		code    int
		wantErr error
	}{
		{http.StatusForbidden, oracle.ErrAuth},
		{http.StatusUnauthorized, oracle.ErrAuth},
		{http.StatusTooManyRequests, oracle.ErrTransport},
		{http.StatusBadGateway, oracle.ErrTransport},
		{http.StatusNotFound, oracle.ErrProtocol},
	}
	for _, tc := range tests {
		t.Run(http.StatusText(tc.code), func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "nope", tc.code)
			})
			_, _, err := c.Check(context.Background(), geo.Coordinate{}, 50)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestCheckTimeoutIsTransportError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(500 * time.Millisecond):
		case <-r.Context().Done():
		}
		jsonReply(`{"status":"OK"}`)(w, r)
	}, func(o *Options) { o.Timeout = 50 * time.Millisecond })

	_, _, err := c.Check(context.Background(), geo.Coordinate{}, 50)
	assert.ErrorIs(t, err, oracle.ErrTransport)
}

func TestCheckRateLimited(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		jsonReply(`{"status":"ZERO_RESULTS"}`)(w, r)
	}, func(o *Options) { o.QPS = 20 })

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, _, err := c.Check(context.Background(), geo.Coordinate{}, 50)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(3), calls.Load())
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestImage(t *testing.T) {
	reqs := make(chan *url.URL, 1)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		reqs <- r.URL
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte{0xff, 0xd8, 0xff, 0xe0})
	})

	b, err := c.Image(context.Background(), geo.Coordinate{Lat: 35.6812, Lon: 139.7671},
		ImageOptions{Size: "640x640", Heading: 90, Pitch: -10, FOV: 75})
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0xd8, 0xff, 0xe0}, b)

	got := <-reqs
	q := got.Query()
	assert.Equal(t, "/maps/api/streetview", got.Path)
	assert.Equal(t, "35.6812,139.7671", q.Get("location"))
	assert.Equal(t, "640x640", q.Get("size"))
	assert.Equal(t, "90", q.Get("heading"))
	assert.Equal(t, "-10", q.Get("pitch"))
	assert.Equal(t, "75", q.Get("fov"))
}

func TestImageRejectsTextResponse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=UTF-8")
		_, _ = w.Write([]byte(strings.Repeat("The Google Maps Platform server rejected your request. ", 10)))
	})

	_, err := c.Image(context.Background(), geo.Coordinate{}, ImageOptions{Size: "640x640", FOV: 90})
	assert.ErrorIs(t, err, oracle.ErrProtocol)
	assert.Contains(t, err.Error(), "...")
}

func TestImageForbidden(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "denied", http.StatusForbidden)
	})
	_, err := c.Image(context.Background(), geo.Coordinate{}, ImageOptions{Size: "640x640", FOV: 90})
	assert.ErrorIs(t, err, oracle.ErrAuth)
}
