package netclient

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestWithTimeout_Success(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != "podnotes-test" {
			t.Errorf("unexpected user agent: %s", got)
		}
		if got := r.Header.Get("Accept"); got != "application/json" {
			t.Errorf("unexpected accept header: %s", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"version":"1.2"}`))
	}))
	defer ts.Close()

	c := NewClient(ts.Client(), "podnotes-test")
	resp, err := c.RequestWithTimeout(context.Background(), ts.URL, RequestOptions{
		Headers: map[string]string{"Accept": "application/json"},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "application/json", resp.Headers.Get("Content-Type"))

	var payload struct {
		Version string `json:"version"`
	}
	require.NoError(t, resp.JSON(&payload))
	assert.Equal(t, "1.2", payload.Version)
	assert.Equal(t, `{"version":"1.2"}`, resp.Text())
}

func TestRequestWithTimeout_PostsBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		buf := new(bytes.Buffer)
		_, _ = buf.ReadFrom(r.Body)
		_, _ = w.Write([]byte("echo:" + buf.String()))
	}))
	defer ts.Close()

	c := NewClient(ts.Client(), "")
	resp, err := c.RequestWithTimeout(context.Background(), ts.URL, RequestOptions{
		Method: http.MethodPost,
		Body:   []byte("payload"),
	})
	require.NoError(t, err)
	assert.Equal(t, "echo:payload", resp.Text())
}

func TestRequestWithTimeout_HTTPErrorTruncatesBody(t *testing.T) {
	long := strings.Repeat("x", 250)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(long))
	}))
	defer ts.Close()

	c := NewClient(ts.Client(), "")
	_, err := c.Get(context.Background(), ts.URL)
	require.Error(t, err)

	var netErr *NetworkError
	require.True(t, errors.As(err, &netErr))
	assert.Equal(t, http.StatusNotFound, netErr.Status)
	assert.Len(t, netErr.Body, 100)
	assert.True(t, errors.Is(err, ErrTransport))
	assert.False(t, IsTimeout(err))
}

func TestRequestWithTimeout_Timeout(t *testing.T) {
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer ts.Close()
	defer close(release)

	c := NewClient(ts.Client(), "")
	start := time.Now()
	_, err := c.RequestWithTimeout(context.Background(), ts.URL, RequestOptions{Timeout: 50 * time.Millisecond})
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)

	var te *TimeoutError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, 50*time.Millisecond, te.Timeout)
	assert.Equal(t, ts.URL, te.URL)
	assert.True(t, IsTimeout(err))
	assert.True(t, errors.Is(err, ErrTransport))
}

type failingDoer struct{ err error }

func (f failingDoer) Do(*http.Request) (*http.Response, error) { return nil, f.err }

func TestRequestWithTimeout_TransportErrorPreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	c := NewClient(failingDoer{err: cause}, "")

	_, err := c.Get(context.Background(), "http://example.invalid/feed.xml")
	require.Error(t, err)

	var netErr *NetworkError
	require.True(t, errors.As(err, &netErr))
	assert.Zero(t, netErr.Status)
	assert.True(t, errors.Is(err, cause))
	assert.False(t, IsTimeout(err))
}

func TestRequestWithTimeout_InvalidURL(t *testing.T) {
	c := NewClient(nil, "")
	_, err := c.Get(context.Background(), "://bad")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTransport))
}
