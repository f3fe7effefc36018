package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waabox/orderdeck/internal/domain"
	"github.com/waabox/orderdeck/internal/logging"
	"github.com/waabox/orderdeck/internal/session"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// waitUntil polls cond from a server handler, where t.FailNow is not allowed.
func waitUntil(cond func() bool) bool {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return false
}

func newSession(t *testing.T, access, refresh string) *session.Session {
	t.Helper()
	sess := session.New(session.NewMemoryStore())
	if access != "" || refresh != "" {
		require.NoError(t, sess.SaveTokens(session.Credentials{AccessToken: access, RefreshToken: refresh}))
	}
	return sess
}

func newTestTransport(t *testing.T, baseURL string, sess *session.Session, opts ...Option) *Transport {
	t.Helper()
	opts = append([]Option{WithLogger(logging.Discard())}, opts...)
	tr, err := NewTransport(baseURL, sess, opts...)
	require.NoError(t, err)
	return tr
}

func get(t *testing.T, tr http.RoundTripper, url string) (*http.Response, error) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	return tr.RoundTrip(req)
}

func TestTransport_AttachesBearerToken(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		writeJSON(w, http.StatusOK, []string{})
	}))
	defer srv.Close()

	tr := newTestTransport(t, srv.URL, newSession(t, "T1", "R1"))
	resp, err := get(t, tr, srv.URL+"/orders/")
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "Bearer T1", got)
}

func TestTransport_NoTokenSendsNoAuthorization(t *testing.T) {
	var refreshCalls atomic.Int32
	var sawHeader atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == pathTokenRefresh {
			refreshCalls.Add(1)
		}
		if _, ok := r.Header["Authorization"]; ok {
			sawHeader.Store(true)
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	tr := newTestTransport(t, srv.URL, newSession(t, "", ""))
	resp, err := get(t, tr, srv.URL+"/orders/")
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.False(t, sawHeader.Load())
	assert.Equal(t, int32(0), refreshCalls.Load())
}

func TestTransport_RefreshesAndReplaysWithNewToken(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	var refreshBody refreshRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case pathTokenRefresh:
			_ = json.NewDecoder(r.Body).Decode(&refreshBody)
			assert.Empty(t, r.Header.Get("Authorization"), "refresh call carries no bearer")
			writeJSON(w, http.StatusOK, tokenPair{Access: "T2", Refresh: "R2"})
		case "/orders/":
			mu.Lock()
			seen = append(seen, r.Header.Get("Authorization"))
			mu.Unlock()
			if r.Header.Get("Authorization") != "Bearer T2" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			writeJSON(w, http.StatusOK, []map[string]string{{"lookup_code_order": "SO-1"}})
		}
	}))
	defer srv.Close()

	sess := newSession(t, "T1", "R1")
	tr := newTestTransport(t, srv.URL, sess)

	resp, err := get(t, tr, srv.URL+"/orders/")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[{"lookup_code_order": "SO-1"}]`, string(body))
	assert.Equal(t, []string{"Bearer T1", "Bearer T2"}, seen)
	assert.Equal(t, "R1", refreshBody.Refresh)

	creds, ok := sess.Tokens()
	require.True(t, ok)
	assert.Equal(t, "T2", creds.AccessToken)
	assert.Equal(t, "R2", creds.RefreshToken)
}

func TestTransport_KeepsRefreshTokenWhenNotRotated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == pathTokenRefresh:
			writeJSON(w, http.StatusOK, map[string]string{"access": "T2"})
		case r.Header.Get("Authorization") == "Bearer T2":
			writeJSON(w, http.StatusOK, []string{})
		default:
			w.WriteHeader(http.StatusUnauthorized)
		}
	}))
	defer srv.Close()

	sess := newSession(t, "T1", "R1")
	resp, err := get(t, newTestTransport(t, srv.URL, sess), srv.URL+"/orders/")
	require.NoError(t, err)
	resp.Body.Close()

	creds, ok := sess.Tokens()
	require.True(t, ok)
	assert.Equal(t, "T2", creds.AccessToken)
	assert.Equal(t, "R1", creds.RefreshToken)
}

func TestTransport_ReplaysRequestBody(t *testing.T) {
	var bodies []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == pathTokenRefresh {
			writeJSON(w, http.StatusOK, tokenPair{Access: "T2", Refresh: "R2"})
			return
		}
		b, _ := io.ReadAll(r.Body)
		bodies = append(bodies, string(b))
		if r.Header.Get("Authorization") != "Bearer T2" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	tr := newTestTransport(t, srv.URL, newSession(t, "T1", "R1"))
	// A reader without GetBody must still be replayable.
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/orders/", io.NopCloser(strings.NewReader(`{"lookup_code_order":"SO-9"}`)))
	require.NoError(t, err)
	require.Nil(t, req.GetBody)

	resp, err := tr.RoundTrip(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, []string{`{"lookup_code_order":"SO-9"}`, `{"lookup_code_order":"SO-9"}`}, bodies)
}

func TestTransport_DoesNotRetryTwice(t *testing.T) {
	var refreshCalls, orderCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == pathTokenRefresh {
			refreshCalls.Add(1)
			writeJSON(w, http.StatusOK, tokenPair{Access: "T2", Refresh: "R2"})
			return
		}
		orderCalls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	tr := newTestTransport(t, srv.URL, newSession(t, "T1", "R1"))
	resp, err := get(t, tr, srv.URL+"/orders/")
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, int32(1), refreshCalls.Load())
	assert.Equal(t, int32(2), orderCalls.Load(), "original plus one replay")
}

func TestTransport_RefreshEndpointIsExempt(t *testing.T) {
	var refreshCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == pathTokenRefresh {
			refreshCalls.Add(1)
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	sess := newSession(t, "T1", "R1")
	tr := newTestTransport(t, srv.URL, sess)
	req, err := http.NewRequest(http.MethodPost, srv.URL+pathTokenRefresh, strings.NewReader(`{"refresh":"R1"}`))
	require.NoError(t, err)

	resp, err := tr.RoundTrip(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, int32(1), refreshCalls.Load(), "only the caller's own request reached the endpoint")
	assert.True(t, sess.IsAuthenticated(), "an exempt 401 does not end the session")
}

func TestTransport_LoginEndpointIsExempt(t *testing.T) {
	var refreshCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == pathTokenRefresh {
			refreshCalls.Add(1)
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	tr := newTestTransport(t, srv.URL, newSession(t, "T1", "R1"))
	req, err := http.NewRequest(http.MethodPost, srv.URL+pathToken, strings.NewReader(`{}`))
	require.NoError(t, err)
	resp, err := tr.RoundTrip(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, int32(0), refreshCalls.Load())
}

func TestTransport_NoRefreshTokenPropagates401(t *testing.T) {
	var refreshCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == pathTokenRefresh {
			refreshCalls.Add(1)
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	store := session.NewMemoryStore()
	require.NoError(t, store.Set(session.KeyToken, "T1"))
	tr := newTestTransport(t, srv.URL, session.New(store))

	resp, err := get(t, tr, srv.URL+"/orders/")
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, int32(0), refreshCalls.Load())
}

func TestTransport_ConcurrentUnauthorizedRequestsShareOneRefresh(t *testing.T) {
	const n = 5
	var refreshCalls atomic.Int32
	var tr *Transport
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case pathTokenRefresh:
			refreshCalls.Add(1)
			waitUntil(func() bool { return tr.coord.waiting() == n-1 })
			writeJSON(w, http.StatusOK, tokenPair{Access: "T2", Refresh: "R2"})
		default:
			auth := r.Header.Get("Authorization")
			if auth != "Bearer T2" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			writeJSON(w, http.StatusOK, map[string]string{"auth": auth})
		}
	}))
	defer srv.Close()

	sess := newSession(t, "T1", "R1")
	tr = newTestTransport(t, srv.URL, sess)

	var wg sync.WaitGroup
	results := make([]string, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req, _ := http.NewRequest(http.MethodGet, srv.URL+"/orders/", nil)
			resp, err := tr.RoundTrip(req)
			if err != nil {
				errs[i] = err
				return
			}
			defer resp.Body.Close()
			var out map[string]string
			errs[i] = json.NewDecoder(resp.Body).Decode(&out)
			results[i] = out["auth"]
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), refreshCalls.Load())
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "Bearer T2", results[i])
	}
	assert.False(t, tr.coord.refreshing())
}

func TestTransport_FailedRefreshRejectsAllAndNotifiesOnce(t *testing.T) {
	var refreshCalls, notices atomic.Int32
	var tr *Transport
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == pathTokenRefresh {
			refreshCalls.Add(1)
			waitUntil(func() bool { return tr.coord.waiting() == 1 })
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Token is invalid or expired"})
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	sess := newSession(t, "T1", "R1")
	tr = newTestTransport(t, srv.URL, sess, WithNotifier(NotifierFunc(func() { notices.Add(1) })))

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req, _ := http.NewRequest(http.MethodGet, srv.URL+"/orders/", nil)
			resp, err := tr.RoundTrip(req)
			if resp != nil {
				resp.Body.Close()
			}
			errs[i] = err
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), refreshCalls.Load())
	var first, second *SessionExpiredError
	require.True(t, errors.As(errs[0], &first))
	require.True(t, errors.As(errs[1], &second))
	assert.Same(t, first, second, "every waiter observes the same refresh error")
	assert.ErrorIs(t, errs[0], domain.ErrSessionExpired)
	var status *StatusError
	require.True(t, errors.As(first.Cause, &status))
	assert.Equal(t, http.StatusUnauthorized, status.StatusCode)

	assert.False(t, sess.IsAuthenticated())
	assert.Equal(t, int32(1), notices.Load())
	assert.False(t, tr.coord.refreshing())
}

func TestTransport_NotificationSuppressedUntilReset(t *testing.T) {
	var notices atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	sess := newSession(t, "T1", "R1")
	tr := newTestTransport(t, srv.URL, sess, WithNotifier(NotifierFunc(func() { notices.Add(1) })))

	_, err := get(t, tr, srv.URL+"/orders/")
	require.Error(t, err)

	require.NoError(t, sess.SaveTokens(session.Credentials{AccessToken: "T3", RefreshToken: "R3"}))
	_, err = get(t, tr, srv.URL+"/orders/")
	require.Error(t, err)
	assert.Equal(t, int32(1), notices.Load(), "second expiry is not shown again")

	tr.ResetExpiredNotice()
	require.NoError(t, sess.SaveTokens(session.Credentials{AccessToken: "T4", RefreshToken: "R4"}))
	_, err = get(t, tr, srv.URL+"/orders/")
	require.Error(t, err)
	assert.Equal(t, int32(2), notices.Load())
}

func TestTransport_RefreshNetworkErrorIsTerminal(t *testing.T) {
	var refreshCalls atomic.Int32
	base := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		if r.URL.Path == pathTokenRefresh {
			refreshCalls.Add(1)
			return nil, errors.New("connection refused")
		}
		return &http.Response{StatusCode: http.StatusUnauthorized, Body: http.NoBody, Request: r}, nil
	})
	sess := newSession(t, "T1", "R1")
	tr := newTestTransport(t, "http://backend.test", sess, WithHTTPTransport(base))

	_, err := get(t, tr, "http://backend.test/orders/")

	var expired *SessionExpiredError
	require.True(t, errors.As(err, &expired))
	assert.Contains(t, expired.Error(), "connection refused")
	assert.Equal(t, int32(1), refreshCalls.Load(), "refresh is not retried")
	assert.False(t, sess.IsAuthenticated())
}

func TestTransport_TokenRenewedMeanwhileReplaysWithoutRefresh(t *testing.T) {
	var refreshCalls atomic.Int32
	sess := newSession(t, "T1", "R1")
	base := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		if r.URL.Path == pathTokenRefresh {
			refreshCalls.Add(1)
		}
		if r.Header.Get("Authorization") == "Bearer T1" {
			// another request renewed the session while this one was in flight
			_ = sess.SaveTokens(session.Credentials{AccessToken: "T2", RefreshToken: "R2"})
			return &http.Response{StatusCode: http.StatusUnauthorized, Body: http.NoBody, Request: r}, nil
		}
		return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader(r.Header.Get("Authorization"))), Request: r}, nil
	})
	tr := newTestTransport(t, "http://backend.test", sess, WithHTTPTransport(base))

	resp, err := get(t, tr, "http://backend.test/orders/")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	assert.Equal(t, "Bearer T2", string(body))
	assert.Equal(t, int32(0), refreshCalls.Load())
}

func TestTransport_PanicDuringRefreshReleasesWaiters(t *testing.T) {
	var tr *Transport
	base := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		if r.URL.Path == pathTokenRefresh {
			waitUntil(func() bool { return tr.coord.waiting() == 1 })
			panic("boom")
		}
		return &http.Response{StatusCode: http.StatusUnauthorized, Body: http.NoBody, Request: r}, nil
	})
	tr = newTestTransport(t, "http://backend.test", newSession(t, "T1", "R1"), WithHTTPTransport(base))

	leaderDone := make(chan interface{})
	go func() {
		defer func() { leaderDone <- recover() }()
		_, _ = tr.awaitRefresh(context.Background(), "T1")
	}()
	require.Eventually(t, tr.coord.refreshing, time.Second, time.Millisecond)

	_, err := tr.awaitRefresh(context.Background(), "T1")
	assert.ErrorIs(t, err, errRefreshAborted)
	assert.Equal(t, "boom", <-leaderDone)
	assert.False(t, tr.coord.refreshing())
}

func TestTransport_LateLeaderReusesSettledToken(t *testing.T) {
	var refreshCalls atomic.Int32
	base := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		refreshCalls.Add(1)
		return nil, errors.New("unexpected refresh")
	})
	sess := newSession(t, "T2", "R2")
	tr := newTestTransport(t, "http://backend.test", sess, WithHTTPTransport(base))

	token, err := tr.awaitRefresh(context.Background(), "T1")
	require.NoError(t, err)
	assert.Equal(t, "T2", token)
	assert.Equal(t, int32(0), refreshCalls.Load())
	assert.False(t, tr.coord.refreshing())
}
