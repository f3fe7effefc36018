package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/waabox/orderdeck/internal/domain"
	"github.com/waabox/orderdeck/internal/session"
)

const (
	pathToken        = "/token/"
	pathTokenRefresh = "/token/refresh/"
)

// Transport attaches the stored access token to every request and recovers
// from an expired one by renewing the session once, whatever the number of
// requests that failed with 401 at the same time.
type Transport struct {
	base        http.RoundTripper
	session     *session.Session
	refreshURL  string
	loginPath   string
	refreshPath string
	timeout     time.Duration
	userAgent   string
	notifier    Notifier
	log         *log.Logger

	coord    refreshCoordinator
	notified atomic.Bool
}

// Ensure Transport implements http.RoundTripper.
var _ http.RoundTripper = (*Transport)(nil)

// NewTransport creates a Transport for the backend rooted at baseURL.
func NewTransport(baseURL string, sess *session.Session, opts ...Option) (*Transport, error) {
	return newTransport(baseURL, sess, newOptions(opts))
}

func newTransport(baseURL string, sess *session.Session, o options) (*Transport, error) {
	refreshURL, err := url.JoinPath(baseURL, pathTokenRefresh)
	if err != nil {
		return nil, fmt.Errorf("building refresh URL: %w", err)
	}
	loginURL, err := url.JoinPath(baseURL, pathToken)
	if err != nil {
		return nil, fmt.Errorf("building login URL: %w", err)
	}
	refreshPath, _ := url.Parse(refreshURL)
	loginPath, _ := url.Parse(loginURL)
	return &Transport{
		base:        o.base,
		session:     sess,
		refreshURL:  refreshURL,
		loginPath:   loginPath.Path,
		refreshPath: refreshPath.Path,
		timeout:     o.timeout,
		userAgent:   o.userAgent,
		notifier:    o.notifier,
		log:         o.logger,
	}, nil
}

// ResetExpiredNotice re-arms the session-expired notification after a new
// session has been established.
func (t *Transport) ResetExpiredNotice() {
	t.notified.Store(false)
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	out, err := replayable(req)
	if err != nil {
		return nil, err
	}
	sentToken := t.session.AccessToken()
	if sentToken != "" {
		out.Header.Set("Authorization", "Bearer "+sentToken)
	}

	resp, err := t.base.RoundTrip(out)
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}
	if t.isAuthEndpoint(req.URL) {
		return resp, nil
	}
	creds, ok := t.session.Tokens()
	if !ok {
		return resp, nil
	}
	discard(resp)

	token := creds.AccessToken
	if token == sentToken {
		token, err = t.awaitRefresh(req.Context(), sentToken)
		if err != nil {
			return nil, err
		}
	} else {
		// The session was renewed while this request was in flight.
		t.log.Debug("access token changed during request, replaying without refresh")
	}

	// The replay goes straight to base: a second 401 is returned as-is.
	retry, err := rewind(out)
	if err != nil {
		return nil, err
	}
	retry.Header.Set("Authorization", "Bearer "+token)
	return t.base.RoundTrip(retry)
}

func (t *Transport) isAuthEndpoint(u *url.URL) bool {
	return u.Path == t.refreshPath || u.Path == t.loginPath
}

// awaitRefresh either leads the refresh or waits for the one in flight.
// rejected is the access token the backend refused.
func (t *Transport) awaitRefresh(ctx context.Context, rejected string) (string, error) {
	leader, waiter := t.coord.acquireOrWait()
	if !leader {
		t.log.Debug("token refresh in flight, request queued")
		return waiter.wait(ctx)
	}
	return t.leadRefresh(ctx, rejected)
}

func (t *Transport) leadRefresh(ctx context.Context, rejected string) (string, error) {
	settled := false
	defer func() {
		if !settled {
			t.coord.settle("", errRefreshAborted)
		}
	}()

	// A refresh that settled between our 401 and acquiring leadership has
	// already replaced or cleared the session.
	stored, ok := t.session.Tokens()
	if !ok {
		err := &SessionExpiredError{Cause: domain.ErrNotAuthenticated}
		t.coord.settle("", err)
		settled = true
		return "", err
	}
	if stored.AccessToken != rejected {
		t.coord.settle(stored.AccessToken, nil)
		settled = true
		return stored.AccessToken, nil
	}

	t.log.Debug("access token rejected, refreshing session")
	creds, err := t.refresh(ctx, stored.RefreshToken)
	if err != nil {
		expired := &SessionExpiredError{Cause: err}
		if clearErr := t.session.Clear(); clearErr != nil {
			t.log.Warnf("session expired but could not be cleared: %v", clearErr)
		}
		n := t.coord.settle("", expired)
		settled = true
		t.log.Warnf("token refresh failed, %d queued request(s) rejected: %v", n, err)
		t.notifyExpired()
		return "", expired
	}

	if saveErr := t.session.SaveTokens(creds); saveErr != nil {
		// Still usable for this process, only persistence failed.
		t.log.Warnf("token refreshed but could not be saved: %v", saveErr)
	}
	n := t.coord.settle(creds.AccessToken, nil)
	settled = true
	t.ResetExpiredNotice()
	t.log.Infof("token refreshed, %d queued request(s) released", n)
	return creds.AccessToken, nil
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type tokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// refresh exchanges the refresh token for a new pair. It is attempted once.
// The call is detached from the caller's cancellation since every queued
// request shares its outcome.
func (t *Transport) refresh(ctx context.Context, refreshToken string) (session.Credentials, error) {
	ctx = context.WithoutCancel(ctx)
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	body, err := json.Marshal(refreshRequest{Refresh: refreshToken})
	if err != nil {
		return session.Credentials{}, fmt.Errorf("encoding refresh request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.refreshURL, bytes.NewReader(body))
	if err != nil {
		return session.Credentials{}, fmt.Errorf("creating refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", t.userAgent)

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return session.Credentials{}, fmt.Errorf("refreshing token: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return session.Credentials{}, fmt.Errorf("reading refresh response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return session.Credentials{}, newStatusError(resp.StatusCode, resp.Status, data)
	}
	var pair tokenPair
	if err := json.Unmarshal(data, &pair); err != nil {
		return session.Credentials{}, fmt.Errorf("decoding refresh response: %w", err)
	}
	if pair.Access == "" {
		return session.Credentials{}, fmt.Errorf("refresh response carried no access token")
	}
	// preserve refresh token if the backend does not rotate it
	if pair.Refresh == "" {
		pair.Refresh = refreshToken
	}
	return session.Credentials{AccessToken: pair.Access, RefreshToken: pair.Refresh}, nil
}

func (t *Transport) notifyExpired() {
	if t.notifier == nil || !t.notified.CompareAndSwap(false, true) {
		return
	}
	t.notifier.SessionExpired()
}

// replayable clones req and makes sure its body can be sent a second time.
func replayable(req *http.Request) (*http.Request, error) {
	out := req.Clone(req.Context())
	if req.Body == nil || req.Body == http.NoBody || req.GetBody != nil {
		return out, nil
	}
	b, err := io.ReadAll(req.Body)
	req.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("buffering request body: %w", err)
	}
	out.Body = io.NopCloser(bytes.NewReader(b))
	out.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(b)), nil
	}
	return out, nil
}

func rewind(req *http.Request) (*http.Request, error) {
	retry := req.Clone(req.Context())
	if req.GetBody == nil {
		return retry, nil
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, fmt.Errorf("rewinding request body: %w", err)
	}
	retry.Body = body
	return retry, nil
}

func discard(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
	resp.Body.Close()
}
