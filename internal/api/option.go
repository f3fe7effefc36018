package api

import (
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
)

const defaultTimeout = 15 * time.Second

// Notifier is told once when the session could not be renewed. It may block
// until the user acknowledges.
type Notifier interface {
	SessionExpired()
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func()

func (f NotifierFunc) SessionExpired() { f() }

type options struct {
	base      http.RoundTripper
	notifier  Notifier
	logger    *log.Logger
	timeout   time.Duration
	userAgent string
}

// Option configures a Client or Transport.
type Option func(*options)

// WithHTTPTransport sets the transport requests are finally sent through.
func WithHTTPTransport(rt http.RoundTripper) Option {
	return func(o *options) {
		o.base = rt
	}
}

// WithNotifier sets who is told when the session expires.
func WithNotifier(n Notifier) Option {
	return func(o *options) {
		o.notifier = n
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithTimeout bounds each request, including any token refresh and replay
// made on its behalf.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(o *options) {
		o.userAgent = ua
	}
}

func newOptions(opts []Option) options {
	o := options{
		base:      http.DefaultTransport,
		logger:    log.StandardLogger(),
		timeout:   defaultTimeout,
		userAgent: "orderdeck",
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
