package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/waabox/orderdeck/internal/domain"
	"github.com/waabox/orderdeck/internal/session"
)

// RequestIDHeader carries a per-request correlation id.
const RequestIDHeader = "X-Request-ID"

const (
	pathMe              = "/users/me/"
	pathOrders          = "/orders/"
	pathCarriers        = "/carriers/"
	pathCarrierServices = "/carrier-services/"
	pathWarehouses      = "/warehouses/"
	pathProjects        = "/projects/"
	pathMaterials       = "/inventory/list/"
	pathContacts        = "/contacts/list/"
)

// maxPages bounds how many "next" links a single list call follows.
const maxPages = 50

// Client talks to the order-management backend on behalf of the stored session.
type Client struct {
	web       *resty.Client
	session   *session.Session
	transport *Transport
	log       *log.Logger
}

// Ensure Client implements domain.OrderBackend.
var _ domain.OrderBackend = (*Client)(nil)

// NewClient creates a Client for the backend rooted at baseURL.
func NewClient(baseURL string, sess *session.Session, opts ...Option) (*Client, error) {
	o := newOptions(opts)
	transport, err := newTransport(baseURL, sess, o)
	if err != nil {
		return nil, err
	}

	web := resty.NewWithClient(&http.Client{Transport: transport, Timeout: o.timeout})
	web.SetBaseURL(strings.TrimRight(baseURL, "/"))
	web.SetHeader("Accept", "application/json")
	web.SetHeader("User-Agent", o.userAgent)
	web.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		req.SetHeader(RequestIDHeader, uuid.NewString())
		return nil
	})
	web.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
		o.logger.WithFields(log.Fields{
			"method":     resp.Request.Method,
			"url":        resp.Request.URL,
			"status":     resp.StatusCode(),
			"duration":   resp.Time(),
			"request_id": resp.Request.Header.Get(RequestIDHeader),
		}).Debug("orders API response")
		return nil
	})

	return &Client{web: web, session: sess, transport: transport, log: o.logger}, nil
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Access  string       `json:"access"`
	Refresh string       `json:"refresh"`
	User    *domain.User `json:"user"`
}

// Login obtains a token pair and stores it together with the user. The user
// comes from the response when the backend embeds it, otherwise from the
// access token claims, otherwise it is just the email.
func (c *Client) Login(ctx context.Context, email, password string) (domain.User, error) {
	var out loginResponse
	if err := c.do(ctx, http.MethodPost, pathToken, loginRequest{Email: email, Password: password}, &out); err != nil {
		return domain.User{}, fmt.Errorf("logging in: %w", err)
	}
	if out.Access == "" || out.Refresh == "" {
		return domain.User{}, fmt.Errorf("logging in: token response is missing access or refresh token")
	}

	user := domain.User{Email: email}
	if out.User != nil {
		user = *out.User
	} else if claimed, err := userFromToken(out.Access); err == nil {
		claimed.Email = email
		user = claimed
	} else {
		c.log.Debugf("could not read access token claims: %v", err)
	}
	if user.Email == "" {
		user.Email = email
	}

	if err := c.session.SaveTokens(session.Credentials{AccessToken: out.Access, RefreshToken: out.Refresh}); err != nil {
		return domain.User{}, err
	}
	if err := c.session.SaveUser(user); err != nil {
		return domain.User{}, err
	}
	c.transport.ResetExpiredNotice()
	c.log.Infof("logged in as %s", user.Email)
	return user, nil
}

// Logout clears every session key.
func (c *Client) Logout() error {
	return c.session.Clear()
}

// IsAuthenticated reports whether both tokens are stored.
func (c *Client) IsAuthenticated() bool {
	return c.session.IsAuthenticated()
}

// StoredUser returns the user saved at login.
func (c *Client) StoredUser() domain.User {
	return c.session.User()
}

// Me fetches the authenticated user's profile.
func (c *Client) Me(ctx context.Context) (domain.User, error) {
	var u domain.User
	if err := c.do(ctx, http.MethodGet, pathMe, nil, &u); err != nil {
		return domain.User{}, fmt.Errorf("fetching user profile: %w", err)
	}
	return u, nil
}

// ListOrders returns the orders visible to the user.
func (c *Client) ListOrders(ctx context.Context) ([]domain.Order, error) {
	return fetchList[domain.Order](ctx, c, pathOrders)
}

// CreateOrder submits order. A 400 response is returned as *domain.ValidationError.
func (c *Client) CreateOrder(ctx context.Context, order domain.Order) (domain.Order, error) {
	var created domain.Order
	if err := c.do(ctx, http.MethodPost, pathOrders, order, &created); err != nil {
		return domain.Order{}, fmt.Errorf("creating order: %w", err)
	}
	return created, nil
}

func (c *Client) ListCarriers(ctx context.Context) ([]domain.Carrier, error) {
	return fetchList[domain.Carrier](ctx, c, pathCarriers)
}

func (c *Client) ListCarrierServices(ctx context.Context) ([]domain.CarrierService, error) {
	return fetchList[domain.CarrierService](ctx, c, pathCarrierServices)
}

func (c *Client) ListWarehouses(ctx context.Context) ([]domain.Warehouse, error) {
	return fetchList[domain.Warehouse](ctx, c, pathWarehouses)
}

func (c *Client) ListProjects(ctx context.Context) ([]domain.Project, error) {
	return fetchList[domain.Project](ctx, c, pathProjects)
}

// ListMaterials returns the inventory records orders can draw from.
func (c *Client) ListMaterials(ctx context.Context) ([]domain.InventoryItem, error) {
	return fetchList[domain.InventoryItem](ctx, c, pathMaterials)
}

func (c *Client) ListContacts(ctx context.Context) ([]domain.Contact, error) {
	return fetchList[domain.Contact](ctx, c, pathContacts)
}

// LoadReferenceData fetches every lookup list concurrently. The first error
// cancels the rest.
func (c *Client) LoadReferenceData(ctx context.Context) (domain.ReferenceData, error) {
	var ref domain.ReferenceData
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { ref.Carriers, err = c.ListCarriers(ctx); return })
	g.Go(func() (err error) { ref.CarrierServices, err = c.ListCarrierServices(ctx); return })
	g.Go(func() (err error) { ref.Warehouses, err = c.ListWarehouses(ctx); return })
	g.Go(func() (err error) { ref.Projects, err = c.ListProjects(ctx); return })
	g.Go(func() (err error) { ref.Materials, err = c.ListMaterials(ctx); return })
	g.Go(func() (err error) { ref.Contacts, err = c.ListContacts(ctx); return })
	if err := g.Wait(); err != nil {
		return domain.ReferenceData{}, err
	}
	return ref, nil
}

// fetchList follows "next" links until the collection is exhausted.
func fetchList[T any](ctx context.Context, c *Client, path string) ([]T, error) {
	items := []T{}
	next := path
	for page := 0; next != ""; page++ {
		if page == maxPages {
			return nil, fmt.Errorf("listing %s: more than %d pages", path, maxPages)
		}
		var raw json.RawMessage
		if err := c.do(ctx, http.MethodGet, next, nil, &raw); err != nil {
			return nil, fmt.Errorf("listing %s: %w", path, err)
		}
		list, err := decodeList[T](raw)
		if err != nil {
			return nil, fmt.Errorf("listing %s: %w", path, err)
		}
		items = append(items, list.Items...)
		next = list.Next
	}
	return items, nil
}

// do sends one request and decodes a 2xx body into target.
func (c *Client) do(ctx context.Context, method, path string, body, target interface{}) error {
	req := c.web.R().SetContext(ctx)
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}
	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	if code := resp.StatusCode(); code < 200 || code > 299 {
		return statusError(resp)
	}
	if target == nil || len(resp.Body()) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), target); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func statusError(resp *resty.Response) error {
	if resp.StatusCode() == http.StatusBadRequest {
		if verr := parseValidationError(resp.Body()); verr != nil {
			return verr
		}
	}
	return newStatusError(resp.StatusCode(), resp.Status(), resp.Body())
}
