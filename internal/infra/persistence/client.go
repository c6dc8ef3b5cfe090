package persistence

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"tontine-app/internal/domain/carnets"

	json "github.com/goccy/go-json"
	"github.com/valyala/fasthttp"
)

const defaultTimeout = 10 * time.Second

// Client talks to the remote carnet REST service.
// It satisfies the same repository contract as the Postgres store.
type Client struct {
	baseURL string
	token   string
	timeout time.Duration
	http    *fasthttp.Client
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithDial replaces the TCP dialer, e.g. with an in-memory listener.
func WithDial(dial fasthttp.DialFunc) Option {
	return func(c *Client) { c.http.Dial = dial }
}

func NewClient(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		timeout: defaultTimeout,
		http: &fasthttp.Client{
			Name:                "tontine-app",
			MaxIdleConnDuration: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Get(ctx context.Context, id string) (carnets.Carnet, error) {
	var out carnets.Carnet
	err := c.do(ctx, "get carnet", fasthttp.MethodGet, "/carnets/"+url.PathEscape(id), nil, &out)
	return out, err
}

func (c *Client) ListByClient(ctx context.Context, clientID uint) ([]carnets.Carnet, error) {
	var out []carnets.Carnet
	path := "/carnets?client_id=" + strconv.FormatUint(uint64(clientID), 10)
	if err := c.do(ctx, "list carnets", fasthttp.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Create(ctx context.Context, carnet carnets.Carnet) (carnets.Carnet, error) {
	var out carnets.Carnet
	err := c.do(ctx, "create carnet", fasthttp.MethodPost, "/carnets", carnet, &out)
	return out, err
}

// markDayRequest is the mark-day action body; the remote service records the transaction itself.
type markDayRequest struct {
	carnets.MarkDayCommand
	ActorID   string    `json:"actor_id"`
	RequestID string    `json:"request_id"`
	At        time.Time `json:"at"`
}

// ApplyMark runs mutate on the current remote carnet and posts the command only
// when it changes something. The entry id travels as request_id so the remote
// service can drop a replay of the same mark.
func (c *Client) ApplyMark(ctx context.Context, id string, cmd carnets.MarkDayCommand, mutate carnets.Mutation) (carnets.Carnet, *carnets.Transaction, error) {
	current, err := c.Get(ctx, id)
	if err != nil {
		return carnets.Carnet{}, nil, err
	}
	_, entry, err := mutate(current)
	if err != nil {
		return carnets.Carnet{}, nil, err
	}
	if entry == nil {
		return current, nil, nil
	}

	body := markDayRequest{
		MarkDayCommand: cmd,
		ActorID:        entry.ActorID,
		RequestID:      entry.ID,
		At:             entry.CreatedAt,
	}
	var out carnets.Carnet
	if err := c.do(ctx, "mark day", fasthttp.MethodPost, "/carnets/"+url.PathEscape(id)+"/mark-day", body, &out); err != nil {
		return carnets.Carnet{}, nil, err
	}
	return out, entry, nil
}

func (c *Client) Transactions(ctx context.Context, carnetID string) ([]carnets.Transaction, error) {
	var out []carnets.Transaction
	if err := c.do(ctx, "list transactions", fasthttp.MethodGet, "/carnets/"+url.PathEscape(carnetID)+"/transactions", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, in, out interface{}) error {
	if err := ctx.Err(); err != nil {
		return &TransportError{Op: op, Err: err}
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.baseURL + path)
	req.Header.SetMethod(method)
	req.Header.Set(fasthttp.HeaderAccept, "application/json")
	if c.token != "" {
		req.Header.Set(fasthttp.HeaderAuthorization, "Bearer "+c.token)
	}
	if in != nil {
		body, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		req.Header.SetContentType("application/json")
		req.SetBodyRaw(body)
	}

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.http.DoDeadline(req, resp, deadline); err != nil {
		return &TransportError{Op: op, Err: err}
	}

	status := resp.StatusCode()
	if status < 200 || status > 299 {
		te := &TransportError{Op: op, StatusCode: status}
		var payload ErrorPayload
		if err := json.Unmarshal(resp.Body(), &payload); err == nil && payload.Error != "" {
			te.Payload = &payload
		}
		return te
	}

	if out == nil || len(resp.Body()) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return &TransportError{Op: op, StatusCode: status, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
