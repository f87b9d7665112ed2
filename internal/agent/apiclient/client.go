// Package apiclient talks to the canonical store service over HTTP.
package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"rescue-alert-service/internal/domain/models"

	"github.com/go-resty/resty/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/pkg/errors"
)

// ErrUnreachable wraps every transport-level failure: the backend could not be reached at all.
var ErrUnreachable = errors.New("canonical store unreachable")

// APIError is a response the backend did send, carrying its business error code.
type APIError struct {
	Status  int
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d (code %d): %s", e.Status, e.Code, e.Message)
}

// IsStatus reports whether err is an APIError with the given HTTP status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// envelope matches the server's unified {code,message,data} response.
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Config for New.
type Config struct {
	BaseURL     string
	AccessToken string
	Timeout     time.Duration
}

// Client is the device side of the canonical store, blob storage and notification boundaries.
type Client struct {
	HTTP   *resty.Client
	Config Config
}

// New returns a client. A zero timeout means 15s.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	r := resty.New()
	r.SetBaseURL(cfg.BaseURL)
	r.SetHeader("Accept", "application/json")
	r.SetTimeout(cfg.Timeout)
	if cfg.AccessToken != "" {
		r.SetAuthToken(cfg.AccessToken)
	}
	return &Client{HTTP: r, Config: cfg}
}

// do executes req and decodes the envelope's data into out (which may be nil).
func (c *Client) do(req *resty.Request, method, path string, out interface{}) error {
	resp, err := req.Execute(method, path)
	if err != nil {
		return errors.Wrapf(ErrUnreachable, "%s %s: %v", method, path, err)
	}

	var env envelope
	if len(resp.Body()) > 0 {
		if jsonErr := json.Unmarshal(resp.Body(), &env); jsonErr != nil && !resp.IsError() {
			return errors.Wrapf(jsonErr, "decode %s %s", method, path)
		}
	}

	if resp.IsError() {
		msg := env.Message
		if msg == "" {
			msg = resp.Status()
		}
		return &APIError{Status: resp.StatusCode(), Code: env.Code, Message: msg}
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}
	return errors.Wrapf(json.Unmarshal(env.Data, out), "decode %s %s data", method, path)
}

// Probe checks that the backend answers. Any failure, including a server error, is ErrUnreachable.
func (c *Client) Probe(ctx context.Context) error {
	err := c.do(c.HTTP.R().SetContext(ctx), resty.MethodGet, "/api/ping", nil)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status >= 500 {
		return errors.Wrap(ErrUnreachable, apiErr.Error())
	}
	return err
}

// Identity reads the actor from the configured access token without verifying it.
// Verification is the server's job; the device only needs the claims to branch on role.
func (c *Client) Identity() (models.Actor, error) {
	return ActorFromToken(c.Config.AccessToken)
}

// ActorFromToken extracts user id, name and role from a bearer token.
func ActorFromToken(token string) (models.Actor, error) {
	if token == "" {
		return models.Actor{}, errors.New("no access token configured")
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return models.Actor{}, errors.Wrap(err, "parse access token")
	}

	str := func(k string) string {
		v, _ := claims[k].(string)
		return v
	}
	role, err := models.ParseRole(str("role"))
	if err != nil {
		return models.Actor{}, err
	}
	userID := str("user_id")
	if userID == "" {
		userID = str("sub")
	}
	if userID == "" {
		return models.Actor{}, errors.New("access token has no user id")
	}
	return models.Actor{UserID: userID, Name: str("name"), Role: role}, nil
}
