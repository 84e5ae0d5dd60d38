// Package api is a thin typed client for the salon HTTP API. Authenticated
// calls obtain their bearer token from the session manager, so silent refresh
// happens transparently before each request.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"lumiere/salon/internal/client/session"
)

// ErrUnauthorized is returned when the server rejects a request even though
// the session manager supplied a token. The session is cleared before this is
// returned.
var ErrUnauthorized = errors.New("unauthorized")

type Gateway struct {
	baseURL string
	client  *http.Client
	session *session.Manager
}

func NewGateway(baseURL string, sess *session.Manager, client *http.Client) *Gateway {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Gateway{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  client,
		session: sess,
	}
}

type Category struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	ImageURL string `json:"imageUrl"`
}

type Service struct {
	ID          string  `json:"id"`
	CategoryID  string  `json:"categoryId"`
	Name        string  `json:"name"`
	Slug        string  `json:"slug"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	DurationMin int     `json:"durationMin"`
	ImageURL    string  `json:"imageUrl"`
}

type Address struct {
	Street   string `json:"street,omitempty"`
	Suburb   string `json:"suburb,omitempty"`
	Postcode string `json:"postcode,omitempty"`
	State    string `json:"state,omitempty"`
	Country  string `json:"country,omitempty"`
}

type Profile struct {
	Email     string  `json:"email"`
	FirstName string  `json:"firstName"`
	LastName  string  `json:"lastName"`
	DOB       string  `json:"dob,omitempty"`
	Gender    string  `json:"gender,omitempty"`
	Phone     string  `json:"phone,omitempty"`
	Address   Address `json:"address"`
	IsAdmin   bool    `json:"isAdmin"`
}

// ProfileUpdate is the flat save form; DOB is "2006-01-02".
type ProfileUpdate struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	DOB       string `json:"dob,omitempty"`
	Gender    string `json:"gender,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Street    string `json:"street,omitempty"`
	Suburb    string `json:"suburb,omitempty"`
	Postcode  string `json:"postcode,omitempty"`
	State     string `json:"state,omitempty"`
	Country   string `json:"country,omitempty"`
}

type CartEntry struct {
	ServiceID   string  `json:"serviceId"`
	ServiceName string  `json:"serviceName"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
	ImageURL    string  `json:"imageUrl"`
}

// Categories and Services hit public endpoints; no token is attached.
func (g *Gateway) Categories(ctx context.Context) ([]Category, error) {
	var out []Category
	if err := g.doJSON(ctx, http.MethodGet, "/categories", nil, &out, false); err != nil {
		return nil, err
	}
	return out, nil
}

func (g *Gateway) Services(ctx context.Context) ([]Service, error) {
	var out []Service
	if err := g.doJSON(ctx, http.MethodGet, "/services", nil, &out, false); err != nil {
		return nil, err
	}
	return out, nil
}

func (g *Gateway) Profile(ctx context.Context) (Profile, error) {
	var out Profile
	if err := g.doJSON(ctx, http.MethodGet, "/user/profile", nil, &out, true); err != nil {
		return Profile{}, err
	}
	return out, nil
}

// UpdateProfile saves the profile and patches the session's display name so
// subscribers see the change immediately.
func (g *Gateway) UpdateProfile(ctx context.Context, update ProfileUpdate) (Profile, error) {
	var out Profile
	if err := g.doJSON(ctx, http.MethodPut, "/user/profile", update, &out, true); err != nil {
		return Profile{}, err
	}
	g.session.SetUserFromProfileEdit(out.FirstName, out.LastName)
	return out, nil
}

func (g *Gateway) ChangePassword(ctx context.Context, current string, next string) error {
	payload := map[string]string{"currentPassword": current, "newPassword": next}
	return g.doJSON(ctx, http.MethodPut, "/user/password", payload, nil, true)
}

func (g *Gateway) Cart(ctx context.Context) ([]CartEntry, error) {
	var out []CartEntry
	if err := g.doJSON(ctx, http.MethodGet, "/cart", nil, &out, true); err != nil {
		return nil, err
	}
	return out, nil
}

func (g *Gateway) AddToCart(ctx context.Context, serviceID string, quantity int) error {
	payload := map[string]any{"serviceId": serviceID, "quantity": quantity}
	return g.doJSON(ctx, http.MethodPost, "/cart", payload, nil, true)
}

func (g *Gateway) UpdateCartItem(ctx context.Context, serviceID string, quantity int) error {
	payload := map[string]int{"quantity": quantity}
	return g.doJSON(ctx, http.MethodPut, "/cart/"+serviceID, payload, nil, true)
}

func (g *Gateway) RemoveCartItem(ctx context.Context, serviceID string) error {
	return g.doJSON(ctx, http.MethodDelete, "/cart/"+serviceID, nil, nil, true)
}

func (g *Gateway) doJSON(ctx context.Context, method string, path string, payload any, out any, authed bool) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if authed {
		token, err := g.session.ValidAccessToken(ctx)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized && authed {
		// The token passed local checks but the server rejected it, so the
		// local session is stale. Drop it rather than retry in a loop.
		g.session.Logout()
		return ErrUnauthorized
	}
	if resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Error == "" {
			apiErr.Error = resp.Status
		}
		return fmt.Errorf("%s %s: %s", method, path, apiErr.Error)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
