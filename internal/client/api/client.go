// Package api is a typed client for the authkeeper HTTP API.
package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/netx"
)

type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type Account struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Gender    string    `json:"gender"`
	Company   *string   `json:"company,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type RegisterRequest struct {
	Email     string  `json:"email"`
	Password  string  `json:"password"`
	FirstName string  `json:"firstName"`
	LastName  string  `json:"lastName"`
	Gender    string  `json:"gender"`
	Company   *string `json:"company,omitempty"`
}

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) Register(ctx context.Context, req RegisterRequest) (*Account, error) {
	var out Account
	if err := c.do(ctx, http.MethodPost, "/users", "", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	var out TokenPair
	in := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", "", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	var out TokenPair
	in := map[string]string{"refreshToken": refreshToken}
	if err := c.do(ctx, http.MethodPost, "/auth/token", "", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Logout(ctx context.Context, refreshToken string) error {
	in := map[string]string{"refreshToken": refreshToken}
	return c.do(ctx, http.MethodPost, "/auth/logout", "", in, nil)
}

func (c *Client) Me(ctx context.Context, accessToken string) (*Account, error) {
	var out Account
	if err := c.do(ctx, http.MethodGet, "/users/me", accessToken, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// do maps 401 and 409 responses onto the shared sentinel errors.
func (c *Client) do(ctx context.Context, method, path, bearer string, in, out any) error {
	err := netx.DoJSON(ctx, c.http, method, c.baseURL+path, bearer, in, out)

	var se *netx.StatusError
	if errors.As(err, &se) {
		switch se.Code {
		case http.StatusUnauthorized:
			return common.ErrorUnauthorized
		case http.StatusConflict:
			return common.ErrorAlreadyExists
		case http.StatusBadRequest:
			return errors.Join(common.ErrorValidation, se)
		}
	}
	return err
}
