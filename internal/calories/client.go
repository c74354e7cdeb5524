// Package calories talks to the calorie lookup backend: login, registration and
// dish lookups, with backend error statuses translated into user-facing errors.
package calories

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/rcliao/mealtrack/internal/api"
	"github.com/rcliao/mealtrack/internal/model"
)

const (
	msgValidation  = "Validation failed or invalid dish name"
	msgNotFound    = "Dish not found or no nutrition data available"
	msgServer      = "Server error: Unexpected error or missing calories data"
	msgOther       = "An error occurred"
	msgLoginFailed = "Failed to login"
	msgRegFailed   = "Failed to register"
)

// Dispatcher sends one request to the backend. *api.Client implements it.
type Dispatcher interface {
	Do(ctx context.Context, method, endpoint string, body any, opts ...api.RequestOption) (*http.Response, error)
}

// Client is the calorie backend client.
type Client struct {
	dispatch Dispatcher
}

// New creates a Client on top of d.
func New(d Dispatcher) *Client {
	return &Client{dispatch: d}
}

// LoginResult is a successful login.
type LoginResult struct {
	Token    string
	Identity model.Identity
}

type loginResponse struct {
	Token     string `json:"token"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	User      *struct {
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
	} `json:"user"`
}

// Login exchanges credentials for a token. Names come from the top-level fields or the
// nested user object, and are kept only when both are present.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	resp, err := c.dispatch.Do(ctx, http.MethodPost, "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, api.WithoutAuth())
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ServiceError{
			Kind:    kindFor(resp.StatusCode),
			Status:  resp.StatusCode,
			Message: orDefault(backendMessage(resp), msgLoginFailed),
		}
	}

	var body loginResponse
	if err := api.DecodeJSON(resp, &body); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	if body.Token == "" {
		return nil, ErrNoToken
	}

	first, last := body.FirstName, body.LastName
	if body.User != nil {
		if first == "" {
			first = body.User.FirstName
		}
		if last == "" {
			last = body.User.LastName
		}
	}
	identity := model.Identity{Email: email}
	if first != "" && last != "" {
		identity.FirstName, identity.LastName = first, last
	}
	return &LoginResult{Token: body.Token, Identity: identity}, nil
}

// Registration is a new account request.
type Registration struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

// RegisterResult is a successful registration.
type RegisterResult struct {
	Message  string
	Token    string
	Identity model.Identity
}

// Register creates an account. The returned identity carries the registered email so
// the new session binds to its history namespace.
func (c *Client) Register(ctx context.Context, reg Registration) (*RegisterResult, error) {
	resp, err := c.dispatch.Do(ctx, http.MethodPost, "/auth/register", reg, api.WithoutAuth())
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ServiceError{
			Kind:    kindFor(resp.StatusCode),
			Status:  resp.StatusCode,
			Message: orDefault(backendMessage(resp), msgRegFailed),
		}
	}

	var body struct {
		Message string `json:"message"`
		Token   string `json:"token"`
	}
	if err := api.DecodeJSON(resp, &body); err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	if body.Token == "" {
		return nil, ErrNoToken
	}
	return &RegisterResult{
		Message: body.Message,
		Token:   body.Token,
		Identity: model.Identity{
			Email:     reg.Email,
			FirstName: reg.FirstName,
			LastName:  reg.LastName,
		},
	}, nil
}

// Lookup asks the backend for the calories of servings portions of dish.
// A 401 is returned as ErrUnauthorized; other error statuses as *ServiceError.
func (c *Client) Lookup(ctx context.Context, dish string, servings float64) (*model.CaloriesResult, error) {
	resp, err := c.dispatch.Do(ctx, http.MethodPost, "/get-calories", map[string]any{
		"dish_name": strings.TrimSpace(dish),
		"servings":  servings,
	})
	if err != nil {
		return nil, err
	}

	switch status := resp.StatusCode; {
	case status >= 200 && status < 300:
		var result model.CaloriesResult
		if err := api.DecodeJSON(resp, &result); err != nil {
			return nil, fmt.Errorf("lookup: %w", err)
		}
		return &result, nil
	case status == http.StatusUnauthorized:
		resp.Body.Close()
		return nil, ErrUnauthorized
	case status == http.StatusBadRequest:
		return nil, &ServiceError{Kind: KindValidation, Status: status, Message: orDefault(backendMessage(resp), msgValidation)}
	case status == http.StatusNotFound:
		resp.Body.Close()
		return nil, &ServiceError{Kind: KindNotFound, Status: status, Message: msgNotFound}
	case status == http.StatusInternalServerError:
		resp.Body.Close()
		return nil, &ServiceError{Kind: KindServer, Status: status, Message: msgServer}
	default:
		return nil, &ServiceError{Kind: kindFor(status), Status: status, Message: orDefault(backendMessage(resp), msgOther)}
	}
}
