package session

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shashiranjanraj/aquaportal/pkg/gateway"
)

// Backend is the slice of the backend API the store needs.
type Backend interface {
	// WhoAmI revalidates the credential currently attached to the gateway.
	WhoAmI(ctx context.Context) (Identity, error)
	// Login exchanges credentials for a token and identity.
	Login(ctx context.Context, email, password string, role Role) (string, Identity, error)
}

// Remote implements Backend over the request gateway.
type Remote struct {
	gw *gateway.Client
}

func NewRemote(gw *gateway.Client) *Remote {
	return &Remote{gw: gw}
}

func (r *Remote) WhoAmI(ctx context.Context) (Identity, error) {
	var id Identity
	err := r.gw.Get("/auth").Decode(&id).Send(ctx)
	return id, err
}

func (r *Remote) Login(ctx context.Context, email, password string, role Role) (string, Identity, error) {
	body := map[string]string{"email": email, "password": password, "role": string(role)}

	// {token, ...identity}
	var raw json.RawMessage
	if err := r.gw.Post("/auth/login").Body(body).Decode(&raw).Send(ctx); err != nil {
		return "", Identity{}, err
	}

	var tok struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(raw, &tok); err != nil {
		return "", Identity{}, fmt.Errorf("session: decode login: %w", err)
	}
	var id Identity
	if err := json.Unmarshal(raw, &id); err != nil {
		return "", Identity{}, fmt.Errorf("session: decode login: %w", err)
	}
	return tok.Token, id, nil
}
