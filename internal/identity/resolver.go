package identity

import (
	"context"
	"log"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"campushub/pkg/interfaces"
	"campushub/pkg/types"
)

// Resolver turns a login request into a stable Identity. A valid token
// resolves to the stored account; anything else falls back to the
// client-supplied anonymous identity. A bad token degrades to anonymous,
// it never rejects the login.
type Resolver struct {
	store  interfaces.UserStore
	secret []byte
}

// tokenClaims matches the tokens the REST auth service issues: the
// account id under "id" plus registered claims.
type tokenClaims struct {
	ID string `json:"id"`
	jwt.RegisteredClaims
}

func NewResolver(store interfaces.UserStore, secret string) *Resolver {
	return &Resolver{
		store:  store,
		secret: []byte(secret),
	}
}

// Resolve authenticates a login request. The returned identity is always
// usable; err is non-nil only when not even an anonymous fallback can be
// built from the request.
func (r *Resolver) Resolve(ctx context.Context, req *types.LoginRequest) (*types.Identity, error) {
	if req.Token != "" {
		if identity, err := r.resolveToken(ctx, req.Token); err == nil {
			return identity, nil
		} else {
			log.Printf("Token verification failed, falling back to anonymous: %v", err)
		}
	}

	return r.resolveAnonymous(req)
}

func (r *Resolver) resolveToken(ctx context.Context, token string) (*types.Identity, error) {
	claims := &tokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return r.secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}
	if !parsed.Valid || claims.ID == "" {
		return nil, ErrInvalidToken
	}

	user, err := r.store.GetUser(ctx, claims.ID)
	if err != nil {
		return nil, err
	}

	// Mark the account online off the login path; a failed write costs
	// a stale status row, not the login.
	go func() {
		if err := r.store.SetPresence(context.Background(), user.ID, types.PresenceOnline, time.Now()); err != nil {
			log.Printf("Failed to persist online status for %s: %v", user.ID, err)
		}
	}()

	return &types.Identity{
		UserID:      user.ID,
		DisplayName: user.Name,
		AvatarLabel: user.Avatar,
		Presence:    types.PresenceOnline,
		Anonymous:   false,
	}, nil
}

// resolveAnonymous builds an identity from client-supplied fields. The
// id is not verified against the store, so an anonymous login may claim
// any id that passes the character check.
func (r *Resolver) resolveAnonymous(req *types.LoginRequest) (*types.Identity, error) {
	if !types.IsValidUserID(req.UserID) {
		return nil, ErrUnresolvable
	}

	name := req.Username
	if name == "" {
		name = req.UserID
	}

	return &types.Identity{
		UserID:      req.UserID,
		DisplayName: name,
		AvatarLabel: req.Avatar,
		Presence:    types.PresenceOnline,
		Anonymous:   true,
	}, nil
}
