package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DavidFields1/auth-api/internal/core/oauth"
	"github.com/DavidFields1/auth-api/internal/domain"
)

type stubProvider struct {
	profile *oauth.Profile
	err     error
}

func (p *stubProvider) AuthCodeURL(context.Context) (string, error) {
	return "https://accounts.google.com/o/oauth2/v2/auth?state=s", nil
}

func (p *stubProvider) Exchange(_ context.Context, state, code string) (*oauth.Profile, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.profile, nil
}

func TestOAuthBridge_Callback(t *testing.T) {
	f := newFixture(time.Hour)
	p := &stubProvider{profile: &oauth.Profile{Email: "Gus@Example.com", EmailVerified: true, Name: "Gus Grant", GivenName: "Gus"}}
	b := NewOAuthBridge(p, f.auth, nil)
	ctx := context.Background()

	u, err := b.Start(ctx)
	require.NoError(t, err)
	assert.Contains(t, u, "state=")

	res, err := b.Callback(ctx, "s", "c")
	require.NoError(t, err)
	assert.Equal(t, "gus@example.com", res.Email)
	assert.Equal(t, "Gus", res.FirstName)
	assert.Equal(t, domain.ProviderGoogle, res.Provider)

	again, err := b.Callback(ctx, "s2", "c2")
	require.NoError(t, err)
	assert.Equal(t, res.ID, again.ID)
}

func TestOAuthBridge_FallsBackToFullName(t *testing.T) {
	f := newFixture(time.Hour)
	b := NewOAuthBridge(&stubProvider{profile: &oauth.Profile{Email: "x@example.com", EmailVerified: true, Name: "Xavier"}}, f.auth, nil)

	res, err := b.Callback(context.Background(), "s", "c")
	require.NoError(t, err)
	assert.Equal(t, "Xavier", res.FirstName)
}

func TestOAuthBridge_Rejections(t *testing.T) {
	f := newFixture(time.Hour)
	ctx := context.Background()

	cases := []struct {
		name string
		p    *stubProvider
		want error
	}{
		{"invalid state", &stubProvider{err: oauth.ErrInvalidState}, domain.ErrUnauthenticated},
		{"exchange failed", &stubProvider{err: fmt.Errorf("%w: invalid_grant", oauth.ErrExchange)}, domain.ErrUnauthenticated},
		{"no email", &stubProvider{profile: &oauth.Profile{EmailVerified: true}}, domain.ErrValidation},
		{"unverified", &stubProvider{profile: &oauth.Profile{Email: "u@example.com"}}, domain.ErrValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewOAuthBridge(tc.p, f.auth, nil).Callback(ctx, "s", "c")
			require.ErrorIs(t, err, tc.want)
		})
	}

	boom := errors.New("userinfo down")
	_, err := NewOAuthBridge(&stubProvider{err: boom}, f.auth, nil).Callback(ctx, "s", "c")
	require.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, domain.ErrUnauthenticated)
}
