package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/DavidFields1/auth-api/pkg/utils"
)

const (
	GoogleAuthURL     = "https://accounts.google.com/o/oauth2/v2/auth"
	GoogleTokenURL    = "https://oauth2.googleapis.com/token"
	GoogleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"
)

var (
	ErrInvalidState = errors.New("oauth: invalid or expired state")
	ErrExchange     = errors.New("oauth: code exchange failed")
	ErrUserInfo     = errors.New("oauth: userinfo request failed")
)

// Profile Google userinfo（OpenID）里用得到的字段
type Profile struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
	Picture       string `json:"picture"`
}

type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
	StateTTL     time.Duration

	// 以下为空时使用 Google 正式地址，测试里指向 httptest
	AuthURL     string
	TokenURL    string
	UserInfoURL string
	HTTPClient  *http.Client
}

type Google struct {
	cfg         oauth2.Config
	userInfoURL string
	states      StateStore
	ttl         time.Duration
	client      *http.Client
}

func NewGoogle(c Config, states StateStore) (*Google, error) {
	if c.ClientID == "" || c.ClientSecret == "" || c.RedirectURL == "" {
		return nil, errors.New("oauth: google client id, secret and callback url are required")
	}
	if states == nil {
		return nil, errors.New("oauth: state store is required")
	}
	if len(c.Scopes) == 0 {
		c.Scopes = []string{"openid", "email", "profile"}
	}
	if c.StateTTL <= 0 {
		c.StateTTL = 10 * time.Minute
	}
	client := c.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Google{
		cfg: oauth2.Config{
			ClientID:     c.ClientID,
			ClientSecret: c.ClientSecret,
			RedirectURL:  c.RedirectURL,
			Scopes:       c.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   firstNonEmpty(c.AuthURL, GoogleAuthURL),
				TokenURL:  firstNonEmpty(c.TokenURL, GoogleTokenURL),
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		userInfoURL: firstNonEmpty(c.UserInfoURL, GoogleUserInfoURL),
		states:      states,
		ttl:         c.StateTTL,
		client:      client,
	}, nil
}

// AuthCodeURL 生成 state + PKCE verifier，返回跳转 Google 的地址
func (g *Google) AuthCodeURL(ctx context.Context) (string, error) {
	state, err := utils.RandomToken(24)
	if err != nil {
		return "", fmt.Errorf("oauth: state: %w", err)
	}
	verifier := oauth2.GenerateVerifier()
	if err := g.states.Put(ctx, state, verifier, g.ttl); err != nil {
		return "", fmt.Errorf("oauth: save state: %w", err)
	}
	return g.cfg.AuthCodeURL(state,
		oauth2.AccessTypeOnline,
		oauth2.S256ChallengeOption(verifier),
		oauth2.SetAuthURLParam("prompt", "select_account"),
	), nil
}

// Exchange 校验并消费 state，换 token 后拉取用户资料
func (g *Google) Exchange(ctx context.Context, state, code string) (*Profile, error) {
	if state == "" || code == "" {
		return nil, ErrInvalidState
	}
	verifier, err := g.states.Take(ctx, state)
	if err != nil {
		return nil, err
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, g.client)
	tok, err := g.cfg.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExchange, err)
	}
	return g.fetchProfile(ctx, tok)
}

func (g *Google) fetchProfile(ctx context.Context, tok *oauth2.Token) (*Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUserInfo, err)
	}
	tok.SetAuthHeader(req)
	req.Header.Set("Accept", "application/json")

	res, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUserInfo, err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", ErrUserInfo, res.StatusCode, strings.TrimSpace(string(b)))
	}

	var p Profile
	if err := json.NewDecoder(io.LimitReader(res.Body, 1<<20)).Decode(&p); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrUserInfo, err)
	}
	p.Email = strings.TrimSpace(p.Email)
	return &p, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
