// Package google implements idrelay.Provider against Google's OAuth 2.0
// endpoints. The identity is read from the v2 userinfo endpoint.
package google

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/MrEthical07/idrelay"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

const (
	providerName = "google"

	// DefaultUserInfoURL is Google's v2 userinfo endpoint.
	DefaultUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

	maxUserInfoBytes = 1 << 20
)

// Scopes requested at the authorization endpoint.
var Scopes = []string{
	"openid",
	"https://www.googleapis.com/auth/userinfo.email",
	"https://www.googleapis.com/auth/userinfo.profile",
}

// Config holds the OAuth client registration. The endpoint URLs default to
// Google's and are overridable for tests.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	AuthURL     string
	TokenURL    string
	UserInfoURL string

	// HTTPClient is used for the token and userinfo calls. Defaults to
	// http.DefaultClient.
	HTTPClient *http.Client
}

// Provider is safe for concurrent use.
type Provider struct {
	oauth       *oauth2.Config
	userInfoURL string
	client      *http.Client
}

// New validates cfg and returns a Provider. Missing client settings wrap
// idrelay.ErrConfiguration.
func New(cfg Config) (*Provider, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RedirectURL == "" {
		return nil, fmt.Errorf("%w: google client id, client secret and redirect url are required", idrelay.ErrConfiguration)
	}

	endpoint := endpoints.Google
	if cfg.AuthURL != "" {
		endpoint.AuthURL = cfg.AuthURL
	}
	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
	}
	if endpoint.AuthStyle == oauth2.AuthStyleAutoDetect {
		endpoint.AuthStyle = oauth2.AuthStyleInParams
	}

	userInfoURL := cfg.UserInfoURL
	if userInfoURL == "" {
		userInfoURL = DefaultUserInfoURL
	}

	return &Provider{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     endpoint,
			Scopes:       Scopes,
		},
		userInfoURL: userInfoURL,
		client:      cfg.HTTPClient,
	}, nil
}

// Name returns "google".
func (p *Provider) Name() string {
	return providerName
}

// AuthCodeURL requests offline access with a consent prompt and an S256 PKCE
// challenge derived from codeVerifier.
func (p *Provider) AuthCodeURL(state, codeVerifier string) string {
	return p.oauth.AuthCodeURL(
		state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("include_granted_scopes", "true"),
		oauth2.SetAuthURLParam("prompt", "consent"),
		oauth2.S256ChallengeOption(codeVerifier),
	)
}

type userInfo struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Exchange trades code for a Google access token and reads the user's email
// and name. Transport and HTTP failures wrap idrelay.ErrProviderExchange; a
// profile without an email returns idrelay.ErrIdentityEmailMissing.
func (p *Provider) Exchange(ctx context.Context, code, codeVerifier string) (idrelay.IdentityClaims, error) {
	if p.client != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, p.client)
	}

	token, err := p.oauth.Exchange(ctx, code, oauth2.VerifierOption(codeVerifier))
	if err != nil {
		return idrelay.IdentityClaims{}, fmt.Errorf("%w: google token exchange: %w", idrelay.ErrProviderExchange, err)
	}

	info, err := p.fetchUserInfo(ctx, token)
	if err != nil {
		return idrelay.IdentityClaims{}, fmt.Errorf("%w: google userinfo: %w", idrelay.ErrProviderExchange, err)
	}

	return idrelay.NewIdentityClaims(info.Email, info.Name)
}

func (p *Provider) fetchUserInfo(ctx context.Context, token *oauth2.Token) (*userInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.oauth.Client(ctx, token).Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxUserInfoBytes))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var info userInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return &info, nil
}

var _ idrelay.Provider = (*Provider)(nil)
