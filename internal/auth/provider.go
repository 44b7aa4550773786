package auth

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/tradebridge/saxogw/internal/domain"
)

var providerLog = logrus.WithField("component", "identity")

// TokenReply is the identity provider's answer to any token grant.
type TokenReply struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

// Provider drives OAuth2 grants against the Saxo identity provider
// (logonvalidation.net). Credentials are sent both as a Basic auth header
// and as form fields; the provider accepts either.
type Provider struct {
	client       *resty.Client
	tokenURL     string
	clientID     string
	clientSecret string
}

func NewProvider(tokenURL, clientID, clientSecret string) *Provider {
	return &Provider{
		client:       resty.New().SetTimeout(20 * time.Second),
		tokenURL:     tokenURL,
		clientID:     clientID,
		clientSecret: clientSecret,
	}
}

func (p *Provider) grant(ctx context.Context, form map[string]string) (*TokenReply, error) {
	var reply TokenReply
	resp, err := p.client.R().
		SetContext(ctx).
		SetBasicAuth(p.clientID, p.clientSecret).
		SetHeader("Content-Type", "application/x-www-form-urlencoded").
		SetFormData(form).
		SetResult(&reply).
		Post(p.tokenURL)
	if err != nil {
		return nil, &domain.CredentialError{Cause: errors.Wrap(err, "token endpoint unreachable")}
	}
	if !resp.IsSuccess() {
		providerLog.WithField("status", resp.StatusCode()).Error("token grant rejected")
		return nil, &domain.CredentialError{
			Cause: errors.Errorf("token grant rejected: %d %s", resp.StatusCode(), resp.Body()),
		}
	}
	if reply.AccessToken == "" {
		return nil, &domain.CredentialError{Cause: errors.New("token grant reply missing access_token")}
	}
	return &reply, nil
}

// Refresh exchanges a refresh token for a new token pair.
func (p *Provider) Refresh(ctx context.Context, refreshToken string) (*TokenReply, error) {
	return p.grant(ctx, map[string]string{
		"grant_type":    "refresh_token",
		"refresh_token": refreshToken,
		"client_id":     p.clientID,
		"client_secret": p.clientSecret,
	})
}

// ExchangeCode redeems an authorization code obtained from the interactive
// login flow. Used once to bootstrap credentials.
func (p *Provider) ExchangeCode(ctx context.Context, code, redirectURI string) (*TokenReply, error) {
	return p.grant(ctx, map[string]string{
		"grant_type":   "authorization_code",
		"code":         code,
		"redirect_uri": redirectURI,
	})
}
