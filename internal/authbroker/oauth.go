package authbroker

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"golang.org/x/oauth2"
)

// OAuthToken verifies credentials via a cached oauth2.Token on disk,
// refreshing it through the configured TokenSource when expired rather
// than treating an expired token as missing. Only once the token
// cannot be refreshed does Probe fall back to NeedAction with AuthURL.
type OAuthToken struct {
	TokenPath string
	Config    *oauth2.Config
	AuthURL   string
}

func (o OAuthToken) Probe(ctx context.Context) Result {
	tok, err := o.loadToken()
	if err != nil {
		return Result{Status: StatusNeedAction, Prompt: "no stored OAuth token", Hint: o.AuthURL}
	}
	if tok.Valid() {
		return Result{Status: StatusReady}
	}
	if o.Config == nil {
		return Result{Status: StatusNeedAction, Prompt: "stored OAuth token expired", Hint: o.AuthURL}
	}
	refreshed, err := o.Config.TokenSource(ctx, tok).Token()
	if err != nil {
		return Result{Status: StatusNeedAction, Prompt: "OAuth token refresh failed", Hint: o.AuthURL}
	}
	_ = o.saveToken(refreshed)
	return Result{Status: StatusReady}
}

func (o OAuthToken) loadToken() (*oauth2.Token, error) {
	b, err := os.ReadFile(o.TokenPath)
	if err != nil {
		return nil, err
	}
	var tok oauth2.Token
	if err := json.Unmarshal(b, &tok); err != nil {
		return nil, err
	}
	if tok.Expiry.IsZero() {
		tok.Expiry = time.Now().Add(-time.Second)
	}
	return &tok, nil
}

func (o OAuthToken) saveToken(tok *oauth2.Token) error {
	b, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(o.TokenPath, b, 0o600)
}
