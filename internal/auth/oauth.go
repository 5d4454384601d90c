package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// GoogleProvider drives the browser sign-in flow: redirect to Google,
// receive a code on the callback, trade it for tokens. The ID token in the
// token response is then checked by the same GoogleVerifier as tokens sent
// by mobile clients.
type GoogleProvider struct {
	config *oauth2.Config
}

// NewGoogleProvider requests the openid, email and profile scopes.
// callbackURL must match a redirect URI registered for the client.
func NewGoogleProvider(clientID, clientSecret, callbackURL string) *GoogleProvider {
	return &GoogleProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
	}
}

// AuthURL is where the browser is sent to sign in. state comes back
// unchanged on the callback and must be checked there.
func (p *GoogleProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

var errNoIDToken = errors.New("auth: token response has no id_token")

// Exchange trades an authorization code for the ID token of the user.
func (p *GoogleProvider) Exchange(ctx context.Context, code string) (string, error) {
	tok, err := p.config.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("auth: exchanging OAuth code: %w", err)
	}

	idToken, _ := tok.Extra("id_token").(string)
	if idToken == "" {
		return "", errNoIDToken
	}
	return idToken, nil
}
