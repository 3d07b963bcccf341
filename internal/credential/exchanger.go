// ABOUTME: Client-credentials token exchange against the platform's auth endpoint.
// ABOUTME: Any transport or status failure is reported as an authentication error.

package credential

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/2389/hcp-gateway/internal/apierr"
)

// Exchanger trades a client id and secret for a bearer token.
type Exchanger interface {
	Exchange(ctx context.Context, clientID, clientSecret string) (*oauth2.Token, error)
}

// ClientCredentialsExchanger performs the OAuth2 client-credentials grant with
// the credentials sent as form parameters.
type ClientCredentialsExchanger struct {
	TokenURL   string
	Audience   string
	HTTPClient *http.Client
}

func (e *ClientCredentialsExchanger) Exchange(ctx context.Context, clientID, clientSecret string) (*oauth2.Token, error) {
	cfg := clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     e.TokenURL,
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	if e.Audience != "" {
		cfg.EndpointParams = url.Values{"audience": {e.Audience}}
	}
	if e.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, e.HTTPClient)
	}

	tok, err := cfg.Token(ctx)
	if err != nil {
		var rerr *oauth2.RetrieveError
		if errors.As(err, &rerr) && rerr.Response != nil {
			msg := fmt.Sprintf("token exchange rejected with status %d", rerr.Response.StatusCode)
			if rerr.ErrorCode != "" {
				msg += ": " + rerr.ErrorCode
			}
			return nil, apierr.Authentication(msg, err)
		}
		return nil, apierr.Authentication("token exchange failed", err)
	}
	if tok.AccessToken == "" {
		return nil, apierr.Authentication("token exchange returned no access_token", nil)
	}
	return tok, nil
}
