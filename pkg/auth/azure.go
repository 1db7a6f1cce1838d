package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/helen-caroline/create-atas/pkg/config"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// AzureDevOpsScope is the Entra ID scope of the Azure DevOps resource.
const AzureDevOpsScope = "499b84ac-1321-427f-aa17-267ca6975798/.default"

var ErrNoAzureCredentials = errors.New("no Azure DevOps credentials: set AZURE_DEVOPS_TOKEN, or tenant_id and client_id with AZURE_CLIENT_SECRET")

// EntraTokenURL is the v2 token endpoint of tenant.
var EntraTokenURL = func(tenant string) string {
	return fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", tenant)
}

// patTransport authenticates with a personal access token as the basic
// auth password.
type patTransport struct {
	token string
	base  http.RoundTripper
}

func (t *patTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	r.SetBasicAuth("", t.token)
	return t.base.RoundTrip(r)
}

// AzureHTTPClient returns a client authorized for Azure DevOps. A personal
// access token wins; otherwise an Entra ID app registration is used through
// the client credentials grant.
func AzureHTTPClient(ctx context.Context, cfg config.Azure) (*http.Client, error) {
	if cfg.Token != "" {
		return &http.Client{Transport: &patTransport{token: cfg.Token, base: http.DefaultTransport}}, nil
	}
	if cfg.TenantID == "" || cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, ErrNoAzureCredentials
	}
	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     EntraTokenURL(cfg.TenantID),
		Scopes:       []string{AzureDevOpsScope},
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	return cc.Client(ctx), nil
}
