// Package shift scrapes the SHiFT rewards website: it keeps a logged-in session alive and
// drives the code redemption forms.
package shift

import (
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"

	"shift-redeemer/internal/components/assert"
	"shift-redeemer/internal/components/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"golang.org/x/time/rate"
)

var tracer = otel.Tracer("scrapers/shift")

const (
	report_client_check_auth  = "client.check-auth"
	report_client_login       = "client.login"
	report_client_check_code  = "client.check-code"
	report_client_redeem_code = "client.redeem-code"
)

const (
	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

	// signedInMarker only appears on pages rendered for a logged-in user.
	signedInMarker = "Sign Out"

	homePath    = "/home"
	sessionPath = "/sessions"
	codesPath   = "/entitlement_offer_codes"
)

type Client struct {
	BaseUrl *url.URL
	Http    *resty.Client
	Jar     http.CookieJar

	token string
	state AuthState
	tel   telemetry.API
}

type ClientOptions struct {
	BaseUrl string
	// RateLimit is the maximum number of requests per second, zero means 2 per second.
	RateLimit rate.Limit
	// Dump receives every HTTP exchange when set.
	Dump telemetry.HttpDump
}

func NewClient(opts ClientOptions, tel telemetry.API) (*Client, error) {
	assert.NotNil(tel)
	assert.NotEmptyStr(opts.BaseUrl)

	tel = telemetry.NewScopedAPI("shift_scraper", tel)

	parsedBaseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	httpClient := resty.New()
	httpClient.SetBaseURL(opts.BaseUrl)
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	httpClient.SetCookieJar(jar)
	httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)

	httpClient.SetHeader("user-agent", userAgent)
	httpClient.SetHeader("referer", opts.BaseUrl)
	httpClient.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(parsedBaseUrl.Hostname()))

	limit := opts.RateLimit
	if limit == 0 {
		limit = 2
	}
	// max burst >= 2 just means that no requests will be dropped
	rateLimiter := rate.NewLimiter(limit, 2)
	httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return rateLimiter.Wait(req.Context())
	})

	telemetry.InstrumentResty(httpClient, "scrapers/shift/http", tel, opts.Dump)

	return &Client{
		BaseUrl: parsedBaseUrl,
		Http:    httpClient,
		Jar:     jar,
		state:   StateUnauthenticated,
		tel:     tel,
	}, nil
}

// Token returns the most recently seen anti-forgery token, it is empty when none has been seen.
func (c *Client) Token() string {
	return c.token
}

func (c *Client) State() AuthState {
	return c.state
}

func (c *Client) ajaxHeaders() map[string]string {
	return map[string]string{
		"X-CSRF-Token":     c.token,
		"X-Requested-With": "XMLHttpRequest",
		"Accept":           "*/*;q=0.5, text/javascript, application/javascript",
	}
}
