// client.go contains the http session logic for talking to freecarrierlookup.com,
// the steps of a single lookup are exposed separately so they can be driven
// one at a time.

package freecarrier

import (
	"context"
	"errors"
	"fmt"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"carrierlookup/internal/captcha"
	"carrierlookup/internal/components/assert"
	"carrierlookup/internal/components/telemetry"
	"carrierlookup/internal/phone"
	"carrierlookup/pkg/fieldmap"
	"carrierlookup/pkg/htmlutil"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/time/rate"
)

const (
	report_client_connect = "client.connect"
	report_client_captcha = "client.captcha"
	report_client_submit  = "client.submit"
	report_client_lookup  = "client.lookup"
)

const (
	DefaultBaseUrl = "https://freecarrierlookup.com"

	pathCaptcha = "/captcha/captcha.php"
	pathSubmit  = "/getcarrier_free.php"

	StatusSuccess = "success"
)

var ErrMalformedResponse = errors.New("expected response to be a JSON object containing status and html")

// StatusError is returned when the site answers a lookup with anything other
// than a success status, ex. a wrong captcha or an invalid number.
type StatusError struct {
	Status string
	Tokens []string
}

// Title is the status with its first letter capitalized, ex. "Error".
func (e *StatusError) Title() string {
	return cases.Title(language.English).String(e.Status)
}

func (e *StatusError) Message() string {
	return strings.Join(e.Tokens, " ")
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s received: %s", e.Title(), e.Message())
}

type ClientOptions struct {
	BaseUrl string
	// no User-Agent header is set by the client when empty
	UserAgent string
	// minimum time between the start of two lookups, 0 disables it
	RateLimit time.Duration
	Timeout   time.Duration
	// receives full request/response dumps when not nil
	DumpOutput telemetry.MessageOutput
	// options passed on to fieldmap.Dictify for every result
	FieldOptions []fieldmap.Option
}

type Result struct {
	Number phone.Number
	Fields map[string]string
}

type Client struct {
	BaseUrl *url.URL
	Http    *resty.Client

	limiter   *rate.Limiter
	fieldOpts []fieldmap.Option
	tel       telemetry.API
}

func NewClient(opts ClientOptions, tel telemetry.API) (*Client, error) {
	assert.NotNil(tel)
	assert.NonNegative("rate limit", opts.RateLimit)

	tel = telemetry.Scoped("freecarrier", tel)

	baseUrl := opts.BaseUrl
	if baseUrl == "" {
		baseUrl = DefaultBaseUrl
	}
	parsedBaseUrl, err := url.Parse(baseUrl)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = time.Second * 30
	}

	httpClient := resty.New()
	httpClient.SetBaseURL(strings.TrimSuffix(baseUrl, "/"))
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	httpClient.SetCookieJar(jar)
	httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)

	if opts.UserAgent != "" {
		httpClient.SetHeader("User-Agent", opts.UserAgent)
	}
	httpClient.SetHeader("Accept-Language", "en")
	httpClient.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(parsedBaseUrl.Hostname()))
	httpClient.SetTimeout(timeout)

	telemetry.InstrumentResty(httpClient, tel, opts.DumpOutput)

	// burst of 1 lets the first lookup through immediately
	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Every(opts.RateLimit), 1)
	}

	return &Client{
		BaseUrl:   parsedBaseUrl,
		Http:      httpClient,
		limiter:   limiter,
		fieldOpts: opts.FieldOptions,
		tel:       tel,
	}, nil
}

// Connect loads the home page, the cookies it sets are required for a lookup
// to succeed.
func (c *Client) Connect(ctx context.Context) error {
	res, err := c.Http.R().
		SetContext(ctx).
		Get("/")
	if err != nil {
		c.tel.ReportBroken(report_client_connect, fmt.Errorf("home page request: %w", err))
		return fmt.Errorf("connect: %w", err)
	}
	if !res.IsSuccess() {
		err := fmt.Errorf("connect: got http status %d", res.StatusCode())
		c.tel.ReportBroken(report_client_connect, err)
		return err
	}
	return nil
}

// Captcha fetches the captcha image tied to the current session.
func (c *Client) Captcha(ctx context.Context) (captcha.Challenge, error) {
	res, err := c.Http.R().
		SetContext(ctx).
		Get(pathCaptcha)
	if err != nil {
		c.tel.ReportBroken(report_client_captcha, fmt.Errorf("captcha request: %w", err))
		return captcha.Challenge{}, fmt.Errorf("fetch captcha: %w", err)
	}
	if !res.IsSuccess() {
		err := fmt.Errorf("fetch captcha: got http status %d", res.StatusCode())
		c.tel.ReportBroken(report_client_captcha, err)
		return captcha.Challenge{}, err
	}

	challenge, err := captcha.NewChallenge(res.Body())
	if err != nil {
		c.tel.ReportBroken(report_client_captcha, err)
		return captcha.Challenge{}, fmt.Errorf("fetch captcha: %w", err)
	}
	if !challenge.IsImage() {
		c.tel.ReportWarning(report_client_captcha, "unexpected content type", challenge.MimeType)
	}
	return challenge, nil
}

// Submit posts the lookup form with the captcha answer and normalizes the
// fields of a successful result.
func (c *Client) Submit(ctx context.Context, number phone.Number, answer string) (Result, error) {
	res, err := c.Http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"sessionlogin":    "1",
			"cc":              number.CC(),
			"phonenum":        number.National,
			"captcha_entered": answer,
		}).
		Post(pathSubmit)
	if err != nil {
		c.tel.ReportBroken(report_client_submit, fmt.Errorf("lookup request: %w", err))
		return Result{}, fmt.Errorf("submit: %w", err)
	}
	if !res.IsSuccess() {
		err := fmt.Errorf("submit: got http status %d", res.StatusCode())
		c.tel.ReportBroken(report_client_submit, err)
		return Result{}, err
	}

	status, fragment, err := parseResponse(res.Body())
	if err != nil {
		c.tel.ReportBroken(report_client_submit, err)
		return Result{}, fmt.Errorf("submit: %w", err)
	}

	tokens := htmlutil.Tokens(fragment)
	c.tel.ReportDebug("result tokens", status, tokens)

	if status != StatusSuccess {
		return Result{}, &StatusError{Status: status, Tokens: tokens}
	}
	return Result{
		Number: number,
		Fields: fieldmap.Dictify(tokens, c.fieldOpts...),
	}, nil
}

func parseResponse(body []byte) (status string, fragment string, err error) {
	if !gjson.ValidBytes(body) {
		return "", "", fmt.Errorf("%w, but got: %q", ErrMalformedResponse, body)
	}
	parsed := gjson.ParseBytes(body)
	if !parsed.IsObject() {
		return "", "", fmt.Errorf("%w, but got: %q", ErrMalformedResponse, body)
	}
	statusField := parsed.Get("status")
	htmlField := parsed.Get("html")
	if statusField.Type != gjson.String || htmlField.Type != gjson.String {
		return "", "", fmt.Errorf("%w, but got: %q", ErrMalformedResponse, body)
	}
	return statusField.String(), htmlField.String(), nil
}

// Lookup runs a whole lookup: it waits for the rate limit, starts a fresh
// session, has the solver answer the captcha and submits the form.
func (c *Client) Lookup(ctx context.Context, number phone.Number, solver captcha.Solver) (Result, error) {
	ctx, span := tracer.Start(ctx, "client:Lookup")
	defer span.End()

	result, err := c.lookup(ctx, number, solver)
	recordLookup(ctx, span, number, err)
	return result, err
}

func (c *Client) lookup(ctx context.Context, number phone.Number, solver captcha.Solver) (Result, error) {
	err := c.limiter.Wait(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("rate limit: %w", err)
	}

	err = c.Connect(ctx)
	if err != nil {
		return Result{}, err
	}
	challenge, err := c.Captcha(ctx)
	if err != nil {
		return Result{}, err
	}

	answer, err := solver.Solve(ctx, challenge)
	if err != nil {
		c.tel.ReportWarning(report_client_lookup, fmt.Errorf("solve captcha: %w", err))
		return Result{}, fmt.Errorf("solve captcha: %w", err)
	}

	return c.Submit(ctx, number, answer)
}
