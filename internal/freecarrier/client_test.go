package freecarrier

import (
	"context"
	"errors"
	"testing"
	"time"

	"carrierlookup/internal/captcha"
	"carrierlookup/internal/components/telemetry"
	"carrierlookup/internal/phone"
	"carrierlookup/internal/testutil"
	"carrierlookup/pkg/fieldmap"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, opts ClientOptions) (*Client, *testutil.Site, *telemetry.Recorder) {
	t.Helper()
	site := testutil.NewSite(t)

	opts.BaseUrl = site.URL
	rec := &telemetry.Recorder{}
	client, err := NewClient(opts, rec)
	require.NoError(t, err)
	return client, site, rec
}

func TestLookup(t *testing.T) {
	client, site, _ := newTestClient(t, ClientOptions{UserAgent: "fcl-test"})
	number := phone.Number{CountryCode: 1, National: "6507989814"}

	result, err := client.Lookup(context.Background(), number, captcha.StaticSolver(testutil.CaptchaAnswer))
	require.NoError(t, err)
	require.Equal(t, number, result.Number)

	expected := map[string]string{
		"Carrier":             "Big Corp Wireless",
		"Is Wireless":         "y",
		"SMS Gateway Address": "6507989814@sms.example.com",
	}
	if diff := cmp.Diff(expected, result.Fields); diff != "" {
		t.Fatalf("unexpected fields (-want +got):\n%s", diff)
	}
	require.Equal(t, int32(1), site.Connects.Load())
	require.Equal(t, "fcl-test", site.LastUserAgent())
}

func TestLookupFieldOptions(t *testing.T) {
	client, _, _ := newTestClient(t, ClientOptions{
		FieldOptions: []fieldmap.Option{fieldmap.WithExclude()},
	})
	number := phone.Number{CountryCode: 1, National: "6502530000"}

	result, err := client.Lookup(context.Background(), number, captcha.StaticSolver(testutil.CaptchaAnswer))
	require.NoError(t, err)
	require.Equal(t, "16502530000", result.Fields[fieldmap.PhoneNumber])
}

func TestLookupStatusError(t *testing.T) {
	client, _, rec := newTestClient(t, ClientOptions{})

	_, err := client.Lookup(context.Background(), phone.Number{CountryCode: 1, National: "6502530000"}, captcha.StaticSolver("wrong"))
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, "error", statusErr.Status)
	require.Equal(t, []string{"Incorrect captcha."}, statusErr.Tokens)
	require.Equal(t, "Error received: Incorrect captcha.", statusErr.Error())

	_, err = client.Lookup(context.Background(), phone.Number{CountryCode: 39, National: testutil.InvalidNumber}, captcha.StaticSolver(testutil.CaptchaAnswer))
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, []string{"Invalid", "number"}, statusErr.Tokens)

	require.Empty(t, rec.Broken(report_client_submit))
}

func TestSubmitMalformedResponse(t *testing.T) {
	client, _, rec := newTestClient(t, ClientOptions{})
	ctx := context.Background()
	require.NoError(t, client.Connect(ctx))

	_, err := client.Submit(ctx, phone.Number{CountryCode: 1, National: testutil.MalformedNumber}, testutil.CaptchaAnswer)
	require.ErrorIs(t, err, ErrMalformedResponse)
	require.NotEmpty(t, rec.Broken(report_client_submit))
}

func TestSubmitHttpError(t *testing.T) {
	client, _, _ := newTestClient(t, ClientOptions{})
	ctx := context.Background()
	require.NoError(t, client.Connect(ctx))

	_, err := client.Submit(ctx, phone.Number{CountryCode: 1, National: testutil.BrokenNumber}, testutil.CaptchaAnswer)
	require.Error(t, err)
	require.Contains(t, err.Error(), "500")
}

func TestCaptchaRequiresSession(t *testing.T) {
	client, _, rec := newTestClient(t, ClientOptions{})
	ctx := context.Background()

	_, err := client.Captcha(ctx)
	require.Error(t, err)
	require.NotEmpty(t, rec.Broken(report_client_captcha))

	require.NoError(t, client.Connect(ctx))
	challenge, err := client.Captcha(ctx)
	require.NoError(t, err)
	require.Equal(t, "image/gif", challenge.MimeType)
}

type failingSolver struct{}

func (failingSolver) Solve(context.Context, captcha.Challenge) (string, error) {
	return "", errors.New("no answer")
}

func TestLookupSolverError(t *testing.T) {
	client, _, _ := newTestClient(t, ClientOptions{})
	_, err := client.Lookup(context.Background(), phone.Number{CountryCode: 1, National: "6502530000"}, failingSolver{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "solve captcha")
}

func TestLookupRateLimit(t *testing.T) {
	client, site, _ := newTestClient(t, ClientOptions{RateLimit: 200 * time.Millisecond})
	number := phone.Number{CountryCode: 1, National: "6502530000"}

	start := time.Now()
	for i := 0; i < 2; i++ {
		_, err := client.Lookup(context.Background(), number, captcha.StaticSolver(testutil.CaptchaAnswer))
		require.NoError(t, err)
	}
	require.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
	require.Equal(t, int32(2), site.Connects.Load())
}

func TestLookupCanceled(t *testing.T) {
	client, _, _ := newTestClient(t, ClientOptions{RateLimit: time.Hour})
	number := phone.Number{CountryCode: 1, National: "6502530000"}

	_, err := client.Lookup(context.Background(), number, captcha.StaticSolver(testutil.CaptchaAnswer))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = client.Lookup(ctx, number, captcha.StaticSolver(testutil.CaptchaAnswer))
	require.Error(t, err)
}

func TestParseResponse(t *testing.T) {
	status, fragment, err := parseResponse([]byte(`{"status":"success","html":"<b>Carrier:</b> X"}`))
	require.NoError(t, err)
	require.Equal(t, "success", status)
	require.Equal(t, "<b>Carrier:</b> X", fragment)

	malformed := []string{
		`[]`,
		`{"status":"success"}`,
		`not json`,
		``,
		`{"status":"success","html":null}`,
		`{"status":"success","html":123}`,
		`{"status":null,"html":"<p>x</p>"}`,
		`{"status":["success"],"html":"<p>x</p>"}`,
	}
	for _, body := range malformed {
		_, _, err := parseResponse([]byte(body))
		require.ErrorIs(t, err, ErrMalformedResponse, body)
	}
}
