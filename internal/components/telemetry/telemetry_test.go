package telemetry

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
)

func TestScoped(t *testing.T) {
	rec := &Recorder{}
	tel := Scoped("client", rec)

	tel.ReportBroken("submit", errors.New("boom"))
	tel.ReportWarning("captcha")
	tel.ReportCount("lookups", 3)

	reports := rec.Reports()
	require.Len(t, reports, 3)
	require.Equal(t, "client: submit", reports[0].ID)
	require.Equal(t, "broken", reports[0].Kind)
	require.Equal(t, "client: captcha", reports[1].ID)
	require.Equal(t, []any{int64(3)}, reports[2].Params)
	require.Equal(t, []string{"client: submit"}, rec.Broken("submit"))
}

func TestSlogAPI(t *testing.T) {
	buf := &bytes.Buffer{}
	tel := SlogAPI{Logger: NewLogger(buf, false)}

	tel.ReportDebug("hidden")
	tel.ReportBroken("client.submit", errors.New("boom"), 3)

	out := buf.String()
	require.NotContains(t, out, "hidden")
	require.Contains(t, out, "broken component")
	require.Contains(t, out, "client.submit")
	require.Contains(t, out, "boom")
}

type memoryOutput map[string]string

func (m memoryOutput) Write(id, contents string) error {
	m[id] = contents
	return nil
}

func TestInstrumentResty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Test", "yes")
		w.Write([]byte("hello"))
	}))
	defer srv.Close()

	rec := &Recorder{}
	out := memoryOutput{}
	client := resty.New()
	InstrumentResty(client, rec, out)

	_, err := client.R().
		SetContext(context.Background()).
		SetFormData(map[string]string{"cc": "1"}).
		Post(srv.URL)
	require.NoError(t, err)

	reports := rec.Reports()
	require.Len(t, reports, 2)
	require.Equal(t, report_resty_request, reports[0].ID)
	require.Equal(t, report_resty_response, reports[1].ID)

	require.Contains(t, out, "1")
	require.Contains(t, out["1"], "cc=1")
	require.Contains(t, out["1"], "X-Test: yes")
	require.Contains(t, out["1"], "hello")
}

func TestInstrumentRestyDumpsGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("home page"))
	}))
	defer srv.Close()

	out, err := NewFilesystemOutput(filepath.Join(t.TempDir(), "dump"))
	require.NoError(t, err)
	rec := &Recorder{}
	client := resty.New()
	InstrumentResty(client, rec, out)

	res, err := client.R().Get(srv.URL + "/")
	require.NoError(t, err)
	require.True(t, res.IsSuccess())

	dump, err := os.ReadFile(out.Path("1"))
	require.NoError(t, err)
	require.Contains(t, string(dump), "> GET "+srv.URL+"/")
	require.Contains(t, string(dump), "< 200 ")
	require.Contains(t, string(dump), "< home page")
	require.Empty(t, rec.Broken(""))
}

func TestInstrumentRestyError(t *testing.T) {
	rec := &Recorder{}
	client := resty.New()
	InstrumentResty(client, rec, nil)

	_, err := client.R().Get("http://127.0.0.1:0/unreachable")
	require.Error(t, err)
	require.Equal(t, []string{report_resty_response}, rec.Broken(report_resty_response))
}

func TestFilesystemOutput(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "dump")
	out, err := NewFilesystemOutput(dir)
	require.NoError(t, err)

	require.NoError(t, out.Write("7", "contents"))
	require.Equal(t, dir, filepath.Dir(out.Path("7")))
	written, err := os.ReadFile(out.Path("7"))
	require.NoError(t, err)
	require.Equal(t, "contents", string(written))

	other, err := NewFilesystemOutput(dir)
	require.NoError(t, err)
	require.NotEqual(t, out.Path("7"), other.Path("7"))
}

func TestSetupFromEnvWithoutConfig(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	defer os.Chdir(wd)

	tel, err := SetupFromEnv(context.Background(), "test:telemetry")
	require.NoError(t, err)
	require.Nil(t, tel.TracerProvider)
	require.NoError(t, tel.Shutdown(context.Background()))
}
