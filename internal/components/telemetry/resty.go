package telemetry

import (
	"context"
	"fmt"
	"io"
	"maps"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/go-resty/resty/v2"
	"github.com/mazen160/go-random"
)

const (
	report_resty_request  = "resty.request"
	report_resty_response = "resty.response"
	report_resty_dump     = "resty.dump"
)

// MessageOutput receives a rendered request/response pair.
type MessageOutput interface {
	Write(id string, contents string) error
}

type requestIdKey struct{}

func requestId(req *resty.Request) uint64 {
	id, _ := req.Context().Value(requestIdKey{}).(uint64)
	return id
}

// InstrumentResty reports every request made by the client to tel. `output` can
// be nil, if it is not then full request/response dumps are written to it.
func InstrumentResty(client *resty.Client, tel API, output MessageOutput) {
	var seq atomic.Uint64

	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		id := seq.Add(1)
		req.SetContext(context.WithValue(req.Context(), requestIdKey{}, id))
		tel.ReportDebug(report_resty_request, id, req.Method, req.URL)
		return nil
	})

	client.OnAfterResponse(func(_ *resty.Client, res *resty.Response) error {
		id := requestId(res.Request)
		tel.ReportDebug(report_resty_response, id, res.Time().String(), res.Status())
		if output == nil {
			return nil
		}
		err := output.Write(strconv.FormatUint(id, 10), dumpExchange(res))
		if err != nil {
			tel.ReportWarning(report_resty_dump, err)
		}
		return nil
	})

	client.OnError(func(req *resty.Request, err error) {
		tel.ReportBroken(report_resty_response, err, requestId(req), req.Method, req.URL)
	})
}

// FilesystemOutput writes each message into its own file in a directory, file
// names are prefixed with a random run id so separate runs can share a directory.
type FilesystemOutput struct {
	directory string
	run       string
}

func NewFilesystemOutput(dir string) (FilesystemOutput, error) {
	err := os.MkdirAll(dir, 0777)
	if err != nil {
		return FilesystemOutput{}, err
	}
	run, err := random.String(8)
	if err != nil {
		return FilesystemOutput{}, fmt.Errorf("generate run id: %w", err)
	}
	return FilesystemOutput{directory: dir, run: run}, nil
}

func (o FilesystemOutput) Path(id string) string {
	return filepath.Join(o.directory, fmt.Sprintf("%s-%s.txt", o.run, id))
}

func (o FilesystemOutput) Write(id string, contents string) error {
	return os.WriteFile(o.Path(id), []byte(contents), 0600)
}

// dumpExchange renders a request and its response the way curl -v does, lines
// sent are prefixed with "> " and lines received with "< ".
func dumpExchange(res *resty.Response) string {
	var out strings.Builder

	req := res.Request.RawRequest
	fmt.Fprintf(&out, "> %s %s\n", req.Method, req.URL)
	writeHeaders(&out, "> ", req.Header)
	out.WriteString(">\n")
	writeBody(&out, "> ", requestBody(req))

	out.WriteString("\n")

	location := res.Request.URL
	if redirected, err := res.RawResponse.Location(); err == nil {
		location = redirected.String()
	}
	fmt.Fprintf(&out, "< %d %s\n", res.StatusCode(), location)
	writeHeaders(&out, "< ", res.Header())
	out.WriteString("<\n")
	writeBody(&out, "< ", res.String())

	return out.String()
}

func writeHeaders(out *strings.Builder, prefix string, headers http.Header) {
	for _, k := range slices.Sorted(maps.Keys(headers)) {
		for _, v := range headers[k] {
			fmt.Fprintf(out, "%s%s: %s\n", prefix, k, v)
		}
	}
}

func writeBody(out *strings.Builder, prefix, body string) {
	if body == "" {
		return
	}
	for _, line := range strings.Split(strings.TrimSuffix(body, "\n"), "\n") {
		out.WriteString(prefix)
		out.WriteString(line)
		out.WriteString("\n")
	}
}

func requestBody(req *http.Request) string {
	if req.GetBody == nil {
		return ""
	}
	body, err := req.GetBody()
	if err != nil {
		return fmt.Sprintf("<failed to get body: %s>", err)
	}
	// resty hands out a nil body for requests without one
	if body == nil {
		return ""
	}
	defer body.Close()
	contents, err := io.ReadAll(body)
	if err != nil {
		return fmt.Sprintf("<failed to read body: %s>", err)
	}
	return string(contents)
}
