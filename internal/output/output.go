// Package output renders lookup results for the terminal or for other programs.
package output

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"carrierlookup/internal/freecarrier"
	"carrierlookup/pkg/fieldmap"

	"github.com/antzucaro/matchr"
	"github.com/jedib0t/go-pretty/v6/table"
)

var ErrUnknownFormat = errors.New("unknown output format")

const (
	FormatText  = "text"
	FormatCSV   = "csv"
	FormatJSON  = "json"
	FormatTable = "table"
)

var Formats = []string{FormatText, FormatCSV, FormatJSON, FormatTable}

// fields with a column of their own in csv and table output, anything else ends
// up in "Extra"
var knownFields = []string{
	"Carrier",
	"Is Wireless",
	"SMS Gateway Address",
	"MMS Gateway Address",
}

var columnHeader = append(append([]string{"Country Code", "Phone Number"}, knownFields...), "Extra")

type Writer interface {
	Write(result freecarrier.Result) error
	Flush() error
}

func New(format string, w io.Writer) (Writer, error) {
	switch strings.ToLower(format) {
	case FormatText, "":
		return &textWriter{w: w}, nil
	case FormatCSV:
		return newCSVWriter(w), nil
	case FormatJSON:
		return &jsonWriter{enc: json.NewEncoder(w)}, nil
	case FormatTable:
		return newTableWriter(w), nil
	}
	if suggestion := closestFormat(format); suggestion != "" {
		return nil, fmt.Errorf("%w: %q (did you mean %q?)", ErrUnknownFormat, format, suggestion)
	}
	return nil, fmt.Errorf("%w: %q (expected one of %s)", ErrUnknownFormat, format, strings.Join(Formats, ", "))
}

// closestFormat returns the known format most similar to a mistyped one, or ""
// when nothing is close.
func closestFormat(format string) string {
	format = strings.ToLower(format)
	best := ""
	bestSim := 0.8
	for _, f := range Formats {
		sim := matchr.JaroWinkler(format, f, false)
		if sim > bestSim {
			best = f
			bestSim = sim
		}
	}
	return best
}

// columns splits a result into the values of columnHeader.
func columns(result freecarrier.Result) []string {
	row := []string{result.Number.CC(), result.Number.National}

	remaining := make(map[string]string, len(result.Fields))
	for k, v := range result.Fields {
		remaining[k] = v
	}
	for _, field := range knownFields {
		row = append(row, remaining[field])
		delete(remaining, field)
	}
	return append(row, formatPairs(remaining, "=", "; "))
}

func formatPairs(fields map[string]string, sep, join string) string {
	pairs := make([]string, 0, len(fields))
	for _, k := range fieldmap.SortedKeys(fields) {
		pairs = append(pairs, k+sep+fields[k])
	}
	return strings.Join(pairs, join)
}

type textWriter struct {
	w io.Writer
}

// Write prints "+1 6502530000: {Carrier: XYZ, Is Wireless: n}".
func (t *textWriter) Write(result freecarrier.Result) error {
	_, err := fmt.Fprintf(t.w, "%s: {%s}\n", result.Number, formatPairs(result.Fields, ": ", ", "))
	return err
}

func (t *textWriter) Flush() error {
	return nil
}

type csvWriter struct {
	w             *csv.Writer
	headerWritten bool
}

func newCSVWriter(w io.Writer) *csvWriter {
	return &csvWriter{w: csv.NewWriter(w)}
}

func (c *csvWriter) writeHeader() error {
	if c.headerWritten {
		return nil
	}
	c.headerWritten = true
	return c.w.Write(columnHeader)
}

func (c *csvWriter) Write(result freecarrier.Result) error {
	err := c.writeHeader()
	if err != nil {
		return err
	}
	err = c.w.Write(columns(result))
	if err != nil {
		return err
	}
	// rows are flushed one by one so a long interactive run shows progress
	c.w.Flush()
	return c.w.Error()
}

func (c *csvWriter) Flush() error {
	err := c.writeHeader()
	if err != nil {
		return err
	}
	c.w.Flush()
	return c.w.Error()
}

type jsonResult struct {
	CountryCode int32             `json:"country_code"`
	PhoneNumber string            `json:"phone_number"`
	Fields      map[string]string `json:"fields"`
}

type jsonWriter struct {
	enc *json.Encoder
}

func (j *jsonWriter) Write(result freecarrier.Result) error {
	fields := result.Fields
	if fields == nil {
		fields = map[string]string{}
	}
	return j.enc.Encode(jsonResult{
		CountryCode: result.Number.CountryCode,
		PhoneNumber: result.Number.National,
		Fields:      fields,
	})
}

func (j *jsonWriter) Flush() error {
	return nil
}

type tableWriter struct {
	t    table.Writer
	rows int
}

func newTableWriter(w io.Writer) *tableWriter {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(w)

	header := make(table.Row, len(columnHeader))
	for i, h := range columnHeader {
		header[i] = h
	}
	t.AppendHeader(header)
	return &tableWriter{t: t}
}

func (t *tableWriter) Write(result freecarrier.Result) error {
	cols := columns(result)
	row := make(table.Row, len(cols))
	for i, c := range cols {
		row[i] = c
	}
	t.t.AppendRow(row)
	t.rows++
	return nil
}

func (t *tableWriter) Flush() error {
	if t.rows == 0 {
		return nil
	}
	t.t.Render()
	return nil
}
