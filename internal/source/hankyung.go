package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/nao1215/reportscan/internal/extract"
	"github.com/nao1215/reportscan/internal/httpclient"
	"github.com/nao1215/reportscan/internal/identity"
)

// DefaultHankyungURL is the consensus search API endpoint.
const DefaultHankyungURL = "https://markets.hankyung.com/api/consensus/search/report"

// Hankyung reads the JSON consensus search API.
//
// The response carries the last page number and a "data" member that is
// either an array of report objects or an object keyed by row index.
type Hankyung struct {
	client *httpclient.Client
	query  Query
	opts   options
	base   *url.URL
}

// NewHankyung creates the JSON API source.
func NewHankyung(client *httpclient.Client, q Query, opts ...Option) (*Hankyung, error) {
	o := newOptions(DefaultHankyungURL, opts)
	base, err := url.Parse(o.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid hankyung url: %w", err)
	}
	return &Hankyung{client: client, query: q, opts: o, base: base}, nil
}

// Name implements Source.
func (h *Hankyung) Name() string { return NameHankyung }

// LastPage implements Source. It fetches the first page.
func (h *Hankyung) LastPage(ctx context.Context, id identity.Identity) (int, error) {
	p, err := h.FetchPage(ctx, 1, id)
	if err != nil {
		return 0, err
	}
	return p.LastPage, nil
}

// FetchPage implements Source.
func (h *Hankyung) FetchPage(ctx context.Context, page int, id identity.Identity) (*Page, error) {
	resp, err := h.client.Get(ctx, h.opts.baseURL, h.params(page), id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page %d: %w", page, err)
	}

	p, err := decodeHankyung(resp.Body, h.base)
	if err != nil {
		return nil, fmt.Errorf("page %d: %w", page, err)
	}
	p.Number = page

	h.opts.logger.Debug("fetched result page",
		"source", NameHankyung,
		"page", page,
		"last_page", p.LastPage,
		"records", len(p.Records))
	return p, nil
}

func (h *Hankyung) params(page int) url.Values {
	v := url.Values{}
	v.Set("page", strconv.Itoa(page))
	v.Set("reportType", h.query.reportType())
	v.Set("fromDate", h.query.From)
	v.Set("toDate", h.query.To)
	v.Set("gradeCode", "ALL")
	v.Set("changePrices", "ALL")
	v.Set("searchType", "ALL")
	if h.query.PageSize > 0 {
		v.Set("pageSize", strconv.Itoa(h.query.PageSize))
	}
	return v
}

type hankyungResponse struct {
	LastPage json.RawMessage `json:"last_page"`
	Data     json.RawMessage `json:"data"`
}

// decodeHankyung parses one API response body.
func decodeHankyung(body []byte, base *url.URL) (*Page, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		// Blocked requests are answered with an HTML error page.
		return nil, fmt.Errorf("%w: response is not a JSON object", ErrDecode)
	}

	var resp hankyungResponse
	if err := json.Unmarshal(trimmed, &resp); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	lastPage, err := decodeInt(resp.LastPage)
	if err != nil {
		return nil, fmt.Errorf("%w: last_page: %w", ErrDecode, err)
	}

	objects, err := decodeData(resp.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: data: %w", ErrDecode, err)
	}

	records := make([]extract.Record, 0, len(objects))
	for _, obj := range objects {
		records = append(records, extract.NewJSONRecord(obj, extract.HankyungKeys, base))
	}
	return &Page{LastPage: lastPage, Records: records}, nil
}

// decodeInt reads a JSON number or numeric string. Absent means 0.
func decodeInt(raw json.RawMessage) (int, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return 0, nil
	}
	s = strings.Trim(s, `"`)
	if s == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	return int(f), nil
}

// decodeData reads the data member, keeping the order of object members.
func decodeData(raw json.RawMessage) ([]map[string]any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	switch trimmed[0] {
	case '[':
		var list []map[string]any
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, err
		}
		return list, nil
	case '{':
		return decodeOrderedObject(trimmed)
	default:
		return nil, fmt.Errorf("unexpected JSON value %q", truncate(string(trimmed), 16))
	}
}

// decodeOrderedObject returns the member values of a JSON object in
// document order.
func decodeOrderedObject(raw []byte) ([]map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	if _, err := dec.Token(); err != nil {
		return nil, err
	}

	var out []map[string]any
	for dec.More() {
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		var obj map[string]any
		if err := dec.Decode(&obj); err != nil {
			return nil, err
		}
		if obj != nil {
			out = append(out, obj)
		}
	}
	return out, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
