package source

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/PuerkitoBio/goquery"
	"github.com/nao1215/reportscan/internal/extract"
	"github.com/nao1215/reportscan/internal/httpclient"
	"github.com/nao1215/reportscan/internal/identity"
	"golang.org/x/net/html/charset"
)

// DefaultConsensusURL is the legacy consensus analysis list.
const DefaultConsensusURL = "http://consensus.hankyung.com/analysis/list"

// defaultConsensusPageSize is the row count the list page shows by default.
const defaultConsensusPageSize = 80

// Consensus reads the legacy HTML analysis list.
//
// Pages are served as EUC-KR. Each report is a <tr> of nine cells; the
// last page is read from the now_page parameter of the pagination links.
type Consensus struct {
	client *httpclient.Client
	query  Query
	opts   options
	base   *url.URL
}

// NewConsensus creates the HTML list source.
func NewConsensus(client *httpclient.Client, q Query, opts ...Option) (*Consensus, error) {
	o := newOptions(DefaultConsensusURL, opts)
	base, err := url.Parse(o.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid consensus url: %w", err)
	}
	return &Consensus{client: client, query: q, opts: o, base: base}, nil
}

// Name implements Source.
func (c *Consensus) Name() string { return NameConsensus }

// LastPage implements Source. It fetches the first page.
func (c *Consensus) LastPage(ctx context.Context, id identity.Identity) (int, error) {
	p, err := c.FetchPage(ctx, 1, id)
	if err != nil {
		return 0, err
	}
	return p.LastPage, nil
}

// FetchPage implements Source.
func (c *Consensus) FetchPage(ctx context.Context, page int, id identity.Identity) (*Page, error) {
	resp, err := c.client.Get(ctx, c.opts.baseURL, c.params(page), id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page %d: %w", page, err)
	}

	p, err := decodeConsensus(resp.Body, resp.ContentType, page, c.base)
	if err != nil {
		return nil, fmt.Errorf("page %d: %w", page, err)
	}

	c.opts.logger.Debug("fetched result page",
		"source", NameConsensus,
		"page", page,
		"last_page", p.LastPage,
		"records", len(p.Records))
	return p, nil
}

func (c *Consensus) params(page int) url.Values {
	size := c.query.PageSize
	if size <= 0 {
		size = defaultConsensusPageSize
	}
	v := url.Values{}
	v.Set("sdate", c.query.From)
	v.Set("edate", c.query.To)
	v.Set("now_page", strconv.Itoa(page))
	v.Set("search_value", "")
	v.Set("report_type", c.query.reportType())
	v.Set("pagenum", strconv.Itoa(size))
	v.Set("search_text", "")
	v.Set("business_code", "")
	return v
}

// consensusColumns is the number of cells in a report row.
const consensusColumns = 9

// decodeConsensus parses one list page. contentType selects the charset
// when the page does not declare one itself.
func decodeConsensus(body []byte, contentType string, page int, base *url.URL) (*Page, error) {
	r, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	p := &Page{Number: page}
	doc.Find("table tbody tr").Each(func(_ int, tr *goquery.Selection) {
		rec := extract.NewRowRecord(tr, extract.ConsensusColumns, base)
		if rec.Cells() < consensusColumns {
			// "no results" rows span the whole table.
			return
		}
		p.Records = append(p.Records, rec)
	})

	p.LastPage = lastPageFromLinks(doc)
	if p.LastPage < page && len(p.Records) > 0 {
		p.LastPage = page
	}
	return p, nil
}

// lastPageFromLinks returns the largest now_page found in the page's links.
func lastPageFromLinks(doc *goquery.Document) int {
	last := 0
	doc.Find(`a[href*="now_page="]`).Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		u, err := url.Parse(href)
		if err != nil {
			return
		}
		n, err := strconv.Atoi(u.Query().Get("now_page"))
		if err == nil && n > last {
			last = n
		}
	})
	return last
}
