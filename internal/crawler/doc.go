// Package crawler walks the result pages of a report source and turns
// their records into validated reports.
//
// # State machine
//
// The loop state is the explicit State struct. A crawl moves through
//
//	Fetching(page) -> Fetching(page+1) -> ... -> Done
//	Fetching(page) -> Retrying(page, attempt) -> Fetching(page) ...
//	Fetching(page) -> AbortedRange
//	Retrying(page, limit) -> Exhausted
//
// The last page is resolved once, before the first page is fetched, and
// never changes afterwards. Page numbers only increase. Once a record older
// than the lower date bound is seen, ExceedRange is set and no further page
// is fetched: the source lists reports newest first.
//
// # Failures
//
// A failed fetch rotates the client identity and is retried after a linear
// backoff. When the retry limit is reached the crawl stops and returns what
// it has accumulated, without an error. A record that cannot become a
// report is skipped and never fails its page.
//
// # Usage
//
//	c := crawler.New(analyzer,
//	    crawler.WithBrokerages(cfg.Brokerages),
//	    crawler.WithLowerBound(cfg.StartDate),
//	    crawler.WithCategories(table),
//	)
//	res, err := c.Run(ctx, src)
package crawler
