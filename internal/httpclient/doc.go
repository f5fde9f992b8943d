// Package httpclient provides the HTTP client shared by the page sources
// and the document analyzer.
//
// Every request carries the caller's identity.Identity, so rotating the
// user agent between retries never mutates shared state. Traffic can be
// routed through a SOCKS5 proxy (--proxy), and response bodies are read
// with a size limit.
package httpclient
