// Package httpclient configures the HTTP clients the load generator uses
// against a running dashboard.
package httpclient

import (
	"fmt"
	"net"
	"net/http"
	"net/http/cookiejar"
	"time"
)

// NewTransport returns a pooled transport meant to be shared by many clients.
func NewTransport() *http.Transport {
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		MaxIdleConns:          1024,
		MaxIdleConnsPerHost:   256,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}

// NewOutbound creates a new outbound http client
func NewOutbound(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{Transport: NewTransport(), Timeout: timeout}
}

// NewViewer returns a client with its own cookie jar, so it holds exactly
// one dashboard session, over a shared transport.
func NewViewer(tr http.RoundTripper, timeout time.Duration) (*http.Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{Transport: tr, Jar: jar, Timeout: timeout}, nil
}
