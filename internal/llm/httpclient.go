package llm

import (
	"net"
	"net/http"
	"time"
)

// newLLMHTTPClient creates an HTTP client tuned for LLM API calls.
// Generation requests can take well over a minute on large prompts.
func newLLMHTTPClient() *http.Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 90 * time.Second,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   5,
		ForceAttemptHTTP2:     true,
	}

	return &http.Client{
		Timeout:   180 * time.Second,
		Transport: transport,
	}
}
