package tool

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"
)

var (
	// DefaultTimeout bounds a whole request; per-chunk deadlines are set by the caller's context.
	DefaultTimeout       = 5 * time.Minute
	ConnectionHttpClient *http.Client
)

func init() {
	ConnectionHttpClient = NewHTTPClient(false)
}

// NewHTTPClient creates the client used for the corpus API. insecure skips
// certificate verification for self-signed staging servers.
func NewHTTPClient(insecure bool) *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         dialer.DialContext,
		TLSClientConfig:     &tls.Config{InsecureSkipVerify: insecure},
		MaxIdleConns:        50,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		DisableKeepAlives:   false,
	}
	return &http.Client{
		Timeout:   DefaultTimeout,
		Transport: transport,
	}
}

// InitHTTPClients (re)initializes the shared client after config is loaded.
func InitHTTPClients(insecure bool) {
	ConnectionHttpClient = NewHTTPClient(insecure)
}

func GetHttpClient() *http.Client {
	return ConnectionHttpClient
}
