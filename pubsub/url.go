package pubsub

import (
	"net"
	"net/url"
	"strconv"
)

// DeriveURL returns the pub/sub endpoint of a node given its HTTP
// endpoint: http becomes ws, https becomes wss, and an explicit port is
// incremented by one since the pub/sub listener runs one port above the
// HTTP listener. Endpoints that are not http(s), or cannot be parsed, are
// returned unchanged.
func DeriveURL(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil {
		return endpoint
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return endpoint
	}
	if port := u.Port(); port != "" {
		// 65535 has no successor, such a port is kept as is.
		if p, err := strconv.ParseUint(port, 10, 16); err == nil && p < 65535 {
			u.Host = net.JoinHostPort(u.Hostname(), strconv.FormatUint(p+1, 10))
		}
	}
	return u.String()
}
