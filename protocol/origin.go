package protocol

import (
	"errors"
	"net"
	"net/url"
	"strings"
)

// ErrBadOrigin is returned for origins that are not scheme://host[:port].
var ErrBadOrigin = errors.New("[browserid] Malformed origin")

var defaultPorts = map[string]string{
	"http":  "80",
	"https": "443",
}

// NormalizeOrigin returns origin as lower-case scheme://host:port with
// the scheme's default port made explicit. Paths other than "/",
// queries, fragments and user info are rejected.
func NormalizeOrigin(origin string) (string, error) {
	u, err := url.Parse(origin)
	if err != nil || u.Scheme == "" || u.Host == "" || u.User != nil {
		return "", ErrBadOrigin
	}
	if (u.Path != "" && u.Path != "/") || u.RawQuery != "" || u.Fragment != "" {
		return "", ErrBadOrigin
	}
	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())
	port := u.Port()
	if port == "" {
		port = defaultPorts[scheme]
		if port == "" {
			return "", ErrBadOrigin
		}
	}
	return scheme + "://" + net.JoinHostPort(host, port), nil
}

// SameOrigin reports whether a and b name exactly the same scheme, host
// and port. There is no wildcard or sub-domain matching.
func SameOrigin(a, b string) bool {
	na, err := NormalizeOrigin(a)
	if err != nil {
		return false
	}
	nb, err := NormalizeOrigin(b)
	if err != nil {
		return false
	}
	return na == nb
}

// Hostname returns the host part of origin, or origin itself if it cannot
// be parsed.
func Hostname(origin string) string {
	u, err := url.Parse(origin)
	if err != nil || u.Hostname() == "" {
		return origin
	}
	return u.Hostname()
}
