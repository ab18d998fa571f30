package socket

import (
	"event-bridge/errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
)

// ResolveURL picks the gateway endpoint. A configured URL wins, then the
// page origin with its scheme mapped to ws/wss and the fallback port, then
// localhost on the fallback port.
func ResolveURL(configured, pageOrigin, path string, fallbackPort int) (string, error) {
	if configured != "" {
		u, err := url.Parse(configured)
		if err != nil {
			return "", fmt.Errorf("%w: socket url %q: %v", errors.ErrInvalidConfig, configured, err)
		}
		if u.Scheme != "ws" && u.Scheme != "wss" {
			return "", fmt.Errorf("%w: socket url %q must use ws or wss", errors.ErrInvalidConfig, configured)
		}
		return u.String(), nil
	}

	port := strconv.Itoa(fallbackPort)
	u := url.URL{Scheme: "ws", Host: net.JoinHostPort("localhost", port), Path: path}
	if pageOrigin == "" {
		return u.String(), nil
	}

	origin, err := url.Parse(pageOrigin)
	if err != nil || origin.Hostname() == "" {
		return "", fmt.Errorf("%w: page origin %q", errors.ErrInvalidConfig, pageOrigin)
	}
	switch origin.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	default:
		return "", fmt.Errorf("%w: page origin %q must use http or https", errors.ErrInvalidConfig, pageOrigin)
	}
	u.Host = net.JoinHostPort(origin.Hostname(), port)
	return u.String(), nil
}
