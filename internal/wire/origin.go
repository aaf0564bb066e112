package wire

import "strings"

// isSameOrigin checks a WebSocket Origin header against the request Host
// for CSWSH protection (§6). localhost, 127.0.0.1, and [::1] are treated
// as equivalent so a browser on any loopback alias matches a server bound
// to another. Ported from the original gateway's is_same_origin.
func isSameOrigin(origin, host string) bool {
	originHost := origin
	if idx := strings.Index(origin, "://"); idx >= 0 {
		originHost = origin[idx+3:]
	}
	if idx := strings.Index(originHost, "/"); idx >= 0 {
		originHost = originHost[:idx]
	}

	originPort, hasOriginPort := getPort(originHost)
	hostPort, hasHostPort := getPort(host)

	oh := stripPort(originHost)
	hh := stripPort(host)

	sameHost := oh == hh || (isLoopback(oh) && isLoopback(hh))
	samePort := (hasOriginPort == hasHostPort) && originPort == hostPort
	return sameHost && samePort
}

func isLoopback(h string) bool {
	switch h {
	case "localhost", "127.0.0.1", "::1":
		return true
	default:
		return false
	}
}

// stripPort removes a trailing ":port" (or IPv6 "[addr]:port") from h.
func stripPort(h string) string {
	if strings.HasPrefix(h, "[") {
		if idx := strings.LastIndex(h, "]:"); idx >= 0 {
			return strings.Trim(h[:idx], "[]")
		}
		return strings.Trim(h, "[]")
	}
	if idx := strings.LastIndex(h, ":"); idx >= 0 {
		return h[:idx]
	}
	return h
}

// getPort extracts a trailing port from h, reporting whether one was present.
func getPort(h string) (string, bool) {
	if strings.HasPrefix(h, "[") {
		if idx := strings.LastIndex(h, "]:"); idx >= 0 {
			return h[idx+2:], true
		}
		return "", false
	}
	if idx := strings.LastIndex(h, ":"); idx >= 0 {
		return h[idx+1:], true
	}
	return "", false
}
