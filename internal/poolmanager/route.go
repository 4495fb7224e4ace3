package poolmanager

import "github.com/urllib3/urllib3-go/urlutil"

// RouteKind selects how a connection reaches url's origin.
type RouteKind int

const (
	// RouteDirect dials url's host:port directly, TLS-wrapped iff https.
	RouteDirect RouteKind = iota
	// RouteForwardProxy dials the proxy (TLS-wrapped iff the proxy is
	// https) and sends an absolute-form request naming url as the target.
	RouteForwardProxy
	// RouteForwardProxyTLS TLS-wraps the hop to the proxy, then sends an
	// absolute-form request (proxy.scheme=https, url.scheme=http,
	// use_forwarding_for_https).
	RouteForwardProxyTLS
	// RouteTunnel dials the proxy (optionally TLS-wrapped), issues CONNECT
	// to url's origin, then TLS-wraps the tunnel to url's host.
	RouteTunnel
)

// Route is the resolved routing decision for one request.
type Route struct {
	Kind RouteKind

	// DialHost/DialPort is the first hop: the proxy if any, else url itself.
	DialHost string
	DialPort int
	DialTLS  bool // whether the first hop itself is TLS-wrapped

	// TunnelHost/TunnelPort/TunnelTLS apply only when Kind == RouteTunnel:
	// the inner target reached via CONNECT.
	TunnelHost string
	TunnelPort int
	TunnelTLS  bool
}

// Decide implements the routing table. proxy is nil for a direct
// connection. An http url through a proxy is always forwarded, never
// tunneled; useForwardingForHTTPS only matters when url is http and proxy is
// https, where it selects RouteForwardProxyTLS instead of RouteForwardProxy
// (both TLS-wrap the hop to the proxy). An https url is always tunneled.
func Decide(url *urlutil.URL, proxy *urlutil.URL, useForwardingForHTTPS bool) Route {
	if proxy == nil {
		return Route{
			Kind:     RouteDirect,
			DialHost: url.Host,
			DialPort: url.Port,
			DialTLS:  url.Scheme == "https",
		}
	}

	if url.Scheme == "http" {
		if proxy.Scheme == "https" && useForwardingForHTTPS {
			return Route{
				Kind:     RouteForwardProxyTLS,
				DialHost: proxy.Host,
				DialPort: proxy.Port,
				DialTLS:  true,
			}
		}
		return Route{
			Kind:     RouteForwardProxy,
			DialHost: proxy.Host,
			DialPort: proxy.Port,
			DialTLS:  proxy.Scheme == "https",
		}
	}

	// url.Scheme == "https": tunnel regardless of the proxy's own scheme.
	return Route{
		Kind:       RouteTunnel,
		DialHost:   proxy.Host,
		DialPort:   proxy.Port,
		DialTLS:    proxy.Scheme == "https",
		TunnelHost: url.Host,
		TunnelPort: url.Port,
		TunnelTLS:  true,
	}
}
