package domain

import (
	"net/url"
	"path"
	"strings"
)

// Strategy names one caching behavior applied to a routed request.
type Strategy string

const (
	// StrategyPassthrough sends the request to the network untouched.
	StrategyPassthrough Strategy = "passthrough"
	// StrategyCacheFirst prefers a fresh cached entry over the network.
	StrategyCacheFirst Strategy = "cache-first"
	// StrategyNetworkFirst prefers the network, falling back to cache.
	StrategyNetworkFirst Strategy = "network-first"
	// StrategyStaleWhileRevalidate serves cache immediately and refreshes
	// in the background.
	StrategyStaleWhileRevalidate Strategy = "stale-while-revalidate"
)

// Decision is the routing outcome for one request.
type Decision struct {
	Rule     string
	Strategy Strategy
	Class    NamespaceClass
	Trim     bool
}

// Router classifies intercepted requests into strategy and bucket class.
type Router struct {
	origin  *url.URL
	allowed map[string]bool
}

// NewRouter builds a router for the given origin. Allowed hosts extend the
// same-origin gate to trusted cross-origin hostnames.
func NewRouter(origin *url.URL, allowedHosts []string) *Router {
	allowed := make(map[string]bool, len(allowedHosts))
	for _, host := range allowedHosts {
		host = strings.ToLower(strings.TrimSpace(host))
		if host != "" {
			allowed[host] = true
		}
	}
	return &Router{origin: origin, allowed: allowed}
}

var staticExtensions = map[string]bool{
	".js":          true,
	".css":         true,
	".woff":        true,
	".woff2":       true,
	".ttf":         true,
	".ico":         true,
	".svg":         true,
	".webmanifest": true,
}

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
	".avif": true,
}

var fontProviderHosts = map[string]bool{
	"fonts.googleapis.com": true,
	"fonts.gstatic.com":    true,
}

// routeRule is one ordered classification step. Evaluation is first match
// wins; isolation gates run before strategy selection.
type routeRule struct {
	name     string
	match    func(r *Router, req Request) bool
	strategy Strategy
	class    NamespaceClass
	trim     bool
}

var routeRules = []routeRule{
	{
		name:     "foreign-origin",
		match:    func(r *Router, req Request) bool { return !r.trustedOrigin(req) },
		strategy: StrategyPassthrough,
	},
	{
		name:     "reserved-api",
		match:    func(r *Router, req Request) bool { return reservedAPI(req) },
		strategy: StrategyPassthrough,
	},
	{
		name:     "font-provider",
		match:    func(r *Router, req Request) bool { return fontProviderHosts[hostname(req)] },
		strategy: StrategyPassthrough,
	},
	{
		name: "static-asset",
		match: func(r *Router, req Request) bool {
			return staticExtensions[extension(req)] || strings.HasPrefix(requestPath(req), "/assets/")
		},
		strategy: StrategyCacheFirst,
		class:    ClassStatic,
	},
	{
		name:     "image",
		match:    func(r *Router, req Request) bool { return imageExtensions[extension(req)] },
		strategy: StrategyCacheFirst,
		class:    ClassImages,
		trim:     true,
	},
	{
		name:     "locale",
		match:    func(r *Router, req Request) bool { return strings.HasPrefix(requestPath(req), "/locales/") },
		strategy: StrategyStaleWhileRevalidate,
		class:    ClassDynamic,
	},
	{
		name: "navigation",
		match: func(r *Router, req Request) bool {
			return req.AcceptsHTML() || requestPath(req) == "/" || extension(req) == ""
		},
		strategy: StrategyNetworkFirst,
		class:    ClassDynamic,
		trim:     true,
	},
	{
		name:     "default",
		match:    func(r *Router, req Request) bool { return true },
		strategy: StrategyNetworkFirst,
		class:    ClassDynamic,
	},
}

// Route classifies req. Only GET over http(s) is considered cacheable;
// everything else passes through untouched.
func (r *Router) Route(req Request) Decision {
	if req.Method != "GET" || !httpScheme(req) {
		return Decision{Rule: "non-cacheable", Strategy: StrategyPassthrough}
	}
	for _, rule := range routeRules {
		if rule.match(r, req) {
			return Decision{Rule: rule.name, Strategy: rule.strategy, Class: rule.class, Trim: rule.trim}
		}
	}
	return Decision{Rule: "default", Strategy: StrategyNetworkFirst, Class: ClassDynamic}
}

// trustedOrigin reports whether the request targets the application origin
// or an allow-listed host. Relative URLs are always same-origin.
func (r *Router) trustedOrigin(req Request) bool {
	if req.URL == nil {
		return false
	}
	if req.URL.Host == "" {
		return true
	}
	if r.origin != nil && strings.EqualFold(req.URL.Host, r.origin.Host) {
		return true
	}
	return r.allowed[hostname(req)]
}

func reservedAPI(req Request) bool {
	p := requestPath(req)
	if p == "/api" || strings.HasPrefix(p, "/api/") {
		return true
	}
	return strings.HasPrefix(hostname(req), "api.")
}

func httpScheme(req Request) bool {
	if req.URL == nil {
		return false
	}
	if req.URL.Scheme == "" {
		return req.URL.Host == ""
	}
	scheme := strings.ToLower(req.URL.Scheme)
	return scheme == "http" || scheme == "https"
}

func hostname(req Request) string {
	if req.URL == nil {
		return ""
	}
	return strings.ToLower(req.URL.Hostname())
}

func requestPath(req Request) string {
	if req.URL == nil || req.URL.Path == "" {
		return "/"
	}
	return req.URL.Path
}

func extension(req Request) string {
	return strings.ToLower(path.Ext(requestPath(req)))
}
