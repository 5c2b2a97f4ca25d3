package domain

import (
	"net/http"
	"net/url"
	"testing"
)

func testRouter(t *testing.T, allowedHosts ...string) *Router {
	t.Helper()
	origin, err := url.Parse("https://app.di-web.test")
	if err != nil {
		t.Fatalf("parse origin: %v", err)
	}
	return NewRouter(origin, allowedHosts)
}

func TestRouteClassification(t *testing.T) {
	router := testRouter(t, "cdn.di-web.test", "api.di-web.test", "fonts.googleapis.com")

	cases := []struct {
		name   string
		method string
		url    string
		header http.Header
		want   Decision
	}{
		{
			name:   "post is non-cacheable",
			method: http.MethodPost,
			url:    "/api/items",
			want:   Decision{Rule: "non-cacheable", Strategy: StrategyPassthrough},
		},
		{
			name: "extension scheme is non-cacheable",
			url:  "chrome-extension://abcdef/page.js",
			want: Decision{Rule: "non-cacheable", Strategy: StrategyPassthrough},
		},
		{
			name: "foreign origin passes through",
			url:  "https://elsewhere.example/bundle.js",
			want: Decision{Rule: "foreign-origin", Strategy: StrategyPassthrough},
		},
		{
			name: "allow-listed host is trusted",
			url:  "https://cdn.di-web.test/lib.js",
			want: Decision{Rule: "static-asset", Strategy: StrategyCacheFirst, Class: ClassStatic},
		},
		{
			name: "api path passes through",
			url:  "/api/users/42",
			want: Decision{Rule: "reserved-api", Strategy: StrategyPassthrough},
		},
		{
			name: "bare api path passes through",
			url:  "/api",
			want: Decision{Rule: "reserved-api", Strategy: StrategyPassthrough},
		},
		{
			name: "api subdomain passes through",
			url:  "https://api.di-web.test/v1/items",
			want: Decision{Rule: "reserved-api", Strategy: StrategyPassthrough},
		},
		{
			name: "font provider passes through",
			url:  "https://fonts.googleapis.com/css2?family=Inter",
			want: Decision{Rule: "font-provider", Strategy: StrategyPassthrough},
		},
		{
			name: "script is a static asset",
			url:  "/static/js/main.3f9a.js",
			want: Decision{Rule: "static-asset", Strategy: StrategyCacheFirst, Class: ClassStatic},
		},
		{
			name: "stylesheet is a static asset",
			url:  "/static/css/main.css",
			want: Decision{Rule: "static-asset", Strategy: StrategyCacheFirst, Class: ClassStatic},
		},
		{
			name: "manifest is a static asset",
			url:  "/manifest.webmanifest",
			want: Decision{Rule: "static-asset", Strategy: StrategyCacheFirst, Class: ClassStatic},
		},
		{
			name: "assets prefix is static regardless of extension",
			url:  "/assets/blob.bin",
			want: Decision{Rule: "static-asset", Strategy: StrategyCacheFirst, Class: ClassStatic},
		},
		{
			name: "image is cached with trimming",
			url:  "/media/hero.png",
			want: Decision{Rule: "image", Strategy: StrategyCacheFirst, Class: ClassImages, Trim: true},
		},
		{
			name: "uppercase extension still matches",
			url:  "/media/HERO.WEBP",
			want: Decision{Rule: "image", Strategy: StrategyCacheFirst, Class: ClassImages, Trim: true},
		},
		{
			name: "locale bundle revalidates in background",
			url:  "/locales/pt-BR/common.json",
			want: Decision{Rule: "locale", Strategy: StrategyStaleWhileRevalidate, Class: ClassDynamic},
		},
		{
			name:   "html navigation is network first",
			url:    "/inbox/42",
			header: htmlHeader(),
			want:   Decision{Rule: "navigation", Strategy: StrategyNetworkFirst, Class: ClassDynamic, Trim: true},
		},
		{
			name: "root path is a navigation",
			url:  "/",
			want: Decision{Rule: "navigation", Strategy: StrategyNetworkFirst, Class: ClassDynamic, Trim: true},
		},
		{
			name: "extensionless path is a navigation",
			url:  "/dashboard",
			want: Decision{Rule: "navigation", Strategy: StrategyNetworkFirst, Class: ClassDynamic, Trim: true},
		},
		{
			name: "other document falls back to network first",
			url:  "/feed.xml",
			want: Decision{Rule: "default", Strategy: StrategyNetworkFirst, Class: ClassDynamic},
		},
		{
			name: "origin host comparison ignores case",
			url:  "https://APP.DI-WEB.TEST/media/hero.png",
			want: Decision{Rule: "image", Strategy: StrategyCacheFirst, Class: ClassImages, Trim: true},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			method := tc.method
			if method == "" {
				method = http.MethodGet
			}
			req, err := NewRequest(method, tc.url, tc.header, nil)
			if err != nil {
				t.Fatalf("new request: %v", err)
			}
			if got := router.Route(req); got != tc.want {
				t.Fatalf("route %s = %+v, want %+v", tc.url, got, tc.want)
			}
		})
	}
}

func TestRouteForeignFontHostWithoutAllowList(t *testing.T) {
	router := testRouter(t)

	req := getRequest(t, "https://fonts.gstatic.com/s/inter/v12/inter.woff2", nil)
	got := router.Route(req)
	if got.Rule != "foreign-origin" {
		t.Fatalf("rule = %q, want foreign-origin before font-provider", got.Rule)
	}
}

func TestRouteRelativeURLWithNilOrigin(t *testing.T) {
	router := NewRouter(nil, nil)

	req := getRequest(t, "/app.js", nil)
	got := router.Route(req)
	if got.Rule != "static-asset" {
		t.Fatalf("rule = %q, want static-asset for relative url", got.Rule)
	}

	absolute := getRequest(t, "https://app.di-web.test/app.js", nil)
	got = router.Route(absolute)
	if got.Rule != "foreign-origin" {
		t.Fatalf("rule = %q, want foreign-origin with no configured origin", got.Rule)
	}
}

func TestNewRouterNormalizesAllowedHosts(t *testing.T) {
	router := testRouter(t, "  CDN.di-web.test  ", "")

	req := getRequest(t, "https://cdn.di-web.test/lib.js", nil)
	if got := router.Route(req); got.Rule != "static-asset" {
		t.Fatalf("rule = %q, want static-asset for normalized allow-listed host", got.Rule)
	}
}
