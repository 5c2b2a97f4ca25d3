package discovery

import "testing"

func TestDefaultGRPCAddr(t *testing.T) {
	tests := []struct {
		name    string
		service string
		want    string
	}{
		{name: "worker", service: ServiceWorker, want: "worker:8090"},
		{name: "unknown", service: "mystery", want: ""},
		{name: "whitespace", service: "  worker  ", want: "worker:8090"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := DefaultGRPCAddr(tc.service); got != tc.want {
				t.Fatalf("DefaultGRPCAddr(%q) = %q, want %q", tc.service, got, tc.want)
			}
		})
	}
}

func TestDefaultHTTPAddr(t *testing.T) {
	tests := []struct {
		name    string
		service string
		want    string
	}{
		{name: "worker gateway", service: ServiceWorker, want: "worker:8089"},
		{name: "app origin", service: ServiceApp, want: "app:3000"},
		{name: "push relay", service: ServicePushRelay, want: "pushrelay:8086"},
		{name: "unknown", service: "mystery", want: ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := DefaultHTTPAddr(tc.service); got != tc.want {
				t.Fatalf("DefaultHTTPAddr(%q) = %q, want %q", tc.service, got, tc.want)
			}
		})
	}
}

func TestOrDefaultHTTPBaseURL(t *testing.T) {
	if got := OrDefaultHTTPBaseURL("", ServiceApp); got != "http://app:3000" {
		t.Fatalf("OrDefaultHTTPBaseURL = %q, want %q", got, "http://app:3000")
	}
	if got := OrDefaultHTTPBaseURL("http://localhost:3000", ServiceApp); got != "http://localhost:3000" {
		t.Fatalf("OrDefaultHTTPBaseURL = %q, want explicit value", got)
	}
	if got := OrDefaultHTTPBaseURL("", "mystery"); got != "" {
		t.Fatalf("OrDefaultHTTPBaseURL = %q, want empty for unknown service", got)
	}
}

func TestOrDefaultWSBaseURL(t *testing.T) {
	if got := OrDefaultWSBaseURL("", ServicePushRelay); got != "ws://pushrelay:8086" {
		t.Fatalf("OrDefaultWSBaseURL = %q, want %q", got, "ws://pushrelay:8086")
	}
	if got := OrDefaultWSBaseURL("ws://localhost:9999", ServicePushRelay); got != "ws://localhost:9999" {
		t.Fatalf("OrDefaultWSBaseURL = %q, want explicit value", got)
	}
}

func TestOrDefaultGRPCAddr(t *testing.T) {
	if got := OrDefaultGRPCAddr(" ", ServiceWorker); got != "worker:8090" {
		t.Fatalf("OrDefaultGRPCAddr = %q, want %q", got, "worker:8090")
	}
	if got := OrDefaultGRPCAddr("localhost:7000", ServiceWorker); got != "localhost:7000" {
		t.Fatalf("OrDefaultGRPCAddr = %q, want explicit value", got)
	}
}
