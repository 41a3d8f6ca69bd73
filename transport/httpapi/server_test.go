package httpapi

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/ledgergate"
	"github.com/MrEthical07/ledgergate/internal/metrics"
	"github.com/MrEthical07/ledgergate/internal/rate"
	"github.com/MrEthical07/ledgergate/permission"
	"github.com/MrEthical07/ledgergate/sessionkey"
	"github.com/MrEthical07/ledgergate/wire"
)

func newGateway(t *testing.T) (*ledgergate.Gateway, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := ledgergate.DefaultConfig()
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Session.SigningSecret = bytes.Repeat([]byte("s"), sessionkey.MinSecretLength)

	gw, err := ledgergate.New().WithConfig(cfg).WithRedis(rdb).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	t.Cleanup(gw.Close)
	if err := gw.Bootstrap(context.Background(), "root", "root-pw", permission.Root); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	return gw, mr
}

func post(t *testing.T, h http.Handler, req *wire.Request) (*httptest.ResponseRecorder, wire.Response) {
	t.Helper()
	r := httptest.NewRequest(http.MethodPost, RequestPath, bytes.NewReader(wire.EncodeRequest(req)))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	if rec.Code != http.StatusOK {
		return rec, wire.Response{}
	}
	resp, err := wire.DecodeResponse(rec.Body.Bytes())
	if err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return rec, resp
}

func TestRequestRoundTrip(t *testing.T) {
	gw, _ := newGateway(t)
	h := NewHandler(gw, Options{})

	rec, resp := post(t, h, &wire.Request{Request: "echo", Data: []byte("ping")})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != ContentType {
		t.Fatalf("content type = %q", ct)
	}
	if !resp.Successful || string(resp.Data) != "ping" {
		t.Fatalf("resp = %+v", resp)
	}

	_, resp = post(t, h, &wire.Request{Request: "session", User: "root", Password: "root-pw"})
	if !resp.Successful || len(resp.Data) == 0 {
		t.Fatalf("session resp = %+v", resp)
	}
}

func TestDenialIsStillHTTP200(t *testing.T) {
	gw, _ := newGateway(t)
	h := NewHandler(gw, Options{})

	rec, resp := post(t, h, &wire.Request{Request: "session", User: "root", Password: "nope"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if resp.Successful || string(resp.Data) != "Wrong user and/or password" {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestMalformedBody(t *testing.T) {
	gw, _ := newGateway(t)
	h := NewHandler(gw, Options{})

	r := httptest.NewRequest(http.MethodPost, RequestPath, strings.NewReader("\xff\xff\xff"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	resp, err := wire.DecodeResponse(rec.Body.Bytes())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Successful || string(resp.Data) != "Message not properly formatted" {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestBodyTooLarge(t *testing.T) {
	gw, _ := newGateway(t)
	h := NewHandler(gw, Options{MaxBodyBytes: 16})

	r := httptest.NewRequest(http.MethodPost, RequestPath, bytes.NewReader(make([]byte, 64)))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", rec.Code)
	}
}

func TestWrongMethod(t *testing.T) {
	gw, _ := newGateway(t)
	h := NewHandler(gw, Options{})

	cases := []struct {
		method string
		path   string
	}{
		{http.MethodGet, RequestPath},
		{http.MethodPut, RequestPath},
		{http.MethodPost, HealthPath},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Fatalf("%s %s: status = %d, want 405", tc.method, tc.path, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v2/request", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown path status = %d, want 404", rec.Code)
	}
}

func TestRateLimited(t *testing.T) {
	gw, _ := newGateway(t)
	h := NewHandler(gw, Options{Limiter: rate.NewBuckets(0.001, 1, 0)})

	if rec, _ := post(t, h, &wire.Request{Request: "echo"}); rec.Code != http.StatusOK {
		t.Fatalf("first status = %d", rec.Code)
	}
	rec, _ := post(t, h, &wire.Request{Request: "echo"})
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second status = %d, want 429", rec.Code)
	}
	if got := gw.MetricsSnapshot().Counters[metrics.RateLimited]; got != 1 {
		t.Fatalf("rate_limited = %d", got)
	}
}

func TestHealth(t *testing.T) {
	gw, mr := newGateway(t)
	h := NewHandler(gw, Options{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, HealthPath, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	mr.Close()
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, HealthPath, nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestMetricsRoute(t *testing.T) {
	gw, _ := newGateway(t)

	rec := httptest.NewRecorder()
	NewHandler(gw, Options{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, MetricsPath, nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unconfigured metrics status = %d", rec.Code)
	}

	metricsHandler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "metrics")
	})
	rec = httptest.NewRecorder()
	NewHandler(gw, Options{Metrics: metricsHandler}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, MetricsPath, nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "metrics" {
		t.Fatalf("metrics = %d %q", rec.Code, rec.Body.String())
	}
}
