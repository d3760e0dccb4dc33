package transport

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"apiconform/checker"
	"apiconform/config"
	"apiconform/models"
)

func newTestRestClient(t *testing.T, handler http.HandlerFunc) *RestClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewRestClient(config.RESTConfig{BaseURL: srv.URL + "/", Timeout: 2 * time.Second})
}

func TestRestURL(t *testing.T) {
	c := NewRestClient(config.RESTConfig{BaseURL: "https://api.example.com/exchange/v1/"})
	cases := []struct {
		path string
		want string
	}{
		{"public/get-candlestick", "https://api.example.com/exchange/v1/public/get-candlestick"},
		{"/public/get-candlestick", "https://api.example.com/exchange/v1/public/get-candlestick"},
		{"https://other.example.com/x", "https://other.example.com/x"},
	}
	for _, tc := range cases {
		if got := c.URL(tc.path); got != tc.want {
			t.Errorf("URL(%q) = %q, want %q", tc.path, got, tc.want)
		}
	}
}

func TestExecuteReturnsStatusAsData(t *testing.T) {
	var gotQuery, gotContentType, gotMethod string
	c := newTestRestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		gotContentType = r.Header.Get("Content-Type")
		gotMethod = r.Method
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"code":40003,"message":"INVALID_REQUEST"}`)
	})
	api := models.NewRestAPIBuilder("public/get-candlestick").MustBuild()

	resp, err := c.Execute(context.Background(), api, map[string]any{"instrument_name": "BTCUSD-PERP", "count": 10, "skip": nil}, nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if resp.Status != http.StatusBadRequest {
		t.Fatalf("status %d", resp.Status)
	}
	if gotMethod != http.MethodGet {
		t.Fatalf("method %s", gotMethod)
	}
	if gotQuery != "count=10&instrument_name=BTCUSD-PERP" {
		t.Fatalf("query %q", gotQuery)
	}
	if gotContentType != "application/json" {
		t.Fatalf("content type %q", gotContentType)
	}
	if v, ok := resp.JSON.Get("code"); !ok || v.String() != "40003" {
		t.Fatalf("code %v", v)
	}
}

func TestExecuteAndVerify(t *testing.T) {
	cases := []struct {
		name     string
		status   int
		body     string
		expected int64
		wantErr  bool
		failure  bool
	}{
		{"success", 200, `{"code":0,"result":{}}`, 0, false, false},
		{"biz code preferred", 400, `{"code":0,"biz_code":40004}`, 40004, false, false},
		{"abnormal", 400, `{"code":40003}`, 40003, false, false},
		{"http mismatch", 200, `{"code":40003}`, 40003, true, true},
		{"code mismatch", 200, `{"code":1}`, 0, true, true},
		{"bad json", 200, `<html>`, 0, true, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestRestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			})
			api := models.NewRestAPIBuilder("public/get-candlestick").MustBuild()
			_, err := c.ExecuteAndVerify(context.Background(), api, tc.expected, nil, nil)
			if tc.wantErr != (err != nil) {
				t.Fatalf("wantErr=%v, got %v", tc.wantErr, err)
			}
			if err != nil && checker.IsFailure(err) != tc.failure {
				t.Fatalf("failure=%v, got %T %v", tc.failure, err, err)
			}
		})
	}
}

func TestExecutePostsJSONBody(t *testing.T) {
	var body string
	c := newTestRestClient(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		body = string(raw)
		_, _ = io.WriteString(w, `{"code":0}`)
	})
	api := models.NewRestAPIBuilder("private/create-order").WithMethod("post").MustBuild()
	if _, err := c.Execute(context.Background(), api, nil, map[string]any{"side": "BUY"}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if body != `{"side":"BUY"}` {
		t.Fatalf("body %q", body)
	}
}
