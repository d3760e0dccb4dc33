// Package transport holds the REST and WebSocket clients the scenarios talk
// through, plus the stream collector built on the WebSocket client.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"apiconform/bizstatus"
	"apiconform/checker"
	"apiconform/config"
	"apiconform/internal/jsonpath"
	"apiconform/internal/ratelimit"
	"apiconform/logger"
	"apiconform/models"
)

// Response is one HTTP exchange. A non-2xx status is data, not an error.
type Response struct {
	Status int
	Body   []byte
	JSON   *jsonpath.Value
}

// RestClient performs synchronous JSON calls against one base URL.
type RestClient struct {
	baseURL string
	headers map[string]string
	client  *http.Client
	limiter *rate.Limiter
	log     *logger.Entry
}

func NewRestClient(cfg config.RESTConfig) *RestClient {
	headers := map[string]string{"Content-Type": "application/json"}
	for k, v := range cfg.Headers {
		headers[k] = v
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	var limiter *rate.Limiter
	if cfg.RateLimit.RequestsPerSecond > 0 {
		burst := cfg.RateLimit.BurstSize
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit.RequestsPerSecond), burst)
	}

	return &RestClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		headers: headers,
		client:  &http.Client{Timeout: timeout},
		limiter: limiter,
		log:     logger.GetLogger().WithComponent("rest_client"),
	}
}

// URL joins path onto the base URL unless path is already absolute.
func (c *RestClient) URL(path string) string {
	if strings.HasPrefix(path, "http") {
		return path
	}
	return c.baseURL + "/" + strings.TrimLeft(path, "/")
}

// Execute sends one request for api. Params become the query string and a
// non-nil body is sent as JSON.
func (c *RestClient) Execute(ctx context.Context, api models.RestAPI, params map[string]any, body any) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	target := c.URL(api.URI())
	if len(params) > 0 {
		target += "?" + encodeQuery(params)
	}

	var reader io.Reader
	var bodyText string
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(raw)
		bodyText = string(raw)
	}

	method := strings.ToUpper(api.Method())
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	c.log.WithFields(logger.Fields{"method": method, "url": target, "body": bodyText}).Info("rest request")
	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.log.WithError(err).WithFields(logger.Fields{"method": method, "url": target}).Error("rest request failed")
		return nil, fmt.Errorf("%s %s: %w", method, target, err)
	}
	defer resp.Body.Close()
	logger.IncrementRestRequest()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	out := &Response{Status: resp.StatusCode, Body: raw}
	c.log.WithFields(logger.Fields{
		"status":      resp.StatusCode,
		"body":        string(raw),
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("rest response")

	if len(bytes.TrimSpace(raw)) == 0 {
		ratelimit.ReportFromReply(c.log, api.URI(), resp.StatusCode, 0, "")
		return out, nil
	}
	doc, err := jsonpath.Parse(raw)
	if err != nil {
		return out, fmt.Errorf("decode response body: %w", err)
	}
	out.JSON = doc
	code, _ := checker.BodyCode(doc)
	n, _ := code.Int64()
	msg := ""
	if m, ok := doc.Get("message"); ok {
		msg, _ = m.Text()
	}
	ratelimit.ReportFromReply(c.log, api.URI(), resp.StatusCode, n, msg)
	return out, nil
}

// ExecuteAndVerify sends the request, checks the HTTP status expected for
// expectedCode and the body code, then returns the decoded body.
func (c *RestClient) ExecuteAndVerify(ctx context.Context, api models.RestAPI, expectedCode int64, params map[string]any, body any) (*jsonpath.Value, error) {
	resp, err := c.Execute(ctx, api, params, body)
	if err != nil {
		return nil, err
	}
	if err := checker.HTTPStatus(resp.Status, bizstatus.ExpectedHTTPStatus(int(expectedCode))); err != nil {
		return resp.JSON, err
	}
	if resp.JSON == nil {
		return nil, fmt.Errorf("%s %s: empty response body", api.Method(), api.URI())
	}
	_, key := checker.BodyCode(resp.JSON)
	if err := checker.BizCode(resp.JSON, expectedCode, key); err != nil {
		return resp.JSON, err
	}
	return resp.JSON, nil
}

func encodeQuery(params map[string]any) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	q := url.Values{}
	for _, k := range keys {
		switch v := params[k].(type) {
		case nil:
		case []string:
			for _, s := range v {
				q.Add(k, s)
			}
		case []any:
			for _, s := range v {
				q.Add(k, fmt.Sprint(s))
			}
		default:
			q.Set(k, fmt.Sprint(v))
		}
	}
	return q.Encode()
}
