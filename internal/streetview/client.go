// 包 streetview：街景静态图 REST 客户端，提供可用性查询（metadata）与图片下载
package streetview

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"streetview-randomizer/internal/geo"
	"streetview-randomizer/internal/logger"
	"streetview-randomizer/internal/metrics"
	"streetview-randomizer/internal/oracle"
)

const (
	DefaultEndpoint = "https://maps.googleapis.com/maps/api/streetview"
	DefaultTimeout  = 10 * time.Second
)

// Options configures Client.
type Options struct {
	Endpoint string
	Key      string
	// Timeout 为单次请求超时，超时按传输错误处理
	Timeout time.Duration
	// QPS 为每秒最大请求数；0 表示不限速
	QPS        float64
	HTTPClient *http.Client
}

// 文档注释：街景 REST 客户端
// 背景：metadata 接口不计费且只返回是否有图与最近全景点坐标，用作采样循环的可用性查询；图片接口仅在坐标确定后调用。
// 约束：密钥只出现在查询串中，不写入日志；所有请求共享同一限速器。
type Client struct {
	endpoint string
	key      string
	http     *http.Client
	limiter  *rate.Limiter
}

func New(opt Options) (*Client, error) {
	if opt.Key == "" {
		return nil, fmt.Errorf("%w: missing API key (set GOOGLE_MAPS_API_KEY or pass -k)", oracle.ErrAuth)
	}
	if opt.Endpoint == "" {
		opt.Endpoint = DefaultEndpoint
	}
	if opt.Timeout <= 0 {
		opt.Timeout = DefaultTimeout
	}
	hc := opt.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opt.Timeout}
	}
	lim := rate.NewLimiter(rate.Inf, 1)
	if opt.QPS > 0 {
		lim = rate.NewLimiter(rate.Limit(opt.QPS), 1)
	}
	return &Client{endpoint: strings.TrimRight(opt.Endpoint, "/"), key: opt.Key, http: hc, limiter: lim}, nil
}

type metadataResponse struct {
	Status       string `json:"status"`
	PanoID       string `json:"pano_id"`
	Date         string `json:"date"`
	ErrorMessage string `json:"error_message"`
	Location     *struct {
		Lat float64 `json:"lat"`
		Lng float64 `json:"lng"`
	} `json:"location"`
}

// 文档注释：查询坐标附近是否存在街景
// 参数：
// - at：候选坐标；
// - radiusM：搜索半径（米），由调用方校验范围。
// 返回：found 以及响应中的全景点坐标（无 location 字段时为原坐标）。
// 约束：OK 为找到；ZERO_RESULTS/NOT_FOUND 为未找到；REQUEST_DENIED 为 ErrAuth；
// OVER_QUERY_LIMIT/UNKNOWN_ERROR 为 ErrTransport；其余状态、无法解析的响应或越界的 location 为 ErrProtocol。
func (c *Client) Check(ctx context.Context, at geo.Coordinate, radiusM int) (bool, geo.Coordinate, error) {
	q := url.Values{}
	q.Set("location", at.String())
	q.Set("radius", strconv.Itoa(radiusM))
	q.Set("key", c.key)

	t0 := time.Now()
	logger.L().Debug("oracle_req", "location", at.String(), "radius", radiusM)
	body, err := c.get(ctx, c.endpoint+"/metadata?"+q.Encode())
	metrics.OracleDurationMs.Observe(float64(time.Since(t0).Milliseconds()))
	if err != nil {
		metrics.OracleRequestsTotal.WithLabelValues("error").Inc()
		logger.L().Error("oracle_http_error", "err", err)
		return false, at, err
	}
	var r metadataResponse
	if err := json.Unmarshal(body, &r); err != nil {
		metrics.OracleRequestsTotal.WithLabelValues("error").Inc()
		logger.L().Error("oracle_decode_error", "err", err)
		return false, at, fmt.Errorf("%w: decode metadata: %w", oracle.ErrProtocol, err)
	}
	logger.L().Debug("oracle_resp", "location", at.String(), "status", r.Status, "pano_id", r.PanoID,
		"duration_ms", time.Since(t0).Milliseconds())

	snapped := at
	if r.Location != nil {
		snapped = geo.Coordinate{Lat: r.Location.Lat, Lon: r.Location.Lng}
		if !snapped.Valid() {
			metrics.OracleRequestsTotal.WithLabelValues("error").Inc()
			return false, at, fmt.Errorf("%w: location out of range: %s", oracle.ErrProtocol, snapped)
		}
	}
	switch r.Status {
	case "OK":
		metrics.OracleRequestsTotal.WithLabelValues("found").Inc()
		return true, snapped, nil
	case "ZERO_RESULTS", "NOT_FOUND":
		metrics.OracleRequestsTotal.WithLabelValues("not_found").Inc()
		return false, snapped, nil
	}
	metrics.OracleRequestsTotal.WithLabelValues("error").Inc()
	switch r.Status {
	case "REQUEST_DENIED":
		return false, at, fmt.Errorf("%w: %s", oracle.ErrAuth, statusText(r))
	case "OVER_QUERY_LIMIT", "UNKNOWN_ERROR":
		return false, at, fmt.Errorf("%w: %s", oracle.ErrTransport, statusText(r))
	default:
		return false, at, fmt.Errorf("%w: unexpected status %s", oracle.ErrProtocol, statusText(r))
	}
}

func statusText(r metadataResponse) string {
	if r.ErrorMessage == "" {
		return strconv.Quote(r.Status)
	}
	return strconv.Quote(r.Status) + " (" + r.ErrorMessage + ")"
}

// ImageOptions selects the camera for a static image.
type ImageOptions struct {
	// Size 形如 "640x640"
	Size    string
	Heading int
	Pitch   int
	FOV     int
}

// Image downloads the static image for a coordinate.
// A response that is not an image (the service reports errors as text) yields ErrProtocol.
func (c *Client) Image(ctx context.Context, at geo.Coordinate, opt ImageOptions) ([]byte, error) {
	q := url.Values{}
	q.Set("location", at.String())
	q.Set("size", opt.Size)
	q.Set("heading", strconv.Itoa(opt.Heading))
	q.Set("pitch", strconv.Itoa(opt.Pitch))
	q.Set("fov", strconv.Itoa(opt.FOV))
	q.Set("key", c.key)

	logger.L().Debug("image_req", "location", at.String(), "size", opt.Size, "heading", opt.Heading, "pitch", opt.Pitch, "fov", opt.FOV)
	req, err := c.newRequest(ctx, c.endpoint+"?"+q.Encode())
	if err != nil {
		return nil, err
	}
	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read image: %w", oracle.ErrTransport, err)
	}
	if err := classifyStatus(resp.StatusCode, body); err != nil {
		return nil, err
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "image/") {
		return nil, fmt.Errorf("%w: expected image, got %q: %s", oracle.ErrProtocol, ct, snippet(body))
	}
	return body, nil
}

func (c *Client) get(ctx context.Context, u string) ([]byte, error) {
	req, err := c.newRequest(ctx, u)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", oracle.ErrTransport, err)
	}
	if err := classifyStatus(resp.StatusCode, body); err != nil {
		return nil, err
	}
	return body, nil
}

func (c *Client) newRequest(ctx context.Context, u string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", oracle.ErrProtocol, err)
	}
	return req, nil
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return nil, fmt.Errorf("%w: rate limiter: %w", oracle.ErrTransport, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", oracle.ErrTransport, err)
	}
	return resp, nil
}

// HTTP 状态分类：401/403 为鉴权失败，429/5xx 可重试，其余非 200 视为协议错误
func classifyStatus(code int, body []byte) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return fmt.Errorf("%w: http %d: %s", oracle.ErrAuth, code, snippet(body))
	case code == http.StatusTooManyRequests || code >= 500:
		return fmt.Errorf("%w: http %d", oracle.ErrTransport, code)
	default:
		return fmt.Errorf("%w: http %d: %s", oracle.ErrProtocol, code, snippet(body))
	}
}

func snippet(b []byte) string {
	const limit = 200
	s := strings.TrimSpace(string(b))
	if len(s) > limit {
		s = s[:limit] + "..."
	}
	return s
}
