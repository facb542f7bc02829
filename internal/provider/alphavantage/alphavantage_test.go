package alphavantage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"finboard/internal/market"
)

func noopLogger() zerolog.Logger {
	return zerolog.Nop()
}

func testAdapter(baseURL string) *Adapter {
	return New(Options{
		BaseURL:    baseURL,
		APIKey:     "test-key",
		Timeout:    time.Second,
		MaxRetries: 1,
	}, noopLogger())
}

func TestFetchQuoteSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("function"); got != "GLOBAL_QUOTE" {
			t.Fatalf("function 参数不正确: %s", got)
		}
		if got := r.URL.Query().Get("apikey"); got != "test-key" {
			t.Fatalf("apikey 参数不正确: %s", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"Global Quote": map[string]string{
				"01. symbol":         "AAPL",
				"02. open":           "189.50",
				"03. high":           "192.30",
				"04. low":            "188.90",
				"05. price":          "191.25",
				"06. volume":         "45000000",
				"09. change":         "1.75",
				"10. change percent": "0.9234%",
			},
		})
	}))
	defer srv.Close()

	quote, err := testAdapter(srv.URL).FetchQuote(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("成功响应不应报错: %v", err)
	}
	if quote.Symbol != "AAPL" {
		t.Fatalf("symbol 不正确: %s", quote.Symbol)
	}
	if quote.Price.Cmp(decimal.RequireFromString("191.25")) != 0 {
		t.Fatalf("价格解析错误: %s", quote.Price)
	}
	if quote.ChangePercent.Cmp(decimal.RequireFromString("0.9234")) != 0 {
		t.Fatalf("百分号后缀应被剥离: %s", quote.ChangePercent)
	}
	if quote.Volume != 45000000 {
		t.Fatalf("成交量解析错误: %d", quote.Volume)
	}
	if quote.High == nil || quote.High.Cmp(decimal.RequireFromString("192.30")) != 0 {
		t.Fatalf("high 解析错误: %v", quote.High)
	}
}

func TestFetchQuoteEmptyPayload(t *testing.T) {
	// 配额耗尽时 Alpha Vantage 返回 200 和空文档
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"Note": "rate limited"})
	}))
	defer srv.Close()

	_, err := testAdapter(srv.URL).FetchQuote(context.Background(), "AAPL")
	if !errors.Is(err, ErrEmptyPayload) {
		t.Fatalf("空文档应返回 ErrEmptyPayload, 实际 %v", err)
	}
}

func TestFetchQuoteHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	if _, err := testAdapter(srv.URL).FetchQuote(context.Background(), "AAPL"); err == nil {
		t.Fatal("HTTP 403 应返回错误")
	}
}

func TestFetchQuoteRetriesServerError(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"Global Quote": map[string]string{
				"01. symbol":         "AAPL",
				"05. price":          "100",
				"06. volume":         "1",
				"09. change":         "1",
				"10. change percent": "1%",
			},
		})
	}))
	defer srv.Close()

	if _, err := testAdapter(srv.URL).FetchQuote(context.Background(), "AAPL"); err != nil {
		t.Fatalf("5xx 后重试应成功: %v", err)
	}
	if calls != 2 {
		t.Fatalf("期望 2 次请求, 实际 %d", calls)
	}
}

func seriesPayload(key string, dates []string) map[string]any {
	series := make(map[string]any, len(dates))
	for _, d := range dates {
		series[d] = map[string]string{
			"1. open":   "100",
			"2. high":   "110",
			"3. low":    "90",
			"4. close":  "105",
			"5. volume": "1000",
		}
	}
	return map[string]any{key: series}
}

func TestFetchChartSeriesDaily(t *testing.T) {
	dates := []string{"2025-08-25", "2025-08-26", "2025-08-27", "2025-08-28", "2025-08-29"}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("function"); got != "TIME_SERIES_DAILY" {
			t.Fatalf("1W 应使用日线函数, 实际 %s", got)
		}
		_ = json.NewEncoder(w).Encode(seriesPayload("Time Series (Daily)", dates))
	}))
	defer srv.Close()

	points, err := testAdapter(srv.URL).FetchChartSeries(context.Background(), "AAPL", market.Interval1W)
	if err != nil {
		t.Fatalf("成功响应不应报错: %v", err)
	}
	if len(points) != len(dates) {
		t.Fatalf("期望 %d 个点, 实际 %d", len(dates), len(points))
	}
	for i := 1; i < len(points); i++ {
		if points[i].Date <= points[i-1].Date {
			t.Fatalf("序列应从旧到新排序: %s 在 %s 之后", points[i].Date, points[i-1].Date)
		}
	}
}

func TestFetchChartSeriesTruncatesToWindow(t *testing.T) {
	// 服务端返回 10 天, 1W 只保留最新的 7 天
	dates := make([]string, 0, 10)
	for day := 10; day <= 19; day++ {
		dates = append(dates, fmt.Sprintf("2025-08-%02d", day))
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(seriesPayload("Time Series (Daily)", dates))
	}))
	defer srv.Close()

	points, err := testAdapter(srv.URL).FetchChartSeries(context.Background(), "AAPL", market.Interval1W)
	if err != nil {
		t.Fatalf("成功响应不应报错: %v", err)
	}
	if len(points) != 7 {
		t.Fatalf("应截取到 7 个点, 实际 %d", len(points))
	}
	if points[0].Date != "2025-08-13" || points[6].Date != "2025-08-19" {
		t.Fatalf("应保留最新窗口: %s .. %s", points[0].Date, points[6].Date)
	}
}

func TestFetchChartSeriesIntradayParams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("function"); got != "TIME_SERIES_INTRADAY" {
			t.Fatalf("1D 应使用分时函数, 实际 %s", got)
		}
		if got := r.URL.Query().Get("interval"); got != "60min" {
			t.Fatalf("分时应请求 60min 粒度, 实际 %s", got)
		}
		_ = json.NewEncoder(w).Encode(seriesPayload("Time Series (60min)", []string{"2025-08-29 15:00:00", "2025-08-29 16:00:00"}))
	}))
	defer srv.Close()

	points, err := testAdapter(srv.URL).FetchChartSeries(context.Background(), "AAPL", market.Interval1D)
	if err != nil {
		t.Fatalf("成功响应不应报错: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("期望 2 个点, 实际 %d", len(points))
	}
}

func TestFetchChartSeriesMissingKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"Information": "rate limited"})
	}))
	defer srv.Close()

	_, err := testAdapter(srv.URL).FetchChartSeries(context.Background(), "AAPL", market.Interval1M)
	if !errors.Is(err, ErrEmptyPayload) {
		t.Fatalf("缺少序列键应返回 ErrEmptyPayload, 实际 %v", err)
	}
}
