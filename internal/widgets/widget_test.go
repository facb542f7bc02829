package widgets

import (
	"strings"
	"testing"

	"finboard/internal/market"
)

func tableConfig(symbols ...string) Config {
	return Config{Table: &TableConfig{Symbols: symbols}}
}

func TestConfigValidatePerType(t *testing.T) {
	cases := []struct {
		name    string
		typ     Type
		cfg     Config
		wantErr bool
	}{
		{"table ok", TypeTable, tableConfig("AAPL"), false},
		{"table no symbols", TypeTable, Config{Table: &TableConfig{}}, true},
		{"table missing variant", TypeTable, Config{}, true},
		{"card ok", TypeCard, Config{Card: &CardConfig{Kind: CardGainers}}, false},
		{"card unknown kind", TypeCard, Config{Card: &CardConfig{Kind: "losers"}}, true},
		{"chart ok", TypeChart, Config{Chart: &ChartConfig{Symbol: "AAPL", Interval: market.Interval1M}}, false},
		{"chart no symbol", TypeChart, Config{Chart: &ChartConfig{Interval: market.Interval1M}}, true},
		{"chart bad interval", TypeChart, Config{Chart: &ChartConfig{Symbol: "AAPL", Interval: "2D"}}, true},
		{"news ok", TypeNews, Config{News: &NewsConfig{Category: "business"}}, false},
		{"wrong variant", TypeNews, tableConfig("AAPL"), true},
		{"two variants", TypeTable, Config{Table: &TableConfig{Symbols: []string{"AAPL"}}, News: &NewsConfig{}}, true},
		{"unknown type", Type("gauge"), tableConfig("AAPL"), true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := c.cfg.Validate(c.typ)
			if c.wantErr && err == nil {
				t.Fatal("应返回校验错误")
			}
			if !c.wantErr && err != nil {
				t.Fatalf("不应返回错误: %v", err)
			}
		})
	}
}

func TestRefreshIntervals(t *testing.T) {
	for _, r := range []RefreshInterval{0, Refresh30s, Refresh1m, Refresh5m, Refresh10m} {
		cfg := tableConfig("AAPL")
		cfg.Refresh = r
		if err := cfg.Validate(TypeTable); err != nil {
			t.Fatalf("刷新间隔 %d 应合法: %v", r, err)
		}
	}

	cfg := tableConfig("AAPL")
	cfg.Refresh = 45
	if err := cfg.Validate(TypeTable); err == nil {
		t.Fatal("45s 不在允许的刷新间隔内")
	}

	if RefreshInterval(0).Duration() != Refresh1m.Duration() {
		t.Fatal("未设置时应默认为 1 分钟")
	}
}

func TestNewIDShape(t *testing.T) {
	id := newID()
	if !strings.HasPrefix(id, "widget-") {
		t.Fatalf("id 应以 widget- 开头: %s", id)
	}
	parts := strings.Split(id, "-")
	if len(parts) != 3 || len(parts[2]) != 9 {
		t.Fatalf("id 结构不正确: %s", id)
	}
	if newID() == id {
		t.Fatal("连续生成的 id 不应相同")
	}
}
