package widgets

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"finboard/internal/storage"
)

func testRegistry(t *testing.T) (*Registry, *storage.Store) {
	t.Helper()
	backing, err := storage.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("创建存储失败: %v", err)
	}
	return NewRegistry(backing, zerolog.Nop()), backing
}

func tableWidget(title string, symbols ...string) Widget {
	return Widget{
		Type:   TypeTable,
		Title:  title,
		Size:   Size{W: 4, H: 3},
		Config: tableConfig(symbols...),
	}
}

func TestRegistryAddAssignsID(t *testing.T) {
	r, _ := testRegistry(t)

	stored, err := r.Add(tableWidget("Watchlist", "AAPL"))
	if err != nil {
		t.Fatalf("Add 失败: %v", err)
	}
	if stored.ID == "" {
		t.Fatal("Add 应分配 id")
	}

	got, err := r.Get(stored.ID)
	if err != nil {
		t.Fatalf("Get 失败: %v", err)
	}
	if got.Title != "Watchlist" {
		t.Fatalf("标题不一致: %s", got.Title)
	}
}

func TestRegistryAddRejectsInvalid(t *testing.T) {
	r, _ := testRegistry(t)

	if _, err := r.Add(Widget{Type: TypeTable, Title: "Bad"}); err == nil {
		t.Fatal("缺少 table 配置应被拒绝")
	}
	if _, err := r.Add(Widget{Type: TypeTable, Config: tableConfig("AAPL")}); err == nil {
		t.Fatal("缺少标题应被拒绝")
	}
	if len(r.List()) != 0 {
		t.Fatal("被拒绝的 widget 不应入库")
	}
}

func TestRegistryRemove(t *testing.T) {
	r, _ := testRegistry(t)

	stored, err := r.Add(tableWidget("Watchlist", "AAPL"))
	if err != nil {
		t.Fatalf("Add 失败: %v", err)
	}
	if err := r.Remove(stored.ID); err != nil {
		t.Fatalf("Remove 失败: %v", err)
	}
	if _, err := r.Get(stored.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("删除后应返回 ErrNotFound: %v", err)
	}
	if err := r.Remove("widget-does-not-exist"); err != nil {
		t.Fatalf("删除未知 id 不应报错: %v", err)
	}
}

func TestRegistryUpdateMergesAndValidates(t *testing.T) {
	r, _ := testRegistry(t)

	stored, err := r.Add(tableWidget("Watchlist", "AAPL"))
	if err != nil {
		t.Fatalf("Add 失败: %v", err)
	}

	title := "Tech Watchlist"
	updated, err := r.Update(stored.ID, Patch{Title: &title})
	if err != nil {
		t.Fatalf("Update 失败: %v", err)
	}
	if updated.Title != title {
		t.Fatalf("标题未更新: %s", updated.Title)
	}
	if len(updated.Config.Table.Symbols) != 1 {
		t.Fatal("未打补丁的字段应保留")
	}

	// 合并结果非法时整个更新回退
	bad := Config{Table: &TableConfig{}}
	if _, err := r.Update(stored.ID, Patch{Config: &bad}); err == nil {
		t.Fatal("非法的合并结果应被拒绝")
	}
	got, err := r.Get(stored.ID)
	if err != nil {
		t.Fatalf("Get 失败: %v", err)
	}
	if got.Title != title || len(got.Config.Table.Symbols) != 1 {
		t.Fatalf("失败的更新不应留下痕迹: %#v", got)
	}

	if _, err := r.Update("widget-unknown", Patch{Title: &title}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("未知 id 应返回 ErrNotFound: %v", err)
	}
}

func TestRegistryUpdateData(t *testing.T) {
	r, _ := testRegistry(t)

	stored, err := r.Add(tableWidget("Watchlist", "AAPL"))
	if err != nil {
		t.Fatalf("Add 失败: %v", err)
	}

	snapshot := json.RawMessage(`[{"symbol":"AAPL"}]`)
	if err := r.UpdateData(stored.ID, snapshot); err != nil {
		t.Fatalf("UpdateData 失败: %v", err)
	}

	got, err := r.Get(stored.ID)
	if err != nil {
		t.Fatalf("Get 失败: %v", err)
	}
	if string(got.Data) != string(snapshot) {
		t.Fatalf("快照未写入: %s", got.Data)
	}
	if got.LastUpdated == nil {
		t.Fatal("LastUpdated 应被设置")
	}
}

func TestRegistryPersistsAcrossReload(t *testing.T) {
	backing, err := storage.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("创建存储失败: %v", err)
	}

	r := NewRegistry(backing, zerolog.Nop())
	stored, err := r.Add(tableWidget("Watchlist", "AAPL", "MSFT"))
	if err != nil {
		t.Fatalf("Add 失败: %v", err)
	}

	reloaded := NewRegistry(backing, zerolog.Nop())
	reloaded.Load()
	got, err := reloaded.Get(stored.ID)
	if err != nil {
		t.Fatalf("重载后应找到 widget: %v", err)
	}
	if len(got.Config.Table.Symbols) != 2 {
		t.Fatalf("配置未完整持久化: %#v", got.Config)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	r, _ := testRegistry(t)

	if _, err := r.Add(tableWidget("Watchlist", "AAPL")); err != nil {
		t.Fatalf("Add 失败: %v", err)
	}
	if _, err := r.Add(Widget{
		Type:   TypeNews,
		Title:  "Headlines",
		Config: Config{News: &NewsConfig{Category: "business"}},
	}); err != nil {
		t.Fatalf("Add 失败: %v", err)
	}

	env := r.Export()
	if env.Version != ExportVersion {
		t.Fatalf("导出版本应为 %s, 实际 %s", ExportVersion, env.Version)
	}
	if env.ExportedAt.IsZero() {
		t.Fatal("导出时间应被设置")
	}

	other, _ := testRegistry(t)
	if err := other.Import(env); err != nil {
		t.Fatalf("Import 失败: %v", err)
	}

	a, b := r.List(), other.List()
	if len(a) != len(b) {
		t.Fatalf("导入后数量不一致: %d vs %d", len(a), len(b))
	}
	for i := range a {
		aj, _ := json.Marshal(a[i])
		bj, _ := json.Marshal(b[i])
		if string(aj) != string(bj) {
			t.Fatalf("widget %d 往返后不一致:\n%s\n%s", i, aj, bj)
		}
	}
}

func TestImportRejectsWithoutMutation(t *testing.T) {
	r, _ := testRegistry(t)
	stored, err := r.Add(tableWidget("Keep", "AAPL"))
	if err != nil {
		t.Fatalf("Add 失败: %v", err)
	}

	valid := tableWidget("Incoming", "MSFT")
	valid.ID = "widget-1-aaaaaaaaa"

	cases := []struct {
		name string
		env  Envelope
	}{
		{"no collection", Envelope{Version: ExportVersion}},
		{"missing id", Envelope{Version: ExportVersion, Widgets: []Widget{tableWidget("NoID", "AAPL")}}},
		{"duplicate ids", Envelope{Version: ExportVersion, Widgets: []Widget{valid, valid}}},
		{"invalid widget", Envelope{Version: ExportVersion, Widgets: []Widget{{ID: "widget-2-bbbbbbbbb", Type: TypeTable, Title: "Bad"}}}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if err := r.Import(c.env); err == nil {
				t.Fatal("应拒绝导入")
			}
			got := r.List()
			if len(got) != 1 || got[0].ID != stored.ID {
				t.Fatalf("失败的导入不应改动现有集合: %#v", got)
			}
		})
	}
}

func TestImportReplacesWholesale(t *testing.T) {
	r, _ := testRegistry(t)
	if _, err := r.Add(tableWidget("Old", "AAPL")); err != nil {
		t.Fatalf("Add 失败: %v", err)
	}

	incoming := tableWidget("New", "MSFT")
	incoming.ID = "widget-9-ccccccccc"
	if err := r.Import(Envelope{Version: ExportVersion, Widgets: []Widget{incoming}}); err != nil {
		t.Fatalf("Import 失败: %v", err)
	}

	got := r.List()
	if len(got) != 1 || got[0].ID != incoming.ID {
		t.Fatalf("导入应整体替换集合: %#v", got)
	}
}

func TestOnChangeDeliversMutationsInOrder(t *testing.T) {
	r, _ := testRegistry(t)

	sizes := make(chan int, 16)
	r.SetOnChange(func(ws []Widget) {
		sizes <- len(ws)
	})

	stored, err := r.Add(tableWidget("Watchlist", "AAPL"))
	if err != nil {
		t.Fatalf("Add 失败: %v", err)
	}
	if err := r.Remove(stored.ID); err != nil {
		t.Fatalf("Remove 失败: %v", err)
	}

	// 快速的增删必须按变更顺序送达, 否则刷新引擎会按旧快照
	// 复活已删除 widget 的定时器
	next := func() int {
		select {
		case n := <-sizes:
			return n
		case <-time.After(2 * time.Second):
			t.Fatal("等待快照送达超时")
			return -1
		}
	}
	if got := next(); got != 1 {
		t.Fatalf("第一个快照应包含 1 个 widget, 实际 %d", got)
	}
	if got := next(); got != 0 {
		t.Fatalf("最后送达的快照必须是最新状态 (空), 实际 %d", got)
	}
}

func TestClear(t *testing.T) {
	r, _ := testRegistry(t)
	if _, err := r.Add(tableWidget("W", "AAPL")); err != nil {
		t.Fatalf("Add 失败: %v", err)
	}
	if err := r.Clear(); err != nil {
		t.Fatalf("Clear 失败: %v", err)
	}
	if len(r.List()) != 0 {
		t.Fatal("Clear 后集合应为空")
	}
}
