// Package cache 按交易日缓存日 K 收盘序列：整库只有一个日期，日期不是今天即整体作废。
package cache

import (
	"context"
	"fmt"
	"time"

	"maScan/internal/config"
	"maScan/internal/model"
	"maScan/internal/trace"
)

// Snapshot 持久化的整库内容。
type Snapshot struct {
	Date  string
	Items map[string]model.BarSeries
}

// Store 快照的持久化后端；不存在时 Load 返回空快照且不报错。
type Store interface {
	Load(ctx context.Context) (Snapshot, error)
	Save(ctx context.Context, s Snapshot) error
	Close() error
}

// IOError 缓存读写失败，不影响扫描。
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("cache %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// Cache 内存中的当日缓存，只在扫描协调 goroutine 中使用。
type Cache struct {
	store Store
	now   func() time.Time
	date  string
	items map[string]model.BarSeries
}

func New(store Store, now func() time.Time) *Cache {
	if now == nil {
		now = time.Now
	}
	return &Cache{store: store, now: now, items: map[string]model.BarSeries{}}
}

func (c *Cache) today() string { return c.now().Format(time.DateOnly) }

// Load 读入快照；日期不是今天或读取失败时缓存为空、日期置为今天。
func (c *Cache) Load(ctx context.Context) error {
	today := c.today()
	c.date = today
	c.items = map[string]model.BarSeries{}
	snap, err := c.store.Load(ctx)
	if err != nil {
		return err
	}
	if snap.Date != today {
		if snap.Date != "" {
			trace.Log(ctx, "cache: 缓存日期 %s 非今日 %s，已作废 %d 条", snap.Date, today, len(snap.Items))
		}
		return nil
	}
	for id, bs := range snap.Items {
		if bs.Valid() {
			c.items[id] = bs
		}
	}
	trace.Log(ctx, "cache: 载入 %d 条（%s）", len(c.items), today)
	return nil
}

func (c *Cache) Get(id string) (model.BarSeries, bool) {
	bs, ok := c.items[id]
	return bs, ok
}

func (c *Cache) Put(id string, bs model.BarSeries) {
	if !bs.Valid() {
		return
	}
	c.items[id] = bs
}

func (c *Cache) Len() int { return len(c.items) }

func (c *Cache) Date() string { return c.date }

// Save 写出整库；date 为载入时的日期。
func (c *Cache) Save(ctx context.Context) error {
	if c.date == "" {
		c.date = c.today()
	}
	if err := c.store.Save(ctx, Snapshot{Date: c.date, Items: c.items}); err != nil {
		return err
	}
	trace.Debug(ctx, "cache: 已保存 %d 条", len(c.items))
	return nil
}

func (c *Cache) Close() error { return c.store.Close() }

// NewStore 按配置的后端名打开存储。
func NewStore(backend, path string) (Store, error) {
	switch backend {
	case config.CacheBackendSQLite:
		s, err := NewSQLiteStore(path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.CacheBackendFile, "":
		return NewFileStore(path), nil
	default:
		return nil, fmt.Errorf("cache: unknown backend %q", backend)
	}
}
