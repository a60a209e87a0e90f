// Package scanner 扫描引擎：拉列表、逐只取日 K（缓存命中直接算）、判定形态、排序输出，全程可取消。
package scanner

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync"
	"time"

	"maScan/internal/api"
	"maScan/internal/cache"
	"maScan/internal/config"
	"maScan/internal/filter"
	"maScan/internal/indicator"
	"maScan/internal/model"
	"maScan/internal/rank"
	"maScan/internal/trace"
)

// 写入缓存前只保留最近的 K 线根数
const maxCachedBars = 80

const eventBuffer = 64

// Fetcher 列表与日 K 的数据来源，*api.Client 即为实现。
type Fetcher interface {
	Listing(ctx context.Context, p api.Provider, pageSize int) iter.Seq2[api.Page, error]
	FetchBars(ctx context.Context, p api.Provider, symbolID string, limit int, timeout time.Duration) (model.BarSeries, error)
}

// ProviderFunc 按名称取数据源。
type ProviderFunc func(config.Provider) (api.Provider, error)

// Engine 同一时刻只有一次扫描在跑；新的 RunOnce 会先取消并等待上一次。
type Engine struct {
	fetcher   Fetcher
	cache     *cache.Cache
	providers ProviderFunc
	now       func() time.Time

	runMu   sync.Mutex
	mu      sync.Mutex
	current *run
}

type Option func(*Engine)

// WithClock 替换时钟，用于判定当日未收盘 K。
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

func NewEngine(f Fetcher, c *cache.Cache, providers ProviderFunc, opts ...Option) *Engine {
	e := &Engine{fetcher: f, cache: c, providers: providers, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RunOnce 开始一次扫描，事件从返回的 channel 读出；终止事件之后 channel 关闭。
// 调用方须读到 channel 关闭为止。
func (e *Engine) RunOnce(ctx context.Context, cfg config.Scan) <-chan Event {
	e.runMu.Lock()
	defer e.runMu.Unlock()

	e.mu.Lock()
	prev := e.current
	e.mu.Unlock()
	if prev != nil {
		prev.cancel()
		<-prev.released
	}

	if trace.TraceID(ctx) == "" {
		ctx = trace.WithTraceID(ctx, trace.NewTraceID())
	}
	runCtx, cancel := context.WithCancel(ctx)
	r := &run{
		ctx:      runCtx,
		cancel:   cancel,
		cfg:      cfg,
		fetcher:  e.fetcher,
		cache:    e.cache,
		today:    e.now().Format(time.DateOnly),
		match:    filter.Strategy(cfg),
		venue:    filter.Venue(cfg.IncludeBJ),
		events:   make(chan Event, eventBuffer),
		released: make(chan struct{}),
	}

	setupErr := e.setup(r)

	e.mu.Lock()
	e.current = r
	e.mu.Unlock()

	if setupErr != nil {
		go r.fail(setupErr)
	} else {
		go r.execute()
	}
	return r.events
}

func (e *Engine) setup(r *run) error {
	if err := r.cfg.Validate(); err != nil {
		return err
	}
	if e.fetcher == nil || e.cache == nil || e.providers == nil {
		return errors.New("scanner: engine is missing fetcher, cache or providers")
	}
	p, err := e.providers(r.cfg.Provider)
	if err != nil {
		return err
	}
	r.provider = p
	return nil
}

// Cancel 取消当前扫描；可重复调用，Cancelled 只发一次。扫描已结束时无效果。
func (e *Engine) Cancel() {
	e.mu.Lock()
	r := e.current
	e.mu.Unlock()
	if r != nil {
		r.cancel()
	}
}

type attemptResult struct {
	task *task
	id   string
	bars model.BarSeries
	err  error
}

// run 一次扫描的全部状态，除 ctx/cancel 外只由协调 goroutine 读写。
type run struct {
	ctx      context.Context
	cancel   context.CancelFunc
	cfg      config.Scan
	provider api.Provider
	fetcher  Fetcher
	cache    *cache.Cache
	today    string
	match    filter.Criterion
	venue    func(model.Symbol) bool

	events   chan Event
	released chan struct{} // 在途请求已收完、缓存不再使用

	queue    []*task
	results  chan attemptResult
	inFlight int
	done     int
	total    int
	rows     []model.ResultRow
}

func (r *run) execute() {
	defer close(r.events)
	defer r.cancel()

	if err := r.cache.Load(r.ctx); err != nil {
		trace.Warn(r.ctx, "scanner: 读缓存失败，按空缓存继续: %v", err)
	}

	r.stage("拉取沪深京A股列表...")
	symbols, err := r.list()
	if err != nil {
		close(r.released)
		if r.ctx.Err() != nil {
			r.finishCancelled()
			return
		}
		trace.Warn(r.ctx, "scanner: %v", err)
		r.emit(Failed{Reason: err.Error(), Err: err})
		return
	}
	r.stage(fmt.Sprintf("列表完成：%d 只，开始计算 MA%d / 条件筛选...", len(symbols), r.cfg.MAPeriod))
	r.buildQueue(symbols)

	r.results = make(chan attemptResult, r.cfg.MaxInFlight)
	for r.ctx.Err() == nil {
		r.pump()
		if r.inFlight == 0 && len(r.queue) == 0 {
			break
		}
		select {
		case <-r.ctx.Done():
		case res := <-r.results:
			r.inFlight--
			r.complete(res)
		}
	}
	r.queue = nil
	for r.inFlight > 0 {
		<-r.results
		r.inFlight--
	}

	if r.ctx.Err() != nil {
		close(r.released)
		r.finishCancelled()
		return
	}
	r.finish()
}

// list 拉全部列表页，每页发一次进度（总数未知为 -1）。
func (r *run) list() ([]model.Symbol, error) {
	var (
		symbols []model.Symbol
		total   int
	)
	for page, err := range r.fetcher.Listing(r.ctx, r.provider, r.cfg.PageSize) {
		if err != nil {
			return nil, err
		}
		if page.Total > 0 {
			total = page.Total
		}
		symbols = append(symbols, page.Symbols...)
		if total > 0 {
			r.progress(len(symbols), total)
		} else {
			r.progress(len(symbols), -1)
		}
	}
	if err := r.ctx.Err(); err != nil {
		return nil, err
	}
	trace.Log(r.ctx, "scanner: %s 列表 %d 只", r.provider.Name(), len(symbols))
	return symbols, nil
}

// buildQueue 市场过滤只在入队时做一次，总数随之固定。
func (r *run) buildQueue(symbols []model.Symbol) {
	r.queue = make([]*task, 0, len(symbols))
	for _, s := range symbols {
		if r.venue(s) {
			r.queue = append(r.queue, newTask(s))
		}
	}
	r.done = 0
	r.total = len(r.queue)
	r.progress(0, r.total)
}

// pump 在并发上限内发请求；缓存命中的直接判定、计完成。
func (r *run) pump() {
	for r.inFlight < r.cfg.MaxInFlight && len(r.queue) > 0 {
		t := r.queue[0]
		r.queue = r.queue[1:]
		if r.fromCache(t) {
			continue
		}
		r.dispatch(t)
	}
}

// fromCache 缓存键用列表给出的市场；根数不足按未命中处理。
func (r *run) fromCache(t *task) bool {
	bs, ok := r.cache.Get(t.symbol.ID(t.symbol.Market))
	if !ok || bs.Len() < r.cfg.MinCachedBars() {
		return false
	}
	t.state = stateSuccess
	r.evaluate(t.symbol, bs)
	r.markDone()
	return true
}

func (r *run) dispatch(t *task) {
	t.start()
	id := t.symbolID()
	r.inFlight++
	go func() {
		bs, err := r.fetcher.FetchBars(r.ctx, r.provider, id, r.cfg.BarsLimit(), r.cfg.Timeout)
		r.results <- attemptResult{task: t, id: id, bars: bs, err: err}
	}()
}

func (r *run) complete(res attemptResult) {
	if r.ctx.Err() != nil {
		return
	}
	t := res.task
	switch t.next(res.err == nil, r.cfg.MaxRetries) {
	case stateNeedFallback, stateNeedRetry:
		trace.Debug(r.ctx, "scanner: %s 失败（%v），%s 第 %d 次尝试", res.id, res.err, t.state, t.attempts+1)
		r.dispatch(t)
	case stateExhausted:
		trace.Debug(r.ctx, "scanner: %s 放弃，共尝试 %d 次: %v", t.symbol.Code, t.attempts, res.err)
		r.markDone()
	case stateSuccess:
		bars := res.bars.Trim(maxCachedBars)
		r.cache.Put(res.id, bars)
		r.evaluate(t.symbol, bars)
		r.markDone()
	}
}

func (r *run) evaluate(s model.Symbol, bs model.BarSeries) {
	st := indicator.Evaluate(bs.Dates, bs.Closes, indicator.Params{
		Period:    r.cfg.MAPeriod,
		BelowDays: r.cfg.BelowDays,
		AboveDays: r.cfg.EffectiveAboveDays(),
	}, r.today)
	c := &filter.Candidate{Symbol: s, Stats: st}
	if !r.match(c) {
		return
	}
	row := filter.Row(c, r.cfg.WindowDays())
	r.rows = append(r.rows, row)
	r.send(Matched{Row: row})
}

func (r *run) markDone() {
	r.done++
	r.progress(r.done, r.total)
}

func (r *run) finish() {
	rank.Rows(r.rows, r.cfg.SortKey, r.cfg.SortDesc)
	if err := r.cache.Save(r.ctx); err != nil {
		trace.Warn(r.ctx, "scanner: 保存缓存失败: %v", err)
	}
	close(r.released)
	trace.Log(r.ctx, "scanner: 完成 %d/%d，入选 %d", r.done, r.total, len(r.rows))
	r.emit(StageChanged{Text: fmt.Sprintf("完成：%d 只满足条件", len(r.rows))})
	r.emit(Finished{Rows: r.rows})
}

func (r *run) finishCancelled() {
	trace.Log(r.ctx, "scanner: 已取消，完成 %d/%d", r.done, r.total)
	r.emit(StageChanged{Text: "已取消"})
	r.emit(Cancelled{})
}

// fail 启动前校验失败：不拉列表直接结束。
func (r *run) fail(err error) {
	defer close(r.events)
	defer r.cancel()
	close(r.released)
	trace.Warn(r.ctx, "scanner: %v", err)
	r.emit(Failed{Reason: err.Error(), Err: err})
}

func (r *run) stage(text string) { r.send(StageChanged{Text: text}) }

func (r *run) progress(done, total int) { r.send(Progress{Done: done, Total: total}) }

// send 非终止事件；取消后不再阻塞，可能丢弃。
func (r *run) send(ev Event) {
	select {
	case r.events <- ev:
	case <-r.ctx.Done():
	}
}

// emit 终止事件，一定送达。
func (r *run) emit(ev Event) { r.events <- ev }
