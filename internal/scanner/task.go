package scanner

import "maScan/internal/model"

type taskState int

const (
	statePending taskState = iota
	stateInFlight
	stateSuccess
	stateNeedFallback // 换下一个市场再试，不计重试
	stateNeedRetry    // 市场都试过，从头再来一轮
	stateExhausted    // 放弃，计为完成但不入选
)

func (s taskState) String() string {
	switch s {
	case statePending:
		return "pending"
	case stateInFlight:
		return "in_flight"
	case stateSuccess:
		return "success"
	case stateNeedFallback:
		return "need_fallback"
	case stateNeedRetry:
		return "need_retry"
	case stateExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// terminal 终态只计一次完成。
func (s taskState) terminal() bool {
	return s == stateSuccess || s == stateExhausted
}

// task 单只证券的抓取状态，只由协调 goroutine 修改。
type task struct {
	symbol   model.Symbol
	markets  []model.Market
	idx      int
	retry    int
	attempts int
	state    taskState
}

func newTask(s model.Symbol) *task {
	return &task{symbol: s, markets: fallbackMarkets(s.Market)}
}

// fallbackMarkets 已知市场在前，其余按 [深, 沪, 北] 补齐，不重复。
func fallbackMarkets(known model.Market) []model.Market {
	out := []model.Market{known}
	for _, m := range model.Markets {
		if m != known {
			out = append(out, m)
		}
	}
	return out
}

// symbolID 本次尝试使用的证券 id。
func (t *task) symbolID() string {
	m := t.symbol.Market
	if t.idx < len(t.markets) {
		m = t.markets[t.idx]
	}
	return t.symbol.ID(m)
}

func (t *task) start() {
	t.attempts++
	t.state = stateInFlight
}

// next 根据一次尝试的结果推进状态：失败先换市场，市场用尽再整体重试，重试用尽放弃。
func (t *task) next(ok bool, maxRetries int) taskState {
	switch {
	case ok:
		t.state = stateSuccess
	case t.idx+1 < len(t.markets):
		t.idx++
		t.state = stateNeedFallback
	case t.retry < maxRetries:
		t.retry++
		t.idx = 0
		t.state = stateNeedRetry
	default:
		t.state = stateExhausted
	}
	return t.state
}
