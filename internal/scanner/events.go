package scanner

import "maScan/internal/model"

// Event 扫描生命周期事件，终止事件为 Finished、Failed、Cancelled 之一。
type Event interface {
	event()
}

// StageChanged 阶段提示文本。
type StageChanged struct{ Text string }

// Progress Total <= 0 表示总数未知（列表阶段拿不到总数时）。
type Progress struct{ Done, Total int }

// Matched 单只入选，顺序为判定顺序，未排序。
type Matched struct{ Row model.ResultRow }

// Finished 排好序的全部结果。
type Finished struct{ Rows []model.ResultRow }

type Failed struct {
	Reason string
	Err    error
}

type Cancelled struct{}

func (StageChanged) event() {}
func (Progress) event()     {}
func (Matched) event()      {}
func (Finished) event()     {}
func (Failed) event()       {}
func (Cancelled) event()    {}
