package compare

import "time"

// EventType 标识进度事件的种类
type EventType string

const (
	EventRunStarted        EventType = "run_started"
	EventProviderStarted   EventType = "provider_started"
	EventCostEstimated     EventType = "cost_estimated"
	EventProviderSkipped   EventType = "provider_skipped"
	EventProviderFailed    EventType = "provider_failed"
	EventProviderSucceeded EventType = "provider_succeeded"
	EventSummaryWritten    EventType = "summary_written"
	EventUploadSucceeded   EventType = "upload_succeeded"
	EventUploadFailed      EventType = "upload_failed"
	EventRunFinished       EventType = "run_finished"
)

// Event 是对比运行发出的结构化进度事件。
// 渲染交给订阅方（终端、日志或静默批处理）。
type Event struct {
	Type  EventType
	RunID string

	// Index/Total 在 provider 事件中为 1-based 位置与总数
	Model string
	Index int
	Total int

	// EventCostEstimated
	EstimatedCost float64

	// EventProviderSucceeded/Failed/Skipped 携带对应记录
	Entry *ResultEntry

	// EventSummaryWritten/Upload* 的本地路径与远端 URL
	Path string
	URL  string

	Elapsed time.Duration
	Err     error
}

// EventSink 接收事件；nil 表示静默
type EventSink func(Event)
