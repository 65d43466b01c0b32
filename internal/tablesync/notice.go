package tablesync

import "time"

// NoticeKind distinguishes advisory notifications.
type NoticeKind int

const (
	NoticeConnected NoticeKind = iota
	NoticeTableUpdated
	NoticeDataRefreshed
	NoticeColumnAdded
	NoticeValueUpdated
	NoticeChannelError
	NoticeChannelClosed
)

func (k NoticeKind) String() string {
	switch k {
	case NoticeConnected:
		return "connected"
	case NoticeTableUpdated:
		return "table-updated"
	case NoticeDataRefreshed:
		return "data-refreshed"
	case NoticeColumnAdded:
		return "column-added"
	case NoticeValueUpdated:
		return "value-updated"
	case NoticeChannelError:
		return "channel-error"
	case NoticeChannelClosed:
		return "channel-closed"
	default:
		return "unknown"
	}
}

// Source says which producer caused a notice.
type Source string

const (
	SourceInitial Source = "initial"
	SourcePush    Source = "push"
	SourcePoll    Source = "poll"
	SourceManual  Source = "manual"
	SourceEdit    Source = "edit"
)

// Notice is a transient, auto-dismissing notification. Losing one is not an
// error.
type Notice struct {
	Kind    NoticeKind
	Source  Source
	Title   string
	Message string
	IsError bool
	At      time.Time
}
