package audit

import "time"

// TimelineFilters narrows the audit trail of one company.
type TimelineFilters struct {
	CompanyID int64
	From      time.Time
	To        time.Time
	ActorID   int64
	Entity    string
	EntityID  string
	Action    string
	Page      int
	PageSize  int
}

// TimelineQuery is the repository form of TimelineFilters. Limit <= 0 means
// no limit.
type TimelineQuery struct {
	CompanyID int64
	From      time.Time
	To        time.Time
	ActorID   int64
	Entity    string
	EntityID  string
	Action    string
	Offset    int
	Limit     int
}

// TimelineRow is one stored audit record.
type TimelineRow struct {
	EventID  string         `json:"event_id"`
	At       time.Time      `json:"at"`
	ActorID  int64          `json:"actor_id"`
	Action   string         `json:"action"`
	Entity   string         `json:"entity"`
	EntityID string         `json:"entity_id"`
	Meta     map[string]any `json:"meta,omitempty"`
}

// PagingInfo describes the returned page.
type PagingInfo struct {
	Page     int  `json:"page"`
	PageSize int  `json:"page_size"`
	HasNext  bool `json:"has_next"`
	PrevPage int  `json:"prev_page,omitempty"`
	NextPage int  `json:"next_page,omitempty"`
}

// Result wraps a page of the timeline.
type Result struct {
	Rows   []TimelineRow `json:"rows"`
	Paging PagingInfo    `json:"paging"`
}
