package models

type LabelCount struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}

type DailyCount struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// AnalyticsViewModel is the render-safe projection of a link analytics payload.
// Every slice is non-nil.
type AnalyticsViewModel struct {
	Link        *Link        `json:"link"`
	TotalClicks int64        `json:"total_clicks"`
	Devices     []LabelCount `json:"devices"`
	Browsers    []LabelCount `json:"browsers"`
	OS          []LabelCount `json:"os"`
	Countries   []LabelCount `json:"countries"`
	Referrers   []LabelCount `json:"referrers"`
	DailyClicks []DailyCount `json:"daily_clicks"`
}

type OverviewViewModel struct {
	TotalLinks  int64  `json:"total_links"`
	ActiveLinks int64  `json:"active_links"`
	TotalClicks int64  `json:"total_clicks"`
	TodayClicks int64  `json:"today_clicks"`
	TopLinks    []Link `json:"top_links"`
}
