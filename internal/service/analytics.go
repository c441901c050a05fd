package service

import (
	"unicode/utf8"

	"github.com/SergeiKhy/linkshort-web/internal/models"
	"github.com/tidwall/gjson"
)

const (
	maxReferrers        = 5
	maxReferrerLabelLen = 20
)

// Labels the backend uses for clicks without a referrer. Never truncated.
var directReferrerLabels = map[string]struct{}{
	"Doğrudan": {},
	"Direct":   {},
}

// ProjectAnalytics turns a /links/{id}/analytics payload of any shape into a
// render-safe view model. Distribution maps keep the payload's key order.
func ProjectAnalytics(raw []byte) models.AnalyticsViewModel {
	doc := parseDocument(raw)

	osStats := doc.Get("os")
	if !osStats.IsObject() {
		osStats = doc.Get("os_stats")
	}

	return models.AnalyticsViewModel{
		Link:        projectLink(doc.Get("link")),
		TotalClicks: countOf(doc.Get("total_clicks")),
		Devices:     distribution(doc.Get("devices")),
		Browsers:    distribution(doc.Get("browsers")),
		OS:          distribution(osStats),
		Countries:   distribution(doc.Get("countries")),
		Referrers:   referrers(doc.Get("referrers")),
		DailyClicks: dailyClicks(doc.Get("daily_clicks")),
	}
}

// ProjectOverview does the same for /analytics/overview.
func ProjectOverview(raw []byte) models.OverviewViewModel {
	doc := parseDocument(raw)

	top := []models.Link{}
	if links := doc.Get("top_links"); links.IsArray() {
		links.ForEach(func(_, value gjson.Result) bool {
			if link := projectLink(value); link != nil {
				top = append(top, *link)
			}
			return true
		})
	}

	return models.OverviewViewModel{
		TotalLinks:  countOf(doc.Get("total_links")),
		ActiveLinks: countOf(doc.Get("active_links")),
		TotalClicks: countOf(doc.Get("total_clicks")),
		TodayClicks: countOf(doc.Get("today_clicks")),
		TopLinks:    top,
	}
}

// parseDocument treats invalid JSON as an empty document.
func parseDocument(raw []byte) gjson.Result {
	if !gjson.ValidBytes(raw) {
		return gjson.Result{}
	}
	return gjson.ParseBytes(raw)
}

func countOf(v gjson.Result) int64 {
	if v.Type != gjson.Number {
		return 0
	}
	return v.Int()
}

func distribution(v gjson.Result) []models.LabelCount {
	out := []models.LabelCount{}
	if !v.IsObject() {
		return out
	}
	// A repeated key keeps its first position and takes the last value.
	index := map[string]int{}
	v.ForEach(func(key, value gjson.Result) bool {
		label := key.String()
		if i, seen := index[label]; seen {
			out[i].Count = countOf(value)
			return true
		}
		index[label] = len(out)
		out = append(out, models.LabelCount{Label: label, Count: countOf(value)})
		return true
	})
	return out
}

func referrers(v gjson.Result) []models.LabelCount {
	all := distribution(v)
	if len(all) > maxReferrers {
		all = all[:maxReferrers]
	}
	for i := range all {
		all[i].Label = truncateReferrer(all[i].Label)
	}
	return all
}

func truncateReferrer(label string) string {
	if _, ok := directReferrerLabels[label]; ok {
		return label
	}
	if utf8.RuneCountInString(label) <= maxReferrerLabelLen {
		return label
	}
	return string([]rune(label)[:maxReferrerLabelLen])
}

// dailyClicks passes entries through in order; no gap filling.
func dailyClicks(v gjson.Result) []models.DailyCount {
	out := []models.DailyCount{}
	if !v.IsArray() {
		return out
	}
	v.ForEach(func(_, entry gjson.Result) bool {
		if !entry.IsObject() {
			return true
		}
		count := entry.Get("count")
		if !count.Exists() {
			count = entry.Get("clicks")
		}
		out = append(out, models.DailyCount{
			Date:  entry.Get("date").String(),
			Count: countOf(count),
		})
		return true
	})
	return out
}

func projectLink(v gjson.Result) *models.Link {
	if !v.IsObject() {
		return nil
	}
	return &models.Link{
		ID:          v.Get("id").String(),
		UserID:      v.Get("user_id").String(),
		ShortCode:   v.Get("short_code").String(),
		OriginalURL: v.Get("original_url").String(),
		Title:       optionalString(v.Get("title")),
		ExpiresAt:   optionalString(v.Get("expires_at")),
		IsActive:    v.Get("is_active").Type != gjson.False,
		ClickCount:  countOf(v.Get("click_count")),
		CreatedAt:   v.Get("created_at").String(),
		QRCode:      optionalString(v.Get("qr_code")),
	}
}

func optionalString(v gjson.Result) *string {
	if v.Type != gjson.String {
		return nil
	}
	s := v.String()
	return &s
}
