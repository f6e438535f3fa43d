package chat

import (
	"sort"
	"time"

	"cms_chat_console/internal/model"
	"cms_chat_console/pkg/constants"
)

// DayGroup 同一本地自然日内的消息
type DayGroup struct {
	Key      string    // dd.mm.yyyy
	Label    string    // "Today" 或 Key
	Date     time.Time // 当天 00:00（loc 时区）
	Messages []model.Message
}

// GroupByDay 按本地日期分桶，桶按日期升序，桶内保持原顺序
// 每次渲染重新计算，不做缓存
func GroupByDay(msgs []model.Message, now time.Time, loc *time.Location) []DayGroup {
	if loc == nil {
		loc = time.Local
	}
	index := make(map[string]int)
	var groups []DayGroup
	for _, m := range msgs {
		day := startOfDay(m.CreatedAt.In(loc))
		key := day.Format(constants.DAY_KEY_LAYOUT)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, DayGroup{Key: key, Label: DayLabel(day, now.In(loc)), Date: day})
		}
		groups[i].Messages = append(groups[i].Messages, m)
	}
	sort.SliceStable(groups, func(a, b int) bool {
		return groups[a].Date.Before(groups[b].Date)
	})
	return groups
}

// DayLabel 当天返回 "Today"，否则返回 dd.mm.yyyy
func DayLabel(day, now time.Time) string {
	if IsSameDay(day, now) {
		return constants.TODAY_LABEL
	}
	return day.Format(constants.DAY_KEY_LAYOUT)
}

// FormatDateOrTime 聊天列表里的时间：当天显示 HH:MM，否则显示 dd.mm.yyyy
func FormatDateOrTime(t, now time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	if loc == nil {
		loc = time.Local
	}
	t = t.In(loc)
	if IsSameDay(t, now.In(loc)) {
		return t.Format(constants.CLOCK_LAYOUT)
	}
	return t.Format(constants.DAY_KEY_LAYOUT)
}

// IsSameDay 两个时间是否落在同一自然日（按 a 的时区比较）
func IsSameDay(a, b time.Time) bool {
	b = b.In(a.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
