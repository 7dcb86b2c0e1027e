package tool

import (
	"context"
	"fmt"
	"time"
)

var weekdayNames = map[time.Weekday]string{
	time.Monday:    "一",
	time.Tuesday:   "二",
	time.Wednesday: "三",
	time.Thursday:  "四",
	time.Friday:    "五",
	time.Saturday:  "六",
	time.Sunday:    "日",
}

// DateTimeTool reports the current date and time.
type DateTimeTool struct {
	now func() time.Time
}

// NewDateTimeTool returns a DateTimeTool on the system clock.
func NewDateTimeTool() *DateTimeTool {
	return &DateTimeTool{now: time.Now}
}

func (t *DateTimeTool) Name() string {
	return "get_datetime"
}

func (t *DateTimeTool) Description() string {
	return `获取当前日期和时间信息。
当用户询问以下问题时使用此工具：
- 今天几号？今天是几月几日？
- 现在几点了？
- 今天星期几？
- 现在是什么时间？
- 这个月有多少天？`
}

func (t *DateTimeTool) Parameters() []Param {
	return []Param{
		{
			Name:        "info_type",
			Type:        "string",
			Description: "需要获取的信息类型",
			Required:    false,
			Enum:        []string{"full", "date", "time", "weekday", "month_days"},
			Default:     "full",
		},
	}
}

func (t *DateTimeTool) Execute(_ context.Context, args map[string]any) Result {
	now := t.now()
	weekday := "星期" + weekdayNames[now.Weekday()]

	switch stringArg(args, "info_type", "full") {
	case "date":
		return Result{Success: true, Data: map[string]any{
			"date":  now.Format("2006年01月02日"),
			"year":  now.Year(),
			"month": int(now.Month()),
			"day":   now.Day(),
		}}
	case "time":
		return Result{Success: true, Data: map[string]any{
			"time":   now.Format("15:04:05"),
			"hour":   now.Hour(),
			"minute": now.Minute(),
			"period": dayPeriod(now.Hour()),
		}}
	case "weekday":
		isoWeekday := int(now.Weekday())
		if isoWeekday == 0 {
			isoWeekday = 7
		}
		return Result{Success: true, Data: map[string]any{
			"weekday":        weekday,
			"weekday_number": isoWeekday,
			"is_weekend":     isoWeekday >= 6,
		}}
	case "month_days":
		days := daysInMonth(now)
		return Result{Success: true, Data: map[string]any{
			"month":          int(now.Month()),
			"total_days":     days,
			"passed_days":    now.Day(),
			"remaining_days": days - now.Day(),
		}}
	default:
		return Result{Success: true, Data: map[string]any{
			"datetime":  fmt.Sprintf("%s %s", now.Format("2006年01月02日"), now.Format("15:04:05")),
			"date":      now.Format("2006年01月02日"),
			"time":      now.Format("15:04"),
			"weekday":   weekday,
			"period":    dayPeriod(now.Hour()),
			"timestamp": now.Unix(),
		}}
	}
}

func dayPeriod(hour int) string {
	switch {
	case hour < 12:
		return "上午"
	case hour < 18:
		return "下午"
	default:
		return "晚上"
	}
}

func daysInMonth(now time.Time) int {
	firstOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return firstOfMonth.AddDate(0, 1, -1).Day()
}
