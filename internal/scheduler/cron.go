package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// cronSchedule 五段式 cron：分 时 日 月 周。
type cronSchedule struct {
	minutes map[int]struct{}
	hours   map[int]struct{}
	doms    map[int]struct{}
	months  map[int]struct{}
	dows    map[int]struct{}
}

// parseSchedule 优先解析为 Go duration，其次为 cron 表达式，均失败时回退默认间隔。
func parseSchedule(value string, fallback time.Duration) (time.Duration, *cronSchedule) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback, nil
	}
	if d, err := time.ParseDuration(trimmed); err == nil && d > 0 {
		return d, nil
	}
	if schedule, err := parseCronSpec(trimmed); err == nil {
		return 0, schedule
	}
	return fallback, nil
}

func parseCronSpec(spec string) (*cronSchedule, error) {
	parts := strings.Fields(spec)
	if len(parts) != 5 {
		return nil, fmt.Errorf("cron spec must have 5 fields, got %d", len(parts))
	}
	bounds := [5]struct {
		name     string
		min, max int
	}{
		{"minutes", 0, 59},
		{"hours", 0, 23},
		{"day-of-month", 1, 31},
		{"month", 1, 12},
		{"day-of-week", 0, 6},
	}
	var sets [5]map[int]struct{}
	for i, b := range bounds {
		set, err := parseCronField(parts[i], b.min, b.max)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", b.name, err)
		}
		sets[i] = set
	}
	return &cronSchedule{minutes: sets[0], hours: sets[1], doms: sets[2], months: sets[3], dows: sets[4]}, nil
}

// parseCronField 支持 *、*/n、a-b、a-b/n 与逗号列表。
func parseCronField(expr string, min, max int) (map[int]struct{}, error) {
	result := make(map[int]struct{})
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, fmt.Errorf("empty field")
	}
	for _, part := range strings.Split(expr, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lo, hi, step := min, max, 1
		rangeExpr := part
		if base, s, ok := strings.Cut(part, "/"); ok {
			n, err := strconv.Atoi(s)
			if err != nil || n <= 0 {
				return nil, fmt.Errorf("invalid step %s", part)
			}
			step, rangeExpr = n, base
		}
		switch {
		case rangeExpr == "*":
		case strings.Contains(rangeExpr, "-"):
			a, b, _ := strings.Cut(rangeExpr, "-")
			var errA, errB error
			lo, errA = strconv.Atoi(a)
			hi, errB = strconv.Atoi(b)
			if errA != nil || errB != nil || lo < min || hi > max || lo > hi {
				return nil, fmt.Errorf("invalid range %s", part)
			}
		default:
			v, err := strconv.Atoi(rangeExpr)
			if err != nil || v < min || v > max {
				return nil, fmt.Errorf("invalid value %s", part)
			}
			lo, hi = v, v
		}
		for i := lo; i <= hi; i += step {
			result[i] = struct{}{}
		}
	}
	if len(result) == 0 {
		return nil, fmt.Errorf("no values parsed")
	}
	return result, nil
}

func (c *cronSchedule) matches(t time.Time) bool {
	checks := []struct {
		set map[int]struct{}
		v   int
	}{
		{c.minutes, t.Minute()},
		{c.hours, t.Hour()},
		{c.doms, t.Day()},
		{c.months, int(t.Month())},
		{c.dows, int(t.Weekday())},
	}
	for _, ch := range checks {
		if _, ok := ch.set[ch.v]; !ok {
			return false
		}
	}
	return true
}

func (c *cronSchedule) next(after time.Time) (time.Time, error) {
	start := after.Truncate(time.Minute).Add(time.Minute)
	for i := 0; i < 366*24*60; i++ {
		candidate := start.Add(time.Duration(i) * time.Minute)
		if c.matches(candidate) {
			return candidate, nil
		}
	}
	return time.Time{}, fmt.Errorf("no matching time within a year")
}
