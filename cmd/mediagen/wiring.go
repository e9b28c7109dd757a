package main

import (
	"time"
)

// sinceFlag 解析 --since：时长（168h）或日期（2006-01-02）
func sinceFlag(v string, now time.Time) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	if d, err := time.ParseDuration(v); err == nil {
		return now.Add(-d), nil
	}
	return time.ParseInLocation("2006-01-02", v, time.UTC)
}
