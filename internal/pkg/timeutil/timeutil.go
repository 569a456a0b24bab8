package timeutil

import "time"

// NowMilli is the timestamp written to ctime/mtime/expires_at columns.
func NowMilli() int64 {
	return time.Now().UnixMilli()
}
