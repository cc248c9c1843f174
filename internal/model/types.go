package model

// Record is one accepted access-log line reduced to the fields that are aggregated.
type Record struct {
	StatusCode int
	Bytes      int64
}

// StatusCodes is the fixed, ascending set of status codes eligible for
// frequency counting.
var StatusCodes = [...]int{200, 301, 400, 401, 403, 404, 405, 500}

// IsTrackedStatus reports whether code is a member of StatusCodes.
func IsTrackedStatus(code int) bool {
	switch code {
	case 200, 301, 400, 401, 403, 404, 405, 500:
		return true
	default:
		return false
	}
}

// StatusCount pairs a status code with the number of records seen for it.
type StatusCount struct {
	Code  int   `json:"code"`
	Count int64 `json:"count"`
}

// Snapshot is an immutable, point-in-time copy of the aggregate totals.
// Statuses holds only codes with a non-zero count, in ascending order.
type Snapshot struct {
	TotalBytes int64         `json:"total_bytes"`
	Accepted   int64         `json:"accepted"`
	Statuses   []StatusCount `json:"statuses"`
}

// Count returns the count recorded for code, or zero.
func (s Snapshot) Count(code int) int64 {
	for _, sc := range s.Statuses {
		if sc.Code == code {
			return sc.Count
		}
	}
	return 0
}
