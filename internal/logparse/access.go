package logparse

import (
	"strconv"
	"strings"

	"github.com/tinytelemetry/logstats/internal/model"
)

const (
	// RequestLine is the only request accepted in an access-log line.
	RequestLine = `"GET /projects/260 HTTP/1.1"`

	dateOpen  = " - ["
	dateClose = "] " + RequestLine + " "
)

// ParseLine matches one access-log line of the form
//
//	<ip> - [<date>] "GET /projects/260 HTTP/1.1" <status> <size>
//
// and returns the status code and byte size. ok is false for any line that
// deviates from that shape; ParseLine never panics.
func ParseLine(line string) (rec model.Record, ok bool) {
	line = strings.TrimSpace(line)

	ip, rest, found := strings.Cut(line, dateOpen)
	if !found || !isIPShaped(ip) {
		return model.Record{}, false
	}

	end := strings.IndexByte(rest, ']')
	if end <= 0 || strings.IndexByte(rest[:end], '[') >= 0 {
		return model.Record{}, false
	}
	if !strings.HasPrefix(rest[end:], dateClose) {
		return model.Record{}, false
	}
	rest = rest[end+len(dateClose):]

	statusField, sizeField, found := strings.Cut(rest, " ")
	if !found {
		return model.Record{}, false
	}
	status, ok := parseDigits(statusField, strconv.IntSize)
	if !ok {
		return model.Record{}, false
	}
	size, ok := parseDigits(sizeField, 64)
	if !ok {
		return model.Record{}, false
	}
	return model.Record{StatusCode: int(status), Bytes: size}, true
}

// FormatLine renders a line that ParseLine accepts.
func FormatLine(ip, date string, status int, size int64) string {
	return ip + dateOpen + date + dateClose + strconv.Itoa(status) + " " + strconv.FormatInt(size, 10)
}

// isIPShaped reports whether s is four dot-separated groups of one to three
// ASCII digits. Octet ranges are not checked.
func isIPShaped(s string) bool {
	groups := 0
	for {
		group, rest, more := strings.Cut(s, ".")
		if len(group) == 0 || len(group) > 3 || !allDigits(group) {
			return false
		}
		groups++
		if !more {
			break
		}
		s = rest
	}
	return groups == 4
}

// parseDigits parses a non-empty run of ASCII digits that fits in bitSize.
// strconv alone would also accept a leading sign.
func parseDigits(s string, bitSize int) (int64, bool) {
	if s == "" || !allDigits(s) {
		return 0, false
	}
	n, err := strconv.ParseInt(s, 10, bitSize)
	if err != nil {
		return 0, false
	}
	return n, true
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
