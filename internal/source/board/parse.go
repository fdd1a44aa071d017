package board

import (
	"html"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Both board wire formats are ad hoc, field-count-validated, delimiter-split
// text. The parsers are total: any byte sequence yields a (possibly empty)
// result, with malformed lines skipped individually.

const fieldSep = "<>"

// ThreadStub is the minimal parsed representation of a thread from the board
// index, before its reply log has been fetched. Owned exclusively by this
// adapter for one fetch cycle.
type ThreadStub struct {
	ThreadID   string
	Title      string
	ReplyCount int
}

// Reply is one line of a thread's reply log.
type Reply struct {
	Author string
	Mail   string
	Stamp  time.Time // best-effort, zero when unparsable
	Body   string
}

// index title lines end with the reply count: "Sample Thread (42)"
var replyCountSuffix = regexp.MustCompile(`^(.*?)\s*[(（](\d+)[)）]\s*$`)

var threadIDPattern = regexp.MustCompile(`^(\d+)\.dat$`)

// ParseIndex parses the board index format: one thread per line,
// "<threadID>.dat<>Title (<replyCount>)". Lines with fewer than two fields,
// a malformed thread identifier, or a missing reply-count suffix are skipped.
func ParseIndex(text string) []ThreadStub {
	var stubs []ThreadStub

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}

		fields := strings.Split(line, fieldSep)
		if len(fields) < 2 {
			continue
		}

		idMatch := threadIDPattern.FindStringSubmatch(strings.TrimSpace(fields[0]))
		if idMatch == nil {
			continue
		}

		titleField := html.UnescapeString(strings.TrimSpace(fields[1]))
		m := replyCountSuffix.FindStringSubmatch(titleField)
		if m == nil {
			continue
		}
		count, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}

		stubs = append(stubs, ThreadStub{
			ThreadID:   idMatch[1],
			Title:      strings.TrimSpace(m[1]),
			ReplyCount: count,
		})
	}
	return stubs
}

// ParseThread parses the reply-log format: one reply per line,
// "author<>mail<>timestamp<>body" with the thread title as a fifth field on
// the first line only. Lines with fewer than four fields are skipped and
// parsing continues with the next line.
func ParseThread(text string) (title string, replies []Reply) {
	for i, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}

		fields := strings.Split(line, fieldSep)
		if len(fields) < 4 {
			continue
		}

		if i == 0 && len(fields) >= 5 {
			title = html.UnescapeString(strings.TrimSpace(fields[4]))
		}

		replies = append(replies, Reply{
			Author: html.UnescapeString(strings.TrimSpace(fields[0])),
			Mail:   strings.TrimSpace(fields[1]),
			Stamp:  parseStamp(fields[2]),
			Body:   cleanBody(fields[3]),
		})
	}
	return title, replies
}

// timestamps look like "2026/08/31(日) 12:34:56.78 ID:AbCdEf"
var stampPattern = regexp.MustCompile(`(\d{4})/(\d{2})/(\d{2}).*?(\d{2}):(\d{2}):(\d{2})`)

func parseStamp(s string) time.Time {
	m := stampPattern.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}
	}
	atoi := func(v string) int {
		n, _ := strconv.Atoi(v)
		return n
	}
	return time.Date(atoi(m[1]), time.Month(atoi(m[2])), atoi(m[3]),
		atoi(m[4]), atoi(m[5]), atoi(m[6]), 0, time.Local)
}

var tagPattern = regexp.MustCompile(`<[^>]*>`)

func cleanBody(s string) string {
	s = strings.ReplaceAll(s, "<br>", "\n")
	s = strings.ReplaceAll(s, "<br/>", "\n")
	s = strings.ReplaceAll(s, "<br />", "\n")
	s = tagPattern.ReplaceAllString(s, "")
	s = html.UnescapeString(s)

	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// threadCreatedAt recovers the thread creation time from its identifier,
// which is a Unix timestamp in this wire format.
func threadCreatedAt(threadID string) time.Time {
	sec, err := strconv.ParseInt(threadID, 10, 64)
	if err != nil || sec <= 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0)
}
