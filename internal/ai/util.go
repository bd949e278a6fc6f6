package ai

import (
	"regexp"
	"strings"

	"github.com/keshon/stream-companion/pkg/util"
)

const maxReplyLen = 2800

var thinkBlock = regexp.MustCompile(`(?s)<think>.*?</think>`)

func isGarbageResponse(s string) bool {
	l := strings.ToLower(s)

	if strings.Contains(l, "<html") {
		return true
	}
	if strings.Contains(l, "not allowed") {
		return true
	}
	if len(strings.TrimSpace(s)) < 2 {
		return true
	}
	return false
}

func truncate(b []byte) string {
	return util.Truncate(string(b), 200)
}

// cleanReply strips reasoning blocks and wrapping quotes and caps the length.
func cleanReply(reply string) string {
	reply = strings.TrimSpace(reply)
	reply = thinkBlock.ReplaceAllString(reply, "")
	reply = strings.TrimSpace(reply)

	if len(reply) >= 2 {
		quotes := []struct{ open, close string }{
			{`"`, `"`}, {`'`, `'`}, {"“", "”"}, {"‘", "’"},
		}
		for _, q := range quotes {
			if len(reply) > len(q.open)+len(q.close) &&
				strings.HasPrefix(reply, q.open) && strings.HasSuffix(reply, q.close) {
				reply = strings.TrimSuffix(strings.TrimPrefix(reply, q.open), q.close)
				reply = strings.TrimSpace(reply)
				break
			}
		}
	}

	if len(reply) > maxReplyLen {
		cut := maxReplyLen
		for cut > 0 && !utf8RuneStart(reply[cut]) {
			cut--
		}
		reply = strings.TrimSpace(reply[:cut])
	}

	return reply
}

func utf8RuneStart(b byte) bool { return b&0xC0 != 0x80 }

// finish cleans a raw reply and maps unusable text to ErrEmptyReply.
func finish(raw string) (string, error) {
	reply := cleanReply(raw)
	if reply == "" || isGarbageResponse(reply) {
		return "", ErrEmptyReply
	}
	return reply, nil
}
