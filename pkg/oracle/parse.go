package oracle

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	jsonrepair "github.com/kaptinlin/jsonrepair"
)

// ErrNoVerdict is returned when no JSON object can be recovered from the
// oracle output. Callers treat it as "not related".
var ErrNoVerdict = errors.New("no parseable verdict in oracle response")

var thinkTagRe = regexp.MustCompile(`(?s)<think>.*?</think>`)

// ParseVerdict extracts a Verdict from raw model output. Models wrap the
// JSON in prose, markdown code fences, or reasoning tags, and occasionally
// emit broken JSON; all of that is tolerated. Only a response with no
// recoverable object fails.
func ParseVerdict(raw string) (*Verdict, error) {
	s := thinkTagRe.ReplaceAllString(raw, "")
	s = stripCodeFence(s)

	// Narrow to the outermost object so leading/trailing prose is ignored.
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return nil, ErrNoVerdict
	}
	s = s[start : end+1]

	var v Verdict
	if err := json.Unmarshal([]byte(s), &v); err == nil {
		return &v, nil
	}

	repaired, err := jsonrepair.JSONRepair(s)
	if err != nil {
		return nil, ErrNoVerdict
	}
	if err := json.Unmarshal([]byte(repaired), &v); err != nil {
		return nil, ErrNoVerdict
	}
	return &v, nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	idx := strings.Index(s, "```")
	if idx < 0 {
		return s
	}
	s = s[idx+3:]
	// Drop an optional language tag on the fence line.
	if nl := strings.Index(s, "\n"); nl >= 0 {
		first := strings.TrimSpace(s[:nl])
		if len(first) <= 10 && !strings.ContainsAny(first, "{}") {
			s = s[nl+1:]
		}
	}
	if end := strings.LastIndex(s, "```"); end >= 0 {
		s = s[:end]
	}
	return strings.TrimSpace(s)
}
