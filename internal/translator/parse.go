package translator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/MeKo-Tech/retype/internal/layout"
)

// ParseSegments reads the model's reply. It accepts a bare JSON array, an
// object wrapping the array in "segments", and either of those inside a
// markdown code fence. Only a reply that is not such a JSON value is an
// error: malformed entries decode leniently into segments the layout
// session skips with a reason.
func ParseSegments(text string) ([]layout.Segment, error) {
	body := bytes.TrimSpace([]byte(stripCodeFence(text)))
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: empty reply", ErrInvalidResponse)
	}

	switch body[0] {
	case '[':
		var segs []layout.Segment
		if err := json.Unmarshal(body, &segs); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
		}
		return segs, nil
	case '{':
		var wrapped struct {
			Segments *[]layout.Segment `json:"segments"`
		}
		if err := json.Unmarshal(body, &wrapped); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
		}
		if wrapped.Segments == nil {
			return nil, fmt.Errorf("%w: object without segments", ErrInvalidResponse)
		}
		return *wrapped.Segments, nil
	default:
		return nil, fmt.Errorf("%w: reply is not JSON", ErrInvalidResponse)
	}
}

func stripCodeFence(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	// Drop the info string ("json") on the opening line.
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = ""
	}
	if end := strings.LastIndex(s, "```"); end >= 0 {
		s = s[:end]
	}
	return s
}
