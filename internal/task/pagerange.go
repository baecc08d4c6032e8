package task

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
)

// PageRange is an inclusive span of pages belonging to one logical invoice.
// Start and End are 0-based. Reason is the analyzer's free-text justification
// for the split; empty for deterministic fallback splits.
type PageRange struct {
	Start  int
	End    int
	Reason string
}

// Label renders the range 1-based, the way it appears in payloads and logs.
func (r PageRange) Label() string {
	if r.Start == r.End {
		return strconv.Itoa(r.Start + 1)
	}
	return fmt.Sprintf("%d-%d", r.Start+1, r.End+1)
}

// Pages1Based returns the [start, end] pair as submitted by users.
func (r PageRange) Pages1Based() [2]int {
	return [2]int{r.Start + 1, r.End + 1}
}

// ParseSpans parses user-supplied 1-based spans like ["1-3", "4", "5-6"] into
// 0-based PageRanges. A span with start > end or a page below 1 is rejected.
func ParseSpans(spans []string) ([]PageRange, error) {
	ranges := make([]PageRange, 0, len(spans))
	for _, s := range spans {
		s = strings.TrimSpace(s)
		if s == "" {
			return nil, common.ValidationErrorf("empty page span")
		}
		first, last := s, s
		if i := strings.IndexByte(s, '-'); i >= 0 {
			first, last = s[:i], s[i+1:]
		}
		start, err := strconv.Atoi(strings.TrimSpace(first))
		if err != nil {
			return nil, common.ValidationErrorf("bad page span %q", s)
		}
		end, err := strconv.Atoi(strings.TrimSpace(last))
		if err != nil {
			return nil, common.ValidationErrorf("bad page span %q", s)
		}
		if start < 1 || end < start {
			return nil, common.ValidationErrorf("invalid page span %q", s)
		}
		ranges = append(ranges, PageRange{Start: start - 1, End: end - 1})
	}
	return ranges, nil
}
