package chapters

import (
	"sort"
	"time"
)

// minChapterNS is the shortest chapter the muxer should be handed.
const minChapterNS = int64(time.Millisecond)

// Normalize repairs a chapter list so every boundary is monotonic and
// contiguous: negative starts clamp to zero, a gap is closed by extending
// the earlier chapter, an overlap is resolved at the midpoint of the two
// boundaries, and chapters shorter than one millisecond are dropped.
// Normalizing an already normalized list returns it unchanged.
func Normalize(list []Chapter) []Chapter {
	if len(list) == 0 {
		return nil
	}
	work := make([]Chapter, len(list))
	copy(work, list)
	sort.SliceStable(work, func(i, j int) bool { return work[i].StartNS < work[j].StartNS })

	for i := range work {
		if work[i].StartNS < 0 {
			work[i].StartNS = 0
		}
		if work[i].EndNS < work[i].StartNS {
			work[i].EndNS = work[i].StartNS
		}
	}

	for i := 0; i < len(work)-1; i++ {
		current, next := &work[i], &work[i+1]
		switch {
		case current.EndNS < next.StartNS:
			// Gap: the earlier chapter absorbs it.
			current.EndNS = next.StartNS
		case current.EndNS > next.StartNS:
			mid := (current.EndNS + next.StartNS) / 2
			if mid < current.StartNS {
				mid = current.StartNS
			}
			current.EndNS = mid
			next.StartNS = mid
			if next.EndNS < next.StartNS {
				next.EndNS = next.StartNS
			}
		}
	}

	normalized := make([]Chapter, 0, len(work))
	for _, chapter := range work {
		if chapter.EndNS-chapter.StartNS < minChapterNS {
			continue
		}
		normalized = append(normalized, chapter)
	}

	// Dropping a short chapter can reopen a gap between its neighbours.
	for i := 0; i < len(normalized)-1; i++ {
		if normalized[i].EndNS < normalized[i+1].StartNS {
			normalized[i].EndNS = normalized[i+1].StartNS
		}
	}
	return normalized
}
