package models

// Page is an offset/limit window. A nil Limit means no cap.
type Page struct {
	Limit  *int `json:"limit"`
	Offset int  `json:"offset"`
}

// Bounds returns the [start, end) window over a sequence of length total
func (p Page) Bounds(total int) (int, int) {
	start := p.Offset
	if start > total {
		start = total
	}
	end := total
	if p.Limit != nil && *p.Limit < end-start {
		end = start + *p.Limit
	}
	return start, end
}

// StoryList is one page of live stories
type StoryList struct {
	Stories []*Story `json:"stories"`
	Total   int      `json:"total"`
	Limit   *int     `json:"limit"`
	Offset  int      `json:"offset"`
}

// EpisodeList is one positional window over a story's episodes,
// archived episodes included
type EpisodeList struct {
	Episodes []Episode `json:"episodes"`
	Total    int       `json:"total"`
	Limit    *int      `json:"limit"`
	Offset   int       `json:"offset"`
}
