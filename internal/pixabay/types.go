package pixabay

// SearchRequest describes one page of a video search.
type SearchRequest struct {
	Query    string
	PageSize int
	// Page is 1-based; zero requests the first page.
	Page int
	// MinDuration and MaxDuration bound hit lengths in seconds. A zero
	// MaxDuration leaves the upper end open.
	MinDuration float64
	MaxDuration float64
}

// Candidate is one remote video eligible for download.
type Candidate struct {
	RemoteID        string
	SourceURL       string
	DurationSeconds float64
	Tags            string
	PageURL         string
	Rendition       string
}

// Renditions lists the video sizes the API offers, largest first.
var Renditions = []string{"large", "medium", "small", "tiny"}

type searchResponse struct {
	Total     int   `json:"total"`
	TotalHits int   `json:"totalHits"`
	Hits      []hit `json:"hits"`
}

type hit struct {
	ID       int64                `json:"id"`
	PageURL  string               `json:"pageURL"`
	Tags     string               `json:"tags"`
	Duration float64              `json:"duration"`
	Videos   map[string]rendition `json:"videos"`
}

type rendition struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Size   int64  `json:"size"`
}
