package youtube

import (
	"regexp"
	"strconv"
)

type listResponse[T any] struct {
	Items []T `json:"items"`
}

// Thumbnails maps a size name ("default", "medium", "high") to an image.
type Thumbnails map[string]struct {
	URL string `json:"url"`
}

func (t Thumbnails) pick(sizes ...string) string {
	for _, s := range sizes {
		if th, ok := t[s]; ok && th.URL != "" {
			return th.URL
		}
	}
	return ""
}

// Snippet is the shared descriptive block of search and video items.
type Snippet struct {
	PublishedAt  string     `json:"publishedAt"`
	ChannelID    string     `json:"channelId"`
	ChannelTitle string     `json:"channelTitle"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Thumbnails   Thumbnails `json:"thumbnails"`
	Tags         []string   `json:"tags"`
}

// Thumbnail returns the largest available preview.
func (s Snippet) Thumbnail() string {
	return s.Thumbnails.pick("high", "medium", "default")
}

// SearchItem is one hit of /search.
type SearchItem struct {
	ID struct {
		VideoID string `json:"videoId"`
	} `json:"id"`
	Snippet Snippet `json:"snippet"`
}

// VideoItem is one entry of /videos.
type VideoItem struct {
	ID             string  `json:"id"`
	Snippet        Snippet `json:"snippet"`
	ContentDetails struct {
		Duration string `json:"duration"`
	} `json:"contentDetails"`
}

// Seconds returns the parsed duration.
func (v VideoItem) Seconds() int {
	return ParseISODuration(v.ContentDetails.Duration)
}

type channelItem struct {
	ID      string  `json:"id"`
	Snippet Snippet `json:"snippet"`
}

// ChannelInfo is what feeds show about an uploader.
type ChannelInfo struct {
	ID        string
	Title     string
	Logo      string
	LogoLarge string
}

var isoDuration = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?$`)

// ParseISODuration converts an ISO 8601 duration such as "PT4M13S" to
// seconds. Unparseable input yields 0.
func ParseISODuration(s string) int {
	m := isoDuration.FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	unit := []int{86400, 3600, 60, 1}
	total := 0
	for i, mult := range unit {
		if m[i+1] == "" {
			continue
		}
		n, err := strconv.Atoi(m[i+1])
		if err != nil {
			return 0
		}
		total += n * mult
	}
	return total
}

// ShortEmbedURL is the muted player used by the shorts feed.
func ShortEmbedURL(id string) string {
	return "https://www.youtube.com/embed/" + id + "?autoplay=0&mute=1"
}

// VideoEmbedURL is the controllable player used by the videos feed.
func VideoEmbedURL(id string) string {
	return "https://www.youtube.com/embed/" + id + "?enablejsapi=1&controls=1&modestbranding=1&autoplay=0"
}
