package normalize

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"marketboard/internal/market"
)

// ErrNoFeed is returned when a news body has neither a feed nor an items array.
var ErrNoFeed = errors.New("news response has no feed or items array")

var (
	titleFields     = []string{"title"}
	summaryFields   = []string{"summary", "description"}
	linkFields      = []string{"url", "link"}
	publishedFields = []string{"time_published", "pubDate", "published"}
	sourceFields    = []string{"source", "source_domain"}
)

// RawNews is one headline record from either news vendor.
type RawNews struct {
	r record
}

// NewRawNews wraps an already decoded vendor record.
func NewRawNews(fields map[string]any) RawNews { return RawNews{r: record(fields)} }

// DecodeNews accepts the Alpha Vantage shape ({"feed": [...]}) and the RSS
// bridge shape ({"items": [...]}). Alpha Vantage also sends "items" as a
// count string, which is why only an array qualifies.
func DecodeNews(raw []byte) ([]market.NewsItem, error) {
	body, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}
	key, arr := firstArray(body, "feed", "items")
	if arr == nil {
		return nil, ErrNoFeed
	}
	recs, err := decodeRecords(arr)
	if err != nil {
		return nil, fmt.Errorf("decoding %q: %w", key, err)
	}
	out := make([]market.NewsItem, 0, len(recs))
	for _, r := range recs {
		if r == nil {
			continue
		}
		out = append(out, News(RawNews{r: r}))
	}
	return out, nil
}

// News passes text fields through verbatim and converts the publication time
// to Unix seconds. The link is not validated.
func News(raw RawNews) market.NewsItem {
	title, _ := raw.r.text(titleFields...)
	summary, _ := raw.r.text(summaryFields...)
	link, _ := raw.r.text(linkFields...)
	published, _ := raw.r.text(publishedFields...)
	source, _ := raw.r.text(sourceFields...)
	return market.NewsItem{
		Title:       title,
		Summary:     summary,
		Link:        link,
		PublishedAt: market.Number(ParseTimestamp(published)),
		Source:      source,
	}
}

// Layouts tried before the lenient parser. Zone-less layouts are read as UTC.
// Named zones never reach these layouts; see numericZone.
var timestampLayouts = []string{
	"20060102T150405",
	"20060102T1504",
	time.RFC3339Nano,
	time.RFC1123Z,
	time.RFC822Z,
}

// rfc822Zones are the zone names RFC 822 defines. time.Parse reads any other
// abbreviation as a zero offset unless it names the host zone.
var rfc822Zones = map[string]string{
	"UT":  "+0000",
	"UTC": "+0000",
	"GMT": "+0000",
	"Z":   "+0000",
	"EST": "-0500",
	"EDT": "-0400",
	"CST": "-0600",
	"CDT": "-0500",
	"MST": "-0700",
	"MDT": "-0600",
	"PST": "-0800",
	"PDT": "-0700",
}

// numericZone rewrites a trailing zone name into its numeric offset. ok is
// false when the trailing word looks like a zone name that is not in
// rfc822Zones.
func numericZone(s string) (out string, ok bool) {
	i := strings.LastIndexByte(s, ' ')
	if i < 0 {
		return s, true
	}
	word := s[i+1:]
	if off, found := rfc822Zones[strings.ToUpper(word)]; found {
		return s[:i+1] + off, true
	}
	if len(word) >= 3 && len(word) <= 5 && isUpperAlpha(word) {
		return s, false
	}
	return s, true
}

func isUpperAlpha(s string) bool {
	for _, c := range s {
		if c < 'A' || c > 'Z' {
			return false
		}
	}
	return true
}

// ParseTimestamp converts vendor date text to Unix seconds with millisecond
// precision. It returns NaN for empty or unrecognised input and for unknown
// zone names; it never substitutes the current time.
func ParseTimestamp(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN()
	}
	s, ok := numericZone(s)
	if !ok {
		return math.NaN()
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return unixSeconds(t)
		}
	}
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return math.NaN()
	}
	return unixSeconds(t)
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixMilli()) / 1000
}
