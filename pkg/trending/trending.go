// Package trending aggregates suggested search topics from the Google Trends
// daily RSS feeds, deduplicated across regions and cached in memory. A curated
// list stands in whenever every upstream fetch fails.
package trending

import (
	"encoding/xml"
	"fmt"
	"io"
	"log"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gosimple/slug"
)

type Topic struct {
	Text     string `json:"text"`
	Category string `json:"category"`
	Source   string `json:"source"`
}

var defaultGeos = []string{"US", "GB", "IN"}

var curatedTopics = []Topic{
	{Text: "Latest advancements in large language models", Category: "curated", Source: "curated"},
	{Text: "How do transformer neural networks work", Category: "curated", Source: "curated"},
	{Text: "Open source alternatives to GPT-4", Category: "curated", Source: "curated"},
	{Text: "Best practices for prompt engineering", Category: "curated", Source: "curated"},
	{Text: "State of robotics in 2025", Category: "curated", Source: "curated"},
}

type rssFeed struct {
	Channel struct {
		Items []struct {
			Title string `xml:"title"`
		} `xml:"item"`
	} `xml:"channel"`
}

type Service struct {
	client *http.Client
	geos   []string

	mu        sync.RWMutex
	topics    []Topic
	fetchedAt time.Time
}

func NewService() *Service {
	return &Service{
		client: &http.Client{Timeout: 10 * time.Second},
		geos:   defaultGeos,
	}
}

// Topics returns the cached feed, falling back to the curated list when no
// refresh has succeeded yet.
func (s *Service) Topics() []Topic {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.topics) == 0 {
		return curatedTopics
	}
	return s.topics
}

// Refresh refetches every regional feed and swaps the cache. Individual
// regions are allowed to fail; the refresh only errors when all of them do.
func (s *Service) Refresh() error {
	var merged []Topic
	failures := 0

	for _, geo := range s.geos {
		topics, err := s.fetchGeo(geo)
		if err != nil {
			log.Printf("trending: fetch failed for geo %s: %v", geo, err)
			failures++
			continue
		}
		merged = append(merged, topics...)
	}

	if failures == len(s.geos) {
		return fmt.Errorf("trending: all %d regional fetches failed", failures)
	}

	merged = Dedupe(merged)
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Text < merged[j].Text
	})

	s.mu.Lock()
	s.topics = merged
	s.fetchedAt = time.Now()
	s.mu.Unlock()

	log.Printf("trending: cache refreshed with %d topics", len(merged))
	return nil
}

func (s *Service) fetchGeo(geo string) ([]Topic, error) {
	url := fmt.Sprintf("https://trends.google.com/trends/trendingsearches/daily/rss?geo=%s", geo)

	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/rss+xml")
	req.Header.Set("User-Agent", "querya-backend/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var feed rssFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("could not parse feed: %w", err)
	}

	topics := make([]Topic, 0, len(feed.Channel.Items))
	for _, item := range feed.Channel.Items {
		if item.Title == "" {
			continue
		}
		topics = append(topics, Topic{
			Text:     item.Title,
			Category: "trending",
			Source:   "google-trends-" + geo,
		})
	}
	return topics, nil
}

// Dedupe drops topics whose slugified text collides with an earlier entry,
// so "AI News" and "ai news" count as one topic across regions.
func Dedupe(topics []Topic) []Topic {
	seen := make(map[string]bool, len(topics))
	out := topics[:0]
	for _, t := range topics {
		key := slug.Make(t.Text)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, t)
	}
	return out
}
