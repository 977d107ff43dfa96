// Package schedule scrapes the château agenda page for a day's opening hours.
package schedule

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	httpclient "versailles-assistant/internal/common/http"

	"github.com/PuerkitoBio/goquery"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

const notSpecified = "Not specified"

var (
	ErrInvalidDate   = errors.New("INVALID_DATE")
	ErrFetchFailed   = errors.New("SCHEDULE_FETCH_FAILED")
	ErrPageStructure = errors.New("SCHEDULE_PAGE_CHANGED")
)

// Venue is one location block of the agenda page.
type Venue struct {
	Name    string `json:"name"`
	Hours   string `json:"hours"`
	Details string `json:"details"`
}

// Day is the parsed agenda for one date. Status is set only when no venue was listed.
type Day struct {
	Date   string  `json:"date"`
	Venues []Venue `json:"venues,omitempty"`
	Status string  `json:"status,omitempty"`
}

func (d Day) String() string {
	if len(d.Venues) == 0 {
		return fmt.Sprintf("Schedule for %s: %s", d.Date, d.Status)
	}
	lines := make([]string, 0, len(d.Venues)+1)
	lines = append(lines, fmt.Sprintf("Schedule for %s:", d.Date))
	for _, v := range d.Venues {
		lines = append(lines, fmt.Sprintf("- %s: %s (%s)", v.Name, v.Hours, v.Details))
	}
	return strings.Join(lines, "\n")
}

type Scraper struct {
	baseURL string
	http    *httpclient.Client
}

func NewScraper(baseURL, userAgent string, http *httpclient.Client) *Scraper {
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &Scraper{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    http.WithUserAgent(userAgent),
	}
}

// Fetch returns the agenda for date (YYYY-MM-DD).
func (s *Scraper) Fetch(ctx context.Context, date string) (Day, error) {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return Day{}, fmt.Errorf("%w: %q, expected YYYY-MM-DD", ErrInvalidDate, date)
	}

	url := fmt.Sprintf("%s/actualites/agenda-chateau-versailles/fr-%s", s.baseURL, date)
	body, err := s.http.GetBytes(ctx, url, nil)
	if err != nil {
		return Day{}, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}

	day, err := Parse(body)
	if err != nil {
		return Day{}, err
	}
	day.Date = date
	return day, nil
}

// Parse extracts venues from an agenda page.
func Parse(page []byte) (Day, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return Day{}, fmt.Errorf("%w: %v", ErrPageStructure, err)
	}

	content := doc.Find("div.view-content").First()
	if content.Length() == 0 {
		return Day{}, fmt.Errorf("%w: main content container not found", ErrPageStructure)
	}

	var day Day
	content.Find("div.outer").Each(func(_ int, block *goquery.Selection) {
		name := strings.TrimSpace(block.Find("h4.title a").First().Text())
		if name == "" {
			return
		}
		venue := Venue{Name: name, Hours: notSpecified, Details: notSpecified}

		info := block.Find("div.info").First()
		if info.Length() > 0 {
			if hours := strings.TrimSpace(info.Find("span.hours").First().Text()); hours != "" {
				venue.Hours = hours
			}
			detail := info.Find("span[class]").FilterFunction(func(_ int, s *goquery.Selection) bool {
				return !s.HasClass("hours")
			}).First()
			if detail.Length() > 0 {
				if title, ok := detail.Attr("title"); ok && title != "" {
					venue.Details = title
				} else if text := strings.TrimSpace(detail.Text()); text != "" {
					venue.Details = text
				}
			}
		}
		day.Venues = append(day.Venues, venue)
	})

	if len(day.Venues) == 0 {
		day.Status = "No schedule information found for this date."
		if empty := strings.TrimSpace(doc.Find("div.view-empty").First().Text()); empty != "" {
			day.Status = empty
		}
	}
	return day, nil
}
