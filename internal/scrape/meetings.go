// Package scrape extracts council meeting summaries from the LegCo website.
//
// DESIGN: The meetings page is plain HTML with one table row per meeting.
// Rows are parsed into {date, agenda, links}; the page structure is not
// versioned upstream, so extraction is deliberately tolerant — rows that do
// not look like meetings are skipped rather than failing the whole call.
package scrape

import (
	"context"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/legco-tools/legco-search-mcp/internal/legco"
	"github.com/legco-tools/legco-search-mcp/internal/upstream"
)

// Link is one hyperlink found in a meeting row.
type Link struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

// Meeting is one scraped meeting summary.
type Meeting struct {
	Date   string `json:"date"`
	Agenda string `json:"agenda"`
	Links  []Link `json:"links"`
}

// Result is the tool payload.
type Result struct {
	Meetings []Meeting `json:"meetings"`
}

// dateLayouts are the formats meeting dates appear in on the page.
var dateLayouts = []string{"2006-01-02", "02/01/2006", "2006/01/02", "02-01-2006"}

// Scraper fetches and parses the council meetings page.
type Scraper struct {
	client  *upstream.Client
	pageURL string
	baseURL string
}

// NewScraper creates a scraper. pageURL defaults to the production meetings
// page when empty.
func NewScraper(client *upstream.Client, pageURL string) *Scraper {
	if pageURL == "" {
		pageURL = legco.MeetingsPageURL
	}
	return &Scraper{client: client, pageURL: pageURL, baseURL: legco.SiteBaseURL}
}

// MeetingSummaries fetches the meetings page and returns the rows matching
// the optional year (non-zero) and date (non-empty, YYYY-MM-DD) filters.
func (s *Scraper) MeetingSummaries(ctx context.Context, year int, date string) (*Result, error) {
	res, err := s.client.Get(ctx, s.pageURL, false)
	if err != nil {
		return nil, upstream.WrapError(err, "meetings")
	}
	if res.StatusCode != http.StatusOK {
		return nil, &upstream.Error{StatusCode: res.StatusCode, Endpoint: "meetings"}
	}

	meetings, err := s.parse(res.Body)
	if err != nil {
		return nil, err
	}

	if year == 0 && date == "" {
		return &Result{Meetings: meetings}, nil
	}

	filtered := make([]Meeting, 0, len(meetings))
	for _, m := range meetings {
		parsed, ok := parseMeetingDate(m.Date)
		if !ok {
			continue
		}
		if year != 0 && parsed.Year() != year {
			continue
		}
		if date != "" && parsed.Format("2006-01-02") != date {
			continue
		}
		filtered = append(filtered, m)
	}
	return &Result{Meetings: filtered}, nil
}

// parse walks the document and turns every table row with at least two
// cells into a Meeting.
func (s *Scraper) parse(body []byte) ([]Meeting, error) {
	doc, err := html.Parse(strings.NewReader(string(body)))
	if err != nil {
		return nil, err
	}

	meetings := make([]Meeting, 0)
	for _, row := range elementsByTag(doc, "tr") {
		cells := elementsByTag(row, "td")
		if len(cells) < 2 {
			continue
		}

		meeting := Meeting{
			Date:   nodeText(cells[0]),
			Agenda: nodeText(cells[1]),
			Links:  make([]Link, 0),
		}
		for _, anchor := range elementsByTag(row, "a") {
			href := attrValue(anchor, "href")
			if href == "" {
				continue
			}
			if !strings.HasPrefix(href, "http") {
				href = s.baseURL + href
			}
			meeting.Links = append(meeting.Links, Link{Text: nodeText(anchor), URL: href})
		}
		meetings = append(meetings, meeting)
	}
	return meetings, nil
}

func parseMeetingDate(text string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// elementsByTag collects descendant elements with the given tag, in
// document order.
func elementsByTag(n *html.Node, tag string) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.ElementNode && node.Data == tag {
			out = append(out, node)
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		walk(child)
	}
	return out
}

// nodeText returns the concatenated text content of a node, trimmed.
func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			b.WriteString(node.Data)
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return strings.TrimSpace(b.String())
}

func attrValue(n *html.Node, name string) string {
	for _, attr := range n.Attr {
		if attr.Key == name {
			return attr.Val
		}
	}
	return ""
}
