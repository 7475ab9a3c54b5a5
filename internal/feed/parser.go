package feed

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/pders01/feedagg/internal/debuglog"
)

// ErrMalformedFeed marks a document that could not be decoded at all.
var ErrMalformedFeed = errors.New("malformed feed document")

const (
	DialectRSS     = "rss"
	DialectAtom    = "atom"
	DialectJSON    = "json"
	DialectUnknown = "unknown"
)

const untitled = "(no title)"

// Item is one normalized entry as produced by parsing or export.
type Item struct {
	Title     string     `json:"title"`
	Link      string     `json:"link"`
	Published *time.Time `json:"published"`
	Source    string     `json:"source"`
	Summary   string     `json:"summary,omitempty"`
	GUID      string     `json:"guid,omitempty"`
}

// ParsedFeed is the result of parsing one document: channel metadata plus
// the entries in document order.
type ParsedFeed struct {
	Title    string
	SiteLink string
	Dialect  string
	Items    []Item
}

type Parser struct {
	parser *gofeed.Parser
}

func NewParser() *Parser {
	return &Parser{
		parser: gofeed.NewParser(),
	}
}

// Parse turns a raw RSS, Atom or JSON Feed document into items. It never
// panics on bad input: a document that cannot be decoded yields an empty
// ParsedFeed and an error wrapping ErrMalformedFeed.
func (p *Parser) Parse(data []byte, feedURL string) (*ParsedFeed, error) {
	source := sourceLabel(feedURL)

	if gofeed.DetectFeedType(bytes.NewReader(data)) == gofeed.FeedTypeJSON {
		return p.parseJSON(data, feedURL, source)
	}

	root, err := parseTree(data)
	if err != nil {
		return malformed(feedURL, err)
	}

	out := &ParsedFeed{Dialect: dialectOf(root)}
	out.Title, out.SiteLink = feedMeta(root)

	for _, node := range root.Descendants("item", "entry") {
		if item, ok := parseEntry(node, source); ok {
			out.Items = append(out.Items, item)
		}
	}
	return out, nil
}

func malformed(feedURL string, err error) (*ParsedFeed, error) {
	debuglog.WithFields(map[string]interface{}{
		"url": feedURL,
	}).Warnf("parse failed: %v", err)
	return &ParsedFeed{Dialect: DialectUnknown}, fmt.Errorf("%w: %s: %v", ErrMalformedFeed, feedURL, err)
}

func dialectOf(root *Node) string {
	switch root.Name {
	case "rss", "RDF":
		return DialectRSS
	case "feed":
		return DialectAtom
	default:
		return DialectUnknown
	}
}

func parseEntry(node *Node, source string) (Item, bool) {
	title := firstText(node, "title")
	link := entryLink(node)
	if title == "" && link == "" {
		return Item{}, false
	}

	return Item{
		Title:     displayTitle(title, link),
		Link:      link,
		Published: ParseDate(firstText(node, "published", "updated", "pubDate")),
		Source:    source,
		Summary:   firstText(node, "summary", "description", "content", "encoded"),
		GUID:      firstText(node, "guid", "id"),
	}, true
}

// entryLink prefers an Atom-style href link with rel=alternate (absent rel
// counts as alternate) and falls back to RSS link text.
func entryLink(node *Node) string {
	first := node.Child("link")
	if first == nil || first.Attr("href") == "" {
		return firstText(node, "link")
	}
	for _, l := range node.ChildrenNamed("link") {
		rel := l.Attr("rel")
		if (rel == "" || rel == "alternate") && l.Attr("href") != "" {
			return strings.TrimSpace(l.Attr("href"))
		}
	}
	return strings.TrimSpace(first.Attr("href"))
}

func displayTitle(title, link string) string {
	switch {
	case title != "":
		return title
	case link != "":
		return link
	default:
		return untitled
	}
}

// feedMeta extracts the channel title and site link. RSS documents carry
// them under the first channel element; Atom puts them on the root.
func feedMeta(root *Node) (title, siteLink string) {
	if ch := root.Child("channel"); ch != nil {
		for _, c := range ch.Children {
			switch c.Name {
			case "title":
				if title == "" {
					title = strings.TrimSpace(c.Text)
				}
			case "link":
				if siteLink == "" {
					siteLink = strings.TrimSpace(c.Text)
				}
			}
		}
		return title, siteLink
	}

	for _, c := range root.Children {
		switch c.Name {
		case "title":
			if title == "" {
				title = strings.TrimSpace(c.Text)
			}
		case "link":
			rel := c.Attr("rel")
			href := strings.TrimSpace(c.Attr("href"))
			if (rel == "" || rel == "alternate") && href != "" && siteLink == "" {
				siteLink = href
			}
		}
	}
	return title, siteLink
}

func (p *Parser) parseJSON(data []byte, feedURL, source string) (*ParsedFeed, error) {
	feed, err := p.parser.Parse(bytes.NewReader(data))
	if err != nil {
		return malformed(feedURL, err)
	}

	out := &ParsedFeed{
		Title:    strings.TrimSpace(feed.Title),
		SiteLink: strings.TrimSpace(feed.Link),
		Dialect:  DialectJSON,
	}
	for _, entry := range feed.Items {
		title := strings.TrimSpace(entry.Title)
		link := strings.TrimSpace(entry.Link)
		if title == "" && link == "" {
			continue
		}

		published := entry.PublishedParsed
		if published == nil {
			published = entry.UpdatedParsed
		}

		out.Items = append(out.Items, Item{
			Title:     displayTitle(title, link),
			Link:      link,
			Published: published,
			Source:    source,
			Summary:   getSummary(entry),
			GUID:      entry.GUID,
		})
	}
	return out, nil
}

func getSummary(item *gofeed.Item) string {
	if item.Description != "" {
		return item.Description
	}
	return item.Content
}

// sourceLabel is the host of the feed URL, or the URL itself when it has
// none.
func sourceLabel(feedURL string) string {
	if u, err := url.Parse(feedURL); err == nil && u.Host != "" {
		return u.Host
	}
	return feedURL
}
