package showroom

import (
	"encoding/xml"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eringen/showroom/catalog"
)

// New-arrivals RSS feed: the most recently added listings, newest first.

const feedLimit = 20

type rss struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title       string    `xml:"title"`
	Link        string    `xml:"link"`
	Description string    `xml:"description"`
	Items       []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	GUID        string `xml:"guid"`
}

func (a *App) renderFeed(c echo.Context, items []catalog.Item) error {
	base := a.Config.URL
	feedItems := make([]rssItem, 0, feedLimit)
	// Insertion order is oldest-first; walk backwards for newest-first.
	for i := len(items) - 1; i >= 0 && len(feedItems) < feedLimit; i-- {
		it := items[i]
		link := ItemLink(base, it)
		feedItems = append(feedItems, rssItem{
			Title:       fmt.Sprintf("%d %s %s", it.Year, it.Brand, it.Model),
			Link:        link,
			Description: it.Description,
			GUID:        link,
		})
	}
	feed := rss{
		Version: "2.0",
		Channel: rssChannel{
			Title:       a.Config.Name,
			Link:        base,
			Description: a.Config.Description,
			Items:       feedItems,
		},
	}
	c.Response().Header().Set(echo.HeaderContentType, "application/rss+xml; charset=utf-8")
	c.Response().WriteHeader(http.StatusOK)
	c.Response().Write([]byte(xml.Header))
	return xml.NewEncoder(c.Response()).Encode(feed)
}
