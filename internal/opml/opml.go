// Package opml imports and exports podcast subscriptions as OPML documents.
package opml

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"

	"golang.org/x/net/html/charset"

	"github.com/glabrego/podnotes/internal/podcast"
)

const (
	exportTitle = "Podnotes Feeds"
	// groupText labels the single outline that wraps exported feeds.
	groupText = "feeds"
)

type document struct {
	XMLName xml.Name `xml:"opml"`
	Version string   `xml:"version,attr"`
	Head    head     `xml:"head"`
	Body    body     `xml:"body"`
}

type head struct {
	Title string `xml:"title"`
}

type body struct {
	Outlines []outline `xml:"outline"`
}

type outline struct {
	Text     string    `xml:"text,attr"`
	Title    string    `xml:"title,attr,omitempty"`
	Type     string    `xml:"type,attr,omitempty"`
	XMLURL   string    `xml:"xmlUrl,attr,omitempty"`
	Outlines []outline `xml:"outline"`
}

// Parse extracts every outline carrying both a title and an xmlUrl, at any
// nesting depth, in document order.
func Parse(text string) ([]podcast.Feed, error) {
	dec := xml.NewDecoder(strings.NewReader(text))
	dec.CharsetReader = charset.NewReaderLabel
	var doc document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse opml: %w", err)
	}
	var feeds []podcast.Feed
	var walk func([]outline)
	walk = func(outlines []outline) {
		for _, o := range outlines {
			title := strings.TrimSpace(o.Text)
			if title == "" {
				title = strings.TrimSpace(o.Title)
			}
			url := strings.TrimSpace(o.XMLURL)
			if title != "" && url != "" {
				feeds = append(feeds, podcast.Feed{Title: title, URL: url})
			}
			walk(o.Outlines)
		}
	}
	walk(doc.Body.Outlines)
	return feeds, nil
}

// Serialize renders feeds as an OPML 2.0 document with every feed nested
// under one "feeds" outline.
func Serialize(feeds []podcast.Feed) (string, error) {
	group := outline{Text: groupText}
	for _, f := range feeds {
		group.Outlines = append(group.Outlines, outline{
			Text:   f.Title,
			Title:  f.Title,
			Type:   "rss",
			XMLURL: f.URL,
		})
	}
	doc := document{
		Version: "2.0",
		Head:    head{Title: exportTitle},
		Body:    body{Outlines: []outline{group}},
	}
	data, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode opml: %w", err)
	}
	var b bytes.Buffer
	b.WriteString(xml.Header)
	b.Write(data)
	b.WriteByte('\n')
	return b.String(), nil
}
