// Package feed builds short news digests out of RSS feeds.
package feed

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/pkg/errors"
)

// DefaultURL is the feed used for users who never called /setfeed.
const DefaultURL = "https://ria.ru/export/rss2/index.xml"

const (
	digestSize   = 5
	fetchTimeout = 10 * time.Second
)

type Client struct {
	parser *gofeed.Parser
}

func NewClient() *Client {
	p := gofeed.NewParser()
	p.Client = &http.Client{Timeout: fetchTimeout}
	return &Client{parser: p}
}

// Digest fetches the feed and formats its first items as title+link
// blocks separated by blank lines.
func (c *Client) Digest(ctx context.Context, url string) (string, error) {
	f, err := c.parser.ParseURLWithContext(url, ctx)
	if err != nil {
		return "", errors.Wrapf(err, "failed fetching feed %q", url)
	}

	if len(f.Items) == 0 {
		return "", errors.Errorf("feed %q has no items", url)
	}

	n := digestSize
	if len(f.Items) < n {
		n = len(f.Items)
	}

	blocks := make([]string, 0, n)
	for _, item := range f.Items[:n] {
		blocks = append(blocks, fmt.Sprintf("📰 %s\n🔗 %s", item.Title, item.Link))
	}

	return strings.Join(blocks, "\n\n"), nil
}
