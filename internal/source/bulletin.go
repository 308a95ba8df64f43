package source

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/Eldo84/live-health-sub002/internal/config"
	"github.com/Eldo84/live-health-sub002/internal/model"
	"github.com/Eldo84/live-health-sub002/internal/util"
)

// Bulletin reads a public-health RSS/Atom bulletin such as the WHO disease
// outbreak news feed. Headlines look like "Cholera - Yemen".
type Bulletin struct {
	cfg    config.BulletinConfig
	client *http.Client
}

func NewBulletin(cfg config.BulletinConfig) *Bulletin {
	return &Bulletin{cfg: cfg, client: util.NewHTTPClient(cfg.HTTP.Timeout)}
}

func (b *Bulletin) Name() string { return "bulletin" }

func (b *Bulletin) Fetch(ctx context.Context) ([]model.RawItem, error) {
	body, err := util.GetBody(ctx, b.client, b.cfg.URL, b.cfg.HTTP.UserAgent)
	if err != nil {
		return nil, fmt.Errorf("bulletin: %w", err)
	}
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("bulletin: parse feed: %w", err)
	}
	out := make([]model.RawItem, 0, len(feed.Items))
	for _, it := range feed.Items {
		title := strings.TrimSpace(it.Title)
		if title == "" {
			continue
		}
		disease, place, _ := splitTitle(title)
		var published time.Time
		switch {
		case it.PublishedParsed != nil:
			published = it.PublishedParsed.UTC()
		case it.UpdatedParsed != nil:
			published = it.UpdatedParsed.UTC()
		}
		key := it.Link
		if key == "" {
			key = it.GUID
		}
		if key == "" {
			key = title
		}
		out = append(out, model.RawItem{
			ID:          itemID(b.Name(), key),
			Source:      b.Name(),
			Disease:     disease,
			Title:       title,
			Location:    place,
			Description: strings.TrimSpace(it.Description),
			URL:         it.Link,
			Published:   published,
		})
	}
	return out, nil
}
