package model

import "time"

// NewsItem is a market news headline with placeholders already applied.
type NewsItem struct {
	ID       int64
	Datetime time.Time
	Date     string
	Image    string
	Source   string
	Headline string
	Summary  string
	URL      string
}

// View selects what the front-end shows.
type View string

const (
	ViewTraffic View = "traffic"
	ViewNews    View = "news"
)
