package viewer

import "time"

// Settings describes the site and the settle delays the viewer works with.
type Settings struct {
	HomeURL           string
	SearchPlaceholder string
	ShowMoreLabel     string
	Delays            Delays
}

// Delays are the fixed settle delays between steps.
type Delays struct {
	HomeSettle       time.Duration
	AddressSettle    time.Duration
	SearchSettle     time.Duration
	ResultSettle     time.Duration
	LoginSettle      time.Duration
	PostSubmitSettle time.Duration
	PollInterval     time.Duration
}

// DefaultSettings returns the settings for the site's current markup.
func DefaultSettings() Settings {
	return Settings{
		HomeURL:           "https://www.facebook.com",
		SearchPlaceholder: "搜尋 Facebook",
		ShowMoreLabel:     "查看更多",
		Delays: Delays{
			HomeSettle:       5 * time.Second,
			AddressSettle:    5 * time.Second,
			SearchSettle:     2 * time.Second,
			ResultSettle:     2 * time.Second,
			LoginSettle:      10 * time.Second,
			PostSubmitSettle: 10 * time.Second,
			PollInterval:     2 * time.Second,
		},
	}
}
