package sources

import "time"

// registry lists the shows the crawler knows how to read. Selectors follow
// the broadcasters' current archive markup; a markup change degrades that
// show's run rather than failing it.
var registry = []Source{
	{
		Name:       "maischberger",
		ListingURL: "https://www.daserste.de/information/talk/maischberger/sendung/index.html",
		ConsentSelectors: []string{
			"button[title='Zustimmen']",
			".cookie-consent__accept",
		},
		LoadMoreSelector:    ".mehr-laden button",
		ListingWaitSelector: ".teaser",
		EpisodeLinkSelector: ".teaser a.teaser__link",
		DateRule:            DateFromSlug,
		GuestListSelector:   ".gaesteliste li",
		ContentRootSelector: ".sendungsseite",
		DescriptionSelector: ".sendungsseite .text p",
	},
	{
		Name:       "caren-miosga",
		ListingURL: "https://www.daserste.de/information/talk/caren-miosga/sendung/index.html",
		ConsentSelectors: []string{
			"button[title='Zustimmen']",
			".cookie-consent__accept",
		},
		LoadMoreSelector:    ".mehr-laden button",
		ListingWaitSelector: ".teaser",
		EpisodeLinkSelector: ".teaser a.teaser__link",
		DateRule:            DateFromSlug,
		GuestListSelector:   ".gaesteliste li",
		ContentRootSelector: ".sendungsseite",
		DescriptionSelector: ".sendungsseite .text p",
	},
	{
		Name:       "hart-aber-fair",
		ListingURL: "https://www1.wdr.de/daserste/hartaberfair/sendungen/index.html",
		ConsentSelectors: []string{
			"button[data-testid='consent-accept']",
			"button[title='Zustimmen']",
		},
		ListingWaitSelector: ".teaser",
		EpisodeLinkSelector: ".teaser a",
		DateRule:            DateFromSlug,
		ContentRootSelector: "article",
		DescriptionSelector: "article .einleitung p, article .text p",
	},
	{
		Name:       "markus-lanz",
		ListingURL: "https://www.zdf.de/gesellschaft/markus-lanz",
		ConsentSelectors: []string{
			"button[data-testid='uc-accept-all-button']",
			"#zdf-accept-all",
		},
		LoadMoreSelector:    "button[data-testid='load-more']",
		ListingWaitSelector: "picture",
		EpisodeLinkSelector: "a[href*='markus-lanz-vom']",
		DateRule:            DateFromSlug,
		ContentRootSelector: "main",
		DescriptionSelector: "main .description p, main p.copytext",
	},
	{
		Name:       "maybrit-illner",
		ListingURL: "https://www.zdf.de/politik/maybrit-illner",
		ConsentSelectors: []string{
			"button[data-testid='uc-accept-all-button']",
			"#zdf-accept-all",
		},
		LoadMoreSelector:    "button[data-testid='load-more']",
		ListingWaitSelector: "picture",
		EpisodeLinkSelector: "a[href*='maybrit-illner-vom']",
		DateRule:            DateFromSlug,
		ContentRootSelector: "main",
		DescriptionSelector: "main .description p, main p.copytext",
	},
	{
		Name:                "phoenix-runde",
		ListingURL:          "https://www.phoenix.de/sendungen/gespraeche/phoenix-runde/index.html",
		Static:              true,
		EpisodeLinkSelector: ".teaser a",
		DateRule: EpisodeNumberRule(1400,
			time.Date(2024, time.September, 3, 0, 0, 0, 0, time.UTC),
			7*24*time.Hour),
		ContentRootSelector: ".content",
		DescriptionSelector: ".content .text p",
	},
}
