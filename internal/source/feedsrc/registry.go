package feedsrc

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kagari/newsdigest/internal/logger"
)

// Feed is one registry entry from configs/feeds.yaml.
type Feed struct {
	Name         string `yaml:"name"`
	URL          string `yaml:"url"`
	Category     string `yaml:"category"`
	Lang         string `yaml:"lang"`          // target language for the script check, "" disables it
	FetchArticle bool   `yaml:"fetch_article"` // refetch each entry's page for full text
}

type registryFile struct {
	Feeds []Feed `yaml:"feeds"`
}

// defaultFeeds is the built-in fallback when the registry file is missing or
// malformed.
var defaultFeeds = []Feed{
	{Name: "NHK News", URL: "https://www.nhk.or.jp/rss/news/cat0.xml", Category: "general", Lang: "ja"},
	{Name: "ITmedia", URL: "https://rss.itmedia.co.jp/rss/2.0/news_bursts.xml", Category: "tech", Lang: "ja", FetchArticle: true},
}

// LoadRegistry reads the feed list from a YAML file, falling back to the
// built-in defaults instead of aborting.
func LoadRegistry(path string) []Feed {
	f, err := os.Open(path)
	if err != nil {
		logger.Warn("feeds registry missing, using built-in defaults", "path", path, "error", err)
		return defaultFeeds
	}
	defer f.Close()

	var cfg registryFile
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		logger.Warn("feeds registry malformed, using built-in defaults", "path", path, "error", err)
		return defaultFeeds
	}
	if len(cfg.Feeds) == 0 {
		return defaultFeeds
	}
	return cfg.Feeds
}
