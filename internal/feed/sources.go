package feed

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/buger/jsonparser"
	"github.com/goccy/go-json"

	"github.com/pders01/feedagg/internal/debuglog"
	"github.com/pders01/feedagg/internal/storage"
)

// Sources is an ordered category → URL list mapping.
type Sources = []storage.Category

// SourcesFileCandidates returns the file names tried, in order, when no
// sources file is given.
func SourcesFileCandidates() []string {
	return []string{"sources.json", "sources.example.json"}
}

// DefaultSources returns a fresh copy of the built-in source list.
func DefaultSources() Sources {
	return Sources{
		{Name: "deals", URLs: []string{
			"https://www.smzdm.com/feed",
		}},
		{Name: "news", URLs: []string{
			"http://feeds.bbci.co.uk/zhongwen/simp/rss.xml",
			"http://feeds.reuters.com/reuters/CHINAnews",
			"https://cn.nytimes.com/rss/",
			"http://www.ftchinese.com/rss/news",
		}},
		{Name: "tech", URLs: []string{
			"https://www.v2ex.com/index.xml",
			"https://sspai.com/feed",
			"https://www.solidot.org/index.rss",
			"http://www.ruanyifeng.com/blog/atom.xml",
			"https://www.ifanr.com/feed",
			"https://www.oschina.net/news/rss",
			"https://36kr.com/feed",
		}},
		{Name: "entertainment", URLs: []string{
			"https://jandan.net/feed",
			"https://chinese.engadget.com/rss.xml",
		}},
	}
}

// DiscoverSourcesFile returns the first existing candidate in the working
// directory, or "" when there is none.
func DiscoverSourcesFile() string {
	for _, candidate := range SourcesFileCandidates() {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
	}
	return ""
}

// LoadSourcesFile reads a JSON object of category → URL array. Any problem
// with the file falls back to DefaultSources so callers always get a usable
// list.
func LoadSourcesFile(path string) Sources {
	if path == "" {
		return DefaultSources()
	}

	logger := debuglog.WithFields(map[string]interface{}{"path": path})

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Infof("sources file not found, using built-in sources")
		return DefaultSources()
	}
	if err != nil {
		logger.Warnf("reading sources file: %v, using built-in sources", err)
		return DefaultSources()
	}

	sources, err := parseSources(data)
	if err != nil {
		logger.Warnf("parsing sources file: %v, using built-in sources", err)
		return DefaultSources()
	}
	if len(sources) == 0 {
		logger.Infof("sources file has no categories, using built-in sources")
		return DefaultSources()
	}
	return sources
}

// errInvalidJSON is returned for documents jsonparser would still walk,
// such as trailing commas or trailing bytes.
var errInvalidJSON = errors.New("invalid JSON")

func parseSources(data []byte) (Sources, error) {
	if !json.Valid(data) {
		return nil, errInvalidJSON
	}

	var sources Sources
	index := make(map[string]int)

	err := jsonparser.ObjectEach(data, func(key, value []byte, dataType jsonparser.ValueType, _ int) error {
		if dataType != jsonparser.Array {
			return nil
		}

		urls := []string{}
		var elemErr error
		_, err := jsonparser.ArrayEach(value, func(v []byte, vt jsonparser.ValueType, _ int, err error) {
			if err != nil || elemErr != nil {
				elemErr = err
				return
			}
			if vt == jsonparser.String {
				s, parseErr := jsonparser.ParseString(v)
				if parseErr != nil {
					elemErr = parseErr
					return
				}
				urls = append(urls, s)
				return
			}
			urls = append(urls, string(v))
		})
		if err == nil {
			err = elemErr
		}
		if err != nil {
			return fmt.Errorf("category %q: %w", key, err)
		}

		name := string(key)
		if i, ok := index[name]; ok {
			sources[i].URLs = urls
			return nil
		}
		index[name] = len(sources)
		sources = append(sources, storage.Category{Name: name, URLs: urls})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sources, nil
}

// CategoryURLs flattens sources to the URL list an aggregation run visits:
// every category in order, or only the named one.
func CategoryURLs(sources Sources, category string) []string {
	var urls []string
	for _, cat := range sources {
		if category != "" && cat.Name != category {
			continue
		}
		urls = append(urls, cat.URLs...)
	}
	return urls
}
