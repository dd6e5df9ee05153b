package flagcore

import (
	"strings"

	lru "github.com/hashicorp/golang-lru"
	"github.com/ua-parser/uap-go/uaparser"
)

// UserAgentInfo is the subset of a parsed user agent that ua_based
// conditions can query.
type UserAgentInfo struct {
	OSName         string
	OSVersion      string
	BrowserName    string
	BrowserVersion string
}

// UserAgentParser resolves a raw UA string into structured fields. It
// backs the ua_based condition's fallback path (§4.2).
type UserAgentParser interface {
	Parse(userAgent string) UserAgentInfo
}

const uaCacheSize = 4096

// cachingUAParser wraps uap-go's regex-driven parser with an LRU
// cache: production traffic sees a small number of distinct UA
// strings repeated across millions of requests, so caching avoids
// re-running the whole regex table on every ua_based evaluation.
type cachingUAParser struct {
	parser *uaparser.Parser
	cache  *lru.Cache
}

// NewUserAgentParser loads the bundled regex database and wraps it
// with an LRU cache of uaCacheSize distinct user agents.
func NewUserAgentParser() (UserAgentParser, error) {
	cache, err := lru.New(uaCacheSize)
	if err != nil {
		return nil, err
	}
	return &cachingUAParser{parser: uaparser.NewFromSaved(), cache: cache}, nil
}

func (c *cachingUAParser) Parse(userAgent string) UserAgentInfo {
	if v, ok := c.cache.Get(userAgent); ok {
		return v.(UserAgentInfo)
	}
	client := c.parser.Parse(userAgent)
	info := UserAgentInfo{
		OSName:         client.Os.Family,
		OSVersion:      joinNonEmpty(client.Os.Major, client.Os.Minor, client.Os.Patch, client.Os.PatchMinor),
		BrowserName:    client.UserAgent.Family,
		BrowserVersion: joinNonEmpty(client.UserAgent.Major, client.UserAgent.Minor, client.UserAgent.Patch),
	}
	c.cache.Add(userAgent, info)
	return info
}

func joinNonEmpty(parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ".")
}

// NopUserAgentParser resolves nothing. Useful when UA parsing is
// disabled.
type NopUserAgentParser struct{}

func (NopUserAgentParser) Parse(string) UserAgentInfo { return UserAgentInfo{} }

func (i UserAgentInfo) field(name string) string {
	switch strings.ToLower(name) {
	case "os_name", "osname":
		return i.OSName
	case "os_version", "osversion":
		return i.OSVersion
	case "browser_name", "browsername":
		return i.BrowserName
	case "browser_version", "browserversion":
		return i.BrowserVersion
	default:
		return ""
	}
}
