package fetch

import (
	"bufio"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// RobotsGate answers whether a URL may be crawled for one user agent. Rules
// are fetched once per host and held in memory for the lifetime of the gate;
// a host whose robots.txt cannot be retrieved is treated as fully allowed.
type RobotsGate struct {
	HTTPClient *http.Client
	UserAgent  string

	mu    sync.Mutex
	hosts map[string]hostRules
}

type hostRules struct {
	disallow []string
}

// Allowed reports whether u may be fetched under the host's robots rules.
func (g *RobotsGate) Allowed(ctx context.Context, u *url.URL) (bool, error) {
	if g == nil || u == nil {
		return true, nil
	}
	host := u.Scheme + "://" + u.Host

	g.mu.Lock()
	rules, ok := g.hosts[host]
	g.mu.Unlock()
	if !ok {
		rules = g.load(ctx, host)
		g.mu.Lock()
		if g.hosts == nil {
			g.hosts = make(map[string]hostRules)
		}
		g.hosts[host] = rules
		g.mu.Unlock()
	}

	path := u.Path
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	for _, prefix := range rules.disallow {
		if strings.HasPrefix(path, prefix) {
			return false, nil
		}
	}
	return true, nil
}

func (g *RobotsGate) load(ctx context.Context, host string) hostRules {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, host+"/robots.txt", nil)
	if err != nil {
		return hostRules{}
	}
	if g.UserAgent != "" {
		req.Header.Set("User-Agent", g.UserAgent)
	}
	client := g.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		log.Debug().Err(err).Str("host", host).Msg("robots.txt unreachable, allowing host")
		return hostRules{}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return hostRules{}
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return hostRules{}
	}
	return parseRobots(string(data), g.UserAgent)
}

// parseRobots keeps the Disallow prefixes from the wildcard group and from
// any group whose agent token appears in our user agent string.
func parseRobots(text, userAgent string) hostRules {
	ua := strings.ToLower(userAgent)
	var rules hostRules
	applies := false
	sawDirective := true
	scanner := bufio.NewScanner(strings.NewReader(text))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		colon := strings.IndexByte(line, ':')
		if colon <= 0 {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(line[:colon]))
		val := strings.TrimSpace(line[colon+1:])
		switch key {
		case "user-agent":
			token := strings.ToLower(val)
			if sawDirective {
				// A user-agent line after directives starts a new group.
				applies = false
				sawDirective = false
			}
			if token == "*" || (token != "" && strings.Contains(ua, token)) {
				applies = true
			}
		case "disallow":
			sawDirective = true
			if applies && val != "" {
				rules.disallow = append(rules.disallow, val)
			}
		case "allow", "crawl-delay", "sitemap":
			sawDirective = true
		}
	}
	return rules
}
