// ABOUTME: Builds browser links to YouGile tasks.
// ABOUTME: Format: https://<host>/team/<teamId>/<projectSlug>#<taskNumber>

package yougile

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	spaceRun = regexp.MustCompile(`\s+`)
	dashRun  = regexp.MustCompile(`-{2,}`)
)

// Slug turns a project title into the path segment YouGile uses in links.
func Slug(title string) string {
	s := spaceRun.ReplaceAllString(strings.TrimSpace(title), "-")
	s = dashRun.ReplaceAllString(s, "-")
	return escapeSlug(s)
}

// escapeSlug percent-encodes every byte except letters, digits, "_.-~" and "/".
func escapeSlug(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if unreservedSlugByte(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0f])
	}
	return b.String()
}

func unreservedSlugByte(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte("_.-~/", c) >= 0
}

// Host extracts the web host from an API base URL, defaulting to ru.yougile.com.
func Host(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return "ru.yougile.com"
	}
	return u.Host
}

// TaskLink returns the link to a task. Without a project title or task
// number it falls back to the team page.
func TaskLink(host, teamID, projectTitle, taskNumber string) string {
	base := "https://" + host + "/team/" + teamID
	slug := Slug(projectTitle)
	if slug == "" || taskNumber == "" {
		return base
	}
	return base + "/" + slug + "#" + taskNumber
}
