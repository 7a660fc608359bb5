package crawl

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/markdown"

	"github.com/hazyhaar/feedpulse/feed"
)

// Report locales.
const (
	LocaleEN   = "en"
	LocaleZHTW = "zh-TW"
)

type reportLabels struct {
	followers string
	bio       string
	allPosts  string
	sep       string
}

var labelsByLocale = map[string]reportLabels{
	LocaleEN:   {followers: "Followers", bio: "Bio", allPosts: "All posts", sep: ": "},
	LocaleZHTW: {followers: "追蹤者", bio: "簡介", allPosts: "所有貼文", sep: "："},
}

func labelsFor(locale string) reportLabels {
	if l, ok := labelsByLocale[locale]; ok {
		return l
	}
	return labelsByLocale[LocaleEN]
}

// hardBreaks turns newlines into markdown hard line breaks.
func hardBreaks(s string) string {
	return strings.ReplaceAll(s, "\n", "  \n")
}

// MetricsLine renders the compact engagement line of one post.
func MetricsLine(p feed.PostRecord) string {
	return fmt.Sprintf("👍 %d　💬 %d　🔃 %d　📤 %d",
		p.LikeCount, p.CommentCount, p.RepostCount, p.ShareCount)
}

// WriteReport serialises a collection as markdown: the profile header, a
// section heading, then one block per post in the order given. Unknown
// locales fall back to English.
func WriteReport(w io.Writer, prof feed.Profile, posts []feed.PostRecord, locale string) error {
	l := labelsFor(locale)
	md := markdown.NewMarkdown(w)

	handle := prof.Handle
	if handle == "" {
		handle = feed.UnknownHandle
	}
	md.H1("@" + handle)
	md.PlainText("")
	md.PlainText(markdown.Bold(l.followers) + l.sep + prof.Followers)
	md.PlainText("")
	md.PlainText(l.bio + l.sep)
	md.PlainText(hardBreaks(prof.Bio))
	md.PlainText("")
	md.H1(l.allPosts)

	for i, p := range posts {
		if i > 0 {
			md.PlainText("")
		}
		md.H3(p.PublishedAt)
		md.PlainText("")
		md.BulletList(MetricsLine(p))
		md.PlainText("")
		md.PlainText(hardBreaks(p.Content))
	}

	if err := md.Build(); err != nil {
		return fmt.Errorf("crawl: write report: %w", err)
	}
	return nil
}

// ReportFileName is the export file name for a report produced at t.
func ReportFileName(t time.Time) string {
	return "threads-scrape-" + t.UTC().Format("2006-01-02") + ".md"
}
