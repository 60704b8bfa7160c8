package export

import (
	"strings"
	"testing"
	"time"
)

func TestRenderDigestHTML(t *testing.T) {
	data := TemplateData{
		GeneratedAt: time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC),
		Stats: Stats{
			TipsToday:        2,
			SuggestionsToday: 1,
			CommentsToday:    5,
			ReportsToday:     3,
		},
		Posts: []ReportedPost{
			{
				ID:         "post-1",
				Title:      "Broken grinder again",
				Content:    "The grinder jams every morning.",
				Category:   "suggestions",
				AuthorName: "anon-042",
				CreatedAt:  time.Date(2025, 5, 31, 8, 0, 0, 0, time.UTC),
				Reports: []ReportLine{
					{UserID: "usr_a", ReportedAt: time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)},
					{UserID: "usr_b", ReportedAt: time.Date(2025, 6, 1, 8, 15, 0, 0, time.UTC)},
				},
			},
		},
	}

	html, err := RenderDigestHTML(data)
	if err != nil {
		t.Fatalf("RenderDigestHTML failed: %v", err)
	}

	for _, want := range []string{
		"Moderation Digest",
		"Broken grinder again",
		"anon-042",
		"reported by usr_a",
		"reported by usr_b",
		"Reported posts (1)",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("digest HTML missing %q", want)
		}
	}
}

func TestRenderDigestHTMLEmptyQueue(t *testing.T) {
	html, err := RenderDigestHTML(TemplateData{GeneratedAt: time.Now()})
	if err != nil {
		t.Fatalf("RenderDigestHTML failed: %v", err)
	}
	if !strings.Contains(html, "Nothing in the queue.") {
		t.Error("empty queue message missing")
	}
}

func TestRenderDigestHTMLEscapesContent(t *testing.T) {
	html, err := RenderDigestHTML(TemplateData{
		GeneratedAt: time.Now(),
		Posts: []ReportedPost{
			{Title: "<script>alert(1)</script>", CreatedAt: time.Now()},
		},
	})
	if err != nil {
		t.Fatalf("RenderDigestHTML failed: %v", err)
	}
	if strings.Contains(html, "<script>alert(1)</script>") {
		t.Error("post title rendered unescaped")
	}
}

func TestPercentEncodeForDataURL(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "abc-123", want: "abc-123"},
		{in: "a b", want: "a%20b"},
		{in: "a+b", want: "a%2Bb"},
	}
	for _, tc := range cases {
		if got := percentEncodeForDataURL(tc.in); got != tc.want {
			t.Errorf("percentEncodeForDataURL(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
