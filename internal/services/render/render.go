// Package render turns an accepted article into a standalone HTML document.
// Output stops at the document string; site layout and styling are out of
// scope here.
package render

import (
	"encoding/json"
	"fmt"
	"html/template"
	"strings"
	"time"
)

// Meta carries the publication metadata that is not part of the article body.
type Meta struct {
	Slug         string
	SiteBaseURL  string
	Author       string
	PublishedAt  time.Time
	SourceVideo  string
	ThumbnailURL string
}

// Article is the minimal body shape the renderer needs. It mirrors the
// generation article without importing it, keeping this package free of
// pipeline types.
type Article struct {
	Title    string
	Summary  string
	Intro    string
	Sections []Section
	Tags     []string
}

// Section is one titled body block.
type Section struct {
	Heading string
	Body    string
}

var pageTemplate = template.Must(template.New("post").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<meta name="description" content="{{.Summary}}">
{{- if .Canonical}}
<link rel="canonical" href="{{.Canonical}}">
{{- end}}
<script type="application/ld+json">{{.StructuredData}}</script>
</head>
<body>
<article>
<header>
<h1>{{.Title}}</h1>
<p class="summary">{{.Summary}}</p>
{{- if not .PublishedAt.IsZero}}
<time datetime="{{.PublishedAt.Format "2006-01-02T15:04:05Z07:00"}}">{{.PublishedAt.Format "January 2, 2006"}}</time>
{{- end}}
</header>
{{- range .IntroParagraphs}}
<p>{{.}}</p>
{{- end}}
{{- range .Sections}}
<section>
<h2>{{.Heading}}</h2>
{{- range .Paragraphs}}
<p>{{.}}</p>
{{- end}}
</section>
{{- end}}
{{- if .Tags}}
<footer>
<ul class="tags">
{{- range .Tags}}
<li>{{.}}</li>
{{- end}}
</ul>
</footer>
{{- end}}
</article>
</body>
</html>
`))

type renderedSection struct {
	Heading    string
	Paragraphs []string
}

type pageData struct {
	Title           string
	Summary         string
	Canonical       string
	PublishedAt     time.Time
	IntroParagraphs []string
	Sections        []renderedSection
	Tags            []string
	StructuredData  template.JS
}

// Document renders the article as a complete HTML page with a canonical link
// and JSON-LD BlogPosting metadata.
func Document(article Article, meta Meta) (string, error) {
	if strings.TrimSpace(article.Title) == "" {
		return "", fmt.Errorf("render: article title required")
	}

	canonical := canonicalURL(meta)
	structured, err := structuredData(article, meta, canonical)
	if err != nil {
		return "", err
	}

	data := pageData{
		Title:           article.Title,
		Summary:         article.Summary,
		Canonical:       canonical,
		PublishedAt:     meta.PublishedAt,
		IntroParagraphs: splitParagraphs(article.Intro),
		Tags:            article.Tags,
		StructuredData:  template.JS(structured),
	}
	for _, s := range article.Sections {
		data.Sections = append(data.Sections, renderedSection{
			Heading:    s.Heading,
			Paragraphs: splitParagraphs(s.Body),
		})
	}

	var out strings.Builder
	if err := pageTemplate.Execute(&out, data); err != nil {
		return "", fmt.Errorf("render: execute template: %w", err)
	}
	return out.String(), nil
}

func canonicalURL(meta Meta) string {
	base := strings.TrimRight(strings.TrimSpace(meta.SiteBaseURL), "/")
	slug := strings.TrimSpace(meta.Slug)
	if base == "" || slug == "" {
		return ""
	}
	return base + "/posts/" + slug + ".html"
}

func structuredData(article Article, meta Meta, canonical string) (string, error) {
	posting := map[string]any{
		"@context":    "https://schema.org",
		"@type":       "BlogPosting",
		"headline":    article.Title,
		"description": article.Summary,
	}
	if !meta.PublishedAt.IsZero() {
		posting["datePublished"] = meta.PublishedAt.UTC().Format(time.RFC3339)
	}
	if canonical != "" {
		posting["mainEntityOfPage"] = map[string]any{
			"@type": "WebPage",
			"@id":   canonical,
		}
	}
	if meta.Author != "" {
		posting["author"] = map[string]any{
			"@type": "Person",
			"name":  meta.Author,
		}
	}
	if meta.ThumbnailURL != "" {
		posting["image"] = meta.ThumbnailURL
	}
	if len(article.Tags) > 0 {
		posting["keywords"] = strings.Join(article.Tags, ", ")
	}
	encoded, err := json.Marshal(posting)
	if err != nil {
		return "", fmt.Errorf("render: encode structured data: %w", err)
	}
	return string(encoded), nil
}

func splitParagraphs(text string) []string {
	var out []string
	for _, block := range strings.Split(text, "\n\n") {
		block = strings.TrimSpace(block)
		if block != "" {
			out = append(out, block)
		}
	}
	return out
}
