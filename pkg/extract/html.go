package extract

import (
	"strings"

	"golang.org/x/net/html"
)

var skippedTags = map[string]bool{
	"script": true,
	"style":  true,
	"nav":    true,
	"footer": true,
	"header": true,
	"aside":  true,
}

// extractedHTML holds the text and title pulled from a parsed document.
type extractedHTML struct {
	Text  string
	Title string
}

// extractFromHTML walks the parsed tree, dropping script/style/nav/
// footer/header/aside subtrees (the same element list the original's
// BeautifulSoup fallback removes), collecting visible text, and
// resolving a title from OpenGraph metadata, then <title>, then the
// first <h1>.
func extractFromHTML(htmlContent string) (extractedHTML, error) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return extractedHTML{}, err
	}

	var textParts []string
	var titleTag, firstH1, ogTitle string

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && skippedTags[n.Data] {
			return
		}

		if n.Type == html.ElementNode && n.Data == "meta" {
			if isOGTitle(n) && ogTitle == "" {
				ogTitle = metaContent(n)
			}
		}

		if n.Type == html.ElementNode && n.Data == "title" && titleTag == "" {
			titleTag = strings.TrimSpace(textContent(n))
		}

		if n.Type == html.ElementNode && n.Data == "h1" && firstH1 == "" {
			firstH1 = strings.TrimSpace(textContent(n))
		}

		if n.Type == html.TextNode {
			trimmed := strings.TrimSpace(n.Data)
			if trimmed != "" {
				textParts = append(textParts, trimmed)
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	title := ogTitle
	if title == "" {
		title = titleTag
	}
	if title == "" {
		title = firstH1
	}

	return extractedHTML{
		Text:  strings.Join(textParts, " "),
		Title: title,
	}, nil
}

func isOGTitle(n *html.Node) bool {
	for _, a := range n.Attr {
		if a.Key == "property" && a.Val == "og:title" {
			return true
		}
	}
	return false
}

func metaContent(n *html.Node) string {
	for _, a := range n.Attr {
		if a.Key == "content" {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
