package htmlutil

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

func collectTextNodes(node *html.Node, out *[]string) {
	if node == nil {
		return
	}
	switch node.Type {
	case html.TextNode:
		text := strings.TrimSpace(node.Data)
		if text != "" {
			*out = append(*out, text)
		}
		return
	case html.ElementNode:
		if node.Data == "script" || node.Data == "style" {
			return
		}
	}
	child := node.FirstChild
	for child != nil {
		collectTextNodes(child, out)
		child = child.NextSibling
	}
}

// Tokens returns the trimmed, non-empty text nodes of an html fragment in
// document order.
func Tokens(fragment string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		text := strings.TrimSpace(fragment)
		if text == "" {
			return nil
		}
		return []string{text}
	}

	var tokens []string
	for _, n := range doc.Find("body").Nodes {
		collectTextNodes(n, &tokens)
	}
	return tokens
}
