package htmlutil

import (
	"bytes"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// GetText concatenates every text node under node in document order.
func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

// TextNodes lists the data of every text node under node in document order, whitespace-only
// nodes included.
func TextNodes(node *html.Node) []string {
	out := []string{}
	collectTextNodes(node, &out)
	return out
}

func collectTextNodes(node *html.Node, out *[]string) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		*out = append(*out, node.Data)
		return
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		collectTextNodes(child, out)
	}
}

// SelectionTextNodes is TextNodes over every node of a selection.
func SelectionTextNodes(sel *goquery.Selection) []string {
	out := []string{}
	for _, n := range sel.Nodes {
		out = append(out, TextNodes(n)...)
	}
	return out
}

// FirstText returns the first text node under the selection, or "" if there is none.
func FirstText(sel *goquery.Selection) string {
	for _, n := range sel.Nodes {
		if text, ok := firstTextNode(n); ok {
			return text
		}
	}
	return ""
}

func firstTextNode(node *html.Node) (string, bool) {
	if node.Type == html.TextNode {
		return node.Data, true
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if text, ok := firstTextNode(child); ok {
			return text, true
		}
	}
	return "", false
}
