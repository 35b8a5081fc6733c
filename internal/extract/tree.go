package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	rootNode        = "node-0"
	partialExamNode = "node-1000"

	childOfPrefix = "child-of-"
)

// rowTree is the parent -> children adjacency of a tree table, built from the
// `child-of-<parent id>` classes the portal puts on every row.
type rowTree struct {
	children map[string][]*goquery.Selection
}

func buildRowTree(tbody *goquery.Selection) rowTree {
	tree := rowTree{children: map[string][]*goquery.Selection{}}
	tbody.Find("tr").Each(func(_ int, row *goquery.Selection) {
		for _, class := range strings.Fields(row.AttrOr("class", "")) {
			parent, ok := strings.CutPrefix(class, childOfPrefix)
			if !ok || parent == "" {
				continue
			}
			tree.children[parent] = append(tree.children[parent], row)
		}
	})
	return tree
}

func (t rowTree) childrenOf(id string) []*goquery.Selection {
	return t.children[id]
}
