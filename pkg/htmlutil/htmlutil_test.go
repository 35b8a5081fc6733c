package htmlutil

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, markup string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	require.NoError(t, err)
	return doc
}

func TestTextNodes(t *testing.T) {
	doc := parse(t, `<div id="a"><b>Mathe I</b>, Prüfungstermin: <i>12.02.2024</i> um <span>09:00</span></div>`)
	sel := doc.Find("#a")

	require.Equal(
		t,
		[]string{"Mathe I", ", Prüfungstermin: ", "12.02.2024", " um ", "09:00"},
		SelectionTextNodes(sel),
	)
	require.Equal(t, "Mathe I, Prüfungstermin: 12.02.2024 um 09:00", GetText(sel.Nodes[0]))
	require.Equal(t, TextNodes(sel.Nodes[0]), SelectionTextNodes(sel))
}

func TestSelectionTextNodesSpansNodes(t *testing.T) {
	doc := parse(t, `<div class="x">a<b> </b></div><div class="x">b</div>`)
	require.Equal(t, []string{"a", " ", "b"}, SelectionTextNodes(doc.Find(".x")))
}

func TestFirstText(t *testing.T) {
	table := []struct {
		markup   string
		expected string
	}{
		{markup: `<p id="a"><span>first</span>second</p>`, expected: "first"},
		{markup: `<p id="a"><img src="x.png"></p>`, expected: ""},
		{markup: `<p id="a"> padded </p>`, expected: " padded "},
	}

	for _, row := range table {
		doc := parse(t, row.markup)
		require.Equal(t, row.expected, FirstText(doc.Find("#a")))
	}
}
