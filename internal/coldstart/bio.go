package coldstart

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/net/html"
)

const maxKeywords = 10

var stopWords = map[string]struct{}{
	"about": {}, "after": {}, "also": {}, "been": {}, "from": {}, "have": {}, "into": {},
	"more": {}, "over": {}, "that": {}, "their": {}, "them": {}, "they": {}, "this": {},
	"what": {}, "when": {}, "where": {}, "which": {}, "with": {}, "work": {}, "working": {},
	"years": {}, "your": {}, "will": {}, "than": {}, "were": {}, "these": {}, "those": {},
}

// plainText 去掉 bio 中可能存在的 HTML 标记，只保留文本节点。
func plainText(bio string) string {
	if !strings.ContainsAny(bio, "<&") {
		return bio
	}
	node, err := html.Parse(strings.NewReader(bio))
	if err != nil {
		return bio
	}
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(node)
	return b.String()
}

// bioKeywords 按词频取前若干个关键词，频次相同按字母序。
func bioKeywords(bio string) []string {
	words := strings.FieldsFunc(strings.ToLower(plainText(bio)), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '+' && r != '#'
	})
	counts := map[string]int{}
	for _, w := range words {
		if len([]rune(w)) < 4 {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		counts[w]++
	}
	out := make([]string, 0, len(counts))
	for w := range counts {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool {
		if counts[out[i]] != counts[out[j]] {
			return counts[out[i]] > counts[out[j]]
		}
		return out[i] < out[j]
	})
	if len(out) > maxKeywords {
		out = out[:maxKeywords]
	}
	return out
}
