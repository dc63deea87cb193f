package scoring

import (
	"strings"
	"unicode"
)

// norm 小写、去首尾空白并折叠内部空白。
func norm(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func tokens(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '+' && r != '#' && r != '-'
	})
}

// hasTerm 判断 term 的词序列是否连续出现在 value 中，避免 "cto" 误中 "director"。
func hasTerm(value, term string) bool {
	vt, tt := tokens(value), tokens(term)
	if len(tt) == 0 || len(vt) < len(tt) {
		return false
	}
	for i := 0; i+len(tt) <= len(vt); i++ {
		match := true
		for j := range tt {
			if vt[i+j] != tt[j] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

// termsMatch 双向包含，"Investor" 可匹配 "Angel Investor"。
func termsMatch(a, b string) bool {
	na, nb := norm(a), norm(b)
	if na == "" || nb == "" {
		return false
	}
	return na == nb || hasTerm(na, nb) || hasTerm(nb, na)
}

func matchesAny(value string, terms []string) bool {
	for _, t := range terms {
		if termsMatch(value, t) {
			return true
		}
	}
	return false
}

// cleanTerms 归一化并去重、去空，保持原始顺序。
func cleanTerms(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		n := norm(v)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// categoriesOf 返回 value 命中的全部类别名。
func categoriesOf(value string, cats []Category) map[string]bool {
	out := map[string]bool{}
	for _, c := range cats {
		for _, k := range c.Keywords {
			if hasTerm(value, k) {
				out[c.Name] = true
				break
			}
		}
	}
	return out
}

// firstCategory 按声明顺序返回首个命中的类别及关键词。
func firstCategory(value string, cats []Category) (string, string) {
	for _, c := range cats {
		for _, k := range c.Keywords {
			if hasTerm(value, k) {
				return c.Name, norm(k)
			}
		}
	}
	return "", ""
}

func pairMatches(a, b string, p Pair) bool {
	return (hasTerm(a, p.A) && hasTerm(b, p.B)) || (hasTerm(a, p.B) && hasTerm(b, p.A))
}

func sharesKey(a, b map[string]bool) bool {
	for k := range a {
		if b[k] {
			return true
		}
	}
	return false
}
