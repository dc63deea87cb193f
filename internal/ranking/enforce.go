package ranking

// similarity 与已接纳候选中最相近者的行业/职位/公司重合比例。
func similarity(c Candidate, admitted []Candidate) float64 {
	best := 0.0
	for _, a := range admitted {
		same := 0
		if sameAttr(c.Industry, a.Industry) {
			same++
		}
		if sameAttr(c.Position, a.Position) {
			same++
		}
		if sameAttr(c.Company, a.Company) {
			same++
		}
		if r := float64(same) / 3; r > best {
			best = r
		}
	}
	return best
}

// EnforceDiversity 在已排序列表上把与前面结果过于相似（相似度 > 1-factor）
// 的候选推迟到后面；每个候选最多推迟一次，再次轮到时直接接纳。
func EnforceDiversity[T Item](items []T, factor float64) []T {
	if len(items) < 2 {
		return items
	}
	threshold := 1 - factor

	pending := make([]int, len(items))
	for i := range pending {
		pending[i] = i
	}
	deferred := make([]bool, len(items))
	out := make([]T, 0, len(items))
	admitted := make([]Candidate, 0, len(items))

	for len(pending) > 0 {
		idx := pending[0]
		pending = pending[1:]
		c := items[idx].RankingCandidate()
		if !deferred[idx] && similarity(c, admitted) > threshold {
			deferred[idx] = true
			pending = append(pending, idx)
			continue
		}
		out = append(out, items[idx])
		admitted = append(admitted, c)
	}
	return out
}

// CollisionRate 前 n 个结果两两之间行业/职位/公司冲突的平均比例。
func CollisionRate[T Item](items []T, n int) float64 {
	if n > len(items) {
		n = len(items)
	}
	pairs, total := 0, 0.0
	for i := 0; i < n; i++ {
		ci := items[i].RankingCandidate()
		for j := i + 1; j < n; j++ {
			total += similarity(ci, []Candidate{items[j].RankingCandidate()})
			pairs++
		}
	}
	if pairs == 0 {
		return 0
	}
	return total / float64(pairs)
}
