package explain

import "sort"

// Sizes counts samples per cluster id. Counts are ordered by ascending id and
// only ids that actually occur are reported, so the result may be shorter
// than k when some clusters are empty.
func Sizes(assignment []int) []int {
	_, counts := SizesByID(assignment)
	return counts
}

// SizesByID is Sizes with the matching cluster ids.
func SizesByID(assignment []int) (ids, counts []int) {
	tally := map[int]int{}
	for _, c := range assignment {
		tally[c]++
	}
	ids = make([]int, 0, len(tally))
	for id := range tally {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	counts = make([]int, len(ids))
	for i, id := range ids {
		counts[i] = tally[id]
	}
	return ids, counts
}
