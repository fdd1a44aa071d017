package app

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// renderDigest produces the markdown digest persisted for one run: items
// grouped by category, in rank order within each group.
func renderDigest(sourceName string, day time.Time, items []DigestItem) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s digest — %s\n\n", sourceName, day.Format("2006-01-02"))

	if len(items) == 0 {
		b.WriteString("対象期間に新しい記事はありませんでした。\n")
		return b.String()
	}

	groups := map[string][]DigestItem{}
	var order []string
	for _, item := range items {
		cat := item.Category
		if cat == "" {
			cat = "その他"
		}
		if _, ok := groups[cat]; !ok {
			order = append(order, cat)
		}
		groups[cat] = append(groups[cat], item)
	}
	// Category order follows the best-ranked item in each group.
	sort.SliceStable(order, func(i, j int) bool {
		return groups[order[i]][0].Rank < groups[order[j]][0].Rank
	})

	for _, cat := range order {
		fmt.Fprintf(&b, "## %s\n\n", cat)
		for _, item := range groups[cat] {
			if item.URL != "" {
				fmt.Fprintf(&b, "### %d. [%s](%s)\n\n", item.Rank, item.Title, item.URL)
			} else {
				fmt.Fprintf(&b, "### %d. %s\n\n", item.Rank, item.Title)
			}
			fmt.Fprintf(&b, "%s\n\n", item.Summary)
			fmt.Fprintf(&b, "score: %.2f\n\n", item.Score)
		}
	}
	return b.String()
}
