package file

import (
	"sort"
)

// sortRules orders rules the way a group evaluates them: by group,
// then priority ascending, then id ascending.
func sortRules(list []*Rule) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if a.GroupId != b.GroupId {
			return a.GroupId < b.GroupId
		}
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		return a.Id < b.Id
	})
}
