package specsystem

import (
	"sort"
	"strings"

	"specboard/internal/domain/models/specsystem"
)

// FilterByPath keeps changes whose field path equals fieldPath exactly.
func FilterByPath(changes []*specsystem.FieldChange, fieldPath string) []*specsystem.FieldChange {
	return filter(changes, func(c *specsystem.FieldChange) bool {
		return c.FieldPath == fieldPath
	})
}

// FilterByPrefix keeps changes whose field path starts with prefix.
// This is a plain string prefix: "useCases.1" also matches "useCases.10".
func FilterByPrefix(changes []*specsystem.FieldChange, prefix string) []*specsystem.FieldChange {
	return filter(changes, func(c *specsystem.FieldChange) bool {
		return strings.HasPrefix(c.FieldPath, prefix)
	})
}

// FilterByStatus keeps changes in the given status.
func FilterByStatus(changes []*specsystem.FieldChange, status specsystem.ChangeStatus) []*specsystem.FieldChange {
	return filter(changes, func(c *specsystem.FieldChange) bool {
		return c.Status == status
	})
}

// LatestAccepted returns the accepted change for fieldPath with the newest
// CreatedAt, or nil. An empty fieldPath considers every path. On equal
// timestamps the change listed first wins, matching the store's
// newest-first ordering.
func LatestAccepted(changes []*specsystem.FieldChange, fieldPath string) *specsystem.FieldChange {
	var latest *specsystem.FieldChange
	for _, c := range changes {
		if c.Status != specsystem.ChangeStatusAccepted {
			continue
		}
		if fieldPath != "" && c.FieldPath != fieldPath {
			continue
		}
		if latest == nil || c.CreatedAt.After(latest.CreatedAt) {
			latest = c
		}
	}
	return latest
}

// ConflictingPending groups pending changes by field path and returns the
// groups holding more than one change, sorted by path. Changes keep their
// input order within a group.
func ConflictingPending(changes []*specsystem.FieldChange) []specsystem.ConflictGroup {
	byPath := make(map[string][]*specsystem.FieldChange)
	for _, c := range changes {
		if c.Status == specsystem.ChangeStatusPending {
			byPath[c.FieldPath] = append(byPath[c.FieldPath], c)
		}
	}

	groups := []specsystem.ConflictGroup{}
	for path, group := range byPath {
		if len(group) > 1 {
			groups = append(groups, specsystem.ConflictGroup{FieldPath: path, Changes: group})
		}
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].FieldPath < groups[j].FieldPath
	})
	return groups
}

func filter(changes []*specsystem.FieldChange, keep func(*specsystem.FieldChange) bool) []*specsystem.FieldChange {
	out := []*specsystem.FieldChange{}
	for _, c := range changes {
		if keep(c) {
			out = append(out, c)
		}
	}
	return out
}
