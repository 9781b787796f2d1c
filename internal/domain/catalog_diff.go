package domain

import (
	"reflect"
	"sort"
)

// CatalogDiff summarizes service changes between two catalog states.
type CatalogDiff struct {
	Added   []string
	Removed []string
	Updated []string
}

// IsEmpty reports whether the diff contains any changes.
func (d CatalogDiff) IsEmpty() bool {
	return len(d.Added) == 0 &&
		len(d.Removed) == 0 &&
		len(d.Updated) == 0
}

// DiffServices compares two service sets keyed by service name.
func DiffServices(prev, next map[string]Service) CatalogDiff {
	diff := CatalogDiff{}
	for name, prevSvc := range prev {
		nextSvc, ok := next[name]
		if !ok {
			diff.Removed = append(diff.Removed, name)
			continue
		}
		if !reflect.DeepEqual(prevSvc, nextSvc) {
			diff.Updated = append(diff.Updated, name)
		}
	}
	for name := range next {
		if _, ok := prev[name]; !ok {
			diff.Added = append(diff.Added, name)
		}
	}

	sort.Strings(diff.Added)
	sort.Strings(diff.Removed)
	sort.Strings(diff.Updated)
	return diff
}
