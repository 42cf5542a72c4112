// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

package extension

import "sort"

// Candidate is a package found on disk but not yet loaded.
type Candidate struct {
	Path     string
	Manifest *Manifest
}

// Order sorts candidates so that every candidate comes after the
// candidates it depends on. Ties break by id. Candidates in a dependency
// cycle are returned in cycle, unordered, and are left for the runtime to
// reject.
func Order(cands []Candidate) (ordered, cycle []Candidate) {
	byID := make(map[string]Candidate, len(cands))
	indegree := make(map[string]int, len(cands))
	for _, c := range cands {
		byID[c.Manifest.ID] = c
		indegree[c.Manifest.ID] = 0
	}

	dependents := make(map[string][]string)
	for id, c := range byID {
		for dep := range c.Manifest.Dependencies {
			if _, ok := byID[dep]; !ok {
				continue
			}
			indegree[id]++
			dependents[dep] = append(dependents[dep], id)
		}
	}

	var ready []string
	for id, n := range indegree {
		if n == 0 {
			ready = append(ready, id)
		}
	}
	sort.Strings(ready)

	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		ordered = append(ordered, byID[id])

		next := dependents[id]
		sort.Strings(next)
		for _, d := range next {
			indegree[d]--
			if indegree[d] == 0 {
				ready = append(ready, d)
			}
		}
		sort.Strings(ready)
	}

	if len(ordered) < len(byID) {
		var ids []string
		for id, n := range indegree {
			if n > 0 {
				ids = append(ids, id)
			}
		}
		sort.Strings(ids)
		for _, id := range ids {
			cycle = append(cycle, byID[id])
		}
	}
	return ordered, cycle
}
