package pipeline

import (
	"sort"
	"strings"
)

// UnknownModelsError lists every requested name that is not in the catalog.
type UnknownModelsError struct {
	Names []string
}

func (e *UnknownModelsError) Error() string {
	return "unknown model names: " + strings.Join(e.Names, ", ")
}

// CycleError reports a dependency cycle with the participating models.
// Unreachable with the fixed catalog, but the edges may become
// externally configurable.
type CycleError struct {
	Members []string
}

func (e *CycleError) Error() string {
	return "dependency cycle among models: " + strings.Join(e.Members, ", ")
}

// ResolveOrder returns a valid execution order for the requested models: a
// topological sort of the dependency DAG restricted to the requested set
// plus everything it transitively requires. An empty request resolves to
// the full catalog. Ties are broken by catalog order, so the result is
// deterministic regardless of request order.
func ResolveOrder(requested []string) ([]string, error) {
	specs := Catalog()
	byName := make(map[string]ModelSpec, len(specs))
	position := make(map[string]int, len(specs))
	for i, spec := range specs {
		byName[spec.Name] = spec
		position[spec.Name] = i
	}

	if len(requested) == 0 {
		requested = CatalogNames()
	}

	var unknown []string
	for _, name := range requested {
		if _, ok := byName[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, &UnknownModelsError{Names: unknown}
	}

	// Close the requested set over its dependencies: a requested model
	// whose dependency was omitted still executes that dependency first.
	selected := make(map[string]bool)
	var include func(name string)
	include = func(name string) {
		if selected[name] {
			return
		}
		selected[name] = true
		for _, dep := range byName[name].DependsOn {
			include(dep)
		}
	}
	for _, name := range requested {
		include(name)
	}

	indegree := make(map[string]int, len(selected))
	dependents := make(map[string][]string, len(selected))
	for name := range selected {
		for _, dep := range byName[name].DependsOn {
			indegree[name]++
			dependents[dep] = append(dependents[dep], name)
		}
	}

	var ready []string
	for name := range selected {
		if indegree[name] == 0 {
			ready = append(ready, name)
		}
	}

	order := make([]string, 0, len(selected))
	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool {
			return position[ready[i]] < position[ready[j]]
		})
		next := ready[0]
		ready = ready[1:]
		order = append(order, next)

		for _, dependent := range dependents[next] {
			indegree[dependent]--
			if indegree[dependent] == 0 {
				ready = append(ready, dependent)
			}
		}
	}

	if len(order) != len(selected) {
		var members []string
		for name := range selected {
			if indegree[name] > 0 {
				members = append(members, name)
			}
		}
		sort.Strings(members)
		return nil, &CycleError{Members: members}
	}

	return order, nil
}
