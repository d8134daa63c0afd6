package configmgr

import (
	"strings"

	gateman "github.com/sschakraborty/gateman-go/internal"
)

// matchAPI runs the three cascading filters over candidates in order --
// path prefix, method equality, hostname equality -- and returns the last
// surviving entry. Matching is literal throughout; glob syntax appearing in
// an API's paths or hostnames is never expanded, preserving the reference
// matcher's observed (if surprising) behavior.
func matchAPI(candidates []gateman.APIDefinition, query gateman.QuerySpec) (gateman.APIDefinition, bool) {
	survivors := filterByPath(candidates, query.Paths)
	survivors = filterByMethod(survivors, query.Methods)
	survivors = filterByHostname(survivors, query.Hostnames)

	if len(survivors) == 0 {
		return gateman.APIDefinition{}, false
	}
	return survivors[len(survivors)-1], true
}

func filterByPath(candidates []gateman.APIDefinition, queryPaths []string) []gateman.APIDefinition {
	out := make([]gateman.APIDefinition, 0, len(candidates))
	for _, api := range candidates {
		for _, qp := range queryPaths {
			for _, ap := range api.Specification.Paths {
				if strings.HasPrefix(qp, ap) {
					out = append(out, api)
					break
				}
			}
		}
	}
	return out
}

func filterByMethod(candidates []gateman.APIDefinition, queryMethods []string) []gateman.APIDefinition {
	out := make([]gateman.APIDefinition, 0, len(candidates))
	for _, api := range candidates {
		if containsAny(api.Specification.Methods, queryMethods) {
			out = append(out, api)
		}
	}
	return out
}

func filterByHostname(candidates []gateman.APIDefinition, queryHostnames []string) []gateman.APIDefinition {
	out := make([]gateman.APIDefinition, 0, len(candidates))
	for _, api := range candidates {
		if containsAny(api.Specification.Hostnames, queryHostnames) {
			out = append(out, api)
		}
	}
	return out
}

// containsAny reports whether set and query share at least one element,
// compared by literal case-sensitive equality.
func containsAny(set, query []string) bool {
	for _, q := range query {
		for _, s := range set {
			if s == q {
				return true
			}
		}
	}
	return false
}

// cacheKey flattens a QuerySpec into a single string suitable as a cache
// key. Order-sensitive by design: a QuerySpec is always built fresh from a
// single request's method/path/Host, so the caller-supplied order is stable
// per call site.
func cacheKey(query gateman.QuerySpec) string {
	var b strings.Builder
	writeJoined(&b, query.Methods)
	b.WriteByte('|')
	writeJoined(&b, query.Paths)
	b.WriteByte('|')
	writeJoined(&b, query.Hostnames)
	return b.String()
}

func writeJoined(b *strings.Builder, parts []string) {
	for i, p := range parts {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(p)
	}
}
