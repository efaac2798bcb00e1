package main

import "strings"

// Substitution rewrites a real on-disk directory prefix to a virtual
// directory prefix, the way a build system's proto_path mappings let a
// schema file be imported under a path that differs from where it lives
// on disk.
type Substitution struct {
	VirtualDir string
	RealDir    string
}

// PathResolver translates between three path spaces for one
// compilation unit: full on-disk paths, the virtual relative paths a
// schema file is imported/declared under, and the graph Identity
// assigned to a required input by path.
//
// Substitutions are tried in the order given and the first match wins,
// not the longest or most specific one. This mirrors the original
// indexer's FullPathToRelative, which walks its substitution list with
// PartialMatch and returns on the first hit; a later, more specific
// substitution never overrides an earlier, looser one.
type PathResolver struct {
	unit          *CompilationUnit
	substitutions []Substitution
	cache         map[string]string // relative path -> full path
}

// NewPathResolver builds a resolver for one compilation unit's required
// inputs and substitution list.
func NewPathResolver(unit *CompilationUnit, substitutions []Substitution) *PathResolver {
	return &PathResolver{
		unit:          unit,
		substitutions: substitutions,
		cache:         make(map[string]string),
	}
}

// FullToRelative converts a full on-disk path into the relative form a
// schema compiler should see. It first checks the cache for an entry
// whose recorded full path equals full (so that a path already resolved
// once comes back as the same relative string), then applies the
// substitution list in order, caching the first match. If nothing
// matches, full is returned unchanged.
func (r *PathResolver) FullToRelative(full string) string {
	for relative, cachedFull := range r.cache {
		if cachedFull == full {
			return relative
		}
	}
	for _, sub := range r.substitutions {
		realDir := sub.RealDir
		if !strings.HasSuffix(realDir, "/") {
			realDir += "/"
		}
		if !strings.HasPrefix(full, realDir) {
			continue
		}
		remainder := strings.TrimPrefix(full, realDir)
		relative := remainder
		if sub.VirtualDir != "" {
			relative = strings.TrimSuffix(sub.VirtualDir, "/") + "/" + remainder
		}
		r.cache[relative] = full
		return relative
	}
	return full
}

// RelativeToIdentity resolves a relative path to the graph Identity of
// the required input that declares it. The relative path is first
// turned back into a full path via the cache populated by
// FullToRelative (or, if no cache entry exists, used as-is, for callers
// that hand RelativeToIdentity a path lifted directly from required
// input without ever calling FullToRelative on it). Returns false if no
// required input matches.
func (r *PathResolver) RelativeToIdentity(relative string) (Identity, bool) {
	full, ok := r.cache[relative]
	if !ok {
		full = relative
	}
	for _, input := range r.unit.RequiredInput {
		if input.Path == full {
			return input.Identity, true
		}
	}
	return Identity{}, false
}
