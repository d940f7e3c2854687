package syncer

import (
	"sort"
)

// Manifest is the set of names known on each side of one sync pass.
type Manifest struct {
	Local  map[string]struct{}
	Remote map[string]struct{}
}

// NewManifest builds a manifest from local relative paths and remote object names.
func NewManifest(local, remote []string) Manifest {
	m := Manifest{
		Local:  make(map[string]struct{}, len(local)),
		Remote: make(map[string]struct{}, len(remote)),
	}
	for _, name := range local {
		m.Local[name] = struct{}{}
	}
	for _, name := range remote {
		m.Remote[name] = struct{}{}
	}
	return m
}

// MissingRemote returns local names with no remote object, sorted.
func (m Manifest) MissingRemote() []string {
	return difference(m.Local, m.Remote)
}

// MissingLocal returns remote names with no local file, sorted.
func (m Manifest) MissingLocal() []string {
	return difference(m.Remote, m.Local)
}

// InSync returns the number of names present on both sides.
func (m Manifest) InSync() int {
	n := 0
	for name := range m.Local {
		if _, ok := m.Remote[name]; ok {
			n++
		}
	}
	return n
}

// Converged reports whether both sides hold the same names.
func (m Manifest) Converged() bool {
	return len(m.Local) == len(m.Remote) && m.InSync() == len(m.Local)
}

func difference(a, b map[string]struct{}) []string {
	out := make([]string, 0)
	for name := range a {
		if _, ok := b[name]; !ok {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
