// Package collision implements the narrow phase of distance queries between robot links, attached bodies and
// world objects: the allowed collision policy, the per-pair distance callback and the aggregates it writes.
package collision

import (
	"go.viam.com/collisiondistance/referenceframe"
)

// AllowedCollision is the policy recorded for a pair of bodies.
type AllowedCollision int

const (
	// Never means the pair must always be checked.
	Never AllowedCollision = iota
	// Always means the pair never needs checking.
	Always
	// Conditional means a decider function is consulted for contacts between the pair.
	Conditional
)

func (a AllowedCollision) String() string {
	switch a {
	case Never:
		return "never"
	case Always:
		return "always"
	case Conditional:
		return "conditional"
	default:
		return "unknown"
	}
}

// DecideContactFn decides whether a contact between the two named bodies is allowed.
type DecideContactFn func(name1, name2 string) bool

type namePair struct {
	a, b string
}

func newNamePair(name1, name2 string) namePair {
	if name2 < name1 {
		name1, name2 = name2, name1
	}
	return namePair{a: name1, b: name2}
}

type acmEntry struct {
	allowed AllowedCollision
	decider DecideContactFn
}

// AllowedCollisionMatrix is a symmetric sparse table of body pairs and their allowed collision policy.
// Pairs without an entry fall back to the default entries of their bodies, and must be checked when neither
// body has one.
type AllowedCollisionMatrix struct {
	entries  map[namePair]acmEntry
	defaults map[string]AllowedCollision
}

// NewAllowedCollisionMatrix returns an empty matrix.
func NewAllowedCollisionMatrix() *AllowedCollisionMatrix {
	return &AllowedCollisionMatrix{entries: map[namePair]acmEntry{}, defaults: map[string]AllowedCollision{}}
}

// NewAllowedCollisionMatrixFromModel seeds every pair of collision bearing links with Never, then marks the
// model's disabled collision pairs as Always.
func NewAllowedCollisionMatrixFromModel(model *referenceframe.Model) *AllowedCollisionMatrix {
	acm := NewAllowedCollisionMatrix()
	links := model.LinksWithCollisionGeometry()
	acm.SetEntries(links, links, false)
	for _, pair := range model.DisabledCollisions() {
		acm.SetEntry(pair.Link1, pair.Link2, true)
	}
	return acm
}

// SetEntry records whether collisions between the two bodies are always allowed.
func (acm *AllowedCollisionMatrix) SetEntry(name1, name2 string, allowed bool) {
	entry := acmEntry{allowed: Never}
	if allowed {
		entry.allowed = Always
	}
	acm.entries[newNamePair(name1, name2)] = entry
}

// SetConditionalEntry records a decider for contacts between the two bodies.
func (acm *AllowedCollisionMatrix) SetConditionalEntry(name1, name2 string, fn DecideContactFn) {
	acm.entries[newNamePair(name1, name2)] = acmEntry{allowed: Conditional, decider: fn}
}

// SetEntries records the policy for every pair formed from names1 and names2, skipping a body paired with itself.
func (acm *AllowedCollisionMatrix) SetEntries(names1, names2 []string, allowed bool) {
	for _, n1 := range names1 {
		for _, n2 := range names2 {
			if n1 != n2 {
				acm.SetEntry(n1, n2, allowed)
			}
		}
	}
}

// RemoveEntry forgets the policy for the pair.
func (acm *AllowedCollisionMatrix) RemoveEntry(name1, name2 string) {
	delete(acm.entries, newNamePair(name1, name2))
}

// SetDefaultEntry records the policy used for every pair involving name that has no entry of its own.
func (acm *AllowedCollisionMatrix) SetDefaultEntry(name string, allowed bool) {
	acm.defaults[name] = Never
	if allowed {
		acm.defaults[name] = Always
	}
}

// RemoveDefaultEntry forgets the default policy of name.
func (acm *AllowedCollisionMatrix) RemoveDefaultEntry(name string) {
	delete(acm.defaults, name)
}

// GetEntry returns the policy recorded for the pair and whether there was one.
func (acm *AllowedCollisionMatrix) GetEntry(name1, name2 string) (AllowedCollision, bool) {
	entry, ok := acm.entries[newNamePair(name1, name2)]
	return entry.allowed, ok
}

// GetAllowedCollision returns the policy that applies to the pair: its own entry if there is one, otherwise the
// stricter of the two bodies' default entries.
func (acm *AllowedCollisionMatrix) GetAllowedCollision(name1, name2 string) (AllowedCollision, bool) {
	if allowed, ok := acm.GetEntry(name1, name2); ok {
		return allowed, true
	}
	d1, ok1 := acm.defaults[name1]
	d2, ok2 := acm.defaults[name2]
	switch {
	case ok1 && ok2:
		if d1 == Never || d2 == Never {
			return Never, true
		}
		return Always, true
	case ok1:
		return d1, true
	case ok2:
		return d2, true
	default:
		return Never, false
	}
}

// Decider returns the decider function of a Conditional entry.
func (acm *AllowedCollisionMatrix) Decider(name1, name2 string) (DecideContactFn, bool) {
	entry, ok := acm.entries[newNamePair(name1, name2)]
	if !ok || entry.allowed != Conditional {
		return nil, false
	}
	return entry.decider, true
}

// IsAllowed returns true only when the policy that applies to the pair is an explicit Always. A nil matrix allows
// nothing.
func (acm *AllowedCollisionMatrix) IsAllowed(name1, name2 string) bool {
	if acm == nil {
		return false
	}
	allowed, ok := acm.GetAllowedCollision(name1, name2)
	return ok && allowed == Always
}

// Size returns the number of recorded pairs.
func (acm *AllowedCollisionMatrix) Size() int {
	return len(acm.entries)
}
