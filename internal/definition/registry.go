package definition

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/shiftwise/console/model"
)

// snapshot is an immutable collection of all definitions indexed by ID.
type snapshot struct {
	domains  map[string]model.DomainDefinition
	screens  map[string]model.ScreenDefinition
	lookups  map[string]model.LookupDefinition
	wizards  map[string]model.WizardDefinition
	checksum string
}

// Registry is a read-optimized, thread-safe store of all loaded definitions.
// It uses atomic pointer swap for lock-free concurrent reads.
type Registry struct {
	snap atomic.Pointer[snapshot]
}

// NewRegistry creates a Registry from the given definitions.
func NewRegistry(defs []model.DomainDefinition) *Registry {
	r := &Registry{}
	r.Replace(defs)
	return r
}

// Replace atomically swaps the registry contents with a new snapshot built
// from the given definitions.
func (r *Registry) Replace(defs []model.DomainDefinition) {
	s := &snapshot{
		domains: make(map[string]model.DomainDefinition, len(defs)),
		screens: make(map[string]model.ScreenDefinition),
		lookups: make(map[string]model.LookupDefinition),
		wizards: make(map[string]model.WizardDefinition),
	}

	var checksumParts []string

	for _, def := range defs {
		s.domains[def.Domain] = def
		checksumParts = append(checksumParts, def.Checksum)

		for _, sc := range def.Screens {
			s.screens[sc.ID] = sc
		}
		for _, l := range def.Lookups {
			s.lookups[l.ID] = l
		}
		for _, w := range def.Wizards {
			s.wizards[w.ID] = w
		}
	}

	sort.Strings(checksumParts)
	combined := strings.Join(checksumParts, ":")
	s.checksum = fmt.Sprintf("%x", sha256.Sum256([]byte(combined)))

	r.snap.Store(s)
}

func (r *Registry) current() *snapshot {
	return r.snap.Load()
}

// GetDomain returns the domain definition with the given ID.
func (r *Registry) GetDomain(domainID string) (model.DomainDefinition, bool) {
	d, ok := r.current().domains[domainID]
	return d, ok
}

// GetScreen returns the screen definition with the given ID.
func (r *Registry) GetScreen(screenID string) (model.ScreenDefinition, bool) {
	s, ok := r.current().screens[screenID]
	return s, ok
}

// GetLookup returns the lookup definition with the given ID.
func (r *Registry) GetLookup(lookupID string) (model.LookupDefinition, bool) {
	l, ok := r.current().lookups[lookupID]
	return l, ok
}

// GetWizard returns the wizard definition with the given ID.
func (r *Registry) GetWizard(wizardID string) (model.WizardDefinition, bool) {
	w, ok := r.current().wizards[wizardID]
	return w, ok
}

// AllDomains returns all domain definitions.
func (r *Registry) AllDomains() []model.DomainDefinition {
	s := r.current()
	defs := make([]model.DomainDefinition, 0, len(s.domains))
	for _, d := range s.domains {
		defs = append(defs, d)
	}
	return defs
}

// AllScreens returns all screen definitions.
func (r *Registry) AllScreens() []model.ScreenDefinition {
	s := r.current()
	screens := make([]model.ScreenDefinition, 0, len(s.screens))
	for _, sc := range s.screens {
		screens = append(screens, sc)
	}
	return screens
}

// Checksum returns the combined checksum of all loaded definitions.
func (r *Registry) Checksum() string {
	return r.current().checksum
}
