package levels

import (
	"slices"
	"sort"

	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"
)

// KindUpgrade rewrites a legacy component kind into a newer one.
type KindUpgrade struct {
	Name string
	// From lists the legacy kind names this step accepts.
	From []string
	// To is the kind name the step produces.
	To string
	// Rewrite converts the payload. A nil Rewrite keeps the payload as is.
	Rewrite func(payload json.RawMessage) (json.RawMessage, error)
}

// UpgradeChain is an ordered list of kind upgrades. Steps are checked for cycles
// when they are added, so a cyclic chain never reaches level loading.
type UpgradeChain struct {
	steps []KindUpgrade
}

// Add appends a step. A step that would close a cycle is rejected with
// ErrConfiguration and the chain is left unchanged.
func (c *UpgradeChain) Add(step KindUpgrade) error {
	if step.To == "" || len(step.From) == 0 {
		return eris.Wrapf(ErrConfiguration, "upgrade %q must name its source and target kinds", step.Name)
	}
	for _, from := range step.From {
		if from == "" {
			return eris.Wrapf(ErrConfiguration, "upgrade %q has an empty source kind", step.Name)
		}
	}
	candidate := append(slices.Clone(c.steps), step)
	if cycle := findCycle(candidate); cycle != nil {
		return eris.Wrapf(ErrConfiguration, "upgrade %q closes the cycle %v", step.Name, cycle)
	}
	c.steps = candidate
	return nil
}

// Validate checks the whole chain for cycles. Add already rejects them, so this
// only fails for chains assembled some other way.
func (c *UpgradeChain) Validate() error {
	if c == nil {
		return nil
	}
	if cycle := findCycle(c.steps); cycle != nil {
		return eris.Wrapf(ErrConfiguration, "upgrade chain has the cycle %v", cycle)
	}
	return nil
}

// Len returns the number of steps.
func (c *UpgradeChain) Len() int {
	if c == nil {
		return 0
	}
	return len(c.steps)
}

// Apply follows the chain from kind until it reaches a known kind or no step
// matches. ok is false when the result is still unknown, in which case the
// original kind and payload are returned untouched.
func (c *UpgradeChain) Apply(kind string, payload json.RawMessage, known func(string) bool) (string, json.RawMessage, bool, error) {
	if known(kind) {
		return kind, payload, true, nil
	}
	if c == nil {
		return kind, payload, false, nil
	}
	visited := map[string]bool{kind: true}
	curKind, curPayload := kind, payload
	for {
		step, found := c.match(curKind)
		if !found {
			return kind, payload, false, nil
		}
		next := curPayload
		if step.Rewrite != nil {
			var err error
			if next, err = step.Rewrite(curPayload); err != nil {
				return kind, payload, false, eris.Wrapf(err, "upgrade %q on %q", step.Name, curKind)
			}
		}
		if visited[step.To] {
			return kind, payload, false, eris.Wrapf(ErrConfiguration, "upgrade %q revisits %q", step.Name, step.To)
		}
		visited[step.To] = true
		curKind, curPayload = step.To, next
		if known(curKind) {
			return curKind, curPayload, true, nil
		}
	}
}

func (c *UpgradeChain) match(kind string) (KindUpgrade, bool) {
	for _, s := range c.steps {
		if slices.Contains(s.From, kind) {
			return s, true
		}
	}
	return KindUpgrade{}, false
}

// findCycle returns the kinds on a cycle of the From -> To graph, or nil.
func findCycle(steps []KindUpgrade) []string {
	edges := map[string][]string{}
	var nodes []string
	for _, s := range steps {
		for _, from := range s.From {
			if _, ok := edges[from]; !ok {
				nodes = append(nodes, from)
			}
			edges[from] = append(edges[from], s.To)
		}
	}

	const (
		unvisited = iota
		inProgress
		done
	)
	state := map[string]int{}
	var stack []string
	var visit func(n string) []string
	visit = func(n string) []string {
		state[n] = inProgress
		stack = append(stack, n)
		for _, next := range edges[n] {
			switch state[next] {
			case inProgress:
				i := slices.Index(stack, next)
				return append(slices.Clone(stack[i:]), next)
			case unvisited:
				if cycle := visit(next); cycle != nil {
					return cycle
				}
			}
		}
		stack = stack[:len(stack)-1]
		state[n] = done
		return nil
	}
	for _, n := range nodes {
		if state[n] == unvisited {
			if cycle := visit(n); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}

// EntityUpgradeFunc rewrites the component map of one entity while moving the
// level to a newer app format version.
type EntityUpgradeFunc func(typeName string, components map[string]json.RawMessage) error

type versionedUpgrade struct {
	target int
	name   string
	fn     EntityUpgradeFunc
}

// Catalog answers which archetypes and component kinds the running build knows.
type Catalog interface {
	HasArchetype(name string) bool
	HasKind(name string) bool
}

// Codec decodes level text and brings it up to date with the running build.
type Codec struct {
	AppFormatVersion int

	catalog   Catalog
	versioned []versionedUpgrade
	chain     UpgradeChain
}

// NewCodec creates a codec for the given app format version. catalog may be nil,
// in which case the kind upgrade chain is not applied.
func NewCodec(appFormatVersion int, catalog Catalog) *Codec {
	return &Codec{AppFormatVersion: appFormatVersion, catalog: catalog}
}

// SetCatalog replaces the catalog used by the kind upgrade chain.
func (c *Codec) SetCatalog(catalog Catalog) {
	c.catalog = catalog
}

// AddVersionedUpgrade registers fn to run on every entity of a known archetype in
// levels saved with an app format version below target.
func (c *Codec) AddVersionedUpgrade(target int, name string, fn EntityUpgradeFunc) error {
	if fn == nil {
		return eris.Wrapf(ErrConfiguration, "versioned upgrade %q is nil", name)
	}
	if target < 1 || target > c.AppFormatVersion {
		return eris.Wrapf(ErrConfiguration, "versioned upgrade %q targets %d outside 1..%d", name, target, c.AppFormatVersion)
	}
	c.versioned = append(c.versioned, versionedUpgrade{target: target, name: name, fn: fn})
	sort.SliceStable(c.versioned, func(i, j int) bool { return c.versioned[i].target < c.versioned[j].target })
	return nil
}

// AddKindUpgrade appends a step to the kind upgrade chain.
func (c *Codec) AddKindUpgrade(step KindUpgrade) error {
	return c.chain.Add(step)
}

// Chain returns the kind upgrade chain.
func (c *Codec) Chain() *UpgradeChain {
	return &c.chain
}

// Rewrite records one component kind renamed by the upgrade chain.
type Rewrite struct {
	Entity int
	From   string
	To     string
}

// Unresolved records a component kind left verbatim on an entity of a known
// archetype because no upgrade produced a registered kind.
type Unresolved struct {
	Entity int
	Kind   string
	Err    error
}

// UpgradeReport summarizes what Upgrade changed.
type UpgradeReport struct {
	FromAppVersion int
	Rewrites       []Rewrite
	Unresolved     []Unresolved
}

// Decode parses text and upgrades the result.
func (c *Codec) Decode(text []byte) (*Document, UpgradeReport, error) {
	doc, err := Decode(text)
	if err != nil {
		return nil, UpgradeReport{}, err
	}
	report, err := c.Upgrade(doc)
	if err != nil {
		return nil, report, err
	}
	return doc, report, nil
}

// Upgrade applies versioned entity upgrades and then the kind upgrade chain to
// doc in place.
func (c *Codec) Upgrade(doc *Document) (UpgradeReport, error) {
	report := UpgradeReport{FromAppVersion: doc.Header.AppFormatVersion}
	if doc.Header.AppFormatVersion > c.AppFormatVersion {
		return report, eris.Wrapf(ErrParse, "level app format version %d is newer than %d", doc.Header.AppFormatVersion, c.AppFormatVersion)
	}

	for _, up := range c.versioned {
		if up.target <= doc.Header.AppFormatVersion {
			continue
		}
		for i := range doc.Entities {
			e := &doc.Entities[i]
			// Records of unknown archetypes are kept verbatim.
			if c.catalog != nil && !c.catalog.HasArchetype(e.Header.Type) {
				continue
			}
			if e.Components == nil {
				e.Components = map[string]json.RawMessage{}
			}
			if err := up.fn(e.Header.Type, e.Components); err != nil {
				return report, eris.Wrapf(err, "versioned upgrade %q on entities[%d]", up.name, i)
			}
		}
	}
	doc.Header.AppFormatVersion = c.AppFormatVersion

	if c.catalog == nil {
		return report, nil
	}
	for i := range doc.Entities {
		e := &doc.Entities[i]
		if !c.catalog.HasArchetype(e.Header.Type) {
			continue
		}
		for _, kind := range e.ComponentNames() {
			if c.catalog.HasKind(kind) {
				continue
			}
			newKind, payload, ok, err := c.chain.Apply(kind, e.Components[kind], c.catalog.HasKind)
			if err != nil || !ok {
				report.Unresolved = append(report.Unresolved, Unresolved{Entity: i, Kind: kind, Err: err})
				continue
			}
			if _, taken := e.Components[newKind]; taken {
				report.Unresolved = append(report.Unresolved, Unresolved{
					Entity: i,
					Kind:   kind,
					Err:    eris.Errorf("upgraded kind %q already present", newKind),
				})
				continue
			}
			delete(e.Components, kind)
			e.Components[newKind] = payload
			report.Rewrites = append(report.Rewrites, Rewrite{Entity: i, From: kind, To: newKind})
		}
	}
	return report, nil
}
