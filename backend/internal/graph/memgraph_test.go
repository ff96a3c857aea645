package graph

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"bookmap/backend/internal/geo"
)

// memGraph is an in-memory txRunner. Write transactions are serialised and
// rolled back on error, which is what the resolver needs from the store.
type memGraph struct {
	mu sync.Mutex

	seq     int
	nodes   map[string]*memNode
	within  map[string][]string // child uid -> parent uids
	authors map[string]Author
	bornIn  map[string][]string // goodreads id -> city uids
	locks   map[string]int

	// conflicts is the number of upcoming write commits rejected with a
	// constraint violation
	conflicts int
	// failOn makes the named geoTx method return the error
	failOn map[string]error
	// schemaErrs maps schema statements to the error run returns for them
	schemaErrs map[string]error

	writes     int
	reads      int
	statements []string
}

type memNode struct {
	seq  int
	kind geo.Kind
	uid  string
	name string
	lat  *float64
	lon  *float64
	key  string
	hash string
	cell string
}

func newMemGraph() *memGraph {
	return &memGraph{
		nodes:      map[string]*memNode{},
		within:     map[string][]string{},
		authors:    map[string]Author{},
		bornIn:     map[string][]string{},
		locks:      map[string]int{},
		failOn:     map[string]error{},
		schemaErrs: map[string]error{},
	}
}

func conflictError() error {
	return &neo4j.Neo4jError{
		Code: codeConstraintViolation,
		Msg:  "Node already exists with label `Country` and property `name`",
	}
}

type memSnapshot struct {
	seq     int
	nodes   map[string]*memNode
	within  map[string][]string
	authors map[string]Author
	bornIn  map[string][]string
	locks   map[string]int
}

func (g *memGraph) snapshot() memSnapshot {
	s := memSnapshot{
		seq:     g.seq,
		nodes:   make(map[string]*memNode, len(g.nodes)),
		within:  make(map[string][]string, len(g.within)),
		authors: make(map[string]Author, len(g.authors)),
		bornIn:  make(map[string][]string, len(g.bornIn)),
		locks:   make(map[string]int, len(g.locks)),
	}
	for k, v := range g.nodes {
		n := *v
		s.nodes[k] = &n
	}
	for k, v := range g.within {
		s.within[k] = append([]string(nil), v...)
	}
	for k, v := range g.authors {
		s.authors[k] = v
	}
	for k, v := range g.bornIn {
		s.bornIn[k] = append([]string(nil), v...)
	}
	for k, v := range g.locks {
		s.locks[k] = v
	}
	return s
}

func (g *memGraph) restore(s memSnapshot) {
	g.seq = s.seq
	g.nodes = s.nodes
	g.within = s.within
	g.authors = s.authors
	g.bornIn = s.bornIn
	g.locks = s.locks
}

func (g *memGraph) write(ctx context.Context, work txWork) (any, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.writes++
	saved := g.snapshot()
	out, err := work(&memTx{g: g})
	if err == nil && g.conflicts > 0 {
		g.conflicts--
		err = conflictError()
	}
	if err != nil {
		g.restore(saved)
		return nil, err
	}
	return out, nil
}

func (g *memGraph) read(ctx context.Context, work txWork) (any, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.reads++
	return work(&memTx{g: g})
}

func (g *memGraph) run(ctx context.Context, statement string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.statements = append(g.statements, statement)
	return g.schemaErrs[statement]
}

// ============================================================================
// Inspection helpers
// ============================================================================

func (g *memGraph) count(kind geo.Kind, name string) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	n := 0
	for _, node := range g.nodes {
		if node.kind == kind && node.name == name {
			n++
		}
	}
	return n
}

func (g *memGraph) parents(uid string) []Node {
	g.mu.Lock()
	defer g.mu.Unlock()

	var out []Node
	for _, p := range g.within[uid] {
		out = append(out, g.nodes[p].ref())
	}
	return out
}

func (g *memGraph) cities() []Node {
	g.mu.Lock()
	defer g.mu.Unlock()

	var out []Node
	for _, node := range g.nodes {
		if node.kind == geo.KindCity {
			out = append(out, node.ref())
		}
	}
	return out
}

func (g *memGraph) birthCities(goodreadsID string) []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.bornIn[goodreadsID]...)
}

func (g *memGraph) nodeCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.nodes)
}

func (n *memNode) ref() Node {
	return Node{Kind: n.kind, UID: n.uid, Name: n.name}
}

func (n *memNode) city() City {
	return City{
		UID:           n.uid,
		Name:          n.name,
		Latitude:      n.lat,
		Longitude:     n.lon,
		CoordinateKey: n.key,
		Geohash:       n.hash,
		S2Cell:        n.cell,
	}
}

// ============================================================================
// geoTx
// ============================================================================

type memTx struct {
	g *memGraph
}

func (t *memTx) fail(method string) error {
	return t.g.failOn[method]
}

func (t *memTx) newNode(kind geo.Kind, name string) *memNode {
	t.g.seq++
	n := &memNode{
		seq:  t.g.seq,
		kind: kind,
		uid:  fmt.Sprintf("%s-%d", kind, t.g.seq),
		name: name,
	}
	t.g.nodes[n.uid] = n
	return n
}

func (t *memTx) children(parentUID string, kind geo.Kind, name string) []*memNode {
	var out []*memNode
	for child, parents := range t.g.within {
		n := t.g.nodes[child]
		if n.kind != kind || n.name != name {
			continue
		}
		for _, p := range parents {
			if p == parentUID {
				out = append(out, n)
				break
			}
		}
	}
	return out
}

func (t *memTx) mergeCountry(ctx context.Context, name string) (Country, bool, error) {
	if err := t.fail("mergeCountry"); err != nil {
		return Country{}, false, err
	}
	for _, n := range t.g.nodes {
		if n.kind == geo.KindCountry && n.name == name {
			return Country{UID: n.uid, Name: n.name}, false, nil
		}
	}
	n := t.newNode(geo.KindCountry, name)
	return Country{UID: n.uid, Name: n.name}, true, nil
}

func (t *memTx) lockIdentity(ctx context.Context, key string) error {
	if err := t.fail("lockIdentity"); err != nil {
		return err
	}
	t.g.locks[key]++
	return nil
}

func (t *memTx) findRegion(ctx context.Context, name, countryUID string) (*Region, error) {
	if err := t.fail("findRegion"); err != nil {
		return nil, err
	}
	found := t.children(countryUID, geo.KindRegion, name)
	if len(found) == 0 {
		return nil, nil
	}
	sort.Slice(found, func(i, j int) bool { return found[i].seq < found[j].seq })
	return &Region{UID: found[0].uid, Name: found[0].name}, nil
}

func (t *memTx) createRegion(ctx context.Context, name string) (Region, error) {
	if err := t.fail("createRegion"); err != nil {
		return Region{}, err
	}
	n := t.newNode(geo.KindRegion, name)
	return Region{UID: n.uid, Name: n.name}, nil
}

func (t *memTx) findCityByKey(ctx context.Context, key string) (*City, error) {
	if err := t.fail("findCityByKey"); err != nil {
		return nil, err
	}
	for _, n := range t.g.nodes {
		if n.kind == geo.KindCity && n.key == key {
			city := n.city()
			return &city, nil
		}
	}
	return nil, nil
}

func (t *memTx) findCitiesUnder(ctx context.Context, name string, parent Node) ([]City, error) {
	if err := t.fail("findCitiesUnder"); err != nil {
		return nil, err
	}
	found := t.children(parent.UID, geo.KindCity, name)
	sort.Slice(found, func(i, j int) bool {
		a, b := found[i].key == "", found[j].key == ""
		if a != b {
			return !a
		}
		return found[i].seq < found[j].seq
	})
	cities := make([]City, 0, len(found))
	for _, n := range found {
		cities = append(cities, n.city())
	}
	return cities, nil
}

func (t *memTx) applyCoordinates(n *memNode, coords geo.Coordinates) error {
	key := coords.Key()
	for _, other := range t.g.nodes {
		if other.kind == geo.KindCity && other.key == key && other.uid != n.uid {
			return conflictError()
		}
	}
	lat, lon := coords.Latitude, coords.Longitude
	n.lat, n.lon = &lat, &lon
	n.key = key
	n.hash = coords.Geohash()
	n.cell = coords.CellToken()
	return nil
}

func (t *memTx) createCity(ctx context.Context, name string, coords *geo.Coordinates) (City, error) {
	if err := t.fail("createCity"); err != nil {
		return City{}, err
	}
	n := t.newNode(geo.KindCity, name)
	if coords != nil {
		if err := t.applyCoordinates(n, *coords); err != nil {
			return City{}, err
		}
	}
	return n.city(), nil
}

func (t *memTx) setCityCoordinates(ctx context.Context, uid string, coords geo.Coordinates) (City, error) {
	if err := t.fail("setCityCoordinates"); err != nil {
		return City{}, err
	}
	n, ok := t.g.nodes[uid]
	if !ok || n.key != "" {
		return City{}, fmt.Errorf("city %s cannot take coordinates", uid)
	}
	if err := t.applyCoordinates(n, coords); err != nil {
		return City{}, err
	}
	return n.city(), nil
}

func (t *memTx) parentOf(ctx context.Context, child Node) (*Node, error) {
	if err := t.fail("parentOf"); err != nil {
		return nil, err
	}
	parents := t.g.within[child.UID]
	if len(parents) == 0 {
		return nil, nil
	}
	ref := t.g.nodes[parents[0]].ref()
	return &ref, nil
}

func (t *memTx) createWithin(ctx context.Context, child, parent Node) error {
	if err := t.fail("createWithin"); err != nil {
		return err
	}
	if _, ok := geo.PairFor(child.Kind, parent.Kind); !ok {
		return fmt.Errorf("invalid pair %s -> %s", child.Kind, parent.Kind)
	}
	t.g.within[child.UID] = append(t.g.within[child.UID], parent.UID)
	return nil
}

func (t *memTx) mergeAuthor(ctx context.Context, author Author) (Author, bool, error) {
	if err := t.fail("mergeAuthor"); err != nil {
		return Author{}, false, err
	}
	if stored, ok := t.g.authors[author.GoodreadsID]; ok {
		return stored, false, nil
	}
	t.g.authors[author.GoodreadsID] = author
	return author, true, nil
}

func (t *memTx) birthCity(ctx context.Context, goodreadsID string) (*City, error) {
	if err := t.fail("birthCity"); err != nil {
		return nil, err
	}
	cities := t.g.bornIn[goodreadsID]
	if len(cities) == 0 {
		return nil, nil
	}
	city := t.g.nodes[cities[0]].city()
	return &city, nil
}

func (t *memTx) createBornIn(ctx context.Context, goodreadsID, cityUID string) error {
	if err := t.fail("createBornIn"); err != nil {
		return err
	}
	t.g.bornIn[goodreadsID] = append(t.g.bornIn[goodreadsID], cityUID)
	return nil
}

func (t *memTx) exists(ctx context.Context, pair geo.Pair, child, parent string) (bool, error) {
	if err := t.fail("exists"); err != nil {
		return false, err
	}
	for childUID, parents := range t.g.within {
		c := t.g.nodes[childUID]
		if c.kind != pair.Child() || c.name != child {
			continue
		}
		for _, p := range parents {
			if n := t.g.nodes[p]; n.kind == pair.Parent() && n.name == parent {
				return true, nil
			}
		}
	}
	return false, nil
}

func (t *memTx) ancestor(ctx context.Context, goodreadsID string, kind geo.Kind) (*Node, error) {
	if err := t.fail("ancestor"); err != nil {
		return nil, err
	}
	cities := t.g.bornIn[goodreadsID]
	if len(cities) == 0 {
		return nil, nil
	}
	current := cities[0]
	for hop := 0; hop < 2; hop++ {
		parents := t.g.within[current]
		if len(parents) == 0 {
			return nil, nil
		}
		current = parents[0]
		if n := t.g.nodes[current]; n.kind == kind {
			ref := n.ref()
			return &ref, nil
		}
		if kind == geo.KindRegion {
			// the region query only follows one hop
			return nil, nil
		}
	}
	return nil, nil
}
