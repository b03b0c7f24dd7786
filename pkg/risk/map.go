package risk

import (
	_ "embed"
	"fmt"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// Continent is a fixed group of territories granting a bonus when one
// player holds all of them.
type Continent struct {
	ID          string   `yaml:"id" json:"id"`
	Name        string   `yaml:"name" json:"name"`
	Bonus       int      `yaml:"bonus" json:"bonus"`
	Territories []string `yaml:"-" json:"territories"`
}

// TerritoryInfo is the static description of one map territory.
type TerritoryInfo struct {
	ID        string   `yaml:"id" json:"id"`
	Name      string   `yaml:"name" json:"name"`
	Continent string   `yaml:"continent" json:"continent"`
	Neighbors []string `yaml:"neighbors" json:"neighbors"`
}

// Map holds the territory graph and continent table. A Map is immutable
// once built and safe for concurrent use.
type Map struct {
	Territories map[string]*TerritoryInfo
	Continents  map[string]*Continent

	ids          []string
	continentIDs []string
	adj          map[string]map[string]bool
}

type mapFile struct {
	Continents  []*Continent     `yaml:"continents"`
	Territories []*TerritoryInfo `yaml:"territories"`
}

//go:embed world.yaml
var worldYAML []byte

var (
	stdMapOnce sync.Once
	stdMapInst *Map
)

// StandardMap returns the 42-territory world map. The map is built once and
// cached; callers must not mutate it.
func StandardMap() *Map {
	stdMapOnce.Do(func() {
		m, err := LoadMap(worldYAML)
		if err != nil {
			panic(fmt.Sprintf("risk: embedded world map is invalid: %v", err))
		}
		stdMapInst = m
	})
	return stdMapInst
}

// LoadMap parses and validates a YAML map table. It rejects unknown
// continents or neighbours, self loops, duplicate ids, and any edge that is
// not listed from both ends.
func LoadMap(data []byte) (*Map, error) {
	var f mapFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse map: %w", err)
	}
	if len(f.Territories) == 0 {
		return nil, fmt.Errorf("map has no territories")
	}

	m := &Map{
		Territories: make(map[string]*TerritoryInfo, len(f.Territories)),
		Continents:  make(map[string]*Continent, len(f.Continents)),
		adj:         make(map[string]map[string]bool, len(f.Territories)),
	}
	for _, c := range f.Continents {
		if _, dup := m.Continents[c.ID]; dup {
			return nil, fmt.Errorf("duplicate continent %q", c.ID)
		}
		if c.Bonus < 0 {
			return nil, fmt.Errorf("continent %q has negative bonus", c.ID)
		}
		c.Territories = nil
		m.Continents[c.ID] = c
		m.continentIDs = append(m.continentIDs, c.ID)
	}
	for _, t := range f.Territories {
		if _, dup := m.Territories[t.ID]; dup {
			return nil, fmt.Errorf("duplicate territory %q", t.ID)
		}
		c, ok := m.Continents[t.Continent]
		if !ok {
			return nil, fmt.Errorf("territory %q: unknown continent %q", t.ID, t.Continent)
		}
		c.Territories = append(c.Territories, t.ID)
		m.Territories[t.ID] = t
		m.ids = append(m.ids, t.ID)
	}
	for _, t := range f.Territories {
		set := make(map[string]bool, len(t.Neighbors))
		for _, n := range t.Neighbors {
			if n == t.ID {
				return nil, fmt.Errorf("territory %q neighbours itself", t.ID)
			}
			if _, ok := m.Territories[n]; !ok {
				return nil, fmt.Errorf("territory %q: unknown neighbour %q", t.ID, n)
			}
			set[n] = true
		}
		m.adj[t.ID] = set
	}
	for from, set := range m.adj {
		for to := range set {
			if !m.adj[to][from] {
				return nil, fmt.Errorf("edge %s -> %s has no reverse edge", from, to)
			}
		}
	}
	for _, c := range m.Continents {
		if len(c.Territories) == 0 {
			return nil, fmt.Errorf("continent %q has no territories", c.ID)
		}
		sort.Strings(c.Territories)
	}
	sort.Strings(m.ids)
	sort.Strings(m.continentIDs)
	return m, nil
}

// TerritoryIDs returns every territory id in sorted order.
func (m *Map) TerritoryIDs() []string {
	out := make([]string, len(m.ids))
	copy(out, m.ids)
	return out
}

// ContinentIDs returns every continent id in sorted order.
func (m *Map) ContinentIDs() []string {
	out := make([]string, len(m.continentIDs))
	copy(out, m.continentIDs)
	return out
}

// Has reports whether id names a territory on this map.
func (m *Map) Has(id string) bool {
	_, ok := m.Territories[id]
	return ok
}

// Neighbors returns the territories adjacent to id.
func (m *Map) Neighbors(id string) []string {
	t, ok := m.Territories[id]
	if !ok {
		return nil
	}
	return t.Neighbors
}

// Adjacent reports whether a and b share a border.
func (m *Map) Adjacent(a, b string) bool {
	return m.adj[a][b]
}

// ContinentOf returns the continent id of a territory, or "" if unknown.
func (m *Map) ContinentOf(id string) string {
	t, ok := m.Territories[id]
	if !ok {
		return ""
	}
	return t.Continent
}

// ContinentBonus returns the reinforcement bonus for holding a continent.
func (m *Map) ContinentBonus(continentID string) int {
	c, ok := m.Continents[continentID]
	if !ok {
		return 0
	}
	return c.Bonus
}

// ContinentTerritories returns the sorted territory ids of a continent.
func (m *Map) ContinentTerritories(continentID string) []string {
	c, ok := m.Continents[continentID]
	if !ok {
		return nil
	}
	return append([]string(nil), c.Territories...)
}
