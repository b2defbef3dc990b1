package network

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

type topologyFile struct {
	Nodes []struct {
		ID string  `yaml:"id"`
		X  float64 `yaml:"x"`
		Y  float64 `yaml:"y"`
	} `yaml:"nodes"`
	Edges []struct {
		ID         string  `yaml:"id"`
		From       string  `yaml:"from"`
		To         string  `yaml:"to"`
		Capability string  `yaml:"capability"`
		Weight     float64 `yaml:"weight"`
	} `yaml:"edges"`
}

// LoadFile builds a network from a YAML topology file.
func LoadFile(path string) (*RoadNetwork, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("network: read topology %s: %w", path, err)
	}
	var tf topologyFile
	if err := yaml.Unmarshal(raw, &tf); err != nil {
		return nil, fmt.Errorf("network: parse topology %s: %w", path, err)
	}

	n := New()
	for _, nd := range tf.Nodes {
		n.AddNode(nd.ID, nd.X, nd.Y)
	}
	for _, e := range tf.Edges {
		if err := n.AddEdge(e.ID, e.From, e.To, Capability(e.Capability), e.Weight); err != nil {
			return nil, err
		}
	}
	return n, nil
}

// SampleNetwork builds the default nine-station city map. Mixed bus/tram
// streets are tagged road, bus-only links highway and tram-only links
// tram-track.
func SampleNetwork() *RoadNetwork {
	n := New()

	nodes := []struct {
		id   string
		x, y float64
	}{
		{"North", 0, 5},
		{"Stadium", 4, 6},
		{"West", -5, 1},
		{"Central", 0, 1},
		{"East", 5, 1},
		{"University", -4, -5},
		{"Airport", 6, -6},
		{"South", 0, -4},
		{"GasStation", 0, -6.5},
	}
	for _, nd := range nodes {
		n.AddNode(nd.id, nd.x, nd.y)
	}

	edges := []struct {
		from, to string
		weight   float64
		cap      Capability
	}{
		{"Central", "North", 10, CapRoad},
		{"North", "Central", 10, CapRoad},
		{"Central", "East", 10, CapRoad},
		{"East", "Central", 10, CapRoad},
		{"Central", "South", 12, CapHighway},
		{"South", "Central", 12, CapHighway},
		{"Central", "West", 8, CapTramTrack},
		{"West", "Central", 8, CapTramTrack},
		{"West", "North", 12, CapHighway},
		{"North", "West", 12, CapHighway},
		{"North", "East", 8, CapRoad},
		{"East", "North", 8, CapRoad},
		{"East", "Stadium", 6, CapTramTrack},
		{"Stadium", "North", 7, CapTramTrack},
		{"South", "University", 5, CapHighway},
		{"University", "South", 5, CapHighway},
		{"West", "University", 18, CapHighway},
		{"University", "West", 18, CapHighway},
		{"South", "Airport", 25, CapHighway},
		{"Airport", "South", 25, CapHighway},
		{"East", "Airport", 35, CapHighway},
		{"Airport", "East", 35, CapHighway},
		{"South", "GasStation", 5, CapHighway},
		{"GasStation", "South", 5, CapHighway},
	}
	for _, e := range edges {
		id := fmt.Sprintf("%s-%s", e.from, e.to)
		if err := n.AddEdge(id, e.from, e.to, e.cap, e.weight); err != nil {
			// Sample map is static and known-good.
			panic(err)
		}
	}
	return n
}
