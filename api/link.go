package api

// LinkSpec describes one link in a topology file. Traffic parameters are
// applied symmetrically to both endpoints.
type LinkSpec struct {
	Node1  string      `yaml:"node1"`
	Node2  string      `yaml:"node2"`
	Params *IntfConfig `yaml:"params"`
	Fast   bool        `yaml:"fast"`
}

// TopoConfig is the top-level structure of a topology file.
type TopoConfig struct {
	Nodes []NodeSpec `yaml:"nodes"`
	Links []LinkSpec `yaml:"links"`
}
