package pkg

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"Vnet/api"
	"Vnet/pkg/logging"
)

// LoadTopoConfig parses a topology file.
func LoadTopoConfig(path string) (*api.TopoConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading topology %s", path)
	}
	var cfg api.TopoConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrapf(err, "parsing topology %s", path)
	}
	return &cfg, nil
}

// ApplyTopoConfig loads a topology file and builds it: nodes first, then
// links.
func (m *Manager) ApplyTopoConfig(path string) error {
	cfg, err := LoadTopoConfig(path)
	if err != nil {
		return err
	}
	for _, n := range cfg.Nodes {
		if err := m.AddNode(n); err != nil {
			return err
		}
	}
	for _, l := range cfg.Links {
		if err := m.AddLink(l); err != nil {
			return err
		}
	}
	return nil
}

// DestroyTopoConfig removes the containers and bridges a topology file
// names, for cleaning up after a process that did not tear down. Links die
// with their nodes. Best-effort: failures are logged and removal
// continues.
func (m *Manager) DestroyTopoConfig(path string) error {
	cfg, err := LoadTopoConfig(path)
	if err != nil {
		return err
	}
	for _, n := range cfg.Nodes {
		if err := m.removeNodeBackend(n); err != nil {
			logging.Errorf("removing %s: %v", n.Name, err)
		}
	}
	return nil
}
