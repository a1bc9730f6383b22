package state

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsimple"
	"github.com/zclconf/go-cty/cty"
)

// hclContext lets HCL topologies refer to node kinds as kind.sensor, kind.relay and kind.gateway
func hclContext() *hcl.EvalContext {
	kinds := make(map[string]cty.Value, len(ValidKinds))
	for _, k := range ValidKinds {
		kinds[string(k)] = cty.StringVal(string(k))
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"kind": cty.ObjectVal(kinds),
		},
	}
}

// ParseTopology decodes src according to the extension of name. YAML is assumed when there is no extension.
func ParseTopology(name string, src []byte) (*TopologyCfg, error) {
	var cfg TopologyCfg
	switch strings.ToLower(filepath.Ext(name)) {
	case ".hcl":
		err := hclsimple.Decode(name, src, hclContext(), &cfg)
		if err != nil {
			return nil, err
		}
	case ".yaml", ".yml", "":
		err := yaml.Unmarshal(src, &cfg)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported topology format %s, expected .yaml or .hcl", filepath.Ext(name))
	}
	return &cfg, nil
}

// LoadTopology reads a topology file, or returns the canonical topology if topologyPath is empty
func LoadTopology(topologyPath string) (*TopologyCfg, error) {
	if topologyPath == "" {
		cfg := CanonicalTopology()
		return &cfg, nil
	}
	file, err := os.ReadFile(topologyPath)
	if err != nil {
		return nil, err
	}
	cfg, err := ParseTopology(topologyPath, file)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", topologyPath, err)
	}
	ExpandTopology(cfg)
	return cfg, nil
}

func SaveTopology(topologyPath string, cfg TopologyCfg) error {
	bytes, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(topologyPath, bytes, 0600)
}
