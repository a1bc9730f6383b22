package state

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"slices"
)

var namePattern, _ = regexp.Compile("^[0-9A-Za-z._-]+$")

func PathValidator(s string) error {
	_, err := os.Stat(path.Dir(s))
	if err != nil {
		return err
	}
	_, err = filepath.Abs(s)
	return err
}

func NameValidator(s string) error {
	if !namePattern.MatchString(s) {
		return fmt.Errorf("%s is not a valid name, must match pattern %s", s, namePattern.String())
	}
	if len(s) > 100 {
		return fmt.Errorf("len(\"%s\") = %d > 100 is too long", s, len(s))
	}
	return nil
}

func KindValidator(k NodeKind) error {
	if !slices.Contains(ValidKinds, k) {
		return fmt.Errorf("%s is not a valid node kind, expected one of %v", k, ValidKinds)
	}
	return nil
}

// TopologyValidator checks that cfg can be built. Every error wraps ErrInvalidTopology.
func TopologyValidator(cfg *TopologyCfg) error {
	seen := make(map[NodeId]struct{}, len(cfg.Nodes))
	for _, node := range cfg.Nodes {
		if err := NameValidator(string(node.Id)); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidTopology, err)
		}
		if _, ok := seen[node.Id]; ok {
			return fmt.Errorf("%w: duplicate node id %s", ErrInvalidTopology, node.Id)
		}
		seen[node.Id] = struct{}{}
		if err := KindValidator(node.Kind); err != nil {
			return fmt.Errorf("%w: node %s: %w", ErrInvalidTopology, node.Id, err)
		}
	}
	maxCost := MaxLinkCost(len(cfg.Nodes))
	for _, link := range cfg.Links {
		if _, ok := seen[link.A]; !ok {
			return fmt.Errorf("%w: link (%s, %s) references node %s which is not defined", ErrInvalidTopology, link.A, link.B, link.A)
		}
		if _, ok := seen[link.B]; !ok {
			return fmt.Errorf("%w: link (%s, %s) references node %s which is not defined", ErrInvalidTopology, link.A, link.B, link.B)
		}
		if link.A == link.B {
			return fmt.Errorf("%w: link (%s, %s) connects a node to itself", ErrInvalidTopology, link.A, link.B)
		}
		if link.Cost <= 0 {
			return fmt.Errorf("%w: link (%s, %s) has cost %d, costs must be positive", ErrInvalidTopology, link.A, link.B, link.Cost)
		}
		if uint64(link.Cost) > maxCost {
			return fmt.Errorf("%w: link (%s, %s) has cost %d > %d, the limit for %d nodes", ErrInvalidTopology, link.A, link.B, link.Cost, maxCost, len(cfg.Nodes))
		}
	}
	return nil
}
