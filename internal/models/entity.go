package models

import (
	"fmt"
	"strconv"
)

type EntityKind string

const (
	KindChart    EntityKind = "chart"
	KindMultiDim EntityKind = "multidim"
	KindExplorer EntityKind = "explorer"
)

// EntityKinds lists every publishable kind in scan order.
var EntityKinds = []EntityKind{KindChart, KindMultiDim, KindExplorer}

func ParseEntityKind(s string) (EntityKind, error) {
	for _, k := range EntityKinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown entity kind %q", s)
}

// EntityRef identifies a publishable entity. Charts and multi-dim pages carry
// an integer ID; explorers are identified by slug only.
type EntityRef struct {
	Kind EntityKind `json:"kind"`
	ID   int        `json:"id,omitempty"`
	Slug string     `json:"slug,omitempty"`
}

// Key is the stable identity stored as entity_id in the archive.
func (e EntityRef) Key() string {
	if e.Kind == KindExplorer {
		return e.Slug
	}
	return strconv.Itoa(e.ID)
}

func (e EntityRef) String() string {
	return string(e.Kind) + "#" + e.Key()
}

// NewEntityRef builds a reference from an HTTP or CLI style kind/key pair.
func NewEntityRef(kind, key string) (EntityRef, error) {
	k, err := ParseEntityKind(kind)
	if err != nil {
		return EntityRef{}, err
	}
	if key == "" {
		return EntityRef{}, fmt.Errorf("empty %s id", k)
	}
	if k == KindExplorer {
		return EntityRef{Kind: k, Slug: key}, nil
	}
	id, err := strconv.Atoi(key)
	if err != nil || id <= 0 {
		return EntityRef{}, fmt.Errorf("invalid %s id %q", k, key)
	}
	return EntityRef{Kind: k, ID: id}, nil
}
