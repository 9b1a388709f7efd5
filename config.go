// Copyright (c) 2026 Silvano DAL ZILIO
//
// MIT License

package medd

import "fmt"

// RangeType is the type of the values a forest maps tuples to.
type RangeType int

const (
	Boolean RangeType = iota
	Integer
	Real
)

// Labeling selects how values ride on a forest: on terminals alone, or on
// edges with an additive (EV+) or multiplicative (EV*) accumulation.
type Labeling int

const (
	MultiTerminal Labeling = iota
	EVPlus
	EVTimes
)

// Reduction is the canonical form enforced by a forest.
type Reduction int

const (
	// FullyReduced skips a level whenever every child of a node is the same.
	FullyReduced Reduction = iota
	// QuasiReduced materializes every level on every path.
	QuasiReduced
	// IdentityReduced additionally collapses unprimed/primed pairs acting as
	// the identity on their variable. Relation forests only.
	IdentityReduced
)

// Deletion is the node-deletion policy of a forest.
type Deletion int

const (
	// OptimisticDeletion keeps orphaned nodes intact until the next garbage
	// collection cycle, which may still reclaim or recycle them.
	OptimisticDeletion Deletion = iota
	// PessimisticDeletion zombifies a node as soon as its incoming count
	// drops to zero.
	PessimisticDeletion
	// NeverDelete disables reclamation entirely.
	NeverDelete
)

// Storage is the preferred node encoding.
type Storage int

const (
	FullOrSparseStorage Storage = iota
	FullStorage
	SparseStorage
)

// ReorderStrategy selects the schedule of adjacent swaps used by Reorder.
type ReorderStrategy int

const (
	LowestCost ReorderStrategy = iota
	LowestInversion
	HighestInversion
	BubbleUp
	BubbleDown
)

// Policies collects the per-forest settings that are immutable after
// creation. The zero value is not meaningful; start from DefaultPolicies.
type Policies struct {
	Reduction     Reduction       `toml:"reduction"`
	Deletion      Deletion        `toml:"deletion"`
	Storage       Storage         `toml:"storage"`
	Reorder       ReorderStrategy `toml:"reorder"`
	ZombieTrigger int             `toml:"zombie-trigger"`
	OrphanTrigger int             `toml:"orphan-trigger"`
	Compaction    int             `toml:"compaction"` // percentage of hole slots per level
	CacheSize     int             `toml:"cache-size"`
	CacheRatio    int             `toml:"cache-ratio"`
	MaxArenaSlots int             `toml:"max-arena-slots"`
}

// DefaultPolicies returns the settings used when none are given: fully
// reduced set forests, identity reduced relation forests, optimistic
// deletion, and either storage encoding.
func DefaultPolicies(relation bool) Policies {
	p := Policies{
		Reduction:     FullyReduced,
		Deletion:      OptimisticDeletion,
		Storage:       FullOrSparseStorage,
		Reorder:       LowestInversion,
		ZombieTrigger: 1000000,
		OrphanTrigger: 500000,
		Compaction:    40,
		CacheSize:     10000,
	}
	if relation {
		p.Reduction = IdentityReduced
	}
	return p
}

// Option is a configuration option for CreateForest, in the functional
// style: pass ReductionRule(QuasiReduced), CacheSize(1 << 16), etc.
type Option func(*Policies)

// ReductionRule sets the reduction rule of the forest.
func ReductionRule(r Reduction) Option { return func(p *Policies) { p.Reduction = r } }

// DeletionPolicy sets the node-deletion policy of the forest.
func DeletionPolicy(d Deletion) Option { return func(p *Policies) { p.Deletion = d } }

// StoragePreference sets the preferred node encoding.
func StoragePreference(s Storage) Option { return func(p *Policies) { p.Storage = s } }

// ReorderingStrategy sets the schedule used by variable reordering.
func ReorderingStrategy(s ReorderStrategy) Option { return func(p *Policies) { p.Reorder = s } }

// CacheSize sets the initial number of entries in the compute table. The
// default is 10 000; large examples benefit from much bigger caches.
func CacheSize(size int) Option {
	return func(p *Policies) {
		if size > 0 {
			p.CacheSize = size
		}
	}
}

// CacheRatio sets a ratio (%) between compute table entries and allocated
// nodes, so the cache grows with the forest. The default (0) keeps the cache
// size fixed.
func CacheRatio(ratio int) Option { return func(p *Policies) { p.CacheRatio = ratio } }

// Compaction sets the percentage of hole slots in a level that triggers
// compaction of its arena.
func Compaction(percent int) Option {
	return func(p *Policies) {
		if percent > 0 && percent <= 100 {
			p.Compaction = percent
		}
	}
}

// GCTriggers sets the zombie and orphan counts above which a garbage
// collection cycle runs at the next node creation.
func GCTriggers(zombies, orphans int) Option {
	return func(p *Policies) {
		p.ZombieTrigger = zombies
		p.OrphanTrigger = orphans
	}
}

// MaxArenaSlots bounds the size of each level arena; 0 means no limit.
func MaxArenaSlots(n int) Option { return func(p *Policies) { p.MaxArenaSlots = n } }

// WithPolicies replaces the whole policy block at once, e.g. with settings
// decoded from a TOML file.
func WithPolicies(pol Policies) Option { return func(p *Policies) { *p = pol } }

// Text forms, so that Policies can be written in configuration files.

var rangeNames = map[RangeType]string{Boolean: "boolean", Integer: "integer", Real: "real"}
var labelingNames = map[Labeling]string{MultiTerminal: "multi-terminal", EVPlus: "EV+", EVTimes: "EV*"}

func (r RangeType) String() string { return rangeNames[r] }
func (l Labeling) String() string  { return labelingNames[l] }

var reductionNames = map[Reduction]string{FullyReduced: "fully", QuasiReduced: "quasi", IdentityReduced: "identity"}
var deletionNames = map[Deletion]string{OptimisticDeletion: "optimistic", PessimisticDeletion: "pessimistic", NeverDelete: "never"}
var storageNames = map[Storage]string{FullOrSparseStorage: "either", FullStorage: "full", SparseStorage: "sparse"}
var reorderNames = map[ReorderStrategy]string{LowestCost: "lowest-cost", LowestInversion: "lowest-inversion", HighestInversion: "highest-inversion", BubbleUp: "bubble-up", BubbleDown: "bubble-down"}

func (r Reduction) String() string       { return reductionNames[r] }
func (d Deletion) String() string        { return deletionNames[d] }
func (s Storage) String() string         { return storageNames[s] }
func (s ReorderStrategy) String() string { return reorderNames[s] }

func (r Reduction) MarshalText() ([]byte, error) { return []byte(r.String()), nil }
func (d Deletion) MarshalText() ([]byte, error)  { return []byte(d.String()), nil }
func (s Storage) MarshalText() ([]byte, error)   { return []byte(s.String()), nil }
func (s ReorderStrategy) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func unmarshalName[T comparable](names map[T]string, text []byte, out *T) error {
	for k, v := range names {
		if v == string(text) {
			*out = k
			return nil
		}
	}
	return fmt.Errorf("unknown name %q", string(text))
}

func (r *Reduction) UnmarshalText(text []byte) error { return unmarshalName(reductionNames, text, r) }
func (d *Deletion) UnmarshalText(text []byte) error  { return unmarshalName(deletionNames, text, d) }
func (s *Storage) UnmarshalText(text []byte) error   { return unmarshalName(storageNames, text, s) }
func (s *ReorderStrategy) UnmarshalText(text []byte) error {
	return unmarshalName(reorderNames, text, s)
}
