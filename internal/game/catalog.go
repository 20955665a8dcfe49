// Package game implements the authoritative Coup room engine: the card
// catalog, deck, players, the action resolution state machine, turn order
// and the per-observer view projection.
//
// It has no transport or storage dependencies. Callers reach it through
// *Room methods and receive state changes through the Publisher and Sink
// ports.
package game

import "slices"

type Role string

const (
	Duke       Role = "duke"
	Assassin   Role = "assassin"
	Captain    Role = "captain"
	Ambassador Role = "ambassador"
	Contessa   Role = "contessa"
	Inquisitor Role = "inquisitor"
)

// Variant selects the role set in play.
type Variant string

const (
	VariantBase       Variant = "base"
	VariantInquisitor Variant = "inquisitor"
)

const (
	CopiesPerRole       = 3
	StartingCoins       = 2
	InfluencesPerPlayer = 2
	CoupThreshold       = 10
	MinPlayers          = 2
	MaxPlayers          = 6
	StealLimit          = 2
)

func (v Variant) Valid() bool {
	return v == VariantBase || v == VariantInquisitor
}

// Roles returns the five roles dealt in this variant.
func (v Variant) Roles() []Role {
	if v == VariantInquisitor {
		return []Role{Duke, Assassin, Captain, Inquisitor, Contessa}
	}
	return []Role{Duke, Assassin, Captain, Ambassador, Contessa}
}

// DeckSize is the total number of cards in one game.
func (v Variant) DeckSize() int {
	return len(v.Roles()) * CopiesPerRole
}

type ActionKind string

const (
	Income      ActionKind = "income"
	ForeignAid  ActionKind = "foreign_aid"
	Coup        ActionKind = "coup"
	Tax         ActionKind = "tax"
	Assassinate ActionKind = "assassinate"
	Steal       ActionKind = "steal"
	Exchange    ActionKind = "exchange"
	Inquire     ActionKind = "inquire"
	Examine     ActionKind = "examine"
)

// ActionSpec is the static definition of one action.
type ActionSpec struct {
	Kind     ActionKind
	Claim    Role // empty when the action needs no role
	Cost     int
	Gain     int
	Targeted bool
	Draw     int

	// Blockers lists the roles that can block the action. When
	// TargetBlocksOnly is set, only the target may claim them.
	Blockers         []Role
	TargetBlocksOnly bool
}

func (s ActionSpec) Challengeable() bool { return s.Claim != "" }

func (s ActionSpec) Blockable() bool { return len(s.Blockers) > 0 }

// Immediate reports whether the action resolves without a response window.
func (s ActionSpec) Immediate() bool { return !s.Challengeable() && !s.Blockable() }

// CanBlockWith reports whether role is a legal blocking claim.
func (s ActionSpec) CanBlockWith(role Role) bool {
	return slices.Contains(s.Blockers, role)
}

var baseActions = map[ActionKind]ActionSpec{
	Income:      {Kind: Income, Gain: 1},
	ForeignAid:  {Kind: ForeignAid, Gain: 2, Blockers: []Role{Duke}},
	Coup:        {Kind: Coup, Cost: 7, Targeted: true},
	Tax:         {Kind: Tax, Claim: Duke, Gain: 3},
	Assassinate: {Kind: Assassinate, Claim: Assassin, Cost: 3, Targeted: true, Blockers: []Role{Contessa}, TargetBlocksOnly: true},
	Steal:       {Kind: Steal, Claim: Captain, Targeted: true, Blockers: []Role{Captain, Ambassador}, TargetBlocksOnly: true},
	Exchange:    {Kind: Exchange, Claim: Ambassador, Draw: 2},
}

var inquisitorActions = map[ActionKind]ActionSpec{
	Income:      baseActions[Income],
	ForeignAid:  baseActions[ForeignAid],
	Coup:        baseActions[Coup],
	Tax:         baseActions[Tax],
	Assassinate: baseActions[Assassinate],
	Steal:       {Kind: Steal, Claim: Captain, Targeted: true, Blockers: []Role{Captain, Inquisitor}, TargetBlocksOnly: true},
	Inquire:     {Kind: Inquire, Claim: Inquisitor, Draw: 1},
	Examine:     {Kind: Examine, Claim: Inquisitor, Targeted: true},
}

// Lookup returns the spec for kind in variant v.
func Lookup(v Variant, kind ActionKind) (ActionSpec, bool) {
	table := baseActions
	if v == VariantInquisitor {
		table = inquisitorActions
	}
	spec, ok := table[kind]
	return spec, ok
}

// Actions lists the actions legal in v in a stable order.
func Actions(v Variant) []ActionKind {
	if v == VariantInquisitor {
		return []ActionKind{Income, ForeignAid, Coup, Tax, Assassinate, Steal, Inquire, Examine}
	}
	return []ActionKind{Income, ForeignAid, Coup, Tax, Assassinate, Steal, Exchange}
}
