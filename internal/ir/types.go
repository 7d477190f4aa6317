package ir

import "fmt"

// Tupid is the stable 63-bit positive identifier of a node. Ids are
// allocated monotonically by the store and are never reused.
type Tupid int64

// Sentinel ids that always exist in a fresh store.
const (
	// RootDT anchors on-disk paths (the project root directory).
	RootDT Tupid = 1
	// EnvDT is the parent of every environment-variable node.
	EnvDT Tupid = 2
	// ExclusionDT holds exclusion-pattern nodes.
	ExclusionDT Tupid = 3
	// FirstAllocatedID is the first id handed out by the allocator;
	// ids below it are reserved for sentinels.
	FirstAllocatedID Tupid = 10
)

// NodeType enumerates every kind of node the store can hold.
type NodeType int

const (
	TypeFile NodeType = iota + 1
	TypeDirectory
	TypeCommand
	TypeGeneratedFile
	TypeGeneratedDirectory
	TypeGhost
	TypeVariable
	TypeGroup
)

var nodeTypeNames = map[NodeType]string{
	TypeFile:               "file",
	TypeDirectory:          "directory",
	TypeCommand:            "command",
	TypeGeneratedFile:      "generated_file",
	TypeGeneratedDirectory: "generated_directory",
	TypeGhost:              "ghost",
	TypeVariable:           "variable",
	TypeGroup:              "group",
}

func (t NodeType) String() string {
	if s, ok := nodeTypeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("NodeType(%d)", int(t))
}

// ParseNodeType reverses NodeType.String, used when reading rows back out
// of the store.
func ParseNodeType(s string) (NodeType, error) {
	for t, name := range nodeTypeNames {
		if name == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown node type %q", s)
}

// IsDirLike reports whether the type can hold children under it.
func (t NodeType) IsDirLike() bool {
	return t == TypeDirectory || t == TypeGeneratedDirectory
}

// MtimeKind tags an Mtime as a known timestamp, an explicitly unknown
// value, or the fixed timestamp assigned to entries outside the tracked
// tree (see design note on sentinel mtimes: tagged variant, not a raw
// struct with magic sentinel fields).
type MtimeKind int

const (
	MtimeUnknown MtimeKind = iota
	MtimeKnown
	MtimeExternal
)

// Mtime is a filesystem modification time compared component-wise.
// The zero value is MtimeUnknown.
type Mtime struct {
	Kind  MtimeKind
	Sec   int64
	Nsec  int32
}

// KnownMtime builds an Mtime with a known (seconds, nanoseconds) pair.
func KnownMtime(sec int64, nsec int32) Mtime {
	return Mtime{Kind: MtimeKnown, Sec: sec, Nsec: nsec}
}

// UnknownMtime is the sentinel meaning "not yet recorded".
func UnknownMtime() Mtime { return Mtime{Kind: MtimeUnknown} }

// ExternalMtime is assigned to directories outside the tracked tree (e.g.
// system include directories) whose real mtime is never consulted.
func ExternalMtime() Mtime { return Mtime{Kind: MtimeExternal} }

// Equal compares two Mtimes component-wise; two Unknown or two External
// values are equal to each other regardless of Sec/Nsec.
func (m Mtime) Equal(o Mtime) bool {
	if m.Kind != o.Kind {
		return false
	}
	if m.Kind != MtimeKnown {
		return true
	}
	return m.Sec == o.Sec && m.Nsec == o.Nsec
}

func (m Mtime) String() string {
	switch m.Kind {
	case MtimeKnown:
		return fmt.Sprintf("%d.%09d", m.Sec, m.Nsec)
	case MtimeExternal:
		return "external"
	default:
		return "unknown"
	}
}

// Node is the canonical in-memory representation of one addressable
// object in the project tree (a file, directory, command, variable,
// group or ghost).
type Node struct {
	ID       Tupid
	ParentID Tupid
	Name     string
	Type     NodeType
	Mtime    Mtime
	SrcID    Tupid // 0 means "no source node"
	Display  string
	Flags    string
}

// IsVirtual reports whether this node is one of the bookkeeping nodes
// (environment variables, exclusions, groups) that must never be treated
// as a candidate ghost or as a candidate normal-input/output node during
// reconciliation.
func (n Node) IsVirtual() bool {
	return n.Type == TypeVariable || n.Type == TypeGroup || n.ParentID == EnvDT || n.ParentID == ExclusionDT
}

// CommandLine renders a human-debugging label for a command node: its
// display string if set, otherwise its raw name, annotated with its
// decorator flags.
func (n Node) CommandLine() string {
	label := n.Display
	if label == "" {
		label = n.Name
	}
	if n.Flags != "" {
		return fmt.Sprintf("%s [%s]", label, n.Flags)
	}
	return label
}

// LinkStyle distinguishes how a directed edge was established.
type LinkStyle int

const (
	// LinkSticky is a parser-declared dependency.
	LinkSticky LinkStyle = iota + 1
	// LinkNormal is a dependency observed at runtime by the sandbox.
	LinkNormal
	// LinkGroup links a command to a named group aggregator node.
	LinkGroup
)

var linkStyleNames = map[LinkStyle]string{
	LinkSticky: "sticky",
	LinkNormal: "normal",
	LinkGroup:  "group",
}

func (s LinkStyle) String() string {
	if n, ok := linkStyleNames[s]; ok {
		return n
	}
	return fmt.Sprintf("LinkStyle(%d)", int(s))
}

// ParseLinkStyle reverses LinkStyle.String.
func ParseLinkStyle(s string) (LinkStyle, error) {
	for st, name := range linkStyleNames {
		if name == s {
			return st, nil
		}
	}
	return 0, fmt.Errorf("unknown link style %q", s)
}

// Link is a directed edge (From, To, Style). At most one edge exists per
// (From, To, Style) triple; distinct styles between the same pair may
// coexist.
type Link struct {
	From  Tupid
	To    Tupid
	Style LinkStyle
}

// FlagKind names one of the five disjoint per-node flag sets.
type FlagKind int

const (
	FlagCreate FlagKind = iota + 1
	FlagModify
	FlagConfig
	FlagVariant
	FlagTransient
)

var flagKindNames = map[FlagKind]string{
	FlagCreate:    "create",
	FlagModify:    "modify",
	FlagConfig:    "config",
	FlagVariant:   "variant",
	FlagTransient: "transient",
}

func (f FlagKind) String() string {
	if n, ok := flagKindNames[f]; ok {
		return n
	}
	return fmt.Sprintf("FlagKind(%d)", int(f))
}

// AllFlagKinds lists the five flag sets in a fixed, deterministic order.
var AllFlagKinds = []FlagKind{FlagCreate, FlagModify, FlagConfig, FlagVariant, FlagTransient}

// VariableEntry is a (scope, name) -> (value, backing node) binding. A
// variable with no real definition is backed by a ghost node so that
// sticky links pointing at it survive until a real definition appears.
type VariableEntry struct {
	Scope    string
	Name     string
	Value    string
	NodeID   Tupid
	IsGhost  bool
}
