package p4rt

// FieldMatch is one field of a table entry's match key. Exactly one of the
// kind-specific pointers is set; the kind is determined by the table's
// declared p4info.MatchKind for FieldID.
type FieldMatch struct {
	FieldID uint32
	Exact   *ExactMatch
	LPM     *LPMMatch
	Ternary *TernaryMatch
	Range   *RangeMatch
	Valid   *ValidMatch
}

// ExactMatch requires the field to equal Value exactly.
type ExactMatch struct {
	Value []byte
}

// LPMMatch requires the top PrefixLen bits of the field to equal Value.
type LPMMatch struct {
	Value     []byte
	PrefixLen int
}

// TernaryMatch requires (field & Mask) == (Value & Mask).
type TernaryMatch struct {
	Value []byte
	Mask  []byte
}

// RangeMatch requires Low <= field <= High (bytewise, big-endian).
type RangeMatch struct {
	Low  []byte
	High []byte
}

// ValidMatch requires the field's validity bit to equal Value.
type ValidMatch struct {
	Value bool
}

// ActionEntry is the tagged union of ways a table entry can specify its
// action: inline ("direct"), or by reference into an action profile.
type ActionEntry interface {
	isActionEntry()
}

// DirectAction carries an inline action ID and its parameter values.
type DirectAction struct {
	ActionID uint32
	Params   []ActionParam
}

func (DirectAction) isActionEntry() {}

// ActionParam is one parameter value of a Direct action or profile member.
type ActionParam struct {
	ParamID uint32
	Value   []byte
}

// IndirectMemberAction references a single action-profile member by ID.
type IndirectMemberAction struct {
	MemberID uint32
}

func (IndirectMemberAction) isActionEntry() {}

// IndirectGroupAction references an action-profile group by ID.
type IndirectGroupAction struct {
	GroupID uint32
}

func (IndirectGroupAction) isActionEntry() {}
