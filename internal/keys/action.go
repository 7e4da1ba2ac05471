package keys

import (
	"github.com/p4lang/pi4go/pkg/p4info"
	"github.com/p4lang/pi4go/pkg/p4rt"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ProfileResolver is the subset of an action-profile manager's read-only
// surface needed to validate indirect action references. Satisfied by
// *actionprof.Manager; kept as an interface here to avoid an import cycle
// between the keys and actionprof packages.
type ProfileResolver interface {
	MemberExists(memberID uint32) bool
	GroupExists(groupID uint32) bool
}

// BuildActionEntry validates action against table's declarations (I3):
//   - a Direct action is rejected on a table with an implementation
//   - an indirect action is rejected on a table without one, or if the
//     referenced member/group does not exist in that profile
//
// resolveProfile is called only for a table with an implementation, so it
// may be nil when table has none.
func BuildActionEntry(
	p4 *p4info.Handle,
	table *p4info.Table,
	action p4rt.ActionEntry,
	resolveProfile func(profileID uint32) (ProfileResolver, bool),
) error {
	switch a := action.(type) {
	case p4rt.DirectAction:
		if table.HasImplementation() {
			return status.Errorf(codes.InvalidArgument,
				"table %d is indirect (action profile %d); direct action not allowed",
				table.ID, table.ImplementationID)
		}
		return validateDirectAction(p4, table, a)

	case p4rt.IndirectMemberAction:
		resolver, err := resolveIndirect(table, resolveProfile)
		if err != nil {
			return err
		}
		if !resolver.MemberExists(a.MemberID) {
			return status.Errorf(codes.InvalidArgument,
				"action profile %d has no member %d", table.ImplementationID, a.MemberID)
		}
		return nil

	case p4rt.IndirectGroupAction:
		resolver, err := resolveIndirect(table, resolveProfile)
		if err != nil {
			return err
		}
		if !resolver.GroupExists(a.GroupID) {
			return status.Errorf(codes.InvalidArgument,
				"action profile %d has no group %d", table.ImplementationID, a.GroupID)
		}
		return nil

	default:
		return status.Error(codes.InvalidArgument, "unrecognized action entry variant")
	}
}

func resolveIndirect(
	table *p4info.Table,
	resolveProfile func(profileID uint32) (ProfileResolver, bool),
) (ProfileResolver, error) {
	if !table.HasImplementation() {
		return nil, status.Errorf(codes.InvalidArgument,
			"table %d has no action profile; indirect action not allowed", table.ID)
	}
	resolver, ok := resolveProfile(table.ImplementationID)
	if !ok {
		return nil, status.Errorf(codes.InvalidArgument,
			"action profile %d not found", table.ImplementationID)
	}
	return resolver, nil
}

// ValidateDirectActionData validates a DirectAction's action_id and params
// against p4info without regard to the table's implementation status. Used
// both by BuildActionEntry (table entries) and by ActionProfMgr (members).
func ValidateDirectActionData(p4 *p4info.Handle, permittedOn func(actionID uint32) bool, a p4rt.DirectAction) error {
	action, ok := p4.Action(a.ActionID)
	if !ok {
		return status.Errorf(codes.InvalidArgument, "unknown action id %d", a.ActionID)
	}
	if permittedOn != nil && !permittedOn(a.ActionID) {
		return status.Errorf(codes.InvalidArgument, "action %d not permitted here", a.ActionID)
	}

	seen := make(map[uint32]bool, len(a.Params))
	for _, p := range a.Params {
		param, ok := action.ParamByID(p.ParamID)
		if !ok {
			return status.Errorf(codes.InvalidArgument,
				"action %d has no param %d", a.ActionID, p.ParamID)
		}
		if err := validateCanonicalBytes(p.Value, param.Bitwidth); err != nil {
			return err
		}
		seen[p.ParamID] = true
	}
	for _, param := range action.Params {
		if !seen[param.ID] {
			return status.Errorf(codes.InvalidArgument,
				"action %d missing required param %d", a.ActionID, param.ID)
		}
	}
	return nil
}

func validateDirectAction(p4 *p4info.Handle, table *p4info.Table, a p4rt.DirectAction) error {
	return ValidateDirectActionData(p4, table.AllowsAction, a)
}
