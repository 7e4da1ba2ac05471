// Package actionprof implements ActionProfMgr: the per-action-profile
// bidirectional {member,group} id<->handle maps and their CRUD (§4.4). One
// Manager exists per action-profile ID in the active pipeline.
package actionprof

import (
	"context"
	"sync"

	"github.com/p4lang/pi4go/internal/keys"
	"github.com/p4lang/pi4go/pkg/p4info"
	"github.com/p4lang/pi4go/pkg/p4rt"
	"github.com/p4lang/pi4go/pkg/pidriver"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Manager is one action profile's member/group state: four maps guarded by
// a single mutex, held across each driver call and its corresponding map
// update.
type Manager struct {
	profileID uint32
	target    pidriver.DeviceTarget
	driver    pidriver.Device
	p4        *p4info.Handle

	mu sync.Mutex

	memberToHandle map[uint32]pidriver.IndirectHandle
	handleToMember map[pidriver.IndirectHandle]uint32
	memberAction   map[uint32]p4rt.DirectAction

	groupToHandle map[uint32]pidriver.IndirectHandle
	handleToGroup map[pidriver.IndirectHandle]uint32

	// groupMembers records each group's recorded composition, kept in sync
	// with the driver-level group membership.
	groupMembers map[uint32]map[uint32]bool

	// degraded is set when a compensating rollback itself fails, per §4.4
	// failure semantics; further writes to this profile then fail until the
	// next pipeline commit rebuilds the Manager.
	degraded bool
}

var _ keys.ProfileResolver = (*Manager)(nil)

// New creates an empty Manager for profileID against the given driver/target
// and the pipeline's P4Info handle (used to validate member action data).
func New(profileID uint32, target pidriver.DeviceTarget, driver pidriver.Device, p4 *p4info.Handle) *Manager {
	return &Manager{
		profileID:      profileID,
		target:         target,
		driver:         driver,
		p4:             p4,
		memberToHandle: make(map[uint32]pidriver.IndirectHandle),
		handleToMember: make(map[pidriver.IndirectHandle]uint32),
		memberAction:   make(map[uint32]p4rt.DirectAction),
		groupToHandle:  make(map[uint32]pidriver.IndirectHandle),
		handleToGroup:  make(map[pidriver.IndirectHandle]uint32),
		groupMembers:   make(map[uint32]map[uint32]bool),
	}
}

// MemberExists reports whether memberID is currently registered.
func (m *Manager) MemberExists(memberID uint32) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.memberToHandle[memberID]
	return ok
}

// GroupExists reports whether groupID is currently registered.
func (m *Manager) GroupExists(groupID uint32) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.groupToHandle[groupID]
	return ok
}

// RetrieveMemberHandle resolves a member ID to its driver handle.
func (m *Manager) RetrieveMemberHandle(memberID uint32) (pidriver.IndirectHandle, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.memberToHandle[memberID]
	return h, ok
}

// RetrieveMemberID resolves a driver handle back to its member ID.
func (m *Manager) RetrieveMemberID(handle pidriver.IndirectHandle) (uint32, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.handleToMember[handle]
	return id, ok
}

// RetrieveGroupHandle resolves a group ID to its driver handle.
func (m *Manager) RetrieveGroupHandle(groupID uint32) (pidriver.IndirectHandle, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.groupToHandle[groupID]
	return h, ok
}

// RetrieveGroupID resolves a driver handle back to its group ID.
func (m *Manager) RetrieveGroupID(handle pidriver.IndirectHandle) (uint32, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.handleToGroup[handle]
	return id, ok
}

// AllMemberIDs returns every currently registered member ID, for the
// zero-member_id "read all" case (§4.4).
func (m *Manager) AllMemberIDs() []uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]uint32, 0, len(m.memberToHandle))
	for id := range m.memberToHandle {
		out = append(out, id)
	}
	return out
}

// AllGroupIDs returns every currently registered group ID, for the
// zero-group_id "read all" case (§4.4).
func (m *Manager) AllGroupIDs() []uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]uint32, 0, len(m.groupToHandle))
	for id := range m.groupToHandle {
		out = append(out, id)
	}
	return out
}

// MemberAction returns the action last written for memberID.
func (m *Manager) MemberAction(memberID uint32) (p4rt.DirectAction, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.memberAction[memberID]
	return a, ok
}

// GroupMembers returns a copy of a group's recorded member-ID composition.
func (m *Manager) GroupMembers(groupID uint32) ([]uint32, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.groupMembers[groupID]
	if !ok {
		return nil, false
	}
	out := make([]uint32, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out, true
}

func (m *Manager) checkDegraded() error {
	if m.degraded {
		return status.Errorf(codes.Unknown,
			"action profile %d is degraded after a failed rollback; awaiting pipeline commit", m.profileID)
	}
	return nil
}

func toActionSpec(a p4rt.DirectAction) pidriver.ActionSpec {
	params := make([][]byte, len(a.Params))
	for i, p := range a.Params {
		params[i] = p.Value
	}
	return pidriver.ActionSpec{ActionID: a.ActionID, Params: params}
}

// MemberCreate validates m.Action, rejects a duplicate MemberID, creates the
// member in the driver and, on success, inserts both map directions.
func (m *Manager) MemberCreate(ctx context.Context, sess pidriver.Session, member p4rt.ActionProfileMember) error {
	if err := keys.ValidateDirectActionData(m.p4, nil, member.Action); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkDegraded(); err != nil {
		return err
	}
	if _, exists := m.memberToHandle[member.MemberID]; exists {
		return status.Errorf(codes.AlreadyExists, "member %d already exists", member.MemberID)
	}

	handle, err := m.driver.MemberCreate(ctx, sess, m.target, m.profileID, toActionSpec(member.Action))
	if err != nil {
		return status.Errorf(codes.Unknown, "driver member_create failed: %v", err)
	}

	m.memberToHandle[member.MemberID] = handle
	m.handleToMember[handle] = member.MemberID
	m.memberAction[member.MemberID] = member.Action
	return nil
}

// MemberModify requires the member to exist and updates its action in the
// driver via its existing handle.
func (m *Manager) MemberModify(ctx context.Context, sess pidriver.Session, member p4rt.ActionProfileMember) error {
	if err := keys.ValidateDirectActionData(m.p4, nil, member.Action); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkDegraded(); err != nil {
		return err
	}
	handle, exists := m.memberToHandle[member.MemberID]
	if !exists {
		return status.Errorf(codes.InvalidArgument, "member %d does not exist", member.MemberID)
	}

	if err := m.driver.MemberModify(ctx, sess, m.target, m.profileID, handle, toActionSpec(member.Action)); err != nil {
		return status.Errorf(codes.Unknown, "driver member_modify failed: %v", err)
	}
	m.memberAction[member.MemberID] = member.Action
	return nil
}

// MemberDelete requires the member to exist and to be unreferenced by any
// live group in this profile (I4's converse), then removes it from the
// driver and both maps.
func (m *Manager) MemberDelete(ctx context.Context, sess pidriver.Session, memberID uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkDegraded(); err != nil {
		return err
	}
	handle, exists := m.memberToHandle[memberID]
	if !exists {
		return status.Errorf(codes.InvalidArgument, "member %d does not exist", memberID)
	}
	for groupID, members := range m.groupMembers {
		if members[memberID] {
			return status.Errorf(codes.InvalidArgument,
				"member %d is still referenced by group %d", memberID, groupID)
		}
	}

	if err := m.driver.MemberDelete(ctx, sess, m.target, m.profileID, handle); err != nil {
		return status.Errorf(codes.Unknown, "driver member_delete failed: %v", err)
	}

	delete(m.memberToHandle, memberID)
	delete(m.handleToMember, handle)
	delete(m.memberAction, memberID)
	return nil
}
