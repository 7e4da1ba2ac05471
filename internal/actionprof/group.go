package actionprof

import (
	"context"

	"github.com/p4lang/pi4go/pkg/p4rt"
	"github.com/p4lang/pi4go/pkg/pidriver"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// GroupCreate rejects a duplicate GroupID, resolves every listed member (I4),
// then creates an empty group in the driver and adds the members. On any failure
// partway through, already-added members are removed and the group is
// destroyed (§4.4) — P7.
func (m *Manager) GroupCreate(ctx context.Context, sess pidriver.Session, group p4rt.ActionProfileGroup) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkDegraded(); err != nil {
		return err
	}
	if _, exists := m.groupToHandle[group.GroupID]; exists {
		return status.Errorf(codes.AlreadyExists, "group %d already exists", group.GroupID)
	}

	memberHandles := make([]pidriver.IndirectHandle, 0, len(group.MemberIDs))
	for _, memberID := range group.MemberIDs {
		h, ok := m.memberToHandle[memberID]
		if !ok {
			return status.Errorf(codes.InvalidArgument,
				"group %d references unknown member %d", group.GroupID, memberID)
		}
		memberHandles = append(memberHandles, h)
	}

	groupHandle, err := m.driver.GroupCreate(ctx, sess, m.target, m.profileID)
	if err != nil {
		return status.Errorf(codes.Unknown, "driver group_create failed: %v", err)
	}

	added := make([]pidriver.IndirectHandle, 0, len(memberHandles))
	var addErr error
	for _, h := range memberHandles {
		if addErr = m.driver.GroupAddMember(ctx, sess, m.target, m.profileID, groupHandle, h); addErr != nil {
			break
		}
		added = append(added, h)
	}

	if addErr != nil {
		// roll back: remove what was added, then destroy the group
		for _, h := range added {
			if rmErr := m.driver.GroupRemoveMember(ctx, sess, m.target, m.profileID, groupHandle, h); rmErr != nil {
				m.degraded = true
				return status.Errorf(codes.Unknown,
					"group %d rollback failed, profile degraded: %v", group.GroupID, rmErr)
			}
		}
		if rmErr := m.driver.GroupDelete(ctx, sess, m.target, m.profileID, groupHandle); rmErr != nil {
			m.degraded = true
			return status.Errorf(codes.Unknown,
				"group %d destroy after rollback failed, profile degraded: %v", group.GroupID, rmErr)
		}
		return status.Errorf(codes.Unknown, "driver group_add_member failed: %v", addErr)
	}

	m.groupToHandle[group.GroupID] = groupHandle
	m.handleToGroup[groupHandle] = group.GroupID
	members := make(map[uint32]bool, len(group.MemberIDs))
	for _, id := range group.MemberIDs {
		members[id] = true
	}
	m.groupMembers[group.GroupID] = members
	return nil
}

// GroupModify computes the diff between the recorded membership and the
// requested one, applies additions then removals, and rolls back to leave
// the recorded membership consistent with the driver on failure.
func (m *Manager) GroupModify(ctx context.Context, sess pidriver.Session, group p4rt.ActionProfileGroup) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkDegraded(); err != nil {
		return err
	}
	groupHandle, exists := m.groupToHandle[group.GroupID]
	if !exists {
		return status.Errorf(codes.InvalidArgument, "group %d does not exist", group.GroupID)
	}

	requested := make(map[uint32]bool, len(group.MemberIDs))
	requestedHandles := make(map[uint32]pidriver.IndirectHandle, len(group.MemberIDs))
	for _, memberID := range group.MemberIDs {
		h, ok := m.memberToHandle[memberID]
		if !ok {
			return status.Errorf(codes.InvalidArgument,
				"group %d references unknown member %d", group.GroupID, memberID)
		}
		requested[memberID] = true
		requestedHandles[memberID] = h
	}

	current := m.groupMembers[group.GroupID]

	var toAdd, toRemove []uint32
	for id := range requested {
		if !current[id] {
			toAdd = append(toAdd, id)
		}
	}
	for id := range current {
		if !requested[id] {
			toRemove = append(toRemove, id)
		}
	}

	added := make([]uint32, 0, len(toAdd))
	for _, id := range toAdd {
		if err := m.driver.GroupAddMember(ctx, sess, m.target, m.profileID, groupHandle, requestedHandles[id]); err != nil {
			for _, undoID := range added {
				if rmErr := m.driver.GroupRemoveMember(ctx, sess, m.target, m.profileID, groupHandle, requestedHandles[undoID]); rmErr != nil {
					m.degraded = true
					return status.Errorf(codes.Unknown,
						"group %d modify rollback failed, profile degraded: %v", group.GroupID, rmErr)
				}
			}
			return status.Errorf(codes.Unknown, "driver group_add_member failed: %v", err)
		}
		added = append(added, id)
	}

	removed := make([]uint32, 0, len(toRemove))
	for _, id := range toRemove {
		h, ok := m.memberToHandle[id]
		if !ok {
			continue // member was deleted out from under a stale recorded group; nothing to remove at the driver
		}
		if err := m.driver.GroupRemoveMember(ctx, sess, m.target, m.profileID, groupHandle, h); err != nil {
			for _, undoID := range removed {
				if addErr := m.driver.GroupAddMember(ctx, sess, m.target, m.profileID, groupHandle, m.memberToHandle[undoID]); addErr != nil {
					m.degraded = true
					return status.Errorf(codes.Unknown,
						"group %d modify rollback failed, profile degraded: %v", group.GroupID, addErr)
				}
			}
			for _, undoID := range added {
				if rmErr := m.driver.GroupRemoveMember(ctx, sess, m.target, m.profileID, groupHandle, requestedHandles[undoID]); rmErr != nil {
					m.degraded = true
					return status.Errorf(codes.Unknown,
						"group %d modify rollback failed, profile degraded: %v", group.GroupID, rmErr)
				}
			}
			return status.Errorf(codes.Unknown, "driver group_remove_member failed: %v", err)
		}
		removed = append(removed, id)
	}

	m.groupMembers[group.GroupID] = requested
	return nil
}

// GroupDelete requires the group to exist; the driver is responsible for
// rejecting deletion of a group still referenced by a table entry, which is
// surfaced here as INVALID_ARGUMENT.
func (m *Manager) GroupDelete(ctx context.Context, sess pidriver.Session, groupID uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkDegraded(); err != nil {
		return err
	}
	handle, exists := m.groupToHandle[groupID]
	if !exists {
		return status.Errorf(codes.InvalidArgument, "group %d does not exist", groupID)
	}

	if err := m.driver.GroupDelete(ctx, sess, m.target, m.profileID, handle); err != nil {
		return status.Errorf(codes.InvalidArgument, "driver group_delete failed: %v", err)
	}

	delete(m.groupToHandle, groupID)
	delete(m.handleToGroup, handle)
	delete(m.groupMembers, groupID)
	return nil
}
