package models

import (
	"time"

	id "accord/pkg/domain"
	"accord/pkg/platform/sentinel"
)

// Role is the membership level an invitation grants.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// ValidRole reports whether r is a known membership role.
func ValidRole(r Role) bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleMember:
		return true
	}
	return false
}

// Invitation invites a user into an organization with a given role. At most
// one invitation exists per (user, org, role), enforced by a uniqueness
// constraint. Accept and reject are terminal and mutually exclusive; repeats
// of the same decision are no-ops.
type Invitation struct {
	ID         id.InvitationID
	UserID     id.UserID
	OrgID      id.OrgID
	Role       Role
	CreatedAt  time.Time
	ExpiresAt  time.Time
	AcceptedAt *time.Time
	RejectedAt *time.Time
}

// New builds a pending invitation.
func New(userID id.UserID, orgID id.OrgID, role Role, now time.Time, ttl time.Duration) *Invitation {
	return &Invitation{
		ID:        id.NewInvitationID(),
		UserID:    userID,
		OrgID:     orgID,
		Role:      role,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

// Accept marks the invitation accepted. Returns false without error when it
// already is. Accepting a rejected invitation is an invalid transition, and
// a pending invitation past its expiry cannot be accepted.
func (i *Invitation) Accept(now time.Time) (bool, error) {
	if i.AcceptedAt != nil {
		return false, nil
	}
	if i.RejectedAt != nil {
		return false, sentinel.ErrInvalidState
	}
	if now.After(i.ExpiresAt) {
		return false, sentinel.ErrExpired
	}
	i.AcceptedAt = &now
	return true, nil
}

// Reject marks the invitation rejected. Mirror of Accept; rejecting an
// expired invitation is allowed since the outcome is the same.
func (i *Invitation) Reject(now time.Time) (bool, error) {
	if i.RejectedAt != nil {
		return false, nil
	}
	if i.AcceptedAt != nil {
		return false, sentinel.ErrInvalidState
	}
	i.RejectedAt = &now
	return true, nil
}

// Pending reports whether the invitation awaits a decision.
func (i *Invitation) Pending() bool {
	return i.AcceptedAt == nil && i.RejectedAt == nil
}
