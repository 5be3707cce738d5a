// Package access decides who may cite unpublished submissions.
package access

import (
	"context"
	"fmt"
	"slices"

	"github.com/matsen/cslcite/internal/citation"
	"github.com/matsen/cslcite/internal/reference"
)

// Role is a user's role within a context.
type Role string

const (
	RoleSiteAdmin Role = "site-admin"
	RoleManager   Role = "manager"
	RoleSubEditor Role = "sub-editor"
	RoleAssistant Role = "assistant"
	RoleAuthor    Role = "author"
	RoleReader    Role = "reader"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleSiteAdmin, RoleManager, RoleSubEditor, RoleAssistant, RoleAuthor, RoleReader:
		return true
	}
	return false
}

// User is an authenticated user. A nil *User is anonymous.
type User struct {
	ID    int64
	Name  string
	Roles []Role
}

// Has reports whether the user holds role.
func (u *User) Has(role Role) bool {
	return u != nil && slices.Contains(u.Roles, role)
}

// HasAny reports whether the user holds any of roles.
func (u *User) HasAny(roles ...Role) bool {
	for _, r := range roles {
		if u.Has(r) {
			return true
		}
	}
	return false
}

// Assignment places a user on a submission's editorial workflow in a role.
type Assignment struct {
	SubmissionID int64 `json:"submission_id"`
	UserID       int64 `json:"user_id"`
	Role         Role  `json:"role"`
}

// AssignmentLister lists the stage assignments of a submission.
type AssignmentLister interface {
	Assignments(ctx context.Context, submissionID int64) ([]Assignment, error)
}

// Policy gates access to unpublished content.
type Policy struct {
	app         citation.Application
	assignments AssignmentLister
}

// NewPolicy creates a policy. assignments may be nil, in which case no user is ever
// privileged through a stage assignment.
func NewPolicy(app citation.Application, assignments AssignmentLister) *Policy {
	return &Policy{app: app, assignments: assignments}
}

// RequiresPrivilege reports whether viewing the submission requires a privileged user.
// Journal articles need a published issue as well as a published status.
func (p *Policy) RequiresPrivilege(sub *reference.Submission, issue *reference.Issue) bool {
	if p.app == citation.Journal && (issue == nil || !issue.Published) {
		return true
	}
	return sub.Status != reference.StatusPublished
}

// Privileged reports whether user may see unpublished content of the submission: managers
// and site admins always, sub-editors and assistants when assigned to it in one of those roles.
func (p *Policy) Privileged(ctx context.Context, user *User, sub *reference.Submission) (bool, error) {
	if user == nil {
		return false, nil
	}
	if user.HasAny(RoleManager, RoleSiteAdmin) {
		return true, nil
	}
	if !user.HasAny(RoleSubEditor, RoleAssistant) || p.assignments == nil {
		return false, nil
	}

	assignments, err := p.assignments.Assignments(ctx, sub.ID)
	if err != nil {
		return false, fmt.Errorf("listing assignments for submission %d: %w", sub.ID, err)
	}
	for _, a := range assignments {
		if a.UserID == user.ID && (a.Role == RoleSubEditor || a.Role == RoleAssistant) {
			return true, nil
		}
	}
	return false, nil
}

// CanView combines RequiresPrivilege and Privileged.
func (p *Policy) CanView(ctx context.Context, user *User, sub *reference.Submission, issue *reference.Issue) (bool, error) {
	if !p.RequiresPrivilege(sub, issue) {
		return true, nil
	}
	return p.Privileged(ctx, user, sub)
}

// CanManage reports whether user may read or change plugin settings.
func CanManage(user *User) bool {
	return user.HasAny(RoleManager, RoleSiteAdmin)
}
