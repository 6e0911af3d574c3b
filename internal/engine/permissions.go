package engine

import (
	"github.com/google/uuid"
	"github.com/ryanbastic/go-shticell/internal/permission"
	"github.com/ryanbastic/go-shticell/internal/wire"
)

// Permissions lists who can do what on the sheet and the request history.
// Any logged-in user may read it.
func (e *Engine) Permissions(username string, id uuid.UUID) (wire.Permissions, error) {
	if err := e.users.Require(username); err != nil {
		return wire.Permissions{}, err
	}
	acl, err := e.gate.Export(id.String())
	if err != nil {
		return wire.Permissions{}, err
	}
	details, err := e.gate.Details(id.String())
	if err != nil {
		return wire.Permissions{}, err
	}
	return wire.Permissions{Owner: acl.Owner, Users: details, Requests: acl.Requests}, nil
}

// RequestPermission asks the owner for level on the sheet.
func (e *Engine) RequestPermission(username string, id uuid.UUID, level permission.Level) (permission.Request, error) {
	if err := e.users.Require(username); err != nil {
		return permission.Request{}, err
	}
	req, acl, err := e.gate.Request(id.String(), username, level)
	if err != nil {
		return permission.Request{}, err
	}
	e.archive.ACL(id, acl)
	e.logger.Info("permission requested", "sheet_id", id, "user", username, "level", level)
	return req, nil
}

// DecidePermission approves or denies target's pending request.
func (e *Engine) DecidePermission(owner string, id uuid.UUID, target string, approve bool) (permission.Request, error) {
	if err := e.users.Require(owner); err != nil {
		return permission.Request{}, err
	}
	req, acl, err := e.gate.Decide(id.String(), owner, target, approve)
	if err != nil {
		return permission.Request{}, err
	}
	e.archive.ACL(id, acl)
	e.logger.Info("permission decided", "sheet_id", id, "target", target, "level", req.Level, "status", req.Status)
	return req, nil
}

// SetLevel changes target's level directly; only the owner may.
func (e *Engine) SetLevel(owner string, id uuid.UUID, target string, level permission.Level) error {
	if err := e.users.Require(owner); err != nil {
		return err
	}
	acl, err := e.gate.SetLevel(id.String(), owner, target, level)
	if err != nil {
		return err
	}
	e.archive.ACL(id, acl)
	e.logger.Info("permission set", "sheet_id", id, "target", target, "level", level)
	return nil
}
