// Package permission decides who may view or edit each sheet. Every sheet
// has exactly one OWNER, fixed at creation; other users move from NONE to
// READER or WRITER through requests the owner approves or denies.
package permission

import (
	"sort"
	"sync"
	"time"

	"github.com/ryanbastic/go-shticell/internal/sheeterr"
)

// Level is a user's access to one sheet.
type Level string

const (
	None   Level = "NONE"
	Reader Level = "READER"
	Writer Level = "WRITER"
	Owner  Level = "OWNER"
)

// ParseLevel accepts the level names case-sensitively.
func ParseLevel(s string) (Level, error) {
	switch l := Level(s); l {
	case None, Reader, Writer, Owner:
		return l, nil
	}
	return "", sheeterr.New(sheeterr.InvalidDefinition, "unknown permission level %q", s)
}

// CanView reports whether l allows reading the sheet.
func (l Level) CanView() bool { return l == Reader || l == Writer || l == Owner }

// CanEdit reports whether l allows mutating the sheet.
func (l Level) CanEdit() bool { return l == Writer || l == Owner }

// Status is the state of an access request.
type Status string

const (
	Pending  Status = "pending"
	Approved Status = "approved"
	Denied   Status = "denied"
)

// Request is one access request and its outcome.
type Request struct {
	ID        int64      `json:"id"`
	Username  string     `json:"username"`
	Level     Level      `json:"level"`
	Status    Status     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	DecidedAt *time.Time `json:"decided_at,omitempty"`
}

// Details is a user's current standing on a sheet.
type Details struct {
	Username string `json:"username"`
	Level    Level  `json:"level"`
	Status   Status `json:"status"`
}

// ACL is the full access state of one sheet. Revision grows by one on every
// change.
type ACL struct {
	Owner    string           `json:"owner"`
	Grants   map[string]Level `json:"grants"`
	Requests []Request        `json:"requests"`
	Revision int64            `json:"revision"`
}

func (a *ACL) clone() ACL {
	out := ACL{Owner: a.Owner, Revision: a.Revision, Grants: make(map[string]Level, len(a.Grants))}
	for k, v := range a.Grants {
		out.Grants[k] = v
	}
	out.Requests = append([]Request(nil), a.Requests...)
	return out
}

func (a *ACL) level(user string) Level {
	if user == a.Owner {
		return Owner
	}
	if l, ok := a.Grants[user]; ok {
		return l
	}
	return None
}

// Gate holds the ACLs of every sheet.
type Gate struct {
	mu   sync.RWMutex
	acls map[string]*ACL
	now  func() time.Time
}

// NewGate returns an empty gate.
func NewGate() *Gate {
	return &Gate{acls: make(map[string]*ACL), now: time.Now}
}

// Create registers sheetID with owner as its immutable OWNER.
func (g *Gate) Create(sheetID, owner string) (ACL, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.acls[sheetID]; ok {
		return ACL{}, sheeterr.New(sheeterr.SheetAlreadyExists, "sheet %s already has an owner", sheetID)
	}
	a := &ACL{Owner: owner, Grants: make(map[string]Level), Revision: 1}
	g.acls[sheetID] = a
	return a.clone(), nil
}

// Load installs a previously exported ACL, replacing any existing one.
func (g *Gate) Load(sheetID string, acl ACL) {
	g.mu.Lock()
	defer g.mu.Unlock()
	cp := acl.clone()
	if cp.Grants == nil {
		cp.Grants = make(map[string]Level)
	}
	g.acls[sheetID] = &cp
}

// Export returns a copy of the ACL of sheetID.
func (g *Gate) Export(sheetID string) (ACL, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	a, err := g.acl(sheetID)
	if err != nil {
		return ACL{}, err
	}
	return a.clone(), nil
}

// Remove forgets sheetID.
func (g *Gate) Remove(sheetID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.acls, sheetID)
}

// Level returns user's access to sheetID; unknown sheets are SheetNotFound.
func (g *Gate) Level(sheetID, user string) (Level, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	a, err := g.acl(sheetID)
	if err != nil {
		return None, err
	}
	return a.level(user), nil
}

// CheckView returns PermissionDenied unless user may read sheetID.
func (g *Gate) CheckView(sheetID, user string) error {
	l, err := g.Level(sheetID, user)
	if err != nil {
		return err
	}
	if !l.CanView() {
		return sheeterr.New(sheeterr.PermissionDenied, "%s cannot view sheet %s", user, sheetID)
	}
	return nil
}

// CheckEdit returns PermissionDenied unless user may mutate sheetID.
func (g *Gate) CheckEdit(sheetID, user string) error {
	l, err := g.Level(sheetID, user)
	if err != nil {
		return err
	}
	if !l.CanEdit() {
		return sheeterr.New(sheeterr.PermissionDenied, "%s (%s) cannot edit sheet %s", user, l, sheetID)
	}
	return nil
}

// Request files a request by user for level on sheetID. A newer request
// replaces the user's pending one.
func (g *Gate) Request(sheetID, user string, level Level) (Request, ACL, error) {
	if level != Reader && level != Writer {
		return Request{}, ACL{}, sheeterr.New(sheeterr.InvalidDefinition, "only %s or %s can be requested, not %s", Reader, Writer, level)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	a, err := g.acl(sheetID)
	if err != nil {
		return Request{}, ACL{}, err
	}
	if user == a.Owner {
		return Request{}, ACL{}, sheeterr.New(sheeterr.PermissionDenied, "%s already owns sheet %s", user, sheetID)
	}
	if i := a.pending(user); i >= 0 {
		a.Requests[i].Level = level
		a.Requests[i].CreatedAt = g.now().UTC()
		a.Revision++
		return a.Requests[i], a.clone(), nil
	}
	r := Request{
		ID:        int64(len(a.Requests)) + 1,
		Username:  user,
		Level:     level,
		Status:    Pending,
		CreatedAt: g.now().UTC(),
	}
	a.Requests = append(a.Requests, r)
	a.Revision++
	return r, a.clone(), nil
}

// Decide approves or denies target's pending request. Only the owner may
// decide. Approval grants the requested level; denial leaves the current
// level in place, which is NONE for a first request.
func (g *Gate) Decide(sheetID, owner, target string, approve bool) (Request, ACL, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	a, err := g.acl(sheetID)
	if err != nil {
		return Request{}, ACL{}, err
	}
	if owner != a.Owner {
		return Request{}, ACL{}, sheeterr.New(sheeterr.PermissionDenied, "only the owner of sheet %s can decide requests", sheetID)
	}
	i := a.pending(target)
	if i < 0 {
		return Request{}, ACL{}, sheeterr.New(sheeterr.UserNotFound, "%s has no pending request on sheet %s", target, sheetID)
	}
	now := g.now().UTC()
	r := &a.Requests[i]
	r.DecidedAt = &now
	if approve {
		r.Status = Approved
		a.Grants[target] = r.Level
	} else {
		r.Status = Denied
	}
	a.Revision++
	return *r, a.clone(), nil
}

// SetLevel lets the owner change another user's level directly. NONE
// revokes access.
func (g *Gate) SetLevel(sheetID, owner, target string, level Level) (ACL, error) {
	if _, err := ParseLevel(string(level)); err != nil {
		return ACL{}, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	a, err := g.acl(sheetID)
	if err != nil {
		return ACL{}, err
	}
	if owner != a.Owner {
		return ACL{}, sheeterr.New(sheeterr.PermissionDenied, "only the owner of sheet %s can change levels", sheetID)
	}
	if target == a.Owner || level == Owner {
		return ACL{}, sheeterr.New(sheeterr.PermissionDenied, "ownership of sheet %s cannot change", sheetID)
	}
	if level == None {
		delete(a.Grants, target)
	} else {
		a.Grants[target] = level
	}
	a.Revision++
	return a.clone(), nil
}

// Details lists the owner and every user with a grant or a request, sorted
// by username. Status reflects the user's latest request.
func (g *Gate) Details(sheetID string) ([]Details, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	a, err := g.acl(sheetID)
	if err != nil {
		return nil, err
	}
	users := map[string]Details{a.Owner: {Username: a.Owner, Level: Owner, Status: Approved}}
	for u, l := range a.Grants {
		users[u] = Details{Username: u, Level: l, Status: Approved}
	}
	for _, r := range a.Requests {
		if r.Username == a.Owner {
			continue
		}
		users[r.Username] = Details{Username: r.Username, Level: a.level(r.Username), Status: r.Status}
	}
	out := make([]Details, 0, len(users))
	for _, d := range users {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (g *Gate) acl(sheetID string) (*ACL, error) {
	a, ok := g.acls[sheetID]
	if !ok {
		return nil, sheeterr.New(sheeterr.SheetNotFound, "sheet %s not found", sheetID)
	}
	return a, nil
}

func (a *ACL) pending(user string) int {
	for i := len(a.Requests) - 1; i >= 0; i-- {
		if a.Requests[i].Username == user && a.Requests[i].Status == Pending {
			return i
		}
	}
	return -1
}
