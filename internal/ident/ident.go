// Package ident provides branded identifier types shared by every bounded context.
package ident

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// ErrEmpty is returned when an identifier value is blank after trimming.
var ErrEmpty = errors.New("identifier must not be empty")

// Kind brands an identifier so ids of different entities cannot be mixed.
type Kind interface {
	Name() string
}

type (
	Task        struct{}
	Issue       struct{}
	Member      struct{}
	Event       struct{}
	Correlation struct{}
	Causation   struct{}
	QCCheck     struct{}
	DailyEntry  struct{}
	Acceptance  struct{}
	Role        struct{}
	Template    struct{}
	Workspace   struct{}
	User        struct{}
)

func (Task) Name() string        { return "task" }
func (Issue) Name() string       { return "issue" }
func (Member) Name() string      { return "member" }
func (Event) Name() string       { return "event" }
func (Correlation) Name() string { return "correlation" }
func (Causation) Name() string   { return "causation" }
func (QCCheck) Name() string     { return "qc_check" }
func (DailyEntry) Name() string  { return "daily_entry" }
func (Acceptance) Name() string  { return "acceptance" }
func (Role) Name() string        { return "role" }
func (Template) Name() string    { return "template" }
func (Workspace) Name() string   { return "workspace" }
func (User) Name() string        { return "user" }

type (
	TaskID        = ID[Task]
	IssueID       = ID[Issue]
	MemberID      = ID[Member]
	EventID       = ID[Event]
	CorrelationID = ID[Correlation]
	CausationID   = ID[Causation]
	QCCheckID     = ID[QCCheck]
	DailyEntryID  = ID[DailyEntry]
	AcceptanceID  = ID[Acceptance]
	RoleID        = ID[Role]
	TemplateID    = ID[Template]
	WorkspaceID   = ID[Workspace]
	UserID        = ID[User]
)

// ID is an opaque, non-empty string identifier branded by K.
// The zero value is "no identifier" and only appears for absent optional ids.
type ID[K Kind] struct {
	value string
}

// Create wraps an externally supplied value.
func Create[K Kind](value string) (ID[K], error) {
	v := strings.TrimSpace(value)
	if v == "" {
		var k K
		return ID[K]{}, fmt.Errorf("%s id: %w", k.Name(), ErrEmpty)
	}
	return ID[K]{value: v}, nil
}

// MustCreate is Create for literals known to be valid.
func MustCreate[K Kind](value string) ID[K] {
	id, err := Create[K](value)
	if err != nil {
		panic(err)
	}
	return id
}

// Generate returns a fresh identifier from g.
func Generate[K Kind](g Generator) ID[K] {
	if g == nil {
		g = UUIDGenerator{}
	}
	return ID[K]{value: g.NewID()}
}

// Convert rebrands an identifier, e.g. an event id that becomes a causation reference.
func Convert[To, From Kind](id ID[From]) ID[To] {
	return ID[To]{value: id.value}
}

// Ptr returns a pointer to a copy of id, or nil for the zero id.
func Ptr[K Kind](id ID[K]) *ID[K] {
	if id.IsZero() {
		return nil
	}
	return &id
}

func (id ID[K]) String() string { return id.value }

func (id ID[K]) IsZero() bool { return id.value == "" }

func (id ID[K]) Equals(other ID[K]) bool { return id.value == other.value }

func (id ID[K]) MarshalText() ([]byte, error) {
	return []byte(id.value), nil
}

func (id *ID[K]) UnmarshalText(data []byte) error {
	parsed, err := Create[K](string(data))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// Generator produces fresh, unique identifier values.
type Generator interface {
	NewID() string
}

// UUIDGenerator issues random v4 UUIDs.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID() string { return uuid.NewString() }

// Sequence issues deterministic ids (prefix-1, prefix-2, ...). Safe for concurrent use.
type Sequence struct {
	Prefix string

	mu sync.Mutex
	n  int
}

func (s *Sequence) NewID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	prefix := s.Prefix
	if prefix == "" {
		prefix = "id"
	}
	return fmt.Sprintf("%s-%d", prefix, s.n)
}
