package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events.
//
// It MUST be append-only.
// No Update/Delete methods are provided by design.

type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Service logs internal audit information.
//
// IMPORTANT:
// - Audit is internal-only. Do not expose these records to tenant users by default.
// - Callers should treat audit logging as best-effort.

type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.AccountID == 0 {
		return ErrInvalidEvent
	}
	if e.Type == "" {
		return ErrInvalidEvent
	}

	now := s.clock().UTC()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	return s.repo.Append(ctx, e)
}

// LogSwitchControl records an administrative switch command.
func (s *Service) LogSwitchControl(ctx context.Context, accountID int64, actorUserID, actorRole, ip, command, message string) error {
	return s.Append(ctx, Event{
		AccountID:   accountID,
		Type:        EventTypeSwitchControl,
		ActorUserID: actorUserID,
		ActorRole:   actorRole,
		IPAddress:   ip,
		Command:     command,
		Message:     message,
	})
}

// LogOriginate records a call-origination attempt and its outcome.
func (s *Service) LogOriginate(ctx context.Context, accountID int64, actorUserID, actorRole, ip, src, dst, message string) error {
	return s.Append(ctx, Event{
		AccountID:      accountID,
		Type:           EventTypeOriginate,
		ActorUserID:    actorUserID,
		ActorRole:      actorRole,
		IPAddress:      ip,
		Command:        "originate",
		SourceExt:      src,
		DestinationExt: dst,
		Message:        message,
	})
}
