package extensions

import (
	"context"
	"time"

	"pbx-admin/pkg/logger"
)

// Service is the Extension Directory consumed by the call-origination
// authorizer and the registrations endpoint. Read-only with respect to
// extension identity; the only write path is the liveness cache refresh.
type Service struct {
	repo  Repository
	cache RegistrationCache

	// cacheTTL bounds how long a `show registrations` observation counts
	// as proof of liveness.
	cacheTTL time.Duration
}

func NewService(repo Repository, cache RegistrationCache) *Service {
	return &Service{repo: repo, cache: cache, cacheTTL: 60 * time.Second}
}

// Find resolves an endpoint under the given account, with the liveness
// cache overlaid on the stored registered flag.
func (s *Service) Find(ctx context.Context, accountID int64, number string) (Endpoint, error) {
	ep, err := s.repo.Find(ctx, accountID, number)
	if err != nil {
		return Endpoint{}, err
	}
	if s.cache != nil {
		if live, hit, err := s.cache.Get(ctx, accountID, number); err == nil && hit {
			ep.Registered = live
		} else if err != nil {
			// Cache trouble must not break lookups; the stored flag stands.
			logger.From(ctx).Warn("registration cache read failed", "err", err)
		}
	}
	return ep, nil
}

// IsRegistered reports live registration state for one endpoint.
func (s *Service) IsRegistered(ctx context.Context, accountID int64, number string) (bool, error) {
	ep, err := s.Find(ctx, accountID, number)
	if err != nil {
		return false, err
	}
	return ep.Registered, nil
}

// SyncRegistrations refreshes the liveness cache from parsed
// `show registrations` rows. Best-effort: failures are logged, never
// returned, so a cache outage cannot fail the fetch that feeds it.
func (s *Service) SyncRegistrations(ctx context.Context, accountID int64, rows []map[string]string) {
	if s.cache == nil || len(rows) == 0 {
		return
	}
	numbers := make([]string, 0, len(rows))
	for _, row := range rows {
		if n := row["reg_user"]; n != "" {
			numbers = append(numbers, n)
		}
	}
	if err := s.cache.MarkRegistered(ctx, accountID, numbers, s.cacheTTL); err != nil {
		logger.From(ctx).Warn("registration cache refresh failed", "err", err)
	}
}
