// Package calls gates call origination behind tenant authorization:
// both extensions must exist under the account, the source must be
// assigned to the requester, and both ends must be registered on the
// switch right now. Only then is the dial command issued.
package calls

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"pbx-admin/internal/audit"
	"pbx-admin/internal/auth"
	"pbx-admin/internal/extensions"
	"pbx-admin/internal/switchctl"
	"pbx-admin/pkg/logger"
)

var ErrInvalidArgument = errors.New("calls: invalid argument")

// AuthorizationError carries the user-facing reason an origination was
// refused. The message depends on which check failed first.
type AuthorizationError struct {
	Message string
}

func (e *AuthorizationError) Error() string { return e.Message }

// Directory is the read-only extension lookup the authorizer consumes.
// internal/extensions provides the production implementation.
type Directory interface {
	Find(ctx context.Context, accountID int64, number string) (extensions.Endpoint, error)
}

// Switch is the slice of the control facade origination needs.
type Switch interface {
	Originate(ctx context.Context, src, dst string) switchctl.Result
}

// InflightLimiter caps concurrent originations per account. Acquire
// returns ok=false when the cap is reached; release must be called when
// the round trip finishes.
type InflightLimiter interface {
	Acquire(ctx context.Context, accountID int64) (release func(), ok bool, err error)
}

type Service struct {
	dir     Directory
	sw      Switch
	limiter InflightLimiter
	auditor *audit.Service
}

func NewService(dir Directory, sw Switch, limiter InflightLimiter, auditor *audit.Service) *Service {
	return &Service{dir: dir, sw: sw, limiter: limiter, auditor: auditor}
}

// Authorize runs the three checks in order, short-circuiting on the
// first failure. Each failure produces a distinct message:
//  1. existence of both endpoints under the account,
//  2. ownership of the source by the requester (the destination's
//     assignment is deliberately not checked: any extension may be dialed),
//  3. live registration of both endpoints.
func (s *Service) Authorize(ctx context.Context, req OriginationRequest) error {
	src, srcErr := s.dir.Find(ctx, req.AccountID, req.Src)
	dst, dstErr := s.dir.Find(ctx, req.AccountID, req.Destination)

	var missing []string
	if srcErr != nil {
		if !errors.Is(srcErr, extensions.ErrNotFound) {
			return srcErr
		}
		missing = append(missing, req.Src)
	}
	if dstErr != nil {
		if !errors.Is(dstErr, extensions.ErrNotFound) {
			return dstErr
		}
		missing = append(missing, req.Destination)
	}
	if len(missing) > 0 {
		return &AuthorizationError{Message: fmt.Sprintf("%s not available.", strings.Join(missing, ", "))}
	}

	if src.AssignedUserID != req.RequestingUserID {
		return &AuthorizationError{Message: "no permission to make call."}
	}

	var offline []string
	if !src.Registered {
		offline = append(offline, req.Src)
	}
	if !dst.Registered {
		offline = append(offline, req.Destination)
	}
	if len(offline) > 0 {
		return &AuthorizationError{Message: fmt.Sprintf("%s offline.", strings.Join(offline, ", "))}
	}

	return nil
}

// Place validates, authorizes, and fires the dial command. The switch's
// own response body is not surfaced; callers get a generic success or
// the uniform disconnected failure.
func (s *Service) Place(ctx context.Context, req OriginationRequest) (switchctl.Result, error) {
	if req.Src == "" || req.Destination == "" {
		return switchctl.Result{}, fmt.Errorf("%w: src and destination are required", ErrInvalidArgument)
	}
	if req.AccountID <= 0 {
		return switchctl.Result{}, fmt.Errorf("%w: account_id is required", ErrInvalidArgument)
	}
	if req.RequestingUserID == "" {
		return switchctl.Result{}, fmt.Errorf("%w: requesting user is required", ErrInvalidArgument)
	}

	if err := s.Authorize(ctx, req); err != nil {
		return switchctl.Result{}, err
	}

	if s.limiter != nil {
		release, ok, err := s.limiter.Acquire(ctx, req.AccountID)
		if err != nil {
			// Fail open: the cap is protection against stampedes, not a
			// correctness requirement; losing Redis must not stop calls.
			logger.From(ctx).Warn("originate cap unavailable", "err", err)
		} else if !ok {
			return switchctl.Result{}, &AuthorizationError{Message: "too many concurrent calls."}
		} else {
			defer release()
		}
	}

	res := s.sw.Originate(ctx, req.Src, req.Destination)

	if s.auditor != nil {
		actor, _ := auth.UserID(ctx)
		role, _ := auth.Role(ctx)
		if err := s.auditor.LogOriginate(ctx, req.AccountID, actor, role, "", req.Src, req.Destination, res.Message); err != nil {
			logger.From(ctx).Warn("originate audit failed", "err", err)
		}
	}
	return res, nil
}
