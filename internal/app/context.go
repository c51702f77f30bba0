package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"hangarline/internal/domain"
	"hangarline/internal/repo"
)

// ResolveWorkOrder picks the work order a command operates on. It prefers the
// explicit override, then falls back to the single work order in the
// workspace; with several on file the caller has to say which.
func ResolveWorkOrder(ctx context.Context, override string, r repo.Repo) (domain.WorkOrder, error) {
	if override != "" {
		wo, err := r.GetWorkOrder(ctx, override)
		if err == nil {
			return wo, nil
		}
		if !errors.Is(err, repo.ErrNotFound) {
			return domain.WorkOrder{}, err
		}
		// The override may be the human-facing number rather than the uid.
		all, lerr := r.ListWorkOrders(ctx)
		if lerr != nil {
			return domain.WorkOrder{}, lerr
		}
		for _, candidate := range all {
			if candidate.Header.Number == override {
				return candidate, nil
			}
		}
		return domain.WorkOrder{}, fmt.Errorf("work order %q: %w", override, repo.ErrNotFound)
	}
	return r.SingleWorkOrder(ctx)
}

// ResolveFinding resolves a finding reference within a work order: a finding
// uid, or a finding number like "2".
func ResolveFinding(ctx context.Context, woUID, ref string, r repo.Repo) (domain.Finding, error) {
	if ref == "" {
		return domain.Finding{}, fmt.Errorf("finding reference is required")
	}
	if f, err := r.GetFinding(ctx, ref); err == nil && f.WorkOrderUID == woUID {
		return f, nil
	} else if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return domain.Finding{}, err
	}
	if num, err := strconv.Atoi(ref); err == nil {
		findings, lerr := r.ListFindings(ctx, woUID)
		if lerr != nil {
			return domain.Finding{}, lerr
		}
		for _, f := range findings {
			if f.Num == num {
				return f, nil
			}
		}
	}
	return domain.Finding{}, fmt.Errorf("finding %q: %w", ref, repo.ErrNotFound)
}
