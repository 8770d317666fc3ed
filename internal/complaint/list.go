package complaint

import (
	"context"
	"fmt"

	"github.com/frahmantamala/civic-complaints/internal"
)

// ListForOwner returns the owner's complaints newest first. Callers check that the actor
// may see ownerID's complaints.
func (s *Service) ListForOwner(ctx context.Context, ownerID int64, filter Filter) ([]*Complaint, error) {
	filter = filter.Normalize()
	if err := validateStatusFilter(filter); err != nil {
		return nil, err
	}
	filter.OwnerID = ownerID

	complaints, err := s.repo.List(ctx, filter)
	if err != nil {
		s.logger.Error("failed to list owner complaints", "error", err, "owner_id", ownerID)
		return nil, err
	}
	return complaints, nil
}

func (s *Service) ListAll(ctx context.Context, actor internal.Actor, filter Filter) ([]*Complaint, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	filter = filter.Normalize()
	if err := validateStatusFilter(filter); err != nil {
		return nil, err
	}
	filter.OwnerID = 0

	complaints, err := s.repo.List(ctx, filter)
	if err != nil {
		s.logger.Error("failed to list complaints", "error", err)
		return nil, err
	}
	return complaints, nil
}

func validateStatusFilter(filter Filter) error {
	if filter.Status == "" {
		return nil
	}
	if _, ok := ParseStatus(filter.Status); !ok {
		return internal.NewInvalidStatusError(fmt.Sprintf("invalid status filter %q", filter.Status))
	}
	return nil
}

// ComputeStats aggregates over every complaint on each call.
func (s *Service) ComputeStats(ctx context.Context, actor internal.Actor) (*Stats, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	counts, err := s.stats.CountByStatus(ctx, 0)
	if err != nil {
		s.logger.Error("failed to count complaints by status", "error", err)
		return nil, err
	}

	byCategory, err := s.stats.CountByCategory(ctx)
	if err != nil {
		s.logger.Error("failed to count complaints by category", "error", err)
		return nil, err
	}

	recent, err := s.repo.List(ctx, Filter{Limit: RecentLimit})
	if err != nil {
		return nil, err
	}

	stats := counts.Stats()
	stats.ByCategory = byCategory
	if stats.ByCategory == nil {
		stats.ByCategory = []CategoryCount{}
	}
	stats.Recent = recent
	if stats.Recent == nil {
		stats.Recent = []*Complaint{}
	}
	return stats, nil
}

func (s *Service) ComputeOwnerStats(ctx context.Context, ownerID int64) (*OwnerStats, error) {
	counts, err := s.stats.CountByStatus(ctx, ownerID)
	if err != nil {
		s.logger.Error("failed to count owner complaints", "error", err, "owner_id", ownerID)
		return nil, err
	}
	return counts.OwnerStats(), nil
}
