// README: Route service persists finished recordings and serves saved and public routes.
package routes

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"trailtrack/internal/geo"
	"trailtrack/internal/modules/tracking"
	"trailtrack/internal/types"
)

const (
	DefaultListLimit = 50
	maxListLimit     = 200
	publicScanLimit  = 500
)

// Repository is implemented by PostgresStore and FirestoreStore.
type Repository interface {
	Create(ctx context.Context, r Route) error
	Get(ctx context.Context, id types.ID) (Route, error)
	ListByOwner(ctx context.Context, owner types.ID, limit int) ([]Route, error)
	Delete(ctx context.Context, owner, id types.ID) error
	SetPublic(ctx context.Context, owner, id types.ID, public bool) error
	ListPublicIn(ctx context.Context, b geo.Bounds, limit int) ([]Route, error)
}

type Service struct {
	repo Repository
	log  *zap.Logger
	now  func() time.Time
}

func NewService(repo Repository, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{repo: repo, log: log, now: time.Now}
}

// Save stores a finished recording as a private route of owner.
func (s *Service) Save(ctx context.Context, owner types.ID, fr tracking.FinishedRoute) (types.ID, error) {
	r := Route{
		ID:              types.ID(uuid.NewString()),
		OwnerID:         owner,
		Name:            fr.Name,
		LengthMeters:    fr.LengthMeters,
		DurationSeconds: fr.DurationSeconds,
		Path:            fr.Path.Clone(),
		CreatedAt:       s.now().UTC(),
	}
	if r.Path == nil {
		r.Path = geo.Track{}
	}
	if len(r.Path) > 0 {
		r.Start = r.Path[0]
	}
	if err := r.validate(); err != nil {
		return "", err
	}
	if err := s.repo.Create(ctx, r); err != nil {
		return "", err
	}
	s.log.Debug("route stored", zap.String("route_id", string(r.ID)), zap.String("owner", string(owner)))
	return r.ID, nil
}

func (s *Service) ListByOwner(ctx context.Context, owner types.ID, limit int) ([]Route, error) {
	return s.repo.ListByOwner(ctx, owner, clampLimit(limit))
}

// Get returns the route when caller owns it or it is public.
func (s *Service) Get(ctx context.Context, caller, id types.ID) (Route, error) {
	r, err := s.repo.Get(ctx, id)
	if err != nil {
		return Route{}, err
	}
	if r.OwnerID != caller && !r.Public {
		return Route{}, ErrNotFound
	}
	return r, nil
}

func (s *Service) Delete(ctx context.Context, owner, id types.ID) error {
	return s.repo.Delete(ctx, owner, id)
}

func (s *Service) SetPublic(ctx context.Context, owner, id types.ID, public bool) error {
	return s.repo.SetPublic(ctx, owner, id, public)
}

// ListPublicNear returns public routes starting within radiusMeters of
// center, closest first.
func (s *Service) ListPublicNear(ctx context.Context, center geo.Coordinate, radiusMeters float64, limit int) ([]NearbyRoute, error) {
	candidates, err := s.repo.ListPublicIn(ctx, geo.BoundsAround(center, radiusMeters), publicScanLimit)
	if err != nil {
		return nil, err
	}
	var out []NearbyRoute
	for _, r := range candidates {
		if len(r.Path) == 0 || !geo.WithinRadius(center, r.Start, radiusMeters) {
			continue
		}
		out = append(out, NearbyRoute{Route: r, DistanceMeters: geo.DistanceMeters(center, r.Start)})
	}
	geo.SortByDistance(out, func(n NearbyRoute) float64 { return n.DistanceMeters })
	if limit = clampLimit(limit); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}
