// README: Route store backed by Cloud Firestore (users/{uid}/routes/{id}, public copies in routes/{id}).
package routes

import (
	"context"
	"errors"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"trailtrack/internal/geo"
	"trailtrack/internal/types"
)

const (
	usersCollection  = "users"
	routesCollection = "routes"
)

type FirestoreStore struct {
	client *firestore.Client
}

func NewFirestoreStore(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{client: client}
}

func (s *FirestoreStore) ownerRoute(owner, id types.ID) *firestore.DocumentRef {
	return s.client.Collection(usersCollection).Doc(string(owner)).Collection(routesCollection).Doc(string(id))
}

func (s *FirestoreStore) publicRoute(id types.ID) *firestore.DocumentRef {
	return s.client.Collection(routesCollection).Doc(string(id))
}

func (s *FirestoreStore) Create(ctx context.Context, r Route) error {
	return s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if err := tx.Set(s.ownerRoute(r.OwnerID, r.ID), r); err != nil {
			return err
		}
		if r.Public {
			return tx.Set(s.publicRoute(r.ID), r)
		}
		return nil
	})
}

// Get finds a route by ID across every owner.
func (s *FirestoreStore) Get(ctx context.Context, id types.ID) (Route, error) {
	docs, err := s.client.CollectionGroup(routesCollection).
		Where("id", "==", string(id)).
		Limit(1).
		Documents(ctx).GetAll()
	if err != nil {
		return Route{}, err
	}
	if len(docs) == 0 {
		return Route{}, ErrNotFound
	}
	return decodeRoute(docs[0])
}

func (s *FirestoreStore) ListByOwner(ctx context.Context, owner types.ID, limit int) ([]Route, error) {
	docs, err := s.client.Collection(usersCollection).Doc(string(owner)).Collection(routesCollection).
		OrderBy("created_at", firestore.Desc).
		Limit(limit).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	return decodeRoutes(docs)
}

func (s *FirestoreStore) Delete(ctx context.Context, owner, id types.ID) error {
	return s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(s.ownerRoute(owner, id))
		if status.Code(err) == codes.NotFound {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		r, err := decodeRoute(snap)
		if err != nil {
			return err
		}
		if err := tx.Delete(snap.Ref); err != nil {
			return err
		}
		if r.Public {
			return tx.Delete(s.publicRoute(id))
		}
		return nil
	})
}

// SetPublic flips visibility on the owner's copy and adds or removes the
// public copy to match.
func (s *FirestoreStore) SetPublic(ctx context.Context, owner, id types.ID, public bool) error {
	return s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(s.ownerRoute(owner, id))
		if status.Code(err) == codes.NotFound {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		r, err := decodeRoute(snap)
		if err != nil {
			return err
		}
		r.Public = public
		if err := tx.Set(snap.Ref, r); err != nil {
			return err
		}
		if public {
			return tx.Set(s.publicRoute(id), r)
		}
		return tx.Delete(s.publicRoute(id))
	})
}

// ListPublicIn narrows by latitude in the query and by longitude in memory,
// since Firestore allows range filters on a single field only.
func (s *FirestoreStore) ListPublicIn(ctx context.Context, b geo.Bounds, limit int) ([]Route, error) {
	docs, err := s.client.Collection(routesCollection).
		Where("start.latitude", ">=", b.South).
		Where("start.latitude", "<=", b.North).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	all, err := decodeRoutes(docs)
	if err != nil {
		return nil, err
	}
	var out []Route
	for _, r := range all {
		if !b.Contains(r.Start) {
			continue
		}
		out = append(out, r)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func decodeRoute(doc *firestore.DocumentSnapshot) (Route, error) {
	var r Route
	if err := doc.DataTo(&r); err != nil {
		return Route{}, err
	}
	if r.ID == "" {
		return Route{}, errors.New("route document " + doc.Ref.ID + " has no id")
	}
	if r.Path == nil {
		r.Path = geo.Track{}
	}
	return r, nil
}

func decodeRoutes(docs []*firestore.DocumentSnapshot) ([]Route, error) {
	out := make([]Route, 0, len(docs))
	for _, d := range docs {
		r, err := decodeRoute(d)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}
