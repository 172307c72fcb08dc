package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/flowsync/pkg/domain/model"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type userRepository struct {
	client *firestore.Client
	names  *collections
}

func (r *userRepository) Put(ctx context.Context, user *model.User) error {
	ref := r.client.Collection(r.names.users()).Doc(userDocID(user.ID))

	return r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		stored := user.Copy()
		now := time.Now().UTC()
		existing, err := tx.Get(ref)
		switch {
		case err == nil:
			var doc userDoc
			if err := existing.DataTo(&doc); err != nil {
				return goerr.Wrap(err, "failed to decode user", goerr.V(model.UserIDKey, user.ID))
			}
			stored.CreatedAt = doc.CreatedAt
		case status.Code(err) == codes.NotFound:
			if stored.CreatedAt.IsZero() {
				stored.CreatedAt = now
			}
		default:
			return goerr.Wrap(err, "failed to get user", goerr.V(model.UserIDKey, user.ID))
		}
		stored.UpdatedAt = now

		if err := tx.Set(ref, newUserDoc(stored)); err != nil {
			return goerr.Wrap(err, "failed to put user", goerr.V(model.UserIDKey, user.ID))
		}
		return nil
	})
}

func (r *userRepository) Get(ctx context.Context, id string) (*model.User, error) {
	docSnap, err := r.client.Collection(r.names.users()).Doc(userDocID(id)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(model.ErrUserNotFound, "user not found", goerr.V(model.UserIDKey, id))
		}
		return nil, goerr.Wrap(err, "failed to get user", goerr.V(model.UserIDKey, id))
	}
	return decodeUser(docSnap)
}

func (r *userRepository) List(ctx context.Context) ([]*model.User, error) {
	iter := r.client.Collection(r.names.users()).OrderBy("id", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	users := make([]*model.User, 0)
	for {
		docSnap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate users")
		}

		u, err := decodeUser(docSnap)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}

	return users, nil
}

func decodeUser(docSnap *firestore.DocumentSnapshot) (*model.User, error) {
	var doc userDoc
	if err := docSnap.DataTo(&doc); err != nil {
		return nil, goerr.Wrap(err, "failed to decode user", goerr.V("doc_id", docSnap.Ref.ID))
	}
	return doc.toModel(), nil
}
