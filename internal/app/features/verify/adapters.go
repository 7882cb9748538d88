package verify

import (
	"context"
	"errors"
	"fmt"

	"github.com/iliyababin/youthscc/internal/app/store/publicprofiles"
	userstore "github.com/iliyababin/youthscc/internal/app/store/users"
	"github.com/iliyababin/youthscc/internal/app/system/verifyflow"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// usersAdapter binds the user and profile stores to the narrow interface the
// verification flow needs.
type usersAdapter struct {
	users    *userstore.Store
	profiles *publicprofiles.Store
}

func (a *usersAdapter) GetOrCreateByPhone(ctx context.Context, phone string) (*verifyflow.Account, error) {
	u, err := a.users.GetByPhone(ctx, phone)
	if errors.Is(err, userstore.ErrNotFound) {
		created, err := a.users.CreatePhoneAccount(ctx, phone)
		if err != nil {
			return nil, err
		}
		u = &created
	} else if err != nil {
		return nil, err
	} else if !u.PhoneVerified {
		if err := a.users.MarkPhoneVerified(ctx, u.ID); err != nil {
			return nil, err
		}
	}

	return &verifyflow.Account{
		ID:          u.ID.Hex(),
		PhoneNumber: u.PhoneNumber,
		DisplayName: u.DisplayName,
		Role:        u.Role,
	}, nil
}

func (a *usersAdapter) SetDisplayName(ctx context.Context, userID, name string) error {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return fmt.Errorf("malformed user id %q: %w", userID, err)
	}
	if err := a.users.SetDisplayName(ctx, oid, name); err != nil {
		return err
	}
	return a.profiles.Upsert(ctx, userID, name)
}
