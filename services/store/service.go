package store

import (
	"context"
	"fmt"
	"strings"

	"bakimla-reward/pkg/db/option"
	"bakimla-reward/pkg/errutil"
	"bakimla-reward/pkg/middleware"
	"bakimla-reward/pkg/repository"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	node *snowflake.Node

	stores  repository.Repository[Store]
	members repository.Repository[StoreMember]
}

type ServiceParams struct {
	fx.In
	DB   *gorm.DB
	Node *snowflake.Node
}

func NewService(p ServiceParams) *Service {
	return &Service{
		node:    p.Node,
		stores:  repository.ProvideStore[Store](p.DB),
		members: repository.ProvideStore[StoreMember](p.DB),
	}
}

// Create registers a store for ownerID with a unique slug derived from name.
func (s *Service) Create(ctx context.Context, ownerID, name string) (*Store, error) {
	ownerID = strings.TrimSpace(ownerID)
	name = strings.TrimSpace(name)
	if ownerID == "" || name == "" {
		return nil, errutil.ValidationFailed("owner and name are required", nil)
	}

	base := slug.Make(name)
	candidate := base
	for i := 2; ; i++ {
		count, err := s.stores.Count(ctx, &Store{Slug: candidate})
		if err != nil {
			return nil, fmt.Errorf("check slug: %w", err)
		}
		if count == 0 {
			break
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}

	st := &Store{
		ID:      s.node.Generate().String(),
		OwnerID: ownerID,
		Name:    name,
		Slug:    candidate,
	}
	if err := s.stores.Create(ctx, st); err != nil {
		return nil, fmt.Errorf("create store: %w", err)
	}

	return st, nil
}

func (s *Service) AddMember(ctx context.Context, storeID, userID string, role Role) (*StoreMember, error) {
	st, err := s.stores.FindOne(ctx, &Store{ID: storeID})
	if err != nil {
		return nil, fmt.Errorf("find store: %w", err)
	}
	if st == nil {
		return nil, errutil.NotFound("store not found", nil)
	}

	exist, err := s.members.FindOne(ctx, &StoreMember{StoreID: storeID, UserID: userID})
	if err != nil {
		return nil, fmt.Errorf("find member: %w", err)
	}
	if exist != nil {
		return nil, errutil.Conflict("user is already a member of this store", nil)
	}

	m := &StoreMember{
		ID:      s.node.Generate().String(),
		StoreID: storeID,
		UserID:  userID,
		Role:    role,
	}
	if err := s.members.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("create member: %w", err)
	}
	return m, nil
}

// ResolveTenant maps the caller and the selected store to the company that owns it.
// Without a selected store the caller's oldest owned store is used.
func (s *Service) ResolveTenant(ctx context.Context, userID, activeStoreID string) (middleware.Tenant, error) {
	if userID == "" {
		return middleware.Tenant{}, errutil.BadRequest("missing company context", nil)
	}

	var (
		st  *Store
		err error
	)
	if activeStoreID != "" {
		st, err = s.stores.FindOne(ctx, &Store{ID: activeStoreID})
		if err != nil {
			zap.L().Error("failed to query store", zap.String("store_id", activeStoreID), zap.Error(err))
			return middleware.Tenant{}, fmt.Errorf("find store: %w", err)
		}
		if st == nil {
			return middleware.Tenant{}, errutil.NotFound("store not found", nil)
		}

		if st.OwnerID != userID {
			member, err := s.members.FindOne(ctx, &StoreMember{StoreID: st.ID, UserID: userID})
			if err != nil {
				return middleware.Tenant{}, fmt.Errorf("find member: %w", err)
			}
			if member == nil {
				return middleware.Tenant{}, errutil.Forbidden("store access denied", nil)
			}
		}
	} else {
		st, err = s.stores.FindOne(ctx, &Store{OwnerID: userID}, option.WithSortBy(option.QuerySortBy{
			SortBy:  "created_at",
			OrderBy: "asc",
			Allow:   map[string]bool{"created_at": true},
		}))
		if err != nil {
			return middleware.Tenant{}, fmt.Errorf("find owned store: %w", err)
		}
		if st == nil {
			return middleware.Tenant{}, errutil.BadRequest("missing company context", nil)
		}
	}

	return middleware.Tenant{
		CompanyID: st.OwnerID,
		StoreID:   st.ID,
		UserID:    userID,
	}, nil
}
