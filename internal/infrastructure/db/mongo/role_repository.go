package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/wareable/user-service/internal/core/domain"
)

const rolesCollection = "roles"

// RoleRepository implements ports.RoleRepository on the roles collection.
type RoleRepository struct {
	coll *mongo.Collection
}

func NewRoleRepository(db *mongo.Database) *RoleRepository {
	return &RoleRepository{coll: db.Collection(rolesCollection)}
}

type mongoRole struct {
	ID   primitive.ObjectID `bson:"_id,omitempty"`
	Name string             `bson:"name"`
}

// EnsureIndexes creates a unique index on the role name.
func (r *RoleRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("name_1"),
	})
	return storeError("create role indexes", err)
}

// SeedRoles upserts every known role. Existing entries are left untouched.
func (r *RoleRepository) SeedRoles(ctx context.Context) error {
	for _, name := range domain.AllRoles() {
		_, err := r.coll.UpdateOne(ctx,
			bson.M{"name": string(name)},
			bson.M{"$setOnInsert": bson.M{"name": string(name)}},
			options.Update().SetUpsert(true),
		)
		if err != nil {
			return storeError("seed role "+string(name), err)
		}
	}
	return nil
}

// FindByName returns domain.ErrRoleCatalogNotSeeded when the role is absent.
func (r *RoleRepository) FindByName(ctx context.Context, name domain.RoleName) (*domain.Role, error) {
	var mr mongoRole
	if err := r.coll.FindOne(ctx, bson.M{"name": string(name)}).Decode(&mr); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrRoleCatalogNotSeeded
		}
		return nil, storeError("find role", err)
	}
	return &domain.Role{ID: mr.ID.Hex(), Name: domain.RoleName(mr.Name)}, nil
}
