package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/smallbiznis/fintrack-auth/internal/domain"
)

const usersCollection = "users"

var _ UserRepository = (*MongoUserRepo)(nil)

type userDocument struct {
	ID           int64     `bson:"_id"`
	Email        string    `bson:"email"`
	PasswordHash string    `bson:"password_hash"`
	Name         string    `bson:"name"`
	CreatedAt    time.Time `bson:"created_at"`
}

// MongoUserRepo implements UserRepository on a MongoDB collection.
type MongoUserRepo struct {
	coll *mongo.Collection
}

// NewMongoUserRepo binds the repository to db.users.
func NewMongoUserRepo(db *mongo.Database) *MongoUserRepo {
	return &MongoUserRepo{coll: db.Collection(usersCollection)}
}

// EnsureIndexes creates the unique email index that backs ErrDuplicateEmail.
func (r *MongoUserRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetName("email_unique").SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create email index: %w", err)
	}
	return nil
}

func (r *MongoUserRepo) Create(ctx context.Context, user domain.User) (domain.User, error) {
	user.Email = NormalizeEmail(user.Email)
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	// BSON dates carry millisecond precision.
	user.CreatedAt = user.CreatedAt.Truncate(time.Millisecond)

	doc := userDocument{
		ID:           user.ID,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		Name:         user.Name,
		CreatedAt:    user.CreatedAt,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.User{}, ErrDuplicateEmail
		}
		return domain.User{}, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

func (r *MongoUserRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	return r.findOne(ctx, bson.D{{Key: "email", Value: NormalizeEmail(email)}})
}

func (r *MongoUserRepo) GetByID(ctx context.Context, userID int64) (domain.User, error) {
	return r.findOne(ctx, bson.D{{Key: "_id", Value: userID}})
}

func (r *MongoUserRepo) findOne(ctx context.Context, filter bson.D) (domain.User, error) {
	var doc userDocument
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.User{}, ErrNotFound
		}
		return domain.User{}, fmt.Errorf("find user: %w", err)
	}
	return domain.User{
		ID:           doc.ID,
		Email:        doc.Email,
		PasswordHash: doc.PasswordHash,
		Name:         doc.Name,
		CreatedAt:    doc.CreatedAt.UTC(),
	}, nil
}
