package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/NordCoder/studybuddy/internal/domain/user"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

var _ user.Repo = (*UserRepo)(nil)

const usersCollection = "users"

// userDoc keeps the field names of the existing users collection; the bcrypt hash lives under "password".
type userDoc struct {
	ID        bson.ObjectID `bson:"_id,omitempty"`
	FirstName string        `bson:"firstName"`
	LastName  string        `bson:"lastName"`
	Email     string        `bson:"email"`
	Password  string        `bson:"password"`
	CreatedAt time.Time     `bson:"createdAt"`
}

func (d *userDoc) toDomain() *user.User {
	return &user.User{
		ID:           d.ID.Hex(),
		FirstName:    d.FirstName,
		LastName:     d.LastName,
		Email:        d.Email,
		PasswordHash: d.Password,
		CreatedAt:    d.CreatedAt,
	}
}

type UserRepo struct {
	db   *DB
	coll *mongo.Collection
}

func NewUserRepo(db *DB) *UserRepo {
	return &UserRepo{db: db, coll: db.Database.Collection(usersCollection)}
}

// EnsureIndexes creates the unique email index. It is idempotent.
func (r *UserRepo) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("email_unique"),
	})
	if err != nil {
		return fmt.Errorf("create email index: %w", err)
	}
	return nil
}

func (r *UserRepo) Create(ctx context.Context, u *user.User) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	doc := userDoc{
		ID:        bson.NewObjectID(),
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Password:  u.PasswordHash,
		CreatedAt: time.Now().UTC(),
	}
	if !u.CreatedAt.IsZero() {
		doc.CreatedAt = u.CreatedAt
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return user.ErrEmailTaken
		}
		return fmt.Errorf("user insert: %w", err)
	}
	u.ID = doc.ID.Hex()
	u.CreatedAt = doc.CreatedAt
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*user.User, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, user.ErrNotFound
	}
	return r.findOne(ctx, bson.D{{Key: "_id", Value: oid}})
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return r.findOne(ctx, bson.D{{Key: "email", Value: email}})
}

func (r *UserRepo) findOne(ctx context.Context, filter bson.D) (*user.User, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var doc userDoc
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return doc.toDomain(), nil
}
