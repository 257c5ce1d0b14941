// Package users is a read-only view of the CMS user directory. The media
// service resolves uploader identities here but never creates or mutates
// user documents.
package users

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

var ErrNotFound = errors.New("user not found")

type User struct {
	ID       primitive.ObjectID `bson:"_id" json:"id"`
	Username string             `bson:"username" json:"username"`
	Email    string             `bson:"email" json:"email"`
	Role     string             `bson:"role" json:"role"`
	Active   bool               `bson:"active" json:"active"`
	Profile  Profile            `bson:"profile" json:"-"`
}

type Profile struct {
	FirstName string `bson:"firstName"`
	LastName  string `bson:"lastName"`
}

// DisplayName joins the profile names, falling back to the username.
func DisplayName(u User) string {
	full := strings.TrimSpace(u.Profile.FirstName + " " + u.Profile.LastName)
	if full == "" {
		return u.Username
	}
	return full
}

type Directory interface {
	FindByID(ctx context.Context, id string) (User, error)
}

type mongoDirectory struct {
	collection *mongo.Collection
}

func NewDirectory(collection *mongo.Collection) Directory {
	return &mongoDirectory{collection: collection}
}

func (d *mongoDirectory) FindByID(ctx context.Context, id string) (User, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return User{}, ErrNotFound
	}

	var user User
	err = d.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return user, nil
}
