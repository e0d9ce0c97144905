package mongo

import (
	"context"
	"errors"

	"github.com/yoockh/unistep/internal/models"
	"github.com/yoockh/unistep/internal/utils"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const ApplicationCollection = "apply"

type ApplicationRepository interface {
	// Insert stores app and sets app.ID.
	Insert(ctx context.Context, app *models.Application) error
	GetByID(ctx context.Context, id string) (*models.Application, error)
	// ListByUniversity returns the tenant's applications, newest createdAt first.
	ListByUniversity(ctx context.Context, login string) ([]models.Application, error)
}

type applicationRepo struct {
	col *mongo.Collection
}

func NewApplicationRepo(db *mongo.Database) ApplicationRepository {
	return &applicationRepo{col: db.Collection(ApplicationCollection)}
}

func (r *applicationRepo) Insert(ctx context.Context, app *models.Application) error {
	app.ID = primitive.NilObjectID
	res, err := r.col.InsertOne(ctx, app)
	if err != nil {
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		app.ID = oid
	}
	return nil
}

func (r *applicationRepo) GetByID(ctx context.Context, id string) (*models.Application, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, utils.ErrNotFound
	}
	var app models.Application
	err = r.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&app)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &app, nil
}

func (r *applicationRepo) ListByUniversity(ctx context.Context, login string) ([]models.Application, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cur, err := r.col.Find(ctx, bson.M{"university": login}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Application{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
