package mongo

import (
	"context"
	"errors"
	"strconv"

	"github.com/yoockh/unistep/internal/models"
	"github.com/yoockh/unistep/internal/utils"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const UniversityCollection = "university"

type UniversityRepository interface {
	GetByID(ctx context.Context, id string) (*models.University, error)
	// FindByLogin returns every document whose login equals login. Login is
	// unique by index, but lookups do not rely on it.
	FindByLogin(ctx context.Context, login string) ([]models.University, error)
	FindByEmail(ctx context.Context, email string) (*models.University, error)
	Insert(ctx context.Context, u *models.University) error
	Update(ctx context.Context, id string, set bson.M) error
	PushDepartment(ctx context.Context, id string, d models.Department) error
	PullDepartment(ctx context.Context, id string, deptID models.DepartmentID) error
}

type universityRepo struct {
	col *mongo.Collection
}

func NewUniversityRepo(db *mongo.Database) UniversityRepository {
	return &universityRepo{col: db.Collection(UniversityCollection)}
}

func (r *universityRepo) GetByID(ctx context.Context, id string) (*models.University, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, utils.ErrNotFound
	}
	var u models.University
	err = r.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *universityRepo) FindByLogin(ctx context.Context, login string) ([]models.University, error) {
	cur, err := r.col.Find(ctx, bson.M{"login": login})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.University
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *universityRepo) FindByEmail(ctx context.Context, email string) (*models.University, error) {
	var u models.University
	err := r.col.FindOne(ctx, bson.M{"email": email}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *universityRepo) Insert(ctx context.Context, u *models.University) error {
	if u.Departments == nil {
		u.Departments = []models.Department{}
	}
	res, err := r.col.InsertOne(ctx, u)
	if mongo.IsDuplicateKeyError(err) {
		return utils.ErrDuplicate
	}
	if err != nil {
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		u.ID = oid
	}
	return nil
}

func (r *universityRepo) Update(ctx context.Context, id string, set bson.M) error {
	return r.updateOne(ctx, id, bson.M{"$set": set})
}

func (r *universityRepo) PushDepartment(ctx context.Context, id string, d models.Department) error {
	return r.updateOne(ctx, id, bson.M{"$push": bson.M{"departments": d}})
}

func (r *universityRepo) PullDepartment(ctx context.Context, id string, deptID models.DepartmentID) error {
	return r.updateOne(ctx, id, bson.M{"$pull": bson.M{"departments": bson.M{"id": bson.M{"$in": storedIDs(deptID)}}}})
}

// storedIDs lists the forms a department id may be stored in. Older documents
// keep numeric ids.
func storedIDs(id models.DepartmentID) bson.A {
	out := bson.A{string(id)}
	if n, err := strconv.ParseInt(string(id), 10, 64); err == nil {
		out = append(out, n, float64(n))
	}
	return out
}

func (r *universityRepo) updateOne(ctx context.Context, id string, update bson.M) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return utils.ErrNotFound
	}
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if mongo.IsDuplicateKeyError(err) {
		return utils.ErrDuplicate
	}
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return utils.ErrNotFound
	}
	return nil
}
