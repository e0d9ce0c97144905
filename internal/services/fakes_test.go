package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/yoockh/unistep/internal/models"
	"github.com/yoockh/unistep/internal/session"
	"github.com/yoockh/unistep/internal/utils"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeUniversities struct {
	mu      sync.Mutex
	docs    []*models.University
	findErr error
}

func (f *fakeUniversities) add(u models.University) *models.University {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	f.docs = append(f.docs, &u)
	return &u
}

func (f *fakeUniversities) find(id string) *models.University {
	for _, u := range f.docs {
		if u.ID.Hex() == id {
			return u
		}
	}
	return nil
}

func (f *fakeUniversities) GetByID(_ context.Context, id string) (*models.University, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.find(id)
	if u == nil {
		return nil, utils.ErrNotFound
	}
	cp := *u
	cp.Departments = append([]models.Department(nil), u.Departments...)
	return &cp, nil
}

func (f *fakeUniversities) FindByLogin(_ context.Context, login string) ([]models.University, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	var out []models.University
	for _, u := range f.docs {
		if u.Login == login {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (f *fakeUniversities) FindByEmail(_ context.Context, email string) (*models.University, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.docs {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, utils.ErrNotFound
}

func (f *fakeUniversities) Insert(_ context.Context, u *models.University) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u.ID = primitive.NewObjectID()
	cp := *u
	f.docs = append(f.docs, &cp)
	return nil
}

// Update applies $set through a bson round trip, like the driver would.
func (f *fakeUniversities) Update(_ context.Context, id string, set bson.M) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.find(id)
	if u == nil {
		return utils.ErrNotFound
	}
	raw, err := bson.Marshal(u)
	if err != nil {
		return err
	}
	var doc bson.M
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return err
	}
	for k, v := range set {
		doc[k] = v
	}
	raw, err = bson.Marshal(doc)
	if err != nil {
		return err
	}
	var next models.University
	if err := bson.Unmarshal(raw, &next); err != nil {
		return err
	}
	*u = next
	return nil
}

func (f *fakeUniversities) PushDepartment(_ context.Context, id string, d models.Department) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.find(id)
	if u == nil {
		return utils.ErrNotFound
	}
	u.Departments = append(u.Departments, d)
	return nil
}

func (f *fakeUniversities) PullDepartment(_ context.Context, id string, deptID models.DepartmentID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.find(id)
	if u == nil {
		return utils.ErrNotFound
	}
	kept := u.Departments[:0]
	for _, d := range u.Departments {
		if d.ID != deptID {
			kept = append(kept, d)
		}
	}
	u.Departments = kept
	return nil
}

type fakeApplicationRepo struct {
	mu   sync.Mutex
	apps []models.Application
	err  error
}

func (f *fakeApplicationRepo) Insert(_ context.Context, app *models.Application) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	app.ID = primitive.NewObjectID()
	f.apps = append(f.apps, *app)
	return nil
}

func (f *fakeApplicationRepo) GetByID(_ context.Context, id string) (*models.Application, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.apps {
		if a.ID.Hex() == id {
			cp := a
			return &cp, nil
		}
	}
	return nil, utils.ErrNotFound
}

func (f *fakeApplicationRepo) ListByUniversity(_ context.Context, login string) ([]models.Application, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Application{}
	for _, a := range f.apps {
		if a.University == login {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	return out, nil
}

type fakeSessions struct {
	mu      sync.Mutex
	records map[string]session.Record
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{records: map[string]session.Record{}}
}

func (f *fakeSessions) Load(_ context.Context, sid string) (*session.Context, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[sid]
	if !ok {
		return nil, utils.ErrNotFound
	}
	return session.NewContext(sid, rec), nil
}

func (f *fakeSessions) Save(_ context.Context, userID string) (*session.Context, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sid := uuid.NewString()
	rec := session.Record{UserID: userID, LoginDate: time.Now().UTC().Format(time.RFC3339Nano)}
	f.records[sid] = rec
	return session.NewContext(sid, rec), nil
}

func (f *fakeSessions) Clear(_ context.Context, sid string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.records, sid)
	return nil
}

type fakeTokens struct{}

func (fakeTokens) Issue(c *session.Context) (string, error) {
	return "token-" + c.SessionID(), nil
}

type memCache struct {
	mu   sync.Mutex
	vals map[string][]byte
	sets int
}

func newMemCache() *memCache { return &memCache{vals: map[string][]byte{}} }

func (c *memCache) GetJSON(_ context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.vals[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (c *memCache) SetJSON(_ context.Context, key string, val any, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, err := json.Marshal(val)
	if err != nil {
		return err
	}
	c.vals[key] = b
	c.sets++
	return nil
}

func (c *memCache) Del(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.vals, k)
	}
	return nil
}

func (c *memCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.vals[key]
	return ok
}

type fakeObjects struct {
	mu   sync.Mutex
	fail bool
	gate chan struct{}
	puts []string
}

func (f *fakeObjects) Upload(_ context.Context, name, _ string, _ int64, r io.Reader) (string, error) {
	if f.gate != nil {
		<-f.gate
	}
	_, _ = io.ReadAll(r)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return "", errors.New("bucket unavailable")
	}
	f.puts = append(f.puts, name)
	return name, nil
}

func (f *fakeObjects) DownloadURL(_ context.Context, handle string) (string, error) {
	return "https://files.test/" + handle, nil
}

type fakeLedger struct {
	mu   sync.Mutex
	rows []models.UploadRecord
}

func (f *fakeLedger) Insert(_ context.Context, rec *models.UploadRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = append(f.rows, *rec)
	return nil
}

func (f *fakeLedger) AttachToApplication(context.Context, string, string, time.Time) (int64, error) {
	return 0, nil
}

func (f *fakeLedger) ListOrphans(context.Context, time.Time, int) ([]models.UploadRecord, error) {
	return nil, nil
}

func (f *fakeLedger) ListByApplication(context.Context, string) ([]models.UploadRecord, error) {
	return nil, nil
}

func (f *fakeLedger) all() []models.UploadRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.UploadRecord(nil), f.rows...)
}

type fakePublisher struct {
	mu     sync.Mutex
	events []models.SubmissionEvent
}

func (f *fakePublisher) PublishSubmitted(_ context.Context, ev models.SubmissionEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return nil
}

func ptr[T any](v T) *T { return &v }
