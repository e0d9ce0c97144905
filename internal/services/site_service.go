package services

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/yoockh/unistep/internal/cache"
	"github.com/yoockh/unistep/internal/models"
	mongorepo "github.com/yoockh/unistep/internal/repositories/mongo"
	"github.com/yoockh/unistep/internal/session"
	"github.com/yoockh/unistep/internal/storage"
	"github.com/yoockh/unistep/internal/utils"
	"go.mongodb.org/mongo-driver/bson"
)

const (
	DefaultSiteCacheTTL = 5 * time.Minute
	SiteObjectPrefix    = "sites"
)

// PublicSite is what the landing page of a tenant shows.
type PublicSite struct {
	Login          string `json:"login"`
	UniversityName string `json:"universityName"`
	ShortName      string `json:"shortName"`
	models.SiteContent
	Departments []models.Department `json:"departments"`
}

// SitePatch is a partial update of the landing page. Departments, when set,
// replace the whole list.
type SitePatch struct {
	UniversityName   *string              `json:"universityName"`
	ShortName        *string              `json:"shortName"`
	HeroImg          *string              `json:"heroImg"`
	HeroTitle        *string              `json:"heroTitle"`
	HeroDescription  *string              `json:"heroDescription"`
	AboutImg         *string              `json:"aboutImg"`
	AboutTitle       *string              `json:"aboutTitle"`
	AboutDescription *string              `json:"aboutDescription"`
	CtaTitle         *string              `json:"ctaTitle"`
	CtaDescription   *string              `json:"ctaDescription"`
	Departments      *[]models.Department `json:"departments"`
}

type ImageInput struct {
	Name        string
	ContentType string
	Data        []byte
}

type SiteService interface {
	GetPublic(ctx context.Context, login string) (*PublicSite, error)
	GetOwn(ctx context.Context, sess *session.Context) (*models.University, error)
	Update(ctx context.Context, sess *session.Context, p SitePatch) (*models.University, error)
	UploadImage(ctx context.Context, sess *session.Context, field string, in ImageInput) (*models.University, error)
	AddDepartment(ctx context.Context, sess *session.Context, d models.Department) (*models.University, error)
	DeleteDepartment(ctx context.Context, sess *session.Context, id string) (*models.University, error)
}

type siteService struct {
	universities mongorepo.UniversityRepository
	objects      storage.ObjectStore
	cache        cache.Cache
	ttl          time.Duration
	log          *logrus.Logger
	now          func() time.Time
}

func NewSiteService(universities mongorepo.UniversityRepository, objects storage.ObjectStore, c cache.Cache, ttl time.Duration, log *logrus.Logger) SiteService {
	if ttl <= 0 {
		ttl = DefaultSiteCacheTTL
	}
	if log == nil {
		log = logrus.New()
	}
	return &siteService{universities: universities, objects: objects, cache: c, ttl: ttl, log: log, now: time.Now}
}

func (s *siteService) GetPublic(ctx context.Context, login string) (*PublicSite, error) {
	const op = "SiteService.GetPublic"

	if login == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "login is required", nil)
	}

	return cache.ReadThrough(ctx, s.cache, s.log, cache.SiteKey(login), s.ttl, func(ctx context.Context) (*PublicSite, error) {
		docs, err := s.universities.FindByLogin(ctx, login)
		if err != nil {
			return nil, utils.E(utils.CodeInternal, op, "failed to load site", err)
		}
		if len(docs) == 0 {
			return nil, utils.E(utils.CodeNotFound, op, "university not found", utils.ErrNotFound)
		}

		u := docs[0]
		out := &PublicSite{
			Login:          u.Login,
			UniversityName: u.UniversityName,
			ShortName:      u.ShortName,
			SiteContent:    u.SiteContent,
			Departments:    u.Departments,
		}
		if out.Departments == nil {
			out.Departments = []models.Department{}
		}
		return out, nil
	})
}

func (s *siteService) GetOwn(ctx context.Context, sess *session.Context) (*models.University, error) {
	return tenantOf(ctx, s.universities, sess, "SiteService.GetOwn")
}

func (s *siteService) Update(ctx context.Context, sess *session.Context, p SitePatch) (*models.University, error) {
	const op = "SiteService.Update"

	u, err := tenantOf(ctx, s.universities, sess, op)
	if err != nil {
		return nil, err
	}

	set := bson.M{}
	str := func(key string, v *string) {
		if v != nil {
			set[key] = strings.TrimSpace(*v)
		}
	}
	str("universityName", p.UniversityName)
	str("shortName", p.ShortName)
	str("heroImg", p.HeroImg)
	str("heroTitle", p.HeroTitle)
	str("heroDescription", p.HeroDescription)
	str("aboutImg", p.AboutImg)
	str("aboutTitle", p.AboutTitle)
	str("aboutDescription", p.AboutDescription)
	str("ctaTitle", p.CtaTitle)
	str("ctaDescription", p.CtaDescription)

	if p.Departments != nil {
		depts, err := normalizeDepartments(*p.Departments)
		if err != nil {
			return nil, utils.E(utils.CodeInvalidArgument, op, err.Error(), err)
		}
		set["departments"] = depts
	}
	if len(set) == 0 {
		return u, nil
	}

	if err := s.universities.Update(ctx, u.ID.Hex(), set); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to save site", err)
	}
	return s.reload(ctx, op, u)
}

func (s *siteService) UploadImage(ctx context.Context, sess *session.Context, field string, in ImageInput) (*models.University, error) {
	const op = "SiteService.UploadImage"

	if field != "heroImg" && field != "aboutImg" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "field must be heroImg or aboutImg", nil)
	}
	if len(in.Data) == 0 {
		return nil, utils.E(utils.CodeInvalidArgument, op, "file is empty", nil)
	}
	u, err := tenantOf(ctx, s.universities, sess, op)
	if err != nil {
		return nil, err
	}

	name := storage.ObjectName(SiteObjectPrefix+"/"+u.Login, field, in.Name, s.now())
	handle, err := s.objects.Upload(ctx, name, in.ContentType, int64(len(in.Data)), bytes.NewReader(in.Data))
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "failed to upload image", err)
	}
	url, err := s.objects.DownloadURL(ctx, handle)
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "failed to resolve image url", err)
	}

	if err := s.universities.Update(ctx, u.ID.Hex(), bson.M{field: url}); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to save image", err)
	}
	return s.reload(ctx, op, u)
}

func (s *siteService) AddDepartment(ctx context.Context, sess *session.Context, d models.Department) (*models.University, error) {
	const op = "SiteService.AddDepartment"

	u, err := tenantOf(ctx, s.universities, sess, op)
	if err != nil {
		return nil, err
	}

	d.ID = models.DepartmentID(strings.TrimSpace(string(d.ID)))
	d.Name = strings.TrimSpace(d.Name)
	d.Description = strings.TrimSpace(d.Description)
	if d.Name == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "department name is required", nil)
	}
	if d.ID == "" {
		d.ID = models.DepartmentID(uuid.NewString()[:8])
	}
	if models.HasDepartment(u.Departments, string(d.ID)) {
		return nil, utils.E(utils.CodeConflict, op, "department id already exists", utils.ErrDuplicate)
	}

	if err := s.universities.PushDepartment(ctx, u.ID.Hex(), d); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to save department", err)
	}
	return s.reload(ctx, op, u)
}

func (s *siteService) DeleteDepartment(ctx context.Context, sess *session.Context, id string) (*models.University, error) {
	const op = "SiteService.DeleteDepartment"

	u, err := tenantOf(ctx, s.universities, sess, op)
	if err != nil {
		return nil, err
	}
	if !models.HasDepartment(u.Departments, id) {
		return nil, utils.E(utils.CodeNotFound, op, "department not found", utils.ErrNotFound)
	}
	if err := s.universities.PullDepartment(ctx, u.ID.Hex(), models.DepartmentID(id)); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to delete department", err)
	}
	return s.reload(ctx, op, u)
}

// reload drops the cached landing page and returns the stored document.
func (s *siteService) reload(ctx context.Context, op string, u *models.University) (*models.University, error) {
	if s.cache != nil {
		// department changes also reshape the dashboard's per-department counts
		if err := s.cache.Del(ctx, cache.SiteKey(u.Login), cache.StatsKey(u.Login)); err != nil {
			s.log.WithError(err).WithField("login", u.Login).Warn("site cache invalidation failed")
		}
	}
	fresh, err := s.universities.GetByID(ctx, u.ID.Hex())
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to reload university", err)
	}
	return fresh, nil
}

var errDepartmentID = errors.New("every department needs a unique, non-empty id")

func normalizeDepartments(in []models.Department) ([]models.Department, error) {
	out := make([]models.Department, 0, len(in))
	seen := map[models.DepartmentID]bool{}
	for _, d := range in {
		d.ID = models.DepartmentID(strings.TrimSpace(string(d.ID)))
		d.Name = strings.TrimSpace(d.Name)
		d.Description = strings.TrimSpace(d.Description)
		if d.ID == "" || seen[d.ID] {
			return nil, errDepartmentID
		}
		seen[d.ID] = true
		out = append(out, d)
	}
	return out, nil
}
