package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NotSpecified is the placeholder for landing page text a tenant has not filled in.
const NotSpecified = "Not specified"

// University is a tenant document of the "university" collection.
type University struct {
	ID primitive.ObjectID `bson:"_id,omitempty" json:"id"`

	Login        string `bson:"login" json:"login"` // unique, used as URL slug
	Email        string `bson:"email" json:"email"`
	PasswordHash string `bson:"passwordHash" json:"-"`

	UniversityName string `bson:"universityName" json:"universityName"`
	ShortName      string `bson:"shortName" json:"shortName"`

	SiteContent `bson:",inline"`

	Departments []Department `bson:"departments" json:"departments"`
}

// SiteContent holds the public landing page fields.
type SiteContent struct {
	HeroImg          string `bson:"heroImg" json:"heroImg"`
	HeroTitle        string `bson:"heroTitle" json:"heroTitle"`
	HeroDescription  string `bson:"heroDescription" json:"heroDescription"`
	AboutImg         string `bson:"aboutImg" json:"aboutImg"`
	AboutTitle       string `bson:"aboutTitle" json:"aboutTitle"`
	AboutDescription string `bson:"aboutDescription" json:"aboutDescription"`
	CtaTitle         string `bson:"ctaTitle" json:"ctaTitle"`
	CtaDescription   string `bson:"ctaDescription" json:"ctaDescription"`
}

func DefaultSiteContent() SiteContent {
	return SiteContent{
		HeroTitle:        NotSpecified,
		HeroDescription:  NotSpecified,
		AboutTitle:       NotSpecified,
		AboutDescription: NotSpecified,
		CtaTitle:         NotSpecified,
		CtaDescription:   NotSpecified,
	}
}

type Department struct {
	ID          DepartmentID `bson:"id" json:"id"`
	Name        string       `bson:"name" json:"name"`
	Description string       `bson:"description" json:"description"`
}

// DepartmentID is always handled as a string; older documents store numbers.
type DepartmentID string

func (d *DepartmentID) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	rv := bson.RawValue{Type: t, Value: data}
	switch t {
	case bson.TypeString:
		*d = DepartmentID(rv.StringValue())
	case bson.TypeInt32:
		*d = DepartmentID(strconv.FormatInt(int64(rv.Int32()), 10))
	case bson.TypeInt64:
		*d = DepartmentID(strconv.FormatInt(rv.Int64(), 10))
	case bson.TypeDouble:
		*d = DepartmentID(strconv.FormatFloat(rv.Double(), 'f', -1, 64))
	case bson.TypeNull, bson.TypeUndefined:
		*d = ""
	default:
		return fmt.Errorf("department id: unsupported bson type %s", t)
	}
	return nil
}

func (d *DepartmentID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*d = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*d = DepartmentID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("department id: %w", err)
	}
	*d = DepartmentID(n.String())
	return nil
}

// HasDepartment reports whether id names one of the departments.
func HasDepartment(depts []Department, id string) bool {
	if id == "" {
		return false
	}
	for _, d := range depts {
		if string(d.ID) == id {
			return true
		}
	}
	return false
}
