package models

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CreatedAtLayout is the layout of Application.CreatedAt (YYYY-MM-DD HH:mm:ss).
const CreatedAtLayout = "2006-01-02 15:04:05"

// Application is one document of the "apply" collection.
type Application struct {
	ID primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`

	LastName    string      `bson:"lastName" json:"lastName"`
	FirstName   string      `bson:"firstName" json:"firstName"`
	MiddleName  string      `bson:"middleName" json:"middleName"`
	Sex         Sex         `bson:"sex" json:"sex"`
	Citizenship Citizenship `bson:"citizenship" json:"citizenship"`
	Phone       string      `bson:"phone" json:"phone"`
	Email       string      `bson:"email" json:"email"`
	Address     string      `bson:"address" json:"address"`

	DepartmentID string `bson:"departmentId" json:"departmentId"`
	University   string `bson:"university" json:"university"` // tenant login, set on submit

	ApplicationType ApplicationType `bson:"applicationType" json:"applicationType"`

	EducationType        EducationType `bson:"educationType" json:"educationType"`
	EducationInstitution string        `bson:"educationInstitution" json:"educationInstitution"`
	GraduationYear       string        `bson:"graduationYear" json:"graduationYear"`

	ExamType  ExamType `bson:"examType" json:"examType"`
	ExamScore *float64 `bson:"examScore,omitempty" json:"examScore,omitempty"`

	PassportFile             string `bson:"passportFile" json:"passportFile"`
	MedicalCertificateFile   string `bson:"medicalCertificateFile" json:"medicalCertificateFile"`
	PhotoFile                string `bson:"photoFile" json:"photoFile"`
	VaccinationFile          string `bson:"vaccinationFile" json:"vaccinationFile"`
	EntCertificateFile       string `bson:"entCertificateFile,omitempty" json:"entCertificateFile,omitempty"`
	TranscriptFile           string `bson:"transcriptFile,omitempty" json:"transcriptFile,omitempty"`
	RecommendationLetterFile string `bson:"recommendationLetterFile,omitempty" json:"recommendationLetterFile,omitempty"`
	PortfolioFile            string `bson:"portfolioFile,omitempty" json:"portfolioFile,omitempty"`
	EnglishCertificateFile   string `bson:"englishCertificateFile,omitempty" json:"englishCertificateFile,omitempty"`
	DiplomaAwardsFile        string `bson:"diplomaAwardsFile,omitempty" json:"diplomaAwardsFile,omitempty"`

	MotivationLetter  string `bson:"motivationLetter" json:"motivationLetter"` // text or file URL
	AgreementAccepted bool   `bson:"agreementAccepted" json:"agreementAccepted"`

	// CreatedAt is stamped when the wizard is mounted, not at submission.
	CreatedAt   string     `bson:"createdAt" json:"createdAt"`
	SubmittedAt *time.Time `bson:"submittedAt,omitempty" json:"submittedAt,omitempty"`
	WizardID    string     `bson:"wizardId,omitempty" json:"wizardId,omitempty"`
}

// FileField names an Application field whose value is an object store URL.
type FileField string

const (
	FilePassport             FileField = "passportFile"
	FileMedicalCertificate   FileField = "medicalCertificateFile"
	FilePhoto                FileField = "photoFile"
	FileVaccination          FileField = "vaccinationFile"
	FileEntCertificate       FileField = "entCertificateFile"
	FileTranscript           FileField = "transcriptFile"
	FileRecommendationLetter FileField = "recommendationLetterFile"
	FilePortfolio            FileField = "portfolioFile"
	FileEnglishCertificate   FileField = "englishCertificateFile"
	FileDiplomaAwards        FileField = "diplomaAwardsFile"
	FileMotivationLetter     FileField = "motivationLetter"
)

var fileFields = []FileField{
	FilePassport, FileMedicalCertificate, FilePhoto, FileVaccination,
	FileEntCertificate, FileTranscript, FileRecommendationLetter,
	FilePortfolio, FileEnglishCertificate, FileDiplomaAwards,
	FileMotivationLetter,
}

func ParseFileField(s string) (FileField, error) {
	for _, f := range fileFields {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: file field %q", ErrUnknownValue, s)
}

func (a *Application) File(f FileField) string {
	if p := a.filePtr(f); p != nil {
		return *p
	}
	return ""
}

func (a *Application) SetFile(f FileField, url string) {
	if p := a.filePtr(f); p != nil {
		*p = url
	}
}

func (a *Application) filePtr(f FileField) *string {
	switch f {
	case FilePassport:
		return &a.PassportFile
	case FileMedicalCertificate:
		return &a.MedicalCertificateFile
	case FilePhoto:
		return &a.PhotoFile
	case FileVaccination:
		return &a.VaccinationFile
	case FileEntCertificate:
		return &a.EntCertificateFile
	case FileTranscript:
		return &a.TranscriptFile
	case FileRecommendationLetter:
		return &a.RecommendationLetterFile
	case FilePortfolio:
		return &a.PortfolioFile
	case FileEnglishCertificate:
		return &a.EnglishCertificateFile
	case FileDiplomaAwards:
		return &a.DiplomaAwardsFile
	case FileMotivationLetter:
		return &a.MotivationLetter
	}
	return nil
}
