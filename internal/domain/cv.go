package domain

import (
	"context"
	"strings"
)

type CVStatus string

const (
	CVStatusDraft     CVStatus = "DRAFT"
	CVStatusPublished CVStatus = "PUBLISHED"
	CVStatusPrivate   CVStatus = "PRIVATE"
)

// PersonalDetails only enforces what the builder form does: a name and a well-formed e-mail.
// Phone numbers, links and free text are stored as typed.
type PersonalDetails struct {
	FullName     string `json:"fullName" validate:"required"`
	Email        string `json:"email" validate:"required,email"`
	Phone        string `json:"phone,omitempty"`
	Address      string `json:"address,omitempty"`
	City         string `json:"city,omitempty"`
	State        string `json:"state,omitempty"`
	Country      string `json:"country,omitempty"`
	PostalCode   string `json:"postalCode,omitempty"`
	LinkedinURL  string `json:"linkedinUrl,omitempty"`
	GithubURL    string `json:"githubUrl,omitempty"`
	Website      string `json:"website,omitempty"`
	Availability string `json:"availability,omitempty"`
}

// Education dates are kept as the form submits them; ordering is not enforced.
type Education struct {
	ID          string   `json:"id"`
	Institution string   `json:"institution" validate:"required"`
	Degree      string   `json:"degree" validate:"required"`
	Field       string   `json:"field,omitempty"`
	StartDate   string   `json:"startDate" validate:"required"`
	EndDate     string   `json:"endDate,omitempty"`
	GPA         *float64 `json:"gpa,omitempty" validate:"omitempty,min=0,max=4"`
	Description string   `json:"description,omitempty"`
	IsCurrent   bool     `json:"isCurrent"`
}

type Experience struct {
	ID          string `json:"id"`
	Company     string `json:"company" validate:"required"`
	Position    string `json:"position" validate:"required"`
	StartDate   string `json:"startDate" validate:"required"`
	EndDate     string `json:"endDate,omitempty"`
	Description string `json:"description,omitempty"`
	IsCurrent   bool   `json:"isCurrent"`
	Location    string `json:"location,omitempty"`
}

type Skill struct {
	ID       string `json:"id"`
	Name     string `json:"name" validate:"required"`
	Level    string `json:"level,omitempty" validate:"omitempty,oneof=Beginner Intermediate Advanced Expert"`
	Category string `json:"category,omitempty" validate:"omitempty,oneof=Technical 'Soft Skills' Languages Tools Other"`
}

type Certification struct {
	ID            string `json:"id"`
	Name          string `json:"name" validate:"required"`
	Issuer        string `json:"issuer" validate:"required"`
	IssueDate     string `json:"issueDate" validate:"required"`
	ExpiryDate    string `json:"expiryDate,omitempty"`
	CredentialID  string `json:"credentialId,omitempty"`
	CredentialURL string `json:"credentialUrl,omitempty"`
}

type Language struct {
	ID          string `json:"id"`
	Name        string `json:"name" validate:"required"`
	Proficiency string `json:"proficiency" validate:"required,oneof=Native Fluent Intermediate Basic"`
}

// CV is the structured résumé document edited by the builder form.
type CV struct {
	ID              string           `json:"id,omitempty"`
	UserID          string           `json:"userId,omitempty"`
	Status          CVStatus         `json:"status" validate:"omitempty,oneof=DRAFT PUBLISHED PRIVATE"`
	Title           string           `json:"title,omitempty"`
	Summary         string           `json:"summary,omitempty"`
	PersonalDetails *PersonalDetails `json:"personalDetails" validate:"required"`
	Education       []Education      `json:"education" validate:"dive"`
	Experience      []Experience     `json:"experience" validate:"dive"`
	Skills          []Skill          `json:"skills" validate:"dive"`
	Certifications  []Certification  `json:"certifications" validate:"dive"`
	Languages       []Language       `json:"languages" validate:"dive"`
}

// Normalize trims every text field, defaults the status to DRAFT and replaces nil sections
// with empty ones so the document always serializes with arrays.
func (cv *CV) Normalize() {
	if cv.Status == "" {
		cv.Status = CVStatusDraft
	}
	cv.Title = strings.TrimSpace(cv.Title)
	cv.Summary = strings.TrimSpace(cv.Summary)

	if pd := cv.PersonalDetails; pd != nil {
		for _, f := range []*string{
			&pd.FullName, &pd.Email, &pd.Phone, &pd.Address, &pd.City, &pd.State, &pd.Country,
			&pd.PostalCode, &pd.LinkedinURL, &pd.GithubURL, &pd.Website, &pd.Availability,
		} {
			*f = strings.TrimSpace(*f)
		}
	}

	if cv.Education == nil {
		cv.Education = []Education{}
	}
	for i := range cv.Education {
		e := &cv.Education[i]
		trimAll(&e.Institution, &e.Degree, &e.Field, &e.StartDate, &e.EndDate, &e.Description)
	}
	if cv.Experience == nil {
		cv.Experience = []Experience{}
	}
	for i := range cv.Experience {
		e := &cv.Experience[i]
		trimAll(&e.Company, &e.Position, &e.StartDate, &e.EndDate, &e.Description, &e.Location)
	}
	if cv.Skills == nil {
		cv.Skills = []Skill{}
	}
	for i := range cv.Skills {
		trimAll(&cv.Skills[i].Name)
	}
	if cv.Certifications == nil {
		cv.Certifications = []Certification{}
	}
	for i := range cv.Certifications {
		c := &cv.Certifications[i]
		trimAll(&c.Name, &c.Issuer, &c.IssueDate, &c.ExpiryDate, &c.CredentialID, &c.CredentialURL)
	}
	if cv.Languages == nil {
		cv.Languages = []Language{}
	}
	for i := range cv.Languages {
		trimAll(&cv.Languages[i].Name)
	}
}

func trimAll(fields ...*string) {
	for _, f := range fields {
		*f = strings.TrimSpace(*f)
	}
}

type CVUsecase interface {
	// Validate normalizes the document and checks it against the builder form rules.
	Validate(ctx context.Context, cv *CV) (*CV, error)
}
