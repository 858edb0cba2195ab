package tenantauth

import (
	"encoding/json"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-errors"
	"github.com/nyaruka/phonenumbers"
)

// DefaultBusinessCollection is the document collection that holds business
// profile records, keyed by principal ID.
const DefaultBusinessCollection = "businesses"

// BusinessProfile is the structured record created at business sign up and
// merged on profile edits.
type BusinessProfile struct {
	BusinessName    string    `json:"businessName"`
	Industry        string    `json:"industry,omitempty"`
	Location        string    `json:"location,omitempty"`
	BusinessSize    string    `json:"businessSize,omitempty"`
	YearsInBusiness string    `json:"yearsInBusiness,omitempty"`
	Website         string    `json:"website,omitempty"`
	LinkedIn        string    `json:"linkedin,omitempty"`
	Instagram       string    `json:"instagram,omitempty"`
	Twitter         string    `json:"twitter,omitempty"`
	ContactPhone    string    `json:"contactPhone,omitempty"`
	Email           string    `json:"email,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

func (p *BusinessProfile) document() (Document, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to encode business profile")
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to encode business profile")
	}

	return doc, nil
}

func profileFromDocument(doc Document) (*BusinessProfile, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to decode business document")
	}

	profile := &BusinessProfile{}
	if err := json.Unmarshal(raw, profile); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to decode business document")
	}

	return profile, nil
}

func (p *BusinessProfile) clone() *BusinessProfile {
	if p == nil {
		return nil
	}
	cp := *p
	return &cp
}

// BusinessInfo is the sign up form payload used to seed a business profile.
type BusinessInfo struct {
	BusinessName    string `json:"businessName"`
	Industry        string `json:"industry"`
	Location        string `json:"location"`
	BusinessSize    string `json:"businessSize"`
	YearsInBusiness string `json:"yearsInBusiness"`
	Website         string `json:"website"`
	LinkedIn        string `json:"linkedin"`
	Instagram       string `json:"instagram"`
	Twitter         string `json:"twitter"`
	ContactPhone    string `json:"contactPhone"`
}

// Validate checks the sign up payload before it reaches any collaborator.
func (b BusinessInfo) Validate() error {
	return validation.ValidateStruct(&b,
		validation.Field(&b.BusinessName, validation.Required, validation.Length(1, 200)),
		validation.Field(&b.Industry, validation.Length(0, 120)),
		validation.Field(&b.Location, validation.Length(0, 200)),
		validation.Field(&b.Website, is.URL),
		validation.Field(&b.ContactPhone, validation.By(validPhoneNumber)),
	)
}

func (b BusinessInfo) profile(email string, now time.Time) *BusinessProfile {
	return &BusinessProfile{
		BusinessName:    b.BusinessName,
		Industry:        b.Industry,
		Location:        b.Location,
		BusinessSize:    b.BusinessSize,
		YearsInBusiness: b.YearsInBusiness,
		Website:         b.Website,
		LinkedIn:        b.LinkedIn,
		Instagram:       b.Instagram,
		Twitter:         b.Twitter,
		ContactPhone:    b.ContactPhone,
		Email:           email,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// ProfileUpdate is a partial business profile edit. Nil fields are left
// untouched by the merge.
type ProfileUpdate struct {
	BusinessName    *string
	Industry        *string
	Location        *string
	BusinessSize    *string
	YearsInBusiness *string
	Website         *string
	LinkedIn        *string
	Instagram       *string
	Twitter         *string
	ContactPhone    *string
}

// Validate checks the populated fields of a partial update.
func (u ProfileUpdate) Validate() error {
	return validation.ValidateStruct(&u,
		validation.Field(&u.BusinessName, validation.Length(1, 200)),
		validation.Field(&u.Industry, validation.Length(0, 120)),
		validation.Field(&u.Location, validation.Length(0, 200)),
		validation.Field(&u.Website, is.URL),
		validation.Field(&u.ContactPhone, validation.By(validPhoneNumber)),
	)
}

func (u ProfileUpdate) isEmpty() bool {
	return u.BusinessName == nil && u.Industry == nil && u.Location == nil &&
		u.BusinessSize == nil && u.YearsInBusiness == nil && u.Website == nil &&
		u.LinkedIn == nil && u.Instagram == nil && u.Twitter == nil &&
		u.ContactPhone == nil
}

// fields returns the merge payload written to the document store, always
// stamped with a fresh updatedAt.
func (u ProfileUpdate) fields(now time.Time) Document {
	doc := Document{"updatedAt": now}

	put := func(key string, val *string) {
		if val != nil {
			doc[key] = *val
		}
	}

	put("businessName", u.BusinessName)
	put("industry", u.Industry)
	put("location", u.Location)
	put("businessSize", u.BusinessSize)
	put("yearsInBusiness", u.YearsInBusiness)
	put("website", u.Website)
	put("linkedin", u.LinkedIn)
	put("instagram", u.Instagram)
	put("twitter", u.Twitter)
	put("contactPhone", u.ContactPhone)

	return doc
}

func (u ProfileUpdate) applyTo(p *BusinessProfile, now time.Time) {
	set := func(dst *string, val *string) {
		if val != nil {
			*dst = *val
		}
	}

	set(&p.BusinessName, u.BusinessName)
	set(&p.Industry, u.Industry)
	set(&p.Location, u.Location)
	set(&p.BusinessSize, u.BusinessSize)
	set(&p.YearsInBusiness, u.YearsInBusiness)
	set(&p.Website, u.Website)
	set(&p.LinkedIn, u.LinkedIn)
	set(&p.Instagram, u.Instagram)
	set(&p.Twitter, u.Twitter)
	set(&p.ContactPhone, u.ContactPhone)

	p.UpdatedAt = now
}

// validPhoneNumber accepts E.164 numbers or national numbers parseable in
// the default region.
func validPhoneNumber(value any) error {
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case *string:
		if v == nil {
			return nil
		}
		s = *v
	default:
		return fmt.Errorf("must be a string")
	}

	if s == "" {
		return nil
	}

	num, err := phonenumbers.Parse(s, "US")
	if err != nil {
		return fmt.Errorf("must be a valid phone number")
	}

	if !phonenumbers.IsValidNumber(num) {
		return fmt.Errorf("must be a valid phone number")
	}

	return nil
}
