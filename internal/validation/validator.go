package validation

import (
	"errors"
	"fmt"
	"sort"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/story-cms-api/internal/models"
	"github.com/story-cms-api/internal/slug"
)

// Field limits
const (
	MaxTitleLength  = 255
	MaxAuthorLength = 255
	MaxStatusLength = 50
	MaxTagLength    = 100
)

// Validator validates import records. It remembers the slugs accepted so
// far so that duplicates inside one import are reported per line.
type Validator struct {
	slugCache map[string]bool
}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	return &Validator{
		slugCache: make(map[string]bool),
	}
}

// AddSlug adds a slug to the uniqueness cache
func (v *Validator) AddSlug(s string) {
	v.slugCache[s] = true
}

// HasSlug reports whether a slug was already accepted
func (v *Validator) HasSlug(s string) bool {
	return v.slugCache[s]
}

// ValidateCreate checks a story creation request. title, author and content
// must be present; the title must yield a slug unless one is given.
func ValidateCreate(req *models.CreateStoryRequest) error {
	err := validation.ValidateStruct(req,
		validation.Field(&req.Title,
			validation.NotNil,
			validation.Length(0, MaxTitleLength),
			validation.When(req.Slug == nil, validation.By(sluggable)),
		),
		validation.Field(&req.Author, validation.NotNil, validation.Length(0, MaxAuthorLength)),
		validation.Field(&req.Content, validation.NotNil),
		validation.Field(&req.Tags, validation.Each(validation.Required, validation.Length(1, MaxTagLength))),
		validation.Field(&req.Slug, validation.By(canonicalSlug)),
	)
	return toFieldErrors(err)
}

// ValidatePatch checks a sparse story update
func ValidatePatch(p *models.StoryPatch) error {
	err := validation.ValidateStruct(p,
		validation.Field(&p.Title,
			validation.When(p.Title != nil, validation.Required, validation.Length(1, MaxTitleLength)),
			validation.When(p.Slug == nil, validation.By(sluggable)),
		),
		validation.Field(&p.Slug, validation.By(canonicalSlug)),
		validation.Field(&p.Status, validation.When(p.Status != nil, validation.Required, validation.Length(1, MaxStatusLength))),
		validation.Field(&p.Tags, validation.By(tagList)),
		validation.Field(&p.Views, validation.Min(0)),
	)
	return toFieldErrors(err)
}

// ValidateEpisodeAppend checks a new episode; title and content are required
func ValidateEpisodeAppend(in *models.EpisodeInput) error {
	err := validation.ValidateStruct(in,
		validation.Field(&in.Title, validation.NotNil, validation.Length(0, MaxTitleLength)),
		validation.Field(&in.Content, validation.NotNil),
	)
	return toFieldErrors(err)
}

// ValidateEpisodeUpdate checks a sparse episode update
func ValidateEpisodeUpdate(in *models.EpisodeInput) error {
	err := validation.ValidateStruct(in,
		validation.Field(&in.Title, validation.Length(0, MaxTitleLength)),
	)
	return toFieldErrors(err)
}

// ValidateRecord validates one import line and checks its slug against the
// slugs accepted earlier in the same import
func (v *Validator) ValidateRecord(rec *models.StoryRecord, lineNum int) []models.ValidationError {
	var errs []models.ValidationError

	if err := ValidateCreate(rec.ToCreateRequest()); err != nil {
		var fields models.FieldErrors
		if !errors.As(err, &fields) {
			return []models.ValidationError{{Line: lineNum, Message: err.Error()}}
		}
		for _, field := range sortedFields(fields) {
			errs = append(errs, models.ValidationError{
				Line:    lineNum,
				Field:   field,
				Message: fields[field],
				Value:   recordValue(rec, field),
			})
		}
		return errs
	}

	s := RecordSlug(rec)
	if v.slugCache[s] {
		errs = append(errs, models.ValidationError{Line: lineNum, Field: "slug", Message: "duplicate slug", Value: s})
	}
	return errs
}

// RecordSlug returns the slug a valid record will be stored under
func RecordSlug(rec *models.StoryRecord) string {
	if rec.Slug != nil {
		return *rec.Slug
	}
	if rec.Title != nil {
		return slug.Derive(*rec.Title)
	}
	return ""
}

func recordValue(rec *models.StoryRecord, field string) interface{} {
	switch field {
	case "title":
		if rec.Title != nil {
			return *rec.Title
		}
	case "slug":
		if rec.Slug != nil {
			return *rec.Slug
		}
	case "tags":
		return rec.Tags
	}
	return nil
}

// sluggable requires a title that derives a non-empty slug
func sluggable(value interface{}) error {
	title, ok := value.(*string)
	if !ok || title == nil {
		return nil
	}
	if slug.Derive(*title) == "" {
		return errors.New("must contain at least one letter or digit")
	}
	return nil
}

// canonicalSlug accepts nil or a slug already in canonical form
func canonicalSlug(value interface{}) error {
	s, ok := value.(*string)
	if !ok || s == nil {
		return nil
	}
	if !slug.Valid(*s) {
		return fmt.Errorf("must consist of lowercase letters, digits and single underscores")
	}
	return nil
}

func tagList(value interface{}) error {
	tags, ok := value.(*[]string)
	if !ok || tags == nil {
		return nil
	}
	return validation.Validate(*tags, validation.Each(validation.Required, validation.Length(1, MaxTagLength)))
}

// toFieldErrors converts ozzo field errors into models.FieldErrors
func toFieldErrors(err error) error {
	if err == nil {
		return nil
	}
	var errs validation.Errors
	if !errors.As(err, &errs) {
		return err
	}
	fields := make(models.FieldErrors, len(errs))
	for field, e := range errs {
		fields[field] = e.Error()
	}
	return fields
}

func sortedFields(fields models.FieldErrors) []string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
