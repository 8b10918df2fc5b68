package models

import (
	"encoding/json"
)

// Story statuses
const (
	StatusPublished = "published"
)

// Story and episode publish states
const (
	PublishStatusPublished = "published"
	PublishStatusActive    = "active"
	PublishStatusArchived  = "archived"
)

// Story is the document persisted under stories/<slug>.json
type Story struct {
	Title         string            `json:"title" yaml:"title"`
	Author        string            `json:"author" yaml:"author"`
	Slug          string            `json:"slug" yaml:"slug"`
	CreatedAt     Timestamp         `json:"created_at" yaml:"created_at"`
	UpdatedAt     Timestamp         `json:"updated_at" yaml:"updated_at"`
	Content       string            `json:"content" yaml:"content"`
	Status        string            `json:"status" yaml:"status"`
	Tags          []string          `json:"tags" yaml:"tags"`
	Views         int               `json:"views" yaml:"views"`
	Comments      []json.RawMessage `json:"comments" yaml:"-"`
	Episodes      []Episode         `json:"episodes" yaml:"episodes"`
	PublishStatus string            `json:"publish_status,omitempty" yaml:"publish_status,omitempty"`
}

// Normalize replaces nil sequences left by documents written before a field existed.
func (s *Story) Normalize() {
	if s.Tags == nil {
		s.Tags = []string{}
	}
	if s.Comments == nil {
		s.Comments = []json.RawMessage{}
	}
	if s.Episodes == nil {
		s.Episodes = []Episode{}
	}
}

// Episode is embedded in a story and addressed by its position.
type Episode struct {
	Title         string     `json:"title" yaml:"title"`
	Content       string     `json:"content" yaml:"content"`
	CreatedAt     Timestamp  `json:"created_at" yaml:"created_at"`
	UpdatedAt     *Timestamp `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
	PublishStatus string     `json:"publish_status,omitempty" yaml:"publish_status,omitempty"`
}

// IsActive reports whether the episode has not been soft-deleted.
func (e *Episode) IsActive() bool {
	return e.PublishStatus != PublishStatusArchived
}

// NewStory holds the validated input of a story creation
type NewStory struct {
	Title   string
	Author  string
	Content string
	Tags    []string
	Slug    string // optional, derived from Title when empty
}

// CreateStoryRequest is the transport shape of a story creation.
// Required fields are pointers so that absence can be told apart from "".
type CreateStoryRequest struct {
	Title   *string  `json:"title"`
	Author  *string  `json:"author"`
	Content *string  `json:"content"`
	Tags    []string `json:"tags,omitempty"`
	Slug    *string  `json:"slug,omitempty"`
}

// ToNewStory converts a validated request.
func (r *CreateStoryRequest) ToNewStory() *NewStory {
	n := &NewStory{Tags: r.Tags}
	if r.Title != nil {
		n.Title = *r.Title
	}
	if r.Author != nil {
		n.Author = *r.Author
	}
	if r.Content != nil {
		n.Content = *r.Content
	}
	if r.Slug != nil {
		n.Slug = *r.Slug
	}
	return n
}

// StoryPatch is a sparse update. A nil field is left untouched; an explicit
// JSON null decodes to nil and is treated the same way.
type StoryPatch struct {
	Title   *string   `json:"title,omitempty"`
	Slug    *string   `json:"slug,omitempty"`
	Content *string   `json:"content,omitempty"`
	Status  *string   `json:"status,omitempty"`
	Tags    *[]string `json:"tags,omitempty"`
	Views   *int      `json:"views,omitempty"`
}

// IsEmpty reports whether the patch carries no field at all.
func (p *StoryPatch) IsEmpty() bool {
	return p.Title == nil && p.Slug == nil && p.Content == nil &&
		p.Status == nil && p.Tags == nil && p.Views == nil
}

// EpisodeInput is used both for appends (both fields required) and for
// sparse episode updates.
type EpisodeInput struct {
	Title   *string `json:"title,omitempty"`
	Content *string `json:"content,omitempty"`
}

// ArchivedStory describes the result of archiving a story
type ArchivedStory struct {
	Slug       string    `json:"slug"`
	ArchiveID  string    `json:"archive_id"`
	ArchivedAt Timestamp `json:"archived_at"`
}

// AppendResult is returned by an episode append
type AppendResult struct {
	EpisodeCount int `json:"episode_count"`
}
