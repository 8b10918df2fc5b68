package models

// Export formats
const (
	FormatNDJSON = "ndjson"
	FormatJSON   = "json"
	FormatYAML   = "yaml"
)

// ValidExportFormats defines the allowed export formats
var ValidExportFormats = map[string]bool{
	FormatNDJSON: true,
	FormatJSON:   true,
	FormatYAML:   true,
}

// StoryRecord represents a story record from an NDJSON import
type StoryRecord struct {
	Title   *string  `json:"title"`
	Author  *string  `json:"author"`
	Content *string  `json:"content"`
	Tags    []string `json:"tags"`
	Slug    *string  `json:"slug,omitempty"`
}

// ToCreateRequest converts an import record into a creation request
func (r *StoryRecord) ToCreateRequest() *CreateStoryRequest {
	return &CreateStoryRequest{
		Title:   r.Title,
		Author:  r.Author,
		Content: r.Content,
		Tags:    r.Tags,
		Slug:    r.Slug,
	}
}

// ImportReport summarizes a synchronous bulk import
type ImportReport struct {
	ImportID     string            `json:"import_id"`
	TotalRecords int               `json:"total_records"`
	Created      int               `json:"created"`
	Failed       int               `json:"failed"`
	DurationMs   int64             `json:"duration_ms"`
	Slugs        []string          `json:"slugs"`
	Errors       []ValidationError `json:"errors,omitempty"`
}
