package drill

import (
	"time"

	"github.com/kailas-cloud/drillscout/internal/domain/criterion"
)

// Drill is a catalog video entry (immutable value object).
type Drill struct {
	id           string
	categoryID   string
	title        string
	description  string
	videoLink    string
	thumbnailURL string
	userID       string
	isFree       bool
	embedding    []float32
	criteria     []criterion.DrillCriterion
	createdAt    time.Time
}

// Fields groups the drill attributes for hydration from storage.
type Fields struct {
	ID           string
	CategoryID   string
	Title        string
	Description  string
	VideoLink    string
	ThumbnailURL string
	UserID       string
	IsFree       bool
	Embedding    []float32
	Criteria     []criterion.DrillCriterion
	CreatedAt    time.Time
}

// Reconstruct creates a Drill without validation (storage hydration).
func Reconstruct(f Fields) Drill {
	return Drill{
		id:           f.ID,
		categoryID:   f.CategoryID,
		title:        f.Title,
		description:  f.Description,
		videoLink:    f.VideoLink,
		thumbnailURL: f.ThumbnailURL,
		userID:       f.UserID,
		isFree:       f.IsFree,
		embedding:    f.Embedding,
		criteria:     f.Criteria,
		createdAt:    f.CreatedAt,
	}
}

// ID returns the drill identifier.
func (d *Drill) ID() string { return d.id }

// CategoryID returns the category the drill belongs to.
func (d *Drill) CategoryID() string { return d.categoryID }

// Title returns the drill title.
func (d *Drill) Title() string { return d.title }

// Description returns the drill description.
func (d *Drill) Description() string { return d.description }

// VideoLink returns the drill video URL. Empty when redacted.
func (d *Drill) VideoLink() string { return d.videoLink }

// ThumbnailURL returns the preview image URL.
func (d *Drill) ThumbnailURL() string { return d.thumbnailURL }

// UserID returns the author of the drill.
func (d *Drill) UserID() string { return d.userID }

// IsFree reports whether the video is available without a subscription.
func (d *Drill) IsFree() bool { return d.isFree }

// Embedding returns the precomputed video embedding, nil if never computed.
func (d *Drill) Embedding() []float32 { return d.embedding }

// HasEmbedding reports whether the drill can take part in vector search.
func (d *Drill) HasEmbedding() bool { return len(d.embedding) > 0 }

// Criteria returns the recommendation criteria. Nil means not eligible for recommendation.
func (d *Drill) Criteria() []criterion.DrillCriterion { return d.criteria }

// CreatedAt returns the creation timestamp.
func (d *Drill) CreatedAt() time.Time { return d.createdAt }

// WithoutVideoLink returns a copy of the drill with the video link cleared.
func (d Drill) WithoutVideoLink() Drill {
	d.videoLink = ""
	return d
}
