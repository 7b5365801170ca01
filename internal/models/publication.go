package models

import "time"

// Publication is an article. PublishedAt is nil exactly when IsPublished is false.
type Publication struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Title       string     `gorm:"size:200;not null" json:"title"`
	Content     string     `gorm:"type:text" json:"content"`
	ImageURL    string     `gorm:"size:500" json:"imageUrl"`
	IsPublished bool       `gorm:"not null;index" json:"isPublished"`
	PublishedAt *time.Time `json:"publishedAt"`
	CreatedAt   time.Time  `gorm:"index" json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// SetPublished flips the publish flag and keeps PublishedAt consistent with it.
// Re-publishing an already published article keeps its original timestamp.
func (p *Publication) SetPublished(published bool, now time.Time) {
	switch {
	case !published:
		p.PublishedAt = nil
	case !p.IsPublished || p.PublishedAt == nil:
		t := now
		p.PublishedAt = &t
	}
	p.IsPublished = published
}
