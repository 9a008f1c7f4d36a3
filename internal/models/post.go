package models

import "time"

// Post is a short text item with engagement counters and its comments.
type Post struct {
	ID        int       `gorm:"primaryKey" json:"id"`
	Content   string    `gorm:"not null" json:"content"`
	Liked     int       `gorm:"not null;default:0" json:"liked"`
	Disliked  int       `gorm:"not null;default:0" json:"disliked"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Comments  []Comment `gorm:"foreignKey:PostID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"comments"`
}

type CreatePostRequest struct {
	Content *string `json:"content"`
}

type UpdatePostRequest struct {
	Content *string `json:"content"`
}

// DeletePostResponse confirms a removed post.
type DeletePostResponse struct {
	Message string `json:"message"`
}

// NormalizeComments keeps the comments field an array in JSON output.
func (p *Post) NormalizeComments() {
	if p.Comments == nil {
		p.Comments = []Comment{}
	}
}
