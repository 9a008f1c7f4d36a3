package models

import "time"

type Comment struct {
	ID        int       `gorm:"primaryKey" json:"id"`
	Content   string    `gorm:"not null" json:"content"`
	PostID    int       `gorm:"not null;index" json:"-"`
	CreatedAt time.Time `json:"createdAt"`
}

type CreateCommentRequest struct {
	Content string `json:"content" binding:"required"`
}
