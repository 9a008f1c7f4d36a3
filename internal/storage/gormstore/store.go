// Package gormstore is the relational Store backed by GORM. It runs on
// PostgreSQL in production and on SQLite for local runs and tests.
package gormstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/minifeed/backend/internal/models"
	"github.com/minifeed/backend/internal/storage"
)

// foreign_key_violation
const pgForeignKeyViolation = "23503"

type Store struct {
	db *gorm.DB
}

var _ storage.Store = (*Store)(nil)

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// withComments preloads comments in insertion order.
func withComments(db *gorm.DB) *gorm.DB {
	return db.Preload("Comments", func(db *gorm.DB) *gorm.DB {
		return db.Order("id ASC")
	})
}

func (s *Store) CreatePost(ctx context.Context, content string) (*models.Post, error) {
	post := models.Post{Content: content}
	if err := s.db.WithContext(ctx).Create(&post).Error; err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	post.NormalizeComments()
	return &post, nil
}

func (s *Store) ListPosts(ctx context.Context) ([]models.Post, error) {
	var posts []models.Post
	err := withComments(s.db.WithContext(ctx)).
		Order("created_at DESC").
		Order("id DESC").
		Find(&posts).Error
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}

	if posts == nil {
		posts = []models.Post{}
	}
	for i := range posts {
		posts[i].NormalizeComments()
	}
	return posts, nil
}

func (s *Store) GetPost(ctx context.Context, id int) (*models.Post, error) {
	var post models.Post
	if err := withComments(s.db.WithContext(ctx)).First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get post %d: %w", id, err)
	}
	post.NormalizeComments()
	return &post, nil
}

func (s *Store) PostExists(ctx context.Context, id int) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", id).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check post %d: %w", id, err)
	}
	return count > 0, nil
}

func (s *Store) UpdatePost(ctx context.Context, id int, patch storage.PostPatch) error {
	updates := map[string]any{"updated_at": s.db.NowFunc()}
	if patch.Content != nil {
		updates["content"] = *patch.Content
	}
	return s.updateRow(ctx, id, updates, "update post")
}

// DeletePost removes the post and its comments in one transaction. The FK
// cascade covers PostgreSQL; the explicit comment delete covers SQLite
// connections opened without foreign key enforcement.
func (s *Store) DeletePost(ctx context.Context, id int) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Post{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return storage.ErrNotFound
		}
		return nil
	})
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("delete post %d: %w", id, err)
	}
	return err
}

// AddComment touches the parent row before inserting, so on PostgreSQL the
// row lock holds off a concurrent delete until the comment is committed.
func (s *Store) AddComment(ctx context.Context, postID int, content string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Post{}).Where("id = ?", postID).Update("updated_at", tx.NowFunc())
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return storage.ErrNotFound
		}
		return tx.Create(&models.Comment{PostID: postID, Content: content}).Error
	})
	if err == nil {
		return nil
	}
	if isForeignKeyViolation(err) || errors.Is(err, storage.ErrNotFound) {
		return storage.ErrNotFound
	}
	return fmt.Errorf("add comment to post %d: %w", postID, err)
}

func (s *Store) IncrementLiked(ctx context.Context, id int) error {
	return s.increment(ctx, id, "liked")
}

func (s *Store) IncrementDisliked(ctx context.Context, id int) error {
	return s.increment(ctx, id, "disliked")
}

// increment is a single UPDATE col = col + 1, never a read-modify-write.
func (s *Store) increment(ctx context.Context, id int, column string) error {
	return s.updateRow(ctx, id, map[string]any{
		column:       gorm.Expr(column+" + ?", 1),
		"updated_at": s.db.NowFunc(),
	}, "increment "+column)
}

func (s *Store) updateRow(ctx context.Context, id int, updates map[string]any, op string) error {
	res := s.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("%s %d: %w", op, id, res.Error)
	}
	if res.RowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func isForeignKeyViolation(err error) bool {
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation
}
