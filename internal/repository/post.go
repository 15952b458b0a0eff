package repository

import (
	"context"

	"github.com/Kellia855/mindbridge/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostListOptions narrows post listings.
type PostListOptions struct {
	Category models.PostCategory
	Approved bool
	Limit    int
	Offset   int
}

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	List(ctx context.Context, opts PostListOptions) ([]models.Post, error)
	ListByAuthor(ctx context.Context, authorID uint) ([]models.Post, error)
	Approve(ctx context.Context, id uint) (*models.Post, error)
	Delete(ctx context.Context, id uint) error
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func resolveAuthors(posts []models.Post) {
	for i := range posts {
		posts[i].ResolveAuthorDisplay()
	}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	// IsApproved and IsAnonymous are explicit so false is not replaced by the column default
	err := r.db.WithContext(ctx).Omit(clause.Associations).
		Select("AuthorID", "Content", "Category", "IsAnonymous", "IsApproved", "CreatedAt", "UpdatedAt").
		Create(post).Error
	if err != nil {
		return dbError(err, "Post", post.ID)
	}
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).Preload("Author").First(&post, id).Error; err != nil {
		return nil, dbError(err, "Post", id)
	}
	post.ResolveAuthorDisplay()
	return &post, nil
}

func (r *postRepository) List(ctx context.Context, opts PostListOptions) ([]models.Post, error) {
	limit, offset := clampPage(opts.Limit, opts.Offset)
	q := r.db.WithContext(ctx).Preload("Author").Where("is_approved = ?", opts.Approved)
	if opts.Category != "" {
		q = q.Where("category = ?", opts.Category)
	}

	var posts []models.Post
	if err := q.Order("created_at DESC").Order("id DESC").Limit(limit).Offset(offset).Find(&posts).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	resolveAuthors(posts)
	return posts, nil
}

func (r *postRepository) ListByAuthor(ctx context.Context, authorID uint) ([]models.Post, error) {
	var posts []models.Post
	if err := r.db.WithContext(ctx).Preload("Author").
		Where("author_id = ?", authorID).
		Order("created_at DESC").Order("id DESC").
		Find(&posts).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	resolveAuthors(posts)
	return posts, nil
}

func (r *postRepository) Approve(ctx context.Context, id uint) (*models.Post, error) {
	res := r.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", id).Update("is_approved", true)
	if res.Error != nil {
		return nil, models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, models.NewNotFoundError("Post", id)
	}
	return r.GetByID(ctx, id)
}

func (r *postRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Post{}, id)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Post", id)
	}
	return nil
}
