package service

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/Kellia855/mindbridge/internal/featureflags"
	"github.com/Kellia855/mindbridge/internal/models"
	"github.com/Kellia855/mindbridge/internal/repository"
)

const maxPostContentLen = 5000

// PostNotifier tells authors their post was approved.
type PostNotifier interface {
	NotifyPostApproved(ctx context.Context, post *models.Post) error
}

type PostService struct {
	postRepo repository.PostRepository
	flags    *featureflags.Manager
	notifier PostNotifier
}

func NewPostService(postRepo repository.PostRepository, flags *featureflags.Manager, notifier PostNotifier) *PostService {
	return &PostService{postRepo: postRepo, flags: flags, notifier: notifier}
}

type CreatePostInput struct {
	Content     string              `json:"content"`
	Category    models.PostCategory `json:"category"`
	IsAnonymous *bool               `json:"is_anonymous"`
}

type ListPostsInput struct {
	Category models.PostCategory
	// Pending selects the moderation queue; staff only.
	Pending bool
	Limit   int
	Offset  int
}

// CategoryOption is one entry of a category picker.
type CategoryOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

func (s *PostService) Categories() []CategoryOption {
	out := make([]CategoryOption, 0, len(models.PostCategories))
	for _, c := range models.PostCategories {
		out = append(out, CategoryOption{Value: string(c), Label: c.DisplayName()})
	}
	return out
}

func (s *PostService) CreatePost(ctx context.Context, actor Actor, in CreatePostInput) (*models.Post, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, models.NewValidationError("Content is required")
	}
	if utf8.RuneCountInString(content) > maxPostContentLen {
		return nil, models.NewValidationError("Content too long (max 5000 characters)")
	}
	if in.Category == "" {
		in.Category = models.PostCategoryGeneralInspiration
	}
	if !in.Category.Valid() {
		return nil, models.NewValidationError("Invalid category")
	}

	post := &models.Post{
		AuthorID:    actor.ID,
		Content:     content,
		Category:    in.Category,
		IsAnonymous: true,
		IsApproved:  s.flags.Enabled(featureflags.PostAutoApprove, actor.ID),
	}
	if in.IsAnonymous != nil {
		post.IsAnonymous = *in.IsAnonymous
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}
	return s.postRepo.GetByID(ctx, post.ID)
}

// ListPosts returns approved posts, or the moderation queue for staff.
func (s *PostService) ListPosts(ctx context.Context, actor Actor, in ListPostsInput) ([]models.Post, error) {
	if in.Pending && !actor.IsStaff() {
		return nil, models.NewForbiddenError("Only the wellness team can view pending posts")
	}
	if in.Category != "" && !in.Category.Valid() {
		return nil, models.NewValidationError("Invalid category")
	}
	return s.postRepo.List(ctx, repository.PostListOptions{
		Category: in.Category,
		Approved: !in.Pending,
		Limit:    in.Limit,
		Offset:   in.Offset,
	})
}

func (s *PostService) MyPosts(ctx context.Context, actor Actor) ([]models.Post, error) {
	return s.postRepo.ListByAuthor(ctx, actor.ID)
}

// DeletePost removes a post. Authors may delete their own; staff any.
func (s *PostService) DeletePost(ctx context.Context, actor Actor, id uint) error {
	post, err := s.postRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if post.AuthorID != actor.ID && !actor.IsStaff() {
		return models.NewForbiddenError("You can only delete your own posts")
	}
	return s.postRepo.Delete(ctx, id)
}

func (s *PostService) ApprovePost(ctx context.Context, actor Actor, id uint) (*models.Post, error) {
	if err := requireStaff(actor, "approve posts"); err != nil {
		return nil, err
	}
	post, err := s.postRepo.Approve(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.notifier != nil {
		if err := s.notifier.NotifyPostApproved(ctx, post); err != nil {
			logBestEffort(ctx, "post approved push", err, slog.Uint64("post_id", uint64(post.ID)))
		}
	}
	return post, nil
}
