package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/postpilothq/postpilot/internal/models"
	"github.com/postpilothq/postpilot/internal/repository"
	"github.com/postpilothq/postpilot/internal/transfer"
)

type PostService interface {
	CreateDraft(ctx context.Context, userID int64, pc *transfer.PostCreation) (*models.Post, error)
	List(ctx context.Context, userID int64, status string) ([]*models.Post, error)
	PostInfo(ctx context.Context, postID, userID int64) (*models.Post, error)
	Remove(ctx context.Context, userID, postID int64) error
}

type postService struct {
	pr repository.PostRepository
}

func NewPostService(pr repository.PostRepository) PostService {
	return &postService{pr: pr}
}

func (s *postService) CreateDraft(ctx context.Context, userID int64, pc *transfer.PostCreation) (*models.Post, error) {
	if pc == nil {
		return nil, ErrInvalidInput
	}
	if strings.TrimSpace(pc.Content) == "" {
		slog.Info("draft rejected: empty content", "user_id", userID)
		return nil, ErrInvalidInput
	}
	if !models.IsValidPlatform(pc.Platform) {
		slog.Info("draft rejected: unknown platform", "platform", pc.Platform)
		return nil, ErrInvalidInput
	}

	post := models.Post{
		UserID:   userID,
		Platform: pc.Platform,
		Content:  pc.Content,
		ImageURL: pc.ImageURL,
		Link:     pc.Link,
		Status:   models.PostStatusDraft,
	}

	id, err := s.pr.Create(ctx, nil, &post)
	if err != nil {
		return nil, err
	}
	post.ID = id
	return &post, nil
}

func (s *postService) List(ctx context.Context, userID int64, status string) ([]*models.Post, error) {
	return s.pr.ListByUserID(ctx, userID, status)
}

// PostInfo distinguishes "doesn't exist" from "not yours" so handlers can
// answer 404 vs 403.
func (s *postService) PostInfo(ctx context.Context, postID, userID int64) (*models.Post, error) {
	post, exists, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrPostNotFound
	}
	if post.UserID != userID {
		return nil, ErrNotOwner
	}
	return post, nil
}

func (s *postService) Remove(ctx context.Context, userID, postID int64) error {
	if _, err := s.PostInfo(ctx, postID, userID); err != nil {
		return err
	}
	return s.pr.Remove(ctx, postID, userID)
}
