package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/branchd-dev/authsession/internal/models"
)

// CreatePostRequest represents the post creation request
type CreatePostRequest struct {
	Title   string `json:"title" binding:"required,max=255"`
	Content string `json:"content"`
	Image   string `json:"image" binding:"omitempty,url"`
}

// PostResponse represents a post in responses
type PostResponse struct {
	ID        string    `json:"id"`
	Owner     string    `json:"owner"`
	IsOwner   bool      `json:"is_owner"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Image     string    `json:"image"`
	CreatedAt time.Time `json:"created_at"`
}

func newPostResponse(post *models.Post, viewerID string) PostResponse {
	return PostResponse{
		ID:        post.ID,
		Owner:     post.Owner.Username,
		IsOwner:   post.OwnerID == viewerID,
		Title:     post.Title,
		Content:   post.Content,
		Image:     post.Image,
		CreatedAt: post.CreatedAt,
	}
}

func (s *Server) listPosts(c *gin.Context) {
	sessionData, _ := GetSessionData(c)

	var posts []models.Post
	if err := s.db.Preload("Owner").Order("created_at DESC").Find(&posts).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to list posts")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	out := make([]PostResponse, len(posts))
	for i := range posts {
		out[i] = newPostResponse(&posts[i], sessionData.UserID)
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) createPost(c *gin.Context) {
	sessionData, _ := GetSessionData(c)

	var req CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	post := &models.Post{
		OwnerID: sessionData.UserID,
		Title:   req.Title,
		Content: req.Content,
		Image:   req.Image,
	}
	if err := s.db.Create(post).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to create post")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create post"})
		return
	}
	post.Owner.Username = sessionData.Username

	s.logger.Info().Str("post_id", post.ID).Str("owner_id", post.OwnerID).Msg("Post created")
	c.JSON(http.StatusCreated, newPostResponse(post, sessionData.UserID))
}

func (s *Server) getPost(c *gin.Context) {
	sessionData, _ := GetSessionData(c)

	var post models.Post
	if err := s.db.Preload("Owner").Where("id = ?", c.Param("id")).First(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Not found."})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, newPostResponse(&post, sessionData.UserID))
}

func (s *Server) deletePost(c *gin.Context) {
	sessionData, _ := GetSessionData(c)

	var post models.Post
	if err := models.FindByID(s.db, c.Param("id"), &post); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Not found."})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if post.OwnerID != sessionData.UserID {
		c.JSON(http.StatusForbidden, gin.H{"detail": "You do not have permission to perform this action."})
		return
	}

	if err := s.db.Delete(&post).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to delete post")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete post"})
		return
	}

	c.Status(http.StatusNoContent)
}
