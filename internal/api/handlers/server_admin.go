package handlers

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"mortisplay.ru/qa/internal/api/middleware"
	apperrors "mortisplay.ru/qa/internal/pkg/errors"
	"mortisplay.ru/qa/internal/qa"
)

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login handles POST /auth/login and issues a moderator token.
func (s *Server) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.BadRequest(apperrors.CodeAuthFailed, "Неверный логин или пароль"))
		return
	}

	userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(s.adminUser)) == 1
	passErr := bcrypt.CompareHashAndPassword([]byte(s.adminPasswordHash), []byte(req.Password))
	if !userOK || passErr != nil {
		_ = c.Error(apperrors.Unauthorized(apperrors.CodeAuthFailed, "Неверный логин или пароль"))
		return
	}

	token, expiresAt, err := middleware.GenerateToken(s.jwtCfg, req.Username)
	if err != nil {
		_ = c.Error(apperrors.Wrap(err, apperrors.CodeInternal, "Внутренняя ошибка сервера", http.StatusInternalServerError))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"expires_at": expiresAt.UTC().Format(time.RFC3339),
	})
}

// adminQuestionItem includes moderation fields the public shape omits.
// The requester identity still stays server-side.
type adminQuestionItem struct {
	ID          string `json:"id"`
	Nickname    string `json:"nickname"`
	Question    string `json:"question"`
	SubmittedAt string `json:"submitted_at"`
	Status      string `json:"status"`
}

// AdminListQuestions handles GET /admin/questions?status=pending.
func (s *Server) AdminListQuestions(c *gin.Context) {
	status := qa.Status(c.DefaultQuery("status", string(qa.StatusPending)))
	if !status.Valid() {
		_ = c.Error(apperrors.BadRequest(apperrors.CodeInvalidStatus, "Неизвестный статус"))
		return
	}

	subs, err := s.moderation.List(c.Request.Context(), status)
	if err != nil {
		_ = c.Error(err)
		return
	}

	items := make([]adminQuestionItem, 0, len(subs))
	for _, sub := range subs {
		items = append(items, adminQuestionItem{
			ID:          sub.ID,
			Nickname:    sub.Nickname,
			Question:    sub.Question,
			SubmittedAt: sub.SubmittedAt.UTC().Format(time.RFC3339),
			Status:      string(sub.Status),
		})
	}
	c.JSON(http.StatusOK, items)
}

// ApproveQuestion handles POST /admin/questions/:id/approve.
func (s *Server) ApproveQuestion(c *gin.Context) {
	s.decide(c, qa.StatusApproved)
}

// RejectQuestion handles POST /admin/questions/:id/reject.
func (s *Server) RejectQuestion(c *gin.Context) {
	s.decide(c, qa.StatusRejected)
}

func (s *Server) decide(c *gin.Context, status qa.Status) {
	id := c.Param("id")
	moderator := c.GetString("moderator")

	var err error
	if status == qa.StatusApproved {
		err = s.moderation.Approve(c.Request.Context(), id, moderator)
	} else {
		err = s.moderation.Reject(c.Request.Context(), id, moderator)
	}
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": id, "status": string(status)})
}
