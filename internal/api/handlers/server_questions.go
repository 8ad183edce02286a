package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "mortisplay.ru/qa/internal/pkg/errors"
)

// submitRequest is the public submission body. Anything else the widget
// sends (historically a client-side "date") is ignored; the server assigns
// the timestamp and derives the requester identity from the connection.
type submitRequest struct {
	Nickname string `json:"nickname"`
	Question string `json:"question"`
}

// questionItem is the public read shape. No id, no status, no identity —
// exactly what the rendered list needs.
type questionItem struct {
	Nickname string `json:"nickname"`
	Question string `json:"question"`
	Date     string `json:"date"`
}

// PostQuestion handles POST /questions.
//
// Always answers 200 with a success flag; the widget predates proper
// status codes and switches on the flag.
func (s *Server) PostQuestion(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.submitFailure(c, apperrors.ErrMissingField())
		return
	}

	accepted, err := s.submissions.Submit(c.Request.Context(), req.Nickname, req.Question, c.ClientIP())
	if err != nil {
		appErr, ok := apperrors.IsAppError(err)
		if !ok {
			appErr = apperrors.Internal(apperrors.CodeInternal, "Внутренняя ошибка сервера")
		}
		s.submitFailure(c, appErr)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": accepted.Message,
		"id":      accepted.ID,
	})
}

func (s *Server) submitFailure(c *gin.Context, appErr *apperrors.AppError) {
	if appErr.Code == apperrors.CodeRateLimited {
		if ra, ok := appErr.Params["retry_after"].(int); ok {
			c.Header("Retry-After", strconv.Itoa(ra))
		}
	}
	body := gin.H{
		"success": false,
		"error":   appErr.Message,
		"code":    appErr.Code,
	}
	if len(appErr.Params) > 0 {
		body["params"] = appErr.Params
	}
	c.JSON(http.StatusOK, body)
}

// ListQuestions handles GET /questions — approved submissions only,
// oldest first.
func (s *Server) ListQuestions(c *gin.Context) {
	subs, err := s.submissions.ListApproved(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}

	items := make([]questionItem, 0, len(subs))
	for _, sub := range subs {
		items = append(items, questionItem{
			Nickname: sub.Nickname,
			Question: sub.Question,
			Date:     sub.SubmittedAt.UTC().Format(time.RFC3339),
		})
	}
	c.JSON(http.StatusOK, items)
}
