package errors

import (
	"net/http"
	"time"
)

// Error code constants. Codes are machine-readable and stable; messages are
// the user-facing strings the site has always shown (Russian), so the
// existing widget keeps working unchanged.

// Submission pipeline error codes.
const (
	CodeMissingField     = "MISSING_FIELD"
	CodeFieldTooLong     = "FIELD_TOO_LONG"
	CodeRateLimited      = "RATE_LIMITED"
	CodeStoreUnavailable = "STORE_UNAVAILABLE"
	CodeInternal         = "INTERNAL_ERROR"
)

// Moderation error codes.
const (
	CodeQuestionNotFound = "QUESTION_NOT_FOUND"
	CodeAlreadyModerated = "ALREADY_MODERATED"
	CodeInvalidStatus    = "INVALID_STATUS"
)

// Auth error codes.
const (
	CodeUnauthorized = "UNAUTHORIZED"
	CodeAuthFailed   = "AUTH_FAILED"
)

// Convenience constructors using predefined codes.

// ErrMissingField reports an empty nickname or question.
func ErrMissingField() *AppError {
	return BadRequest(CodeMissingField, "Заполните все поля")
}

// ErrFieldTooLong reports a field exceeding its character limit.
func ErrFieldTooLong(field string, limit int) *AppError {
	return BadRequest(CodeFieldTooLong, "Слишком длинные данные").
		WithParams(map[string]interface{}{"field": field, "limit": limit})
}

// ErrRateLimited reports a submission inside the cooldown window.
func ErrRateLimited(retryAfter time.Duration) *AppError {
	return TooManyRequests(CodeRateLimited, "Пожалуйста, подождите перед отправкой нового вопроса").
		WithParams(map[string]interface{}{"retry_after": int(retryAfter.Round(time.Second).Seconds())})
}

// ErrStoreUnavailable wraps a backing-medium failure. The cause is logged
// server-side only; clients get the generic message.
func ErrStoreUnavailable(err error) *AppError {
	return Wrap(err, CodeStoreUnavailable, "Ошибка при сохранении", http.StatusServiceUnavailable)
}

// ErrQuestionNotFound reports a moderation request for an unknown id.
func ErrQuestionNotFound(id string) *AppError {
	return NotFound(CodeQuestionNotFound, "Вопрос не найден").
		WithParams(map[string]interface{}{"id": id})
}

// ErrAlreadyModerated reports a second decision on the same question.
func ErrAlreadyModerated(id string) *AppError {
	return Conflict(CodeAlreadyModerated, "Вопрос уже прошёл модерацию").
		WithParams(map[string]interface{}{"id": id})
}
