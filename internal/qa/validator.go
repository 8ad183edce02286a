package qa

import (
	"html"
	"strings"
	"unicode/utf8"

	apperrors "mortisplay.ru/qa/internal/pkg/errors"
)

// Validate checks raw nickname and question strings and returns the
// sanitized pair, or a structured rejection.
//
// Pure function: no I/O, no shared state. Limits are counted in runes so
// multi-byte text (the site is mostly Cyrillic) is measured correctly.
// On success both fields are HTML-escaped, so stored text can never be
// interpreted as markup wherever it is rendered.
func Validate(nickname, question string) (string, string, error) {
	nickname = strings.TrimSpace(nickname)
	question = strings.TrimSpace(question)

	if nickname == "" || question == "" {
		return "", "", apperrors.ErrMissingField()
	}

	if utf8.RuneCountInString(nickname) > NicknameMaxLen {
		return "", "", apperrors.ErrFieldTooLong("nickname", NicknameMaxLen)
	}
	if utf8.RuneCountInString(question) > QuestionMaxLen {
		return "", "", apperrors.ErrFieldTooLong("question", QuestionMaxLen)
	}

	return html.EscapeString(nickname), html.EscapeString(question), nil
}
