package qa

import (
	"strings"
	"testing"

	apperrors "mortisplay.ru/qa/internal/pkg/errors"
)

func assertCode(t *testing.T, err error, want string) {
	t.Helper()
	appErr, ok := apperrors.IsAppError(err)
	if !ok {
		t.Fatalf("error = %v, want AppError %s", err, want)
	}
	if appErr.Code != want {
		t.Errorf("code = %s, want %s", appErr.Code, want)
	}
}

func TestValidate_MissingFields(t *testing.T) {
	tests := []struct {
		name     string
		nickname string
		question string
	}{
		{"both empty", "", ""},
		{"empty nickname", "", "вопрос"},
		{"empty question", "Mortis", ""},
		{"whitespace-only nickname", "   \t", "вопрос"},
		{"whitespace-only question", "Mortis", "  \n  "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Validate(tt.nickname, tt.question)
			assertCode(t, err, apperrors.CodeMissingField)
		})
	}
}

func TestValidate_LengthBoundaries(t *testing.T) {
	// Cyrillic runes are two bytes each; limits must still be counted in
	// characters, not bytes.
	nick50 := strings.Repeat("ж", NicknameMaxLen)
	if _, _, err := Validate(nick50, "вопрос"); err != nil {
		t.Errorf("50-rune nickname rejected: %v", err)
	}

	nick51 := strings.Repeat("ж", NicknameMaxLen+1)
	_, _, err := Validate(nick51, "вопрос")
	assertCode(t, err, apperrors.CodeFieldTooLong)

	q500 := strings.Repeat("щ", QuestionMaxLen)
	if _, _, err := Validate("Mortis", q500); err != nil {
		t.Errorf("500-rune question rejected: %v", err)
	}

	q501 := strings.Repeat("щ", QuestionMaxLen+1)
	_, _, err = Validate("Mortis", q501)
	assertCode(t, err, apperrors.CodeFieldTooLong)
}

func TestValidate_TrimsBeforeCounting(t *testing.T) {
	padded := "  " + strings.Repeat("a", NicknameMaxLen) + "  "
	nick, _, err := Validate(padded, "вопрос")
	if err != nil {
		t.Fatalf("padded 50-rune nickname rejected: %v", err)
	}
	if nick != strings.Repeat("a", NicknameMaxLen) {
		t.Errorf("nickname = %q, want trimmed", nick)
	}
}

func TestValidate_EscapesMarkup(t *testing.T) {
	nick, q, err := Validate("<b>Mortis</b>", `когда стрим? <script>alert("x")</script>`)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if strings.ContainsAny(nick+q, "<>\"") {
		t.Errorf("markup survived sanitization: %q / %q", nick, q)
	}
	if nick != "&lt;b&gt;Mortis&lt;/b&gt;" {
		t.Errorf("nickname = %q", nick)
	}
	if !strings.Contains(q, "когда стрим?") {
		t.Errorf("escaping must preserve the text, got %q", q)
	}
}

func TestValidate_PlainTextUnchanged(t *testing.T) {
	nick, q, err := Validate("Mortis", "Когда новое видео?")
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if nick != "Mortis" || q != "Когда новое видео?" {
		t.Errorf("plain text mutated: %q / %q", nick, q)
	}
}
