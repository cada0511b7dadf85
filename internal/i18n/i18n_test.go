package i18n

import (
	"context"
	"testing"
	"time"
)

func initLang(t *testing.T, lang string) context.Context {
	t.Helper()
	if err := Init("en"); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return WithLanguage(context.Background(), lang)
}

func TestTranslate(t *testing.T) {
	tests := []struct {
		lang  string
		msgID string
		want  string
	}{
		{"en", "Pending", "Pending"},
		{"fr", "Pending", "À corriger"},
		{"en", "NoClasses", "No classes."},
		{"fr", "NoClasses", "Pas de cours."},
	}
	for _, tt := range tests {
		t.Run(tt.lang+"/"+tt.msgID, func(t *testing.T) {
			ctx := initLang(t, tt.lang)
			if got := T(ctx, tt.msgID); got != tt.want {
				t.Errorf("T(%s) = %q, want %q", tt.msgID, got, tt.want)
			}
		})
	}
}

func TestPluralTranslation(t *testing.T) {
	ctx := initLang(t, "en")

	if got := Tp(ctx, "CopiesGraded", 1); got != "1 copy graded" {
		t.Errorf("Tp(CopiesGraded, 1) = %q", got)
	}
	if got := Tp(ctx, "CopiesGraded", 5); got != "5 copies graded" {
		t.Errorf("Tp(CopiesGraded, 5) = %q", got)
	}

	ctx = initLang(t, "fr")
	if got := Tp(ctx, "CopiesGraded", 2); got != "2 copies corrigées" {
		t.Errorf("Tp(CopiesGraded, 2) fr = %q", got)
	}
}

func TestTemplateDataTranslation(t *testing.T) {
	ctx := initLang(t, "en")

	got := Td(ctx, "ProfileLine", map[string]any{"Level": 2, "XP": 120, "Next": 250})
	if got != "Level 2: 120/250 XP" {
		t.Errorf("Td(ProfileLine) = %q", got)
	}
}

func TestWeekday(t *testing.T) {
	if got := Weekday(initLang(t, "fr"), time.Wednesday); got != "mercredi" {
		t.Errorf("Weekday(fr, Wednesday) = %q", got)
	}
}

func TestMissingKey(t *testing.T) {
	ctx := initLang(t, "en")

	if got := T(ctx, "NonExistentKey"); got != "NonExistentKey" {
		t.Errorf("T(NonExistentKey) = %q, want the id back", got)
	}
}

func TestUnsupportedLanguage(t *testing.T) {
	if err := Init("xx"); err == nil {
		t.Error("expected error for unsupported language")
	}
}
