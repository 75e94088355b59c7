package i18n

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	dir := t.TempDir()
	writeLocale(t, dir, "en.json", `{"Design created successfully.": "Design created successfully."}`)
	writeLocale(t, dir, "ru.json", `{"Design created successfully.": "Схема успешно создана."}`)

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	svc, err := NewService(dir, logger)
	require.NoError(t, err)
	return svc
}

func writeLocale(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestSprintfTranslates(t *testing.T) {
	svc := newTestService(t)

	assert.Equal(t, "Схема успешно создана.", svc.Sprintf("ru", "Design created successfully."))
	assert.Equal(t, "Design created successfully.", svc.Sprintf("en-US", "Design created successfully."))
	assert.Equal(t, "Design created successfully.", svc.Sprintf("", "Design created successfully."))
}

func TestSprintfFallsBackToKey(t *testing.T) {
	svc := newTestService(t)

	assert.Equal(t, "Pruned orphaned bindings: 7", svc.Sprintf("ru", "Pruned orphaned bindings: %d", 7))
}

func TestLanguages(t *testing.T) {
	svc := newTestService(t)

	assert.Equal(t, []string{"en", "ru"}, svc.Languages())
}

func TestEmptyLocalesDirFails(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	_, err := NewService(t.TempDir(), logger)
	assert.Error(t, err)

	_, err = NewService(filepath.Join(t.TempDir(), "missing"), logger)
	assert.Error(t, err)
}
