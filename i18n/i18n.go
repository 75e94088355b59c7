package i18n

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Service manages internationalization.
type Service struct {
	logger      *slog.Logger
	catalog     catalog.Catalog
	acceptRange language.Matcher
	languages   []string
}

// NewService creates a new i18n service from the JSON files in localesDir.
// Each file is named by its language tag, e.g. en.json or ru.json.
func NewService(localesDir string, logger *slog.Logger) (*Service, error) {
	// Use English as the fallback language.
	builder := catalog.NewBuilder(catalog.Fallback(language.English))

	files, err := os.ReadDir(localesDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read locales directory: %w", err)
	}

	supported := []language.Tag{language.English}
	loaded := 0
	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".json") {
			continue
		}

		langTag, err := language.Parse(strings.TrimSuffix(file.Name(), ".json"))
		if err != nil {
			logger.Warn("failed to parse language tag from file name", "file", file.Name(), "error", err)
			continue
		}

		if err := loadLocale(builder, langTag, filepath.Join(localesDir, file.Name())); err != nil {
			logger.Error("failed to load translation file", "file", file.Name(), "error", err)
			continue
		}

		// English is already registered as the fallback
		if langTag != language.English {
			supported = append(supported, langTag)
		}
		loaded++
		logger.Info("loaded translations", "language", langTag.String(), "file", file.Name())
	}

	if loaded == 0 {
		return nil, fmt.Errorf("no translation files found in %s", localesDir)
	}

	languages := make([]string, 0, len(supported))
	for _, tag := range supported {
		languages = append(languages, tag.String())
	}
	sort.Strings(languages)

	return &Service{
		logger:      logger,
		catalog:     builder,
		acceptRange: language.NewMatcher(supported),
		languages:   languages,
	}, nil
}

// loadLocale reads one translation file into the catalog.
func loadLocale(builder *catalog.Builder, tag language.Tag, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	translations := make(map[string]string)
	if err := json.Unmarshal(data, &translations); err != nil {
		return fmt.Errorf("failed to unmarshal translations: %w", err)
	}

	for key, value := range translations {
		if err := builder.SetString(tag, key, value); err != nil {
			return fmt.Errorf("failed to set string for key %q: %w", key, err)
		}
	}
	return nil
}

// Languages lists the language tags translations are available for.
func (s *Service) Languages() []string {
	out := make([]string, len(s.languages))
	copy(out, s.languages)
	return out
}

// GetPrinter returns a message.Printer for the best matching language based on Accept-Language header.
func (s *Service) GetPrinter(acceptLanguage string) *message.Printer {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil {
		s.logger.Warn("failed to parse Accept-Language header, falling back to default", "header", acceptLanguage, "error", err)
		return message.NewPrinter(language.English, message.Catalog(s.catalog))
	}

	bestMatch, _, _ := s.acceptRange.Match(tags...)
	return message.NewPrinter(bestMatch, message.Catalog(s.catalog))
}

// Sprintf formats and translates a string using the best matching language.
func (s *Service) Sprintf(acceptLanguage, key string, args ...interface{}) string {
	printer := s.GetPrinter(acceptLanguage)
	return printer.Sprintf(key, args...)
}
