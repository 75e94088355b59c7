package logger

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
)

// New создает и настраивает экземпляр логгера slog.
func New(logDir, version, logLevel string) (*slog.Logger, error) {
	// Создаем директорию, если она не существует
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, err
	}

	// Пишем логи в ротируемый файл: новый файл каждые сутки, хранение 7 дней
	logFile, err := rotatelogs.New(
		filepath.Join(logDir, "mq_designer.%Y%m%d.log"),
		rotatelogs.WithLinkName(filepath.Join(logDir, "mq_designer.log")),
		rotatelogs.WithRotationTime(24*time.Hour),
		rotatelogs.WithMaxAge(7*24*time.Hour),
	)
	if err != nil {
		return nil, err
	}

	var level slog.Level
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	// Создаем JSON-обработчик, который будет писать в файл
	handler := slog.NewJSONHandler(logFile, &slog.HandlerOptions{
		Level:     level, // Уровень логирования (Info, Debug, Warn, Error)
		AddSource: true,  // Добавлять в лог информацию о файле и строке кода
	})

	// Создаем логгер и добавляем в него постоянный атрибут "version"
	logger := slog.New(handler).With("version", version)
	return logger, nil
}
