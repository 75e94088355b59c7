package config

import (
	"encoding/json"
	"os"
)

// RabbitMQConfig содержит конфигурацию для RabbitMQ.
type RabbitMQConfig struct {
	DSN string `json:"dsn"`
}

// SimulationConfig содержит интервалы эмуляции брокера.
type SimulationConfig struct {
	PollIntervalMS int  `json:"poll_interval_ms"`
	TickIntervalMS int  `json:"tick_interval_ms"`
	Autostart      bool `json:"autostart"`
}

// ValidationConfig содержит режим проверки привязок.
type ValidationConfig struct {
	Strict bool `json:"strict"`
}

// SnapshotsConfig содержит расписание и глубину хранения снимков.
type SnapshotsConfig struct {
	Schedule string `json:"schedule"`
	Keep     int    `json:"keep"`
}

// Config представляет структуру файла конфигурации.
type Config struct {
	Port       string           `json:"port"`
	LogDir     string           `json:"log_dir"`
	DBPath     string           `json:"db_path"`
	LogLevel   string           `json:"log_level"`
	LocalesDir string           `json:"locales_dir"`
	RabbitMQ   RabbitMQConfig   `json:"rabbitmq"`
	Simulation SimulationConfig `json:"simulation"`
	Validation ValidationConfig `json:"validation"`
	Snapshots  SnapshotsConfig  `json:"snapshots"`
}

// Load загружает конфигурацию из указанного файла.
func Load(filePath string) (*Config, error) {
	cfg := &Config{
		Port:       "8080",
		LogDir:     "logs",
		DBPath:     "data/designer.db",
		LogLevel:   "info", // Default log level
		LocalesDir: "locales",
		RabbitMQ: RabbitMQConfig{
			DSN: "", // Provisioning stays off until a broker is configured
		},
		Simulation: SimulationConfig{
			PollIntervalMS: 500,
			TickIntervalMS: 500,
			Autostart:      true,
		},
		Validation: ValidationConfig{
			Strict: true,
		},
		Snapshots: SnapshotsConfig{
			Schedule: "0 */6 * * *",
			Keep:     20,
		},
	}

	file, err := os.Open(filePath)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	} else {
		defer file.Close()
		decoder := json.NewDecoder(file)
		if err := decoder.Decode(cfg); err != nil {
			return nil, err
		}
	}

	if dsn := os.Getenv("RABBITMQ_DSN"); dsn != "" {
		cfg.RabbitMQ.DSN = dsn
	}

	return cfg, nil
}
