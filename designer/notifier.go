package designer

import "log/slog"

// Notifier receives the outcome of every configuration mutation. The admin
// surface shows these to the user; headless setups can stay with the log
// implementation.
type Notifier interface {
	Success(designID, message string)
	Error(designID, message string)
}

// LogNotifier is a Notifier that writes outcomes to the structured log.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Success(designID, message string) {
	n.logger.Info("design updated", "design_id", designID, "message", message)
}

func (n *LogNotifier) Error(designID, message string) {
	n.logger.Warn("design update rejected", "design_id", designID, "message", message)
}
