package export

import (
	"fmt"
	"log/slog"

	"github.com/starford/noteflow/internal/models"
	"github.com/starford/noteflow/internal/storage"
)

// Exporter writes rendered notes into a directory.
type Exporter struct {
	dir    storage.Provider
	logger *slog.Logger
}

// NewExporter creates an exporter writing into dir.
func NewExporter(dir storage.Provider, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{dir: dir, logger: logger}
}

// Save renders note as f and writes it under its sanitized file name,
// replacing an earlier export of the same name. It returns the file name.
func (e *Exporter) Save(note models.Note, f Format) (string, error) {
	data, err := Render(note, f)
	if err != nil {
		return "", err
	}
	name := Filename(note.Title, f)
	if err := e.dir.Write(name, data); err != nil {
		return "", fmt.Errorf("export: save %s: %w", name, err)
	}
	e.logger.Info("note exported",
		slog.String("note_id", note.ID),
		slog.String("file", name),
		slog.Int("bytes", len(data)))
	return name, nil
}
