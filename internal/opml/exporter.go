package opml

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/glabrego/podnotes/internal/logging"
	"github.com/glabrego/podnotes/internal/podcast"
	"github.com/glabrego/podnotes/internal/vault"
)

type Exporter struct {
	Vault    vault.Vault
	Notifier Notifier
	Logger   *slog.Logger
}

// Export writes feeds as OPML to a new file at path inside the vault. An
// existing file is left untouched and reported.
func (e *Exporter) Export(feeds []podcast.Feed, path string) error {
	logger := logging.NewComponentLogger(e.Logger, "opml")

	text, err := Serialize(feeds)
	if err != nil {
		e.notify("Unable to export podcasts")
		return err
	}
	if err := e.Vault.Create(path, text); err != nil {
		switch {
		case errors.Is(err, vault.ErrFolderMissing):
			e.notify("Unable to export podcasts: folder does not exist")
		case errors.Is(err, vault.ErrExists):
			e.notify("Unable to export podcasts: file already exists")
		default:
			e.notify("Unable to export podcasts")
		}
		logger.Warn("opml export failed",
			logging.Event("opml_export_failed"),
			logging.String("path", path),
			logging.Error(err))
		return err
	}
	e.notify(fmt.Sprintf("Exported %d podcasts to %s", len(feeds), path))
	return nil
}

func (e *Exporter) notify(message string) {
	if e.Notifier != nil {
		e.Notifier.Notify(message)
	}
}
