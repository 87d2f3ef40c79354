package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/oshokin/alarm-scheduler/internal/repository/journal"
	"github.com/oshokin/alarm-scheduler/internal/view"
)

// errJournalDisabled is returned when no journal path is configured.
var errJournalDisabled = errors.New("journal_path is not configured")

// PrintJournal renders the most recent journal entries, newest first.
func PrintJournal(ctx context.Context, opts *Options, limit int) error {
	settings, err := loadSettings(opts)
	if err != nil {
		return err
	}

	if settings.JournalPath == "" {
		return errJournalDisabled
	}

	repo, err := journal.Open(ctx, settings.JournalPath)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}

	defer func() { _ = repo.Close() }()

	records, err := repo.Recent(ctx, limit)
	if err != nil {
		return fmt.Errorf("read journal: %w", err)
	}

	var out io.Writer = os.Stdout
	if opts.Stdout != nil {
		out = opts.Stdout
	}

	view.Journal(out, journalRows(records))

	return nil
}

func journalRows(records []journal.Record) []view.JournalRow {
	rows := make([]view.JournalRow, 0, len(records))

	for _, r := range records {
		row := view.JournalRow{
			At:      r.At,
			Payload: r.Payload,
			RunID:   r.RunID,
			Kind:    string(r.Kind),
			ID:      r.ID,
		}

		if r.AlarmID.Valid {
			row.AlarmID = &r.AlarmID.Int64
		}

		if r.GroupID.Valid {
			row.GroupID = &r.GroupID.Int64
		}

		rows = append(rows, row)
	}

	return rows
}
