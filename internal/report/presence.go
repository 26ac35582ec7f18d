// Package report builds the "who is inside" presence report and keeps a
// CSV copy of it in object storage, refreshed on every change
// notification. This replaces the spreadsheet mirror the system used to
// maintain.
package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"time"

	"github.com/presenze/apiserver/internal/mq"
	"github.com/presenze/apiserver/internal/storage"
	"github.com/presenze/apiserver/types"
	"github.com/rs/zerolog"
)

// Source provides the rows of the presence report.
type Source interface {
	Presence(ctx context.Context) ([]types.Presence, error)
}

// Exporter listens for entry changes and rebuilds the full report each
// time one arrives. Rebuilding everything is deliberate: the payload
// carries no detail, and the report is small.
type Exporter struct {
	src       Source
	store     storage.ObjectStorage
	broker    mq.Backend
	channel   string
	objectKey string
	loc       *time.Location
	log       zerolog.Logger
}

func NewExporter(
	src Source,
	store storage.ObjectStorage,
	broker mq.Backend,
	channel, objectKey, timezone string,
	log zerolog.Logger,
) *Exporter {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		log.Warn().Str("timezone", timezone).Msg("unknown timezone, falling back to UTC")
		loc = time.UTC
	}
	return &Exporter{
		src:       src,
		store:     store,
		broker:    broker,
		channel:   channel,
		objectKey: objectKey,
		loc:       loc,
		log:       log,
	}
}

// Run exports once, then blocks consuming change notifications until ctx
// is done. Export failures nack the message so the broker redelivers it.
func (e *Exporter) Run(ctx context.Context) error {
	if err := e.store.EnsureBucket(ctx); err != nil {
		return err
	}

	if err := e.Export(ctx); err != nil {
		e.log.Warn().Err(err).Msg("initial presence export failed")
	}

	return e.broker.Subscribe(ctx, e.channel, func(ctx context.Context, _ mq.Message) error {
		return e.Export(ctx)
	})
}

// Export queries the presence rows and uploads the rendered CSV.
func (e *Exporter) Export(ctx context.Context) error {
	rows, err := e.src.Presence(ctx)
	if err != nil {
		return err
	}

	data := Render(rows, e.loc)
	if err := e.store.Put(ctx, e.objectKey, bytes.NewReader(data), int64(len(data)), "text/csv"); err != nil {
		return err
	}

	e.log.Info().Int("rows", len(rows)).Str("key", e.objectKey).Msg("presence report exported")
	return nil
}

// Render encodes the rows as CSV with a header line. Event times are
// shown in the exporter's timezone as "HH:MM DD/MM/YYYY", the format the
// front desk expects.
func Render(rows []types.Presence, loc *time.Location) []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	_ = w.Write([]string{"barcode", "first_name", "last_name", "event_time"})
	for _, row := range rows {
		_ = w.Write([]string{
			row.Barcode,
			row.FirstName,
			row.LastName,
			row.EventTime.In(loc).Format("15:04 02/01/2006"),
		})
	}
	w.Flush()
	return buf.Bytes()
}
