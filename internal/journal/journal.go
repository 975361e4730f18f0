// Package journal keeps a local sqlite record of every frame put on the air.
package journal

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/goepfert/TX868-HTU21-LowPower/internal/tx868"
)

//go:embed sql/insert-transmission.sql
var insertTransmissionSQL string

//go:embed sql/get-latest-transmissions.sql
var getLatestTransmissionsSQL string

//go:embed sql/count-transmissions.sql
var countTransmissionsSQL string

//go:embed sql/prune-transmissions.sql
var pruneTransmissionsSQL string

// Entry is one journaled transmission.
type Entry struct {
	ID        int64
	Timestamp time.Time
	StationID string
	Frame     tx868.Frame
	Duration  time.Duration
	// Err is the line error reported by Send, empty on success.
	Err string
}

type Journal struct {
	db *sql.DB
}

func New(db *sql.DB) *Journal {
	return &Journal{db: db}
}

// Record appends e and returns its id.
func (j *Journal) Record(ctx context.Context, e Entry) (int64, error) {
	var errText any
	if e.Err != "" {
		errText = e.Err
	}
	f := e.Frame
	var temp, hum, volt any
	if f.DataType() == tx868.HTV {
		temp, hum, volt = f.Temperature(), f.Humidity(), f.Voltage()
	}

	res, err := j.db.ExecContext(ctx, insertTransmissionSQL,
		e.Timestamp.UTC().Format(time.RFC3339Nano),
		e.StationID,
		int(f.Address()),
		int(f.DataType()),
		f.Bytes(),
		int(f.Checksum()),
		temp, hum, volt,
		e.Duration.Microseconds(),
		errText,
	)
	if err != nil {
		return 0, fmt.Errorf("insert transmission: %w", err)
	}
	return res.LastInsertId()
}

// Latest returns up to limit entries, newest first.
func (j *Journal) Latest(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx, getLatestTransmissionsSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("query transmissions: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close transmissions rows", "error", err)
		}
	}()

	var out []Entry
	for rows.Next() {
		var (
			e        Entry
			ts       string
			frame    []byte
			checksum int
			us       int64
		)
		if err := rows.Scan(&e.ID, &ts, &e.StationID, &frame, &checksum, &us, &e.Err); err != nil {
			return nil, err
		}
		if e.Timestamp, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return nil, fmt.Errorf("transmission %d: timestamp %q: %w", e.ID, ts, err)
		}
		if len(frame) != tx868.Length {
			return nil, fmt.Errorf("transmission %d: frame has %d bytes", e.ID, len(frame))
		}
		copy(e.Frame[:], frame)
		if byte(checksum) != e.Frame.Checksum() {
			return nil, fmt.Errorf("transmission %d: stored checksum %d does not match frame", e.ID, checksum)
		}
		e.Duration = time.Duration(us) * time.Microsecond
		out = append(out, e)
	}
	return out, rows.Err()
}

func (j *Journal) Count(ctx context.Context) (int, error) {
	var n int
	if err := j.db.QueryRowContext(ctx, countTransmissionsSQL).Scan(&n); err != nil {
		return 0, fmt.Errorf("count transmissions: %w", err)
	}
	return n, nil
}

// Prune deletes all but the newest keep entries and returns how many were removed.
func (j *Journal) Prune(ctx context.Context, keep int) (int64, error) {
	res, err := j.db.ExecContext(ctx, pruneTransmissionsSQL, keep)
	if err != nil {
		return 0, fmt.Errorf("prune transmissions: %w", err)
	}
	return res.RowsAffected()
}

func (j *Journal) Close() error {
	if j.db == nil {
		return nil
	}
	return j.db.Close()
}
