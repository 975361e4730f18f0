package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/goepfert/TX868-HTU21-LowPower/internal/journal"
	"github.com/goepfert/TX868-HTU21-LowPower/internal/sensor"
	"github.com/goepfert/TX868-HTU21-LowPower/internal/tx868"
	"github.com/goepfert/TX868-HTU21-LowPower/internal/types"
	"github.com/goepfert/TX868-HTU21-LowPower/internal/utils"
)

const pruneEvery = 100

// Publisher mirrors transmitted frames, e.g. to MQTT.
type Publisher interface {
	PublishTelemetry(t types.Telemetry) error
}

// Recorder persists transmitted frames.
type Recorder interface {
	Record(ctx context.Context, e journal.Entry) (int64, error)
	Prune(ctx context.Context, keep int) (int64, error)
}

// Station reads the sensor and keys one frame per Tick.
type Station struct {
	tx        *tx868.Transmitter
	src       sensor.Source
	recorder  Recorder
	publisher Publisher
	stationID string
	retention int
	logger    *slog.Logger

	seq int
	now func() time.Time
}

type StationOptions struct {
	StationID string
	Recorder  Recorder // optional
	Publisher Publisher
	Retention int // entries kept in the recorder, 0 keeps all
	Logger    *slog.Logger
}

func NewStation(tx *tx868.Transmitter, src sensor.Source, opts StationOptions) *Station {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Station{
		tx:        tx,
		src:       src,
		recorder:  opts.Recorder,
		publisher: opts.Publisher,
		stationID: opts.StationID,
		retention: opts.Retention,
		logger:    logger,
		now:       time.Now,
	}
}

// Tick encodes a fresh reading and transmits it. A reading that does not fit the
// frame is skipped; the frame keeps its previous content.
func (s *Station) Tick(ctx context.Context) error {
	r, err := s.src.Read(ctx)
	if err != nil {
		return fmt.Errorf("read sensor: %w", err)
	}

	if err := s.tx.SetData(r.Temperature, r.Humidity, r.Voltage); err != nil {
		if errors.Is(err, tx868.ErrOutOfRange) {
			s.logger.Warn("reading out of range, frame not sent",
				"temperature", r.Temperature,
				"humidity", r.Humidity,
				"voltage", r.Voltage,
				"error", err,
			)
			return nil
		}
		return err
	}

	start := s.now()
	sendErr := s.tx.Send()
	took := s.now().Sub(start)
	s.seq++

	frame := s.tx.Frame()
	s.logger.Info("frame transmitted",
		"seq", s.seq,
		"frame", frame.String(),
		"checksum", utils.Hex2(frame.Checksum()),
		"took", took,
	)

	// The frame is on the air; journal it even if ctx is already done.
	s.record(context.WithoutCancel(ctx), start, frame, took, sendErr)
	if sendErr == nil {
		s.publish(start, frame)
	}
	return sendErr
}

func (s *Station) record(ctx context.Context, at time.Time, frame tx868.Frame, took time.Duration, sendErr error) {
	if s.recorder == nil {
		return
	}
	e := journal.Entry{Timestamp: at, StationID: s.stationID, Frame: frame, Duration: took}
	if sendErr != nil {
		e.Err = sendErr.Error()
	}
	if _, err := s.recorder.Record(ctx, e); err != nil {
		s.logger.Warn("journal record failed", "error", err)
		return
	}
	if s.retention > 0 && s.seq%pruneEvery == 0 {
		if n, err := s.recorder.Prune(ctx, s.retention); err != nil {
			s.logger.Warn("journal prune failed", "error", err)
		} else if n > 0 {
			s.logger.Debug("journal pruned", "removed", n)
		}
	}
}

func (s *Station) publish(at time.Time, frame tx868.Frame) {
	if s.publisher == nil {
		return
	}
	seq := s.seq
	t := types.Telemetry{
		StationID: s.stationID,
		Timestamp: at,
		Sequence:  &seq,
		Address:   frame.Address(),
		DataType:  frame.DataType().String(),
		Frame:     frame.String(),
		Checksum:  frame.Checksum(),
	}
	if frame.DataType() == tx868.HTV {
		temp, hum, volt := frame.Temperature(), frame.Humidity(), frame.Voltage()
		t.Temperature, t.Humidity, t.Battery = &temp, &hum, &volt
	}
	if err := s.publisher.PublishTelemetry(t); err != nil {
		s.logger.Warn("telemetry mirror failed", "error", err)
	}
}
