package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/goepfert/TX868-HTU21-LowPower/internal/config"
	"github.com/goepfert/TX868-HTU21-LowPower/internal/journal"
	"github.com/goepfert/TX868-HTU21-LowPower/internal/line"
	"github.com/goepfert/TX868-HTU21-LowPower/internal/mqtt"
	"github.com/goepfert/TX868-HTU21-LowPower/internal/sensor"
	"github.com/goepfert/TX868-HTU21-LowPower/internal/tx868"
)

func Run(ctx context.Context, cfg config.Config) error {
	logger := slog.Default()
	logger.Info("initializing transmitter",
		"line_driver", cfg.LineDriver,
		"gpio_pin", cfg.GPIOPin,
		"address", cfg.Address,
		"data_type", cfg.DataType,
		"interval", cfg.Interval,
		"sensor_source", cfg.SensorSource,
	)

	out, err := line.Open(cfg.LineDriver, cfg.GPIOPin, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := out.Close(); err != nil {
			logger.Error("line close", "error", err)
		}
	}()

	tx, err := NewTransmitter(cfg, out, logger)
	if err != nil {
		return err
	}

	src, err := sensor.Open(sensor.Options{
		Source:  cfg.SensorSource,
		I2CBus:  cfg.I2CBus,
		Address: cfg.BME280Address,
		Voltage: cfg.SupplyVoltage,
		Static:  sensor.Reading{Temperature: cfg.StaticTemperature, Humidity: cfg.StaticHumidity},
	})
	if err != nil {
		return fmt.Errorf("open sensor: %w", err)
	}
	defer src.Close()

	opts := StationOptions{
		StationID: cfg.DeviceStationID,
		Retention: cfg.JournalRetention,
		Logger:    logger,
	}

	if cfg.JournalPath != "" {
		j, err := journal.Open(ctx, cfg.JournalPath, logger)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		defer func() {
			if err := j.Close(); err != nil {
				logger.Error("journal close", "error", err)
			}
		}()
		opts.Recorder = j
	}

	if cfg.MQTTEnabled {
		client := mqtt.NewClient(cfg, logger)
		go func() {
			if err := client.Connect(ctx); err != nil {
				logger.Error("mqtt connect failed", "error", err)
			}
		}()
		defer client.Disconnect()
		opts.Publisher = client
	}

	station := NewStation(tx, src, opts)
	logger.Info("transmitter ready",
		"line", out.String(),
		"frame_duration", tx.Timing().FrameDuration(),
	)

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		if err := station.Tick(ctx); err != nil {
			logger.Error("transmission failed", "error", err)
		}

		select {
		case <-ctx.Done():
			logger.Info("transmitter shutting down")
			return nil
		case <-ticker.C:
		}
	}
}

// NewTransmitter binds a transmitter to out using the address, data type and
// timing from cfg.
func NewTransmitter(cfg config.Config, out tx868.Line, logger *slog.Logger, opts ...tx868.Option) (*tx868.Transmitter, error) {
	kind, err := tx868.ParseDataType(cfg.DataType)
	if err != nil {
		return nil, err
	}
	timing := tx868.Timing{Total: cfg.BitPeriodUS, Short: cfg.ShortPulseUS, NSync: tx868.NSync}

	tx, err := tx868.New(out, append([]tx868.Option{tx868.WithTiming(timing), tx868.WithLogger(logger)}, opts...)...)
	if err != nil {
		return nil, err
	}
	tx.SetDataType(kind)
	tx.SetAddress(cfg.Address)
	return tx, nil
}
