package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	AppEnv   string
	LogLevel slog.Level

	LineDriver string
	GPIOPin    string
	Address    uint8
	DataType   string
	Interval   time.Duration
	// Protocol overrides for receivers with other timing tolerances.
	BitPeriodUS  uint64
	ShortPulseUS uint64

	SensorSource      string
	I2CBus            string
	BME280Address     uint16
	SupplyVoltage     float64
	StaticTemperature float64
	StaticHumidity    float64
	DeviceStationID   string

	MQTTEnabled  bool
	MQTTBroker   string
	MQTTPort     int
	MQTTClientID string

	// JournalPath is the sqlite file recording sent frames; empty disables it.
	JournalPath      string
	JournalRetention int
}

func LoadFromEnv() (Config, error) {
	appEnv := env("APP_ENV", "dev")
	switch appEnv {
	case "dev", "prod":
	default:
		return Config{}, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", appEnv)
	}

	level, err := parseLogLevel(env("LOG_LEVEL", "info"))
	if err != nil {
		return Config{}, err
	}

	lineDriver := env("TX_LINE_DRIVER", "periph")
	switch lineDriver {
	case "periph", "sim":
	default:
		return Config{}, fmt.Errorf("invalid TX_LINE_DRIVER %q (allowed: periph, sim)", lineDriver)
	}

	addressStr := env("TX_ADDRESS", "2")
	address, err := strconv.ParseUint(addressStr, 0, 8)
	if err != nil {
		return Config{}, fmt.Errorf("invalid TX_ADDRESS %q: %w", addressStr, err)
	}

	dataType := strings.ToLower(env("TX_DATATYPE", "htv"))
	switch dataType {
	case "htv", "none":
	default:
		return Config{}, fmt.Errorf("invalid TX_DATATYPE %q (allowed: htv, none)", dataType)
	}

	intervalStr := env("TX_INTERVAL", "180s")
	interval, err := time.ParseDuration(intervalStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid TX_INTERVAL %q: %w", intervalStr, err)
	}
	if interval <= 0 {
		return Config{}, fmt.Errorf("TX_INTERVAL must be positive, got %v", interval)
	}

	bitPeriodStr := env("TX_BIT_PERIOD_US", "2000")
	bitPeriod, err := strconv.ParseUint(bitPeriodStr, 10, 32)
	if err != nil {
		return Config{}, fmt.Errorf("invalid TX_BIT_PERIOD_US %q: %w", bitPeriodStr, err)
	}

	shortPulseStr := env("TX_SHORT_PULSE_US", "600")
	shortPulse, err := strconv.ParseUint(shortPulseStr, 10, 32)
	if err != nil {
		return Config{}, fmt.Errorf("invalid TX_SHORT_PULSE_US %q: %w", shortPulseStr, err)
	}
	if shortPulse == 0 || shortPulse >= bitPeriod {
		return Config{}, fmt.Errorf("TX_SHORT_PULSE_US must be within (0, %d), got %d", bitPeriod, shortPulse)
	}

	sensorSource := env("SENSOR_SOURCE", "bme280")
	switch sensorSource {
	case "bme280", "static":
	default:
		return Config{}, fmt.Errorf("invalid SENSOR_SOURCE %q (allowed: bme280, static)", sensorSource)
	}

	bme280AddressStr := env("BME280_ADDRESS", "0x76")
	bme280Address, err := strconv.ParseUint(bme280AddressStr, 0, 16)
	if err != nil {
		return Config{}, fmt.Errorf("invalid BME280_ADDRESS %q: %w", bme280AddressStr, err)
	}

	supplyVoltage, err := envFloat("SUPPLY_VOLTAGE", "3.30")
	if err != nil {
		return Config{}, err
	}
	staticTemperature, err := envFloat("STATIC_TEMPERATURE", "20.0")
	if err != nil {
		return Config{}, err
	}
	staticHumidity, err := envFloat("STATIC_HUMIDITY", "50.0")
	if err != nil {
		return Config{}, err
	}

	mqttEnabledStr := env("MQTT_ENABLED", "false")
	mqttEnabled, err := strconv.ParseBool(mqttEnabledStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid MQTT_ENABLED %q: %w", mqttEnabledStr, err)
	}

	mqttPortStr := env("MQTT_PORT", "1883")
	mqttPort, err := strconv.Atoi(mqttPortStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid MQTT_PORT %q: %w", mqttPortStr, err)
	}

	retentionStr := env("JOURNAL_RETENTION", "10000")
	retention, err := strconv.Atoi(retentionStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid JOURNAL_RETENTION %q: %w", retentionStr, err)
	}
	if retention < 0 {
		return Config{}, fmt.Errorf("JOURNAL_RETENTION must not be negative, got %d", retention)
	}

	return Config{
		AppEnv:            appEnv,
		LogLevel:          level,
		LineDriver:        lineDriver,
		GPIOPin:           env("TX_GPIO_PIN", "GPIO17"),
		Address:           uint8(address),
		DataType:          dataType,
		Interval:          interval,
		BitPeriodUS:       bitPeriod,
		ShortPulseUS:      shortPulse,
		SensorSource:      sensorSource,
		I2CBus:            env("I2C_BUS", ""),
		BME280Address:     uint16(bme280Address),
		SupplyVoltage:     supplyVoltage,
		StaticTemperature: staticTemperature,
		StaticHumidity:    staticHumidity,
		DeviceStationID:   env("DEVICE_STATION_ID", "home"),
		MQTTEnabled:       mqttEnabled,
		MQTTBroker:        env("MQTT_BROKER", "localhost"),
		MQTTPort:          mqttPort,
		MQTTClientID:      env("MQTT_CLIENT_ID", "tx868"),
		JournalPath:       env("JOURNAL_PATH", ""),
		JournalRetention:  retention,
	}, nil
}

// env returns the trimmed variable or def when unset or blank.
func env(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envFloat(key, def string) (float64, error) {
	s := env(key, def)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return f, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}
