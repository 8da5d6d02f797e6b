package domain

import "time"

// MeterReading is one raw consumption reading of a metering point.
// Corresponds to meter_readings table in PostgreSQL.
type MeterReading struct {
	CommunityID          int64     // energy community the metering point belongs to
	MeteringPointID      string    // metering point number
	Timestamp            time.Time // reading interval start (UTC)
	Consumption          float64   // kWh drawn in the interval
	ConsumptionCommunity *float64  // kWh covered by community generation, NULL if not reported
}

// TemperatureReading is an hourly air temperature for a community location.
// Corresponds to temperature_readings table in PostgreSQL.
type TemperatureReading struct {
	CommunityID int64     // energy community
	Timestamp   time.Time // hour start (UTC)
	Temperature float64   // degrees Celsius
}

// HourlyValue is one point of an hourly aggregate.
type HourlyValue struct {
	Hour  time.Time
	Value float64
}
