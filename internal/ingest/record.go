package ingest

import (
	"fmt"
	"strconv"
	"strings"
)

// EngineStatus is the decoded error-code field of a telemetry record.
type EngineStatus int

const (
	StatusOK EngineStatus = iota
	StatusOverheat
	StatusSensorFailure
	StatusUnknown
)

func (s EngineStatus) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusOverheat:
		return "overheat"
	case StatusSensorFailure:
		return "sensor_failure"
	default:
		return "unknown"
	}
}

// Record is one decoded telemetry line.
type Record struct {
	VehicleID int
	Timestamp string
	Speed     float64
	EngineOn  bool
	Status    EngineStatus
}

// ParseRecord decodes a comma-delimited line:
//
//	<vehicleId>,<timestamp>,<speed>,<engineOn>,<errorCode>
//
// engineOn accepts 1/ON/ENGINE_OK as on and 0/OFF as off; errorCode accepts
// OK/ENGINE_OK, ENGINE_OVERHEAT, SENSOR_FAILURE/ENGINE_SENSOR_FAIL, with
// anything else mapped to the unknown status.
func ParseRecord(line string) (Record, error) {
	fields := strings.Split(line, ",")
	if len(fields) != 5 {
		return Record{}, fmt.Errorf("expected 5 fields, got %d", len(fields))
	}

	var rec Record
	id, err := strconv.Atoi(strings.TrimSpace(fields[0]))
	if err != nil {
		return Record{}, fmt.Errorf("vehicle id: %w", err)
	}
	rec.VehicleID = id
	rec.Timestamp = strings.TrimSpace(fields[1])

	speed, err := strconv.ParseFloat(strings.TrimSpace(fields[2]), 64)
	if err != nil {
		return Record{}, fmt.Errorf("speed: %w", err)
	}
	rec.Speed = speed

	switch strings.TrimSpace(fields[3]) {
	case "1", "ON", "ENGINE_OK":
		rec.EngineOn = true
	case "0", "OFF":
		rec.EngineOn = false
	default:
		return Record{}, fmt.Errorf("invalid engine field %q", fields[3])
	}

	switch strings.TrimSpace(fields[4]) {
	case "ENGINE_OK", "OK":
		rec.Status = StatusOK
	case "ENGINE_OVERHEAT":
		rec.Status = StatusOverheat
	case "SENSOR_FAILURE", "ENGINE_SENSOR_FAIL":
		rec.Status = StatusSensorFailure
	default:
		rec.Status = StatusUnknown
	}

	return rec, nil
}

// Format renders a record in the relay's wire shape.
func (r Record) Format() string {
	engine := "OFF"
	if r.EngineOn {
		engine = "ON"
	}
	return fmt.Sprintf("ID:%d,Time:%s,Speed:%.2f,Engine:%s,ErrorCode:%d",
		r.VehicleID, r.Timestamp, r.Speed, engine, int(r.Status))
}
