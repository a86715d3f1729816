package telemetry

import "fmt"

// Event types of telemetry records.
const (
	TempHumidityType = "temp_hum"
	PredictionType   = "prediction"
)

// TempHumidity is a standalone sensor reading.
type TempHumidity struct {
	Temp float64 `json:"temp" cbor:"temp"`
	Hum  float64 `json:"hum" cbor:"hum"`
}

// EventType implements event.Event.
func (r *TempHumidity) EventType() string { return TempHumidityType }

// String implements fmt.Stringer.
func (r *TempHumidity) String() string {
	return fmt.Sprintf("%.1f °C %.1f %%", r.Temp, r.Hum)
}

// Prediction is a decoded prediction report. Fields absent from the report
// are nil. Temp and Hum carry the latest standalone reading, if any.
type Prediction struct {
	Diseased *float64 `json:"diseased" cbor:"diseased"`
	Healthy  *float64 `json:"healthy" cbor:"healthy"`
	Soil     *float64 `json:"soil" cbor:"soil"`
	RSSI     *int32   `json:"rssi" cbor:"rssi"`
	Temp     *float64 `json:"temp" cbor:"temp"`
	Hum      *float64 `json:"hum" cbor:"hum"`
}

// EventType implements event.Event.
func (p *Prediction) EventType() string { return PredictionType }

// String implements fmt.Stringer.
func (p *Prediction) String() string {
	return fmt.Sprintf("diseased=%s healthy=%s soil=%s rssi=%s temp=%s hum=%s",
		fmtFloat(p.Diseased), fmtFloat(p.Healthy), fmtFloat(p.Soil),
		fmtInt(p.RSSI), fmtFloat(p.Temp), fmtFloat(p.Hum))
}

func fmtFloat(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%g", *v)
}

func fmtInt(v *int32) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *v)
}
