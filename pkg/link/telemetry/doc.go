// Package telemetry decodes the textual telemetry link.
package telemetry

// The sensor node prints human readable lines. A standalone line such as
//
//	T: 23.5 C H: 60.2
//
// carries a temperature/humidity reading. A prediction report spans several
// lines, starting with a line containing "Pred(", "Predictions:" or
// "Received packet" and ending with a line containing "RSSI":
//
//	Predictions:
//	Diseased: 0.91
//	Healthy: 0.09
//	Soil Moisture State: 1
//	RSSI -42
//
// Only a report terminated by its RSSI trailer yields a Prediction.
