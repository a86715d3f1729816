package telemetry

import (
	"regexp"
	"strconv"
	"strings"
)

// LineKind is the classification of one telemetry line.
type LineKind int

// Line kinds.
const (
	LineUnrelated LineKind = iota
	LineTempHumidity
	LineBlockStart
	LineBlockInterior
	LineBlockTrailer
)

var lineKindNames = [...]string{
	LineUnrelated:     "unrelated",
	LineTempHumidity:  "temp-humidity",
	LineBlockStart:    "block-start",
	LineBlockInterior: "block-interior",
	LineBlockTrailer:  "block-trailer",
}

// String implements fmt.Stringer.
func (k LineKind) String() string {
	if k < 0 || int(k) >= len(lineKindNames) {
		return "unknown"
	}
	return lineKindNames[k]
}

// Line rules.
var (
	tempHumidityPattern = regexp.MustCompile(`T:\s*(-?[\d.]+)\s*C\s*H:\s*(-?[\d.]+)`)
	blockStartTokens    = []string{"Pred(", "Predictions:", "Received packet"}
	blockTrailerToken   = "RSSI"
)

// Field rules applied to the joined block text.
var (
	diseasedPattern = regexp.MustCompile(`Diseased:\s*([\d.]+)`)
	healthyPattern  = regexp.MustCompile(`Healthy:\s*([\d.]+)`)
	soilPattern     = regexp.MustCompile(`Soil.*State:\s*([\d.]+)`)
	rssiPattern     = regexp.MustCompile(`RSSI\s*(-?\d+)`)
)

// MatchTempHumidity extracts a temperature/humidity reading from line.
func MatchTempHumidity(line string) (TempHumidity, bool) {
	m := tempHumidityPattern.FindStringSubmatch(line)
	if m == nil {
		return TempHumidity{}, false
	}
	temp, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return TempHumidity{}, false
	}
	hum, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return TempHumidity{}, false
	}
	return TempHumidity{Temp: temp, Hum: hum}, true
}

// IsBlockStart reports whether line opens a prediction block.
func IsBlockStart(line string) bool {
	for _, token := range blockStartTokens {
		if strings.Contains(line, token) {
			return true
		}
	}
	return false
}

// IsBlockTrailer reports whether line closes an open prediction block.
func IsBlockTrailer(line string) bool {
	return strings.Contains(line, blockTrailerToken)
}

// Classify determines the kind of line given whether a block is open.
// A temperature/humidity reading always wins, even inside a block.
func Classify(line string, collecting bool) LineKind {
	if _, ok := MatchTempHumidity(line); ok {
		return LineTempHumidity
	}
	if collecting {
		if IsBlockTrailer(line) {
			return LineBlockTrailer
		}
		return LineBlockInterior
	}
	if IsBlockStart(line) {
		return LineBlockStart
	}
	return LineUnrelated
}

// ParsePrediction extracts prediction fields from the joined block text.
// Missing or malformed fields are left nil.
func ParsePrediction(text string) Prediction {
	var p Prediction
	p.Diseased = matchFloat(diseasedPattern, text)
	p.Healthy = matchFloat(healthyPattern, text)
	p.Soil = matchFloat(soilPattern, text)
	if m := rssiPattern.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseInt(m[1], 10, 32); err == nil {
			rssi := int32(v)
			p.RSSI = &rssi
		}
	}
	return p
}

func matchFloat(pattern *regexp.Regexp, text string) *float64 {
	m := pattern.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return nil
	}
	return &v
}
