package telemetry

import (
	"strings"

	"github.com/golang/glog"

	"github.com/robotalks/sensorlink/pkg/event"
)

// blockState is either idle or collecting.
type blockState interface {
	feed(a *Accumulator, line string) event.Event
}

type idle struct{}

type collecting struct {
	lines []string
}

// Accumulator turns telemetry lines into events.
// It is not safe for concurrent use; one reader goroutine owns it.
type Accumulator struct {
	state blockState
	last  *TempHumidity
}

// NewAccumulator creates an idle Accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{state: idle{}}
}

// Feed consumes one trimmed line and returns the produced event, if any:
// a *TempHumidity for a standalone reading or a *Prediction when a block
// is closed by its trailer.
func (a *Accumulator) Feed(line string) event.Event {
	if a.state == nil {
		a.state = idle{}
	}
	if reading, ok := MatchTempHumidity(line); ok {
		a.last = &reading
		ev := reading
		return &ev
	}
	return a.state.feed(a, line)
}

// Collecting reports whether a prediction block is open.
func (a *Accumulator) Collecting() bool {
	_, ok := a.state.(*collecting)
	return ok
}

// LastReading returns the latest standalone reading.
func (a *Accumulator) LastReading() (TempHumidity, bool) {
	if a.last == nil {
		return TempHumidity{}, false
	}
	return *a.last, true
}

// Reset discards an open block, e.g. at end of stream.
// It reports whether a block was discarded.
func (a *Accumulator) Reset() bool {
	discarded := a.Collecting()
	if discarded {
		glog.V(2).Infof("discard unterminated prediction block")
	}
	a.state = idle{}
	return discarded
}

func (idle) feed(a *Accumulator, line string) event.Event {
	if IsBlockStart(line) {
		a.state = &collecting{lines: []string{line}}
	}
	return nil
}

func (c *collecting) feed(a *Accumulator, line string) event.Event {
	c.lines = append(c.lines, line)
	if !IsBlockTrailer(line) {
		return nil
	}
	a.state = idle{}
	p := ParsePrediction(strings.Join(c.lines, " "))
	if a.last != nil {
		temp, hum := a.last.Temp, a.last.Hum
		p.Temp, p.Hum = &temp, &hum
	}
	return &p
}
