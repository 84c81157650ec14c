package calibration

import (
	"strconv"
	"strings"
	"time"

	"github.com/ayusman/glovecore/internal/codec"
	"github.com/ayusman/glovecore/internal/hand"
)

// DataPoint is one recorded calibration sample.
type DataPoint struct {
	Stage  int       // Index of the stage being held, -1 outside guided stages
	Label  string    // Name of the stage
	Time   time.Time // When the frame was captured
	Values []float32 // Raw sensor values
	// Angles is the pose estimate for the frame, if one was available.
	Angles *hand.HandAngles
}

func newDataPoint(stage int, label string, at time.Time, values []float32, angles *hand.HandAngles) DataPoint {
	p := DataPoint{
		Stage:  stage,
		Label:  label,
		Time:   at,
		Values: append([]float32(nil), values...),
	}
	if angles != nil {
		a := *angles
		p.Angles = &a
	}
	return p
}

// LogLine renders the point as stage, label, unix milliseconds and the raw
// values separated by delim. When a pose estimate is present its joint angle
// triplets follow as [x,y,z] fields, finger by finger.
func (p DataPoint) LogLine(delim string) string {
	fields := make([]string, 0, 3+len(p.Values)+hand.NumFingers*hand.JointsPerFinger)
	fields = append(fields, strconv.Itoa(p.Stage), p.Label, strconv.FormatInt(p.Time.UnixMilli(), 10))
	for _, v := range p.Values {
		fields = append(fields, codec.FormatFloat(v))
	}
	if p.Angles != nil {
		for _, joints := range p.Angles {
			for _, a := range joints {
				fields = append(fields, codec.FormatVect(a))
			}
		}
	}
	return strings.Join(fields, delim)
}

// appendBounded appends p and drops the oldest points beyond limit.
func appendBounded(points []DataPoint, p DataPoint, limit int) []DataPoint {
	points = append(points, p)
	if over := len(points) - limit; over > 0 {
		points = append(points[:0], points[over:]...)
	}
	return points
}
