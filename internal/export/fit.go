package export

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/GoSim-25-26J-441/pacing-core/pkg/models"
	"github.com/muktihari/fit/encoder"
	"github.com/muktihari/fit/profile/mesgdef"
	"github.com/muktihari/fit/profile/typedef"
	"github.com/muktihari/fit/proto"
)

// WriteFIT encodes the trace as a FIT activity: file id, one record per
// trace row, then timer-stop event, lap and session summaries.
// FIT timestamps have one-second resolution; start anchors the trace.
func WriteFIT(w io.Writer, records []models.TraceRecord, summary models.RunSummary, start time.Time) error {
	if len(records) == 0 {
		return fmt.Errorf("fit export: trace is empty")
	}
	start = start.UTC().Truncate(time.Second)

	fit := proto.FIT{}
	fileID := mesgdef.FileId{
		Type:         typedef.FileActivity,
		Manufacturer: typedef.ManufacturerDevelopment,
		Product:      0,
		SerialNumber: 1,
		TimeCreated:  start,
	}
	fit.Messages = append(fit.Messages, fileID.ToMesg(nil))

	for _, r := range records {
		rec := mesgdef.Record{
			Timestamp:     at(start, r.Time),
			Distance:      scaled(r.Distance, 100),  // cm
			EnhancedSpeed: scaled(r.Velocity, 1000), // mm/s
			Power:         uint16(math.Min(math.Max(math.Round(r.Power), 0), math.MaxUint16-1)),
		}
		fit.Messages = append(fit.Messages, rec.ToMesg(nil))
	}

	last := records[len(records)-1]
	end := at(start, last.Time)
	elapsed := scaled(last.Time, 1000) // ms
	distance := scaled(last.Distance, 100)
	avgPower := uint16(math.Min(math.Max(math.Round(summary.AvgPower), 0), math.MaxUint16-1))

	event := mesgdef.Event{
		Timestamp: end,
		Event:     typedef.EventTimer,
		EventType: typedef.EventTypeStopAll,
	}
	fit.Messages = append(fit.Messages, event.ToMesg(nil))

	lap := mesgdef.Lap{
		Timestamp:        end,
		StartTime:        start,
		TotalElapsedTime: elapsed,
		TotalTimerTime:   elapsed,
		TotalDistance:    distance,
		AvgPower:         avgPower,
		Event:            typedef.EventLap,
		EventType:        typedef.EventTypeStop,
	}
	fit.Messages = append(fit.Messages, lap.ToMesg(nil))

	session := mesgdef.Session{
		Timestamp:        end,
		StartTime:        start,
		TotalElapsedTime: elapsed,
		TotalTimerTime:   elapsed,
		TotalDistance:    distance,
		AvgPower:         avgPower,
		Sport:            typedef.SportCycling,
		SubSport:         typedef.SubSportVirtualActivity,
		Event:            typedef.EventSession,
		EventType:        typedef.EventTypeStop,
		Trigger:          typedef.SessionTriggerActivityEnd,
	}
	fit.Messages = append(fit.Messages, session.ToMesg(nil))

	if err := encoder.New(w).Encode(&fit); err != nil {
		return fmt.Errorf("fit export: %w", err)
	}
	return nil
}

func at(start time.Time, seconds float64) time.Time {
	return start.Add(time.Duration(math.Round(seconds)) * time.Second)
}

// scaled converts v to a FIT fixed-point integer, saturating below the
// invalid sentinel.
func scaled(v, scale float64) uint32 {
	return uint32(math.Min(math.Max(math.Round(v*scale), 0), math.MaxUint32-1))
}
