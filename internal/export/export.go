// Package export writes simulation traces in interchange formats.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/GoSim-25-26J-441/pacing-core/pkg/models"
)

// Format names an export encoding
type Format string

const (
	FormatCSV Format = "csv"
	FormatFIT Format = "fit"
)

// UnsupportedFormatError indicates an unknown export format
type UnsupportedFormatError struct {
	Format string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported export format: %q", e.Format)
}

// ParseFormat validates a format name. An empty name means CSV.
func ParseFormat(name string) (Format, error) {
	switch Format(name) {
	case FormatCSV, "":
		return FormatCSV, nil
	case FormatFIT:
		return FormatFIT, nil
	default:
		return "", &UnsupportedFormatError{Format: name}
	}
}

// ContentType returns the MIME type for f.
func (f Format) ContentType() string {
	if f == FormatFIT {
		return "application/vnd.ant.fit"
	}
	return "text/csv"
}

// Extension returns the file extension for f, with the dot.
func (f Format) Extension() string {
	return "." + string(f)
}

// Write encodes records in format f. start anchors FIT timestamps.
func Write(w io.Writer, f Format, records []models.TraceRecord, summary models.RunSummary, start time.Time) error {
	switch f {
	case FormatCSV:
		return WriteCSV(w, records)
	case FormatFIT:
		return WriteFIT(w, records, summary, start)
	default:
		return &UnsupportedFormatError{Format: string(f)}
	}
}

// WriteCSV writes a header row of trace columns followed by one row per record.
func WriteCSV(w io.Writer, records []models.TraceRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(models.TraceColumns); err != nil {
		return err
	}
	row := make([]string, len(models.TraceColumns))
	for _, r := range records {
		for i, v := range []float64{r.Time, r.Distance, r.Velocity, r.Energy, r.Power} {
			row[i] = strconv.FormatFloat(v, 'f', 6, 64)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
