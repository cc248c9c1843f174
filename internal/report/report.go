package report

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/tinytelemetry/logstats/internal/model"
)

// Render writes snap in the fixed report format:
//
//	File size: <total bytes>
//	<code>: <count>
//
// Status lines are ascending by code and omit zero counts.
func Render(w io.Writer, snap model.Snapshot) error {
	var buf bytes.Buffer
	writeReport(&buf, snap)
	_, err := w.Write(buf.Bytes())
	return err
}

func writeReport(buf *bytes.Buffer, snap model.Snapshot) {
	fmt.Fprintf(buf, "File size: %d\n", snap.TotalBytes)
	for _, code := range model.StatusCodes {
		if n := snap.Count(code); n > 0 {
			fmt.Fprintf(buf, "%d: %d\n", code, n)
		}
	}
}

// Reporter emits a periodic report every model.ReportCadence accepted
// records and one final report at shutdown.
type Reporter struct {
	w io.Writer

	// OnEmit, when set, is called after each report with its kind
	// ("periodic" or "final").
	OnEmit func(kind string)

	finalOnce sync.Once
}

// NewReporter creates a Reporter writing to w.
func NewReporter(w io.Writer) *Reporter {
	return &Reporter{w: w}
}

// Observe emits a periodic report when snap lands on the cadence boundary.
func (r *Reporter) Observe(snap model.Snapshot) error {
	if snap.Accepted == 0 || snap.Accepted%model.ReportCadence != 0 {
		return nil
	}
	return r.emit("periodic", snap)
}

// Final emits the shutdown report. Only the first call writes anything.
func (r *Reporter) Final(snap model.Snapshot) error {
	var err error
	r.finalOnce.Do(func() {
		err = r.emit("final", snap)
	})
	return err
}

func (r *Reporter) emit(kind string, snap model.Snapshot) error {
	if err := Render(r.w, snap); err != nil {
		return fmt.Errorf("write %s report: %w", kind, err)
	}
	if r.OnEmit != nil {
		r.OnEmit(kind)
	}
	return nil
}
