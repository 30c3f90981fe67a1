package batch

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"
)

// Format writes the per-image results as text, json or csv.
func (r *Result) Format(w io.Writer, format string) error {
	switch format {
	case "json":
		return r.formatJSON(w)
	case "csv":
		return r.formatCSV(w)
	case "text", "":
		return r.formatText(w)
	default:
		return ValidateResultFormat(format)
	}
}

func (r *Result) formatJSON(w io.Writer) error {
	out := struct {
		Matrix [][]float64  `json:"matrix"`
		Images []ItemResult `json:"images"`
	}{
		Matrix: r.Matrix.Rows(),
		Images: r.Items,
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func (r *Result) formatCSV(w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{
		"input", "output", "src_width", "src_height", "width", "height", "duration_ms", "error",
	}); err != nil {
		return err
	}
	for _, it := range r.Items {
		if err := writer.Write([]string{
			it.Input,
			it.Output,
			strconv.Itoa(it.SrcWidth),
			strconv.Itoa(it.SrcHeight),
			strconv.Itoa(it.Width),
			strconv.Itoa(it.Height),
			strconv.FormatFloat(it.DurationMs, 'f', 3, 64),
			it.Error,
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func (r *Result) formatText(w io.Writer) error {
	for _, it := range r.Items {
		var err error
		if it.Error != "" {
			_, err = fmt.Fprintf(w, "FAIL %s: %s\n", it.Input, it.Error)
		} else {
			_, err = fmt.Fprintf(w, "ok   %s (%dx%d) -> %s (%dx%d) %.1f ms\n",
				it.Input, it.SrcWidth, it.SrcHeight, it.Output, it.Width, it.Height, it.DurationMs)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// WriteStats prints processing statistics.
func (r *Result) WriteStats(w io.Writer) error {
	total := len(r.Items)
	failed := r.Failed()
	avg, throughput := time.Duration(0), 0.0
	if total > 0 {
		avg = r.Duration / time.Duration(total)
	}
	if secs := r.Duration.Seconds(); secs > 0 {
		throughput = float64(total) / secs
	}

	_, err := fmt.Fprintf(w, "\nProcessing Statistics:\n"+
		"  Total images: %d\n"+
		"  Warped: %d\n"+
		"  Failed: %d\n"+
		"  Jobs: %d\n"+
		"  Duration: %v\n"+
		"  Avg per image: %v\n"+
		"  Throughput: %.1f images/sec\n",
		total, total-failed, failed, r.Jobs,
		r.Duration.Round(time.Millisecond), avg.Round(time.Millisecond), throughput)
	return err
}
