package reporter

import (
	"encoding/csv"
	"io"
	"math"
	"os"
	"strconv"
	"sync"
	"time"

	"csb/client/stats"
)

// CSVLogger writes one row per store and category for every snapshot
type CSVLogger struct {
	mu     sync.Mutex
	writer *csv.Writer
	closer io.Closer
	err    error
}

// NewCSVLogger creates filename and writes snapshots into it
func NewCSVLogger(filename string) (*CSVLogger, error) {
	file, err := os.Create(filename)
	if err != nil {
		return nil, err
	}
	l := NewCSVLoggerWriter(file)
	l.closer = file
	return l, nil
}

// NewCSVLoggerWriter writes snapshots into w
func NewCSVLoggerWriter(w io.Writer) *CSVLogger {
	return &CSVLogger{writer: csv.NewWriter(w)}
}

func csvHeader() []string {
	header := []string{
		"unix_timestamp_nano",
		"phase",
		"store",
		"category",
		"txn",
		"tps",
		"avg_us",
		"min_us",
		"max_us",
		"exceptions",
	}
	return append(header, stats.Labels()...)
}

func (l *CSVLogger) LogMainHeader(_ []string, _ []string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.write(csvHeader())
}

func (l *CSVLogger) Log(node *stats.Node) {
	l.mu.Lock()
	defer l.mu.Unlock()

	phase := "period"
	if node.Finalised() {
		phase = "final"
	}
	now := strconv.FormatInt(time.Now().UnixNano(), 10)
	node.Each(func(cat stats.Category, name string, s *stats.Stats) {
		row := []string{
			now,
			phase,
			name,
			cat.String(),
			strconv.FormatInt(s.TxnCount(), 10),
			formatFloat(s.TPS()),
			formatFloat(s.Average()),
			formatFloat(s.Min()),
			formatFloat(s.Max()),
			strconv.FormatInt(s.Exceptions(), 10),
		}
		for _, c := range s.Histogram().Counts() {
			row = append(row, strconv.FormatInt(c, 10))
		}
		l.write(row)
	})
	l.writer.Flush()
	if err := l.writer.Error(); err != nil && l.err == nil {
		l.err = err
	}
}

func (l *CSVLogger) write(row []string) {
	if err := l.writer.Write(row); err != nil && l.err == nil {
		l.err = err
	}
}

// Err returns the first write error, if any
func (l *CSVLogger) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

func (l *CSVLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.writer.Flush()
	if err := l.writer.Error(); err != nil {
		return err
	}
	if l.closer != nil {
		return l.closer.Close()
	}
	return l.err
}

func formatFloat(f float64) string {
	if math.IsNaN(f) {
		return ""
	}
	return strconv.FormatFloat(f, 'f', 3, 64)
}
