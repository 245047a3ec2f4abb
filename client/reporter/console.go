package reporter

import (
	"fmt"

	"csb/client/stats"
	"csb/client/store"

	"go.uber.org/zap"
)

// DefaultDetailMax is the number of stores up to which every store is logged on its own
const DefaultDetailMax = 4

// allStores labels totals across stores
const allStores = "all"

// ConsoleLogger writes snapshots as structured log lines: one line per store and category
// while there are few stores, one total per category and an overall line with the latency
// histogram.
type ConsoleLogger struct {
	log       *zap.Logger
	detailMax int
}

// NewConsoleLogger logs per-store lines for at most detailMax stores; detailMax <= 0 means
// DefaultDetailMax
func NewConsoleLogger(log *zap.Logger, detailMax int) *ConsoleLogger {
	if detailMax <= 0 {
		detailMax = DefaultDetailMax
	}
	return &ConsoleLogger{log: log, detailMax: detailMax}
}

func (c *ConsoleLogger) LogMainHeader(stores []string, titles []string) {
	c.log.Info("reporting statistics", zap.Strings("stores", stores), zap.Strings("metrics", titles))
}

func (c *ConsoleLogger) Log(node *stats.Node) {
	final := node.Finalised()
	names := node.Stores()
	detailed := len(names) <= c.detailMax

	var everything []*stats.Stats
	for _, cat := range stats.Categories {
		var inCat []*stats.Stats
		for _, name := range names {
			s := node.Get(cat, name)
			if s == nil {
				continue
			}
			inCat = append(inCat, s)
			if detailed && active(s) {
				c.logStats(name, cat, final, s)
			}
		}
		if total := stats.Sum(inCat...); active(total) && (!detailed || len(inCat) > 1) {
			c.logStats(allStores, cat, final, total)
		}
		everything = append(everything, inCat...)
	}

	overall, err := node.Overall()
	if err != nil {
		overall = stats.Sum(everything...)
	}
	c.log.Info("overall", append(statsFields(overall),
		zap.Bool("final", final),
		zap.Strings("histogram", histogramLines(overall.Histogram())))...)
}

func (c *ConsoleLogger) logStats(name string, cat stats.Category, final bool, s *stats.Stats) {
	c.log.Info("stats", append(statsFields(s),
		zap.String("store", name),
		zap.Stringer("category", cat),
		zap.Bool("final", final))...)
}

func (c *ConsoleLogger) LogFootprint(name string, fp store.Footprint, processRSS int64) {
	c.log.Info("memory",
		zap.String("store", name),
		zap.Int64("heap_bytes", fp.Heap),
		zap.Int64("offheap_bytes", fp.OffHeap),
		zap.Int64("disk_bytes", fp.Disk),
		zap.Int64("process_rss_bytes", processRSS),
	)
}

func active(s *stats.Stats) bool {
	return s.TxnCount() > 0 || s.Exceptions() > 0
}

func statsFields(s *stats.Stats) []zap.Field {
	return []zap.Field{
		zap.Int64("txn", s.TxnCount()),
		zap.Float64("tps", s.TPS()),
		zap.Float64("avg_us", s.Average()),
		zap.Float64("min_us", s.Min()),
		zap.Float64("max_us", s.Max()),
		zap.Int64("exceptions", s.Exceptions()),
	}
}

// histogramLines renders each bucket as "label=count (pct%)"
func histogramLines(h *stats.Histogram) []string {
	total := h.Total()
	labels := stats.Labels()
	lines := make([]string, 0, len(labels))
	for i, count := range h.Counts() {
		pct := 0.0
		if total > 0 {
			pct = 100 * float64(count) / float64(total)
		}
		lines = append(lines, fmt.Sprintf("%s=%d (%.1f%%)", labels[i], count, pct))
	}
	return lines
}
