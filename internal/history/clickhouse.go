package history

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"NetSentinel/internal/config"
	"NetSentinel/internal/model"
)

const createTableStatement = `
CREATE TABLE IF NOT EXISTS verdicts (
    ID                String,
    Timestamp         DateTime64(3),
    SrcIP             String,
    DstIP             String,
    SrcPort           UInt16,
    DstPort           UInt16,
    Protocol          UInt8,
    ThreatDetected    UInt8,
    AttackType        String,
    Confidence        Float64,
    Severity          String,
    RecommendedAction String,
    DetectionMethod   String,
    Evidence          String,
    RefinementPath    String
) ENGINE = MergeTree()
PARTITION BY toYYYYMM(Timestamp)
ORDER BY (Timestamp, SrcIP);
`

// ClickHouseWriter persists every verdict, including throttled ones, for the
// history and audit collaborators. Writes are buffered and flushed in batches
// either when the batch fills or on the flush interval.
type ClickHouseWriter struct {
	conn          driver.Conn
	in            chan *model.Verdict
	batchSize     int
	flushInterval time.Duration
	wg            sync.WaitGroup
}

// NewClickHouseWriter connects to ClickHouse, ensures the verdicts table
// exists, and starts the background flush loop.
func NewClickHouseWriter(cfg config.ClickHouseConfig, flushInterval time.Duration, batchSize int) (*ClickHouseWriter, error) {
	conn, err := Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}

	if err := conn.Exec(context.Background(), createTableStatement); err != nil {
		return nil, fmt.Errorf("failed to create table: %w", err)
	}
	log.Println("Successfully connected to ClickHouse and ensured verdicts table exists.")

	w := &ClickHouseWriter{
		conn:          conn,
		in:            make(chan *model.Verdict, 4*batchSize),
		batchSize:     batchSize,
		flushInterval: flushInterval,
	}
	w.wg.Add(1)
	go w.run()
	return w, nil
}

// Connect opens a ClickHouse connection for the given config.
func Connect(cfg config.ClickHouseConfig) (driver.Conn, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, err
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping clickhouse: %w", err)
	}

	return conn, nil
}

// Write enqueues a verdict for persistence. A full buffer is reported rather
// than silently dropped.
func (w *ClickHouseWriter) Write(v *model.Verdict) error {
	select {
	case w.in <- v:
		return nil
	default:
		return fmt.Errorf("verdict history buffer full, dropping verdict %s", v.ID)
	}
}

// Close flushes buffered verdicts and shuts the writer down.
func (w *ClickHouseWriter) Close() {
	close(w.in)
	w.wg.Wait()
	w.conn.Close()
}

func (w *ClickHouseWriter) run() {
	defer w.wg.Done()
	ticker := time.NewTicker(w.flushInterval)
	defer ticker.Stop()

	pending := make([]*model.Verdict, 0, w.batchSize)
	flush := func() {
		if len(pending) == 0 {
			return
		}
		if err := w.insert(pending); err != nil {
			log.Printf("Error writing %d verdicts to ClickHouse: %v", len(pending), err)
		}
		pending = pending[:0]
	}

	for {
		select {
		case v, ok := <-w.in:
			if !ok {
				flush()
				return
			}
			pending = append(pending, v)
			if len(pending) >= w.batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

func (w *ClickHouseWriter) insert(verdicts []*model.Verdict) error {
	batch, err := w.conn.PrepareBatch(context.Background(), "INSERT INTO verdicts")
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}

	for _, v := range verdicts {
		path, err := json.Marshal(v.RefinementPath)
		if err != nil {
			return fmt.Errorf("failed to marshal refinement path: %w", err)
		}
		detected := uint8(0)
		if v.ThreatDetected {
			detected = 1
		}
		err = batch.Append(
			v.ID,
			v.Timestamp,
			v.SrcIP,
			v.DstIP,
			v.SrcPort,
			v.DstPort,
			v.Protocol,
			detected,
			v.AttackType,
			v.Confidence,
			string(v.Severity),
			string(v.RecommendedAction),
			string(v.DetectionMethod),
			strings.Join(v.Evidence, "; "),
			string(path),
		)
		if err != nil {
			return fmt.Errorf("failed to append verdict to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}
	return nil
}
