package idgen

import (
	"fmt"
	"log"
	"sync"
	"time"
)

// Snowflake layout: 41 bits of milliseconds since epoch, 10 bits worker id,
// 12 bits per-millisecond sequence. Business numbers (order, payment,
// ledger entry) prefix a timestamp for human readability and append the low
// digits of a snowflake id for uniqueness without exposing volume.

const (
	epoch          = int64(1704067200000) // 2024-01-01 00:00:00 UTC
	workerIDBits   = 10
	sequenceBits   = 12
	maxWorkerID    = -1 ^ (-1 << workerIDBits)
	maxSequence    = -1 ^ (-1 << sequenceBits)
	workerIDShift  = sequenceBits
	timestampShift = sequenceBits + workerIDBits
)

type Snowflake struct {
	mu        sync.Mutex
	timestamp int64
	workerID  int64
	sequence  int64
}

var (
	defaultGenerator *Snowflake
	once             sync.Once
)

func Init(workerID int64) {
	once.Do(func() {
		if workerID < 0 || workerID > maxWorkerID {
			log.Fatalf("workerID must be within 0-%d", maxWorkerID)
		}
		defaultGenerator = &Snowflake{
			workerID:  workerID,
			timestamp: 0,
			sequence:  0,
		}
	})
}

func NextID() int64 {
	if defaultGenerator == nil {
		Init(1)
	}
	return defaultGenerator.Generate()
}

func (s *Snowflake) Generate() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UnixMilli()

	if now == s.timestamp {
		s.sequence = (s.sequence + 1) & maxSequence
		if s.sequence == 0 {
			// Sequence exhausted for this millisecond, spin to the next.
			for now <= s.timestamp {
				now = time.Now().UnixMilli()
			}
		}
	} else {
		s.sequence = 0
	}

	s.timestamp = now

	id := ((now - epoch) << timestampShift) |
		(s.workerID << workerIDShift) |
		s.sequence

	return id
}

// GenerateOrderNo returns e.g. ORD2026011514305212345678.
func GenerateOrderNo() string {
	return businessNo("ORD")
}

// GeneratePaymentNo returns e.g. PAY2026011514305212345678.
func GeneratePaymentNo() string {
	return businessNo("PAY")
}

// GenerateEntryNo returns a ledger entry number, e.g. LED2026011514305212345678.
func GenerateEntryNo() string {
	return businessNo("LED")
}

func businessNo(prefix string) string {
	id := NextID()
	timestamp := time.Now().Format("20060102150405")
	return fmt.Sprintf("%s%s%08d", prefix, timestamp, id%100000000)
}
