package log_collector

import (
	"encoding/binary"
	"sync"
	"time"

	"github.com/hivetrace/hivetrace-sdk-go/trace/hivetracer/log_collector/log_models"
	"github.com/hivetrace/hivetrace-sdk-go/trace/hivetracer/logger"
	"github.com/hivetrace/hivetrace-sdk-go/trace/hivetracer/service_register/register_utils"
	"github.com/hivetrace/hivetrace-sdk-go/trace/internal/sendworker"
)

const (
	maxBatchBytes       = 16384
	streamMaxBatchBytes = 64 << 10 // 64KB
)

// LogCollector batches log records to the agent on a pool of workers. Send is
// non-blocking: when the channel is full the record is dropped, never the
// caller.
//
// The collector keeps its own logger. Hooking an application logger (e.g. the
// logrus hook) into the collector and also using it as the collector's logger
// would recurse, so callers only choose Debug or silent.
type LogCollector struct {
	logger logger.Logger

	in chan *log_models.Log
	wg sync.WaitGroup

	bufferMaxSize int
	offset        int // stream frames need room for the prefix
	flushInterval time.Duration

	tags []byte

	ws []sendworker.SendWorker
}

type LogCollectorConfig struct {
	Sock         string
	ChanSize     int
	WorkerNumber int

	// Stream switches to the framed stream protocol, for agents that
	// accept it on Sock.
	Stream bool

	Debug bool
}

func NewLogCollector(config LogCollectorConfig) *LogCollector {
	if config.Sock == "" {
		panic("socket address is empty")
	}
	if config.WorkerNumber <= 0 {
		panic("worker must be positive")
	}
	if config.ChanSize <= 0 {
		panic("channel size must be positive")
	}
	if config.Stream {
		return newStreamLogCollector(config)
	}
	return newDatagramLogCollector(config)
}

func newDatagramLogCollector(config LogCollectorConfig) *LogCollector {
	var l logger.Logger
	if config.Debug {
		l = &logger.DebugLogger{}
	} else {
		l = &logger.NoopLogger{}
	}
	ws := make([]sendworker.SendWorker, 0, config.WorkerNumber)
	for i := 0; i < config.WorkerNumber; i++ {
		ws = append(ws, sendworker.NewDatagramWorker("log", config.Sock, l))
	}
	return &LogCollector{
		logger:        l,
		in:            make(chan *log_models.Log, config.ChanSize),
		bufferMaxSize: maxBatchBytes,
		offset:        0,
		flushInterval: time.Second,
		tags:          nil, // datagram frames carry no tags
		ws:            ws,
	}
}

func newStreamLogCollector(config LogCollectorConfig) *LogCollector {
	var l logger.Logger
	if config.Debug {
		l = &logger.DebugLogger{}
	} else {
		l = &logger.NoopLogger{}
	}
	ws := make([]sendworker.SendWorker, 0, config.WorkerNumber)
	for i := 0; i < config.WorkerNumber; i++ {
		ws = append(ws, sendworker.NewStreamWorker("log", config.Sock, l))
	}
	tagsBytes := sendworker.FormatMap(map[string]string{"instanceID": register_utils.GetInstanceID()})
	return &LogCollector{
		logger:        l,
		in:            make(chan *log_models.Log, config.ChanSize),
		bufferMaxSize: streamMaxBatchBytes,
		offset:        sendworker.GetPrefixLen(sendworker.Version1, tagsBytes),
		flushInterval: 5 * time.Second,
		tags:          tagsBytes,
		ws:            ws,
	}
}

func (s *LogCollector) Send(log *log_models.Log) {
	select {
	case s.in <- log:
	default:
	}
}

func (s *LogCollector) Start() {
	for _, w := range s.ws {
		s.wg.Add(1)
		go func(iw sendworker.SendWorker) {
			defer func() {
				s.wg.Done()
			}()
			s.sendLoop(iw)
		}(w)
	}
}

func (s *LogCollector) Stop() {
	close(s.in)
	s.wg.Wait()
}

func (s *LogCollector) sendLoop(w sendworker.SendWorker) {
	defer func() {
		w.CloseConn()
	}()
	batchLog := make([]byte, s.offset, s.bufferMaxSize+s.offset)
	tc := time.NewTicker(s.flushInterval)
	defer func() {
		tc.Stop()
	}()
	for {
		select {
		case <-tc.C:
			if len(batchLog) > s.offset {
				w.BatchSend(batchLog, s.tags)
				batchLog = batchLog[:s.offset]
			}
		case item, ok := <-s.in:
			if !ok {
				if len(batchLog) > s.offset {
					w.BatchSend(batchLog, s.tags)
				}
				return
			}
			if item == nil {
				continue
			}
			body, err := item.Marshal()
			if err != nil {
				s.logger.Error("send log marshal err %v", err)
				continue
			}
			record := make([]byte, 4+len(body))
			binary.LittleEndian.PutUint32(record[0:4], uint32(len(body)))
			copy(record[4:], body)

			s.logger.Debug("send log %+v, len=%d", item, len(body))

			if len(batchLog)+len(record) <= s.bufferMaxSize+s.offset {
				batchLog = append(batchLog, record...)
				continue
			}
			if len(record) > s.bufferMaxSize+s.offset {
				// oversized record, ship it alone rather than grow the batch
				tmp := make([]byte, s.offset, s.offset+len(record))
				tmp = append(tmp, record...)
				w.BatchSend(tmp, s.tags)
				continue
			}
			w.BatchSend(batchLog, s.tags)
			batchLog = batchLog[:s.offset]
			batchLog = append(batchLog, record...)
		}
	}
}
