package trace_sender

import (
	"encoding/binary"
	"sync"
	"time"

	"github.com/hivetrace/hivetrace-sdk-go/trace/hivetracer/logger"
	"github.com/hivetrace/hivetrace-sdk-go/trace/hivetracer/service_register/register_utils"
	"github.com/hivetrace/hivetrace-sdk-go/trace/internal/sendworker"
)

const (
	maxBatchBytes       = 16384    // agent datagram read buffer is 16KB
	streamMaxBatchBytes = 64 << 10 // 64KB
)

// TraceSender drains a trace channel, marshals each trace to a
// length-prefixed JSON record and batches records to the local agent.
// Partial batches are flushed on a ticker, on Flush, and on shutdown.
// Shutdown is the channel close: the loop drains, flushes and returns,
// WaitStop blocks until then.
type TraceSender struct {
	logger logger.Logger

	in        chan *Trace
	flushChan chan struct{}
	wg        sync.WaitGroup

	bufferMaxSize int
	offset        int // stream frames need room for the prefix
	flushInterval time.Duration

	tags []byte

	w sendworker.SendWorker
}

// NewTraceSender returns a datagram sender, the default transport.
func NewTraceSender(sock string, in chan *Trace, l logger.Logger) *TraceSender {
	if sock == "" {
		panic("sock address is empty")
	}
	if l == nil {
		l = &logger.NoopLogger{}
	}
	return &TraceSender{
		logger: l,
		in:     in,

		flushChan: make(chan struct{}, 1),

		bufferMaxSize: maxBatchBytes,
		offset:        0,
		flushInterval: time.Second,
		tags:          nil, // datagram frames carry no tags

		w: sendworker.NewDatagramWorker("trace", sock, l),
	}
}

// NewStreamTraceSender returns a stream sender for agents that accept the
// framed stream protocol; bigger batches, instance id carried as a frame tag.
func NewStreamTraceSender(sock string, in chan *Trace, l logger.Logger) *TraceSender {
	if sock == "" {
		panic("sock address is empty")
	}
	if l == nil {
		l = &logger.NoopLogger{}
	}
	tagsBytes := sendworker.FormatMap(map[string]string{"instanceID": register_utils.GetInstanceID()})
	return &TraceSender{
		logger: l,
		in:     in,

		flushChan: make(chan struct{}, 1),

		bufferMaxSize: streamMaxBatchBytes,
		offset:        sendworker.GetPrefixLen(1, tagsBytes),
		flushInterval: 5 * time.Second,
		tags:          tagsBytes,

		w: sendworker.NewStreamWorker("trace", sock, l),
	}
}

func (s *TraceSender) Start() {
	s.wg.Add(1)
	go func() {
		defer func() {
			s.wg.Done()
		}()
		s.sendLoop()
	}()
}

// Flush asks the send loop to ship the current partial batch. Non-blocking;
// a pending flush request is enough.
func (s *TraceSender) Flush() {
	select {
	case s.flushChan <- struct{}{}:
	default:
	}
}

func (s *TraceSender) WaitStop() {
	s.wg.Wait()
}

func (s *TraceSender) sendLoop() {
	defer func() {
		s.w.CloseConn()
	}()

	batch := make([]byte, s.offset, s.bufferMaxSize+s.offset)
	tc := time.NewTicker(s.flushInterval)
	defer func() {
		tc.Stop()
	}()
	for {
		select {
		case <-tc.C:
			if len(batch) > s.offset {
				s.w.BatchSend(batch, s.tags)
				batch = batch[:s.offset]
			}
		case <-s.flushChan:
			if len(batch) > s.offset {
				s.w.BatchSend(batch, s.tags)
				batch = batch[:s.offset]
			}
		case item, ok := <-s.in:
			if !ok {
				if len(batch) > s.offset {
					s.w.BatchSend(batch, s.tags)
				}
				return
			}
			if item == nil {
				continue
			}
			body, err := item.Marshal()
			if err != nil {
				s.logger.Error("send trace marshal err %v", err)
				continue
			}
			record := make([]byte, 4+len(body))
			binary.LittleEndian.PutUint32(record[0:4], uint32(len(body)))
			copy(record[4:], body)

			s.logger.Debug("send trace %s, len=%d", item.TraceId, len(body))

			if len(batch)+len(record) <= s.bufferMaxSize+s.offset {
				batch = append(batch, record...)
				continue
			}
			if len(record) > s.bufferMaxSize+s.offset {
				// oversized trace, ship it alone rather than grow the batch buffer
				tmp := make([]byte, s.offset, s.offset+len(record))
				tmp = append(tmp, record...)
				s.w.BatchSend(tmp, s.tags)
				continue
			}
			s.w.BatchSend(batch, s.tags)
			batch = batch[:s.offset]
			batch = append(batch, record...)
		}
	}
}
