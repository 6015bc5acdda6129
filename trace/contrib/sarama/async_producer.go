package sarama

import (
	"context"

	"github.com/Shopify/sarama"

	"github.com/hivetrace/hivetrace-sdk-go/trace/hivetracer"
)

type asyncProducer struct {
	sarama.AsyncProducer

	outerInput     chan *sarama.ProducerMessage
	outerSuccesses chan *sarama.ProducerMessage
	outerErrors    chan *sarama.ProducerError

	closeChan      chan struct{}
	closeAsyncChan chan struct{}

	closeErrRet chan error
}

// WrapProducer wraps an inner sarama.AsyncProducer to generate client spans.
// sarama.AsyncProducer.Input() returns a chan, so the Input method itself can
// not be instrumented; an outer input chan is provided instead, and messages
// put into it are intercepted and traced before reaching the real producer.
func WrapProducer(cfg *sarama.Config, p sarama.AsyncProducer, tracer hivetracer.Tracer) sarama.AsyncProducer {
	if cfg == nil {
		panic("sarama config is nil")
	}
	if tracer == nil {
		panic("tracer is nil")
	}
	wrappedProducer := asyncProducer{
		AsyncProducer:  p,
		outerInput:     make(chan *sarama.ProducerMessage),
		outerSuccesses: make(chan *sarama.ProducerMessage),
		outerErrors:    make(chan *sarama.ProducerError),
		closeChan:      make(chan struct{}),
		closeAsyncChan: make(chan struct{}),
		closeErrRet:    make(chan error),
	}

	go func() {
		for {
			select {
			case <-wrappedProducer.closeChan:
				wrappedProducer.closeErrRet <- p.Close()
				return
			case <-wrappedProducer.closeAsyncChan:
				p.AsyncClose()
				return
			case msg, ok := <-wrappedProducer.outerInput:
				if !ok {
					continue // wait for closeChan/closeAsyncChan
				}

				var (
					wrappedMeta metaDataWrapper
				)
				wrappedMeta, ok = msg.Metadata.(metaDataWrapper)
				if !ok {
					// metadata not wrapped via InjectCtx, store the original
					// metadata and start from a fresh ctx
					wrappedMeta.ctx = context.Background()
					wrappedMeta.originMetaData = msg.Metadata
				}

				clientSpan, ctxWithSpan := tracer.StartClientSpanFromContext(wrappedMeta.ctx, "kafka.produce", hivetracer.ClientResourceAs(hivetracer.Kafka, msg.Topic, "produce"))
				clientSpan.SetTagString("mq.type", "kafka")
				clientSpan.SetTagString("mq.topic", msg.Topic)
				clientSpan.SetTagString("kafka.version", cfg.Version.String())

				wrappedMeta.ctx = ctxWithSpan
				msg.Metadata = wrappedMeta // so the span can be finished on return

				// record headers need kafka >= 0.11
				if cfg.Version.IsAtLeast(sarama.V0_11_0_0) {
					propagate(clientSpan, msg, tracer)
				}

				// if successes=false or errors=false the return chans never
				// report this message, finish now or the span leaks
				if !cfg.Producer.Return.Successes || !cfg.Producer.Return.Errors {
					clientSpan.Finish()
				}

				p.Input() <- msg // real send
			}
		}
	}()

	go func() {
		defer func() {
			close(wrappedProducer.outerSuccesses)
		}()
		for msg := range p.Successes() {
			wrappedMeta, ok := msg.Metadata.(metaDataWrapper)
			if ok {
				if span := hivetracer.GetSpanFromContext(wrappedMeta.ctx); span != nil {
					span.Finish()
				}
				msg.Metadata = wrappedMeta.originMetaData // restore metadata
			}
			wrappedProducer.outerSuccesses <- msg
		}
	}()

	go func() {
		defer func() {
			close(wrappedProducer.outerErrors)
		}()
		for msg := range p.Errors() {
			wrappedMeta, ok := msg.Msg.Metadata.(metaDataWrapper)
			if ok {
				if span := hivetracer.GetSpanFromContext(wrappedMeta.ctx); span != nil {
					span.SetStatus(hivetracer.StatusCodeError)
					span.RecordError(msg.Err, hivetracer.WithErrorKind(hivetracer.ErrorKindMqError))
					span.Finish()
				}
				msg.Msg.Metadata = wrappedMeta.originMetaData // restore metadata
			}
			wrappedProducer.outerErrors <- msg
		}
	}()
	return &wrappedProducer
}

type metaDataWrapper struct {
	ctx            context.Context
	originMetaData interface{}
}

// InjectCtx attaches ctx to msg so the produce span joins the caller's trace.
func InjectCtx(ctx context.Context, msg *sarama.ProducerMessage) *sarama.ProducerMessage {
	if ctx == nil {
		ctx = context.Background()
	}
	newMeta := metaDataWrapper{
		ctx:            ctx,
		originMetaData: msg.Metadata,
	}
	msg.Metadata = newMeta
	return msg
}

// AsyncClose triggers a shutdown of the producer.
func (ap *asyncProducer) AsyncClose() {
	close(ap.outerInput)
	close(ap.closeAsyncChan)
}

// Close shuts down the producer and waits for any buffered messages to be
// flushed.
func (ap *asyncProducer) Close() error {
	close(ap.outerInput)
	close(ap.closeChan)
	return <-ap.closeErrRet
}

// Input returns the input channel.
func (ap *asyncProducer) Input() chan<- *sarama.ProducerMessage {
	return ap.outerInput
}

// Successes returns the successes channel.
func (ap *asyncProducer) Successes() <-chan *sarama.ProducerMessage {
	return ap.outerSuccesses
}

// Errors returns the errors channel.
func (ap *asyncProducer) Errors() <-chan *sarama.ProducerError {
	return ap.outerErrors
}

// propagate injects tracing info into message headers
func propagate(span hivetracer.Span, msg *sarama.ProducerMessage, tracer hivetracer.Tracer) {
	if tracer == nil || span == nil {
		return
	}
	m := make(map[string][]string)
	err := tracer.Inject(span.Context(), hivetracer.HTTPHeaders, hivetracer.HTTPHeadersCarrier(m))
	if err != nil {
		return
	}
	for k, vs := range m {
		key := []byte(k)
		for _, v := range vs {
			msg.Headers = append(msg.Headers, sarama.RecordHeader{
				Key:   key,
				Value: []byte(v),
			})
		}
	}
}
