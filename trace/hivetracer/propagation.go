package hivetracer

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/hivetrace/hivetrace-sdk-go/trace/hivetracer/internal"
)

type BuiltinFormat byte

const (
	HTTPHeaders BuiltinFormat = iota
	Binary
	W3CTraceContext
)

const (
	defaultTraceIDHeader       = "x-trace-id"
	defaultSpanIDHeader        = "x-span-id"
	defaultSampleHitHeader     = "x-sample-hit"
	defaultSampleWeightHeader  = "x-sample-weight"
	defaultBaggageHeaderPrefix = "x-baggage-"
)

type HTTPHeadersCarrier http.Header

func (c HTTPHeadersCarrier) Set(key, val string) {
	h := http.Header(c)
	h.Set(key, val)
}

func (c HTTPHeadersCarrier) Get(key string) string {
	h := http.Header(c)
	return h.Get(key)
}

func (c HTTPHeadersCarrier) ForeachKey(handler func(key, val string) error) error {
	for k, vals := range c {
		for _, v := range vals {
			if err := handler(k, v); err != nil {
				return err
			}
		}
	}
	return nil
}

type HTTPHeadersInjector struct {
}

var _ Injector = &HTTPHeadersInjector{}

func (injector *HTTPHeadersInjector) Inject(sc SpanContext, carrier interface{}) error {
	c, ok := carrier.(HTTPHeadersCarrier)
	if !ok {
		return ErrInvalidCarrier
	}
	c.Set(defaultTraceIDHeader, sc.TraceID())
	c.Set(defaultSpanIDHeader, sc.SpanID())
	strategy, weight := sc.Sample()
	switch strategy {
	case SampleStrategySampled:
		c.Set(defaultSampleHitHeader, "1")
		c.Set(defaultSampleWeightHeader, strconv.Itoa(weight))
	case SampleStrategyNotSampled:
		c.Set(defaultSampleHitHeader, "0")
		c.Set(defaultSampleWeightHeader, strconv.Itoa(weight))
	}
	sc.ForeachBaggageItem(func(k, v string) bool {
		c.Set(defaultBaggageHeaderPrefix+k, v)
		return true
	})
	return nil
}

type HTTPHeadersExtractor struct {
}

var _ Extractor = &HTTPHeadersExtractor{}

type extractedSpanContext struct {
	traceID        string
	spanID         string
	sampleStrategy SampleStrategy
	sampleWeight   int
	baggage        map[string]string
}

func (sc *extractedSpanContext) TraceID() string {
	return sc.traceID
}

func (sc *extractedSpanContext) SpanID() string {
	return sc.spanID
}

func (sc *extractedSpanContext) Sample() (SampleStrategy, int) {
	return sc.sampleStrategy, sc.sampleWeight
}

func (sc *extractedSpanContext) ForeachBaggageItem(h func(string, string) bool) {
	for key, val := range sc.baggage {
		if !h(key, val) {
			return
		}
	}
}

func (extractor *HTTPHeadersExtractor) Extract(carrier interface{}) (SpanContext, error) {
	c, ok := carrier.(HTTPHeadersCarrier)
	if !ok {
		return nil, ErrInvalidCarrier
	}
	ctx := extractedSpanContext{
		baggage: map[string]string{},
	}
	_ = c.ForeachKey(func(key, val string) error {
		lowerKey := strings.ToLower(key)
		switch lowerKey {
		case defaultTraceIDHeader:
			ctx.traceID = val
		case defaultSpanIDHeader:
			ctx.spanID = val
		case defaultSampleHitHeader:
			hit, _ := strconv.Atoi(val)
			switch hit {
			case 0:
				ctx.sampleStrategy = SampleStrategyNotSampled
			case 1:
				ctx.sampleStrategy = SampleStrategySampled
			}
		case defaultSampleWeightHeader:
			ctx.sampleWeight, _ = strconv.Atoi(val)
		default:
			if strings.HasPrefix(lowerKey, defaultBaggageHeaderPrefix) {
				ctx.baggage[lowerKey[len(defaultBaggageHeaderPrefix):]] = val
			}
		}
		return nil
	})
	if ctx.traceID == "" || ctx.spanID == "" {
		return nil, nil
	}
	return &ctx, nil
}

// w3c trace-context propagation. traceparent carries the sampled flag,
// tracestate carries the sample weight under the hivetrace vendor key so it
// survives hops through other w3c-speaking services.
const (
	traceParentHeader = "traceparent"
	traceStateHeader  = "tracestate"

	traceStateVendorKey = "hivetrace"
)

type W3CTraceContextInjector struct {
}

var _ Injector = &W3CTraceContextInjector{}

func (injector *W3CTraceContextInjector) Inject(sc SpanContext, carrier interface{}) error {
	c, ok := carrier.(HTTPHeadersCarrier)
	if !ok {
		return ErrInvalidCarrier
	}
	traceID := sc.TraceID()
	if len(traceID) != 32 {
		return ErrInvalidCarrier
	}
	spanID := sc.SpanID()
	if len(spanID) > 16 {
		// internal span ids are 32 hex chars, the w3c field is 8 bytes
		spanID = spanID[len(spanID)-16:]
	}
	strategy, weight := sc.Sample()
	flags := "00"
	if strategy == SampleStrategySampled {
		flags = "01"
	}
	c.Set(traceParentHeader, fmt.Sprintf("00-%s-%s-%s", traceID, spanID, flags))
	c.Set(traceStateHeader, fmt.Sprintf("%s=%d", traceStateVendorKey, weight))
	return nil
}

type W3CTraceContextExtractor struct {
}

var _ Extractor = &W3CTraceContextExtractor{}

func (extractor *W3CTraceContextExtractor) Extract(carrier interface{}) (SpanContext, error) {
	c, ok := carrier.(HTTPHeadersCarrier)
	if !ok {
		return nil, ErrInvalidCarrier
	}
	traceParentStr := c.Get(traceParentHeader)
	if traceParentStr == "" {
		return nil, nil
	}
	traceParent, err := internal.DefaultSimpleW3CFormatParser.ParseTraceParent(traceParentStr)
	if err != nil {
		return nil, err
	}
	ctx := extractedSpanContext{
		traceID: traceParent.TraceID,
		spanID:  traceParent.ParentSpanID,
	}
	if traceParent.Sampled() {
		ctx.sampleStrategy = SampleStrategySampled
		ctx.sampleWeight = 1
	} else {
		ctx.sampleStrategy = SampleStrategyNotSampled
	}
	if stateStr := c.Get(traceStateHeader); stateStr != "" {
		state, err := internal.DefaultSimpleW3CFormatParser.ParseTraceState(stateStr)
		if err == nil {
			if w, err := strconv.Atoi(state.Get(traceStateVendorKey)); err == nil && w > 0 {
				ctx.sampleWeight = w
			}
		}
	}
	if ctx.sampleStrategy == SampleStrategyNotSampled {
		ctx.sampleWeight = 0
	}
	return &ctx, nil
}

type BinaryCarrier = *bytes.Buffer

type BinaryCarrierInjector struct{}

var _ Injector = &BinaryCarrierInjector{}

func (i *BinaryCarrierInjector) Inject(sc SpanContext, carrier interface{}) error {
	ioCarrier, ok := carrier.(io.Writer)
	if !ok || ioCarrier == nil {
		return ErrInvalidCarrier
	}

	if err := writeString(ioCarrier, sc.TraceID()); err != nil {
		return err
	}
	if err := writeString(ioCarrier, sc.SpanID()); err != nil {
		return err
	}

	strategy, weight := sc.Sample()
	hit := int32(0)
	if strategy == SampleStrategySampled {
		hit = 1
	}
	if err := binary.Write(ioCarrier, binary.LittleEndian, hit); err != nil {
		return err
	}
	if err := binary.Write(ioCarrier, binary.LittleEndian, int32(weight)); err != nil {
		return err
	}

	cnt := int32(0)
	sc.ForeachBaggageItem(func(k string, v string) bool {
		cnt++
		return true
	})
	if err := binary.Write(ioCarrier, binary.LittleEndian, cnt); err != nil {
		return err
	}
	sc.ForeachBaggageItem(func(k string, v string) bool {
		if err := writeString(ioCarrier, k); err != nil {
			return false
		}
		if err := writeString(ioCarrier, v); err != nil {
			return false
		}
		return true
	})
	return nil
}

type BinaryCarrierExtractor struct{}

var _ Extractor = &BinaryCarrierExtractor{}

func (e *BinaryCarrierExtractor) Extract(carrier interface{}) (SpanContext, error) {
	ioCarrier, ok := carrier.(io.Reader)
	if !ok {
		return nil, ErrInvalidCarrier
	}

	traceId, err := readString(ioCarrier)
	if err != nil {
		return nil, err
	}
	spanId, err := readString(ioCarrier)
	if err != nil {
		return nil, err
	}

	sampleStrategy := SampleStrategyNotSampled
	sampleHit := int32(0)
	sampleWeight := int32(0)
	if err := binary.Read(ioCarrier, binary.LittleEndian, &sampleHit); err != nil {
		return nil, err
	}
	if sampleHit == 1 {
		sampleStrategy = SampleStrategySampled
	}
	if err := binary.Read(ioCarrier, binary.LittleEndian, &sampleWeight); err != nil {
		return nil, err
	}

	cnt := int32(0)
	if err := binary.Read(ioCarrier, binary.LittleEndian, &cnt); err != nil {
		return nil, err
	}
	baggage := make(map[string]string)
	for i := 0; i < int(cnt); i++ {
		key, err := readString(ioCarrier)
		if err != nil {
			return nil, err
		}
		value, err := readString(ioCarrier)
		if err != nil {
			return nil, err
		}
		baggage[key] = value
	}

	return &extractedSpanContext{
		traceID:        traceId,
		spanID:         spanId,
		sampleStrategy: sampleStrategy,
		sampleWeight:   int(sampleWeight),
		baggage:        baggage,
	}, nil
}

func writeString(writer io.Writer, s string) error {
	if err := binary.Write(writer, binary.LittleEndian, int32(len(s))); err != nil {
		return err
	}
	if n, err := io.WriteString(writer, s); err != nil || n != len(s) {
		return err
	}
	return nil
}

func readString(reader io.Reader) (string, error) {
	l := int32(0)
	if err := binary.Read(reader, binary.LittleEndian, &l); err != nil {
		return "", err
	}
	sb := strings.Builder{}
	sb.Grow(int(l))
	if n, err := io.CopyN(&sb, reader, int64(l)); err != nil || int32(n) != l {
		return "", err
	}
	return sb.String(), nil
}
