package hivetracer

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hivetrace/hivetrace-sdk-go/trace/hivetracer/id_generator"
	"github.com/hivetrace/hivetrace-sdk-go/trace/hivetracer/log_collector"
	"github.com/hivetrace/hivetrace-sdk-go/trace/hivetracer/log_collector/log_models"
	"github.com/hivetrace/hivetrace-sdk-go/trace/hivetracer/logger"
	"github.com/hivetrace/hivetrace-sdk-go/trace/hivetracer/service_register"
	"github.com/hivetrace/hivetrace-sdk-go/trace/hivetracer/service_register/register_utils"
	"github.com/hivetrace/hivetrace-sdk-go/trace/hivetracer/settings_fetcher"
	"github.com/hivetrace/hivetrace-sdk-go/trace/hivetracer/settings_fetcher/settings_models"
	"github.com/hivetrace/hivetrace-sdk-go/trace/hivetracer/trace_sampler"
	"github.com/hivetrace/hivetrace-sdk-go/trace/hivetracer/trace_sender"
)

var (
	_ Tracer = &tracer{}
)

type tracer struct {
	logger logger.Logger

	serviceType string
	service     string

	idGenerator *id_generator.IdGenerator

	logCollector *log_collector.LogCollector

	injects    map[interface{}]Injector
	extractors map[interface{}]Extractor

	traceChan chan *trace_sender.Trace

	traceSenders []*trace_sender.TraceSender

	serviceRegister *service_register.Register

	traceSampler *trace_sampler.Manager

	settingsFetcher *settings_fetcher.Fetcher

	containerId string
	instanceId  string

	dynamicConfig atomic.Value

	// guards traceChan against emits racing Stop
	stopLock sync.RWMutex
	stopped  bool

	contextAdapter func(context.Context) context.Context
}

// NewTracer builds a tracer for the given service. The sampler starts as the
// deterministic strategy at the configured rate (default 1, keep everything)
// and may be swapped at runtime by agent settings. Configuration errors such
// as a negative sample rate are reported here, before any span is started.
func NewTracer(serviceType, service string, opts ...TracerOption) (Tracer, error) {
	config := newDefaultTracerConfig()
	for _, opt := range opts {
		opt(&config)
	}

	sampler := trace_sampler.NewManager()
	if err := sampler.RefreshConfig(trace_sampler.Config{
		Strategy:   trace_sampler.StrategyDeterministic,
		SampleRate: config.SampleRate,
	}); err != nil {
		return nil, err
	}

	t := &tracer{
		serviceType: serviceType,
		service:     service,

		logger: config.Logger,

		idGenerator: id_generator.New(),

		traceSampler: sampler,

		traceChan: make(chan *trace_sender.Trace, config.SenderChanSize),

		injects:    map[interface{}]Injector{},
		extractors: map[interface{}]Extractor{},
	}
	t.instanceId = register_utils.GetInstanceID()
	info, _ := register_utils.GetInfo()
	if len(info.ContainerId) != 0 {
		t.containerId = info.ContainerId
	}
	if config.EnableLogSender {
		t.logCollector = log_collector.NewLogCollector(log_collector.LogCollectorConfig{
			Sock:         config.LogSenderSock,
			WorkerNumber: config.LogSenderNumber,
			ChanSize:     config.LogSenderChanSize,
			Stream:       config.SenderStream,
		})
	}
	t.serviceRegister = service_register.NewRegister(service, serviceType, t.instanceId, config.ServerRegisterSock, time.Second*30, sampler.Description, t.logger)
	for _, p := range config.PropagatorConfigs {
		t.injects[p.Format] = p.Injector
		t.extractors[p.Format] = p.Extractor
	}
	for i := 0; i < config.SenderNumber; i++ {
		if config.SenderStream {
			t.traceSenders = append(t.traceSenders, trace_sender.NewStreamTraceSender(config.SenderSock, t.traceChan, t.logger))
		} else {
			t.traceSenders = append(t.traceSenders, trace_sender.NewTraceSender(config.SenderSock, t.traceChan, t.logger))
		}
	}
	t.settingsFetcher = settings_fetcher.NewSettingsFetcher(settings_fetcher.SettingsFetcherConfig{
		Service: t.service,
		Logger:  t.logger,
		Sock:    config.SettingsFetcherSock,
		Notifier: []func(*settings_models.Settings){
			t.handleSettings,
		},
	})
	t.contextAdapter = config.ContextAdapter
	return t, nil
}

func (t *tracer) Start() {
	t.settingsFetcher.Start()
	if t.logCollector != nil {
		t.logCollector.Start()
	}
	t.idGenerator.Start()
	for _, sender := range t.traceSenders {
		sender.Start()
	}
	t.serviceRegister.Start()
}

// Flush asks every sender to ship its partial batch. It does not wait for the
// agent to acknowledge anything; sends over unix sockets either complete or
// are logged and dropped.
func (t *tracer) Flush() {
	for _, sender := range t.traceSenders {
		sender.Flush()
	}
}

func (t *tracer) Stop() {
	t.stopLock.Lock()
	if t.stopped {
		t.stopLock.Unlock()
		return
	}
	t.stopped = true
	t.stopLock.Unlock()

	t.serviceRegister.Stop()
	// no emit can reach the channel once stopped is set, closing is safe
	close(t.traceChan)
	for _, sender := range t.traceSenders {
		sender.WaitStop()
	}
	if t.logCollector != nil {
		t.logCollector.Stop()
	}
	t.settingsFetcher.Stop()
}

func (t *tracer) SamplerDescription() string {
	return t.traceSampler.Description()
}

func (t *tracer) Extract(format interface{}, carrier interface{}) (SpanContext, error) {
	extractor, ok := t.extractors[format]
	if !ok {
		return nil, ErrUnsupportedFormat
	}
	return extractor.Extract(carrier)
}

func (t *tracer) Inject(sc SpanContext, format interface{}, carrier interface{}) error {
	injector, ok := t.injects[format]
	if !ok {
		return ErrUnsupportedFormat
	}
	return injector.Inject(sc, carrier)
}

func (t *tracer) Log(ctx context.Context, logData LogData) {
	if t.logCollector == nil {
		return
	}
	logItem := log_models.Log{}
	span := t.GetSpanFromContext(ctx)
	if span != nil {
		sc := span.Context()
		if sc != nil {
			logItem.TraceId = sc.TraceID()
		}
	}
	logItem.LogLevel = logData.LogLevel
	logItem.FileName = logData.FileName
	logItem.FileLine = logData.FileLine
	logItem.Source = logData.Source
	logItem.TimestampMs = logData.Timestamp.Unix()*1e3 + int64(logData.Timestamp.Nanosecond()/1e6)
	logItem.Message = logData.Message
	logItem.Service = t.service
	logItem.ContainerId = t.containerId
	t.logCollector.Send(&logItem)
}

func (t *tracer) StartServerSpan(operationName string, opts ...StartSpanOption) Span {
	return t.startSpan(operationName, StartSpanConfig{spanType: serverSpanType}, opts...)
}

func (t *tracer) StartServerSpanFromContext(ctx context.Context, operationName string, opts ...StartSpanOption) (Span, context.Context) {
	return t.startSpanFromContext(ctx, operationName, StartSpanConfig{spanType: serverSpanType}, opts...)
}

func (t *tracer) StartClientSpan(operationName string, opts ...StartSpanOption) Span {
	return t.startSpan(operationName, StartSpanConfig{spanType: clientSpanType}, opts...)
}

func (t *tracer) StartClientSpanFromContext(ctx context.Context, operationName string, opts ...StartSpanOption) (Span, context.Context) {
	return t.startSpanFromContext(ctx, operationName, StartSpanConfig{spanType: clientSpanType}, opts...)
}

func (t *tracer) StartSpan(operationName string, opts ...StartSpanOption) Span {
	return t.startSpan(operationName, StartSpanConfig{spanType: commonSpanType}, opts...)
}

func (t *tracer) startSpan(operationName string, defaultConfig StartSpanConfig, opts ...StartSpanOption) Span {
	for _, opt := range opts {
		opt(&defaultConfig)
	}

	startTime := time.Now()
	spanId := t.idGenerator.GenId()
	parentSpanID := ""
	var (
		traceCtx        *traceContext
		incomingBaggage map[string]string
	)

	traceResource := defaultConfig.ServerResource
	if traceResource == "" {
		traceResource = "empty"
	}

	samplingParent := trace_sampler.ParentContext{}

	if defaultConfig.parentSpanContext != nil {
		parentSpanContext, ok := defaultConfig.parentSpanContext.(*spanContext)
		if ok && parentSpanContext != nil {
			// in-process parent, share its trace context
			parentSpanID = parentSpanContext.spanID
			traceCtx = parentSpanContext.traceContext
		} else {
			// propagated parent
			parentSpanID = defaultConfig.parentSpanContext.SpanID()
			traceCtx = &traceContext{
				traceID:  defaultConfig.parentSpanContext.TraceID(),
				resource: traceResource,
				tracer:   t,
			}
			traceCtx.sampleStrategy, traceCtx.sampleWeight = defaultConfig.parentSpanContext.Sample()
			samplingParent = trace_sampler.ParentContext{
				TraceID: traceCtx.traceID,
				SpanID:  parentSpanID,
				Sampled: traceCtx.sampleStrategy == SampleStrategySampled,
			}
		}

		// copy parent baggage to new span
		defaultConfig.parentSpanContext.ForeachBaggageItem(func(k string, v string) bool {
			if incomingBaggage == nil {
				incomingBaggage = make(map[string]string)
			}
			incomingBaggage[k] = v
			return true
		})
	} else {
		traceCtx = &traceContext{
			traceID:  t.idGenerator.GenId(),
			resource: traceResource,
			tracer:   t,
		}
	}
	if traceCtx.sampleStrategy == SampleStrategyUnknown {
		result := t.traceSampler.ShouldSample(trace_sampler.SamplingParameters{
			Parent:  samplingParent,
			TraceID: traceCtx.traceID,
			Name:    operationName,
			Kind:    samplingKind(defaultConfig.spanType),
		})
		if result.Sampled() {
			traceCtx.sampleStrategy = SampleStrategySampled
			traceCtx.sampleWeight = result.SampleRate
		} else {
			traceCtx.sampleStrategy = SampleStrategyNotSampled
		}
	}

	s := &span{
		spanType: defaultConfig.spanType,

		operationName: operationName,

		serverResource: defaultConfig.ServerResource,

		clientType:     defaultConfig.ClientServiceType,
		clientService:  defaultConfig.ClientService,
		clientResource: defaultConfig.ClientResource,

		startTime: startTime,
		spanContext: spanContext{
			spanID:       spanId,
			parentSpanID: parentSpanID,
			traceContext: traceCtx,
			baggage:      incomingBaggage,
		},
	}
	s.spanContext.traceContext.addSpan(s)
	return s
}

func samplingKind(st spanType) trace_sampler.SpanKind {
	switch st {
	case serverSpanType:
		return trace_sampler.SpanKindServer
	case clientSpanType:
		return trace_sampler.SpanKindClient
	default:
		return trace_sampler.SpanKindInternal
	}
}

func (t *tracer) StartSpanFromContext(ctx context.Context, operationName string, opts ...StartSpanOption) (Span, context.Context) {
	return t.startSpanFromContext(ctx, operationName, StartSpanConfig{}, opts...)
}

func (t *tracer) startSpanFromContext(ctx context.Context, operationName string, defaultConfig StartSpanConfig, opts ...StartSpanOption) (Span, context.Context) {
	s := t.GetSpanFromContext(ctx)
	if s != nil {
		ChildOf(s.Context())(&defaultConfig)
	}
	span := t.startSpan(operationName, defaultConfig, opts...)
	return span, ContextWithSpan(ctx, span)
}

func (t *tracer) GetSpanFromContext(ctx context.Context) Span {
	if ctx == nil {
		return nil
	}
	if t.contextAdapter != nil {
		if c := t.contextAdapter(ctx); c != nil {
			s, _ := c.Value(activeSpanContextKey).(Span)
			return s
		}
	}
	s, _ := ctx.Value(activeSpanContextKey).(Span)
	return s
}

func (t *tracer) handleSettings(settings *settings_models.Settings) {
	if settings == nil {
		return
	}
	t.handleSettingsForSampler(settings)
	t.handleSettingsForDynamicConfig(settings)
}

func (t *tracer) handleSettingsForSampler(settings *settings_models.Settings) {
	samplerConfig := trace_sampler.Config{}
	switch settings.Trace.Sample.Strategy {
	case "all":
		samplerConfig.Strategy = trace_sampler.StrategyAlways
	case "never":
		samplerConfig.Strategy = trace_sampler.StrategyNever
	case "deterministic":
		samplerConfig.Strategy = trace_sampler.StrategyDeterministic
		samplerConfig.SampleRate = settings.Trace.Sample.SampleRate
	case "ratio":
		samplerConfig.Strategy = trace_sampler.StrategyRatio
		samplerConfig.Value = settings.Trace.Sample.Value
	case "ratelimit":
		samplerConfig.Strategy = trace_sampler.StrategyRateLimit
		samplerConfig.Value = settings.Trace.Sample.Value
	default:
		return
	}
	if err := t.traceSampler.RefreshConfig(samplerConfig); err != nil {
		t.logger.Error("refresh sampler config err %v", err)
	}
}

type tracerDynamicConfig struct {
	DbSlowQuery time.Duration
}

func (t *tracer) getDynamicConfig() *tracerDynamicConfig {
	config, _ := t.dynamicConfig.Load().(*tracerDynamicConfig)
	return config
}

func (t *tracer) handleSettingsForDynamicConfig(settings *settings_models.Settings) {
	newDynamicConfig := &tracerDynamicConfig{
		DbSlowQuery: time.Duration(settings.Db.SlowQueryMs) * time.Millisecond,
	}
	t.dynamicConfig.Store(newDynamicConfig)
}

// collect runs when the last span of a trace finishes. Dropped traces never
// reach the sender.
func (t *tracer) collect(tc *traceContext) {
	if tc.sampleStrategy == SampleStrategySampled {
		t.emitTrace(tc)
	}
}

func (t *tracer) emitTrace(tc *traceContext) {
	if len(tc.spans) == 0 {
		return
	}
	trace := trace_sender.Trace{
		ServiceType: t.serviceType,
		Service:     t.service,
		ContainerId: t.containerId,
		InstanceId:  t.instanceId,
		TraceId:     tc.traceID,
		SampleRate:  tc.sampleWeight,
	}
	serverResource := ""
	serverSpan := tc.spans[0]
	if serverSpan.spanType == serverSpanType {
		serverResource = serverSpan.serverResource
	}
	for _, span := range tc.spans {
		if span == nil {
			continue
		}
		if span.serverResource == "" {
			span.serverResource = serverResource
		}
		kind := trace_sender.SpanKindCommon
		switch span.spanType {
		case commonSpanType:
		case serverSpanType:
			kind = trace_sender.SpanKindServer
		case clientSpanType:
			kind = trace_sender.SpanKindClient
		default:
			continue
		}
		errorEvents := make([]*trace_sender.ErrorEvent, 0, len(span.ErrorInfoList))
		for _, errorInfo := range span.ErrorInfoList {
			if errorInfo == nil {
				continue
			}
			errorEvents = append(errorEvents, &trace_sender.ErrorEvent{
				Kind:        errorKindString(errorInfo.ErrorKind),
				Message:     errorInfo.ErrorMessage,
				Stack:       errorInfo.ErrorStack,
				OccurTimeMs: errorInfo.ErrorOccurTimeMilliSec,
				Tags:        errorInfo.ErrorTags,
			})
		}

		trace.Events = append(trace.Events, &trace_sender.Event{
			Kind: kind,

			SpanId:   span.spanContext.spanID,
			ParentId: span.spanContext.parentSpanID,
			Name:     span.operationName,

			TimestampMs: span.startTime.Unix()*1e3 + int64(span.startTime.Nanosecond())/1e6,
			DurationUs:  span.duration.Microseconds(),

			Status: span.status,

			Resource: span.serverResource,

			CallServiceType: span.clientType,
			CallService:     span.clientService,
			CallResource:    span.clientResource,

			FieldsString:  span.tagsString,
			FieldsInt64:   span.tagsInt64,
			FieldsFloat64: span.tagsFloat64,

			Errors: errorEvents,
		})
	}
	// spans finishing after Stop are dropped rather than sent on the closed
	// channel
	t.stopLock.RLock()
	defer t.stopLock.RUnlock()
	if t.stopped {
		return
	}
	select {
	case t.traceChan <- &trace: // non-blocking, otherwise span.Finish could block
	default:
	}
}

func errorKindString(kind ErrorKind) string {
	switch kind {
	case ErrorKindDbError:
		return trace_sender.ErrorDb
	case ErrorKindNoSqlError:
		return trace_sender.ErrorNoSql
	case ErrorKindMqError:
		return trace_sender.ErrorMq
	case ErrorKindExternalServiceError:
		return trace_sender.ErrorExternalService
	case ErrorKindHttpCodeError:
		return trace_sender.ErrorHttpCode
	case ErrorKindBusinessError:
		return trace_sender.ErrorBusiness
	case ErrorKindPanic:
		return trace_sender.ErrorPanic
	default:
		return trace_sender.ErrorUncaughtException
	}
}
