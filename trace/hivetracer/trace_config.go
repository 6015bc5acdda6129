package hivetracer

import "github.com/hivetrace/hivetrace-sdk-go/trace/hivetracer/logger"

const (
	defaultSenderSock     = "/var/run/hivetrace/trace.sock"
	defaultSenderChanSize = 1024
	defaultSenderNumber   = 4

	defaultLogSenderSock     = "/var/run/hivetrace/log.sock"
	defaultLogSenderChanSize = 1024
	defaultLogSenderNumber   = 4

	defaultSettingsSock = "/var/run/hivetrace/comm.sock"

	defaultServiceRegisterSock = "/var/run/hivetrace/comm.sock"

	// keep every trace until the agent pushes a sampling strategy
	defaultSampleRate = 1
)

func newDefaultTracerConfig() TracerConfig {
	return TracerConfig{
		Logger: &logger.NoopLogger{},

		SenderChanSize: defaultSenderChanSize,
		SenderSock:     defaultSenderSock,
		SenderNumber:   defaultSenderNumber,

		SampleRate: defaultSampleRate,

		EnableLogSender:   true,
		LogSenderSock:     defaultLogSenderSock,
		LogSenderNumber:   defaultLogSenderNumber,
		LogSenderChanSize: defaultLogSenderChanSize,

		SettingsFetcherSock: defaultSettingsSock,

		ServerRegisterSock: defaultServiceRegisterSock,

		PropagatorConfigs: []PropagatorConfig{
			{
				Format:    HTTPHeaders,
				Injector:  &HTTPHeadersInjector{},
				Extractor: &HTTPHeadersExtractor{},
			},
			{
				Format:    W3CTraceContext,
				Injector:  &W3CTraceContextInjector{},
				Extractor: &W3CTraceContextExtractor{},
			},
			{
				Format:    Binary,
				Injector:  &BinaryCarrierInjector{},
				Extractor: &BinaryCarrierExtractor{},
			},
		},
	}
}
