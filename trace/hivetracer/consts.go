package hivetracer

// Service types. Used as the tracer's own service type and as the client
// service type on outgoing-call spans; the agent groups call edges by them.
const (
	Web     = "web"
	Http    = "http"
	RPC     = "rpc"
	GRPC    = "grpc"
	MySQL   = "mysql"
	Redis   = "redis"
	Kafka   = "kafka"
	Mongodb = "mongodb"
)

// Log levels carried on LogData records.
const (
	LogLevelTrace = "trace"
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
	LogLevelFatal = "fatal"
)

// Well-known tag keys. Contrib instrumentation sets these so the backend can
// index http and db fields uniformly.
const (
	HttpScheme     = "http.scheme"
	HttpMethod     = "http.method"
	HttpHost       = "http.host"
	HttpPath       = "http.path"
	HttpStatusCode = "http.status_code"

	DbStatement = "db.statement"
)

// Span status. Zero is success; contribs may also store a protocol status
// code (e.g. a non-200 http status) directly.
const (
	StatusCodeOK    = 0
	StatusCodeError = 1
)
