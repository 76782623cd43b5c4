package main

import "time"

type Config struct {
	LogLevel               string        `env:"LOG_LEVEL,required=true"`
	BadgerFilepath         string        `env:"BADGER_FILEPATH,required=true"`
	Host                   string        `env:"HOST,default=localhost"`
	Port                   int           `env:"PORT,default=8080"`
	MaxContentLength       int           `env:"MAX_CONTENT_LENGTH,default=2000"`
	BufferSize             int           `env:"BUFFER_SIZE,default=1024"`
	SubscriptionBufferSize int           `env:"SUBSCRIPTION_BUFFER_SIZE,default=64"`
	DedupWindow            int           `env:"DEDUP_WINDOW,default=512"`
	SinkTimeout            time.Duration `env:"SINK_TIMEOUT,default=2s"`
	PublishTimeout         time.Duration `env:"PUBLISH_TIMEOUT,default=5s"`
	RestartInterval        time.Duration `env:"RESTART_INTERVAL,default=1s"`
	ShutdownTimeout        time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
	MetricInterval         time.Duration `env:"METRIC_INTERVAL,default=5s"`
	LookupTimeout          time.Duration `env:"LOOKUP_TIMEOUT,default=2s"`
	AggregationConcurrency int           `env:"AGGREGATION_CONCURRENCY,default=8"`
	DirectoryBaseURL       string        `env:"DIRECTORY_BASE_URL,required=true"`
	DirectoryTimeout       time.Duration `env:"DIRECTORY_TIMEOUT,default=1500ms"`
	DirectoryCacheSize     int           `env:"DIRECTORY_CACHE_SIZE,default=1024"`
	DirectoryCacheTTL      time.Duration `env:"DIRECTORY_CACHE_TTL,default=5m"`
	DirectoryMaxFailures   int           `env:"DIRECTORY_MAX_FAILURES,default=5"`
	DirectoryOpenTimeout   time.Duration `env:"DIRECTORY_OPEN_TIMEOUT,default=30s"`
	AuthSecret             string        `env:"AUTH_SECRET,required=true"`
	AuthIssuer             string        `env:"AUTH_ISSUER"`
	TutorGreeting          string        `env:"TUTOR_GREETING,default=Hi! I'm interested in your tutoring."`
	RequestGreeting        string        `env:"REQUEST_GREETING"`
}
