package main

import "time"

type Config struct {
	Port                 int           `env:"PORT,default=8080"`
	LogLevel             string        `env:"LOG_LEVEL,default=INFO"`
	BadgerFilepath       string        `env:"BADGER_FILEPATH,required=true"`
	BlugeFilepath        string        `env:"BLUGE_FILEPATH,required=true"`
	BufferSize           int           `env:"BUFFER_SIZE,default=256"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=64"`
	HistoryLimit         int           `env:"HISTORY_LIMIT,default=50"`
	SearchLimit          int           `env:"SEARCH_LIMIT,default=20"`
	RestartInterval      time.Duration `env:"RESTART_INTERVAL,default=5s"`
	LivenessInterval     time.Duration `env:"LIVENESS_INTERVAL,default=30s"`
	MetricInterval       time.Duration `env:"METRIC_INTERVAL,default=1m"`
	LatencyThreshold     time.Duration `env:"LATENCY_THRESHOLD,default=500ms"`
	ShutdownTimeout      time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
	EmotionEndpoint      string        `env:"EMOTION_ENDPOINT"`
	EmotionToken         string        `env:"EMOTION_TOKEN"`
	EmotionTimeout       time.Duration `env:"EMOTION_TIMEOUT,default=2s"`
}
