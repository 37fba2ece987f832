package main

import (
	"fmt"
	"time"
)

type Config struct {
	BufferSize        int           `env:"BUFFER_SIZE,default=256"`
	ClientBufferSize  int           `env:"CLIENT_BUFFER_SIZE,default=64"`
	CharReplacement   string        `env:"CHARACTER_REPLACEMENT,default=*"`
	SinkTimeout       time.Duration `env:"SINK_TIMEOUT,default=2s"`
	RestartInterval   time.Duration `env:"RESTART_INTERVAL,default=5s"`
	RetentionInterval time.Duration `env:"RETENTION_INTERVAL,default=12h"`
	BadgerFilepath    string        `env:"BADGER_FILEPATH,required=true"`
	LogLevel          string        `env:"LOG_LEVEL,default=info"`
}

func characterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf("CHARACTER_REPLACEMENT must be a single character, got %q", str)
	}
	return r[0], nil
}
