package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/BioHazard786/classcast/internal/conference"
)

// Sink persists or forwards audit records.
type Sink interface {
	Write(ctx context.Context, rec Record) error
	Close() error
}

// FileSink appends one JSON object per line to a file.
type FileSink struct {
	mu sync.Mutex
	f  *os.File
}

func NewFileSink(path string) (*FileSink, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open audit file: %w", err)
	}
	return &FileSink{f: f}, nil
}

func (s *FileSink) Write(_ context.Context, rec Record) error {
	line, err := json.Marshal(rec)
	if err != nil {
		return conference.NewError("encode audit record", conference.ErrTransient, err.Error())
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.f.Write(line); err != nil {
		return conference.NewError("write audit record", conference.ErrTransient, err.Error())
	}
	return nil
}

func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.f.Close()
}

// RedisSink publishes each record as JSON on a Redis channel so other
// services can follow the coordinator's activity.
type RedisSink struct {
	rdb     *redis.Client
	channel string
}

// NewRedisSink connects to addr and verifies connectivity.
func NewRedisSink(ctx context.Context, addr, channel string) (*RedisSink, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return &RedisSink{rdb: rdb, channel: channel}, nil
}

func (s *RedisSink) Write(ctx context.Context, rec Record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return conference.NewError("encode audit record", conference.ErrTransient, err.Error())
	}
	if err := s.rdb.Publish(ctx, s.channel, raw).Err(); err != nil {
		return conference.NewError("publish audit record", conference.ErrTransient, err.Error())
	}
	return nil
}

func (s *RedisSink) Close() error { return s.rdb.Close() }

// Multi writes every record to all sinks and joins their errors.
type Multi []Sink

func (m Multi) Write(ctx context.Context, rec Record) error {
	var errs []error
	for _, s := range m {
		if err := s.Write(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type nopSink struct{}

func (nopSink) Write(context.Context, Record) error { return nil }
func (nopSink) Close() error                        { return nil }

// Nop discards every record.
var Nop Sink = nopSink{}
