// Package services implements the plant tracker repositories on top of the
// record store: users, courses, movies and frames, API keys and logs.
//
// Every operation is a short sequence of single-item store calls. Nothing
// spans items atomically; uniqueness of emails and course keys is arbitrated
// by conditional puts on marker records, and counters use Table.Update.
package services

import (
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/planttracer/odb/internal/store"
)

var tracer = otel.Tracer("services")

// base carries what every repository shares.
type base struct {
	t      *tables
	logger *zap.Logger
	now    func() time.Time
}

// Option customizes New.
type Option func(*base)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(b *base) {
		b.now = now
	}
}

// Services bundles the repositories over one store.
type Services struct {
	Users   *UserService
	Courses *CourseService
	Movies  *MovieService
	APIKeys *APIKeyService
	Logs    *LogService

	store *store.Store
}

// New builds the repositories. The store is shared and safe for concurrent use.
func New(st *store.Store, logger *zap.Logger, opts ...Option) *Services {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &base{t: newTables(st), logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(b)
	}

	return &Services{
		Users:   &UserService{base: b},
		Courses: &CourseService{base: b},
		Movies:  &MovieService{base: b},
		APIKeys: &APIKeyService{base: b},
		Logs:    &LogService{base: b},
		store:   st,
	}
}

// Store returns the underlying store.
func (s *Services) Store() *store.Store {
	return s.store
}

// unix returns the current time in seconds.
func (b *base) unix() int64 {
	return b.now().Unix()
}

// fail records err on span and returns it.
func fail(span trace.Span, err error) error {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}
