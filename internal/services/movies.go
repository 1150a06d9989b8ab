package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/planttracer/odb/internal/models"
	"github.com/planttracer/odb/internal/types"
	"github.com/planttracer/odb/internal/validate"
)

// NoFrameTracked is returned by LastTrackedMovieFrame when no frame of the
// movie has a trackpoint.
const NoFrameTracked = -1

// MovieService manages movies, their frames and trackpoints.
type MovieService struct {
	*base
}

// MovieMetadata is a partial update of a movie. Nil fields are left alone.
type MovieMetadata struct {
	Title       *string
	Description *string
	FPS         *decimal.Decimal
	Width       *int
	Height      *int
	TotalFrames *int
	TotalBytes  *int64
}

// PutMovie creates movie. A missing movie_id is generated. The owner must
// exist (types.ErrUnknownUser) and so must the course (types.ErrUnknownCourse).
func (s *MovieService) PutMovie(ctx context.Context, movie models.Movie) (*models.Movie, error) {
	ctx, span := tracer.Start(ctx, "MovieService.PutMovie")
	defer span.End()

	if movie.MovieID == "" {
		movie.MovieID = NewMovieID()
	}
	if movie.CreatedAt == 0 {
		movie.CreatedAt = s.unix()
	}
	movie.LastFrameTracked = NoFrameTracked
	movie.Version = 1
	if err := validate.Struct(movie); err != nil {
		return nil, fail(span, err)
	}
	span.SetAttributes(attribute.String("movie_id", movie.MovieID))

	if _, _, err := s.userAndCourse(ctx, movie.UserID, movie.CourseID); err != nil {
		return nil, fail(span, err)
	}
	if err := s.t.movies.Put(ctx, movie, true); err != nil {
		return nil, fail(span, err)
	}

	s.logger.Info("Movie added", zap.String("movie_id", movie.MovieID), zap.String("user_id", movie.UserID))
	return &movie, nil
}

// GetMovie returns nil when the movie does not exist.
func (s *MovieService) GetMovie(ctx context.Context, movieID string) (*models.Movie, error) {
	ctx, span := tracer.Start(ctx, "MovieService.GetMovie")
	defer span.End()

	movie, err := s.t.movies.Get(ctx, movieID)
	return movie, fail(span, err)
}

// GetMoviesForUserID returns the movies owned by userID, soft-deleted ones
// included. Order is not significant.
func (s *MovieService) GetMoviesForUserID(ctx context.Context, userID string) ([]models.Movie, error) {
	ctx, span := tracer.Start(ctx, "MovieService.GetMoviesForUserID")
	defer span.End()

	movies, err := s.t.movies.GetBySecondary(ctx, models.IndexUserID, userID)
	return movies, fail(span, err)
}

// GetMoviesForCourseID returns the movies associated with courseID.
func (s *MovieService) GetMoviesForCourseID(ctx context.Context, courseID string) ([]models.Movie, error) {
	ctx, span := tracer.Start(ctx, "MovieService.GetMoviesForCourseID")
	defer span.End()

	movies, err := s.t.movies.GetBySecondary(ctx, models.IndexCourseID, courseID)
	return movies, fail(span, err)
}

// SetMovieMetadata applies meta and bumps the movie version.
func (s *MovieService) SetMovieMetadata(ctx context.Context, movieID string, meta MovieMetadata) (*models.Movie, error) {
	ctx, span := tracer.Start(ctx, "MovieService.SetMovieMetadata")
	defer span.End()

	movie, err := s.updateMovie(ctx, movieID, func(m *models.Movie) error {
		if meta.Title != nil {
			m.Title = *meta.Title
		}
		if meta.Description != nil {
			m.Description = *meta.Description
		}
		if meta.FPS != nil {
			m.FPS = *meta.FPS
		}
		if meta.Width != nil {
			m.Width = *meta.Width
		}
		if meta.Height != nil {
			m.Height = *meta.Height
		}
		if meta.TotalFrames != nil {
			m.TotalFrames = *meta.TotalFrames
		}
		if meta.TotalBytes != nil {
			m.TotalBytes = *meta.TotalBytes
		}
		return validate.Struct(*m)
	})
	return movie, fail(span, err)
}

// SetMoviePublished sets the published flag.
func (s *MovieService) SetMoviePublished(ctx context.Context, movieID string, published int) (*models.Movie, error) {
	ctx, span := tracer.Start(ctx, "MovieService.SetMoviePublished")
	defer span.End()

	if err := validate.Flag("published", published); err != nil {
		return nil, fail(span, err)
	}
	movie, err := s.updateMovie(ctx, movieID, func(m *models.Movie) error {
		m.Published = published
		return nil
	})
	return movie, fail(span, err)
}

// SetMovieDeleted sets the soft-delete flag. The movie and its frames stay
// in the store until purged.
func (s *MovieService) SetMovieDeleted(ctx context.Context, movieID string, deleted int) (*models.Movie, error) {
	ctx, span := tracer.Start(ctx, "MovieService.SetMovieDeleted")
	defer span.End()

	if err := validate.Flag("deleted", deleted); err != nil {
		return nil, fail(span, err)
	}
	movie, err := s.updateMovie(ctx, movieID, func(m *models.Movie) error {
		m.Deleted = deleted
		return nil
	})
	return movie, fail(span, err)
}

// PurgeMovie physically removes the movie and all of its frames.
func (s *MovieService) PurgeMovie(ctx context.Context, movieID string) error {
	ctx, span := tracer.Start(ctx, "MovieService.PurgeMovie")
	defer span.End()
	span.SetAttributes(attribute.String("movie_id", movieID))

	return fail(span, s.purgeMovie(ctx, movieID))
}

func (b *base) purgeMovie(ctx context.Context, movieID string) error {
	frames, err := b.t.frames.GetBySecondary(ctx, models.IndexMovieID, movieID)
	if err != nil {
		return err
	}
	for _, f := range frames {
		if err := b.t.frames.Delete(ctx, f.PrimaryKey()); err != nil {
			return err
		}
	}
	if err := b.t.movies.Delete(ctx, movieID); err != nil {
		return err
	}
	b.logger.Info("Movie purged", zap.String("movie_id", movieID), zap.Int("frames", len(frames)))
	return nil
}

// updateMovie bumps the version on every successful change.
func (s *MovieService) updateMovie(ctx context.Context, movieID string, mutate func(*models.Movie) error) (*models.Movie, error) {
	movie, err := s.t.movies.Update(ctx, movieID, func(m *models.Movie) error {
		if err := mutate(m); err != nil {
			return err
		}
		m.Version++
		return nil
	})
	if err != nil {
		return nil, err
	}
	if movie == nil {
		return nil, fmt.Errorf("%w: %s", types.ErrUnknownMovie, movieID)
	}
	return movie, nil
}

// PutMovieFrame writes frame, replacing any trackpoints stored for the same
// movie and frame number. Trackpoint coordinates are rounded to one decimal
// place and stamped with the frame number.
func (s *MovieService) PutMovieFrame(ctx context.Context, frame models.MovieFrame) error {
	ctx, span := tracer.Start(ctx, "MovieService.PutMovieFrame")
	defer span.End()
	span.SetAttributes(attribute.String("movie_id", frame.MovieID), attribute.Int("frame_number", frame.FrameNumber))

	frame.Trackpoints = models.NormalizeTrackpoints(frame.FrameNumber, frame.Trackpoints)
	if err := validate.Struct(frame); err != nil {
		return fail(span, err)
	}
	if err := s.t.frames.Put(ctx, frame, false); err != nil {
		return fail(span, err)
	}
	s.noteTracked(ctx, frame.MovieID, frame.FrameNumber, len(frame.Trackpoints) > 0)
	return nil
}

// PutFrameTrackpoints sets the trackpoints of one frame, creating the frame
// if needed.
func (s *MovieService) PutFrameTrackpoints(ctx context.Context, movieID string, frameNumber int, trackpoints []models.Trackpoint) error {
	return s.PutMovieFrame(ctx, models.MovieFrame{
		MovieID:     movieID,
		FrameNumber: frameNumber,
		Trackpoints: trackpoints,
	})
}

// GetFrames returns every frame of the movie by ascending frame number.
func (s *MovieService) GetFrames(ctx context.Context, movieID string) ([]models.MovieFrame, error) {
	ctx, span := tracer.Start(ctx, "MovieService.GetFrames")
	defer span.End()

	frames, err := s.t.frames.GetBySecondary(ctx, models.IndexMovieID, movieID)
	if err != nil {
		return nil, fail(span, err)
	}
	sort.SliceStable(frames, func(i, j int) bool {
		return frames[i].FrameNumber < frames[j].FrameNumber
	})
	return frames, nil
}

// GetMovieFrame returns nil when the frame does not exist.
func (s *MovieService) GetMovieFrame(ctx context.Context, movieID string, frameNumber int) (*models.MovieFrame, error) {
	ctx, span := tracer.Start(ctx, "MovieService.GetMovieFrame")
	defer span.End()

	frame, err := s.t.frames.Get(ctx, models.FrameKey(movieID, frameNumber))
	return frame, fail(span, err)
}

// GetMovieTrackpoints flattens the trackpoints of every frame, ordered by
// frame number and then by their order within the frame.
func (s *MovieService) GetMovieTrackpoints(ctx context.Context, movieID string) ([]models.Trackpoint, error) {
	frames, err := s.GetFrames(ctx, movieID)
	if err != nil {
		return nil, err
	}
	var tps []models.Trackpoint
	for _, f := range frames {
		tps = append(tps, f.Trackpoints...)
	}
	return tps, nil
}

// LastTrackedMovieFrame returns the highest frame number with at least one
// trackpoint, or NoFrameTracked. It reduces over every frame rather than
// trusting write order.
func (s *MovieService) LastTrackedMovieFrame(ctx context.Context, movieID string) (int, error) {
	ctx, span := tracer.Start(ctx, "MovieService.LastTrackedMovieFrame")
	defer span.End()

	frames, err := s.t.frames.GetBySecondary(ctx, models.IndexMovieID, movieID)
	if err != nil {
		return NoFrameTracked, fail(span, err)
	}
	return lastTracked(frames), nil
}

func lastTracked(frames []models.MovieFrame) int {
	last := NoFrameTracked
	for _, f := range frames {
		if len(f.Trackpoints) > 0 && f.FrameNumber > last {
			last = f.FrameNumber
		}
	}
	return last
}

// noteTracked keeps Movie.last_frame_tracked current after a frame write.
// It is best effort: a missing movie or a failed update is only logged.
func (s *MovieService) noteTracked(ctx context.Context, movieID string, frameNumber int, tracked bool) {
	movie, err := s.t.movies.Get(ctx, movieID)
	if err != nil || movie == nil {
		if err != nil {
			s.logger.Warn("Failed to read movie for last tracked frame", zap.String("movie_id", movieID), zap.Error(err))
		}
		return
	}

	var last int
	switch {
	case tracked && frameNumber > movie.LastFrameTracked:
		last = frameNumber
	case !tracked && frameNumber == movie.LastFrameTracked:
		frames, err := s.t.frames.GetBySecondary(ctx, models.IndexMovieID, movieID)
		if err != nil {
			s.logger.Warn("Failed to rescan frames", zap.String("movie_id", movieID), zap.Error(err))
			return
		}
		last = lastTracked(frames)
	default:
		return
	}

	if _, err := s.t.movies.Update(ctx, movieID, func(m *models.Movie) error {
		if tracked {
			m.LastFrameTracked = max(m.LastFrameTracked, last)
		} else {
			m.LastFrameTracked = last
		}
		return nil
	}); err != nil {
		s.logger.Warn("Failed to record last tracked frame", zap.String("movie_id", movieID), zap.Error(err))
	}
}
