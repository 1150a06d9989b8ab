package services_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planttracer/odb/internal/models"
	"github.com/planttracer/odb/internal/services"
	"github.com/planttracer/odb/internal/types"
)

func tp(x, y, label string) models.Trackpoint {
	return models.Trackpoint{X: decimal.RequireFromString(x), Y: decimal.RequireFromString(y), Label: label}
}

func setupMovie(t *testing.T) (*services.Services, *models.Movie) {
	t.Helper()
	svc := setupServices(t)
	user := addUser(t, svc, "grower@example.com")
	addCourse(t, svc, "c1", "BIO-101", 0)
	return svc, addMovie(t, svc, user.UserID, "c1")
}

func TestPutMovie(t *testing.T) {
	svc, movie := setupMovie(t)
	ctx := context.Background()

	assert.Equal(t, byte('m'), movie.MovieID[0])
	assert.Equal(t, services.NoFrameTracked, movie.LastFrameTracked)
	assert.Equal(t, int64(1), movie.Version)

	got, err := svc.Movies.GetMovie(ctx, movie.MovieID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, movie.Title, got.Title)

	_, err = svc.Movies.PutMovie(ctx, *movie)
	assert.ErrorIs(t, err, types.ErrAlreadyExists)

	_, err = svc.Movies.PutMovie(ctx, models.Movie{UserID: "unobody", CourseID: "c1"})
	assert.ErrorIs(t, err, types.ErrUnknownUser)

	absent, err := svc.Movies.GetMovie(ctx, "mnothere")
	require.NoError(t, err)
	assert.Nil(t, absent)
}

func TestGetMoviesForUserAndCourse(t *testing.T) {
	svc, movie := setupMovie(t)
	ctx := context.Background()
	second := addMovie(t, svc, movie.UserID, "c1")

	byUser, err := svc.Movies.GetMoviesForUserID(ctx, movie.UserID)
	require.NoError(t, err)
	ids := []string{}
	for _, m := range byUser {
		ids = append(ids, m.MovieID)
	}
	assert.ElementsMatch(t, []string{movie.MovieID, second.MovieID}, ids)

	byCourse, err := svc.Movies.GetMoviesForCourseID(ctx, "c1")
	require.NoError(t, err)
	assert.Len(t, byCourse, 2)

	none, err := svc.Movies.GetMoviesForUserID(ctx, "unobody")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSetMovieMetadata(t *testing.T) {
	svc, movie := setupMovie(t)
	ctx := context.Background()

	title := "Radish"
	fps := decimal.RequireFromString("29.97")
	frames := 120
	updated, err := svc.Movies.SetMovieMetadata(ctx, movie.MovieID, services.MovieMetadata{
		Title:       &title,
		FPS:         &fps,
		TotalFrames: &frames,
	})
	require.NoError(t, err)
	assert.Equal(t, "Radish", updated.Title)
	assert.True(t, fps.Equal(updated.FPS))
	assert.Equal(t, 120, updated.TotalFrames)
	assert.Equal(t, int64(2), updated.Version)

	bad := -1
	_, err = svc.Movies.SetMovieMetadata(ctx, movie.MovieID, services.MovieMetadata{Width: &bad})
	assert.ErrorIs(t, err, types.ErrInvalidArgument)

	_, err = svc.Movies.SetMovieMetadata(ctx, "mnothere", services.MovieMetadata{Title: &title})
	assert.ErrorIs(t, err, types.ErrUnknownMovie)
}

func TestSetMoviePublishedAndDeleted(t *testing.T) {
	svc, movie := setupMovie(t)
	ctx := context.Background()

	m, err := svc.Movies.SetMoviePublished(ctx, movie.MovieID, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, m.Published)

	m, err = svc.Movies.SetMovieDeleted(ctx, movie.MovieID, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, m.Deleted)
	assert.Equal(t, int64(3), m.Version)

	_, err = svc.Movies.SetMoviePublished(ctx, movie.MovieID, 2)
	assert.ErrorIs(t, err, types.ErrInvalidArgument)

	// soft delete keeps the record
	still, err := svc.Movies.GetMovie(ctx, movie.MovieID)
	require.NoError(t, err)
	assert.NotNil(t, still)
}

func TestPurgeMovie(t *testing.T) {
	svc, movie := setupMovie(t)
	ctx := context.Background()
	require.NoError(t, svc.Movies.PutFrameTrackpoints(ctx, movie.MovieID, 0, []models.Trackpoint{tp("1", "2", "a")}))
	require.NoError(t, svc.Movies.PutFrameTrackpoints(ctx, movie.MovieID, 1, nil))

	require.NoError(t, svc.Movies.PurgeMovie(ctx, movie.MovieID))

	m, err := svc.Movies.GetMovie(ctx, movie.MovieID)
	require.NoError(t, err)
	assert.Nil(t, m)
	frames, err := svc.Movies.GetFrames(ctx, movie.MovieID)
	require.NoError(t, err)
	assert.Empty(t, frames)
}

func TestLastTrackedMovieFrame_TwoFrames(t *testing.T) {
	svc, movie := setupMovie(t)
	ctx := context.Background()

	last, err := svc.Movies.LastTrackedMovieFrame(ctx, movie.MovieID)
	require.NoError(t, err)
	assert.Equal(t, services.NoFrameTracked, last)

	require.NoError(t, svc.Movies.PutFrameTrackpoints(ctx, movie.MovieID, 0, []models.Trackpoint{tp("10", "20", "name1"), tp("45", "55", "name2")}))
	require.NoError(t, svc.Movies.PutFrameTrackpoints(ctx, movie.MovieID, 1, []models.Trackpoint{tp("20", "30", "name3"), tp("65", "85", "name4")}))

	last, err = svc.Movies.LastTrackedMovieFrame(ctx, movie.MovieID)
	require.NoError(t, err)
	assert.Equal(t, 1, last)
}

func TestLastTrackedMovieFrame_MaxNotLastWritten(t *testing.T) {
	svc, movie := setupMovie(t)
	ctx := context.Background()

	for _, n := range []int{3, 7, 2, 5} {
		require.NoError(t, svc.Movies.PutFrameTrackpoints(ctx, movie.MovieID, n, []models.Trackpoint{tp("1", "1", "p")}))
	}
	// an untracked frame above the max does not count
	require.NoError(t, svc.Movies.PutFrameTrackpoints(ctx, movie.MovieID, 9, nil))

	last, err := svc.Movies.LastTrackedMovieFrame(ctx, movie.MovieID)
	require.NoError(t, err)
	assert.Equal(t, 7, last)

	m, err := svc.Movies.GetMovie(ctx, movie.MovieID)
	require.NoError(t, err)
	assert.Equal(t, 7, m.LastFrameTracked)

	// clearing the max frame falls back to the next tracked one
	require.NoError(t, svc.Movies.PutFrameTrackpoints(ctx, movie.MovieID, 7, nil))
	last, err = svc.Movies.LastTrackedMovieFrame(ctx, movie.MovieID)
	require.NoError(t, err)
	assert.Equal(t, 5, last)

	m, err = svc.Movies.GetMovie(ctx, movie.MovieID)
	require.NoError(t, err)
	assert.Equal(t, 5, m.LastFrameTracked)
}

func TestPutFrameTrackpoints_Rounding(t *testing.T) {
	svc, movie := setupMovie(t)
	ctx := context.Background()

	require.NoError(t, svc.Movies.PutFrameTrackpoints(ctx, movie.MovieID, 4, []models.Trackpoint{
		tp("10.06", "10.04", "a"),
		tp("10.05", "-10.05", "b"),
	}))

	frame, err := svc.Movies.GetMovieFrame(ctx, movie.MovieID, 4)
	require.NoError(t, err)
	require.NotNil(t, frame)
	require.Len(t, frame.Trackpoints, 2)

	assert.Equal(t, "10.1", frame.Trackpoints[0].X.StringFixed(1))
	assert.Equal(t, "10.0", frame.Trackpoints[0].Y.StringFixed(1))
	assert.True(t, frame.Trackpoints[0].Y.Equal(decimal.RequireFromString("10.0")))
	assert.Equal(t, "10.1", frame.Trackpoints[1].X.StringFixed(1))
	assert.Equal(t, "-10.1", frame.Trackpoints[1].Y.StringFixed(1))
	for _, p := range frame.Trackpoints {
		assert.Equal(t, 4, p.FrameNumber)
	}
}

func TestPutMovieFrame_ReplacesTrackpoints(t *testing.T) {
	svc, movie := setupMovie(t)
	ctx := context.Background()

	require.NoError(t, svc.Movies.PutMovieFrame(ctx, models.MovieFrame{
		MovieID:     movie.MovieID,
		FrameNumber: 0,
		Trackpoints: []models.Trackpoint{tp("1", "1", "a"), tp("2", "2", "b")},
	}))
	require.NoError(t, svc.Movies.PutMovieFrame(ctx, models.MovieFrame{
		MovieID:     movie.MovieID,
		FrameNumber: 0,
		Trackpoints: []models.Trackpoint{tp("3", "3", "c")},
	}))

	frames, err := svc.Movies.GetFrames(ctx, movie.MovieID)
	require.NoError(t, err)
	require.Len(t, frames, 1)
	require.Len(t, frames[0].Trackpoints, 1)
	assert.Equal(t, "c", frames[0].Trackpoints[0].Label)

	err = svc.Movies.PutMovieFrame(ctx, models.MovieFrame{MovieID: movie.MovieID, FrameNumber: -1})
	assert.ErrorIs(t, err, types.ErrInvalidArgument)
}

func TestGetFrames_Sorted(t *testing.T) {
	svc, movie := setupMovie(t)
	ctx := context.Background()
	for _, n := range []int{12, 3, 100, 0} {
		require.NoError(t, svc.Movies.PutFrameTrackpoints(ctx, movie.MovieID, n, nil))
	}

	frames, err := svc.Movies.GetFrames(ctx, movie.MovieID)
	require.NoError(t, err)
	var numbers []int
	for _, f := range frames {
		numbers = append(numbers, f.FrameNumber)
	}
	assert.Equal(t, []int{0, 3, 12, 100}, numbers)

	missing, err := svc.Movies.GetMovieFrame(ctx, movie.MovieID, 55)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestGetMovieTrackpoints_Order(t *testing.T) {
	svc, movie := setupMovie(t)
	ctx := context.Background()

	// frame 1 is written first
	require.NoError(t, svc.Movies.PutFrameTrackpoints(ctx, movie.MovieID, 1, []models.Trackpoint{tp("20", "30", "name3"), tp("65", "85", "name4")}))
	require.NoError(t, svc.Movies.PutFrameTrackpoints(ctx, movie.MovieID, 0, []models.Trackpoint{tp("10", "20", "name1"), tp("45", "55", "name2")}))

	tps, err := svc.Movies.GetMovieTrackpoints(ctx, movie.MovieID)
	require.NoError(t, err)
	require.Len(t, tps, 4)

	want := []struct {
		frame int
		x, y  string
		label string
	}{
		{0, "10", "20", "name1"},
		{0, "45", "55", "name2"},
		{1, "20", "30", "name3"},
		{1, "65", "85", "name4"},
	}
	for i, w := range want {
		assert.Equal(t, w.frame, tps[i].FrameNumber, "trackpoint %d", i)
		assert.True(t, decimal.RequireFromString(w.x).Equal(tps[i].X), "trackpoint %d x", i)
		assert.True(t, decimal.RequireFromString(w.y).Equal(tps[i].Y), "trackpoint %d y", i)
		assert.Equal(t, w.label, tps[i].Label)
	}
}
