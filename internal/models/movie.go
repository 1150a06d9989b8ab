package models

import "github.com/shopspring/decimal"

// CoordinatePlaces is the number of decimal places kept for trackpoint coordinates.
const CoordinatePlaces = 1

// Movie is an uploaded time-lapse owned by one user and associated with one course.
type Movie struct {
	MovieID          string          `json:"movie_id" validate:"required,excludes=#"`
	UserID           string          `json:"user_id" validate:"required"`
	CourseID         string          `json:"course_id" validate:"required"`
	Title            string          `json:"title"`
	Description      string          `json:"description"`
	CreatedAt        int64           `json:"created_at" validate:"gte=0"`
	Published        int             `json:"published" validate:"oneof=0 1"`
	Deleted          int             `json:"deleted" validate:"oneof=0 1"`
	FPS              decimal.Decimal `json:"fps"`
	Width            int             `json:"width" validate:"gte=0"`
	Height           int             `json:"height" validate:"gte=0"`
	TotalFrames      int             `json:"total_frames" validate:"gte=0"`
	TotalBytes       int64           `json:"total_bytes" validate:"gte=0"`
	MovieDataURN     string          `json:"movie_data_urn"`
	MovieZipfileURN  string          `json:"movie_zipfile_urn"`
	LastFrameTracked int             `json:"last_frame_tracked"`
	Version          int64           `json:"version"`
}

// PrimaryKey implements store.Document.
func (m Movie) PrimaryKey() string { return m.MovieID }

// IndexValues implements store.Document.
func (m Movie) IndexValues() map[string]string {
	return map[string]string{
		IndexUserID:   m.UserID,
		IndexCourseID: m.CourseID,
	}
}

// MovieFrame holds the trackpoints recorded for one frame of a movie.
type MovieFrame struct {
	MovieID     string       `json:"movie_id" validate:"required,excludes=#"`
	FrameNumber int          `json:"frame_number" validate:"gte=0"`
	Trackpoints []Trackpoint `json:"trackpoints" validate:"dive"`
}

// PrimaryKey implements store.Document.
func (f MovieFrame) PrimaryKey() string { return FrameKey(f.MovieID, f.FrameNumber) }

// IndexValues implements store.Document.
func (f MovieFrame) IndexValues() map[string]string {
	return map[string]string{IndexMovieID: f.MovieID}
}

// Trackpoint is a labelled point tracked on a frame. X and Y are fixed-point.
type Trackpoint struct {
	X           decimal.Decimal  `json:"x"`
	Y           decimal.Decimal  `json:"y"`
	Label       string           `json:"label"`
	FrameNumber int              `json:"frame_number" validate:"gte=0"`
	Status      int              `json:"status,omitempty"`
	Err         *decimal.Decimal `json:"err,omitempty"`
}

// RoundCoordinate rounds v to CoordinatePlaces, halves away from zero.
func RoundCoordinate(v decimal.Decimal) decimal.Decimal {
	return v.Round(CoordinatePlaces)
}

// NormalizeTrackpoints returns a copy of tps with coordinates rounded and the
// frame number set to frameNumber.
func NormalizeTrackpoints(frameNumber int, tps []Trackpoint) []Trackpoint {
	out := make([]Trackpoint, len(tps))
	for i, tp := range tps {
		tp.X = RoundCoordinate(tp.X)
		tp.Y = RoundCoordinate(tp.Y)
		tp.FrameNumber = frameNumber
		out[i] = tp
	}
	return out
}
