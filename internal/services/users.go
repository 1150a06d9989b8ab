package services

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/planttracer/odb/internal/models"
	"github.com/planttracer/odb/internal/types"
	"github.com/planttracer/odb/internal/validate"
)

// UserService manages users and the email uniqueness markers.
type UserService struct {
	*base
}

// UserLookup selects a user by exactly one of its fields.
type UserLookup struct {
	UserID string
	Email  string
}

// AddUser creates user. A missing user_id is generated and a zero created
// time is set to now. Enabled is stored as given, so callers must set it to 1
// for a user whose API keys should validate. It fails with
// types.ErrAlreadyExists when the user_id or the email is taken, leaving no
// partial state behind.
func (s *UserService) AddUser(ctx context.Context, user models.User) (*models.User, error) {
	ctx, span := tracer.Start(ctx, "UserService.AddUser")
	defer span.End()

	if user.UserID == "" {
		user.UserID = NewUserID()
	}
	if user.Created == 0 {
		user.Created = s.unix()
	}
	user.Email = strings.TrimSpace(user.Email)
	if err := validate.Struct(user); err != nil {
		return nil, fail(span, err)
	}
	span.SetAttributes(attribute.String("user_id", user.UserID))

	email := models.NormalizeEmail(user.Email)
	if err := s.claimEmail(ctx, email, user.UserID); err != nil {
		return nil, fail(span, err)
	}
	if err := s.t.users.Put(ctx, user, true); err != nil {
		s.releaseEmail(ctx, email, user.UserID)
		return nil, fail(span, err)
	}

	s.logger.Info("User added", zap.String("user_id", user.UserID))
	return &user, nil
}

// GetUser returns the user matching lookup, or nil when there is none.
// Exactly one of UserID and Email must be set.
func (s *UserService) GetUser(ctx context.Context, lookup UserLookup) (*models.User, error) {
	ctx, span := tracer.Start(ctx, "UserService.GetUser")
	defer span.End()

	if (lookup.UserID == "") == (lookup.Email == "") {
		return nil, fail(span, fmt.Errorf("%w: exactly one of user_id and email is required", types.ErrInvalidArgument))
	}
	if lookup.UserID != "" {
		user, err := s.t.users.Get(ctx, lookup.UserID)
		return user, fail(span, err)
	}
	user, err := s.userByEmail(ctx, lookup.Email)
	return user, fail(span, err)
}

// userByEmail follows the email marker. A marker whose user is gone or no
// longer carries that email counts as absent.
func (b *base) userByEmail(ctx context.Context, email string) (*models.User, error) {
	norm := models.NormalizeEmail(email)
	marker, err := b.t.emails.Get(ctx, norm)
	if err != nil || marker == nil {
		return nil, err
	}
	user, err := b.t.users.Get(ctx, marker.RefID)
	if err != nil || user == nil {
		return nil, err
	}
	if models.NormalizeEmail(user.Email) != norm {
		return nil, nil
	}
	return user, nil
}

// RenameUser changes the email of userID. When newEmail belongs to someone
// else it fails with types.ErrAlreadyExists and nothing changes.
func (s *UserService) RenameUser(ctx context.Context, userID, newEmail string) (*models.User, error) {
	ctx, span := tracer.Start(ctx, "UserService.RenameUser")
	defer span.End()
	span.SetAttributes(attribute.String("user_id", userID))

	newEmail = strings.TrimSpace(newEmail)
	if err := validate.Email(newEmail); err != nil {
		return nil, fail(span, err)
	}
	current, err := s.t.users.Get(ctx, userID)
	if err != nil {
		return nil, fail(span, err)
	}
	if current == nil {
		return nil, fail(span, types.ErrUnknownUser)
	}

	oldNorm := models.NormalizeEmail(current.Email)
	newNorm := models.NormalizeEmail(newEmail)
	if oldNorm != newNorm {
		if err := s.claimEmail(ctx, newNorm, userID); err != nil {
			return nil, fail(span, err)
		}
	}

	updated, err := s.t.users.Update(ctx, userID, func(u *models.User) error {
		u.Email = newEmail
		return nil
	})
	if err == nil && updated == nil {
		err = types.ErrUnknownUser
	}
	if err != nil {
		if oldNorm != newNorm {
			s.releaseEmail(ctx, newNorm, userID)
		}
		return nil, fail(span, err)
	}

	if oldNorm != newNorm {
		s.releaseEmail(ctx, oldNorm, userID)
	}
	s.logger.Info("User renamed", zap.String("user_id", userID))
	return updated, nil
}

// DeleteUser removes userID. When the user owns movies that are not
// soft-deleted it fails with *types.OutstandingResourcesError unless
// purgeMovies is set, in which case every owned movie and its frames are
// purged first. API keys and course memberships go with the user. Deleting
// an unknown user is a no-op.
func (s *UserService) DeleteUser(ctx context.Context, userID string, purgeMovies bool) error {
	ctx, span := tracer.Start(ctx, "UserService.DeleteUser")
	defer span.End()
	span.SetAttributes(attribute.String("user_id", userID), attribute.Bool("purge_movies", purgeMovies))

	user, err := s.t.users.Get(ctx, userID)
	if err != nil {
		return fail(span, err)
	}
	if user == nil {
		return nil
	}

	movies, err := s.t.movies.GetBySecondary(ctx, models.IndexUserID, userID)
	if err != nil {
		return fail(span, err)
	}
	live := 0
	for _, m := range movies {
		if m.Deleted == 0 {
			live++
		}
	}
	if live > 0 && !purgeMovies {
		return fail(span, &types.OutstandingResourcesError{Resource: "movies", Count: live})
	}
	if purgeMovies {
		for _, m := range movies {
			if err := s.purgeMovie(ctx, m.MovieID); err != nil {
				return fail(span, err)
			}
		}
	}

	keys, err := s.t.apiKeys.GetBySecondary(ctx, models.IndexUserID, userID)
	if err != nil {
		return fail(span, err)
	}
	for _, k := range keys {
		if err := s.t.apiKeys.Delete(ctx, k.APIKey); err != nil {
			return fail(span, err)
		}
	}

	edges, err := s.t.courseUsers.GetBySecondary(ctx, models.IndexUserID, userID)
	if err != nil {
		return fail(span, err)
	}
	for _, e := range edges {
		if err := s.t.courseUsers.Delete(ctx, e.PrimaryKey()); err != nil {
			return fail(span, err)
		}
	}

	if err := s.t.users.Delete(ctx, userID); err != nil {
		return fail(span, err)
	}
	s.releaseEmail(ctx, models.NormalizeEmail(user.Email), userID)

	s.logger.Info("User deleted",
		zap.String("user_id", userID),
		zap.Int("movies_purged", len(movies)),
		zap.Int("api_keys", len(keys)),
	)
	return nil
}

// ListUsers lazily yields every user.
func (s *UserService) ListUsers(ctx context.Context) iter.Seq2[models.User, error] {
	return s.t.users.ScanFiltered(ctx, nil)
}

// SetUserEnabled sets the enabled flag. Disabled users fail API key validation.
func (s *UserService) SetUserEnabled(ctx context.Context, userID string, enabled int) (*models.User, error) {
	ctx, span := tracer.Start(ctx, "UserService.SetUserEnabled")
	defer span.End()

	if err := validate.Flag("enabled", enabled); err != nil {
		return nil, fail(span, err)
	}
	return s.updateUser(ctx, userID, func(u *models.User) error {
		u.Enabled = enabled
		return nil
	})
}

// SetUserName sets the display name.
func (s *UserService) SetUserName(ctx context.Context, userID, fullName string) (*models.User, error) {
	ctx, span := tracer.Start(ctx, "UserService.SetUserName")
	defer span.End()

	return s.updateUser(ctx, userID, func(u *models.User) error {
		u.FullName = fullName
		return nil
	})
}

func (b *base) updateUser(ctx context.Context, userID string, mutate func(*models.User) error) (*models.User, error) {
	user, err := b.t.users.Update(ctx, userID, mutate)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, types.ErrUnknownUser
	}
	return user, nil
}

// claimEmail writes the email marker for userID, failing when it is taken.
func (b *base) claimEmail(ctx context.Context, email, userID string) error {
	err := b.t.emails.Put(ctx, models.UniqueKey{Value: email, RefID: userID}, true)
	if errors.Is(err, types.ErrAlreadyExists) {
		return &types.AlreadyExistsError{Resource: "email", Key: email}
	}
	return err
}

// releaseEmail removes the email marker if it still points at userID. A
// failure leaves a stale marker, which userByEmail already ignores.
func (b *base) releaseEmail(ctx context.Context, email, userID string) {
	marker, err := b.t.emails.Get(ctx, email)
	if err == nil && marker != nil && marker.RefID == userID {
		err = b.t.emails.Delete(ctx, email)
	}
	if err != nil {
		b.logger.Warn("Failed to release email marker", zap.String("user_id", userID), zap.Error(err))
	}
}
