package services

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/planttracer/odb/internal/models"
	"github.com/planttracer/odb/internal/types"
)

// errKeyDisabled stops the validation update when the key was revoked
// between the read and the swap.
var errKeyDisabled = errors.New("api key disabled")

// APIKeyService issues and validates API keys.
//
// A key is issued enabled, counts every successful validation, and ends
// either revoked (enabled=0, kept for audit) or deleted.
type APIKeyService struct {
	*base
}

// MakeNewAPIKey issues a key for the user with email. It fails with
// types.ErrUnknownUser when there is no such user.
func (s *APIKeyService) MakeNewAPIKey(ctx context.Context, email string) (string, error) {
	ctx, span := tracer.Start(ctx, "APIKeyService.MakeNewAPIKey")
	defer span.End()

	user, err := s.userByEmail(ctx, email)
	if err != nil {
		return "", fail(span, err)
	}
	if user == nil {
		return "", fail(span, types.ErrUnknownUser)
	}
	span.SetAttributes(attribute.String("user_id", user.UserID))

	key := models.APIKey{
		APIKey:  NewAPIKey(),
		UserID:  user.UserID,
		Enabled: 1,
		Created: s.unix(),
	}
	if err := s.t.apiKeys.Put(ctx, key, true); err != nil {
		return "", fail(span, err)
	}

	s.logger.Info("API key issued", zap.String("user_id", user.UserID))
	return key.APIKey, nil
}

// ValidateAPIKey returns the user owning apiKey and records the use. It
// fails with types.ErrInvalidAPIKey when the key is malformed, unknown or
// disabled, or when its user is missing or disabled. Concurrent validations
// of one key are all counted.
func (s *APIKeyService) ValidateAPIKey(ctx context.Context, apiKey string) (*models.User, error) {
	ctx, span := tracer.Start(ctx, "APIKeyService.ValidateAPIKey")
	defer span.End()

	if !IsAPIKey(apiKey) {
		return nil, fail(span, types.ErrInvalidAPIKey)
	}
	key, err := s.t.apiKeys.Get(ctx, apiKey)
	if err != nil {
		return nil, fail(span, err)
	}
	if key == nil || key.Enabled == 0 {
		return nil, fail(span, types.ErrInvalidAPIKey)
	}
	user, err := s.t.users.Get(ctx, key.UserID)
	if err != nil {
		return nil, fail(span, err)
	}
	if user == nil || user.Enabled == 0 {
		return nil, fail(span, types.ErrInvalidAPIKey)
	}

	updated, err := s.t.apiKeys.Update(ctx, apiKey, func(k *models.APIKey) error {
		if k.Enabled == 0 {
			return errKeyDisabled
		}
		now := max(s.unix(), k.Created, k.LastUsedAt)
		k.UseCount++
		if k.FirstUsedAt == 0 {
			k.FirstUsedAt = now
		}
		k.LastUsedAt = now
		return nil
	})
	if errors.Is(err, errKeyDisabled) || (err == nil && updated == nil) {
		return nil, fail(span, types.ErrInvalidAPIKey)
	}
	if err != nil {
		return nil, fail(span, err)
	}

	span.SetAttributes(attribute.String("user_id", user.UserID), attribute.Int64("use_count", updated.UseCount))
	return user, nil
}

// GetAPIKey returns the key record, or nil.
func (s *APIKeyService) GetAPIKey(ctx context.Context, apiKey string) (*models.APIKey, error) {
	return s.t.apiKeys.Get(ctx, apiKey)
}

// DelAPIKey deletes apiKey. Deleting an unknown key is not an error.
func (s *APIKeyService) DelAPIKey(ctx context.Context, apiKey string) error {
	ctx, span := tracer.Start(ctx, "APIKeyService.DelAPIKey")
	defer span.End()

	return fail(span, s.t.apiKeys.Delete(ctx, apiKey))
}

// RevokeAPIKey disables apiKey permanently. The record is kept.
func (s *APIKeyService) RevokeAPIKey(ctx context.Context, apiKey string) error {
	ctx, span := tracer.Start(ctx, "APIKeyService.RevokeAPIKey")
	defer span.End()

	key, err := s.t.apiKeys.Update(ctx, apiKey, func(k *models.APIKey) error {
		k.Enabled = 0
		return nil
	})
	if err != nil {
		return fail(span, err)
	}
	if key == nil {
		return fail(span, types.ErrInvalidAPIKey)
	}
	s.logger.Info("API key revoked", zap.String("user_id", key.UserID))
	return nil
}

// APIKeysForUser returns every key issued to userID, revoked ones included.
func (s *APIKeyService) APIKeysForUser(ctx context.Context, userID string) ([]models.APIKey, error) {
	ctx, span := tracer.Start(ctx, "APIKeyService.APIKeysForUser")
	defer span.End()

	keys, err := s.t.apiKeys.GetBySecondary(ctx, models.IndexUserID, userID)
	return keys, fail(span, err)
}
