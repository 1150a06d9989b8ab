package models

// APIKey is an opaque bearer token issued to a user.
type APIKey struct {
	APIKey      string `json:"api_key" validate:"required"`
	UserID      string `json:"user_id" validate:"required"`
	Enabled     int    `json:"enabled" validate:"oneof=0 1"`
	UseCount    int64  `json:"use_count" validate:"gte=0"`
	Created     int64  `json:"created"`
	FirstUsedAt int64  `json:"first_used_at"`
	LastUsedAt  int64  `json:"last_used_at"`
}

// PrimaryKey implements store.Document.
func (k APIKey) PrimaryKey() string { return k.APIKey }

// IndexValues implements store.Document.
func (k APIKey) IndexValues() map[string]string {
	return map[string]string{IndexUserID: k.UserID}
}
