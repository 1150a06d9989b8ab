package devstores

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/planttracer/odb/internal/config"
)

func TestImagesFromEnv(t *testing.T) {
	t.Setenv("DB_IMAGE", "mariadb:11")
	t.Setenv("REDIS_IMAGE", "")
	t.Setenv("DYNAMODB_IMAGE", "amazon/dynamodb-local")

	assert.Equal(t, Images{DB: "mariadb:11", DynamoDB: "amazon/dynamodb-local"}, ImagesFromEnv())
}

func TestStartDB_UnsupportedType(t *testing.T) {
	_, _, err := StartDB(context.Background(), "whatever", config.DatabaseConfig{Type: "sqlite"})
	assert.ErrorContains(t, err, "sqlite")
}

func TestStartAll_Nothing(t *testing.T) {
	cs, err := StartAll(context.Background(), Images{}, config.DatabaseConfig{}, zap.NewNop())
	assert.NoError(t, err)
	assert.Empty(t, cs.Env())
	cs.Terminate(context.Background(), zap.NewNop())
}
