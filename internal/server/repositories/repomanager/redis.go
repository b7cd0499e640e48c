package repomanager

import (
	"github.com/dmitrijs2005/authkeeper/internal/dbx"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/refreshtokens"
	"github.com/redis/go-redis/v9"
)

// RedisTokensRepositoryManager keeps accounts in PostgreSQL and refresh
// tokens in Redis. The DBTX passed to RefreshTokens is ignored.
type RedisTokensRepositoryManager struct {
	PostgresRepositoryManager
	client redis.UniversalClient
}

func NewRedisTokensRepositoryManager(client redis.UniversalClient) RepositoryManager {
	return &RedisTokensRepositoryManager{client: client}
}

func (m *RedisTokensRepositoryManager) RefreshTokens(dbx.DBTX) refreshtokens.Repository {
	return refreshtokens.NewRedisRepository(m.client)
}
