package bootstrap

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"versailles-assistant/internal/common/config"
	"versailles-assistant/internal/common/logger"
	createplan "versailles-assistant/internal/workers/assistant/create-plan"
	plantools "versailles-assistant/internal/workers/assistant/plan-tools"
	retrieveevidence "versailles-assistant/internal/workers/assistant/retrieve-evidence"
	routequery "versailles-assistant/internal/workers/assistant/route-query"
	synthesizeanswer "versailles-assistant/internal/workers/assistant/synthesize-answer"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Address: ":0", ModelName: "versailles-assistant"},
		APIs: config.APIsConfig{
			LLM: config.LLMConfig{BaseURL: "http://127.0.0.1:1/v1", Model: "mistral-large-latest", Timeout: 1000, EvaluateTimeout: 2000},
		},
		Workers: map[string]config.WorkerConfig{
			routequery.TaskType: {Enabled: true, Timeout: 1500},
		},
	}
}

func TestBuildWithoutStores(t *testing.T) {
	app, err := Build(context.Background(), createTestConfig(), logger.NewTestLogger(t), nil, Options{})
	require.NoError(t, err)
	defer app.Close()

	assert.NotNil(t, app.Service)
	assert.NotNil(t, app.Knowledge)
	assert.Nil(t, app.Store)
	assert.Nil(t, app.Mailer)
	assert.Nil(t, app.Alerter)

	deps := app.APIDependencies()
	assert.NotNil(t, deps.Assistant)
	assert.Nil(t, deps.Store, "an absent store must stay an untyped nil")
	assert.Nil(t, deps.Mailer)
	assert.Empty(t, deps.Ready)

	apiCfg := app.APIConfig()
	assert.Equal(t, 2*time.Second, apiCfg.EvaluateTimeout)
}

func TestBuildConnectsRedisAndSQLite(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := createTestConfig()
	cfg.Database.Redis.Address = mr.Addr()
	cfg.Database.SQLite.Path = filepath.Join(t.TempDir(), "conversations.db")

	app, err := Build(context.Background(), cfg, logger.NewTestLogger(t), nil, Options{})
	require.NoError(t, err)
	defer app.Close()

	require.NotNil(t, app.Store)
	deps := app.APIDependencies()
	require.Contains(t, deps.Ready, "redis")
	require.Contains(t, deps.Ready, "sqlite")
	assert.NoError(t, deps.Ready["redis"](context.Background()))
	assert.NoError(t, deps.Ready["sqlite"](context.Background()))
}

func TestBuildSkipsUnreachableRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := createTestConfig()
	cfg.Database.Redis.Address = addr

	app, err := Build(context.Background(), cfg, logger.NewTestLogger(t), nil, Options{ConnectAttempts: 1})
	require.NoError(t, err)
	defer app.Close()

	assert.NotContains(t, app.APIDependencies().Ready, "redis")
}

func TestWorkerTimeouts(t *testing.T) {
	app, err := Build(context.Background(), createTestConfig(), logger.NewTestLogger(t), nil, Options{SkipStores: true})
	require.NoError(t, err)

	assert.Equal(t, 1500*time.Millisecond, app.workerConfigRouteQuery().Timeout)
	assert.Equal(t, createplan.LoadConfig().Timeout, app.workerConfigCreatePlan().Timeout)

	handlers := app.jobHandlers()
	for _, taskType := range []string{
		createplan.TaskType,
		retrieveevidence.TaskType,
		synthesizeanswer.TaskType,
		routequery.TaskType,
		plantools.TaskType,
	} {
		assert.NotNil(t, handlers[taskType], taskType)
	}
}

func TestRetryWithBackoff(t *testing.T) {
	calls := 0
	err := retryWithBackoff(func() error {
		calls++
		if calls < 3 {
			return errors.New("not yet")
		}
		return nil
	}, 5, time.Millisecond, logger.NewTestLogger(t), "test operation")
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	err = retryWithBackoff(func() error {
		calls++
		return errors.New("down")
	}, 2, time.Millisecond, logger.NewTestLogger(t), "test operation")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "test operation failed after 2 attempts")
	assert.Equal(t, 2, calls)
}

func TestLoggerAdapters(t *testing.T) {
	base := logger.NewTestLogger(t)

	var rl routequery.Logger = (&routeQueryLoggerAdapter{base}).With(map[string]interface{}{"k": "v"})
	assert.NotNil(t, rl)
	var pl plantools.Logger = (&planToolsLoggerAdapter{base}).With(nil)
	assert.NotNil(t, pl)
}
