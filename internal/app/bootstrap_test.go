package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Blaze-0903/NextStepAI/internal/config"
	"github.com/Blaze-0903/NextStepAI/internal/domain/pending"
	"github.com/Blaze-0903/NextStepAI/internal/domain/skill"
	"github.com/Blaze-0903/NextStepAI/internal/infrastructure/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryConfig() config.Config {
	return config.Config{
		App:      config.AppConfig{AppName: "nextstep-test", HTTPPort: "0"},
		Auth:     config.AuthConfig{JWTSecret: "test-secret", JWTExpiresIn: time.Hour, AdminPassword: "letmein"},
		Ontology: config.OntologyConfig{SeedFile: "../../data/ontology.json"},
	}
}

func TestListenAddr(t *testing.T) {
	addr, err := ListenAddr(" 8080 ")
	require.NoError(t, err)
	assert.Equal(t, ":8080", addr)

	addr, err = ListenAddr(":9000")
	require.NoError(t, err)
	assert.Equal(t, ":9000", addr)

	_, err = ListenAddr("  ")
	assert.Error(t, err)
}

func TestNewContainer_MemoryMode(t *testing.T) {
	c, err := NewContainer(context.Background(), memoryConfig(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	assert.Nil(t, c.DB)
	require.NotNil(t, c.Memory)
	assert.False(t, c.Cache.Available())
	assert.Nil(t, c.Queue)

	snap := c.Store.Snapshot()
	assert.Equal(t, int64(1), snap.Version)
	assert.Positive(t, snap.SkillCount())
	assert.Positive(t, snap.RoleCount())
}

func TestNewContainer_MissingSeedFile(t *testing.T) {
	cfg := memoryConfig()
	cfg.Ontology.SeedFile = "does-not-exist.json"

	_, err := NewContainer(context.Background(), cfg, nil)
	assert.Error(t, err)
}

func TestApp_EndToEnd(t *testing.T) {
	a, cleanup, err := Bootstrap(context.Background(), memoryConfig(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cleanup() })

	resp, err := a.Fiber.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	body, _ := json.Marshal(map[string]string{"password": "letmein", "reviewer_name": "Dana"})
	req := httptest.NewRequest(http.MethodPost, "/api/admin/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err = a.Fiber.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var env struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	require.NotEmpty(t, env.Data.Token)

	req = httptest.NewRequest(http.MethodPost, "/api/admin/trigger-ontology-update", nil)
	req.Header.Set("Authorization", "Bearer "+env.Data.Token)
	resp, err = a.Fiber.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	a.Container.Trigger.Wait()

	_, err = a.Container.Memory.ListByStatus(context.Background(), pending.StatusPending)
	assert.NoError(t, err)
	assert.GreaterOrEqual(t, a.Container.Store.Snapshot().Version, int64(1))
}

func TestApp_WebsocketServerDisabledWithoutPort(t *testing.T) {
	a, cleanup, err := Bootstrap(context.Background(), memoryConfig(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cleanup() })

	srv, err := a.WebsocketServer()
	require.NoError(t, err)
	assert.Nil(t, srv)
}

func TestApplyRemoteReload_IgnoresPerProcessVersions(t *testing.T) {
	c, err := NewContainer(context.Background(), memoryConfig(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := c.Store.Reload(ctx)
		require.NoError(t, err)
	}
	require.Equal(t, int64(4), c.Store.Snapshot().Version)
	require.False(t, c.Store.Snapshot().HasSkill("GraphQL"))

	// Another process approved a skill against the shared backing store.
	require.NoError(t, c.Memory.UpsertSkill(ctx, skill.Skill{Name: "GraphQL", Type: "technical", Aliases: []string{"gql"}}))

	c.applyRemoteReload(ctx, cache.ReloadMessage{Origin: "worker-1", Version: 2, SentAt: time.Now()})

	snap := c.Store.Snapshot()
	assert.Equal(t, int64(5), snap.Version)
	assert.True(t, snap.HasSkill("GraphQL"))
	assert.Equal(t, []string{"GraphQL"}, snap.Extract("I know GQL well"))
}
