package app

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/Blaze-0903/NextStepAI/internal/config"
	"github.com/Blaze-0903/NextStepAI/internal/delivery/http/handler"
	"github.com/Blaze-0903/NextStepAI/internal/delivery/http/middleware"
	"github.com/Blaze-0903/NextStepAI/internal/delivery/http/routes"
	"github.com/Blaze-0903/NextStepAI/internal/ws"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"
)

const defaultBodyLimitMB = 10

type App struct {
	Fiber     *fiber.App
	Container *Container
}

// New builds the fiber app over an initialised container.
func New(c *Container) *App {
	limit := c.Config.App.BodyLimitMB
	if limit <= 0 {
		limit = defaultBodyLimitMB
	}
	maxBytes := int64(limit) << 20

	f := fiber.New(fiber.Config{
		AppName: c.Config.App.AppName,
		// Leave headroom over the file limit for multipart framing so the
		// handler, not fasthttp, rejects oversized resumes.
		BodyLimit: int(maxBytes) + 1<<20,
	})

	registerGlobalMiddleware(f, c.Logger)

	analysis, overview, admin := c.Usecases()

	checks := map[string]handler.Pinger{}
	if c.DB != nil {
		checks["postgres"] = c.DB
	}
	if c.Cache.Available() {
		checks["redis"] = c.Cache
	}

	routes.NewRegistry(
		handler.NewHealthHandler(c.Store, checks),
		handler.NewResumeHandler(analysis, maxBytes),
		handler.NewOntologyHandler(overview),
		handler.NewAdminHandler(admin),
		middleware.NewAdminAuthMiddleware(c.Tokens),
	).Register(f)

	return &App{Fiber: f, Container: c}
}

// Bootstrap loads everything the HTTP server needs. The returned cleanup
// releases the container.
func Bootstrap(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, func() error, error) {
	c, err := NewContainer(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return New(c), c.Close, nil
}

// WebsocketServer returns the admin notification server, or nil when no
// websocket port is configured.
func (a *App) WebsocketServer() (*http.Server, error) {
	port := strings.TrimSpace(a.Container.Config.App.WSPort)
	if port == "" {
		return nil, nil
	}
	addr, err := ListenAddr(port)
	if err != nil {
		return nil, err
	}
	h := ws.NewHandler(a.Container.Hub, a.Container.Tokens, a.Container.Logger.Named("ws"))
	return ws.NewServer(addr, h), nil
}

func registerGlobalMiddleware(app *fiber.App, logger *zap.Logger) {
	if app == nil {
		return
	}

	accessMw := middleware.NewAccessLogMiddleware(logger)
	errMw := middleware.NewErrorMiddleware(logger)
	app.Use(accessMw.Middleware())
	app.Use(errMw.Middleware())
}

func ListenAddr(port string) (string, error) {
	p := strings.TrimSpace(port)
	if p == "" {
		return "", fmt.Errorf("empty HTTP port")
	}
	if strings.HasPrefix(p, ":") {
		return p, nil
	}
	return ":" + p, nil
}
