// Package web serves the page that starts the authorization flow and
// receives the redirect carrying the authorization code.
package web

import (
	"bytes"
	"context"
	"html/template"
	"net"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/xid"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"ukko/internal/weather"
)

// stateTTL bounds how long an issued login form stays valid.
const stateTTL = time.Hour

// Authorizer builds the login URL of the weather service.
type Authorizer interface {
	AuthorizeURL(redirect, state string) string
}

var pages = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html lang="en">
    <body>
        <h1>Authenticate with Netatmo</h1>
        <p><a href="{{.}}">Get code</a></p>
    </body>
</html>`))

var done = template.Must(template.New("done").Parse(`<!DOCTYPE html>
<html lang="en">
    <body>
        <h1>{{.}}</h1>
    </body>
</html>`))

func New(listen, hostname string, auth Authorizer, onAuth func(weather.AuthEvent), logger *zap.Logger) *Server {
	s := &Server{
		listen:   listen,
		hostname: hostname,
		auth:     auth,
		onAuth:   onAuth,
		states:   make(map[string]time.Time),
		logger:   logger,
		now:      time.Now,
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "ukko",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
	})
	s.app.Use(recover.New())
	s.app.Use(s.logRequest)
	s.app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	s.app.Get("/", s.index)

	return s
}

type Server struct {
	app      *fiber.App
	listen   string
	hostname string
	auth     Authorizer
	onAuth   func(weather.AuthEvent)
	logger   *zap.Logger
	now      func() time.Time

	l      sync.Mutex
	states map[string]time.Time
}

func (s *Server) App() *fiber.App {
	return s.app
}

// Register starts and stops the server with the application.
func Register(s *Server, lifecycle fx.Lifecycle) {
	lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", s.listen)
			if err != nil {
				return err
			}
			go func() {
				if err := s.app.Listener(ln); err != nil {
					s.logger.With(zap.Error(err)).Error("listener stopped")
				}
			}()
			s.logger.With(zap.String("listen", s.listen)).Info("started")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return s.app.ShutdownWithContext(ctx)
		},
	})
}

func (s *Server) index(c *fiber.Ctx) error {
	redirect := "http://" + s.host(c)

	code := c.Query("code")
	if code == "" {
		return s.page(c, fiber.StatusOK, pages, s.auth.AuthorizeURL(redirect, s.issue()))
	}

	if !s.redeem(c.Query("state")) {
		s.logger.With(zap.String("state", c.Query("state"))).Warn("unknown state")
		return s.page(c, fiber.StatusBadRequest, done, "Unknown or expired login, start over")
	}

	s.logger.Info("authorization code received")
	s.onAuth(weather.AuthEvent{Code: code, Redirect: redirect})

	return s.page(c, fiber.StatusOK, done, "Authenticated")
}

func (s *Server) host(c *fiber.Ctx) string {
	if s.hostname != "" {
		return s.hostname
	}
	return c.Hostname()
}

func (s *Server) page(c *fiber.Ctx, status int, tpl *template.Template, data interface{}) error {
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return err
	}
	c.Type("html")
	return c.Status(status).Send(buf.Bytes())
}

func (s *Server) issue() string {
	s.l.Lock()
	defer s.l.Unlock()

	now := s.now()
	for state, at := range s.states {
		if now.Sub(at) > stateTTL {
			delete(s.states, state)
		}
	}

	state := xid.New().String()
	s.states[state] = now
	return state
}

func (s *Server) redeem(state string) bool {
	s.l.Lock()
	defer s.l.Unlock()

	at, ok := s.states[state]
	if !ok {
		return false
	}
	delete(s.states, state)
	return s.now().Sub(at) <= stateTTL
}

func (s *Server) logRequest(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	s.logger.With(
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Int("status", c.Response().StatusCode()),
		zap.String("cost", time.Since(start).String()),
	).Debug("request")
	return err
}
