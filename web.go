package main

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"github.com/rs/zerolog/log"

	"squarecrop/crop"
)

//go:embed static
var staticFS embed.FS
var isDebug = os.Getenv("DEBUG") == "1"

type Config struct {
	RootDir          string
	Calibration      crop.Calibration
	SessionTTL       time.Duration
	Executor         *OperationExecutor
	OnBeforeShutdown func()
	OnReady          func(addr string)
	OnSave           func(ops Operations)
}

type WebApp struct {
	config       Config
	sessions     *SessionStore
	shutdownCh   chan struct{}
	shutdownOnce sync.Once
}

func NewWebApp(config Config) *WebApp {
	return &WebApp{
		config:     config,
		sessions:   NewSessionStore(config.SessionTTL, config.Calibration, decodeProbe, headerProbe),
		shutdownCh: make(chan struct{}),
	}
}

func (a *WebApp) Shutdown() {
	a.shutdownOnce.Do(func() {
		close(a.shutdownCh)
	})
}

// httpError maps domain errors onto HTTP status codes.
func httpError(err error) error {
	switch {
	case errors.Is(err, errSessionNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, crop.ErrSessionClosed):
		return fiber.NewError(http.StatusGone, err.Error())
	case errors.Is(err, crop.ErrGeometryUnavailable):
		return fiber.NewError(http.StatusConflict, err.Error())
	default:
		return err
	}
}

type startRequest struct {
	File string `json:"file"`
}

type measureRequest struct {
	Source crop.MeasurementSource `json:"source"`
	Width  float64                `json:"width"`
	Height float64                `json:"height"`
}

type frameResponse struct {
	Frame crop.Frame `json:"frame"`
	Phase crop.Phase `json:"phase"`
}

func (a *WebApp) routes() *fiber.App {
	webapp := fiber.New(fiber.Config{
		Immutable:             true,
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Ctx(c.Context()).Error().
				Err(err).
				Str("path", c.Path()).
				Str("method", c.Method()).
				Msg("Request failed")
			var fiberErr *fiber.Error
			if errors.As(err, &fiberErr) {
				if fiberErr.Code == http.StatusNotFound && c.Path() == "/favicon.ico" {
					return nil
				}
				return c.Status(fiberErr.Code).JSON(fiber.Map{"error": fiberErr.Message})
			}
			return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "Internal Server Error"})
		},
	})

	webapp.Hooks().OnListen(func(listen fiber.ListenData) error {
		if fn := a.config.OnReady; fn != nil {
			fn(fmt.Sprintf("http://%s:%s", listen.Host, listen.Port))
		}
		return nil
	})

	filesRoot := http.Dir(a.config.RootDir)
	webapp.Get("/api/view", func(c *fiber.Ctx) error {
		filePath := c.Query("file")
		return filesystem.SendFile(c, filesRoot, filePath)
	})

	webapp.Get("/api/ls", func(c *fiber.Ctx) error {
		dir, err := walkImages(c.UserContext(), a.config.RootDir)
		if err != nil {
			return fmt.Errorf("failed to walk dir: %w", err)
		}

		for i := range dir.Files {
			dir.Files[i].URL = "/api/view?file=" + url.QueryEscape(dir.Files[i].Name)
		}

		var response struct {
			Name  string     `json:"name"`
			Files []FileInfo `json:"files"`
		}
		response.Name = dir.Name
		response.Files = dir.Files

		return c.JSON(response)
	})

	sessions := webapp.Group("/api/sessions")

	sessions.Post("/", func(c *fiber.Ctx) error {
		var req startRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		if !isImage(req.File) {
			return fiber.NewError(http.StatusBadRequest, fmt.Sprintf("%q is not a supported image", req.File))
		}
		path, err := a.config.Executor.resolve(req.File)
		if err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		sess, err := a.sessions.Start(c.UserContext(), req.File, path)
		if errors.Is(err, crop.ErrGeometryUnavailable) {
			return fiber.NewError(http.StatusUnprocessableEntity, err.Error())
		} else if err != nil {
			return err
		}

		var view sessionView
		_ = sess.Do(func(*crop.Engine) error {
			view = sess.view()
			return nil
		})
		return c.Status(http.StatusCreated).JSON(view)
	})

	sessions.Get("/:id", a.withSession(func(c *fiber.Ctx, sess *Session, _ *crop.Engine) error {
		return c.JSON(sess.view())
	}))

	sessions.Post("/:id/measure", a.withSession(func(c *fiber.Ctx, sess *Session, e *crop.Engine) error {
		var req measureRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		if _, err := e.OnContainerMeasured(req.Source, crop.Dimensions{Width: req.Width, Height: req.Height}); err != nil {
			return httpError(err)
		}
		return c.JSON(sess.view())
	}))

	sessions.Post("/:id/gesture/start", a.withSession(func(c *fiber.Ctx, _ *Session, e *crop.Engine) error {
		e.OnGestureStart()
		return c.JSON(frameResponse{Frame: e.Frame(), Phase: e.Phase()})
	}))

	sessions.Post("/:id/gesture/update", a.withSession(func(c *fiber.Ctx, _ *Session, e *crop.Engine) error {
		var g crop.Gesture
		if err := c.BodyParser(&g); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		frame, err := e.OnGestureUpdate(g)
		if err != nil {
			return httpError(err)
		}
		return c.JSON(frameResponse{Frame: frame, Phase: e.Phase()})
	}))

	sessions.Post("/:id/gesture/end", a.withSession(func(c *fiber.Ctx, _ *Session, e *crop.Engine) error {
		e.OnGestureEnd()
		return c.JSON(frameResponse{Frame: e.Frame(), Phase: e.Phase()})
	}))

	// commit fixes the crop and hands it back as an operation; the client
	// queues it and submits the batch through /api/save.
	sessions.Post("/:id/commit", a.withSession(func(c *fiber.Ctx, sess *Session, e *crop.Engine) error {
		res, err := e.Commit()
		if err != nil {
			return httpError(err)
		}
		view := sess.view()
		view.Result = &res
		view.Operation = &Operation{Crop: &CropOperation{
			Filename: sess.Filename,
			Crop:     res,
		}}
		return c.JSON(view)
	}))

	sessions.Delete("/:id", func(c *fiber.Ctx) error {
		if err := a.sessions.Cancel(c.Params("id")); err != nil {
			return httpError(err)
		}
		return c.SendStatus(http.StatusNoContent)
	})

	webapp.Post("/api/save", func(c *fiber.Ctx) error {
		var request struct {
			Operations []Operation `json:"operations"`
		}

		if err := c.BodyParser(&request); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}

		if fn := a.config.OnSave; fn != nil {
			fn(request.Operations)
		}

		return c.SendStatus(http.StatusNoContent)
	})
	webapp.Post("/api/shutdown", func(c *fiber.Ctx) error {
		a.Shutdown()
		return nil
	})

	if isDebug {
		log.Debug().Msg("Debug mode enabled, serving static files from './static' directory")
		webapp.Static("/", "static")
	} else {
		log.Debug().Msg("Serving static files from embedded filesystem")
		webapp.Use("/", filesystem.New(filesystem.Config{
			Root:       http.FS(staticFS),
			PathPrefix: "/static",
		}))
	}

	return webapp
}

// withSession looks up the session named by the :id param and runs h
// while holding its lock.
func (a *WebApp) withSession(h func(c *fiber.Ctx, sess *Session, e *crop.Engine) error) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := a.sessions.Get(c.Params("id"))
		if err != nil {
			return httpError(err)
		}
		return sess.Do(func(e *crop.Engine) error {
			return h(c, sess, e)
		})
	}
}

func (a *WebApp) Run(ctx context.Context) error {
	webapp := a.routes()

	go func() {
		select {
		case <-ctx.Done():
		case <-a.shutdownCh:
		}
		if fn := a.config.OnBeforeShutdown; fn != nil {
			fn()
		}
		if err := webapp.ShutdownWithTimeout(5 * time.Second); err != nil {
			log.Ctx(ctx).Error().Err(err).Msg("Failed to shutdown web application")
		}
	}()

	// Let the OS assign a random available port
	listener, err := net.Listen("tcp", fmt.Sprintf("localhost:%d", 0))
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	// Use the listener that was already created
	if err := webapp.Listener(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}
