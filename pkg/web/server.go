// Package web serves the inbound LINE webhook.
//
// The webhook handler acknowledges with 200 immediately and unconditionally;
// event processing runs in detached goroutines, so a processing failure can
// never surface as a failed acknowledgment.
package web

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/natthaphol/sangbot/internal/log"
	"github.com/natthaphol/sangbot/pkg/line"
)

// Dispatcher fans a webhook batch out to per-event tasks.
type Dispatcher interface {
	HandleEvents(events []line.Event)
}

// Server is the webhook HTTP server.
type Server struct {
	app        *fiber.App
	dispatcher Dispatcher
}

// NewServer creates the server and registers its routes.
func NewServer(dispatcher Dispatcher) *Server {
	s := &Server{dispatcher: dispatcher}

	app := fiber.New(fiber.Config{
		AppName:               "sangbot",
		DisableStartupMessage: true,
	})
	app.Use(recover.New())

	app.Post("/webhook", s.handleWebhook)
	app.Get("/health", s.handleHealth)

	s.app = app
	return s
}

// handleWebhook decodes the event batch and hands it off. The platform only
// needs the acknowledgment, so even a malformed body gets its 200.
func (s *Server) handleWebhook(c *fiber.Ctx) error {
	var wh line.Webhook
	if err := json.Unmarshal(c.Body(), &wh); err != nil {
		log.Warn("webhook body not decodable", "error", err)
		return c.SendStatus(fiber.StatusOK)
	}

	if len(wh.Events) > 0 {
		s.dispatcher.HandleEvents(wh.Events)
	}
	return c.SendStatus(fiber.StatusOK)
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// Listen blocks serving on the given port.
func (s *Server) Listen(port string) error {
	return s.app.Listen(":" + port)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
