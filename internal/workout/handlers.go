package workout

import (
	"errors"
	"time"

	"backend-stridequest/internal/metrics"

	"github.com/gofiber/fiber/v2"
)

type startRequest struct {
	Kind            Kind `json:"kind"`
	LocationGranted bool `json:"location_granted"`
}

// sampleRequest keeps lat/lng as pointers: a body omitting them decodes to
// nil, not to the (0,0) null-island fix.
type sampleRequest struct {
	Lat        *float64  `json:"lat"`
	Lng        *float64  `json:"lng"`
	RecordedAt time.Time `json:"recorded_at"`
	ElevationM *float64  `json:"elevation_m"`
	SpeedMps   *float64  `json:"speed_mps"`
}

func RegisterRoutes(r fiber.Router, m *Manager, authMiddleware fiber.Handler) {
	r.Post("/start", authMiddleware, func(c *fiber.Ctx) error {
		var req startRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		// samples arrive over HTTP, so no in-process location source here
		session, err := m.Start(userID(c), req.Kind, req.LocationGranted, nil)
		switch {
		case errors.Is(err, ErrUnknownKind):
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		case errors.Is(err, ErrPermissionDenied):
			return fiber.NewError(fiber.StatusForbidden, err.Error())
		case errors.Is(err, ErrAlreadyActive):
			return fiber.NewError(fiber.StatusConflict, err.Error())
		case err != nil:
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"session_id": session.ID,
			"kind":       session.Kind,
			"started_at": session.StartedAt,
			"state":      session.State(),
		})
	})

	r.Post("/pause", authMiddleware, func(c *fiber.Ctx) error {
		state, err := m.Pause(userID(c))
		return transitionResponse(c, state, err)
	})

	r.Post("/resume", authMiddleware, func(c *fiber.Ctx) error {
		state, err := m.Resume(userID(c), nil)
		return transitionResponse(c, state, err)
	})

	r.Post("/end", authMiddleware, func(c *fiber.Ctx) error {
		summary, err := m.End(c.Context(), userID(c))
		if errors.Is(err, ErrNoSession) {
			// ending without a session is "nothing to do", not a failure
			return c.JSON(nil)
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(summary)
	})

	r.Post("/current/samples", authMiddleware, func(c *fiber.Ctx) error {
		var req sampleRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if _, ok := m.Current(userID(c)); !ok {
			return fiber.NewError(fiber.StatusNotFound, ErrNoSession.Error())
		}
		if req.Lat == nil || req.Lng == nil {
			// a fix without coordinates is dropped, not an error
			return c.SendStatus(fiber.StatusAccepted)
		}
		sample := metrics.PositionSample{
			Lat:        *req.Lat,
			Lng:        *req.Lng,
			RecordedAt: req.RecordedAt,
			ElevationM: req.ElevationM,
			SpeedMps:   req.SpeedMps,
		}
		if err := m.Ingest(userID(c), sample); err != nil {
			return fiber.NewError(fiber.StatusNotFound, err.Error())
		}
		return c.SendStatus(fiber.StatusAccepted)
	})

	r.Get("/current", authMiddleware, func(c *fiber.Ctx) error {
		session, ok := m.Current(userID(c))
		if !ok {
			return fiber.NewError(fiber.StatusNotFound, ErrNoSession.Error())
		}
		return c.JSON(fiber.Map{
			"session_id": session.ID,
			"kind":       session.Kind,
			"state":      session.State(),
			"metrics":    session.Latest(),
			"quests":     session.QuestSummary(),
		})
	})
}

// transitionResponse maps pause/resume outcomes. Invalid transitions are
// no-ops: the client gets the unchanged state, not an error.
func transitionResponse(c *fiber.Ctx, state State, err error) error {
	switch {
	case errors.Is(err, ErrNoSession):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidTransition), err == nil:
		return c.JSON(fiber.Map{"state": state})
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}

func userID(c *fiber.Ctx) string {
	if v, ok := c.Locals("user_id").(string); ok {
		return v
	}
	return ""
}
