package validation

import (
	"regexp"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

var (
	// Document and owner identifiers are opaque tokens, never free text.
	idPattern     = regexp.MustCompile(`^[A-Za-z0-9._-]{1,128}$`)
	scriptPattern = regexp.MustCompile(`(?i)(<script|<iframe|javascript:|onerror=|onload=)`)
)

type Config struct {
	MaxClauseLength     int
	AllowedContentTypes []string
	Logger              *zap.Logger
}

// Middleware rejects malformed bodies before they reach the handlers:
// identifier format on analysis triggers, length and injection checks on
// clause consult text.
func Middleware(cfg Config) fiber.Handler {
	if cfg.MaxClauseLength == 0 {
		cfg.MaxClauseLength = 5000
	}
	if len(cfg.AllowedContentTypes) == 0 {
		cfg.AllowedContentTypes = []string{"application/json"}
	}

	return func(c *fiber.Ctx) error {
		if c.Method() == "POST" || c.Method() == "PUT" {
			contentType := c.Get("Content-Type")
			if contentType != "" {
				allowed := false
				for _, allowedType := range cfg.AllowedContentTypes {
					if strings.Contains(contentType, allowedType) {
						allowed = true
						break
					}
				}
				if !allowed {
					return c.Status(fiber.StatusUnsupportedMediaType).JSON(fiber.Map{
						"error": "Unsupported content type",
					})
				}
			}
		}

		path := c.Path()

		if c.Method() == "POST" && strings.Contains(path, "/api/v1/analyses") {
			var req map[string]interface{}
			if err := c.BodyParser(&req); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Invalid JSON format",
				})
			}

			for _, field := range []string{"documentId", "ownerId"} {
				value, ok := req[field].(string)
				if !ok || value == "" {
					continue // presence is the handler's call
				}
				if !idPattern.MatchString(value) {
					cfg.Logger.Warn("Rejected malformed identifier",
						zap.String("field", field),
						zap.String("ip", c.IP()),
					)
					return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
						"error": "Invalid " + field + " format",
					})
				}
			}

			if location, ok := req["storageLocation"].(string); ok {
				if len(location) > 1024 || strings.Contains(location, "..") {
					return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
						"error": "Invalid storageLocation",
					})
				}
			}
		}

		if c.Method() == "POST" && strings.Contains(path, "/api/v1/clauses") {
			var req map[string]interface{}
			if err := c.BodyParser(&req); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Invalid JSON format",
				})
			}

			clauseText, ok := req["clauseText"].(string)
			if ok && len(clauseText) > cfg.MaxClauseLength {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Clause text exceeds maximum length",
				})
			}
			if ok && scriptPattern.MatchString(clauseText) {
				cfg.Logger.Warn("Rejected clause text with markup injection",
					zap.String("ip", c.IP()),
				)
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Invalid clause content",
				})
			}
		}

		return c.Next()
	}
}
