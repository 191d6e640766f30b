package middleware

import (
	"context"
	"net"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"quoteapi-server/models"
)

const identityKey = "identity"

// IdentityResolver maps credentials to caller identities
type IdentityResolver interface {
	VerifyToken(token string) (models.Identity, error)
	ResolveAPIKey(ctx context.Context, keyValue string) (models.Identity, error)
}

// ResolveIdentity resolves the caller on every request and stores it in
// locals. Resolution failures degrade to anonymous; route protection is
// a separate concern (RequireAuth / RequireAdmin).
//
// Sources, in order: the internal X-Endpoint-User-Id authority header
// (loopback traffic only, set by the helper library's self-calls),
// a bearer session token or API key, the X-Api-Key header.
func ResolveIdentity(resolver IdentityResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := GetXRayContext(c)

		if ownerID := c.Get("X-Endpoint-User-Id"); ownerID != "" && isLoopback(c.IP()) {
			if id, err := strconv.ParseInt(ownerID, 10, 64); err == nil && id > 0 {
				c.Locals(identityKey, models.Identity{UserID: id})
				return c.Next()
			}
		}

		if auth := c.Get(fiber.HeaderAuthorization); strings.HasPrefix(auth, "Bearer ") {
			token := strings.TrimPrefix(auth, "Bearer ")
			if strings.HasPrefix(token, "qak_") {
				if ident, err := resolver.ResolveAPIKey(ctx, token); err == nil && !ident.Anonymous() {
					c.Locals(identityKey, ident)
				}
			} else if ident, err := resolver.VerifyToken(token); err == nil {
				c.Locals(identityKey, ident)
			}
			return c.Next()
		}

		if key := c.Get("X-Api-Key"); key != "" {
			if ident, err := resolver.ResolveAPIKey(ctx, key); err == nil && !ident.Anonymous() {
				c.Locals(identityKey, ident)
			}
		}

		return c.Next()
	}
}

// RequireAuth rejects anonymous requests
func RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if Identity(c).Anonymous() {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "未提供认证令牌",
			})
		}
		return c.Next()
	}
}

// RequireAdmin rejects non-admin callers
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !Identity(c).IsAdmin {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "需要管理员权限",
			})
		}
		return c.Next()
	}
}

// Identity returns the resolved caller, anonymous when absent
func Identity(c *fiber.Ctx) models.Identity {
	if ident, ok := c.Locals(identityKey).(models.Identity); ok {
		return ident
	}
	return models.Identity{}
}

func isLoopback(ip string) bool {
	parsed := net.ParseIP(ip)
	return parsed != nil && parsed.IsLoopback()
}
