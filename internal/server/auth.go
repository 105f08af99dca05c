package server

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	identitydomain "github.com/groundstone/terravest/internal/identity/domain"
)

const ctxUserKey = "auth.user"

// AuthRequired validates the bearer token and resolves the calling user.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			c.Error(ErrUnauthorized)
			c.Abort()
			return
		}

		claims := jwt.MapClaims{}
		parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, ErrUnauthorized
			}
			return []byte(s.cfg.AuthJWTSecret), nil
		})
		if err != nil || !parsed.Valid {
			c.Error(ErrUnauthorized)
			c.Abort()
			return
		}

		subject, err := claims.GetSubject()
		if err != nil || subject == "" {
			c.Error(ErrUnauthorized)
			c.Abort()
			return
		}

		userID, err := snowflake.ParseString(subject)
		if err != nil {
			c.Error(ErrUnauthorized)
			c.Abort()
			return
		}

		user, err := s.identitySvc.FindUser(c.Request.Context(), userID)
		if err != nil {
			c.Error(ErrUnauthorized)
			c.Abort()
			return
		}

		c.Set(ctxUserKey, user)
		c.Next()
	}
}

func currentUser(c *gin.Context) (identitydomain.User, bool) {
	v, ok := c.Get(ctxUserKey)
	if !ok {
		return identitydomain.User{}, false
	}
	user, ok := v.(identitydomain.User)
	return user, ok
}
