package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	identitydomain "github.com/groundstone/terravest/internal/identity/domain"
)

// ListProjects returns the catalog. Project owners only see their own
// projects; everyone else gets the full registry.
func (s *Server) ListProjects(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.Error(ErrUnauthorized)
		return
	}

	ctx := c.Request.Context()
	if user.Role == identitydomain.RoleProjectOwner {
		projects, err := s.projectSvc.ListByOwner(ctx, user.ID)
		if err != nil {
			c.Error(err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": projects})
		return
	}

	projects, err := s.projectSvc.ListProjects(ctx)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": projects})
}
