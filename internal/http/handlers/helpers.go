package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tracebind/passport-backend/internal/http/response"
	"github.com/tracebind/passport-backend/internal/pkg/ctxutil"
	"github.com/tracebind/passport-backend/internal/platform/apierr"
)

// actorFrom pulls the resolved actor off the request context. The auth
// middleware guarantees it on protected routes; a miss means the route was
// registered outside the protected group by mistake.
func actorFrom(c *gin.Context) (ctxutil.Actor, bool) {
	actor, ok := ctxutil.GetActor(c.Request.Context())
	if !ok || !actor.Valid() {
		response.RespondError(c, http.StatusUnauthorized, apierr.CodeUnauthorized, apierr.Unauthorized("missing actor context"))
		return ctxutil.Actor{}, false
	}
	return actor, true
}

func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.RespondAPIError(c, apierr.Validation("invalid %s", name))
		return uuid.Nil, false
	}
	return id, true
}

// parseOptionalUUID treats empty as uuid.Nil, which services interpret as
// "use the default".
func parseOptionalUUID(raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, nil
	}
	return uuid.Parse(raw)
}

func uuidQuery(c *gin.Context, name string) (uuid.UUID, bool) {
	raw := c.Query(name)
	if raw == "" {
		return uuid.Nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		response.RespondAPIError(c, apierr.Validation("invalid %s", name))
		return uuid.Nil, false
	}
	return id, true
}
