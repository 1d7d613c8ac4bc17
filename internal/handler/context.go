package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/hospital-api/internal/model"
	apperrors "github.com/jwalitptl/hospital-api/pkg/errors"
)

const actorKey = "actor"

func SetActor(c *gin.Context, actor model.Actor) {
	c.Set(actorKey, actor)
}

// Actor returns the authenticated caller or a 401 error.
func Actor(c *gin.Context) (model.Actor, error) {
	v, ok := c.Get(actorKey)
	if !ok {
		return model.Actor{}, apperrors.Unauthorized("authentication required")
	}
	actor, ok := v.(model.Actor)
	if !ok {
		return model.Actor{}, apperrors.Unauthorized("authentication required")
	}
	return actor, nil
}

// PathID parses the :id path parameter.
func PathID(c *gin.Context) (int64, error) {
	id, err := model.ParseID(c.Param("id"))
	if err != nil {
		return 0, apperrors.BadRequest("invalid id", err)
	}
	return id, nil
}
