package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/clinic-booking-api/internal/middleware"
	"github.com/noah-isme/clinic-booking-api/internal/models"
	appErrors "github.com/noah-isme/clinic-booking-api/pkg/errors"
)

func actorFromContext(c *gin.Context) (models.Actor, error) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		return models.Actor{}, appErrors.ErrUnauthorized
	}
	return actor, nil
}

func bindJSON(c *gin.Context, dest interface{}, message string) error {
	if err := c.ShouldBindJSON(dest); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInvalidArgument.Code, appErrors.ErrInvalidArgument.Status, message)
	}
	return nil
}

func bindQuery(c *gin.Context, dest interface{}, message string) error {
	if err := c.ShouldBindQuery(dest); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInvalidArgument.Code, appErrors.ErrInvalidArgument.Status, message)
	}
	return nil
}
