package service

import (
	"strings"

	"github.com/noah-isme/shift-rota-api/internal/models"
	appErrors "github.com/noah-isme/shift-rota-api/pkg/errors"
)

func parseID(kind models.Kind, raw, field string) (models.ID, error) {
	id, err := models.ParseID(kind, strings.TrimSpace(raw))
	if err != nil {
		return models.ID{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid "+field)
	}
	return id, nil
}

func validationError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}
