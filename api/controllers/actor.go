package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/cookerz-backend/api/middleware"
	"github.com/angelmondragon/cookerz-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/cookerz-backend/pkg/errors"
)

func requireActor(r *http.Request) (uuid.UUID, enums.UserRole, error) {
	id, role, ok := middleware.Actor(r.Context())
	if !ok {
		return uuid.Nil, "", pkgerrors.NotAuthenticated()
	}
	return id, role, nil
}
