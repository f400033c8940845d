package controllers

import (
	"errors"
	"io"
	"net/http"

	"github.com/angelmondragon/cookerz-backend/api/responses"
	"github.com/angelmondragon/cookerz-backend/api/validators"
	"github.com/angelmondragon/cookerz-backend/internal/media"
	pkgerrors "github.com/angelmondragon/cookerz-backend/pkg/errors"
	"github.com/angelmondragon/cookerz-backend/pkg/logger"
)

const (
	imageFormField = "image"
	// multipartOverhead covers boundaries and part headers around the file.
	multipartOverhead = 64 << 10
)

// CookerMenuImageUpload streams the "image" part of a multipart body to the
// media service, which sniffs, bounds and classifies it.
func CookerMenuImageUpload(svc media.Service, maxBytes int64, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookerID, _, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		itemID, err := validators.ParseUUIDParam(r, "itemID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if maxBytes > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartOverhead)
		}
		reader, err := r.MultipartReader()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "expected multipart/form-data body"))
			return
		}

		for {
			part, err := reader.NextPart()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed multipart body"))
				return
			}
			if part.FormName() != imageFormField {
				_ = part.Close()
				continue
			}

			item, err := svc.UploadMenuImage(r.Context(), cookerID, itemID, part)
			_ = part.Close()
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccess(w, item)
			return
		}

		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "image file is required").
			WithDetails(map[string]any{"field": imageFormField}))
	}
}
