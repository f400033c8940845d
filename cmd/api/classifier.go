package main

import (
	"context"
	"errors"

	"github.com/angelmondragon/cookerz-backend/pkg/moderation"
)

// unverifiedClassifier stands in when no moderation API key is configured.
// Uploads fail closed with a dependency error.
type unverifiedClassifier struct{}

func (unverifiedClassifier) ClassifyImage(context.Context, string, []byte) (moderation.ImageVerdict, error) {
	return moderation.ImageVerdict{}, errors.New("image moderation is not configured")
}
