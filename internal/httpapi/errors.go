package httpapi

import "github.com/neal-yes/rag-gateway/internal/gwerrors"

func badRequest(message string) error {
	return gwerrors.New(gwerrors.BadRequest, message, nil)
}
