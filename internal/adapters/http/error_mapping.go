package httpadapter

import (
	"net/http"

	"github.com/abhikalparya/documentchatbot/internal/core/domain"
	"github.com/abhikalparya/documentchatbot/internal/core/usecase"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrSessionNotFound),
		domain.IsKind(err, domain.ErrDocumentNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrMissingDocuments),
		domain.IsKind(err, domain.ErrIndexExists):
		return http.StatusConflict
	case domain.IsKind(err, domain.ErrExtraction):
		return http.StatusUnprocessableEntity
	case domain.IsKind(err, domain.ErrConfiguration),
		domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	case domain.IsKind(err, domain.ErrGeneration):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// errorMessage is the client-facing text for err.
func errorMessage(err error) string {
	if domain.IsKind(err, domain.ErrConfiguration) {
		return usecase.MissingCredentialMessage
	}
	return err.Error()
}
