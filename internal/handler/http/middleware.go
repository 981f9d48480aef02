package http

import (
	"mime"
	"net/http"

	apperrors "github.com/beck-00/financial-model-generator/pkg/errors"
	"github.com/beck-00/financial-model-generator/pkg/httputil"
)

const (
	mediaTypeJSON = "application/json"
	mediaTypeForm = "application/x-www-form-urlencoded"
)

// ContentTypeJSON rejects bodies that declare a media type other than JSON.
// A missing Content-Type is treated as JSON.
func ContentTypeJSON(next http.Handler) http.Handler {
	return RequireContentType(mediaTypeJSON)(next)
}

// RequireContentType rejects requests whose declared media type is not one of allowed.
func RequireContentType(allowed ...string) func(http.Handler) http.Handler {
	set := make(map[string]struct{}, len(allowed))
	for _, t := range allowed {
		set[t] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ct := r.Header.Get("Content-Type")
			if ct != "" {
				mt, _, err := mime.ParseMediaType(ct)
				if _, ok := set[mt]; err != nil || !ok {
					httputil.WriteError(w, r, &apperrors.AppError{
						Code:    "UNSUPPORTED_MEDIA_TYPE",
						Message: "unsupported Content-Type " + ct,
						Status:  http.StatusUnsupportedMediaType,
						Err:     apperrors.ErrInvalidInput,
					}, nil)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func isFormRequest(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == mediaTypeForm
}
