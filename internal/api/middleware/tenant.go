package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/agromonitor/fieldsight/internal/api/response"
)

// TenantHeader identifies the calling tenant. The gateway in front of this
// service authenticates the caller and stamps the header; this layer only
// validates its shape.
const TenantHeader = "X-Tenant-ID"

// RequireTenant rejects requests without a well-formed tenant id and puts the
// parsed id on the request context.
func RequireTenant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get(TenantHeader)
		if raw == "" {
			response.Error(w, http.StatusUnauthorized, "MISSING_TENANT",
				"X-Tenant-ID header is required", nil)
			return
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			response.Error(w, http.StatusUnauthorized, "INVALID_TENANT",
				"X-Tenant-ID must be a UUID", nil)
			return
		}
		next.ServeHTTP(w, r.WithContext(SetTenantID(r.Context(), id)))
	})
}
