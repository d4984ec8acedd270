package handlers

import (
	"encoding/json"
	"net"
	"net/http"

	"github.com/julienschmidt/httprouter"

	apiContext "attendr/internal/api/context"
	"attendr/internal/platform/audit"
	"attendr/internal/platform/auth"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func param(r *http.Request, name string) string {
	params, _ := r.Context().Value(apiContext.Params).(httprouter.Params)
	return params.ByName(name)
}

func claimsFrom(r *http.Request) *auth.Claims {
	claims, _ := r.Context().Value(apiContext.Claims).(*auth.Claims)
	return claims
}

// Auditor stores admin actions. audit.Logger implements it.
type Auditor interface {
	Record(e audit.Entry)
}

type auditTrail struct {
	auditor Auditor
}

func (t auditTrail) record(r *http.Request, action, resourceType, resourceID string, meta map[string]interface{}) {
	if t.auditor == nil {
		return
	}
	e := audit.Entry{
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Metadata:     meta,
		IPAddress:    remoteIP(r),
		UserAgent:    r.UserAgent(),
	}
	if claims := claimsFrom(r); claims != nil {
		e.UserID = claims.UserID
	}
	t.auditor.Record(e)
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
