package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/dennisdiepolder/monti/agentdesk/internal/apperr"
	"github.com/dennisdiepolder/monti/agentdesk/internal/auth"
	"github.com/dennisdiepolder/monti/agentdesk/internal/crmapi"
	"github.com/dennisdiepolder/monti/agentdesk/internal/workspace"
)

// AgentHeader selects the acting agent when authentication is skipped
const AgentHeader = "X-Agent-ID"

var validate = validator.New()

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps an error onto its HTTP status and a {"error": ...} body
func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, apperr.HTTPStatus(err), map[string]string{"error": apperr.ExtractMessage(err)})
}

// decode reads a JSON body into v and validates its struct tags
func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Validation("request body is required")
		}
		return apperr.Validation("invalid request body")
	}
	if err := validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return apperr.Validation(verrs[0].Field() + " failed " + verrs[0].Tag() + " validation")
		}
		return apperr.Validation(err.Error())
	}
	return nil
}

// identify resolves the calling agent and a context that forwards their token to the CRM.
// With skipAuth the X-Agent-ID header may act as any agent.
func identify(r *http.Request, skipAuth bool) (workspace.Agent, context.Context, error) {
	claims, ok := auth.GetUserFromContext(r.Context())
	if !ok {
		return workspace.Agent{}, nil, apperr.Unauthorized("not authenticated")
	}

	agent := claims.Agent()
	if skipAuth {
		if id := r.Header.Get(AgentHeader); id != "" {
			agent.ID = id
			agent.Name = id
		}
	}
	if agent.ID == "" {
		return workspace.Agent{}, nil, apperr.Unauthorized("token carries no user id")
	}

	ctx := r.Context()
	if claims.Token != "" {
		ctx = crmapi.WithToken(ctx, claims.Token)
	}
	return agent, ctx, nil
}
