package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"matchmaking-engine/internal/models"
	"matchmaking-engine/internal/services/matcher"
	"matchmaking-engine/internal/utils"
)

// CandidateSelector is the matcher surface the handlers use.
type CandidateSelector interface {
	SelectCandidates(ctx context.Context, requesterID int64, opts matcher.Options) (*matcher.Selection, error)
	Explain(ctx context.Context, requesterID, candidateID int64) (*matcher.Explanation, error)
}

// SearchRequest runs selection against an operator-supplied ideal type
// instead of the requester's stored one.
type SearchRequest struct {
	Requirements models.Requirements `json:"requirements"`
	Ranking      models.TierLists    `json:"ranking"`
	CrossCheck   bool                `json:"cross_check"`
	Limit        int                 `json:"limit"`
}

// Options converts the request into selection options.
func (r *SearchRequest) Options() (matcher.Options, error) {
	ideal, err := models.NewSearchIdealType(r.Requirements, r.Ranking)
	if err != nil {
		return matcher.Options{}, err
	}
	return matcher.Options{Override: ideal, CrossCheck: r.CrossCheck, Limit: r.Limit}, nil
}

// CandidatesHandler serves candidate lists and explanations through API Gateway.
//
//	GET  /members/{id}/candidates?cross_check=true&limit=20
//	POST /members/{id}/candidates                  (body: SearchRequest)
//	GET  /members/{id}/candidates/{candidateId}
type CandidatesHandler struct {
	selector CandidateSelector
}

// NewCandidatesHandler creates a candidates handler.
func NewCandidatesHandler(selector CandidateSelector) *CandidatesHandler {
	return &CandidatesHandler{selector: selector}
}

// Handle processes an API Gateway request.
func (h *CandidatesHandler) Handle(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	headers := corsHeaders("GET,POST,OPTIONS")
	if request.HTTPMethod == http.MethodOptions {
		return events.APIGatewayProxyResponse{StatusCode: http.StatusOK, Headers: headers}, nil
	}

	requesterID, ok := parseID(request.PathParameters["id"])
	if !ok {
		return errorResponse(headers, http.StatusBadRequest, "invalid member id")
	}

	if raw, present := request.PathParameters["candidateId"]; present {
		candidateID, ok := parseID(raw)
		if !ok {
			return errorResponse(headers, http.StatusBadRequest, "invalid candidate id")
		}
		exp, err := h.selector.Explain(ctx, requesterID, candidateID)
		if err != nil {
			return errResponse(headers, err)
		}
		return jsonResponse(headers, http.StatusOK, exp)
	}

	var opts matcher.Options
	switch request.HTTPMethod {
	case http.MethodPost:
		var req SearchRequest
		if err := json.Unmarshal([]byte(request.Body), &req); err != nil {
			return errorResponse(headers, http.StatusBadRequest, "Invalid JSON in request body")
		}
		var err error
		if opts, err = req.Options(); err != nil {
			return errResponse(headers, err)
		}
	default:
		opts = optionsFromQuery(request.QueryStringParameters)
	}

	sel, err := h.selector.SelectCandidates(ctx, requesterID, opts)
	if err != nil {
		utils.Logger.Warn("Candidate selection failed",
			zap.Int64("requester_id", requesterID),
			zap.Error(err),
		)
		return errResponse(headers, err)
	}
	return jsonResponse(headers, http.StatusOK, sel)
}

func optionsFromQuery(q map[string]string) matcher.Options {
	cross, _ := strconv.ParseBool(q["cross_check"])
	return matcher.Options{
		CrossCheck: cross,
		Limit:      parseLimit(q["limit"]),
	}
}
