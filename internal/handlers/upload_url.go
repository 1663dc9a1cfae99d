package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	s3service "matchmaking-engine/internal/services/s3"
	"matchmaking-engine/internal/utils"
)

// uploadURLExpiryMinutes is how long a presigned upload URL stays valid.
const uploadURLExpiryMinutes = 60

// UploadPresigner issues presigned PUT URLs.
type UploadPresigner interface {
	GeneratePresignedUploadURL(ctx context.Context, key string, contentType string, expiryMinutes int) (*s3service.PresignedURLResult, error)
}

// UploadURLHandler hands out presigned URLs for member CSV uploads.
type UploadURLHandler struct {
	presigner UploadPresigner
	now       func() time.Time
}

// NewUploadURLHandler creates a new upload URL handler.
func NewUploadURLHandler(presigner UploadPresigner) *UploadURLHandler {
	return &UploadURLHandler{presigner: presigner, now: time.Now}
}

// UploadURLResponse is the response structure for presigned URL requests.
type UploadURLResponse struct {
	UploadURL string `json:"uploadUrl"`
	S3Key     string `json:"s3Key"`
	ExpiresIn int    `json:"expiresIn"`
}

// Issue validates the filename and returns a presigned URL under the upload prefix.
func (h *UploadURLHandler) Issue(ctx context.Context, filename string) (*UploadURLResponse, int, string) {
	if filename == "" {
		filename = "members_" + uuid.New().String()[:8] + ".csv"
	}
	if !strings.HasSuffix(strings.ToLower(filename), ".csv") {
		return nil, http.StatusBadRequest, "Only CSV files are allowed"
	}

	key := s3service.UploadPrefix + h.now().UTC().Format("2006/01/02") + "/" +
		uuid.New().String() + "_" + sanitizeFilename(filename)

	result, err := h.presigner.GeneratePresignedUploadURL(ctx, key, "text/csv", uploadURLExpiryMinutes)
	if err != nil {
		utils.GetLogger().Error("Failed to generate presigned URL", utils.Error(err))
		return nil, http.StatusInternalServerError, "Failed to generate upload URL"
	}

	return &UploadURLResponse{
		UploadURL: result.URL,
		S3Key:     result.Key,
		ExpiresIn: uploadURLExpiryMinutes * 60,
	}, http.StatusOK, ""
}

// Handle processes the API Gateway request for generating presigned URLs.
func (h *UploadURLHandler) Handle(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	headers := corsHeaders("GET,OPTIONS")
	if request.HTTPMethod == http.MethodOptions {
		return events.APIGatewayProxyResponse{StatusCode: http.StatusOK, Headers: headers}, nil
	}

	resp, status, msg := h.Issue(ctx, request.QueryStringParameters["filename"])
	if resp == nil {
		return errorResponse(headers, status, msg)
	}
	return jsonResponse(headers, status, resp)
}

// sanitizeFilename keeps only characters that are safe in an S3 key.
func sanitizeFilename(filename string) string {
	var b strings.Builder
	for _, r := range filename {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '.' || r == '-' || r == '_' {
			b.WriteRune(r)
		}
	}
	safe := b.String()
	if len(safe) > 100 {
		safe = safe[:100]
	}
	return safe
}
