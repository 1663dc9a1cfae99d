package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"matchmaking-engine/internal/models"
	s3service "matchmaking-engine/internal/services/s3"
	"matchmaking-engine/internal/utils"
)

// maxReportedErrors caps the row errors echoed back per file.
const maxReportedErrors = 10

// ImportFiles reads and archives uploaded CSV files.
type ImportFiles interface {
	DownloadFile(ctx context.Context, key string) ([]byte, error)
	Archive(ctx context.Context, key, prefix string) (string, error)
}

// MemberImporter stores parsed members.
type MemberImporter interface {
	BulkInsert(ctx context.Context, members []*models.Member) (*models.BulkInsertResult, error)
}

// ImportHandler turns member CSV uploads into member rows.
type ImportHandler struct {
	files   ImportFiles
	members MemberImporter
	parser  *utils.CSVParser
}

// NewImportHandler creates an import handler. files may be nil when imports
// only arrive through Import.
func NewImportHandler(files ImportFiles, members MemberImporter) *ImportHandler {
	return &ImportHandler{
		files:   files,
		members: members,
		parser:  utils.NewCSVParser(),
	}
}

// ImportResult is the result of importing one CSV file.
type ImportResult struct {
	Source   string   `json:"source"`
	Message  string   `json:"message"`
	BatchID  string   `json:"batch_id"`
	Inserted int      `json:"inserted"`
	Failed   int      `json:"failed"`
	Errors   []string `json:"errors,omitempty"`
}

// Import parses content and inserts every valid row under a fresh batch id.
func (h *ImportHandler) Import(ctx context.Context, content []byte, source string) (*ImportResult, error) {
	logger := utils.GetLogger()
	batchID := uuid.New().String()

	if strings.TrimSpace(string(content)) == "" {
		return nil, fmt.Errorf("%w: CSV file is empty", models.ErrValidation)
	}

	members, parseErrors := h.parser.ParseMembers(string(content), batchID)
	errMsgs := make([]string, 0, len(parseErrors))
	for _, e := range parseErrors {
		errMsgs = append(errMsgs, e.Error())
	}

	result := &ImportResult{Source: source, BatchID: batchID}
	if len(members) == 0 {
		result.Message = "No valid members found in CSV"
		result.Failed = len(parseErrors)
		result.Errors = truncate(errMsgs)
		return result, nil
	}

	logger.Info("Parsed member CSV",
		utils.String("source", source),
		utils.String("batchID", batchID),
		utils.Int("validMembers", len(members)),
		utils.Int("parseErrors", len(parseErrors)))

	inserted, err := h.members.BulkInsert(ctx, members)
	if err != nil {
		return nil, fmt.Errorf("failed to insert members: %w", err)
	}

	logger.Info("Inserted members",
		utils.String("batchID", batchID),
		utils.Int("inserted", inserted.InsertedCount),
		utils.Int("failed", inserted.FailedCount))

	result.Message = "CSV processed successfully"
	result.Inserted = inserted.InsertedCount
	result.Failed = inserted.FailedCount + len(parseErrors)
	result.Errors = truncate(append(errMsgs, inserted.Errors...))
	return result, nil
}

// Handle processes S3 upload events. Each file is archived under processed/
// when at least one member was inserted and under failed/ otherwise.
func (h *ImportHandler) Handle(ctx context.Context, s3Event events.S3Event) ([]ImportResult, error) {
	logger := utils.GetLogger()
	if h.files == nil {
		return nil, errors.New("import handler has no file store")
	}

	results := make([]ImportResult, 0, len(s3Event.Records))
	for _, record := range s3Event.Records {
		key, err := url.QueryUnescape(record.S3.Object.Key)
		if err != nil {
			return results, fmt.Errorf("failed to decode S3 key: %w", err)
		}

		logger.Info("Processing member CSV",
			utils.String("bucket", record.S3.Bucket.Name),
			utils.String("key", key))

		content, err := h.files.DownloadFile(ctx, key)
		if err != nil {
			return results, fmt.Errorf("failed to download CSV: %w", err)
		}

		result, err := h.Import(ctx, content, key)
		if err != nil && !models.IsBadRequest(err) {
			return results, err
		}
		if result == nil {
			result = &ImportResult{Source: key, Message: err.Error()}
		}

		prefix := s3service.FailedPrefix
		if result.Inserted > 0 {
			prefix = s3service.ProcessedPrefix
		}
		if _, err := h.files.Archive(ctx, key, prefix); err != nil {
			logger.Warn("Failed to archive file", utils.String("key", key), utils.Error(err))
		}
		results = append(results, *result)
	}
	return results, nil
}

func truncate(errs []string) []string {
	if len(errs) > maxReportedErrors {
		return errs[:maxReportedErrors]
	}
	return errs
}
