package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/SAP-F-2025/olympiad-service/internal/matching"
	"github.com/SAP-F-2025/olympiad-service/internal/models"
	"github.com/SAP-F-2025/olympiad-service/internal/repositories"
	"github.com/xuri/excelize/v2"
)

const (
	summarySheet = "Summary"
	answersSheet = "Answers"

	importItemSep = ";"
	importPairSep = "="
)

// Columns of the matching question import sheet. Items are separated by ";"
// and pairs are written as 1-based "left=right" positions.
var importColumns = []string{
	"text", "points", "difficulty", "left_items", "right_items", "correct_pairs", "allow_right_reuse", "shuffle_right",
}

type exportService struct {
	repo      repositories.Repository
	questions QuestionService
	logger    *slog.Logger
}

func NewExportService(repo repositories.Repository, questions QuestionService, logger *slog.Logger) ExportService {
	return &exportService{
		repo:      repo,
		questions: questions,
		logger:    logger,
	}
}

// ===== EXPORT OPERATIONS =====

func (s *exportService) ExportAttemptResults(ctx context.Context, attemptID uint, user *models.AuthUser) ([]byte, error) {
	attempt, err := s.repo.Attempt().GetByID(ctx, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}
	if attempt.StudentID != user.ID && !user.CanAuthor() {
		return nil, NewPermissionError(user.ID, attemptID, "attempt", "export_results", "not the attempt owner")
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
	}
	submittedAt := ""
	if attempt.SubmittedAt != nil {
		submittedAt = attempt.SubmittedAt.Format("2006-01-02 15:04:05")
	}
	summary := [][]interface{}{
		{"Attempt ID", attempt.ID},
		{"Student ID", attempt.StudentID},
		{"Title", attempt.Title},
		{"Status", string(attempt.Status)},
		{"Started At", attempt.StartedAt.Format("2006-01-02 15:04:05")},
		{"Submitted At", submittedAt},
		{"Score", attempt.Score},
		{"Max Score", attempt.MaxScore},
	}
	for i, row := range summary {
		if err := writeRow(f, summarySheet, i+1, row); err != nil {
			return nil, err
		}
	}

	if _, err := f.NewSheet(answersSheet); err != nil {
		return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
	}
	headers := []interface{}{"Question ID", "Canonical Answer", "Correct", "Points", "Max Points", "Reason", "Answered At"}
	if err := writeRow(f, answersSheet, 1, headers); err != nil {
		return nil, err
	}
	for i, answer := range attempt.Answers {
		row := []interface{}{
			answer.QuestionID,
			answer.Canonical,
			answer.IsCorrect,
			answer.Points,
			answer.MaxPoints,
			string(answer.Reason),
			answer.CreatedAt.Format("2006-01-02 15:04:05"),
		}
		if err := writeRow(f, answersSheet, i+2, row); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}

	s.logger.Info("Attempt results exported", "attempt_id", attemptID, "answers", len(attempt.Answers))
	return buf.Bytes(), nil
}

// ===== IMPORT OPERATIONS =====

// ImportMatchingQuestions creates one matching question per data row of the
// first sheet. Rows that fail are reported and do not stop the import.
func (s *exportService) ImportMatchingQuestions(ctx context.Context, reader io.Reader, user *models.AuthUser) (*models.ImportSummary, error) {
	if !user.CanAuthor() {
		return nil, NewPermissionError(user.ID, 0, "question", "import", "only verified teachers and administrators can author questions")
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, NewValidationError("file", "not a readable xlsx file", err.Error())
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, NewValidationError("file", "Excel file has no sheets", nil)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read Excel rows: %w", err)
	}
	if len(rows) < 2 {
		return nil, NewValidationError("file", "Excel must have header row and at least one data row", len(rows))
	}

	headerMap := make(map[string]int)
	for i, header := range rows[0] {
		headerMap[strings.ToLower(strings.TrimSpace(header))] = i
	}
	for _, col := range importColumns[:6] {
		if _, exists := headerMap[col]; !exists {
			return nil, NewValidationError("headers", fmt.Sprintf("missing required column: %s", col), col)
		}
	}

	summary := &models.ImportSummary{
		TotalRows:        len(rows) - 1,
		CreatedQuestions: []uint{},
		Errors:           []models.ImportValidationError{},
	}

	for i, row := range rows[1:] {
		rowNum := i + 2
		req, rowErrors := parseImportRow(row, headerMap, rowNum)
		if len(rowErrors) == 0 {
			question, err := s.questions.CreateMatchingQuestion(ctx, req, user)
			if err != nil {
				rowErrors = importErrors(rowNum, err)
			} else {
				summary.CreatedQuestions = append(summary.CreatedQuestions, question.ID)
			}
		}

		if len(rowErrors) > 0 {
			summary.ErrorCount++
			summary.Errors = append(summary.Errors, rowErrors...)
			continue
		}
		summary.SuccessCount++
	}

	s.logger.Info("Excel import completed",
		"creator_id", user.ID,
		"total_rows", summary.TotalRows,
		"success_count", summary.SuccessCount,
		"error_count", summary.ErrorCount)

	return summary, nil
}

// ===== HELPER FUNCTIONS =====

func writeRow(f *excelize.File, sheet string, rowNum int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write row %d of %s: %w", rowNum, sheet, err)
	}
	return nil
}

func parseImportRow(row []string, headerMap map[string]int, rowNum int) (*CreateMatchingQuestionRequest, []models.ImportValidationError) {
	var errs []models.ImportValidationError
	column := func(name string) string {
		if index, exists := headerMap[name]; exists && index < len(row) {
			return strings.TrimSpace(row[index])
		}
		return ""
	}
	fail := func(col, msg string) {
		errs = append(errs, models.ImportValidationError{Row: rowNum, Column: col, Message: msg})
	}

	req := &CreateMatchingQuestionRequest{
		Text:       column("text"),
		Difficulty: models.DifficultyLevel(column("difficulty")),
	}

	points, err := strconv.Atoi(column("points"))
	if err != nil {
		fail("points", "must be a whole number")
	}
	req.Points = points

	req.Content.LeftItems = splitItems(column("left_items"), "L")
	req.Content.RightItems = splitItems(column("right_items"), "R")

	for _, raw := range strings.Split(column("correct_pairs"), importItemSep) {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		l, r, ok := strings.Cut(raw, importPairSep)
		left, lerr := strconv.Atoi(strings.TrimSpace(l))
		right, rerr := strconv.Atoi(strings.TrimSpace(r))
		if !ok || lerr != nil || rerr != nil ||
			left < 1 || left > len(req.Content.LeftItems) ||
			right < 1 || right > len(req.Content.RightItems) {
			fail("correct_pairs", fmt.Sprintf("invalid pair %q", raw))
			continue
		}
		req.Content.CorrectPairs = append(req.Content.CorrectPairs, matching.Pair{
			LeftID:  req.Content.LeftItems[left-1].ID,
			RightID: req.Content.RightItems[right-1].ID,
		})
	}

	req.Content.AllowRightReuse = parseFlag(column("allow_right_reuse"))
	req.Content.ShuffleRight = parseFlag(column("shuffle_right"))

	return req, errs
}

// splitItems assigns positional ids such as L0, L1 to the listed texts.
func splitItems(value, prefix string) []matching.Item {
	var items []matching.Item
	for _, text := range strings.Split(value, importItemSep) {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		items = append(items, matching.Item{ID: prefix + strconv.Itoa(len(items)), Text: text})
	}
	return items
}

func parseFlag(value string) bool {
	switch strings.ToLower(value) {
	case "1", "true", "yes", "y":
		return true
	}
	return false
}

func importErrors(rowNum int, err error) []models.ImportValidationError {
	var ve ValidationErrors
	if errors.As(err, &ve) {
		out := make([]models.ImportValidationError, 0, len(ve))
		for _, e := range ve {
			out = append(out, models.ImportValidationError{Row: rowNum, Column: e.Field, Message: e.Message})
		}
		return out
	}
	return []models.ImportValidationError{{Row: rowNum, Message: err.Error()}}
}
