package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ahmetcoskunkizilkaya/circle-backend/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/circle-backend/internal/models"
	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const maxReasonLength = 500

const reporterNotice = "Your report has been reviewed. Thank you for helping keep the community safe."

// Actor is the caller of a moderation operation. Role is resolved by the
// caller and passed in; the workflow never reads session state.
type Actor struct {
	ID      uuid.UUID
	IsAdmin bool
}

type CreateReportInput struct {
	ReportedID uuid.UUID
	Reason     string
	Details    string
}

// ResolveResult carries the resolved report. Warning is set, and is a
// *DependencyFailure, when the side effect failed after the status change.
type ResolveResult struct {
	Report  *models.Report
	Warning error
}

type auditSnapshot struct {
	Blocked  []uuid.UUID `json:"blocked"`
	Blockers []uuid.UUID `json:"blockers"`
	TakenAt  time.Time   `json:"taken_at"`
}

type ModerationService struct {
	db         *gorm.DB
	visibility *VisibilityService
	accounts   AccountStore
	notifier   *NotificationService
	sink       DeliverySink
	suspension time.Duration
	now        func() time.Time
}

func NewModerationService(db *gorm.DB, visibility *VisibilityService, accounts AccountStore, notifier *NotificationService, sink DeliverySink, suspension time.Duration) *ModerationService {
	if sink == nil {
		sink = LogSink{}
	}
	if suspension <= 0 {
		suspension = 30 * 24 * time.Hour
	}
	return &ModerationService{
		db:         db,
		visibility: visibility,
		accounts:   accounts,
		notifier:   notifier,
		sink:       sink,
		suspension: suspension,
		now:        time.Now,
	}
}

func (s *ModerationService) CreateReport(ctx context.Context, reporterID uuid.UUID, in CreateReportInput) (*models.Report, error) {
	if reporterID == in.ReportedID {
		return nil, ErrSelfReport
	}
	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		return nil, fmt.Errorf("reason is required: %w", ErrInvalidOperation)
	}
	if utf8.RuneCountInString(reason) > maxReasonLength {
		return nil, fmt.Errorf("reason exceeds %d characters: %w", maxReasonLength, ErrInvalidOperation)
	}
	if _, err := s.accounts.GetUser(ctx, in.ReportedID); err != nil {
		return nil, err
	}

	report := &models.Report{
		ReporterID: reporterID,
		ReportedID: in.ReportedID,
		Reason:     reason,
		Details:    strings.TrimSpace(in.Details),
		Status:     models.ReportPending,
	}
	if err := s.db.WithContext(ctx).Create(report).Error; err != nil {
		return nil, err
	}
	slog.Info("report created", "action", "report_create", "report_id", report.ID, "user_id", reporterID.String())
	return report, nil
}

func (s *ModerationService) ListReports(ctx context.Context, actor Actor, status string, page, limit int) ([]models.Report, int64, error) {
	if !actor.IsAdmin {
		return nil, 0, ErrAdminRequired
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	query := s.db.WithContext(ctx).Model(&models.Report{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var reports []models.Report
	err := query.Order("created_at DESC").Offset((page - 1) * limit).Limit(limit).Find(&reports).Error
	return reports, total, err
}

func (s *ModerationService) GetReport(ctx context.Context, actor Actor, reportID uuid.UUID) (*models.Report, error) {
	if !actor.IsAdmin {
		return nil, ErrAdminRequired
	}
	return s.findReport(ctx, reportID)
}

func (s *ModerationService) findReport(ctx context.Context, reportID uuid.UUID) (*models.Report, error) {
	var report models.Report
	if err := s.db.WithContext(ctx).First(&report, "id = ?", reportID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReportNotFound
		}
		return nil, err
	}
	return &report, nil
}

// Review moves a pending report to reviewed.
func (s *ModerationService) Review(ctx context.Context, actor Actor, reportID uuid.UUID) (*models.Report, error) {
	if !actor.IsAdmin {
		return nil, ErrAdminRequired
	}
	result := s.db.WithContext(ctx).Model(&models.Report{}).
		Where("id = ? AND status = ?", reportID, models.ReportPending).
		Update("status", models.ReportReviewed)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, s.transitionError(ctx, reportID)
	}
	slog.Info("report reviewed", "action", "report_review", "report_id", reportID, "user_id", actor.ID.String())
	return s.findReport(ctx, reportID)
}

// Resolve records the admin decision and then applies its side effect.
// The status change is authoritative: a failed side effect is returned as
// ResolveResult.Warning and the report stays resolved.
func (s *ModerationService) Resolve(ctx context.Context, actor Actor, reportID uuid.UUID, action models.AdminAction, notes string) (*ResolveResult, error) {
	if !actor.IsAdmin {
		return nil, ErrAdminRequired
	}
	if !action.Valid() {
		return nil, ErrInvalidAction
	}

	report, err := s.findReport(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if !report.Status.CanMoveTo(models.ReportResolved) {
		return nil, ErrInvalidTransition
	}

	snapshot, err := s.snapshot(ctx, report.ReportedID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	result := s.db.WithContext(ctx).Model(&models.Report{}).
		Where("id = ? AND status IN ?", reportID, []string{string(models.ReportPending), string(models.ReportReviewed)}).
		Updates(map[string]interface{}{
			"status":         models.ReportResolved,
			"admin_action":   action,
			"admin_notes":    strings.TrimSpace(notes),
			"resolved_by":    actor.ID,
			"resolved_at":    now,
			"audit_snapshot": snapshot,
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		// Lost a race with another resolver.
		return nil, ErrInvalidTransition
	}

	warning := s.applyAction(ctx, report, action)
	outcome := "ok"
	if warning != nil {
		outcome = "failed"
		slog.Warn("moderation side effect failed",
			"action", string(action),
			"report_id", reportID,
			"user_id", report.ReportedID.String(),
			"error", warning.Error())
		sentry.CaptureException(warning)
		if err := s.db.WithContext(ctx).Model(&models.Report{}).
			Where("id = ?", reportID).
			Update("side_effect_error", warning.Error()).Error; err != nil {
			slog.Error("failed to record side effect error", "report_id", reportID, "error", err)
		}
	}
	metrics.ModerationResolutions.WithLabelValues(string(action), outcome).Inc()

	// The reporter hears back; the reported user is never told.
	if _, err := s.notifier.Notify(ctx, NotifyParams{
		Type:        models.NotificationSystem,
		RecipientID: report.ReporterID,
		EntityID:    &report.ID,
		Template:    reporterNotice,
	}); err != nil {
		slog.Warn("failed to notify reporter", "report_id", reportID, "user_id", report.ReporterID.String(), "error", err)
	}

	slog.Info("report resolved", "action", "report_resolve", "report_id", reportID, "admin_action", string(action), "user_id", actor.ID.String())

	resolved, err := s.findReport(ctx, reportID)
	if err != nil {
		return nil, err
	}
	return &ResolveResult{Report: resolved, Warning: warning}, nil
}

// applyAction runs the side effect for action against the reported account.
func (s *ModerationService) applyAction(ctx context.Context, report *models.Report, action models.AdminAction) error {
	switch action {
	case models.ActionBlockUser:
		until := s.now().UTC().Add(s.suspension)
		if err := s.accounts.SuspendUser(ctx, report.ReportedID, until); err != nil {
			return &DependencyFailure{Dependency: "account store", Op: "suspend user", Err: err}
		}
	case models.ActionDeleteUser:
		if err := s.accounts.DeleteUser(ctx, report.ReportedID); err != nil {
			return &DependencyFailure{Dependency: "account store", Op: "delete user", Err: err}
		}
	case models.ActionRequestID:
		go s.requestIdentity(report.ReportedID, report.ID)
	case models.ActionNoAction:
	}
	return nil
}

func (s *ModerationService) requestIdentity(userID, reportID uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
	defer cancel()
	if err := s.sink.RequestIdentityVerification(ctx, userID, reportID); err != nil {
		failure := &DependencyFailure{Dependency: "delivery sink", Op: "request identity", Err: err}
		slog.Warn("identity verification request failed",
			"action", string(models.ActionRequestID),
			"report_id", reportID,
			"user_id", userID.String(),
			"error", failure.Error())
		sentry.CaptureException(failure)
	}
}

func (s *ModerationService) snapshot(ctx context.Context, userID uuid.UUID) (datatypes.JSON, error) {
	blocked, err := s.visibility.ListBlocked(ctx, userID)
	if err != nil {
		return nil, err
	}
	blockers, err := s.visibility.ListBlockers(ctx, userID)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(auditSnapshot{Blocked: blocked, Blockers: blockers, TakenAt: s.now().UTC()})
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

// transitionError tells a missing report apart from an illegal move.
func (s *ModerationService) transitionError(ctx context.Context, reportID uuid.UUID) error {
	if _, err := s.findReport(ctx, reportID); err != nil {
		return err
	}
	return ErrInvalidTransition
}
