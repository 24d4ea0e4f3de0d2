// Package service implements the HR workflows: job application submission,
// applicant reads, and announcement posting.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"lingkod/internal/audit"
	"lingkod/internal/files"
	"lingkod/internal/hr/models"
	"lingkod/internal/notify"
	dErrors "lingkod/pkg/domain-errors"
	"lingkod/pkg/fieldcrypt"
	"lingkod/pkg/platform/sentinel"
	"lingkod/pkg/workflow"
)

// Store persists applicants, their skill tags and file metadata, and the
// line-scoped announcements.
type Store interface {
	InsertApplicant(ctx context.Context, applicant *models.Applicant) error
	InsertSkills(ctx context.Context, applicantID string, skills []string) error
	InsertFile(ctx context.Context, file *models.ApplicantFile) error
	GetApplicant(ctx context.Context, id string) (*models.Applicant, error)
	ListApplicantsAfter(ctx context.Context, lineID, cursor string, limit int) ([]*models.Applicant, error)
	ListSkills(ctx context.Context, applicantID string) ([]string, error)
	InsertAnnouncement(ctx context.Context, announcement *models.Announcement) error
	ListAnnouncementsAfter(ctx context.Context, lineID, cursor string, limit int) ([]*models.Announcement, error)
}

// Directory answers existence checks against the organizational-line domain.
type Directory interface {
	LineExists(ctx context.Context, lineID string) (bool, error)
	PositionExists(ctx context.Context, lineID, positionID string) (bool, error)
}

// Auditor appends audit entries inside the calling step's transaction.
type Auditor interface {
	Emit(ctx context.Context, event audit.Event) error
}

// CryptoMetrics counts field encryption activity. Nil-safe via the service's
// guards; implemented by the platform metrics package.
type CryptoMetrics interface {
	FieldEncrypted()
	FieldDecryptFailed()
}

type Service struct {
	coordinator *workflow.Coordinator
	cipher      *fieldcrypt.Cipher
	store       Store
	directory   Directory
	auditor     Auditor
	files       files.Store
	email       notify.EmailSender
	metrics     CryptoMetrics
	logger      *slog.Logger
}

func NewService(
	coordinator *workflow.Coordinator,
	cipher *fieldcrypt.Cipher,
	store Store,
	directory Directory,
	auditor Auditor,
	fileStore files.Store,
	email notify.EmailSender,
	metrics CryptoMetrics,
	logger *slog.Logger,
) *Service {
	return &Service{
		coordinator: coordinator,
		cipher:      cipher,
		store:       store,
		directory:   directory,
		auditor:     auditor,
		files:       fileStore,
		email:       email,
		metrics:     metrics,
		logger:      logger,
	}
}

// SubmissionReceipt is returned to the caller after a committed submission.
// PartialFailures names best-effort actions that did not complete.
type SubmissionReceipt struct {
	ApplicantID     string
	PartialFailures []string
}

// SubmitApplication encrypts the applicant's PII, uploads attachments, and
// records the application atomically. The confirmation email is best-effort:
// its failure is reported on the receipt, never by error.
func (s *Service) SubmitApplication(ctx context.Context, cmd models.Application, actor audit.Actor) (*SubmissionReceipt, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	// Encryption is CPU-bound and has no storage dependency, so it runs
	// before the transaction opens rather than holding a connection idle.
	encrypted, err := s.encryptPII(ctx, cmd.PII)
	if err != nil {
		return nil, err
	}

	applicantID := uuid.NewString()

	// Uploads must complete before any row references them.
	applicantFiles, err := s.uploadFiles(ctx, applicantID, cmd.Files)
	if err != nil {
		return nil, err
	}

	applicant := &models.Applicant{
		ID:         applicantID,
		LineID:     cmd.LineID,
		PositionID: cmd.PositionID,
		PII:        encrypted,
		CreatedAt:  time.Now(),
	}

	plan := workflow.Plan{
		Name: "application_submission",
		Steps: []workflow.Step{
			{Name: "check references", Run: func(ctx context.Context) error {
				return s.checkReferences(ctx, cmd.LineID, cmd.PositionID)
			}},
			{Name: "insert applicant", Run: func(ctx context.Context) error {
				return s.store.InsertApplicant(ctx, applicant)
			}},
			{Name: "insert skills", Run: func(ctx context.Context) error {
				return s.store.InsertSkills(ctx, applicantID, cmd.Skills)
			}},
			{Name: "insert files", Run: func(ctx context.Context) error {
				for i := range applicantFiles {
					if err := s.store.InsertFile(ctx, &applicantFiles[i]); err != nil {
						return err
					}
				}
				return nil
			}},
			{Name: "append audit", Run: func(ctx context.Context) error {
				return s.auditor.Emit(ctx, audit.Event{
					ActorID:     actor.ID,
					LineID:      cmd.LineID,
					Action:      audit.ActionAdded,
					Entity:      "application",
					Description: fmt.Sprintf("ADDED application %s for position %s", applicantID, cmd.PositionID),
					RequestID:   actor.RequestID,
					Device:      actor.Device,
				})
			}},
		},
		AfterCommit: []workflow.BestEffort{
			{Name: "confirmation email", Run: func(ctx context.Context) error {
				return s.email.SendEmail(ctx, notify.Email{
					To:      cmd.PII.Email,
					ToName:  strings.TrimSpace(cmd.PII.FirstName + " " + cmd.PII.LastName),
					Subject: "Application received",
					Body:    "Your job application has been recorded. Reference: " + applicantID,
				})
			}},
		},
	}

	result, err := s.coordinator.Execute(ctx, plan)
	if err != nil {
		return nil, err
	}

	receipt := &SubmissionReceipt{ApplicantID: applicantID}
	for _, failure := range result.BestEffortFailures {
		receipt.PartialFailures = append(receipt.PartialFailures, failure.Error())
	}
	return receipt, nil
}

func (s *Service) checkReferences(ctx context.Context, lineID, positionID string) error {
	ok, err := s.directory.LineExists(ctx, lineID)
	if err != nil {
		return err
	}
	if !ok {
		return dErrors.New(dErrors.CodeNotFound, "line not found")
	}
	ok, err = s.directory.PositionExists(ctx, lineID, positionID)
	if err != nil {
		return err
	}
	if !ok {
		return dErrors.New(dErrors.CodeNotFound, "position not found")
	}
	return nil
}

// encryptPII encrypts each sensitive attribute independently and in parallel.
// Every goroutine writes a distinct destination field.
func (s *Service) encryptPII(ctx context.Context, pii models.PII) (models.EncryptedPII, error) {
	var enc models.EncryptedPII

	fields := []struct {
		plain string
		dst   *fieldcrypt.EncryptedField
	}{
		{pii.FirstName, &enc.FirstName},
		{pii.MiddleName, &enc.MiddleName},
		{pii.LastName, &enc.LastName},
		{pii.Suffix, &enc.Suffix},
		{pii.BirthDate, &enc.BirthDate},
		{pii.BirthPlace, &enc.BirthPlace},
		{pii.Gender, &enc.Gender},
		{pii.CivilStatus, &enc.CivilStatus},
		{pii.Email, &enc.Email},
		{pii.Phone, &enc.Phone},
		{pii.AddressLine1, &enc.AddressLine1},
		{pii.AddressLine2, &enc.AddressLine2},
		{pii.MotherName, &enc.MotherName},
		{pii.FatherName, &enc.FatherName},
		{pii.GovernmentID, &enc.GovernmentID},
	}

	g, _ := errgroup.WithContext(ctx)
	for _, field := range fields {
		g.Go(func() error {
			encrypted, err := s.cipher.Encrypt(field.plain)
			if err != nil {
				return err
			}
			*field.dst = encrypted
			if s.metrics != nil {
				s.metrics.FieldEncrypted()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return models.EncryptedPII{}, err
	}
	return enc, nil
}

func (s *Service) uploadFiles(ctx context.Context, applicantID string, uploads []models.FileUpload) ([]models.ApplicantFile, error) {
	applicantFiles := make([]models.ApplicantFile, 0, len(uploads))
	for _, up := range uploads {
		stored, err := s.files.Upload(ctx, "applications/"+applicantID, files.Upload{
			Filename:    up.Filename,
			ContentType: up.ContentType,
			Data:        up.Data,
		})
		if err != nil {
			return nil, err
		}
		applicantFiles = append(applicantFiles, models.ApplicantFile{
			ID:          uuid.NewString(),
			ApplicantID: applicantID,
			Filename:    up.Filename,
			URL:         stored.URL,
			AssetID:     stored.AssetID,
		})
	}
	return applicantFiles, nil
}

// GetApplicant loads and decrypts one applicant. Fields that fail to decrypt
// degrade to the sentinel marker instead of failing the read.
func (s *Service) GetApplicant(ctx context.Context, id string) (*models.ApplicantView, []string, error) {
	applicant, err := s.store.GetApplicant(ctx, id)
	if err != nil {
		return nil, nil, translateNotFound(err, "applicant not found")
	}
	skills, err := s.store.ListSkills(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	view := s.decryptApplicant(ctx, applicant)
	return view, skills, nil
}

// ListApplicants pages a line's applicants in stable id order, decrypting
// each record's fields with per-field degradation.
func (s *Service) ListApplicants(ctx context.Context, lineID, cursor string, limit int) ([]*models.ApplicantView, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	applicants, err := s.store.ListApplicantsAfter(ctx, lineID, cursor, limit)
	if err != nil {
		return nil, err
	}
	views := make([]*models.ApplicantView, 0, len(applicants))
	for _, applicant := range applicants {
		views = append(views, s.decryptApplicant(ctx, applicant))
	}
	return views, nil
}

func (s *Service) decryptApplicant(ctx context.Context, applicant *models.Applicant) *models.ApplicantView {
	view := &models.ApplicantView{
		ID:         applicant.ID,
		LineID:     applicant.LineID,
		PositionID: applicant.PositionID,
		CreatedAt:  applicant.CreatedAt,
	}
	p := applicant.PII
	view.PII = models.PII{
		FirstName:    s.decryptField(ctx, applicant.ID, "first_name", p.FirstName),
		MiddleName:   s.decryptField(ctx, applicant.ID, "middle_name", p.MiddleName),
		LastName:     s.decryptField(ctx, applicant.ID, "last_name", p.LastName),
		Suffix:       s.decryptField(ctx, applicant.ID, "suffix", p.Suffix),
		BirthDate:    s.decryptField(ctx, applicant.ID, "birth_date", p.BirthDate),
		BirthPlace:   s.decryptField(ctx, applicant.ID, "birth_place", p.BirthPlace),
		Gender:       s.decryptField(ctx, applicant.ID, "gender", p.Gender),
		CivilStatus:  s.decryptField(ctx, applicant.ID, "civil_status", p.CivilStatus),
		Email:        s.decryptField(ctx, applicant.ID, "email", p.Email),
		Phone:        s.decryptField(ctx, applicant.ID, "phone", p.Phone),
		AddressLine1: s.decryptField(ctx, applicant.ID, "address_line1", p.AddressLine1),
		AddressLine2: s.decryptField(ctx, applicant.ID, "address_line2", p.AddressLine2),
		MotherName:   s.decryptField(ctx, applicant.ID, "mother_name", p.MotherName),
		FatherName:   s.decryptField(ctx, applicant.ID, "father_name", p.FatherName),
		GovernmentID: s.decryptField(ctx, applicant.ID, "government_id", p.GovernmentID),
	}
	return view
}

// decryptField never aborts a read: a missing field stays empty, a failed
// decrypt degrades to the sentinel and is logged with the record id.
func (s *Service) decryptField(ctx context.Context, recordID, name string, field fieldcrypt.EncryptedField) string {
	if !field.Present() {
		return ""
	}
	plaintext, err := s.cipher.Decrypt(field.Ciphertext, field.IV)
	if err != nil {
		s.logger.ErrorContext(ctx, "field decryption failed",
			"record_id", recordID,
			"field", name,
			"error", err.Error(),
		)
		if s.metrics != nil {
			s.metrics.FieldDecryptFailed()
		}
		return models.DecryptFailed
	}
	return plaintext
}

func translateNotFound(err error, message string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeNotFound, message)
	}
	return err
}
