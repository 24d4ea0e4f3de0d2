package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"lingkod/internal/audit"
	"lingkod/internal/files"
	"lingkod/internal/hr/models"
	"lingkod/internal/hr/store"
	"lingkod/internal/notify"
	"lingkod/internal/notify/mocks"
	dErrors "lingkod/pkg/domain-errors"
	"lingkod/pkg/fieldcrypt"
	"lingkod/pkg/workflow"
)

type fakeDirectory struct {
	lines     map[string]bool
	positions map[string]bool
}

func (d fakeDirectory) LineExists(_ context.Context, lineID string) (bool, error) {
	return d.lines[lineID], nil
}

func (d fakeDirectory) PositionExists(_ context.Context, _, positionID string) (bool, error) {
	return d.positions[positionID], nil
}

type fixture struct {
	service    *Service
	store      *store.MemoryStore
	auditStore *audit.MemoryStore
	fileStore  *files.MemoryStore
	email      *mocks.MockEmailSender
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)

	cipher, err := fieldcrypt.New("test-secret")
	require.NoError(t, err)

	hrStore := store.NewMemoryStore()
	auditStore := audit.NewMemoryStore()
	fileStore := files.NewMemoryStore()
	email := mocks.NewMockEmailSender(ctrl)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	uow := workflow.NewMemoryUnitOfWork(hrStore, auditStore)
	coordinator := workflow.NewCoordinator(uow, logger, nil)

	directory := fakeDirectory{
		lines:     map[string]bool{"line-1": true},
		positions: map[string]bool{"pos-1": true},
	}

	svc := NewService(
		coordinator, cipher, hrStore, directory,
		audit.NewPublisher(auditStore), fileStore, email, nil, logger,
	)
	return &fixture{service: svc, store: hrStore, auditStore: auditStore, fileStore: fileStore, email: email}
}

func validApplication() models.Application {
	return models.Application{
		LineID:     "line-1",
		PositionID: "pos-1",
		PII: models.PII{
			FirstName:    "Maria",
			MiddleName:   "Santos",
			LastName:     "Clara",
			Suffix:       "",
			BirthDate:    "1994-02-17",
			BirthPlace:   "Bacoor, Cavite",
			Gender:       "female",
			CivilStatus:  "single",
			Email:        "maria.clara@example.ph",
			Phone:        "+639171234567",
			AddressLine1: "123 Molino Blvd",
			AddressLine2: "Molino IV",
			MotherName:   "Pia Clara",
			FatherName:   "Rafael Clara",
			GovernmentID: "CRN-0111-2223334",
		},
		Skills: []string{"records management", "filing"},
		Files: []models.FileUpload{
			{Filename: "resume.pdf", ContentType: "application/pdf", Data: []byte("resume")},
		},
	}
}

func testActor() audit.Actor {
	return audit.Actor{ID: "actor-1", LineID: "line-1", RequestID: "req-1", Device: "Chrome on Linux"}
}

func TestSubmitApplication_CommitsEverything(t *testing.T) {
	f := newFixture(t)
	f.email.EXPECT().SendEmail(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, email notify.Email) error {
			assert.Equal(t, "maria.clara@example.ph", email.To)
			assert.Equal(t, "Maria Clara", email.ToName)
			return nil
		})

	receipt, err := f.service.SubmitApplication(context.Background(), validApplication(), testActor())
	require.NoError(t, err)
	require.NotEmpty(t, receipt.ApplicantID)
	assert.Empty(t, receipt.PartialFailures)

	applicant, err := f.store.GetApplicant(context.Background(), receipt.ApplicantID)
	require.NoError(t, err)

	// Every PII attribute is persisted as an independent ciphertext+IV pair.
	p := applicant.PII
	for _, field := range []fieldcrypt.EncryptedField{
		p.FirstName, p.MiddleName, p.LastName, p.Suffix, p.BirthDate,
		p.BirthPlace, p.Gender, p.CivilStatus, p.Email, p.Phone,
		p.AddressLine1, p.AddressLine2, p.MotherName, p.FatherName, p.GovernmentID,
	} {
		assert.True(t, field.Present())
	}

	skills, err := f.store.ListSkills(context.Background(), receipt.ApplicantID)
	require.NoError(t, err)
	assert.Equal(t, []string{"filing", "records management"}, skills)

	storedFiles := f.store.ListFiles(receipt.ApplicantID)
	require.Len(t, storedFiles, 1)
	assert.Equal(t, "resume.pdf", storedFiles[0].Filename)
	assert.NotEmpty(t, storedFiles[0].URL)

	events, err := f.auditStore.ListByLine(context.Background(), "line-1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, audit.ActionAdded, events[0].Action)
	assert.Equal(t, "application", events[0].Entity)
	assert.Equal(t, "actor-1", events[0].ActorID)
}

func TestSubmitApplication_EmailFailureIsPartialSuccess(t *testing.T) {
	f := newFixture(t)
	f.email.EXPECT().SendEmail(gomock.Any(), gomock.Any()).
		Return(errors.New("smtp unavailable"))

	receipt, err := f.service.SubmitApplication(context.Background(), validApplication(), testActor())
	require.NoError(t, err)
	require.Len(t, receipt.PartialFailures, 1)

	// The durable writes stand despite the failed notification.
	_, err = f.store.GetApplicant(context.Background(), receipt.ApplicantID)
	require.NoError(t, err)
	events, err := f.auditStore.ListByLine(context.Background(), "line-1")
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestSubmitApplication_UnknownLineRollsBack(t *testing.T) {
	f := newFixture(t)
	// No email expectation: a rolled-back submission must not notify.

	cmd := validApplication()
	cmd.LineID = "line-missing"

	_, err := f.service.SubmitApplication(context.Background(), cmd, testActor())
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeNotFound))

	events, err := f.auditStore.ListByLine(context.Background(), "line-missing")
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestSubmitApplication_ValidationFailsBeforeAnyWork(t *testing.T) {
	f := newFixture(t)

	cmd := validApplication()
	cmd.PII.FirstName = "  "

	_, err := f.service.SubmitApplication(context.Background(), cmd, testActor())
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeValidation))
	assert.Zero(t, f.fileStore.Len())
}

func TestGetApplicant_DecryptsRoundTrip(t *testing.T) {
	f := newFixture(t)
	f.email.EXPECT().SendEmail(gomock.Any(), gomock.Any()).Return(nil)

	cmd := validApplication()
	receipt, err := f.service.SubmitApplication(context.Background(), cmd, testActor())
	require.NoError(t, err)

	view, skills, err := f.service.GetApplicant(context.Background(), receipt.ApplicantID)
	require.NoError(t, err)
	assert.Equal(t, cmd.PII, view.PII)
	assert.Len(t, skills, 2)
}

func TestGetApplicant_NotFound(t *testing.T) {
	f := newFixture(t)

	_, _, err := f.service.GetApplicant(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeNotFound))
}

func TestListApplicants_DegradesUndecryptableFields(t *testing.T) {
	f := newFixture(t)
	f.email.EXPECT().SendEmail(gomock.Any(), gomock.Any()).Return(nil)

	receipt, err := f.service.SubmitApplication(context.Background(), validApplication(), testActor())
	require.NoError(t, err)

	// Simulate a record written under a different secret: re-encrypt one
	// field with another cipher so only that field fails to decrypt.
	otherCipher, err := fieldcrypt.New("rotated-secret")
	require.NoError(t, err)
	applicant, err := f.store.GetApplicant(context.Background(), receipt.ApplicantID)
	require.NoError(t, err)
	applicant.PII.GovernmentID, err = otherCipher.Encrypt("CRN-0111-2223334")
	require.NoError(t, err)
	corrupted := *applicant
	corrupted.ID = "applicant-corrupted"
	require.NoError(t, f.store.InsertApplicant(context.Background(), &corrupted))

	views, err := f.service.ListApplicants(context.Background(), "line-1", "", 20)
	require.NoError(t, err)
	require.Len(t, views, 2)

	for _, view := range views {
		if view.ID == "applicant-corrupted" {
			assert.Equal(t, models.DecryptFailed, view.PII.GovernmentID)
			assert.Equal(t, "Maria", view.PII.FirstName)
		} else {
			assert.Equal(t, "CRN-0111-2223334", view.PII.GovernmentID)
		}
	}
}

func TestPostAnnouncement_CommitsWithAudit(t *testing.T) {
	f := newFixture(t)

	announcement, err := f.service.PostAnnouncement(
		context.Background(), "line-1", "Flag ceremony", "Monday 7am, main hall.", testActor())
	require.NoError(t, err)
	require.NotEmpty(t, announcement.ID)

	listed, err := f.service.ListAnnouncements(context.Background(), "line-1", "", 20)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "Flag ceremony", listed[0].Title)

	events, err := f.auditStore.ListByLine(context.Background(), "line-1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "announcement", events[0].Entity)
}

func TestPostAnnouncement_ValidationRejectsBlankTitle(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.PostAnnouncement(context.Background(), "line-1", "  ", "body", testActor())
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeValidation))
}
