package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"lingkod/internal/audit"
	"lingkod/internal/lines/models"
	"lingkod/internal/lines/store"
	"lingkod/internal/notify"
	"lingkod/internal/notify/mocks"
	"lingkod/internal/refdata"
	dErrors "lingkod/pkg/domain-errors"
	"lingkod/pkg/workflow"
)

type fixture struct {
	service    *Service
	store      *store.MemoryStore
	auditStore *audit.MemoryStore
	email      *mocks.MockEmailSender
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)

	lineStore := store.NewMemoryStore()
	auditStore := audit.NewMemoryStore()
	emailSender := mocks.NewMockEmailSender(ctrl)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	uow := workflow.NewMemoryUnitOfWork(lineStore, auditStore)
	coordinator := workflow.NewCoordinator(uow, logger, nil)

	svc := NewService(
		coordinator, lineStore, refdata.MockClient{},
		audit.NewPublisher(auditStore), emailSender,
		"https://portal.lingkod.gov.ph", logger,
	)
	return &fixture{service: svc, store: lineStore, auditStore: auditStore, email: emailSender}
}

func validNewLine() models.NewLine {
	return models.NewLine{
		Name:             "Bacoor Health Office",
		RegionCode:       "040000000",
		ProvinceCode:     "042100000",
		MunicipalityCode: "042103000",
		BarangayCode:     "042103012",
		AdminEmail:       "ana.reyes@bacoor.gov.ph",
	}
}

func testActor() audit.Actor {
	return audit.Actor{ID: "superadmin", RequestID: "req-1"}
}

func TestCreateLine_CommitsFullHierarchy(t *testing.T) {
	f := newFixture(t)
	f.email.EXPECT().SendEmail(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, email notify.Email) error {
			assert.Equal(t, "ana.reyes@bacoor.gov.ph", email.To)
			assert.Equal(t, "Ana Reyes", email.ToName)
			assert.Contains(t, email.Body, "https://portal.lingkod.gov.ph/register?line=")
			return nil
		})

	created, err := f.service.CreateLine(context.Background(), validNewLine(), testActor())
	require.NoError(t, err)
	require.NotNil(t, created.Line)
	assert.Empty(t, created.PartialFailures)

	// Exactly 33 salary grades, 1 through 33, in ascending amounts.
	grades, err := f.store.ListSalaryGrades(context.Background(), created.Line.ID)
	require.NoError(t, err)
	require.Len(t, grades, models.SalaryGradeCount)
	for i, grade := range grades {
		assert.Equal(t, i+1, grade.Grade)
		if i > 0 {
			assert.Greater(t, grade.Amount, grades[i-1].Amount)
		}
	}

	departments := f.store.DepartmentsByLine(created.Line.ID)
	require.Len(t, departments, 1)
	assert.Equal(t, "General Administration", departments[0].Name)

	positions := f.store.PositionsByLine(created.Line.ID)
	require.Len(t, positions, 1)
	assert.Equal(t, 1, positions[0].Slots)
	assert.Equal(t, 1, positions[0].Occupied)
	assert.Equal(t, departments[0].ID, positions[0].DepartmentID)

	// The invitation URL embeds the committed line id and the unique code.
	invitations := f.store.InvitationsByLine(created.Line.ID)
	require.Len(t, invitations, 1)
	assert.Contains(t, invitations[0].URL, "line="+created.Line.ID)
	assert.Contains(t, invitations[0].URL, "code="+invitations[0].Code)
	assert.Len(t, invitations[0].Code, 8)

	events, err := f.auditStore.ListByLine(context.Background(), created.Line.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "line", events[0].Entity)
	assert.Contains(t, events[0].Description, "Bacoor")
}

func TestCreateLine_UnknownBarangayFailsBeforeTransaction(t *testing.T) {
	f := newFixture(t)
	// No email expectation: validation failure sends nothing.

	cmd := validNewLine()
	cmd.BarangayCode = "999999999"

	_, err := f.service.CreateLine(context.Background(), cmd, testActor())
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeValidation))
	assert.Contains(t, err.Error(), "barangay")

	// Nothing was written at all.
	assert.Empty(t, f.auditStore.All())
}

func TestCreateLine_EmailFailureIsPartialSuccess(t *testing.T) {
	f := newFixture(t)
	f.email.EXPECT().SendEmail(gomock.Any(), gomock.Any()).Return(errors.New("smtp down"))

	created, err := f.service.CreateLine(context.Background(), validNewLine(), testActor())
	require.NoError(t, err)
	require.Len(t, created.PartialFailures, 1)

	// The line and its hierarchy are committed regardless.
	line, err := f.service.GetLine(context.Background(), created.Line.ID)
	require.NoError(t, err)
	assert.Equal(t, "Bacoor Health Office", line.Name)
}

func TestCreateLine_ValidationRejectsBadEmail(t *testing.T) {
	f := newFixture(t)

	cmd := validNewLine()
	cmd.AdminEmail = "not-an-email"

	_, err := f.service.CreateLine(context.Background(), cmd, testActor())
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeValidation))
}

func TestNewInviteCode_AlphabetAndLength(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code, err := newInviteCode()
		require.NoError(t, err)
		assert.Len(t, code, 8)
		for _, r := range code {
			assert.True(t, strings.ContainsRune(inviteCodeAlphabet, r))
		}
		seen[code] = true
	}
	// 100 draws from a 32^8 space should never collide.
	assert.Len(t, seen, 100)
}
