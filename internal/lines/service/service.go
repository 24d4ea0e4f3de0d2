// Package service implements line creation: one committed unit containing the
// line, its geography, a 33-grade salary table, default department and
// position, and an admin invitation link.
package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"lingkod/internal/audit"
	"lingkod/internal/lines/models"
	"lingkod/internal/notify"
	"lingkod/internal/refdata"
	dErrors "lingkod/pkg/domain-errors"
	"lingkod/pkg/email"
	"lingkod/pkg/platform/sentinel"
	"lingkod/pkg/workflow"
)

// Store persists the line domain.
type Store interface {
	EnsureRegion(ctx context.Context, region models.Region) error
	EnsureProvince(ctx context.Context, province models.Province) error
	EnsureMunicipality(ctx context.Context, municipality models.Municipality) error
	EnsureBarangay(ctx context.Context, barangay models.Barangay) error
	InsertLine(ctx context.Context, line *models.Line) error
	GetLine(ctx context.Context, id string) (*models.Line, error)
	InsertSalaryGrade(ctx context.Context, grade *models.SalaryGrade) error
	InsertDepartment(ctx context.Context, department *models.Department) error
	InsertPosition(ctx context.Context, position *models.Position) error
	InsertInvitation(ctx context.Context, invitation *models.InvitationLink) error
	InvitationCodeExists(ctx context.Context, code string) (bool, error)
}

// Auditor appends audit entries inside the calling step's transaction.
type Auditor interface {
	Emit(ctx context.Context, event audit.Event) error
}

const (
	defaultDepartmentName = "General Administration"
	defaultPositionTitle  = "Line Administrator"
	inviteCodeLength      = 8
	inviteCodeAttempts    = 5
	inviteTTL             = 14 * 24 * time.Hour
)

type Service struct {
	coordinator *workflow.Coordinator
	store       Store
	refdata     refdata.Client
	auditor     Auditor
	email       notify.EmailSender
	portalBase  string
	logger      *slog.Logger
}

func NewService(
	coordinator *workflow.Coordinator,
	store Store,
	refdataClient refdata.Client,
	auditor Auditor,
	emailSender notify.EmailSender,
	portalBase string,
	logger *slog.Logger,
) *Service {
	return &Service{
		coordinator: coordinator,
		store:       store,
		refdata:     refdataClient,
		auditor:     auditor,
		email:       emailSender,
		portalBase:  portalBase,
		logger:      logger,
	}
}

// LineCreated reports a committed creation. PartialFailures names best-effort
// actions that did not complete.
type LineCreated struct {
	Line            *models.Line
	Invitation      *models.InvitationLink
	PartialFailures []string
}

// CreateLine resolves the geographic codes before the transaction opens,
// then creates everything a new line needs in one commit. The invitation
// email afterwards is best-effort.
func (s *Service) CreateLine(ctx context.Context, cmd models.NewLine, actor audit.Actor) (*LineCreated, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	// Reference-data lookups are read-only and idempotent, so they run
	// before the transaction; an unresolvable code is a validation failure.
	geo, err := s.resolveGeography(ctx, cmd)
	if err != nil {
		return nil, err
	}

	line := &models.Line{
		ID:               uuid.NewString(),
		Name:             cmd.Name,
		RegionCode:       cmd.RegionCode,
		ProvinceCode:     cmd.ProvinceCode,
		MunicipalityCode: cmd.MunicipalityCode,
		BarangayCode:     cmd.BarangayCode,
		CreatedAt:        time.Now(),
	}

	var invitation *models.InvitationLink

	plan := workflow.Plan{
		Name: "line_creation",
		Steps: []workflow.Step{
			{Name: "ensure geography", Run: func(ctx context.Context) error {
				return s.ensureGeography(ctx, cmd, geo)
			}},
			{Name: "insert line", Run: func(ctx context.Context) error {
				return s.store.InsertLine(ctx, line)
			}},
			{Name: "insert salary grades", Run: func(ctx context.Context) error {
				for grade := 1; grade <= models.SalaryGradeCount; grade++ {
					err := s.store.InsertSalaryGrade(ctx, &models.SalaryGrade{
						ID:     uuid.NewString(),
						LineID: line.ID,
						Grade:  grade,
						Amount: defaultGradeAmount(grade),
					})
					if err != nil {
						return err
					}
				}
				return nil
			}},
			{Name: "insert default department and position", Run: func(ctx context.Context) error {
				department := &models.Department{
					ID:     uuid.NewString(),
					LineID: line.ID,
					Name:   defaultDepartmentName,
				}
				if err := s.store.InsertDepartment(ctx, department); err != nil {
					return err
				}
				return s.store.InsertPosition(ctx, &models.Position{
					ID:           uuid.NewString(),
					LineID:       line.ID,
					DepartmentID: department.ID,
					Title:        defaultPositionTitle,
					Grade:        24,
					Slots:        1,
					Occupied:     1,
				})
			}},
			{Name: "insert invitation", Run: func(ctx context.Context) error {
				code, err := workflow.GenerateUnique(ctx, newInviteCode, s.store.InvitationCodeExists, inviteCodeAttempts)
				if err != nil {
					return err
				}
				now := time.Now()
				invitation = &models.InvitationLink{
					ID:        uuid.NewString(),
					LineID:    line.ID,
					Code:      code,
					URL:       fmt.Sprintf("%s/register?line=%s&code=%s", s.portalBase, line.ID, code),
					Email:     cmd.AdminEmail,
					ExpiresAt: now.Add(inviteTTL),
					CreatedAt: now,
				}
				return s.store.InsertInvitation(ctx, invitation)
			}},
			{Name: "append audit", Run: func(ctx context.Context) error {
				return s.auditor.Emit(ctx, audit.Event{
					ActorID:     actor.ID,
					LineID:      line.ID,
					Action:      audit.ActionAdded,
					Entity:      "line",
					Description: fmt.Sprintf("ADDED line %s (%s, %s)", cmd.Name, geo.municipality, geo.province),
					RequestID:   actor.RequestID,
					Device:      actor.Device,
				})
			}},
		},
		AfterCommit: []workflow.BestEffort{
			{Name: "invitation email", Run: func(ctx context.Context) error {
				first, last := email.DeriveNameFromEmail(cmd.AdminEmail)
				return s.email.SendEmail(ctx, notify.Email{
					To:      cmd.AdminEmail,
					ToName:  first + " " + last,
					Subject: "You have been invited to administer " + cmd.Name,
					Body:    "Complete your registration: " + invitation.URL,
				})
			}},
		},
	}

	result, err := s.coordinator.Execute(ctx, plan)
	if err != nil {
		return nil, err
	}

	created := &LineCreated{Line: line, Invitation: invitation}
	for _, failure := range result.BestEffortFailures {
		created.PartialFailures = append(created.PartialFailures, failure.Error())
	}
	return created, nil
}

type geography struct {
	region       string
	province     string
	municipality string
	barangay     string
}

func (s *Service) resolveGeography(ctx context.Context, cmd models.NewLine) (geography, error) {
	var geo geography
	lookups := []struct {
		code string
		tier refdata.Tier
		dst  *string
	}{
		{cmd.RegionCode, refdata.TierRegion, &geo.region},
		{cmd.ProvinceCode, refdata.TierProvince, &geo.province},
		{cmd.MunicipalityCode, refdata.TierMunicipality, &geo.municipality},
		{cmd.BarangayCode, refdata.TierBarangay, &geo.barangay},
	}
	for _, lookup := range lookups {
		name, err := s.refdata.Lookup(ctx, lookup.code, lookup.tier)
		if err != nil {
			return geography{}, dErrors.Wrap(err, dErrors.CodeValidation,
				fmt.Sprintf("unknown %s code %q", lookup.tier, lookup.code))
		}
		*lookup.dst = name
	}
	return geo, nil
}

func (s *Service) ensureGeography(ctx context.Context, cmd models.NewLine, geo geography) error {
	if err := s.store.EnsureRegion(ctx, models.Region{Code: cmd.RegionCode, Name: geo.region}); err != nil {
		return err
	}
	if err := s.store.EnsureProvince(ctx, models.Province{
		Code: cmd.ProvinceCode, Name: geo.province, RegionCode: cmd.RegionCode,
	}); err != nil {
		return err
	}
	if err := s.store.EnsureMunicipality(ctx, models.Municipality{
		Code: cmd.MunicipalityCode, Name: geo.municipality, ProvinceCode: cmd.ProvinceCode,
	}); err != nil {
		return err
	}
	return s.store.EnsureBarangay(ctx, models.Barangay{
		Code: cmd.BarangayCode, Name: geo.barangay, MunicipalityCode: cmd.MunicipalityCode,
	})
}

// defaultGradeAmount returns the default monthly base for a salary grade in
// centavos: a linear schedule lines adjust after onboarding.
func defaultGradeAmount(grade int) int64 {
	return int64(1_300_000 + (grade-1)*150_000)
}

const inviteCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func newInviteCode() (string, error) {
	buf := make([]byte, inviteCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "generate invite code")
	}
	for i, b := range buf {
		buf[i] = inviteCodeAlphabet[int(b)%len(inviteCodeAlphabet)]
	}
	return string(buf), nil
}

// GetLine returns one line by id.
func (s *Service) GetLine(ctx context.Context, id string) (*models.Line, error) {
	line, err := s.store.GetLine(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "line not found")
		}
		return nil, err
	}
	return line, nil
}
