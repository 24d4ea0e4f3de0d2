package store

import (
	"context"
	"database/sql"

	"lingkod/internal/lines/models"
	"lingkod/internal/platform/pg"
	txcontext "lingkod/pkg/platform/tx"
)

// PostgresStore is transaction-aware: statements join the workflow
// transaction carried on the context. Geographic upserts use ON CONFLICT DO
// NOTHING so concurrent line creations against the same area do not fight.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) execer(ctx context.Context) txcontext.DBTX {
	return txcontext.Executor(ctx, s.db)
}

func (s *PostgresStore) EnsureRegion(ctx context.Context, region models.Region) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO regions (code, name) VALUES ($1, $2)
		ON CONFLICT (code) DO NOTHING`,
		region.Code, region.Name,
	)
	return pg.MapError(err, "ensure region")
}

func (s *PostgresStore) EnsureProvince(ctx context.Context, province models.Province) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO provinces (code, name, region_code) VALUES ($1, $2, $3)
		ON CONFLICT (code) DO NOTHING`,
		province.Code, province.Name, province.RegionCode,
	)
	return pg.MapError(err, "ensure province")
}

func (s *PostgresStore) EnsureMunicipality(ctx context.Context, municipality models.Municipality) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO municipalities (code, name, province_code) VALUES ($1, $2, $3)
		ON CONFLICT (code) DO NOTHING`,
		municipality.Code, municipality.Name, municipality.ProvinceCode,
	)
	return pg.MapError(err, "ensure municipality")
}

func (s *PostgresStore) EnsureBarangay(ctx context.Context, barangay models.Barangay) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO barangays (code, name, municipality_code) VALUES ($1, $2, $3)
		ON CONFLICT (code) DO NOTHING`,
		barangay.Code, barangay.Name, barangay.MunicipalityCode,
	)
	return pg.MapError(err, "ensure barangay")
}

func (s *PostgresStore) InsertLine(ctx context.Context, line *models.Line) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO lines (id, name, region_code, province_code, municipality_code, barangay_code, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		line.ID, line.Name, line.RegionCode, line.ProvinceCode,
		line.MunicipalityCode, line.BarangayCode, line.CreatedAt,
	)
	return pg.MapError(err, "insert line")
}

func (s *PostgresStore) GetLine(ctx context.Context, id string) (*models.Line, error) {
	var line models.Line
	err := s.execer(ctx).QueryRowContext(ctx, `
		SELECT id, name, region_code, province_code, municipality_code, barangay_code, created_at
		FROM lines WHERE id = $1`, id,
	).Scan(&line.ID, &line.Name, &line.RegionCode, &line.ProvinceCode,
		&line.MunicipalityCode, &line.BarangayCode, &line.CreatedAt)
	if err != nil {
		return nil, pg.MapError(err, "get line")
	}
	return &line, nil
}

func (s *PostgresStore) LineExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := s.execer(ctx).QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM lines WHERE id = $1)`, id,
	).Scan(&exists)
	if err != nil {
		return false, pg.MapError(err, "line exists")
	}
	return exists, nil
}

func (s *PostgresStore) InsertSalaryGrade(ctx context.Context, grade *models.SalaryGrade) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO salary_grades (id, line_id, grade, amount)
		VALUES ($1, $2, $3, $4)`,
		grade.ID, grade.LineID, grade.Grade, grade.Amount,
	)
	return pg.MapError(err, "insert salary grade")
}

func (s *PostgresStore) ListSalaryGrades(ctx context.Context, lineID string) ([]models.SalaryGrade, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT id, line_id, grade, amount FROM salary_grades
		WHERE line_id = $1 ORDER BY grade`, lineID)
	if err != nil {
		return nil, pg.MapError(err, "list salary grades")
	}
	defer rows.Close()

	var grades []models.SalaryGrade
	for rows.Next() {
		var grade models.SalaryGrade
		if err := rows.Scan(&grade.ID, &grade.LineID, &grade.Grade, &grade.Amount); err != nil {
			return nil, pg.MapError(err, "scan salary grade")
		}
		grades = append(grades, grade)
	}
	return grades, pg.MapError(rows.Err(), "list salary grades")
}

func (s *PostgresStore) InsertDepartment(ctx context.Context, department *models.Department) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO departments (id, line_id, name) VALUES ($1, $2, $3)`,
		department.ID, department.LineID, department.Name,
	)
	return pg.MapError(err, "insert department")
}

func (s *PostgresStore) InsertPosition(ctx context.Context, position *models.Position) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO positions (id, line_id, department_id, title, grade, slots, occupied)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		position.ID, position.LineID, position.DepartmentID, position.Title,
		position.Grade, position.Slots, position.Occupied,
	)
	return pg.MapError(err, "insert position")
}

func (s *PostgresStore) PositionExists(ctx context.Context, lineID, positionID string) (bool, error) {
	var exists bool
	err := s.execer(ctx).QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM positions WHERE id = $1 AND line_id = $2)`,
		positionID, lineID,
	).Scan(&exists)
	if err != nil {
		return false, pg.MapError(err, "position exists")
	}
	return exists, nil
}

func (s *PostgresStore) InsertInvitation(ctx context.Context, invitation *models.InvitationLink) error {
	// invitation_links.code carries a UNIQUE constraint; a race between two
	// generate-check-retry loops surfaces here as CodeConflict.
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO invitation_links (id, line_id, code, url, email, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		invitation.ID, invitation.LineID, invitation.Code, invitation.URL,
		invitation.Email, invitation.ExpiresAt, invitation.CreatedAt,
	)
	return pg.MapError(err, "insert invitation")
}

func (s *PostgresStore) InvitationCodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := s.execer(ctx).QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM invitation_links WHERE code = $1)`, code,
	).Scan(&exists)
	if err != nil {
		return false, pg.MapError(err, "invitation code exists")
	}
	return exists, nil
}
