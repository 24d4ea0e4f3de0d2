// Package store persists HR records. The postgres implementation is
// transaction-aware: when a workflow transaction rides on the context, every
// statement joins it.
package store

import (
	"context"
	"database/sql"

	"lingkod/internal/hr/models"
	"lingkod/internal/platform/pg"
	txcontext "lingkod/pkg/platform/tx"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) execer(ctx context.Context) txcontext.DBTX {
	return txcontext.Executor(ctx, s.db)
}

const applicantColumns = `id, line_id, position_id,
	first_name_ct, first_name_iv, middle_name_ct, middle_name_iv,
	last_name_ct, last_name_iv, suffix_ct, suffix_iv,
	birth_date_ct, birth_date_iv, birth_place_ct, birth_place_iv,
	gender_ct, gender_iv, civil_status_ct, civil_status_iv,
	email_ct, email_iv, phone_ct, phone_iv,
	address_line1_ct, address_line1_iv, address_line2_ct, address_line2_iv,
	mother_name_ct, mother_name_iv, father_name_ct, father_name_iv,
	government_id_ct, government_id_iv, created_at`

func (s *PostgresStore) InsertApplicant(ctx context.Context, applicant *models.Applicant) error {
	p := applicant.PII
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO applicants (`+applicantColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27,
			$28, $29, $30, $31, $32, $33, $34)`,
		applicant.ID, applicant.LineID, applicant.PositionID,
		p.FirstName.Ciphertext, p.FirstName.IV,
		p.MiddleName.Ciphertext, p.MiddleName.IV,
		p.LastName.Ciphertext, p.LastName.IV,
		p.Suffix.Ciphertext, p.Suffix.IV,
		p.BirthDate.Ciphertext, p.BirthDate.IV,
		p.BirthPlace.Ciphertext, p.BirthPlace.IV,
		p.Gender.Ciphertext, p.Gender.IV,
		p.CivilStatus.Ciphertext, p.CivilStatus.IV,
		p.Email.Ciphertext, p.Email.IV,
		p.Phone.Ciphertext, p.Phone.IV,
		p.AddressLine1.Ciphertext, p.AddressLine1.IV,
		p.AddressLine2.Ciphertext, p.AddressLine2.IV,
		p.MotherName.Ciphertext, p.MotherName.IV,
		p.FatherName.Ciphertext, p.FatherName.IV,
		p.GovernmentID.Ciphertext, p.GovernmentID.IV,
		applicant.CreatedAt,
	)
	return pg.MapError(err, "insert applicant")
}

func (s *PostgresStore) InsertSkills(ctx context.Context, applicantID string, skills []string) error {
	for _, skill := range skills {
		_, err := s.execer(ctx).ExecContext(ctx, `
			INSERT INTO applicant_skills (applicant_id, skill) VALUES ($1, $2)`,
			applicantID, skill,
		)
		if err != nil {
			return pg.MapError(err, "insert applicant skill")
		}
	}
	return nil
}

func (s *PostgresStore) InsertFile(ctx context.Context, file *models.ApplicantFile) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO applicant_files (id, applicant_id, filename, url, asset_id)
		VALUES ($1, $2, $3, $4, $5)`,
		file.ID, file.ApplicantID, file.Filename, file.URL, file.AssetID,
	)
	return pg.MapError(err, "insert applicant file")
}

func (s *PostgresStore) GetApplicant(ctx context.Context, id string) (*models.Applicant, error) {
	row := s.execer(ctx).QueryRowContext(ctx, `
		SELECT `+applicantColumns+` FROM applicants WHERE id = $1`, id)

	applicant, err := scanApplicant(row)
	if err != nil {
		return nil, pg.MapError(err, "get applicant")
	}
	return applicant, nil
}

// ListApplicantsAfter pages applicants of a line in stable id order. The
// cursor is the last-seen applicant id; empty means start from the top.
func (s *PostgresStore) ListApplicantsAfter(ctx context.Context, lineID, cursor string, limit int) ([]*models.Applicant, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT `+applicantColumns+` FROM applicants
		WHERE line_id = $1 AND id > $2
		ORDER BY id
		LIMIT $3`,
		lineID, cursor, limit,
	)
	if err != nil {
		return nil, pg.MapError(err, "list applicants")
	}
	defer rows.Close()

	var applicants []*models.Applicant
	for rows.Next() {
		applicant, err := scanApplicant(rows)
		if err != nil {
			return nil, pg.MapError(err, "scan applicant")
		}
		applicants = append(applicants, applicant)
	}
	return applicants, pg.MapError(rows.Err(), "list applicants")
}

func (s *PostgresStore) ListSkills(ctx context.Context, applicantID string) ([]string, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT skill FROM applicant_skills WHERE applicant_id = $1 ORDER BY skill`,
		applicantID,
	)
	if err != nil {
		return nil, pg.MapError(err, "list applicant skills")
	}
	defer rows.Close()

	var skills []string
	for rows.Next() {
		var skill string
		if err := rows.Scan(&skill); err != nil {
			return nil, pg.MapError(err, "scan applicant skill")
		}
		skills = append(skills, skill)
	}
	return skills, pg.MapError(rows.Err(), "list applicant skills")
}

func (s *PostgresStore) InsertAnnouncement(ctx context.Context, announcement *models.Announcement) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO announcements (id, line_id, title, body, posted_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		announcement.ID, announcement.LineID, announcement.Title,
		announcement.Body, announcement.PostedBy, announcement.CreatedAt,
	)
	return pg.MapError(err, "insert announcement")
}

func (s *PostgresStore) ListAnnouncementsAfter(ctx context.Context, lineID, cursor string, limit int) ([]*models.Announcement, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT id, line_id, title, body, posted_by, created_at
		FROM announcements
		WHERE line_id = $1 AND id > $2
		ORDER BY id
		LIMIT $3`,
		lineID, cursor, limit,
	)
	if err != nil {
		return nil, pg.MapError(err, "list announcements")
	}
	defer rows.Close()

	var announcements []*models.Announcement
	for rows.Next() {
		var a models.Announcement
		if err := rows.Scan(&a.ID, &a.LineID, &a.Title, &a.Body, &a.PostedBy, &a.CreatedAt); err != nil {
			return nil, pg.MapError(err, "scan announcement")
		}
		announcements = append(announcements, &a)
	}
	return announcements, pg.MapError(rows.Err(), "list announcements")
}

type scanner interface {
	Scan(dest ...any) error
}

func scanApplicant(row scanner) (*models.Applicant, error) {
	var a models.Applicant
	p := &a.PII
	err := row.Scan(
		&a.ID, &a.LineID, &a.PositionID,
		&p.FirstName.Ciphertext, &p.FirstName.IV,
		&p.MiddleName.Ciphertext, &p.MiddleName.IV,
		&p.LastName.Ciphertext, &p.LastName.IV,
		&p.Suffix.Ciphertext, &p.Suffix.IV,
		&p.BirthDate.Ciphertext, &p.BirthDate.IV,
		&p.BirthPlace.Ciphertext, &p.BirthPlace.IV,
		&p.Gender.Ciphertext, &p.Gender.IV,
		&p.CivilStatus.Ciphertext, &p.CivilStatus.IV,
		&p.Email.Ciphertext, &p.Email.IV,
		&p.Phone.Ciphertext, &p.Phone.IV,
		&p.AddressLine1.Ciphertext, &p.AddressLine1.IV,
		&p.AddressLine2.Ciphertext, &p.AddressLine2.IV,
		&p.MotherName.Ciphertext, &p.MotherName.IV,
		&p.FatherName.Ciphertext, &p.FatherName.IV,
		&p.GovernmentID.Ciphertext, &p.GovernmentID.IV,
		&a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
