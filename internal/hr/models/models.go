// Package models holds the human-resources domain records. Applicant PII is
// stored as independently encrypted fields, two columns per attribute, so
// reads can decrypt only what a response needs.
package models

import (
	"strings"
	"time"

	dErrors "lingkod/pkg/domain-errors"
	"lingkod/pkg/fieldcrypt"
)

// PII carries the plaintext sensitive attributes of an applicant. It exists
// only in memory while a request is being served; persistence always goes
// through EncryptedPII.
type PII struct {
	FirstName    string
	MiddleName   string
	LastName     string
	Suffix       string
	BirthDate    string
	BirthPlace   string
	Gender       string
	CivilStatus  string
	Email        string
	Phone        string
	AddressLine1 string
	AddressLine2 string
	MotherName   string
	FatherName   string
	GovernmentID string
}

// EncryptedPII mirrors PII field for field as ciphertext+IV pairs.
type EncryptedPII struct {
	FirstName    fieldcrypt.EncryptedField
	MiddleName   fieldcrypt.EncryptedField
	LastName     fieldcrypt.EncryptedField
	Suffix       fieldcrypt.EncryptedField
	BirthDate    fieldcrypt.EncryptedField
	BirthPlace   fieldcrypt.EncryptedField
	Gender       fieldcrypt.EncryptedField
	CivilStatus  fieldcrypt.EncryptedField
	Email        fieldcrypt.EncryptedField
	Phone        fieldcrypt.EncryptedField
	AddressLine1 fieldcrypt.EncryptedField
	AddressLine2 fieldcrypt.EncryptedField
	MotherName   fieldcrypt.EncryptedField
	FatherName   fieldcrypt.EncryptedField
	GovernmentID fieldcrypt.EncryptedField
}

// Applicant is the persisted record. Only ids and timestamps are plaintext.
type Applicant struct {
	ID         string
	LineID     string
	PositionID string
	PII        EncryptedPII
	CreatedAt  time.Time
}

// ApplicantFile is uploaded-document metadata. The blob itself lives in
// object storage; AssetID is the storage key.
type ApplicantFile struct {
	ID          string
	ApplicantID string
	Filename    string
	URL         string
	AssetID     string
}

// Announcement is a line-scoped notice shown to employees.
type Announcement struct {
	ID        string
	LineID    string
	Title     string
	Body      string
	PostedBy  string
	CreatedAt time.Time
}

// FileUpload is one attachment included with a submission.
type FileUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Application is the validated submission command.
type Application struct {
	LineID     string
	PositionID string
	PII        PII
	Skills     []string
	Files      []FileUpload
}

// Validate checks required fields before any encryption or storage work.
func (a Application) Validate() error {
	switch {
	case strings.TrimSpace(a.LineID) == "":
		return dErrors.New(dErrors.CodeValidation, "line id is required")
	case strings.TrimSpace(a.PositionID) == "":
		return dErrors.New(dErrors.CodeValidation, "position id is required")
	case strings.TrimSpace(a.PII.FirstName) == "":
		return dErrors.New(dErrors.CodeValidation, "first name is required")
	case strings.TrimSpace(a.PII.LastName) == "":
		return dErrors.New(dErrors.CodeValidation, "last name is required")
	case strings.TrimSpace(a.PII.Email) == "":
		return dErrors.New(dErrors.CodeValidation, "email is required")
	}
	for _, skill := range a.Skills {
		if strings.TrimSpace(skill) == "" {
			return dErrors.New(dErrors.CodeValidation, "skill tags must not be blank")
		}
	}
	return nil
}

// ApplicantView is the decrypted read model. Fields that failed to decrypt
// carry the DecryptFailed sentinel instead of aborting the whole response.
type ApplicantView struct {
	ID         string
	LineID     string
	PositionID string
	PII        PII
	CreatedAt  time.Time
}

// DecryptFailed substitutes for a field whose ciphertext could not be
// decrypted on a list or read view.
const DecryptFailed = "[decryption failed]"
