// Package models holds the organizational-line domain: lines (municipal
// organization units), their geographic anchors, salary-grade tables,
// departments, positions, and admin invitation links.
package models

import (
	"strings"
	"time"

	dErrors "lingkod/pkg/domain-errors"
)

// SalaryGradeCount is the fixed size of a line's salary-grade table,
// following the national standardized salary schedule.
const SalaryGradeCount = 33

// Region through Barangay mirror the PSGC hierarchy. Records are created
// lazily the first time a line anchors to them.
type Region struct {
	Code string
	Name string
}

type Province struct {
	Code       string
	Name       string
	RegionCode string
}

type Municipality struct {
	Code         string
	Name         string
	ProvinceCode string
}

type Barangay struct {
	Code             string
	Name             string
	MunicipalityCode string
}

// Line is one municipal organization unit.
type Line struct {
	ID               string
	Name             string
	RegionCode       string
	ProvinceCode     string
	MunicipalityCode string
	BarangayCode     string
	CreatedAt        time.Time
}

// SalaryGrade is one row of a line's 33-grade salary table. Amount is the
// monthly base salary in centavos.
type SalaryGrade struct {
	ID     string
	LineID string
	Grade  int
	Amount int64
}

type Department struct {
	ID     string
	LineID string
	Name   string
}

// Position tracks plantilla slots. Occupied never exceeds Slots.
type Position struct {
	ID           string
	LineID       string
	DepartmentID string
	Title        string
	Grade        int
	Slots        int
	Occupied     int
}

// InvitationLink lets the invited administrator register against the new
// line. Code is unique across all invitations; URL embeds the line id.
type InvitationLink struct {
	ID        string
	LineID    string
	Code      string
	URL       string
	Email     string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// NewLine is the validated line-creation command.
type NewLine struct {
	Name             string
	RegionCode       string
	ProvinceCode     string
	MunicipalityCode string
	BarangayCode     string
	AdminEmail       string
}

func (n NewLine) Validate() error {
	switch {
	case strings.TrimSpace(n.Name) == "":
		return dErrors.New(dErrors.CodeValidation, "line name is required")
	case strings.TrimSpace(n.RegionCode) == "":
		return dErrors.New(dErrors.CodeValidation, "region code is required")
	case strings.TrimSpace(n.ProvinceCode) == "":
		return dErrors.New(dErrors.CodeValidation, "province code is required")
	case strings.TrimSpace(n.MunicipalityCode) == "":
		return dErrors.New(dErrors.CodeValidation, "municipality code is required")
	case strings.TrimSpace(n.BarangayCode) == "":
		return dErrors.New(dErrors.CodeValidation, "barangay code is required")
	case !strings.Contains(n.AdminEmail, "@"):
		return dErrors.New(dErrors.CodeValidation, "admin email is invalid")
	}
	return nil
}
