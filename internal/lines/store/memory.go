// Package store persists the organizational-line domain.
package store

import (
	"context"
	"sort"
	"sync"

	"lingkod/internal/lines/models"
	"lingkod/pkg/platform/sentinel"
)

// MemoryStore keeps line records in maps and implements workflow.Snapshotter.
type MemoryStore struct {
	mu             sync.Mutex
	regions        map[string]models.Region
	provinces      map[string]models.Province
	municipalities map[string]models.Municipality
	barangays      map[string]models.Barangay
	lines          map[string]models.Line
	grades         map[string][]models.SalaryGrade
	departments    map[string]models.Department
	positions      map[string]models.Position
	invitations    map[string]models.InvitationLink // keyed by code
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		regions:        make(map[string]models.Region),
		provinces:      make(map[string]models.Province),
		municipalities: make(map[string]models.Municipality),
		barangays:      make(map[string]models.Barangay),
		lines:          make(map[string]models.Line),
		grades:         make(map[string][]models.SalaryGrade),
		departments:    make(map[string]models.Department),
		positions:      make(map[string]models.Position),
		invitations:    make(map[string]models.InvitationLink),
	}
}

func (s *MemoryStore) EnsureRegion(_ context.Context, region models.Region) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.regions[region.Code]; !ok {
		s.regions[region.Code] = region
	}
	return nil
}

func (s *MemoryStore) EnsureProvince(_ context.Context, province models.Province) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.provinces[province.Code]; !ok {
		s.provinces[province.Code] = province
	}
	return nil
}

func (s *MemoryStore) EnsureMunicipality(_ context.Context, municipality models.Municipality) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.municipalities[municipality.Code]; !ok {
		s.municipalities[municipality.Code] = municipality
	}
	return nil
}

func (s *MemoryStore) EnsureBarangay(_ context.Context, barangay models.Barangay) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.barangays[barangay.Code]; !ok {
		s.barangays[barangay.Code] = barangay
	}
	return nil
}

func (s *MemoryStore) InsertLine(_ context.Context, line *models.Line) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.lines[line.ID]; ok {
		return sentinel.ErrConflict
	}
	s.lines[line.ID] = *line
	return nil
}

func (s *MemoryStore) GetLine(_ context.Context, id string) (*models.Line, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	line, ok := s.lines[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &line, nil
}

func (s *MemoryStore) LineExists(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.lines[id]
	return ok, nil
}

func (s *MemoryStore) InsertSalaryGrade(_ context.Context, grade *models.SalaryGrade) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grades[grade.LineID] = append(s.grades[grade.LineID], *grade)
	return nil
}

func (s *MemoryStore) ListSalaryGrades(_ context.Context, lineID string) ([]models.SalaryGrade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	grades := append([]models.SalaryGrade(nil), s.grades[lineID]...)
	sort.Slice(grades, func(i, j int) bool { return grades[i].Grade < grades[j].Grade })
	return grades, nil
}

func (s *MemoryStore) InsertDepartment(_ context.Context, department *models.Department) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.departments[department.ID] = *department
	return nil
}

func (s *MemoryStore) InsertPosition(_ context.Context, position *models.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.positions[position.ID] = *position
	return nil
}

func (s *MemoryStore) PositionExists(_ context.Context, lineID, positionID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	position, ok := s.positions[positionID]
	return ok && position.LineID == lineID, nil
}

// PositionsByLine returns a line's positions. Test helper.
func (s *MemoryStore) PositionsByLine(lineID string) []models.Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	var positions []models.Position
	for _, position := range s.positions {
		if position.LineID == lineID {
			positions = append(positions, position)
		}
	}
	return positions
}

// DepartmentsByLine returns a line's departments. Test helper.
func (s *MemoryStore) DepartmentsByLine(lineID string) []models.Department {
	s.mu.Lock()
	defer s.mu.Unlock()
	var departments []models.Department
	for _, department := range s.departments {
		if department.LineID == lineID {
			departments = append(departments, department)
		}
	}
	return departments
}

func (s *MemoryStore) InsertInvitation(_ context.Context, invitation *models.InvitationLink) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.invitations[invitation.Code]; ok {
		return sentinel.ErrConflict
	}
	s.invitations[invitation.Code] = *invitation
	return nil
}

func (s *MemoryStore) InvitationCodeExists(_ context.Context, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.invitations[code]
	return ok, nil
}

// InvitationsByLine returns a line's invitations. Test helper.
func (s *MemoryStore) InvitationsByLine(lineID string) []models.InvitationLink {
	s.mu.Lock()
	defer s.mu.Unlock()
	var invitations []models.InvitationLink
	for _, invitation := range s.invitations {
		if invitation.LineID == lineID {
			invitations = append(invitations, invitation)
		}
	}
	return invitations
}

type memorySnapshot struct {
	regions        map[string]models.Region
	provinces      map[string]models.Province
	municipalities map[string]models.Municipality
	barangays      map[string]models.Barangay
	lines          map[string]models.Line
	grades         map[string][]models.SalaryGrade
	departments    map[string]models.Department
	positions      map[string]models.Position
	invitations    map[string]models.InvitationLink
}

// Snapshot implements workflow.Snapshotter.
func (s *MemoryStore) Snapshot() any {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := memorySnapshot{
		regions:        copyMap(s.regions),
		provinces:      copyMap(s.provinces),
		municipalities: copyMap(s.municipalities),
		barangays:      copyMap(s.barangays),
		lines:          copyMap(s.lines),
		grades:         make(map[string][]models.SalaryGrade, len(s.grades)),
		departments:    copyMap(s.departments),
		positions:      copyMap(s.positions),
		invitations:    copyMap(s.invitations),
	}
	for k, v := range s.grades {
		snap.grades[k] = append([]models.SalaryGrade(nil), v...)
	}
	return snap
}

// Restore implements workflow.Snapshotter.
func (s *MemoryStore) Restore(snapshot any) {
	snap, ok := snapshot.(memorySnapshot)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.regions = snap.regions
	s.provinces = snap.provinces
	s.municipalities = snap.municipalities
	s.barangays = snap.barangays
	s.lines = snap.lines
	s.grades = snap.grades
	s.departments = snap.departments
	s.positions = snap.positions
	s.invitations = snap.invitations
}

func copyMap[K comparable, V any](src map[K]V) map[K]V {
	dst := make(map[K]V, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
