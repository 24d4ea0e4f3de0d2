package store

import (
	"context"
	"sort"
	"sync"

	"lingkod/internal/hr/models"
	"lingkod/pkg/platform/sentinel"
)

// MemoryStore keeps HR records in maps. It implements workflow.Snapshotter so
// the in-memory unit of work can roll mutations back in tests and dev mode.
type MemoryStore struct {
	mu            sync.Mutex
	applicants    map[string]models.Applicant
	skills        map[string][]string
	files         map[string][]models.ApplicantFile
	announcements map[string]models.Announcement
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		applicants:    make(map[string]models.Applicant),
		skills:        make(map[string][]string),
		files:         make(map[string][]models.ApplicantFile),
		announcements: make(map[string]models.Announcement),
	}
}

func (s *MemoryStore) InsertApplicant(_ context.Context, applicant *models.Applicant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.applicants[applicant.ID]; ok {
		return sentinel.ErrConflict
	}
	s.applicants[applicant.ID] = *applicant
	return nil
}

func (s *MemoryStore) InsertSkills(_ context.Context, applicantID string, skills []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.skills[applicantID] = append(s.skills[applicantID], skills...)
	return nil
}

func (s *MemoryStore) InsertFile(_ context.Context, file *models.ApplicantFile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[file.ApplicantID] = append(s.files[file.ApplicantID], *file)
	return nil
}

func (s *MemoryStore) GetApplicant(_ context.Context, id string) (*models.Applicant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	applicant, ok := s.applicants[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &applicant, nil
}

func (s *MemoryStore) ListApplicantsAfter(_ context.Context, lineID, cursor string, limit int) ([]*models.Applicant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.applicants))
	for id, a := range s.applicants {
		if a.LineID == lineID && id > cursor {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if len(ids) > limit {
		ids = ids[:limit]
	}

	applicants := make([]*models.Applicant, 0, len(ids))
	for _, id := range ids {
		a := s.applicants[id]
		applicants = append(applicants, &a)
	}
	return applicants, nil
}

func (s *MemoryStore) ListSkills(_ context.Context, applicantID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	skills := append([]string(nil), s.skills[applicantID]...)
	sort.Strings(skills)
	return skills, nil
}

// ListFiles returns stored file metadata. Test helper.
func (s *MemoryStore) ListFiles(applicantID string) []models.ApplicantFile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.ApplicantFile(nil), s.files[applicantID]...)
}

func (s *MemoryStore) InsertAnnouncement(_ context.Context, announcement *models.Announcement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.announcements[announcement.ID]; ok {
		return sentinel.ErrConflict
	}
	s.announcements[announcement.ID] = *announcement
	return nil
}

func (s *MemoryStore) ListAnnouncementsAfter(_ context.Context, lineID, cursor string, limit int) ([]*models.Announcement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.announcements))
	for id, a := range s.announcements {
		if a.LineID == lineID && id > cursor {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if len(ids) > limit {
		ids = ids[:limit]
	}

	announcements := make([]*models.Announcement, 0, len(ids))
	for _, id := range ids {
		a := s.announcements[id]
		announcements = append(announcements, &a)
	}
	return announcements, nil
}

type memorySnapshot struct {
	applicants    map[string]models.Applicant
	skills        map[string][]string
	files         map[string][]models.ApplicantFile
	announcements map[string]models.Announcement
}

// Snapshot implements workflow.Snapshotter.
func (s *MemoryStore) Snapshot() any {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := memorySnapshot{
		applicants:    make(map[string]models.Applicant, len(s.applicants)),
		skills:        make(map[string][]string, len(s.skills)),
		files:         make(map[string][]models.ApplicantFile, len(s.files)),
		announcements: make(map[string]models.Announcement, len(s.announcements)),
	}
	for k, v := range s.applicants {
		snap.applicants[k] = v
	}
	for k, v := range s.skills {
		snap.skills[k] = append([]string(nil), v...)
	}
	for k, v := range s.files {
		snap.files[k] = append([]models.ApplicantFile(nil), v...)
	}
	for k, v := range s.announcements {
		snap.announcements[k] = v
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
	s.applicants = snap.applicants
	s.skills = snap.skills
	s.files = snap.files
	s.announcements = snap.announcements
}
