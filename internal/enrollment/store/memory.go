package store

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"certforge/internal/enrollment/models"
	id "certforge/pkg/domain"
	"certforge/pkg/platform/sentinel"
)

// In-memory stores for tests and demo mode. Each guards its state with one
// mutex so the same check-and-insert semantics hold under concurrent
// requests as with the PostgreSQL constraints.

type InMemoryEmployeeStore struct {
	mu        sync.RWMutex
	employees map[id.EmployeeID]models.Employee
}

func NewInMemoryEmployeeStore() *InMemoryEmployeeStore {
	return &InMemoryEmployeeStore{employees: make(map[id.EmployeeID]models.Employee)}
}

func (s *InMemoryEmployeeStore) Create(_ context.Context, employee *models.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.employees[employee.ID]; ok {
		return sentinel.ErrConflict
	}
	for _, existing := range s.employees {
		if existing.OrgID == employee.OrgID && !employee.UserID.IsZero() && existing.UserID == employee.UserID {
			return sentinel.ErrConflict
		}
	}
	s.employees[employee.ID] = *employee
	return nil
}

func (s *InMemoryEmployeeStore) FindByID(_ context.Context, orgID id.OrgID, employeeID id.EmployeeID) (*models.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	employee, ok := s.employees[employeeID]
	if !ok || employee.OrgID != orgID {
		return nil, sentinel.ErrNotFound
	}
	copied := employee
	return &copied, nil
}

func (s *InMemoryEmployeeStore) FindByUser(_ context.Context, orgID id.OrgID, userID id.UserID) (*models.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, employee := range s.employees {
		if employee.OrgID == orgID && employee.UserID == userID {
			copied := employee
			return &copied, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

type InMemoryProgramStore struct {
	mu       sync.RWMutex
	programs map[id.ProgramID]models.Program
}

func NewInMemoryProgramStore() *InMemoryProgramStore {
	return &InMemoryProgramStore{programs: make(map[id.ProgramID]models.Program)}
}

func (s *InMemoryProgramStore) Create(_ context.Context, program *models.Program) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.programs[program.ID]; ok {
		return sentinel.ErrConflict
	}
	s.programs[program.ID] = *program
	return nil
}

func (s *InMemoryProgramStore) FindByID(_ context.Context, orgID id.OrgID, programID id.ProgramID) (*models.Program, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	program, ok := s.programs[programID]
	if !ok || program.OrgID != orgID {
		return nil, sentinel.ErrNotFound
	}
	copied := program
	copied.TestIDs = append([]id.TestID(nil), program.TestIDs...)
	return &copied, nil
}

type InMemoryEnrollmentStore struct {
	mu          sync.Mutex
	enrollments map[id.EnrollmentID]models.Enrollment
}

func NewInMemoryEnrollmentStore() *InMemoryEnrollmentStore {
	return &InMemoryEnrollmentStore{enrollments: make(map[id.EnrollmentID]models.Enrollment)}
}

func (s *InMemoryEnrollmentStore) CreateIfAbsent(_ context.Context, enrollment *models.Enrollment) (*models.Enrollment, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.enrollments {
		if existing.OrgID == enrollment.OrgID &&
			existing.EmployeeID == enrollment.EmployeeID &&
			existing.ProgramID == enrollment.ProgramID {
			copied := existing
			return &copied, false, nil
		}
	}
	s.enrollments[enrollment.ID] = *enrollment
	copied := *enrollment
	return &copied, true, nil
}

func (s *InMemoryEnrollmentStore) FindByEmployeeAndProgram(_ context.Context, orgID id.OrgID, employeeID id.EmployeeID, programID id.ProgramID) (*models.Enrollment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, enrollment := range s.enrollments {
		if enrollment.OrgID == orgID && enrollment.EmployeeID == employeeID && enrollment.ProgramID == programID {
			copied := enrollment
			return &copied, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryEnrollmentStore) Execute(_ context.Context, orgID id.OrgID, enrollmentID id.EnrollmentID,
	validate func(*models.Enrollment) error, mutate func(*models.Enrollment)) (*models.Enrollment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	enrollment, ok := s.enrollments[enrollmentID]
	if !ok || enrollment.OrgID != orgID {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(&enrollment); err != nil {
		return nil, err
	}
	mutate(&enrollment)
	s.enrollments[enrollmentID] = enrollment
	copied := enrollment
	return &copied, nil
}

type InMemoryReportStore struct {
	mu      sync.Mutex
	reports map[uuid.UUID]models.ReportSubmission
}

func NewInMemoryReportStore() *InMemoryReportStore {
	return &InMemoryReportStore{reports: make(map[uuid.UUID]models.ReportSubmission)}
}

func (s *InMemoryReportStore) Create(_ context.Context, report *models.ReportSubmission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reports[report.ID]; ok {
		return sentinel.ErrConflict
	}
	s.reports[report.ID] = *report
	return nil
}

func (s *InMemoryReportStore) ListByEnrollment(_ context.Context, orgID id.OrgID, enrollmentID id.EnrollmentID) ([]*models.ReportSubmission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []*models.ReportSubmission
	for _, report := range s.reports {
		if report.OrgID == orgID && report.EnrollmentID == enrollmentID {
			copied := report
			result = append(result, &copied)
		}
	}
	return result, nil
}

func (s *InMemoryReportStore) Execute(_ context.Context, orgID id.OrgID, reportID uuid.UUID,
	validate func(*models.ReportSubmission) error, mutate func(*models.ReportSubmission)) (*models.ReportSubmission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	report, ok := s.reports[reportID]
	if !ok || report.OrgID != orgID {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(&report); err != nil {
		return nil, err
	}
	mutate(&report)
	s.reports[reportID] = report
	copied := report
	return &copied, nil
}

type InMemoryAttemptStore struct {
	mu       sync.Mutex
	attempts map[uuid.UUID]models.TestAttempt
}

func NewInMemoryAttemptStore() *InMemoryAttemptStore {
	return &InMemoryAttemptStore{attempts: make(map[uuid.UUID]models.TestAttempt)}
}

func (s *InMemoryAttemptStore) Create(_ context.Context, attempt *models.TestAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.attempts[attempt.ID]; ok {
		return sentinel.ErrConflict
	}
	s.attempts[attempt.ID] = *attempt
	return nil
}

func (s *InMemoryAttemptStore) ListByEmployeeAndTest(_ context.Context, orgID id.OrgID, employeeID id.EmployeeID, testID id.TestID) ([]*models.TestAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []*models.TestAttempt
	for _, attempt := range s.attempts {
		if attempt.OrgID == orgID && attempt.EmployeeID == employeeID && attempt.TestID == testID {
			copied := attempt
			result = append(result, &copied)
		}
	}
	return result, nil
}
