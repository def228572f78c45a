package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"certforge/internal/enrollment/models"
	id "certforge/pkg/domain"
	"certforge/pkg/platform/sentinel"
	"certforge/pkg/platform/tx"
)

// PostgreSQL-backed stores. Writes honor a transaction placed in context by
// pkg/platform/tx so invite acceptance can commit invite + employee +
// enrollment atomically.

const pqUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}

type PostgresEmployeeStore struct {
	db *sql.DB
}

func NewPostgresEmployeeStore(db *sql.DB) *PostgresEmployeeStore {
	return &PostgresEmployeeStore{db: db}
}

func (s *PostgresEmployeeStore) Create(ctx context.Context, employee *models.Employee) error {
	q := tx.Resolve(ctx, s.db)
	_, err := q.ExecContext(ctx, `
		INSERT INTO employees (id, organization_id, user_id, name, email, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, uuid.UUID(employee.ID), uuid.UUID(employee.OrgID), nullUUID(uuid.UUID(employee.UserID)),
		employee.Name, employee.Email, employee.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create employee: %w", err)
	}
	return nil
}

func (s *PostgresEmployeeStore) FindByID(ctx context.Context, orgID id.OrgID, employeeID id.EmployeeID) (*models.Employee, error) {
	q := tx.Resolve(ctx, s.db)
	row := q.QueryRowContext(ctx, `
		SELECT id, organization_id, user_id, name, email, created_at
		FROM employees
		WHERE id = $1 AND organization_id = $2
	`, uuid.UUID(employeeID), uuid.UUID(orgID))
	return scanEmployee(row)
}

func (s *PostgresEmployeeStore) FindByUser(ctx context.Context, orgID id.OrgID, userID id.UserID) (*models.Employee, error) {
	q := tx.Resolve(ctx, s.db)
	row := q.QueryRowContext(ctx, `
		SELECT id, organization_id, user_id, name, email, created_at
		FROM employees
		WHERE organization_id = $1 AND user_id = $2
	`, uuid.UUID(orgID), uuid.UUID(userID))
	return scanEmployee(row)
}

func scanEmployee(row *sql.Row) (*models.Employee, error) {
	var employee models.Employee
	var employeeID, orgID uuid.UUID
	var userID uuid.NullUUID
	err := row.Scan(&employeeID, &orgID, &userID, &employee.Name, &employee.Email, &employee.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan employee: %w", err)
	}
	employee.ID = id.EmployeeID(employeeID)
	employee.OrgID = id.OrgID(orgID)
	if userID.Valid {
		employee.UserID = id.UserID(userID.UUID)
	}
	return &employee, nil
}

type PostgresProgramStore struct {
	db *sql.DB
}

func NewPostgresProgramStore(db *sql.DB) *PostgresProgramStore {
	return &PostgresProgramStore{db: db}
}

func (s *PostgresProgramStore) Create(ctx context.Context, program *models.Program) error {
	q := tx.Resolve(ctx, s.db)
	testIDs := make([]uuid.UUID, len(program.TestIDs))
	for i, testID := range program.TestIDs {
		testIDs[i] = uuid.UUID(testID)
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO programs (id, organization_id, name, test_ids, validity_months, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, uuid.UUID(program.ID), uuid.UUID(program.OrgID), program.Name,
		pq.Array(testIDs), program.ValidityMonths, program.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create program: %w", err)
	}
	return nil
}

func (s *PostgresProgramStore) FindByID(ctx context.Context, orgID id.OrgID, programID id.ProgramID) (*models.Program, error) {
	q := tx.Resolve(ctx, s.db)
	var program models.Program
	var pid, oid uuid.UUID
	var testIDs []uuid.UUID
	err := q.QueryRowContext(ctx, `
		SELECT id, organization_id, name, test_ids, validity_months, created_at
		FROM programs
		WHERE id = $1 AND organization_id = $2
	`, uuid.UUID(programID), uuid.UUID(orgID)).
		Scan(&pid, &oid, &program.Name, pq.Array(&testIDs), &program.ValidityMonths, &program.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find program: %w", err)
	}
	program.ID = id.ProgramID(pid)
	program.OrgID = id.OrgID(oid)
	program.TestIDs = make([]id.TestID, len(testIDs))
	for i, testID := range testIDs {
		program.TestIDs[i] = id.TestID(testID)
	}
	return &program, nil
}

type PostgresEnrollmentStore struct {
	db *sql.DB
}

func NewPostgresEnrollmentStore(db *sql.DB) *PostgresEnrollmentStore {
	return &PostgresEnrollmentStore{db: db}
}

func (s *PostgresEnrollmentStore) CreateIfAbsent(ctx context.Context, enrollment *models.Enrollment) (*models.Enrollment, bool, error) {
	q := tx.Resolve(ctx, s.db)
	_, err := q.ExecContext(ctx, `
		INSERT INTO enrollments (id, organization_id, employee_id, program_id, status, progress, enrolled_at, completion_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, uuid.UUID(enrollment.ID), uuid.UUID(enrollment.OrgID), uuid.UUID(enrollment.EmployeeID),
		uuid.UUID(enrollment.ProgramID), string(enrollment.Status), enrollment.Progress,
		enrollment.EnrolledAt, enrollment.CompletionDate)
	if err == nil {
		copied := *enrollment
		return &copied, true, nil
	}
	if !isUniqueViolation(err) {
		return nil, false, fmt.Errorf("create enrollment: %w", err)
	}
	// The (employee, program) pair already exists; surface the current record.
	existing, findErr := s.FindByEmployeeAndProgram(ctx, enrollment.OrgID, enrollment.EmployeeID, enrollment.ProgramID)
	if findErr != nil {
		return nil, false, findErr
	}
	return existing, false, nil
}

func (s *PostgresEnrollmentStore) FindByEmployeeAndProgram(ctx context.Context, orgID id.OrgID, employeeID id.EmployeeID, programID id.ProgramID) (*models.Enrollment, error) {
	q := tx.Resolve(ctx, s.db)
	row := q.QueryRowContext(ctx, `
		SELECT id, organization_id, employee_id, program_id, status, progress, enrolled_at, completion_date
		FROM enrollments
		WHERE organization_id = $1 AND employee_id = $2 AND program_id = $3
	`, uuid.UUID(orgID), uuid.UUID(employeeID), uuid.UUID(programID))
	return scanEnrollment(row)
}

// Execute locks the row FOR UPDATE, validates, mutates, and writes back in a
// single transaction so status transitions never race.
func (s *PostgresEnrollmentStore) Execute(ctx context.Context, orgID id.OrgID, enrollmentID id.EnrollmentID,
	validate func(*models.Enrollment) error, mutate func(*models.Enrollment)) (*models.Enrollment, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin enrollment update: %w", err)
	}
	defer func() { _ = dbTx.Rollback() }()

	row := dbTx.QueryRowContext(ctx, `
		SELECT id, organization_id, employee_id, program_id, status, progress, enrolled_at, completion_date
		FROM enrollments
		WHERE id = $1 AND organization_id = $2
		FOR UPDATE
	`, uuid.UUID(enrollmentID), uuid.UUID(orgID))
	enrollment, err := scanEnrollment(row)
	if err != nil {
		return nil, err
	}
	if err := validate(enrollment); err != nil {
		return nil, err
	}
	mutate(enrollment)

	_, err = dbTx.ExecContext(ctx, `
		UPDATE enrollments
		SET status = $1, progress = $2, completion_date = $3
		WHERE id = $4
	`, string(enrollment.Status), enrollment.Progress, enrollment.CompletionDate, uuid.UUID(enrollment.ID))
	if err != nil {
		return nil, fmt.Errorf("update enrollment: %w", err)
	}
	if err := dbTx.Commit(); err != nil {
		return nil, fmt.Errorf("commit enrollment update: %w", err)
	}
	return enrollment, nil
}

func scanEnrollment(row *sql.Row) (*models.Enrollment, error) {
	var enrollment models.Enrollment
	var eid, oid, empID, progID uuid.UUID
	var status string
	err := row.Scan(&eid, &oid, &empID, &progID, &status, &enrollment.Progress,
		&enrollment.EnrolledAt, &enrollment.CompletionDate)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan enrollment: %w", err)
	}
	enrollment.ID = id.EnrollmentID(eid)
	enrollment.OrgID = id.OrgID(oid)
	enrollment.EmployeeID = id.EmployeeID(empID)
	enrollment.ProgramID = id.ProgramID(progID)
	enrollment.Status = models.EnrollmentStatus(status)
	return &enrollment, nil
}

type PostgresReportStore struct {
	db *sql.DB
}

func NewPostgresReportStore(db *sql.DB) *PostgresReportStore {
	return &PostgresReportStore{db: db}
}

func (s *PostgresReportStore) Create(ctx context.Context, report *models.ReportSubmission) error {
	q := tx.Resolve(ctx, s.db)
	_, err := q.ExecContext(ctx, `
		INSERT INTO report_submissions (id, organization_id, enrollment_id, type, content, status, submitted_at, reviewed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, report.ID, uuid.UUID(report.OrgID), uuid.UUID(report.EnrollmentID),
		report.Type, report.Content, string(report.Status), report.SubmittedAt, report.ReviewedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create report submission: %w", err)
	}
	return nil
}

func (s *PostgresReportStore) ListByEnrollment(ctx context.Context, orgID id.OrgID, enrollmentID id.EnrollmentID) ([]*models.ReportSubmission, error) {
	q := tx.Resolve(ctx, s.db)
	rows, err := q.QueryContext(ctx, `
		SELECT id, organization_id, enrollment_id, type, content, status, submitted_at, reviewed_at
		FROM report_submissions
		WHERE organization_id = $1 AND enrollment_id = $2
		ORDER BY submitted_at
	`, uuid.UUID(orgID), uuid.UUID(enrollmentID))
	if err != nil {
		return nil, fmt.Errorf("list report submissions: %w", err)
	}
	defer rows.Close()

	var reports []*models.ReportSubmission
	for rows.Next() {
		var report models.ReportSubmission
		var oid, enrID uuid.UUID
		var status string
		if err := rows.Scan(&report.ID, &oid, &enrID, &report.Type, &report.Content,
			&status, &report.SubmittedAt, &report.ReviewedAt); err != nil {
			return nil, fmt.Errorf("scan report submission: %w", err)
		}
		report.OrgID = id.OrgID(oid)
		report.EnrollmentID = id.EnrollmentID(enrID)
		report.Status = models.ReportStatus(status)
		reports = append(reports, &report)
	}
	return reports, rows.Err()
}

func (s *PostgresReportStore) Execute(ctx context.Context, orgID id.OrgID, reportID uuid.UUID,
	validate func(*models.ReportSubmission) error, mutate func(*models.ReportSubmission)) (*models.ReportSubmission, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin report update: %w", err)
	}
	defer func() { _ = dbTx.Rollback() }()

	var report models.ReportSubmission
	var oid, enrID uuid.UUID
	var status string
	err = dbTx.QueryRowContext(ctx, `
		SELECT id, organization_id, enrollment_id, type, content, status, submitted_at, reviewed_at
		FROM report_submissions
		WHERE id = $1 AND organization_id = $2
		FOR UPDATE
	`, reportID, uuid.UUID(orgID)).
		Scan(&report.ID, &oid, &enrID, &report.Type, &report.Content, &status, &report.SubmittedAt, &report.ReviewedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find report submission: %w", err)
	}
	report.OrgID = id.OrgID(oid)
	report.EnrollmentID = id.EnrollmentID(enrID)
	report.Status = models.ReportStatus(status)

	if err := validate(&report); err != nil {
		return nil, err
	}
	mutate(&report)

	_, err = dbTx.ExecContext(ctx, `
		UPDATE report_submissions SET status = $1, reviewed_at = $2 WHERE id = $3
	`, string(report.Status), report.ReviewedAt, report.ID)
	if err != nil {
		return nil, fmt.Errorf("update report submission: %w", err)
	}
	if err := dbTx.Commit(); err != nil {
		return nil, fmt.Errorf("commit report update: %w", err)
	}
	return &report, nil
}

type PostgresAttemptStore struct {
	db *sql.DB
}

func NewPostgresAttemptStore(db *sql.DB) *PostgresAttemptStore {
	return &PostgresAttemptStore{db: db}
}

func (s *PostgresAttemptStore) Create(ctx context.Context, attempt *models.TestAttempt) error {
	answers, err := json.Marshal(attempt.Answers)
	if err != nil {
		return fmt.Errorf("marshal attempt answers: %w", err)
	}
	q := tx.Resolve(ctx, s.db)
	_, err = q.ExecContext(ctx, `
		INSERT INTO test_attempts (id, organization_id, employee_id, test_id, answers, score, passed, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, attempt.ID, uuid.UUID(attempt.OrgID), uuid.UUID(attempt.EmployeeID), uuid.UUID(attempt.TestID),
		answers, attempt.Score, attempt.Passed, attempt.CompletedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create test attempt: %w", err)
	}
	return nil
}

func (s *PostgresAttemptStore) ListByEmployeeAndTest(ctx context.Context, orgID id.OrgID, employeeID id.EmployeeID, testID id.TestID) ([]*models.TestAttempt, error) {
	q := tx.Resolve(ctx, s.db)
	rows, err := q.QueryContext(ctx, `
		SELECT id, organization_id, employee_id, test_id, answers, score, passed, completed_at
		FROM test_attempts
		WHERE organization_id = $1 AND employee_id = $2 AND test_id = $3
		ORDER BY completed_at
	`, uuid.UUID(orgID), uuid.UUID(employeeID), uuid.UUID(testID))
	if err != nil {
		return nil, fmt.Errorf("list test attempts: %w", err)
	}
	defer rows.Close()

	var attempts []*models.TestAttempt
	for rows.Next() {
		var attempt models.TestAttempt
		var oid, empID, tid uuid.UUID
		var answers []byte
		if err := rows.Scan(&attempt.ID, &oid, &empID, &tid, &answers,
			&attempt.Score, &attempt.Passed, &attempt.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan test attempt: %w", err)
		}
		attempt.OrgID = id.OrgID(oid)
		attempt.EmployeeID = id.EmployeeID(empID)
		attempt.TestID = id.TestID(tid)
		if len(answers) > 0 {
			if err := json.Unmarshal(answers, &attempt.Answers); err != nil {
				return nil, fmt.Errorf("unmarshal attempt answers: %w", err)
			}
		}
		attempts = append(attempts, &attempt)
	}
	return attempts, rows.Err()
}

func nullUUID(u uuid.UUID) uuid.NullUUID {
	if u == uuid.Nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: u, Valid: true}
}
