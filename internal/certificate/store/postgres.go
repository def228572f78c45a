package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"certforge/internal/certificate/models"
	id "certforge/pkg/domain"
	"certforge/pkg/platform/sentinel"
	"certforge/pkg/platform/tx"
)

const (
	pqUniqueViolation = "23505"

	// Constraint names from scripts/schema.sql. The active-pair index is the
	// one violation that must not be retried, so it is told apart by name.
	constraintActivePair = "certificates_one_active_per_pair"
)

// PostgresStore persists certificates; the schema carries the issuance
// invariants (partial unique index on the active pair, unique identifiers).
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, cert *models.Certificate) error {
	q := tx.Resolve(ctx, s.db)
	_, err := q.ExecContext(ctx, `
		INSERT INTO certificates (
			id, organization_id, employee_id, program_id,
			certificate_number, verification_code, status,
			issued_date, expiry_date, revoked_at,
			employee_name, program_name, organization_name
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, uuid.UUID(cert.ID), uuid.UUID(cert.OrgID), uuid.UUID(cert.EmployeeID), uuid.UUID(cert.ProgramID),
		cert.CertificateNumber, cert.VerificationCode, string(cert.Status),
		cert.IssuedDate, cert.ExpiryDate, cert.RevokedAt,
		cert.EmployeeName, cert.ProgramName, cert.OrganizationName)
	if err != nil {
		return mapUniqueViolation(err, fmt.Errorf("create certificate: %w", err))
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, orgID id.OrgID, certID id.CertificateID) (*models.Certificate, error) {
	q := tx.Resolve(ctx, s.db)
	row := q.QueryRowContext(ctx, selectCertificate+`
		WHERE id = $1 AND organization_id = $2
	`, uuid.UUID(certID), uuid.UUID(orgID))
	return scanCertificate(row)
}

func (s *PostgresStore) FindByVerificationCode(ctx context.Context, code string) (*models.Certificate, error) {
	q := tx.Resolve(ctx, s.db)
	row := q.QueryRowContext(ctx, selectCertificate+`
		WHERE verification_code = $1
	`, code)
	return scanCertificate(row)
}

func (s *PostgresStore) ListByOrg(ctx context.Context, orgID id.OrgID) ([]*models.Certificate, error) {
	q := tx.Resolve(ctx, s.db)
	rows, err := q.QueryContext(ctx, selectCertificate+`
		WHERE organization_id = $1
		ORDER BY issued_date DESC
	`, uuid.UUID(orgID))
	if err != nil {
		return nil, fmt.Errorf("list certificates: %w", err)
	}
	defer rows.Close()

	var certs []*models.Certificate
	for rows.Next() {
		cert, err := scanCertificate(rows)
		if err != nil {
			return nil, err
		}
		certs = append(certs, cert)
	}
	return certs, rows.Err()
}

// Execute locks the row FOR UPDATE, validates, mutates, and writes back in
// one transaction. A reactivating write trips the active-pair index if
// another active certificate exists, which maps to sentinel.ErrConflict.
func (s *PostgresStore) Execute(ctx context.Context, orgID id.OrgID, certID id.CertificateID,
	validate func(*models.Certificate) error, mutate func(*models.Certificate)) (*models.Certificate, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin certificate update: %w", err)
	}
	defer func() { _ = dbTx.Rollback() }()

	row := dbTx.QueryRowContext(ctx, selectCertificate+`
		WHERE id = $1 AND organization_id = $2
		FOR UPDATE
	`, uuid.UUID(certID), uuid.UUID(orgID))
	cert, err := scanCertificate(row)
	if err != nil {
		return nil, err
	}
	if err := validate(cert); err != nil {
		return nil, err
	}
	mutate(cert)

	_, err = dbTx.ExecContext(ctx, `
		UPDATE certificates
		SET status = $1, revoked_at = $2
		WHERE id = $3
	`, string(cert.Status), cert.RevokedAt, uuid.UUID(cert.ID))
	if err != nil {
		return nil, mapUniqueViolation(err, fmt.Errorf("update certificate: %w", err))
	}
	if err := dbTx.Commit(); err != nil {
		return nil, mapUniqueViolation(err, fmt.Errorf("commit certificate update: %w", err))
	}
	return cert, nil
}

const selectCertificate = `
	SELECT id, organization_id, employee_id, program_id,
	       certificate_number, verification_code, status,
	       issued_date, expiry_date, revoked_at,
	       employee_name, program_name, organization_name
	FROM certificates
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCertificate(row rowScanner) (*models.Certificate, error) {
	var cert models.Certificate
	var certID, orgID, employeeID, programID uuid.UUID
	var status string
	err := row.Scan(&certID, &orgID, &employeeID, &programID,
		&cert.CertificateNumber, &cert.VerificationCode, &status,
		&cert.IssuedDate, &cert.ExpiryDate, &cert.RevokedAt,
		&cert.EmployeeName, &cert.ProgramName, &cert.OrganizationName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan certificate: %w", err)
	}
	cert.ID = id.CertificateID(certID)
	cert.OrgID = id.OrgID(orgID)
	cert.EmployeeID = id.EmployeeID(employeeID)
	cert.ProgramID = id.ProgramID(programID)
	cert.Status = models.CertificateStatus(status)
	return &cert, nil
}

func mapUniqueViolation(err error, fallback error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != pqUniqueViolation {
		return fallback
	}
	if pqErr.Constraint == constraintActivePair {
		return sentinel.ErrConflict
	}
	// certificate_number or verification_code collision; retryable.
	return sentinel.ErrAlreadyUsed
}
