package store

import (
	"context"
	"sort"
	"sync"

	"certforge/internal/certificate/models"
	id "certforge/pkg/domain"
	"certforge/pkg/platform/sentinel"
)

// InMemoryStore mirrors the PostgreSQL constraints under one mutex: the
// active-pair check, both identifier uniqueness checks, and the reactivation
// re-check all happen while the lock is held, so concurrent issuance behaves
// the same as against the database.
type InMemoryStore struct {
	mu    sync.Mutex
	certs map[id.CertificateID]models.Certificate
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{certs: make(map[id.CertificateID]models.Certificate)}
}

func (s *InMemoryStore) Create(_ context.Context, cert *models.Certificate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.certs {
		if existing.CertificateNumber == cert.CertificateNumber ||
			existing.VerificationCode == cert.VerificationCode {
			return sentinel.ErrAlreadyUsed
		}
	}
	if s.activePairExistsLocked(cert.OrgID, cert.EmployeeID, cert.ProgramID, cert.ID) {
		return sentinel.ErrConflict
	}

	s.certs[cert.ID] = *cert
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, orgID id.OrgID, certID id.CertificateID) (*models.Certificate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cert, ok := s.certs[certID]
	if !ok || cert.OrgID != orgID {
		return nil, sentinel.ErrNotFound
	}
	copied := cert
	return &copied, nil
}

func (s *InMemoryStore) FindByVerificationCode(_ context.Context, code string) (*models.Certificate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cert := range s.certs {
		if cert.VerificationCode == code {
			copied := cert
			return &copied, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) ListByOrg(_ context.Context, orgID id.OrgID) ([]*models.Certificate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Certificate
	for _, cert := range s.certs {
		if cert.OrgID == orgID {
			copied := cert
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IssuedDate.After(out[j].IssuedDate) })
	return out, nil
}

func (s *InMemoryStore) Execute(_ context.Context, orgID id.OrgID, certID id.CertificateID,
	validate func(*models.Certificate) error, mutate func(*models.Certificate)) (*models.Certificate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cert, ok := s.certs[certID]
	if !ok || cert.OrgID != orgID {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(&cert); err != nil {
		return nil, err
	}

	wasActive := cert.Status == models.CertificateStatusActive
	mutate(&cert)
	if !wasActive && cert.Status == models.CertificateStatusActive {
		if s.activePairExistsLocked(cert.OrgID, cert.EmployeeID, cert.ProgramID, cert.ID) {
			return nil, sentinel.ErrConflict
		}
	}

	s.certs[certID] = cert
	copied := cert
	return &copied, nil
}

func (s *InMemoryStore) activePairExistsLocked(orgID id.OrgID, employeeID id.EmployeeID, programID id.ProgramID, exclude id.CertificateID) bool {
	for _, existing := range s.certs {
		if existing.ID != exclude &&
			existing.OrgID == orgID &&
			existing.EmployeeID == employeeID &&
			existing.ProgramID == programID &&
			existing.Status == models.CertificateStatusActive {
			return true
		}
	}
	return false
}
