package storage

import (
	"context"
	"path/filepath"
	"testing"

	"expensetracker/internal/core"
	"expensetracker/internal/log"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type RepositorySuite struct {
	suite.Suite
	repo *SQLiteRepository
	path string
	ctx  context.Context
}

func (s *RepositorySuite) SetupTest() {
	s.ctx = context.Background()
	s.path = filepath.Join(s.T().TempDir(), "nested", "expenses.db")
	repo, err := NewSQLiteRepository(s.path, log.Discard())
	s.Require().NoError(err)
	s.repo = repo
}

func (s *RepositorySuite) TearDownTest() {
	s.Require().NoError(s.repo.Close())
}

func (s *RepositorySuite) insert(id, owner, name string, amount float64) {
	s.Require().NoError(s.repo.Insert(s.ctx, core.Expense{
		ID: id, OwnerID: owner, Name: name, Date: "15/11/2024", Amount: amount,
		Category: "Food", CategoryIcon: "ic_food",
	}))
}

func (s *RepositorySuite) TestInsertAndListPreservesOrder() {
	s.insert("b", "u1", "Groceries", 150)
	s.insert("a", "u1", "Restaurant", 80)
	s.insert("c", "u2", "Other owner", 1)

	recs, err := s.repo.List(s.ctx, "u1")
	s.Require().NoError(err)
	s.Require().Len(recs, 2)
	s.Equal("Groceries", recs[0].Name)
	s.Equal("Restaurant", recs[1].Name)
	s.Equal(core.Expense{
		ID: "b", OwnerID: "u1", Name: "Groceries", Date: "15/11/2024", Amount: 150,
		Category: "Food", CategoryIcon: "ic_food",
	}, recs[0])
}

func (s *RepositorySuite) TestListUnknownOwnerIsEmpty() {
	recs, err := s.repo.List(s.ctx, "nobody")
	s.Require().NoError(err)
	s.NotNil(recs)
	s.Empty(recs)
}

func (s *RepositorySuite) TestMalformedDateSurvives() {
	s.Require().NoError(s.repo.Insert(s.ctx, core.Expense{ID: "x", OwnerID: "u1", Name: "n", Date: "not a date", Category: "Other"}))
	recs, err := s.repo.List(s.ctx, "u1")
	s.Require().NoError(err)
	s.Equal("not a date", recs[0].Date)
}

func (s *RepositorySuite) TestDeleteIsOwnerScoped() {
	s.insert("1", "u1", "Groceries", 150)
	s.insert("1", "u2", "Same id other owner", 3)

	s.ErrorIs(s.repo.Delete(s.ctx, "u3", "1"), core.ErrNotFound)
	s.Require().NoError(s.repo.Delete(s.ctx, "u1", "1"))
	s.ErrorIs(s.repo.Delete(s.ctx, "u1", "1"), core.ErrNotFound)

	recs, err := s.repo.List(s.ctx, "u2")
	s.Require().NoError(err)
	s.Len(recs, 1)
}

func (s *RepositorySuite) TestDuplicateIDRejected() {
	s.insert("1", "u1", "Groceries", 150)
	err := s.repo.Insert(s.ctx, core.Expense{ID: "1", OwnerID: "u1", Name: "again", Date: "1/1/2025", Category: "Food"})
	s.ErrorIs(err, ErrDuplicateID)
}

func (s *RepositorySuite) TestInsertRequiresOwner() {
	s.ErrorIs(s.repo.Insert(s.ctx, core.Expense{ID: "1"}), core.ErrEmptyOwner)
}

func (s *RepositorySuite) TestOwners() {
	s.insert("1", "u2", "a", 1)
	s.insert("2", "u1", "b", 1)
	s.insert("3", "u2", "c", 1)
	owners, err := s.repo.Owners(s.ctx)
	s.Require().NoError(err)
	s.Equal([]string{"u1", "u2"}, owners)
}

func (s *RepositorySuite) TestReopenKeepsData() {
	s.insert("1", "u1", "Groceries", 150)
	s.Require().NoError(s.repo.Close())

	repo, err := NewSQLiteRepository(s.path, log.Discard())
	s.Require().NoError(err)
	s.repo = repo

	recs, err := s.repo.List(s.ctx, "u1")
	s.Require().NoError(err)
	s.Len(recs, 1)
}

func TestRepositorySuite(t *testing.T) {
	suite.Run(t, new(RepositorySuite))
}

func TestRunMigrationsIsRepeatable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.db")
	v, err := RunMigrations(path)
	require.NoError(t, err)
	require.Equal(t, uint(1), v)

	v, err = RunMigrations(path)
	require.NoError(t, err)
	require.Equal(t, uint(1), v)
}
