package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/prperemyshlev/postoptima-api/internal/domain"
	"github.com/prperemyshlev/postoptima-api/pkg/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type RepositorySuite struct {
	suite.Suite
	db       *sql.DB
	mock     sqlmock.Sqlmock
	analyses AnalysisRepository
	profiles ProfileRepository
	owner    domain.User
}

func TestRepositorySuite(t *testing.T) {
	suite.Run(t, new(RepositorySuite))
}

func (s *RepositorySuite) SetupTest() {
	db, mock, err := sqlmock.New()
	s.Require().NoError(err)

	s.db = db
	s.mock = mock
	repos := NewRepositories(database.NewPostgresFromDB(db, "authenticated"))
	s.analyses = repos.Analysis
	s.profiles = repos.Profile
	s.owner = domain.User{ID: "7c9e6679-7425-40de-944b-e07fc1f90ae7", Email: "owner@example.com"}
}

func (s *RepositorySuite) TearDownTest() {
	s.NoError(s.mock.ExpectationsWereMet())
	s.db.Close()
}

func (s *RepositorySuite) expectScope() {
	s.mock.ExpectBegin()
	s.mock.ExpectExec(regexp.QuoteMeta("SELECT set_config('request.jwt.claims'")).
		WithArgs(sqlmock.AnyArg(), s.owner.ID).
		WillReturnResult(sqlmock.NewResult(0, 0))
	s.mock.ExpectExec(regexp.QuoteMeta(`SET LOCAL ROLE "authenticated"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
}

func (s *RepositorySuite) TestCreateAnalysis() {
	s.expectScope()
	s.mock.ExpectExec("INSERT INTO analyses").
		WithArgs(sqlmock.AnyArg(), s.owner.ID, "twitter", "hello world", "Hello, world! 👋",
			sqlmock.AnyArg(), 72, 65, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectCommit()

	analysis := &domain.Analysis{
		Platform:             domain.PlatformTwitter,
		OriginalContent:      "hello world",
		OptimizedContent:     "Hello, world! 👋",
		Suggestions:          []string{"Add emoji"},
		AlgorithmScore:       72,
		EngagementPrediction: 65,
	}

	err := s.analyses.Create(context.Background(), s.owner, analysis)
	s.Require().NoError(err)
	s.NotEmpty(analysis.ID)
	s.Equal(s.owner.ID, analysis.UserID)
	s.False(analysis.CreatedAt.IsZero())
}

func (s *RepositorySuite) TestCreateAnalysisConstraintViolation() {
	s.expectScope()
	s.mock.ExpectExec("INSERT INTO analyses").
		WillReturnError(&pq.Error{Code: "23514", Message: "violates check constraint"})
	s.mock.ExpectRollback()

	err := s.analyses.Create(context.Background(), s.owner, &domain.Analysis{Platform: domain.PlatformTwitter})
	s.ErrorIs(err, ErrConstraint)
}

func (s *RepositorySuite) TestCreateAnalysisRowLevelSecurityDenied() {
	s.expectScope()
	s.mock.ExpectExec("INSERT INTO analyses").
		WillReturnError(&pq.Error{Code: "42501", Message: "new row violates row-level security policy"})
	s.mock.ExpectRollback()

	err := s.analyses.Create(context.Background(), s.owner, &domain.Analysis{Platform: domain.PlatformTwitter})
	s.ErrorIs(err, ErrForbidden)
}

func (s *RepositorySuite) TestListByUser() {
	newer := time.Date(2025, 7, 2, 10, 0, 0, 0, time.UTC)
	older := time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)

	s.expectScope()
	rows := sqlmock.NewRows([]string{"id", "user_id", "platform", "original_content", "optimized_content",
		"suggestions", "algorithm_score", "engagement_prediction", "created_at"}).
		AddRow("a2", s.owner.ID, "linkedin", "second", "Second!", []byte(`{"Use a hook","Tag people"}`), 80, 70, newer).
		AddRow("a1", s.owner.ID, "twitter", "first", "First!", []byte(`{}`), 50, 40, older)
	s.mock.ExpectQuery("SELECT (.+) FROM analyses").
		WithArgs(s.owner.ID, defaultHistoryLimit).
		WillReturnRows(rows)
	s.mock.ExpectCommit()

	analyses, err := s.analyses.ListByUser(context.Background(), s.owner, 0)
	s.Require().NoError(err)
	s.Require().Len(analyses, 2)
	s.Equal("a2", analyses[0].ID)
	s.Equal(domain.PlatformLinkedIn, analyses[0].Platform)
	s.Equal([]string{"Use a hook", "Tag people"}, analyses[0].Suggestions)
	s.Equal(newer, analyses[0].CreatedAt)
	s.Empty(analyses[1].Suggestions)
}

func (s *RepositorySuite) TestGetProfile() {
	now := time.Now().UTC()
	s.expectScope()
	s.mock.ExpectQuery("SELECT (.+) FROM profiles").
		WithArgs(s.owner.ID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "plan", "is_subscribed", "stripe_customer", "created_at", "updated_at"}).
			AddRow(s.owner.ID, "pro", true, "cus_123", now, now))
	s.mock.ExpectCommit()

	profile, err := s.profiles.GetByID(context.Background(), s.owner)
	s.Require().NoError(err)
	s.Equal(domain.PlanPro, profile.Plan)
	s.True(profile.IsSubscribed)
	s.Require().NotNil(profile.StripeCustomer)
	s.Equal("cus_123", *profile.StripeCustomer)
	s.True(profile.IsPro())
}

func (s *RepositorySuite) TestGetProfileNotFound() {
	s.expectScope()
	s.mock.ExpectQuery("SELECT (.+) FROM profiles").
		WithArgs(s.owner.ID).
		WillReturnError(sql.ErrNoRows)
	s.mock.ExpectRollback()

	_, err := s.profiles.GetByID(context.Background(), s.owner)
	s.ErrorIs(err, ErrNotFound)
}

func (s *RepositorySuite) TestSetStripeCustomerUsesServiceHandle() {
	s.mock.ExpectExec("INSERT INTO profiles").
		WithArgs(s.owner.ID, "cus_123").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.profiles.SetStripeCustomer(context.Background(), s.owner.ID, "cus_123")
	s.NoError(err)
}

func (s *RepositorySuite) TestUpdatePlanByStripeCustomer() {
	s.mock.ExpectExec("UPDATE profiles").
		WithArgs("cus_123", "pro", true).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.profiles.UpdatePlanByStripeCustomer(context.Background(), "cus_123", domain.PlanPro, true)
	s.NoError(err)
}

func (s *RepositorySuite) TestUpdatePlanByStripeCustomerNotFound() {
	s.mock.ExpectExec("UPDATE profiles").
		WithArgs("cus_missing", "free", false).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.profiles.UpdatePlanByStripeCustomer(context.Background(), "cus_missing", domain.PlanFree, false)
	s.ErrorIs(err, ErrNotFound)
}

func TestMapPQError(t *testing.T) {
	plain := errors.New("connection reset")
	assert.ErrorIs(t, mapPQError(plain, "op"), plain)
	assert.ErrorIs(t, mapPQError(&pq.Error{Code: "23505"}, "op"), ErrDuplicate)
	assert.ErrorIs(t, mapPQError(&pq.Error{Code: "23502"}, "op"), ErrConstraint)
	assert.ErrorIs(t, mapPQError(&pq.Error{Code: "22P02"}, "op"), ErrConstraint)

	var pqErr *pq.Error
	require.False(t, errors.As(mapPQError(&pq.Error{Code: "23514"}, "op"), &pqErr))
}
