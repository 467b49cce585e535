package repository

import (
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/shift-rota-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

var (
	subjectA  = models.MustParseID(models.KindSubject, "sub_00000000-0000-0000-0000-00000000000a")
	subjectB  = models.MustParseID(models.KindSubject, "sub_00000000-0000-0000-0000-00000000000b")
	slotOne   = models.MustParseID(models.KindSlot, "slot_00000000-0000-0000-0000-000000000001")
	slotTwo   = models.MustParseID(models.KindSlot, "slot_00000000-0000-0000-0000-000000000002")
	availOne  = models.MustParseID(models.KindAvailability, "av_00000000-0000-0000-0000-000000000001")
	schedRoot = models.MustParseID(models.KindSchedule, "sch_00000000-0000-0000-0000-000000000001")
	schedNext = models.MustParseID(models.KindSchedule, "sch_00000000-0000-0000-0000-000000000002")
)
