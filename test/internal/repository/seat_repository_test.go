package repository

import (
	"context"
	"testing"

	"go-railway-reservation/internal/model"
	"go-railway-reservation/internal/repository"
	apperrors "go-railway-reservation/pkg/app_errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeatClaim(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		defer setupTestWithTruncate(t)()
		createTestTrainWithSeats(t, 301, "SLEEPER", 1)
		repo := repository.NewSeatRepository(testDB)
		ctx := context.Background()

		tx, cleanup := beginTestTx(t)
		defer cleanup()

		seats, err := repo.ListFreeByTrainClass(ctx, tx, 301, "SLEEPER")
		require.NoError(t, err)
		require.Len(t, seats, 1)
		require.Equal(t, 0, seats[0].ClaimVersion)

		err = repo.Claim(ctx, tx, seats[0].Ref(), seats[0].ClaimVersion)
		require.NoError(t, err)
		require.NoError(t, tx.Commit(ctx))

		var available bool
		var version int
		err = testDB.QueryRow(ctx, `
			SELECT available, claim_version FROM seats WHERE train_no = 301
		`).Scan(&available, &version)
		require.NoError(t, err)
		assert.False(t, available)
		assert.Equal(t, 1, version)
	})

	t.Run("StaleVersionConflicts", func(t *testing.T) {
		defer setupTestWithTruncate(t)()
		createTestTrainWithSeats(t, 302, "SLEEPER", 1)
		repo := repository.NewSeatRepository(testDB)
		ctx := context.Background()

		ref := model.SeatRef{TrainNo: 302, CoachNo: 1, CoachClass: "SLEEPER", SeatNo: 1}

		tx1, cleanup1 := beginTestTx(t)
		defer cleanup1()
		require.NoError(t, repo.Claim(ctx, tx1, ref, 0))
		require.NoError(t, tx1.Commit(ctx))

		// 拿著舊版本號的佔位必須失敗，即使座位的旗標已不重要
		tx2, cleanup2 := beginTestTx(t)
		defer cleanup2()
		err := repo.Claim(ctx, tx2, ref, 0)
		assert.ErrorIs(t, err, apperrors.ErrConcurrentConflict)
	})

	t.Run("ReleaseBumpsVersion", func(t *testing.T) {
		defer setupTestWithTruncate(t)()
		createTestTrainWithSeats(t, 303, "SLEEPER", 1)
		repo := repository.NewSeatRepository(testDB)
		ctx := context.Background()

		ref := model.SeatRef{TrainNo: 303, CoachNo: 1, CoachClass: "SLEEPER", SeatNo: 1}

		tx, cleanup := beginTestTx(t)
		defer cleanup()
		require.NoError(t, repo.Claim(ctx, tx, ref, 0))
		require.NoError(t, repo.Release(ctx, tx, ref))
		require.NoError(t, tx.Commit(ctx))

		var available bool
		var version int
		err := testDB.QueryRow(ctx, `
			SELECT available, claim_version FROM seats WHERE train_no = 303
		`).Scan(&available, &version)
		require.NoError(t, err)
		assert.True(t, available)
		assert.Equal(t, 2, version)

		// 釋出後用新版本號可以再佔
		tx2, cleanup2 := beginTestTx(t)
		defer cleanup2()
		assert.NoError(t, repo.Claim(ctx, tx2, ref, 2))
	})
}

func TestSeatListByTrainClassCarriesAssignments(t *testing.T) {
	defer setupTestWithTruncate(t)()
	createTestTrainWithSeats(t, 304, "SLEEPER", 2)
	createTestTicketRow(t, "PNRTEST304", "alice", 304)
	ctx := context.Background()

	_, err := testDB.Exec(ctx, `
		INSERT INTO ticket_seats (pnr_no, train_no, coach_no, coach_class, seat_no)
		VALUES ('PNRTEST304', 304, 1, 'SLEEPER', 1)
	`)
	require.NoError(t, err)

	repo := repository.NewSeatRepository(testDB)
	tx, cleanup := beginTestTx(t)
	defer cleanup()

	seats, err := repo.ListByTrainClass(ctx, tx, 304, "SLEEPER")
	require.NoError(t, err)
	require.Len(t, seats, 2)

	// 排序固定 (車廂, 座號)，第一個座位帶出佔用行程
	require.Len(t, seats[0].Assignments, 1)
	assert.Equal(t, "PNRTEST304", seats[0].Assignments[0].PNRNo)
	assert.Equal(t, "Alpha", seats[0].Assignments[0].FromStation)
	assert.Equal(t, "Charlie", seats[0].Assignments[0].ToStation)
	assert.Empty(t, seats[1].Assignments)
}
