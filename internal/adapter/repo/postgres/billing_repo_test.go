package postgres_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rosklyar/prompts-volume/internal/adapter/repo/postgres"
	"github.com/rosklyar/prompts-volume/internal/adapter/repo/postgres/mocks"
	"github.com/rosklyar/prompts-volume/internal/domain"
)

const user = domain.UserID("9f1d2c3b-0000-0000-0000-000000000001")

func grantRows(t *testing.T, grants [][2]float64) *mocks.MockRows {
	rows := mocks.NewMockRows(t)
	n := 0
	rows.On("Next").Return(func() bool { n++; return n <= len(grants) }).Times(len(grants) + 1)
	for _, g := range grants {
		id, remaining := int64(g[0]), g[1]
		rows.On("Scan", mock.Anything).Run(func(args mock.Arguments) {
			dest := args.Get(0).([]any)
			*(dest[0].(*int64)) = id
			*(dest[1].(*float64)) = remaining
		}).Return(nil).Once()
	}
	rows.On("Close").Return().Once()
	rows.On("Err").Return(nil).Once()
	return rows
}

func amountArg(id int64, amount float64) any {
	return mock.MatchedBy(func(args []any) bool {
		return args[0] == id && math.Abs(args[1].(float64)-amount) < 1e-9
	})
}

func TestAvailableBalance_SumsNonExpiredGrants(t *testing.T) {
	t.Parallel()
	pool := postgres.NewMockPgxPool(t)
	repo := postgres.NewBillingRepo(pool, pool)

	row := mocks.NewMockRow(t)
	row.On("Scan", mock.Anything).Run(func(args mock.Arguments) {
		dest := args.Get(0).([]any)
		*(dest[0].(*float64)) = 12.5
	}).Return(nil).Once()
	pool.On("QueryRow", mock.Anything, sqlContains("SUM(remaining_amount)"), mock.Anything).
		Return(row).Once()

	bal, err := repo.AvailableBalance(context.Background(), user)
	require.NoError(t, err)
	assert.InDelta(t, 12.5, bal, 1e-9)
}

func TestDebitAndConsume_SharedPoolUsesOneTransaction(t *testing.T) {
	t.Parallel()
	pool := postgres.NewMockPgxPool(t)
	repo := postgres.NewBillingRepo(pool, pool)

	mockTx := mocks.NewMockTx(t)
	// A second BeginTx would trip the Once expectation: debit, audit and
	// consumption all ride the same transaction on a shared pool.
	pool.On("BeginTx", mock.Anything, pgx.TxOptions{}).Return(mockTx, nil).Once()

	// Grant 1 expires first and must drain before grant 2 is touched.
	mockTx.On("Query", mock.Anything, sqlContains("FROM credit_grants"), mock.Anything).
		Return(grantRows(t, [][2]float64{{1, 0.01}, {2, 0.05}}), nil).Once()
	mockTx.On("Exec", mock.Anything, sqlContains("UPDATE credit_grants"), amountArg(1, 0.01)).
		Return(pgconn.NewCommandTag("UPDATE 1"), nil).Once()
	mockTx.On("Exec", mock.Anything, sqlContains("UPDATE credit_grants"), amountArg(2, 0.01)).
		Return(pgconn.NewCommandTag("UPDATE 1"), nil).Once()
	mockTx.On("Exec", mock.Anything, sqlContains("INSERT INTO balance_transactions"), mock.Anything).
		Return(pgconn.NewCommandTag("INSERT 0 1"), nil).Once()
	mockTx.On("Exec", mock.Anything, sqlContains("INSERT INTO consumed_evaluations"), mock.MatchedBy(func(args []any) bool {
		return args[1] == domain.EvaluationID(100)
	})).Return(pgconn.NewCommandTag("INSERT 0 1"), nil).Once()
	mockTx.On("Exec", mock.Anything, sqlContains("INSERT INTO consumed_evaluations"), mock.MatchedBy(func(args []any) bool {
		return args[1] == domain.EvaluationID(101)
	})).Return(pgconn.NewCommandTag("INSERT 0 1"), nil).Once()
	mockTx.On("Commit", mock.Anything).Return(nil).Once()
	mockTx.On("Rollback", mock.Anything).Return(pgx.ErrTxClosed).Once() // Rollback in defer after commit

	after, err := repo.DebitAndConsume(context.Background(), user, []domain.EvaluationID{100, 101}, 0.01, "evaluation charge")
	require.NoError(t, err)
	assert.InDelta(t, 0.04, after, 1e-9)
}

func TestDebitAndConsume_InsufficientGrantsWritesNothing(t *testing.T) {
	t.Parallel()
	pool := postgres.NewMockPgxPool(t)
	repo := postgres.NewBillingRepo(pool, pool)

	mockTx := mocks.NewMockTx(t)
	pool.On("BeginTx", mock.Anything, pgx.TxOptions{}).Return(mockTx, nil).Once()
	mockTx.On("Query", mock.Anything, sqlContains("FROM credit_grants"), mock.Anything).
		Return(grantRows(t, [][2]float64{{1, 0.005}}), nil).Once()
	mockTx.On("Rollback", mock.Anything).Return(nil).Once()

	_, err := repo.DebitAndConsume(context.Background(), user, []domain.EvaluationID{100}, 0.01, "evaluation charge")
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
}

func TestDebitAndConsume_DuplicateConsumptionRollsBack(t *testing.T) {
	t.Parallel()
	pool := postgres.NewMockPgxPool(t)
	repo := postgres.NewBillingRepo(pool, pool)

	mockTx := mocks.NewMockTx(t)
	pool.On("BeginTx", mock.Anything, pgx.TxOptions{}).Return(mockTx, nil).Once()
	mockTx.On("Query", mock.Anything, sqlContains("FROM credit_grants"), mock.Anything).
		Return(grantRows(t, [][2]float64{{1, 1.0}}), nil).Once()
	mockTx.On("Exec", mock.Anything, sqlContains("UPDATE credit_grants"), mock.Anything).
		Return(pgconn.NewCommandTag("UPDATE 1"), nil).Once()
	mockTx.On("Exec", mock.Anything, sqlContains("INSERT INTO balance_transactions"), mock.Anything).
		Return(pgconn.NewCommandTag("INSERT 0 1"), nil).Once()
	mockTx.On("Exec", mock.Anything, sqlContains("INSERT INTO consumed_evaluations"), mock.Anything).
		Return(pgconn.CommandTag{}, &pgconn.PgError{Code: "23505"}).Once()
	mockTx.On("Rollback", mock.Anything).Return(nil).Once()

	_, err := repo.DebitAndConsume(context.Background(), user, []domain.EvaluationID{100}, 0.01, "evaluation charge")
	assert.ErrorIs(t, err, domain.ErrDuplicateConsumption)
}

func TestDebitAndConsume_SplitStoresCompensateFailedDebit(t *testing.T) {
	t.Parallel()
	users := postgres.NewMockPgxPool(t)
	evals := postgres.NewMockPgxPool(t)
	repo := postgres.NewBillingRepo(users, evals)

	utx := mocks.NewMockTx(t)
	users.On("BeginTx", mock.Anything, pgx.TxOptions{}).Return(utx, nil).Once()
	utx.On("Query", mock.Anything, sqlContains("FROM credit_grants"), mock.Anything).
		Return(grantRows(t, [][2]float64{{1, 1.0}}), nil).Once()
	utx.On("Exec", mock.Anything, sqlContains("UPDATE credit_grants"), mock.Anything).
		Return(pgconn.NewCommandTag("UPDATE 1"), nil).Once()
	utx.On("Exec", mock.Anything, sqlContains("INSERT INTO balance_transactions"), mock.Anything).
		Return(pgconn.NewCommandTag("INSERT 0 1"), nil).Once()

	etx := mocks.NewMockTx(t)
	evals.On("BeginTx", mock.Anything, pgx.TxOptions{}).Return(etx, nil).Once()
	etx.On("Exec", mock.Anything, sqlContains("INSERT INTO consumed_evaluations"), mock.Anything).
		Return(pgconn.NewCommandTag("INSERT 0 1"), nil).Once()
	etx.On("Commit", mock.Anything).Return(nil).Once()
	etx.On("Rollback", mock.Anything).Return(pgx.ErrTxClosed).Once()

	// The consumption side already committed; a failed debit commit must delete
	// those rows again or the evaluations would have been consumed for free.
	utx.On("Commit", mock.Anything).Return(errors.New("server closed the connection")).Once()
	utx.On("Rollback", mock.Anything).Return(pgx.ErrTxClosed).Once()
	evals.On("Exec", mock.Anything, sqlContains("DELETE FROM consumed_evaluations"), mock.MatchedBy(func(args []any) bool {
		ids, ok := args[1].([]int64)
		return args[0] == user && ok && len(ids) == 1 && ids[0] == 100
	})).Return(pgconn.NewCommandTag("DELETE 1"), nil).Once()

	_, err := repo.DebitAndConsume(context.Background(), user, []domain.EvaluationID{100}, 0.01, "evaluation charge")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "op=billing.charge")
}
