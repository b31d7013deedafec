package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/deliverability/internal/domain"
	"github.com/ignite/deliverability/internal/repository/postgres"
	"github.com/ignite/deliverability/internal/service/dispatch"
	"github.com/ignite/deliverability/internal/service/warmup"
)

func TestCampaignIncrementSentIsInPlace(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`UPDATE deliv_campaigns SET sent_count = sent_count \+ 1`).
		WithArgs("camp-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := postgres.NewCampaignRepo(db)
	require.NoError(t, repo.IncrementSent(context.Background(), "camp-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCampaignIncrementOpensUnique(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`opens = opens \+ 1, unique_opens = unique_opens \+ 1`).
		WithArgs("camp-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := postgres.NewCampaignRepo(db)
	require.NoError(t, repo.IncrementOpens(context.Background(), "camp-1", true))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCampaignMarkSendingGuardsStatus(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	// Zero rows affected means the campaign was already past draft/scheduled.
	mock.ExpectExec(`UPDATE deliv_campaigns`).
		WithArgs("camp-1", string(domain.CampaignSending), 50, "batch-1",
			string(domain.CampaignDraft), string(domain.CampaignScheduled)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := postgres.NewCampaignRepo(db)
	err = repo.MarkSending(context.Background(), "camp-1", 50, "batch-1")
	require.ErrorIs(t, err, dispatch.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCampaignGetNotFound(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT .+ FROM deliv_campaigns WHERE id`).
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	repo := postgres.NewCampaignRepo(db)
	_, err = repo.Get(context.Background(), "nope")
	require.ErrorIs(t, err, dispatch.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecipientIncrementSoftBounceReturnsNewCount(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	at := time.Now()
	mock.ExpectQuery(`UPDATE deliv_recipients.+RETURNING soft_bounce_count`).
		WithArgs("rec-1", at).
		WillReturnRows(sqlmock.NewRows([]string{"soft_bounce_count"}).AddRow(3))

	repo := postgres.NewRecipientRepo(db)
	count, err := repo.IncrementSoftBounce(context.Background(), "rec-1", at)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecipientMarkBouncedSkipsTerminal(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	at := time.Now()
	mock.ExpectExec(`UPDATE deliv_recipients.+status NOT IN`).
		WithArgs("rec-1", string(domain.RecipientBounced), string(domain.BounceHard), at,
			string(domain.RecipientBounced), string(domain.RecipientComplained), string(domain.RecipientUnsubscribed)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := postgres.NewRecipientRepo(db)
	require.NoError(t, repo.MarkBounced(context.Background(), "rec-1", domain.BounceHard, at))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEventLatestSentOrphan(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT .+ FROM deliv_delivery_events`).
		WithArgs("msg-unknown", domain.EventSent).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	repo := postgres.NewEventRepo(db)
	ev, err := repo.LatestSent(context.Background(), "msg-unknown")
	require.NoError(t, err)
	assert.Nil(t, ev, "unknown correlation ids resolve to nil, not an error")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEventAppendAssignsID(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO deliv_delivery_events`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := postgres.NewEventRepo(db)
	ev := &domain.DeliveryEvent{CorrelationID: "msg-1", EventType: domain.EventSent}
	require.NoError(t, repo.Append(context.Background(), ev))
	assert.NotEmpty(t, ev.ID)
	assert.False(t, ev.EventAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBrandWindowCounts(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	since := time.Now().Add(-24 * time.Hour)
	mock.ExpectQuery(`FROM deliv_delivery_events`).
		WithArgs("brand-1", since, domain.EventSent, domain.EventBounce, domain.EventComplaint).
		WillReturnRows(sqlmock.NewRows([]string{"sends", "bounces", "complaints"}).AddRow(1000, 12, 1))

	repo := postgres.NewEventRepo(db)
	counts, err := repo.BrandWindowCounts(context.Background(), "brand-1", since)
	require.NoError(t, err)
	assert.Equal(t, domain.EventCounts{Sends: 1000, Bounces: 12, Complaints: 1}, counts)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDedicatedIPGetByBrandNotFound(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT .+ FROM deliv_dedicated_ips`).
		WithArgs("brand-1").
		WillReturnRows(sqlmock.NewRows([]string{"brand_id"}))

	repo := postgres.NewDedicatedIPRepo(db)
	_, err = repo.GetByBrand(context.Background(), "brand-1")
	require.ErrorIs(t, err, warmup.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDedicatedIPPoolCounts(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`FROM deliv_ip_pool`).
		WillReturnRows(sqlmock.NewRows([]string{"available", "assigned"}).AddRow(2, 14))

	repo := postgres.NewDedicatedIPRepo(db)
	available, assigned, err := repo.PoolCounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, available)
	assert.Equal(t, 14, assigned)
	require.NoError(t, mock.ExpectationsWereMet())
}
