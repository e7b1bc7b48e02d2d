package services

import (
	"testing"
	"time"

	"github.com/bhojansetu/bhojansetu/internal/models"
	"github.com/bhojansetu/bhojansetu/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestExpirySweeper_ExpiresOverdueDonations(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	donor := env.fx.CreateDonor(ctx, "Asha", "asha@example.com")
	stale := env.fx.CreateDonation(ctx, donor, models.StatusPending, nil)
	require.NoError(t, env.db.Model(&models.Donation{}).Where("id = ?", stale.ID).
		Update("expiry_date", time.Now().UTC().Add(-time.Hour)).Error)

	sweeper := NewExpirySweeper(env.donations, zap.NewNop(), 20*time.Millisecond)
	sweeper.Start()
	defer sweeper.Stop()

	assert.Eventually(t, func() bool {
		got, err := env.donationRepo.FindByID(ctx, stale.ID)
		return err == nil && got.Status == models.StatusExpired
	}, 2*time.Second, 20*time.Millisecond)
}
