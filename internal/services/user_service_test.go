package services

import (
	"strings"
	"testing"
	"time"

	"github.com/bhojansetu/bhojansetu/internal/apperrors"
	"github.com/bhojansetu/bhojansetu/internal/models"
	"github.com/bhojansetu/bhojansetu/internal/notify"
	"github.com/bhojansetu/bhojansetu/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestUserService_RegisterVerifyLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	env.users.newCode = fixedCode("482913")
	env.notifier.On("Send", mock.Anything, mock.MatchedBy(func(m notify.Mail) bool {
		return m.To[0] == "meera@ngo.org" && strings.Contains(m.TextBody, "482913")
	})).Return(nil)

	user, err := env.users.Register(ctx, RegisterInput{
		Name:              "Meera",
		Email:             " Meera@NGO.org ",
		Password:          "hunter22",
		Role:              "ngo",
		Address:           "4 Lake Road",
		NGORegistrationID: "MH/2020/0042",
	})
	require.NoError(t, err)
	assert.Equal(t, "meera@ngo.org", user.Email)
	assert.Equal(t, models.RoleNGO, user.Role)
	assert.False(t, user.IsVerified)

	result, err := env.users.Login(ctx, "meera@ngo.org", "hunter22")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindAuthentication))
	require.NotNil(t, result)
	assert.True(t, result.NeedsVerification)

	_, err = env.users.VerifyEmail(ctx, "meera@ngo.org", "000000")
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))

	verified, err := env.users.VerifyEmail(ctx, "meera@ngo.org", "482913")
	require.NoError(t, err)
	assert.NotEmpty(t, verified.Token)
	assert.True(t, verified.User.IsVerified)

	_, err = env.users.VerifyEmail(ctx, "meera@ngo.org", "482913")
	require.Error(t, err)
	assert.Equal(t, "Email already verified.", err.(*apperrors.Error).Message)

	_, err = env.users.Login(ctx, "meera@ngo.org", "wrong-pass")
	require.Error(t, err)
	assert.Equal(t, "Invalid Credentials (Wrong Password)", err.(*apperrors.Error).Message)

	loggedIn, err := env.users.Login(ctx, "MEERA@ngo.org", "hunter22")
	require.NoError(t, err)
	assert.NotEmpty(t, loggedIn.Token)
}

func TestUserService_RegisterValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	env.fx.CreateDonor(ctx, "Asha", "asha@example.com")

	cases := map[string]RegisterInput{
		"duplicate":    {Name: "A", Email: "ASHA@example.com", Password: "secret1", Address: "x"},
		"short pass":   {Name: "A", Email: "new@example.com", Password: "123", Address: "x"},
		"admin role":   {Name: "A", Email: "new@example.com", Password: "secret1", Address: "x", Role: "admin"},
		"ngo no regid": {Name: "A", Email: "new@example.com", Password: "secret1", Address: "x", Role: "ngo"},
		"bad email":    {Name: "A", Email: "not-an-email", Password: "secret1", Address: "x"},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := env.users.Register(ctx, in)
			assert.True(t, apperrors.Is(err, apperrors.KindValidation), "got %v", err)
		})
	}
	env.notifier.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestUserService_RegisterMailFailureKeepsUnverifiedUser(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	env.notifier.On("Send", mock.Anything, mock.Anything).Return(errSMTPDown).Once()

	user, err := env.users.Register(ctx, RegisterInput{
		Name: "Kiran", Email: "kiran@example.com", Password: "secret1", Address: "x",
	})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindDependency))
	require.NotNil(t, user)

	stored, err := env.userRepo.FindByEmail(ctx, "kiran@example.com")
	require.NoError(t, err)
	assert.False(t, stored.IsVerified)
	assert.Nil(t, stored.VerificationOTP)
}

func TestUserService_ExpiredCodeRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	env.users.newCode = fixedCode("111111")
	env.notifier.On("Send", mock.Anything, mock.Anything).Return(nil)
	_, err := env.users.Register(ctx, RegisterInput{
		Name: "Kiran", Email: "kiran@example.com", Password: "secret1", Address: "x",
	})
	require.NoError(t, err)

	env.users.now = func() time.Time { return time.Now().UTC().Add(11 * time.Minute) }
	_, err = env.users.VerifyEmail(ctx, "kiran@example.com", "111111")
	require.Error(t, err)
	assert.Equal(t, "Invalid or expired OTP.", err.(*apperrors.Error).Message)
}

func TestUserService_ProfileUpdate(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	donor := env.fx.CreateDonor(ctx, "Asha", "asha@example.com")
	env.fx.CreateDonor(ctx, "Vikram", "vikram@example.com")

	taken := "vikram@example.com"
	_, err := env.users.UpdateProfile(ctx, donor.ID, ProfileInput{Email: &taken})
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))

	name, phone, pass := "Asha K", "9876543210", "newsecret"
	updated, err := env.users.UpdateProfile(ctx, donor.ID, ProfileInput{Name: &name, Phone: &phone, NewPassword: &pass})
	require.NoError(t, err)
	assert.Equal(t, "Asha K", updated.Name)
	assert.Equal(t, "9876543210", updated.Phone)

	_, err = env.users.Login(ctx, "asha@example.com", "newsecret")
	assert.NoError(t, err)
}

func TestUserService_AdminOperations(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	donor := env.fx.CreateDonor(ctx, "Asha", "asha@example.com")
	ngo := env.fx.CreateNGO(ctx, "FeedAll", "a@ngo.org")
	env.fx.CreateAdmin(ctx, "Root", "root@example.com")
	env.fx.CreateDonation(ctx, donor, models.StatusPending, nil)
	env.fx.CreateDonation(ctx, donor, models.StatusDelivered, &ngo)

	users, err := env.users.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 2)

	updated, err := env.users.SetVerification(ctx, ngo.ID, false)
	require.NoError(t, err)
	assert.False(t, updated.IsVerified)

	stats, err := env.users.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalUsers)
	assert.Equal(t, int64(0), stats.TotalNGOs)
	assert.Equal(t, int64(2), stats.TotalDonations)
	assert.Equal(t, int64(1), stats.PendingDonations)
	assert.Equal(t, int64(1), stats.DonationsByStatus[models.StatusDelivered])
}

func TestValidEmail(t *testing.T) {
	assert.True(t, validEmail("asha@example.com"))
	assert.True(t, validEmail("a.b+food@ngo.org.in"))
	assert.False(t, validEmail(""))
	assert.False(t, validEmail("asha"))
	assert.False(t, validEmail("Asha <asha@example.com>"))
	assert.False(t, validEmail("asha@"))
}
