package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/semka95/natours/backend/domain"
	"github.com/semka95/natours/backend/tests"
	"github.com/semka95/natours/backend/user/mock"
	"github.com/semka95/natours/backend/web/auth"
)

var tracer = sdktrace.NewTracerProvider().Tracer("")

var fixedNow = time.Date(2021, 4, 25, 9, 0, 0, 0, time.UTC)

func newTestUsecase(t *testing.T) (*userUsecase, *mock.MockUserRepository, *mock.MockMailer) {
	controller := gomock.NewController(t)
	repo := mock.NewMockUserRepository(controller)
	mailer := mock.NewMockMailer(controller)

	uc := NewUserUsecase(repo, mailer, time.Second, zap.NewNop(), tracer).(*userUsecase)
	uc.now = func() time.Time { return fixedNow }

	return uc, repo, mailer
}

func requireAppError(t *testing.T, err error, code int, msg string) {
	t.Helper()
	var appErr *domain.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, code, appErr.Code)
	assert.Equal(t, msg, appErr.Message)
}

func TestUserUsecase_Signup(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		uc, repo, mailer := newTestUsecase(t)
		repo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, u *domain.User) error {
				assert.Equal(t, auth.RoleUser, u.Role)
				assert.True(t, u.Active)
				assert.Equal(t, domain.DefaultPhoto, u.Photo)
				assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(tests.Password)))
				return nil
			})
		mailer.EXPECT().SendWelcome(gomock.Any(), gomock.Any(), "http://localhost:3000/me").Return(nil)

		u, err := uc.Signup(context.Background(), tests.NewSignupUser(), "http://localhost:3000/me")
		require.NoError(t, err)
		assert.Empty(t, u.Password)
		assert.Equal(t, fixedNow, u.CreatedAt)
	})

	t.Run("welcome email failure is not fatal", func(t *testing.T) {
		uc, repo, mailer := newTestUsecase(t)
		repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
		mailer.EXPECT().SendWelcome(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("smtp down"))

		u, err := uc.Signup(context.Background(), tests.NewSignupUser(), "http://localhost:3000/me")
		require.NoError(t, err)
		assert.NotNil(t, u)
	})

	t.Run("email is normalized", func(t *testing.T) {
		uc, repo, mailer := newTestUsecase(t)
		repo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, u *domain.User) error {
				assert.Equal(t, "leo@example.com", u.Email)
				return nil
			})
		mailer.EXPECT().SendWelcome(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

		su := tests.NewSignupUser()
		su.Email = "  Leo@Example.COM "
		u, err := uc.Signup(context.Background(), su, "")
		require.NoError(t, err)
		assert.Equal(t, "leo@example.com", u.Email)
	})

	t.Run("duplicate email", func(t *testing.T) {
		uc, repo, _ := newTestUsecase(t)
		repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(domain.DuplicateField(`"leo@example.com"`))

		u, err := uc.Signup(context.Background(), tests.NewSignupUser(), "")
		assert.Nil(t, u)
		assert.ErrorIs(t, err, domain.ErrConflict)
	})
}

func TestUserUsecase_Login(t *testing.T) {
	tUser := tests.NewUserWithPassword()

	cases := []struct {
		description string
		email       string
		password    string
		mockCalls   func(repo *mock.MockUserRepository)
		check       func(t *testing.T, u *domain.User, err error)
	}{
		{
			description: "success",
			email:       tUser.Email,
			password:    tests.Password,
			mockCalls: func(repo *mock.MockUserRepository) {
				repo.EXPECT().GetByEmailWithPassword(gomock.Any(), tUser.Email).Return(tests.NewUserWithPassword(), nil)
			},
			check: func(t *testing.T, u *domain.User, err error) {
				require.NoError(t, err)
				assert.Equal(t, tUser.ID, u.ID)
				assert.Empty(t, u.Password)
			},
		},
		{
			description: "email case and spaces ignored",
			email:       " LEO@example.com",
			password:    tests.Password,
			mockCalls: func(repo *mock.MockUserRepository) {
				repo.EXPECT().GetByEmailWithPassword(gomock.Any(), "leo@example.com").Return(tests.NewUserWithPassword(), nil)
			},
			check: func(t *testing.T, u *domain.User, err error) {
				require.NoError(t, err)
				assert.Equal(t, tUser.ID, u.ID)
			},
		},
		{
			description: "blank email",
			email:       "   ",
			password:    tests.Password,
			mockCalls:   func(repo *mock.MockUserRepository) {},
			check: func(t *testing.T, u *domain.User, err error) {
				assert.Nil(t, u)
				requireAppError(t, err, http.StatusBadRequest, MsgMissingCredentials)
			},
		},
		{
			description: "missing password",
			email:       tUser.Email,
			mockCalls:   func(repo *mock.MockUserRepository) {},
			check: func(t *testing.T, u *domain.User, err error) {
				assert.Nil(t, u)
				requireAppError(t, err, http.StatusBadRequest, MsgMissingCredentials)
			},
		},
		{
			description: "unknown email",
			email:       "nobody@example.com",
			password:    tests.Password,
			mockCalls: func(repo *mock.MockUserRepository) {
				repo.EXPECT().GetByEmailWithPassword(gomock.Any(), "nobody@example.com").Return(nil, domain.ErrNotFound)
			},
			check: func(t *testing.T, u *domain.User, err error) {
				assert.Nil(t, u)
				requireAppError(t, err, http.StatusUnauthorized, MsgIncorrectLogin)
			},
		},
		{
			description: "wrong password",
			email:       tUser.Email,
			password:    "wrong-password",
			mockCalls: func(repo *mock.MockUserRepository) {
				repo.EXPECT().GetByEmailWithPassword(gomock.Any(), tUser.Email).Return(tests.NewUserWithPassword(), nil)
			},
			check: func(t *testing.T, u *domain.User, err error) {
				assert.Nil(t, u)
				requireAppError(t, err, http.StatusUnauthorized, MsgIncorrectLogin)
			},
		},
		{
			description: "storage error",
			email:       tUser.Email,
			password:    tests.Password,
			mockCalls: func(repo *mock.MockUserRepository) {
				repo.EXPECT().GetByEmailWithPassword(gomock.Any(), tUser.Email).Return(nil, domain.ErrInternalServerError)
			},
			check: func(t *testing.T, u *domain.User, err error) {
				assert.Nil(t, u)
				assert.ErrorIs(t, err, domain.ErrInternalServerError)
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.description, func(t *testing.T) {
			uc, repo, _ := newTestUsecase(t)
			tc.mockCalls(repo)

			u, err := uc.Login(context.Background(), tc.email, tc.password)
			tc.check(t, u, err)
		})
	}
}

func TestUserUsecase_CurrentUser(t *testing.T) {
	issued := fixedNow.Add(-time.Hour)
	claims := auth.NewClaims(tests.UserID.Hex(), auth.RoleUser, issued, time.Hour*2)

	t.Run("success", func(t *testing.T) {
		uc, repo, _ := newTestUsecase(t)
		repo.EXPECT().GetByID(gomock.Any(), tests.UserID).Return(tests.NewUser(), nil)

		u, err := uc.CurrentUser(context.Background(), claims)
		require.NoError(t, err)
		assert.Equal(t, tests.UserID, u.ID)
	})

	t.Run("user gone", func(t *testing.T) {
		uc, repo, _ := newTestUsecase(t)
		repo.EXPECT().GetByID(gomock.Any(), tests.UserID).Return(nil, domain.ErrNotFound)

		_, err := uc.CurrentUser(context.Background(), claims)
		requireAppError(t, err, http.StatusUnauthorized, MsgUserGone)
	})

	t.Run("bad subject", func(t *testing.T) {
		uc, _, _ := newTestUsecase(t)

		_, err := uc.CurrentUser(context.Background(), auth.NewClaims("nope", auth.RoleUser, issued, time.Hour))
		requireAppError(t, err, http.StatusUnauthorized, MsgUserGone)
	})

	t.Run("password changed after token", func(t *testing.T) {
		uc, repo, _ := newTestUsecase(t)
		u := tests.NewUser()
		u.PasswordChangedAt = tests.DatePointer(issued.Add(time.Minute))
		repo.EXPECT().GetByID(gomock.Any(), tests.UserID).Return(u, nil)

		_, err := uc.CurrentUser(context.Background(), claims)
		requireAppError(t, err, http.StatusUnauthorized, MsgPasswordChanged)
	})
}

func TestUserUsecase_ForgotPassword(t *testing.T) {
	const resetURL = "http://localhost:3000/api/v1/users/reset-password/"

	t.Run("success", func(t *testing.T) {
		uc, repo, mailer := newTestUsecase(t)
		repo.EXPECT().GetByEmail(gomock.Any(), "leo@example.com").Return(tests.NewUser(), nil)

		var stored *domain.User
		repo.EXPECT().Update(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, u *domain.User) error {
				stored = u
				return nil
			})

		var sentURL string
		mailer.EXPECT().SendPasswordReset(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, _ *domain.User, url string) error {
				sentURL = url
				return nil
			})

		err := uc.ForgotPassword(context.Background(), "leo@example.com", resetURL)
		require.NoError(t, err)

		require.True(t, strings.HasPrefix(sentURL, resetURL))
		token := strings.TrimPrefix(sentURL, resetURL)
		assert.Len(t, token, 64)
		assert.Equal(t, hashToken(token), stored.PasswordResetToken)
		assert.NotEqual(t, token, stored.PasswordResetToken)
		assert.Equal(t, fixedNow.Add(ResetTokenTTL), *stored.PasswordResetExpires)
	})

	t.Run("unknown email", func(t *testing.T) {
		uc, repo, _ := newTestUsecase(t)
		repo.EXPECT().GetByEmail(gomock.Any(), "nobody@example.com").Return(nil, domain.ErrNotFound)

		err := uc.ForgotPassword(context.Background(), "nobody@example.com", resetURL)
		requireAppError(t, err, http.StatusNotFound, MsgNoUserWithEmail)
	})

	t.Run("send failure clears token", func(t *testing.T) {
		uc, repo, mailer := newTestUsecase(t)
		repo.EXPECT().GetByEmail(gomock.Any(), "leo@example.com").Return(tests.NewUser(), nil)
		gomock.InOrder(
			repo.EXPECT().Update(gomock.Any(), gomock.Any()).DoAndReturn(
				func(_ context.Context, u *domain.User) error {
					assert.NotEmpty(t, u.PasswordResetToken)
					return nil
				}),
			repo.EXPECT().Update(gomock.Any(), gomock.Any()).DoAndReturn(
				func(_ context.Context, u *domain.User) error {
					assert.Empty(t, u.PasswordResetToken)
					assert.Nil(t, u.PasswordResetExpires)
					return nil
				}),
		)
		mailer.EXPECT().SendPasswordReset(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("smtp down"))

		err := uc.ForgotPassword(context.Background(), "leo@example.com", resetURL)
		requireAppError(t, err, http.StatusInternalServerError, MsgEmailFailed)
	})
}

func TestUserUsecase_ForgotPasswordEmailCase(t *testing.T) {
	uc, repo, mailer := newTestUsecase(t)
	repo.EXPECT().GetByEmail(gomock.Any(), "leo@example.com").Return(tests.NewUser(), nil)
	repo.EXPECT().Update(gomock.Any(), gomock.Any()).Return(nil)
	mailer.EXPECT().SendPasswordReset(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

	require.NoError(t, uc.ForgotPassword(context.Background(), "Leo@Example.com ", "http://localhost:3000/reset/"))
}

func TestUserUsecase_ResetPassword(t *testing.T) {
	const token = "3f2b0c52c4e1f8f5c1a6a1a0b7e56f2cbdc0fd1b5d1f4d8c0f4e5b1f3b2a1c0d"
	r := domain.ResetPassword{Password: "new-password", PasswordConfirm: "new-password"}

	t.Run("success", func(t *testing.T) {
		uc, repo, _ := newTestUsecase(t)
		u := tests.NewUser()
		u.PasswordResetToken = hashToken(token)
		u.PasswordResetExpires = tests.DatePointer(fixedNow.Add(5 * time.Minute))
		repo.EXPECT().GetByResetToken(gomock.Any(), hashToken(token), fixedNow).Return(u, nil)
		repo.EXPECT().Update(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, u *domain.User) error {
				assert.Empty(t, u.PasswordResetToken)
				assert.Nil(t, u.PasswordResetExpires)
				assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.Password), []byte("new-password")))
				assert.Equal(t, fixedNow.Add(-time.Second), *u.PasswordChangedAt)
				return nil
			})

		result, err := uc.ResetPassword(context.Background(), token, r)
		require.NoError(t, err)
		assert.Empty(t, result.Password)
	})

	t.Run("invalid or expired token", func(t *testing.T) {
		uc, repo, _ := newTestUsecase(t)
		repo.EXPECT().GetByResetToken(gomock.Any(), hashToken(token), fixedNow).Return(nil, domain.ErrNotFound)

		result, err := uc.ResetPassword(context.Background(), token, r)
		assert.Nil(t, result)
		requireAppError(t, err, http.StatusBadRequest, MsgTokenInvalid)
	})
}

func TestUserUsecase_UpdatePassword(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		uc, repo, _ := newTestUsecase(t)
		repo.EXPECT().GetByIDWithPassword(gomock.Any(), tests.UserID).Return(tests.NewUserWithPassword(), nil)
		repo.EXPECT().Update(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, u *domain.User) error {
				assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.Password), []byte("new-password")))
				assert.NotNil(t, u.PasswordChangedAt)
				return nil
			})

		u, err := uc.UpdatePassword(context.Background(), tests.UserID, domain.UpdatePassword{
			PasswordCurrent: tests.Password,
			Password:        "new-password",
			PasswordConfirm: "new-password",
		})
		require.NoError(t, err)
		assert.Empty(t, u.Password)
	})

	t.Run("wrong current password", func(t *testing.T) {
		uc, repo, _ := newTestUsecase(t)
		repo.EXPECT().GetByIDWithPassword(gomock.Any(), tests.UserID).Return(tests.NewUserWithPassword(), nil)

		_, err := uc.UpdatePassword(context.Background(), tests.UserID, domain.UpdatePassword{
			PasswordCurrent: "not-my-password",
			Password:        "new-password",
			PasswordConfirm: "new-password",
		})
		requireAppError(t, err, http.StatusUnauthorized, MsgWrongPassword)
	})
}

func TestUserUsecase_UpdateMe(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		uc, repo, _ := newTestUsecase(t)
		repo.EXPECT().GetByID(gomock.Any(), tests.UserID).Return(tests.NewUser(), nil)
		repo.EXPECT().Update(gomock.Any(), gomock.Any()).Return(nil)

		u, err := uc.UpdateMe(context.Background(), tests.UserID, domain.UpdateMe{
			Name:  tests.StringPointer("Leo J. Gillespie"),
			Photo: tests.StringPointer("user-5c8a1d5b0190b214360dc057-1700000000.jpeg"),
		})
		require.NoError(t, err)
		assert.Equal(t, "Leo J. Gillespie", u.Name)
		assert.Equal(t, "user-5c8a1d5b0190b214360dc057-1700000000.jpeg", u.Photo)
		assert.Equal(t, auth.RoleUser, u.Role)
	})

	t.Run("email is normalized", func(t *testing.T) {
		uc, repo, _ := newTestUsecase(t)
		repo.EXPECT().GetByID(gomock.Any(), tests.UserID).Return(tests.NewUser(), nil)
		repo.EXPECT().Update(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, u *domain.User) error {
				assert.Equal(t, "leo.new@example.com", u.Email)
				return nil
			})

		u, err := uc.UpdateMe(context.Background(), tests.UserID, domain.UpdateMe{
			Email: tests.StringPointer(" Leo.New@Example.com"),
		})
		require.NoError(t, err)
		assert.Equal(t, "leo.new@example.com", u.Email)
	})

	t.Run("password rejected", func(t *testing.T) {
		uc, _, _ := newTestUsecase(t)

		_, err := uc.UpdateMe(context.Background(), tests.UserID, domain.UpdateMe{
			Password: tests.StringPointer("new-password"),
		})
		requireAppError(t, err, http.StatusBadRequest, MsgNotForPassword)
	})
}

func TestUserUsecase_DeleteMe(t *testing.T) {
	uc, repo, _ := newTestUsecase(t)
	repo.EXPECT().GetByID(gomock.Any(), tests.UserID).Return(tests.NewUser(), nil)
	repo.EXPECT().Update(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, u *domain.User) error {
			assert.False(t, u.Active)
			return nil
		})

	require.NoError(t, uc.DeleteMe(context.Background(), tests.UserID))
}

func TestUserUsecase_Admin(t *testing.T) {
	t.Run("Update role", func(t *testing.T) {
		uc, repo, _ := newTestUsecase(t)
		repo.EXPECT().GetByID(gomock.Any(), tests.UserID).Return(tests.NewUser(), nil)
		repo.EXPECT().Update(gomock.Any(), gomock.Any()).Return(nil)

		u, err := uc.Update(context.Background(), tests.UserID.Hex(), domain.UpdateUser{Role: tests.StringPointer(auth.RoleGuide)})
		require.NoError(t, err)
		assert.Equal(t, auth.RoleGuide, u.Role)
	})

	t.Run("Update email is normalized", func(t *testing.T) {
		uc, repo, _ := newTestUsecase(t)
		repo.EXPECT().GetByID(gomock.Any(), tests.UserID).Return(tests.NewUser(), nil)
		repo.EXPECT().Update(gomock.Any(), gomock.Any()).Return(nil)

		u, err := uc.Update(context.Background(), tests.UserID.Hex(), domain.UpdateUser{Email: tests.StringPointer("LEO@EXAMPLE.COM")})
		require.NoError(t, err)
		assert.Equal(t, "leo@example.com", u.Email)
	})

	t.Run("GetByID invalid id", func(t *testing.T) {
		uc, _, _ := newTestUsecase(t)

		_, err := uc.GetByID(context.Background(), "123")
		requireAppError(t, err, http.StatusBadRequest, "Invalid _id: 123")
	})

	t.Run("Delete", func(t *testing.T) {
		uc, repo, _ := newTestUsecase(t)
		repo.EXPECT().Delete(gomock.Any(), tests.UserID).Return(nil)

		require.NoError(t, uc.Delete(context.Background(), tests.UserID.Hex()))
	})
}
