package usecase

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/semka95/natours/backend/domain"
	"github.com/semka95/natours/backend/query"
	"github.com/semka95/natours/backend/web/auth"
)

// ResetTokenTTL is how long a password reset token is accepted
const ResetTokenTTL = 10 * time.Minute

const bcryptCost = 12

// Client facing messages
const (
	MsgMissingCredentials = "Please provide email and password"
	MsgIncorrectLogin     = "Incorrect email or password"
	MsgUserGone           = "The user belonging to this token does no longer exist."
	MsgPasswordChanged    = "User recently changed password! Please log in again."
	MsgNoUserWithEmail    = "There is no user with this email address"
	MsgEmailFailed        = "There was an error sending the email. Try again later!"
	MsgTokenInvalid       = "Token is invalid or has expired"
	MsgWrongPassword      = "Your current password is wrong"
	MsgNotForPassword     = "This route is not for password updates. Please use /update-password."
)

type userUsecase struct {
	userRepo       domain.UserRepository
	mailer         domain.Mailer
	contextTimeout time.Duration
	logger         *zap.Logger
	tracer         trace.Tracer
	now            func() time.Time
}

// NewUserUsecase will create new an userUsecase object representation of domain.UserUsecase interface
func NewUserUsecase(u domain.UserRepository, mailer domain.Mailer, timeout time.Duration, logger *zap.Logger, tracer trace.Tracer) domain.UserUsecase {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &userUsecase{
		userRepo:       u,
		mailer:         mailer,
		contextTimeout: timeout,
		logger:         logger,
		tracer:         tracer,
		now:            time.Now,
	}
}

func (uc *userUsecase) Fetch(c context.Context, q *query.Request) ([]*domain.User, error) {
	ctx, cancel := context.WithTimeout(c, uc.contextTimeout)
	defer cancel()

	ctx, span := uc.tracer.Start(
		ctx,
		"usecase Fetch",
		trace.WithSpanKind(trace.SpanKindServer),
	)
	defer span.End()

	users, err := uc.userRepo.Fetch(ctx, q)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	return users, nil
}

func (uc *userUsecase) GetByID(c context.Context, id string) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(c, uc.contextTimeout)
	defer cancel()

	ctx, span := uc.tracer.Start(
		ctx,
		"usecase GetByID",
		trace.WithAttributes(
			attribute.String("userid", id)),
		trace.WithSpanKind(trace.SpanKindServer),
	)
	defer span.End()

	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		span.RecordError(err)
		return nil, domain.InvalidID(id)
	}

	return uc.userRepo.GetByID(ctx, objID)
}

func (uc *userUsecase) Update(c context.Context, id string, m domain.UpdateUser) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(c, uc.contextTimeout)
	defer cancel()

	ctx, span := uc.tracer.Start(
		ctx,
		"usecase Update",
		trace.WithAttributes(
			attribute.String("userid", id)),
		trace.WithSpanKind(trace.SpanKindServer),
	)
	defer span.End()

	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		span.RecordError(err)
		return nil, domain.InvalidID(id)
	}

	u, err := uc.userRepo.GetByID(ctx, objID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if m.Name != nil {
		u.Name = *m.Name
	}
	if m.Email != nil {
		u.Email = domain.NormalizeEmail(*m.Email)
	}
	if m.Photo != nil {
		u.Photo = *m.Photo
	}
	if m.Role != nil {
		u.Role = *m.Role
	}

	if err = uc.userRepo.Update(ctx, u); err != nil {
		span.RecordError(err)
		return nil, err
	}

	return u, nil
}

func (uc *userUsecase) Delete(c context.Context, id string) error {
	ctx, cancel := context.WithTimeout(c, uc.contextTimeout)
	defer cancel()

	ctx, span := uc.tracer.Start(
		ctx,
		"usecase Delete",
		trace.WithAttributes(
			attribute.String("userid", id)),
		trace.WithSpanKind(trace.SpanKindServer),
	)
	defer span.End()

	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		span.RecordError(err)
		return domain.InvalidID(id)
	}

	return uc.userRepo.Delete(ctx, objID)
}

// Signup always creates user with the user role, welcome email failure
// doesn't fail the signup
func (uc *userUsecase) Signup(c context.Context, m domain.SignupUser, welcomeURL string) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(c, uc.contextTimeout)
	defer cancel()

	ctx, span := uc.tracer.Start(
		ctx,
		"usecase Signup",
		trace.WithSpanKind(trace.SpanKindServer),
	)
	defer span.End()

	hashedPwd, err := generateHash(m.Password)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("can't generate hash from password: %w: %s", domain.ErrInternalServerError, err.Error())
	}

	u := &domain.User{
		ID:        primitive.NewObjectID(),
		Name:      m.Name,
		Email:     domain.NormalizeEmail(m.Email),
		Photo:     domain.DefaultPhoto,
		Role:      auth.RoleUser,
		Password:  hashedPwd,
		Active:    true,
		CreatedAt: uc.now().Truncate(time.Millisecond).UTC(),
	}
	span.SetAttributes(attribute.String("userid", u.ID.Hex()))

	if err = uc.userRepo.Create(ctx, u); err != nil {
		span.RecordError(err)
		return nil, err
	}
	u.Password = ""

	if err = uc.mailer.SendWelcome(ctx, u, welcomeURL); err != nil {
		span.RecordError(err)
		uc.logger.Warn("can't send welcome email", zap.String("userid", u.ID.Hex()), zap.Error(err))
	}

	return u, nil
}

func (uc *userUsecase) Login(c context.Context, email, password string) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(c, uc.contextTimeout)
	defer cancel()

	ctx, span := uc.tracer.Start(
		ctx,
		"usecase Login",
		trace.WithSpanKind(trace.SpanKindServer),
	)
	defer span.End()

	email = domain.NormalizeEmail(email)
	if email == "" || password == "" {
		err := domain.NewAppError(http.StatusBadRequest, MsgMissingCredentials, domain.ErrBadParamInput)
		span.RecordError(err)
		return nil, err
	}

	u, err := uc.userRepo.GetByEmailWithPassword(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		span.RecordError(err)
		return nil, domain.NewAppError(http.StatusUnauthorized, MsgIncorrectLogin, domain.ErrAuthenticationFailure)
	}
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.String("userid", u.ID.Hex()))

	if err = bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)); err != nil {
		span.RecordError(err)
		return nil, domain.NewAppError(http.StatusUnauthorized, MsgIncorrectLogin, domain.ErrAuthenticationFailure)
	}
	u.Password = ""

	return u, nil
}

func (uc *userUsecase) CurrentUser(c context.Context, claims auth.Claims) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(c, uc.contextTimeout)
	defer cancel()

	ctx, span := uc.tracer.Start(
		ctx,
		"usecase CurrentUser",
		trace.WithAttributes(
			attribute.String("userid", claims.Subject)),
		trace.WithSpanKind(trace.SpanKindServer),
	)
	defer span.End()

	gone := domain.NewAppError(http.StatusUnauthorized, MsgUserGone, domain.ErrAuthenticationFailure)

	objID, err := primitive.ObjectIDFromHex(claims.Subject)
	if err != nil {
		span.RecordError(err)
		return nil, gone
	}

	u, err := uc.userRepo.GetByID(ctx, objID)
	if errors.Is(err, domain.ErrNotFound) {
		span.RecordError(err)
		return nil, gone
	}
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if u.ChangedPasswordAfter(claims.IssuedAtTime()) {
		err = domain.NewAppError(http.StatusUnauthorized, MsgPasswordChanged, domain.ErrAuthenticationFailure)
		span.RecordError(err)
		return nil, err
	}

	return u, nil
}

func (uc *userUsecase) ForgotPassword(c context.Context, email, resetURL string) error {
	ctx, cancel := context.WithTimeout(c, uc.contextTimeout)
	defer cancel()

	ctx, span := uc.tracer.Start(
		ctx,
		"usecase ForgotPassword",
		trace.WithSpanKind(trace.SpanKindServer),
	)
	defer span.End()

	u, err := uc.userRepo.GetByEmail(ctx, domain.NormalizeEmail(email))
	if errors.Is(err, domain.ErrNotFound) {
		span.RecordError(err)
		return domain.NewAppError(http.StatusNotFound, MsgNoUserWithEmail, domain.ErrNotFound)
	}
	if err != nil {
		span.RecordError(err)
		return err
	}
	span.SetAttributes(attribute.String("userid", u.ID.Hex()))

	token, err := newResetToken()
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("can't generate reset token: %w: %s", domain.ErrInternalServerError, err.Error())
	}

	expires := uc.now().Add(ResetTokenTTL).Truncate(time.Millisecond).UTC()
	u.PasswordResetToken = hashToken(token)
	u.PasswordResetExpires = &expires

	if err = uc.userRepo.Update(ctx, u); err != nil {
		span.RecordError(err)
		return err
	}

	if err = uc.mailer.SendPasswordReset(ctx, u, resetURL+token); err != nil {
		span.RecordError(err)
		uc.logger.Error("can't send password reset email", zap.String("userid", u.ID.Hex()), zap.Error(err))

		u.PasswordResetToken = ""
		u.PasswordResetExpires = nil
		if uerr := uc.userRepo.Update(ctx, u); uerr != nil {
			uc.logger.Error("can't clear reset token", zap.String("userid", u.ID.Hex()), zap.Error(uerr))
		}

		return domain.NewAppError(http.StatusInternalServerError, MsgEmailFailed, err)
	}

	return nil
}

func (uc *userUsecase) ResetPassword(c context.Context, token string, r domain.ResetPassword) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(c, uc.contextTimeout)
	defer cancel()

	ctx, span := uc.tracer.Start(
		ctx,
		"usecase ResetPassword",
		trace.WithSpanKind(trace.SpanKindServer),
	)
	defer span.End()

	u, err := uc.userRepo.GetByResetToken(ctx, hashToken(token), uc.now())
	if errors.Is(err, domain.ErrNotFound) {
		span.RecordError(err)
		return nil, domain.NewAppError(http.StatusBadRequest, MsgTokenInvalid, domain.ErrBadParamInput)
	}
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.String("userid", u.ID.Hex()))

	if err = uc.setPassword(u, r.Password); err != nil {
		span.RecordError(err)
		return nil, err
	}
	u.PasswordResetToken = ""
	u.PasswordResetExpires = nil

	if err = uc.userRepo.Update(ctx, u); err != nil {
		span.RecordError(err)
		return nil, err
	}
	u.Password = ""

	return u, nil
}

func (uc *userUsecase) UpdatePassword(c context.Context, id primitive.ObjectID, r domain.UpdatePassword) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(c, uc.contextTimeout)
	defer cancel()

	ctx, span := uc.tracer.Start(
		ctx,
		"usecase UpdatePassword",
		trace.WithAttributes(
			attribute.String("userid", id.Hex())),
		trace.WithSpanKind(trace.SpanKindServer),
	)
	defer span.End()

	u, err := uc.userRepo.GetByIDWithPassword(ctx, id)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if err = bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(r.PasswordCurrent)); err != nil {
		span.RecordError(err)
		return nil, domain.NewAppError(http.StatusUnauthorized, MsgWrongPassword, domain.ErrAuthenticationFailure)
	}

	if err = uc.setPassword(u, r.Password); err != nil {
		span.RecordError(err)
		return nil, err
	}

	if err = uc.userRepo.Update(ctx, u); err != nil {
		span.RecordError(err)
		return nil, err
	}
	u.Password = ""

	return u, nil
}

func (uc *userUsecase) UpdateMe(c context.Context, id primitive.ObjectID, r domain.UpdateMe) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(c, uc.contextTimeout)
	defer cancel()

	ctx, span := uc.tracer.Start(
		ctx,
		"usecase UpdateMe",
		trace.WithAttributes(
			attribute.String("userid", id.Hex())),
		trace.WithSpanKind(trace.SpanKindServer),
	)
	defer span.End()

	if r.Password != nil || r.PasswordConfirm != nil {
		err := domain.NewAppError(http.StatusBadRequest, MsgNotForPassword, domain.ErrBadParamInput)
		span.RecordError(err)
		return nil, err
	}

	u, err := uc.userRepo.GetByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if r.Name != nil {
		u.Name = *r.Name
	}
	if r.Email != nil {
		u.Email = domain.NormalizeEmail(*r.Email)
	}
	if r.Photo != nil {
		u.Photo = *r.Photo
	}

	if err = uc.userRepo.Update(ctx, u); err != nil {
		span.RecordError(err)
		return nil, err
	}

	return u, nil
}

func (uc *userUsecase) DeleteMe(c context.Context, id primitive.ObjectID) error {
	ctx, cancel := context.WithTimeout(c, uc.contextTimeout)
	defer cancel()

	ctx, span := uc.tracer.Start(
		ctx,
		"usecase DeleteMe",
		trace.WithAttributes(
			attribute.String("userid", id.Hex())),
		trace.WithSpanKind(trace.SpanKindServer),
	)
	defer span.End()

	u, err := uc.userRepo.GetByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		return err
	}

	u.Active = false
	if err = uc.userRepo.Update(ctx, u); err != nil {
		span.RecordError(err)
		return err
	}

	return nil
}

// setPassword stores hash of the new password, change time is set a second
// back so the token issued right after is still valid
func (uc *userUsecase) setPassword(u *domain.User, password string) error {
	hashedPwd, err := generateHash(password)
	if err != nil {
		return fmt.Errorf("can't generate hash from password: %w: %s", domain.ErrInternalServerError, err.Error())
	}

	changed := uc.now().Add(-time.Second).Truncate(time.Millisecond).UTC()
	u.Password = hashedPwd
	u.PasswordChangedAt = &changed

	return nil
}

func generateHash(password string) (string, error) {
	hashedPwd, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hashedPwd), nil
}

func newResetToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
